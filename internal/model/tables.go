// Package model defines the entities stored in the snapshot store.
// Every entity lives in a flat collection keyed by its string id; there is
// no foreign-key enforcement at the store level, so referential consistency
// across Product↔Category and Sale↔Debtor is owned by the mutation layer.
package model

// Table identifies one logical collection in the snapshot store.
type Table string

const (
	TableProducts   Table = "products"
	TableCategories Table = "categories"
	TableSales      Table = "sales"
	TableDebtors    Table = "debtors"
	TableUsers      Table = "users"
	TablePayments   Table = "payments"
)

// Tables lists every collection the store serves, in a fixed order.
var Tables = []Table{
	TableProducts, TableCategories, TableSales,
	TableDebtors, TableUsers, TablePayments,
}

// ValidTable reports whether name is one of the known collections.
func ValidTable(name string) bool {
	for _, t := range Tables {
		if string(t) == name {
			return true
		}
	}
	return false
}
