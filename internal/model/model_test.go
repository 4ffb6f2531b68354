package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDebtorRecalculate(t *testing.T) {
	d := Debtor{
		TotalDebt:  decimal.NewFromInt(1000),
		PaidAmount: decimal.NewFromInt(300),
	}
	d.Recalculate()
	assert.True(t, d.RemainingDebt.Equal(decimal.NewFromInt(700)))
	assert.Equal(t, DebtorActive, d.Status)

	d.PaidAmount = decimal.NewFromInt(1000)
	d.Recalculate()
	assert.True(t, d.RemainingDebt.IsZero())
	assert.Equal(t, DebtorPaid, d.Status)

	// Overpayment clamps at zero instead of going negative.
	d.PaidAmount = decimal.NewFromInt(1200)
	d.Recalculate()
	assert.True(t, d.RemainingDebt.IsZero())
	assert.Equal(t, DebtorPaid, d.Status)
}

func TestResolveIcon(t *testing.T) {
	assert.Equal(t, IconBrick, ResolveIcon("brick"))
	assert.Equal(t, IconPackage, ResolveIcon("unicorn"))
	assert.Equal(t, IconPackage, ResolveIcon(""))
}

func TestDefaultBarcode(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "1700000000123", DefaultBarcode(now))
}

func TestHasPermission(t *testing.T) {
	admin := User{Role: RoleAdmin}
	assert.True(t, admin.HasPermission(PermSalesDiscount))

	cashier := User{Role: RoleCashier, Permissions: []string{PermSalesDiscount}}
	assert.True(t, cashier.HasPermission(PermSalesDiscount))
	assert.False(t, cashier.HasPermission(PermProductsManage))
}

func TestSanitizedStripsHash(t *testing.T) {
	u := User{Username: "admin", PasswordHash: "$2a$12$abc"}
	assert.Empty(t, u.Sanitized().PasswordHash)
	assert.Equal(t, "$2a$12$abc", u.PasswordHash)
}

func TestValidTable(t *testing.T) {
	assert.True(t, ValidTable("products"))
	assert.True(t, ValidTable("debtors"))
	assert.False(t, ValidTable("invoices"))
}
