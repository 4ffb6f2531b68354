package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Units of measure recognized by the stock-alert rules.
const (
	UnitPiece = "dona"
	UnitRoll  = "rulon"
	UnitLiter = "litr"
	UnitKg    = "kg"
	UnitMeter = "metr"
)

// Product is a catalog entry. Stock is mutated on every sale and must never
// be persisted negative — the sale path rejects a checkout that would
// overdraw it.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	CategoryID string          `json:"categoryId"`
	Barcode    string          `json:"barcode"`
	Unit       string          `json:"unit"`
	MinStock   int             `json:"minStock"`
}

// DefaultBarcode derives a fallback barcode for products created without one.
func DefaultBarcode(now time.Time) string {
	return fmt.Sprintf("%d", now.UnixMilli())
}

// StockAlert is the per-unit threshold below which a product counts as low
// stock. Critical is defined as stock within 25% of the threshold.
type StockAlert struct {
	Unit      string `json:"unit"`
	Threshold int    `json:"threshold"`
}

// DefaultStockAlerts are the thresholds used when no override is configured.
var DefaultStockAlerts = []StockAlert{
	{Unit: UnitPiece, Threshold: 20},
	{Unit: UnitRoll, Threshold: 10},
	{Unit: UnitLiter, Threshold: 50},
	{Unit: UnitKg, Threshold: 5},
	{Unit: UnitMeter, Threshold: 100},
}

// StockLevel classifies a product's stock against its unit threshold.
type StockLevel string

const (
	StockSufficient StockLevel = "sufficient"
	StockLow        StockLevel = "low"
	StockCritical   StockLevel = "critical"
	StockOut        StockLevel = "out"
)
