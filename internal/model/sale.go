package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment types accepted at checkout.
const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentCredit = "credit"
)

// SaleItem is one cart line. Name, unit and price are snapshotted at sale
// time so later product edits do not rewrite history.
type SaleItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
}

// Sale is an immutable receipt. ReceiptNumber comes from the store-side
// sequence, never from counting existing sales. Invariant:
// FinalTotal = Total - Discount; for credit sales
// RemainingDebt = FinalTotal - PaidAmount.
type Sale struct {
	ID              string          `json:"id"`
	ReceiptNumber   string          `json:"receiptNumber"`
	CashierID       string          `json:"cashierId"`
	CashierName     string          `json:"cashierName"`
	Date            time.Time       `json:"date"`
	Items           []SaleItem      `json:"items"`
	Total           decimal.Decimal `json:"total"`
	PaymentType     string          `json:"paymentType"`
	Discount        decimal.Decimal `json:"discount"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	FinalTotal      decimal.Decimal `json:"finalTotal"`

	// Credit-sale fields — zero valued for cash/card sales.
	CustomerName  string          `json:"customerName,omitempty"`
	CustomerPhone string          `json:"customerPhone,omitempty"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	RemainingDebt decimal.Decimal `json:"remainingDebt"`
	DueDate       string          `json:"dueDate,omitempty"`
}
