package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Debtor statuses. A debtor flips to paid exactly when RemainingDebt
// reaches zero.
const (
	DebtorActive = "active"
	DebtorPaid   = "paid"
)

// PaymentRecord is one installment applied against a debtor.
type PaymentRecord struct {
	ID       string          `json:"id"`
	DebtorID string          `json:"debtorId"`
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
}

// Debtor tracks an outstanding credit-sale balance. Invariant:
// RemainingDebt = max(0, TotalDebt - PaidAmount).
type Debtor struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	TotalDebt     decimal.Decimal `json:"totalDebt"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	RemainingDebt decimal.Decimal `json:"remainingDebt"`
	DueDate       string          `json:"dueDate"`
	Status        string          `json:"status"`
	Sales         []Sale          `json:"sales"`
	Payments      []PaymentRecord `json:"payments"`
}

// Recalculate re-derives RemainingDebt and Status from TotalDebt/PaidAmount.
func (d *Debtor) Recalculate() {
	remaining := d.TotalDebt.Sub(d.PaidAmount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	d.RemainingDebt = remaining
	if remaining.IsZero() {
		d.Status = DebtorPaid
	} else {
		d.Status = DebtorActive
	}
}
