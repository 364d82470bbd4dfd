package model

import "github.com/shopspring/decimal"

// InvoiceStats aggregates the monetary position of a filtered invoice set.
// Cancelled invoices are excluded from every bucket.
type InvoiceStats struct {
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"` // total - paid over non-terminal invoices
	OverdueAmount decimal.Decimal `json:"overdue_amount"` // pending portion past due date
	Count         int64           `json:"count"`
}
