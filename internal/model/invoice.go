package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus enum constants
const (
	StatusDraft         = "DRAFT"
	StatusPending       = "PENDING"
	StatusSent          = "SENT"
	StatusPartiallyPaid = "PARTIALLY_PAID"
	StatusPaid          = "PAID"
	StatusOverdue       = "OVERDUE"
	StatusCancelled     = "CANCELLED"
)

// DiscountType enum constants
const (
	DiscountPercentage = "PERCENTAGE"
	DiscountFixed      = "FIXED"
)

// Tolerance is the epsilon used when comparing monetary totals.
var Tolerance = decimal.NewFromFloat(0.01)

// statusTransitions is the single authority on legal lifecycle moves.
// OVERDUE is written by an external sweep, not by this engine.
var statusTransitions = map[string][]string{
	StatusDraft:         {StatusPending, StatusSent, StatusPartiallyPaid, StatusPaid, StatusCancelled},
	StatusPending:       {StatusSent, StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled},
	StatusSent:          {StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled},
	StatusPartiallyPaid: {StatusPaid, StatusOverdue, StatusCancelled},
	StatusOverdue:       {StatusPartiallyPaid, StatusPaid, StatusCancelled},
	StatusPaid:          {},
	StatusCancelled:     {},
}

// ValidStatus reports whether s is a known invoice status.
func ValidStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether moving from one status to another is legal.
// Staying in place is always legal.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusForPayment derives the payment-driven status. Zero paid leaves the
// current status untouched; anything between zero and the total is
// PARTIALLY_PAID; paid covering the total within tolerance is PAID.
func StatusForPayment(current string, amountPaid, totalAmount decimal.Decimal) string {
	if amountPaid.LessThanOrEqual(decimal.Zero) {
		return current
	}
	if amountPaid.GreaterThanOrEqual(totalAmount.Sub(Tolerance)) {
		return StatusPaid
	}
	return StatusPartiallyPaid
}

// Invoice is the financial document owned by this engine. Monetary columns
// are recomputed as a whole on every create/update; amount_paid only moves
// through the payment ledger.
type Invoice struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo      string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer       *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	IssueDate      time.Time       `gorm:"type:date;not null;index" json:"issue_date"`
	DueDate        time.Time       `gorm:"type:date;not null" json:"due_date"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	DiscountType   string          `gorm:"type:varchar(20);not null;default:'PERCENTAGE'" json:"discount_type"`
	DiscountValue  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_value"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	RoundOff       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"round_off"` // signed manual adjustment
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount_paid"`
	Status         string          `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	Notes          string          `gorm:"type:text" json:"notes"`
	Items          []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Payments       []Payment       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"payments"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// InvoiceItem is a line of its parent invoice. Items have no identity outside
// the invoice: updates replace the whole set.
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Position    int             `gorm:"not null" json:"position"`
	Description string          `gorm:"type:varchar(255);not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	DiscountPct decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"discount_pct"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"tax_rate"`
	HSNCode     string          `gorm:"type:varchar(20)" json:"hsn_code"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"` // computed, never set directly
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RemainingBalance is the amount still owed on the invoice.
func (i *Invoice) RemainingBalance() decimal.Decimal {
	return i.TotalAmount.Sub(i.AmountPaid)
}

// Editable reports whether the invoice may still be updated.
func (i *Invoice) Editable() bool {
	return i.Status != StatusPaid && i.Status != StatusCancelled
}

// Deletable reports whether the invoice may be physically deleted. Any
// recorded payment pins the invoice forever.
func (i *Invoice) Deletable() bool {
	return i.Editable() && i.AmountPaid.LessThanOrEqual(Tolerance) && len(i.Payments) == 0
}
