package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod enum constants
const (
	MethodCash         = "CASH"
	MethodBankTransfer = "BANK_TRANSFER"
	MethodUPI          = "UPI"
	MethodCheque       = "CHEQUE"
	MethodCard         = "CARD"
	MethodOther        = "OTHER"
)

var paymentMethods = map[string]bool{
	MethodCash:         true,
	MethodBankTransfer: true,
	MethodUPI:          true,
	MethodCheque:       true,
	MethodCard:         true,
	MethodOther:        true,
}

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m string) bool {
	return paymentMethods[m]
}

// Payment is an append-only ledger entry against an invoice. Payments are
// never edited or deleted once recorded.
type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Method    string          `gorm:"type:varchar(20);not null" json:"method"`
	Reference string          `gorm:"type:varchar(100)" json:"reference"`
	Notes     string          `gorm:"type:text" json:"notes"`
	PaidAt    time.Time       `gorm:"not null;index" json:"paid_at"`
	CreatedBy *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}
