package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxCode maps an HSN classification code to its default tax rate. Clients
// use it to prefill line-item rates; stored invoices keep their own rate, so
// registry edits never rewrite history.
type TaxCode struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	Description string          `gorm:"type:varchar(255)" json:"description"`
	DefaultRate decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"default_rate"` // percent, e.g. 18 = 18%
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
