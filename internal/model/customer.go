package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the billing counterparty an invoice references. Customer
// management lives in another subsystem; this engine only reads it for
// display and existence checks.
type Customer struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	CompanyName    string    `gorm:"type:varchar(255)" json:"company_name"`
	TaxCode        string    `gorm:"type:varchar(50)" json:"tax_code"`
	Phone          string    `gorm:"type:varchar(50)" json:"phone"`
	Email          string    `gorm:"type:varchar(255)" json:"email"`
	BillingAddress string    `gorm:"type:text" json:"billing_address"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
