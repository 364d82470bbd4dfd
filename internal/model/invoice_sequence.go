package model

import "time"

// InvoiceSequence is the per-period document number counter. One row per
// calendar month (period "YYYYMM"), bumped atomically with an upsert so two
// concurrent allocations can never observe the same value.
type InvoiceSequence struct {
	Period    string    `gorm:"type:varchar(6);primaryKey" json:"period"`
	LastValue int64     `gorm:"not null;default:0" json:"last_value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
