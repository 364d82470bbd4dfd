package repository

import (
	"context"

	"gorm.io/gorm"
)

// SequenceRepository hands out document numbers. NextValue must be safe under
// concurrent callers: two allocations for the same period can never see the
// same value.
type SequenceRepository interface {
	NextValue(ctx context.Context, period string) (int64, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

// NextValue bumps the period counter with a single atomic upsert. The insert
// path seeds the row at 1; the conflict path increments under the row lock
// postgres takes for ON CONFLICT DO UPDATE, so concurrent calls serialize on
// the counter row instead of racing a read-then-compute.
func (r *sequenceRepository) NextValue(ctx context.Context, period string) (int64, error) {
	var next int64
	err := GetDB(ctx, r.db).Raw(`
		INSERT INTO invoice_sequences (period, last_value, created_at, updated_at)
		VALUES (?, 1, NOW(), NOW())
		ON CONFLICT (period)
		DO UPDATE SET last_value = invoice_sequences.last_value + 1, updated_at = NOW()
		RETURNING last_value
	`, period).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}
