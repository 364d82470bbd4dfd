package repository

import (
	"context"

	"factoryerp/internal/model"

	"gorm.io/gorm"
)

// TaxCodeRepository exposes the HSN registry. Read-only here: the registry is
// maintained elsewhere and only consulted to prefill line-item rates.
type TaxCodeRepository interface {
	FindByCode(ctx context.Context, code string) (*model.TaxCode, error)
	List(ctx context.Context, page, limit int) ([]model.TaxCode, int64, error)
}

type taxCodeRepository struct {
	db *gorm.DB
}

func NewTaxCodeRepository(db *gorm.DB) TaxCodeRepository {
	return &taxCodeRepository{db: db}
}

func (r *taxCodeRepository) FindByCode(ctx context.Context, code string) (*model.TaxCode, error) {
	var taxCode model.TaxCode
	if err := GetDB(ctx, r.db).First(&taxCode, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &taxCode, nil
}

func (r *taxCodeRepository) List(ctx context.Context, page, limit int) ([]model.TaxCode, int64, error) {
	var codes []model.TaxCode
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.TaxCode{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("code asc").Offset(offset).Limit(limit).Find(&codes).Error; err != nil {
		return nil, 0, err
	}

	return codes, total, nil
}
