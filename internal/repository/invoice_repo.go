package repository

import (
	"context"
	"time"

	"factoryerp/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceListFilter narrows and pages the invoice listing.
type InvoiceListFilter struct {
	Status     string
	CustomerID *uuid.UUID
	IssuedFrom *time.Time
	IssuedTo   *time.Time
	Page       int
	Limit      int
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	// FindByIDForUpdate locks the invoice row for the duration of the
	// surrounding transaction. Must be called inside RunInTx.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	Update(ctx context.Context, invoice *model.Invoice) error
	// ReplaceItems deletes the invoice's items and inserts the given set.
	ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	Stats(ctx context.Context, filter InvoiceListFilter) (model.InvoiceStats, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at asc") }).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	// Children are loaded separately: FOR UPDATE cannot ride along with the
	// preload joins, and only the invoice row itself needs the lock.
	if err := GetDB(ctx, r.db).Order("position asc").Find(&invoice.Items, "invoice_id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Order("paid_at asc").Find(&invoice.Payments, "invoice_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Omit("Items", "Payments", "Customer").Save(invoice).Error
}

func (r *invoiceRepository) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("invoice_id = ?", invoiceID).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].InvoiceID = invoiceID
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("invoice_id = ?", id).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Invoice{}, "id = ?", id).Error
}

func applyInvoiceFilter(query *gorm.DB, filter InvoiceListFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		query = query.Where("issue_date <= ?", *filter.IssuedTo)
	}
	return query
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db)
	if err := applyInvoiceFilter(db.Model(&model.Invoice{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := applyInvoiceFilter(db.Preload("Customer"), filter).
		Order("created_at desc").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func (r *invoiceRepository) Stats(ctx context.Context, filter InvoiceListFilter) (model.InvoiceStats, error) {
	var row struct {
		TotalAmount   decimal.Decimal
		PaidAmount    decimal.Decimal
		PendingAmount decimal.Decimal
		OverdueAmount decimal.Decimal
		Count         int64
	}

	db := GetDB(ctx, r.db)
	query := applyInvoiceFilter(db.Model(&model.Invoice{}), filter).
		Where("status != ?", model.StatusCancelled).
		Select(`
			COALESCE(SUM(total_amount), 0) as total_amount,
			COALESCE(SUM(amount_paid), 0) as paid_amount,
			COALESCE(SUM(CASE WHEN status != ? THEN total_amount - amount_paid ELSE 0 END), 0) as pending_amount,
			COALESCE(SUM(CASE WHEN status != ? AND due_date < ? THEN total_amount - amount_paid ELSE 0 END), 0) as overdue_amount,
			COUNT(*) as count`,
			model.StatusPaid, model.StatusPaid, time.Now())

	if err := query.Scan(&row).Error; err != nil {
		return model.InvoiceStats{}, err
	}

	return model.InvoiceStats{
		TotalAmount:   row.TotalAmount,
		PaidAmount:    row.PaidAmount,
		PendingAmount: row.PendingAmount,
		OverdueAmount: row.OverdueAmount,
		Count:         row.Count,
	}, nil
}
