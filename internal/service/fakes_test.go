package service

import (
	"context"
	"sort"
	"time"

	"factoryerp/internal/model"
	"factoryerp/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeStore backs all repository interfaces with in-memory maps so the
// services can be exercised without postgres. Single-goroutine tests only.
type fakeStore struct {
	invoices  map[uuid.UUID]model.Invoice
	items     map[uuid.UUID][]model.InvoiceItem
	payments  map[uuid.UUID][]model.Payment
	customers map[uuid.UUID]model.Customer
	sequences map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		invoices:  make(map[uuid.UUID]model.Invoice),
		items:     make(map[uuid.UUID][]model.InvoiceItem),
		payments:  make(map[uuid.UUID][]model.Payment),
		customers: make(map[uuid.UUID]model.Customer),
		sequences: make(map[string]int64),
	}
}

func (s *fakeStore) addCustomer(name string) uuid.UUID {
	id := uuid.New()
	s.customers[id] = model.Customer{ID: id, Name: name, IsActive: true}
	return id
}

func (s *fakeStore) load(id uuid.UUID) (model.Invoice, bool) {
	inv, ok := s.invoices[id]
	if !ok {
		return model.Invoice{}, false
	}
	inv.Items = append([]model.InvoiceItem(nil), s.items[id]...)
	inv.Payments = append([]model.Payment(nil), s.payments[id]...)
	if c, ok := s.customers[inv.CustomerID]; ok {
		customer := c
		inv.Customer = &customer
	}
	return inv, true
}

// --- InvoiceRepository ---

type fakeInvoiceRepo struct{ store *fakeStore }

func (r *fakeInvoiceRepo) Create(_ context.Context, invoice *model.Invoice) error {
	invoice.ID = uuid.New()
	invoice.CreatedAt = time.Now()
	for i := range invoice.Items {
		invoice.Items[i].ID = uuid.New()
		invoice.Items[i].InvoiceID = invoice.ID
	}
	stored := *invoice
	stored.Items = nil
	stored.Payments = nil
	stored.Customer = nil
	r.store.invoices[invoice.ID] = stored
	r.store.items[invoice.ID] = append([]model.InvoiceItem(nil), invoice.Items...)
	return nil
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := r.store.load(id)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

func (r *fakeInvoiceRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeInvoiceRepo) Update(_ context.Context, invoice *model.Invoice) error {
	if _, ok := r.store.invoices[invoice.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *invoice
	stored.Items = nil
	stored.Payments = nil
	stored.Customer = nil
	r.store.invoices[invoice.ID] = stored
	return nil
}

func (r *fakeInvoiceRepo) ReplaceItems(_ context.Context, invoiceID uuid.UUID, items []model.InvoiceItem) error {
	for i := range items {
		items[i].ID = uuid.New()
		items[i].InvoiceID = invoiceID
	}
	r.store.items[invoiceID] = append([]model.InvoiceItem(nil), items...)
	return nil
}

func (r *fakeInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.invoices, id)
	delete(r.store.items, id)
	return nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, filter repository.InvoiceListFilter) ([]model.Invoice, int64, error) {
	matched := r.filtered(filter)
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakeInvoiceRepo) Stats(_ context.Context, filter repository.InvoiceListFilter) (model.InvoiceStats, error) {
	stats := model.InvoiceStats{
		TotalAmount:   decimal.Zero,
		PaidAmount:    decimal.Zero,
		PendingAmount: decimal.Zero,
		OverdueAmount: decimal.Zero,
	}
	for _, inv := range r.filtered(filter) {
		if inv.Status == model.StatusCancelled {
			continue
		}
		stats.Count++
		stats.TotalAmount = stats.TotalAmount.Add(inv.TotalAmount)
		stats.PaidAmount = stats.PaidAmount.Add(inv.AmountPaid)
		if inv.Status != model.StatusPaid {
			remaining := inv.TotalAmount.Sub(inv.AmountPaid)
			stats.PendingAmount = stats.PendingAmount.Add(remaining)
			if inv.DueDate.Before(time.Now()) {
				stats.OverdueAmount = stats.OverdueAmount.Add(remaining)
			}
		}
	}
	return stats, nil
}

func (r *fakeInvoiceRepo) filtered(filter repository.InvoiceListFilter) []model.Invoice {
	var matched []model.Invoice
	for id := range r.store.invoices {
		inv, _ := r.store.load(id)
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.IssuedFrom != nil && inv.IssueDate.Before(*filter.IssuedFrom) {
			continue
		}
		if filter.IssuedTo != nil && inv.IssueDate.After(*filter.IssuedTo) {
			continue
		}
		matched = append(matched, inv)
	}
	return matched
}

// --- PaymentRepository ---

type fakePaymentRepo struct{ store *fakeStore }

func (r *fakePaymentRepo) Create(_ context.Context, payment *model.Payment) error {
	payment.ID = uuid.New()
	payment.CreatedAt = time.Now()
	r.store.payments[payment.InvoiceID] = append(r.store.payments[payment.InvoiceID], *payment)
	return nil
}

func (r *fakePaymentRepo) ListByInvoice(_ context.Context, invoiceID uuid.UUID) ([]model.Payment, error) {
	return append([]model.Payment(nil), r.store.payments[invoiceID]...), nil
}

func (r *fakePaymentRepo) CountByInvoice(_ context.Context, invoiceID uuid.UUID) (int64, error) {
	return int64(len(r.store.payments[invoiceID])), nil
}

// --- CustomerRepository ---

type fakeCustomerRepo struct{ store *fakeStore }

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := r.store.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *fakeCustomerRepo) List(_ context.Context, search string, page, limit int) ([]model.Customer, int64, error) {
	var customers []model.Customer
	for _, c := range r.store.customers {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	return customers, int64(len(customers)), nil
}

// --- SequenceRepository ---

type fakeSequenceRepo struct{ store *fakeStore }

func (r *fakeSequenceRepo) NextValue(_ context.Context, period string) (int64, error) {
	r.store.sequences[period]++
	return r.store.sequences[period], nil
}

// --- TransactionManager ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- wiring ---

type fixture struct {
	store          *fakeStore
	invoiceService InvoiceService
	paymentService PaymentService
}

func newFixture() *fixture {
	store := newFakeStore()
	invoiceRepo := &fakeInvoiceRepo{store: store}
	paymentRepo := &fakePaymentRepo{store: store}
	customerRepo := &fakeCustomerRepo{store: store}
	sequenceRepo := &fakeSequenceRepo{store: store}
	tx := fakeTxManager{}

	return &fixture{
		store:          store,
		invoiceService: NewInvoiceService(invoiceRepo, paymentRepo, customerRepo, sequenceRepo, tx, nil),
		paymentService: NewPaymentService(invoiceRepo, paymentRepo, tx, nil),
	}
}
