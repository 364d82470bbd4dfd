package service

import (
	"context"
	"fmt"
	"testing"

	"factoryerp/internal/model"
	"factoryerp/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateRequest(customerID string) CreateInvoiceRequest {
	return CreateInvoiceRequest{
		CustomerID: customerID,
		IssueDate:  "2024-01-15",
		DueDate:    "2024-02-15",
		Items: []InvoiceItemRequest{
			{Description: "machined shaft", Quantity: "2", UnitPrice: "500", TaxRate: "18", HSNCode: "8483"},
		},
	}
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	inv, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
	require.NoError(t, err)

	assert.Equal(t, "INV2024010001", inv.InvoiceNo)
	assert.Equal(t, "1000.00", inv.Subtotal)
	assert.Equal(t, "180.00", inv.TaxAmount)
	assert.Equal(t, "1180.00", inv.TotalAmount)
	assert.Equal(t, "0.00", inv.AmountPaid)
	assert.Equal(t, model.StatusPending, inv.Status)
	assert.Equal(t, "Acme Forge", inv.CustomerName)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "1000.00", inv.Items[0].Amount)
	require.Len(t, inv.TaxGroups, 1)
	assert.Equal(t, "90.00", inv.TaxGroups[0].CGSTAmount)
	assert.Equal(t, "90.00", inv.TaxGroups[0].SGSTAmount)
}

func TestCreateInvoiceSequentialNumbers(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	seen := make(map[string]bool)
	for i := 1; i <= 5; i++ {
		inv, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("INV202401%04d", i), inv.InvoiceNo)
		assert.False(t, seen[inv.InvoiceNo], "duplicate number %s", inv.InvoiceNo)
		seen[inv.InvoiceNo] = true
	}

	// a different period starts its own sequence
	req := validCreateRequest(customerID.String())
	req.IssueDate = "2024-02-01"
	req.DueDate = "2024-03-01"
	inv, err := f.invoiceService.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "INV2024020001", inv.InvoiceNo)
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	tests := []struct {
		name   string
		mutate func(*CreateInvoiceRequest)
	}{
		{"bad customer id", func(r *CreateInvoiceRequest) { r.CustomerID = "not-a-uuid" }},
		{"unknown customer", func(r *CreateInvoiceRequest) { r.CustomerID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8" }},
		{"no items", func(r *CreateInvoiceRequest) { r.Items = nil }},
		{"bad due date", func(r *CreateInvoiceRequest) { r.DueDate = "soon" }},
		{"due before issue", func(r *CreateInvoiceRequest) { r.DueDate = "2024-01-01" }},
		{"bad status", func(r *CreateInvoiceRequest) { r.Status = model.StatusPaid }},
		{"bad round off", func(r *CreateInvoiceRequest) { r.RoundOff = "zero" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest(customerID.String())
			tc.mutate(&req)
			_, err := f.invoiceService.CreateInvoice(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperror.IsKind(err, apperror.KindValidation), "got %v", err)
		})
	}
}

func TestCreateInvoiceDraftStatus(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	req := validCreateRequest(customerID.String())
	req.Status = model.StatusDraft
	inv, err := f.invoiceService.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, inv.Status)
}

func TestUpdateInvoiceRecomputes(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	created, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
	require.NoError(t, err)

	discount := "10"
	updated, err := f.invoiceService.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceRequest{
		DiscountValue: &discount,
		Items: []InvoiceItemRequest{
			{Description: "machined shaft", Quantity: "2", UnitPrice: "500", TaxRate: "18", HSNCode: "8483"},
			{Description: "bearing", Quantity: "10", UnitPrice: "50", TaxRate: "18", HSNCode: "8482"},
		},
	})
	require.NoError(t, err)

	// subtotal 1500, tax 270, discount 150
	assert.Equal(t, "1500.00", updated.Subtotal)
	assert.Equal(t, "270.00", updated.TaxAmount)
	assert.Equal(t, "150.00", updated.DiscountAmount)
	assert.Equal(t, "1620.00", updated.TotalAmount)
	require.Len(t, updated.Items, 2)
	require.Len(t, updated.TaxGroups, 2)
}

func TestUpdateInvoiceStatusTransition(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	created, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
	require.NoError(t, err)

	sent := model.StatusSent
	updated, err := f.invoiceService.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceRequest{Status: &sent})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, updated.Status)

	// illegal backwards move
	draft := model.StatusDraft
	_, err = f.invoiceService.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceRequest{Status: &draft})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindBusinessRule), "got %v", err)

	// cancelling goes through the dedicated operation
	cancelled := model.StatusCancelled
	_, err = f.invoiceService.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceRequest{Status: &cancelled})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "got %v", err)
}

func TestUpdatePaidInvoiceRejected(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	created, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
	require.NoError(t, err)

	_, err = f.paymentService.AddPayment(context.Background(), created.ID, AddPaymentRequest{
		Amount: "1180", Method: model.MethodBankTransfer,
	}, nil)
	require.NoError(t, err)

	notes := "late edit"
	_, err = f.invoiceService.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceRequest{Notes: &notes})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindBusinessRule), "got %v", err)
}

func TestUpdateCannotDropTotalBelowPaid(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	created, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
	require.NoError(t, err)

	_, err = f.paymentService.AddPayment(context.Background(), created.ID, AddPaymentRequest{
		Amount: "600", Method: model.MethodCash,
	}, nil)
	require.NoError(t, err)

	_, err = f.invoiceService.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceRequest{
		Items: []InvoiceItemRequest{
			{Description: "washer", Quantity: "1", UnitPrice: "100", TaxRate: "18"},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindBusinessRule), "got %v", err)
}

func TestGetInvoiceIdempotentRead(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	created, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
	require.NoError(t, err)

	first, err := f.invoiceService.GetInvoice(context.Background(), created.ID)
	require.NoError(t, err)
	second, err := f.invoiceService.GetInvoice(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGetInvoiceNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.invoiceService.GetInvoice(context.Background(), "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound), "got %v", err)
}

func TestCancelInvoice(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	created, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
	require.NoError(t, err)

	cancelled, err := f.invoiceService.CancelInvoice(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	// cancel is not repeatable
	_, err = f.invoiceService.CancelInvoice(context.Background(), created.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindBusinessRule), "got %v", err)
}

func TestCancelPaidInvoiceRejected(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	created, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
	require.NoError(t, err)

	_, err = f.paymentService.AddPayment(context.Background(), created.ID, AddPaymentRequest{
		Amount: "1180", Method: model.MethodUPI,
	}, nil)
	require.NoError(t, err)

	_, err = f.invoiceService.CancelInvoice(context.Background(), created.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindBusinessRule), "got %v", err)
}

func TestDeleteInvoiceGuards(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	created, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
	require.NoError(t, err)

	// with a payment recorded, delete is rejected
	_, err = f.paymentService.AddPayment(context.Background(), created.ID, AddPaymentRequest{
		Amount: "100", Method: model.MethodCash,
	}, nil)
	require.NoError(t, err)

	err = f.invoiceService.DeleteInvoice(context.Background(), created.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindBusinessRule), "got %v", err)

	// a pristine invoice deletes fine
	fresh, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
	require.NoError(t, err)
	require.NoError(t, f.invoiceService.DeleteInvoice(context.Background(), fresh.ID))

	_, err = f.invoiceService.GetInvoice(context.Background(), fresh.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestListInvoicesFiltersAndStats(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")
	otherID := f.store.addCustomer("Bolt & Sons")

	for i := 0; i < 3; i++ {
		_, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(customerID.String()))
		require.NoError(t, err)
	}
	other, err := f.invoiceService.CreateInvoice(context.Background(), validCreateRequest(otherID.String()))
	require.NoError(t, err)

	_, err = f.paymentService.AddPayment(context.Background(), other.ID, AddPaymentRequest{
		Amount: "1180", Method: model.MethodCard,
	}, nil)
	require.NoError(t, err)

	all, err := f.invoiceService.ListInvoices(context.Background(), InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)
	assert.Equal(t, "4720.00", all.Stats.TotalAmount)
	assert.Equal(t, "1180.00", all.Stats.PaidAmount)
	assert.Equal(t, "3540.00", all.Stats.PendingAmount)
	// due dates in 2024 are long past
	assert.Equal(t, "3540.00", all.Stats.OverdueAmount)

	byCustomer, err := f.invoiceService.ListInvoices(context.Background(), InvoiceFilter{CustomerID: otherID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), byCustomer.Total)

	paidOnly, err := f.invoiceService.ListInvoices(context.Background(), InvoiceFilter{Status: model.StatusPaid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), paidOnly.Total)

	_, err = f.invoiceService.ListInvoices(context.Background(), InvoiceFilter{Status: "APPROVED"})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestCreateInvoiceTotalIdentity(t *testing.T) {
	f := newFixture()
	customerID := f.store.addCustomer("Acme Forge")

	req := CreateInvoiceRequest{
		CustomerID:    customerID.String(),
		IssueDate:     "2024-03-10",
		DueDate:       "2024-04-10",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: "7.5",
		RoundOff:      "-0.37",
		Items: []InvoiceItemRequest{
			{Description: "a", Quantity: "3", UnitPrice: "333.33", TaxRate: "18", DiscountPct: "7.5", HSNCode: "8483"},
			{Description: "b", Quantity: "7", UnitPrice: "19.99", TaxRate: "12", HSNCode: "8482"},
		},
	}
	inv, err := f.invoiceService.CreateInvoice(context.Background(), req)
	require.NoError(t, err)

	subtotal := d(inv.Subtotal)
	discount := d(inv.DiscountAmount)
	tax := d(inv.TaxAmount)
	roundOff := d(inv.RoundOff)
	total := d(inv.TotalAmount)

	identity := subtotal.Sub(discount).Add(tax).Add(roundOff)
	assert.True(t, total.Sub(identity).Abs().LessThanOrEqual(model.Tolerance),
		"total %s vs identity %s", total, identity)

	// stored issue date drives the period
	assert.Contains(t, inv.InvoiceNo, "INV202403")
}
