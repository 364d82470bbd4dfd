package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"factoryerp/internal/model"
	"factoryerp/internal/repository"
	"factoryerp/pkg/apperror"
	"factoryerp/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	invoiceNoPrefix = "INV"
	periodLayout    = "200601" // YYYYMM
	dateLayout      = "2006-01-02"
)

// EventPublisher pushes lifecycle events to connected dashboard clients.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

// Event names broadcast over the websocket hub.
const (
	EventInvoiceCreated   = "invoice.created"
	EventInvoiceUpdated   = "invoice.updated"
	EventInvoiceCancelled = "invoice.cancelled"
	EventPaymentRecorded  = "payment.recorded"
)

// --- DTOs ---

type InvoiceItemRequest struct {
	Description string `json:"description" binding:"required"`
	Quantity    string `json:"quantity" binding:"required"`
	UnitPrice   string `json:"unit_price" binding:"required"`
	DiscountPct string `json:"discount_pct"`
	TaxRate     string `json:"tax_rate"`
	HSNCode     string `json:"hsn_code"`
}

type CreateInvoiceRequest struct {
	CustomerID    string               `json:"customer_id" binding:"required"`
	IssueDate     string               `json:"issue_date"` // YYYY-MM-DD, defaults to today
	DueDate       string               `json:"due_date" binding:"required"`
	Items         []InvoiceItemRequest `json:"items" binding:"required"`
	DiscountType  string               `json:"discount_type"` // PERCENTAGE (default) or FIXED
	DiscountValue string               `json:"discount_value"`
	RoundOff      string               `json:"round_off"`
	Notes         string               `json:"notes"`
	Status        string               `json:"status"` // DRAFT or PENDING, defaults to PENDING
}

// UpdateInvoiceRequest carries the mutable fields. A nil Items keeps the
// existing line set; a non-nil Items replaces it wholesale.
type UpdateInvoiceRequest struct {
	CustomerID    *string              `json:"customer_id"`
	IssueDate     *string              `json:"issue_date"`
	DueDate       *string              `json:"due_date"`
	Items         []InvoiceItemRequest `json:"items"`
	DiscountType  *string              `json:"discount_type"`
	DiscountValue *string              `json:"discount_value"`
	RoundOff      *string              `json:"round_off"`
	Notes         *string              `json:"notes"`
	Status        *string              `json:"status"`
}

type InvoiceFilter struct {
	Status     string
	CustomerID string
	IssuedFrom string
	IssuedTo   string
	Page       int
	Limit      int
}

type InvoiceItemResponse struct {
	ID          string `json:"id"`
	Position    int    `json:"position"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	DiscountPct string `json:"discount_pct"`
	TaxRate     string `json:"tax_rate"`
	HSNCode     string `json:"hsn_code"`
	Amount      string `json:"amount"`
}

type PaymentResponse struct {
	ID        string  `json:"id"`
	InvoiceID string  `json:"invoice_id"`
	Amount    string  `json:"amount"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
	PaidAt    string  `json:"paid_at"`
	CreatedBy *string `json:"created_by"`
}

type TaxGroupResponse struct {
	HSNCode      string `json:"hsn_code"`
	TaxRate      string `json:"tax_rate"`
	TaxableValue string `json:"taxable_value"`
	CGSTAmount   string `json:"cgst_amount"`
	SGSTAmount   string `json:"sgst_amount"`
	TotalTax     string `json:"total_tax"`
}

type InvoiceResponse struct {
	ID             string                `json:"id"`
	InvoiceNo      string                `json:"invoice_no"`
	CustomerID     string                `json:"customer_id"`
	CustomerName   string                `json:"customer_name,omitempty"`
	CompanyName    string                `json:"company_name,omitempty"`
	IssueDate      string                `json:"issue_date"`
	DueDate        string                `json:"due_date"`
	Subtotal       string                `json:"subtotal"`
	DiscountType   string                `json:"discount_type"`
	DiscountValue  string                `json:"discount_value"`
	DiscountAmount string                `json:"discount_amount"`
	TaxAmount      string                `json:"tax_amount"`
	RoundOff       string                `json:"round_off"`
	TotalAmount    string                `json:"total_amount"`
	AmountPaid     string                `json:"amount_paid"`
	Balance        string                `json:"balance"`
	Status         string                `json:"status"`
	Notes          string                `json:"notes"`
	Items          []InvoiceItemResponse `json:"items,omitempty"`
	Payments       []PaymentResponse     `json:"payments,omitempty"`
	TaxGroups      []TaxGroupResponse    `json:"tax_groups,omitempty"`
	CreatedAt      string                `json:"created_at"`
}

type InvoiceStatsResponse struct {
	TotalAmount   string `json:"total_amount"`
	PaidAmount    string `json:"paid_amount"`
	PendingAmount string `json:"pending_amount"`
	OverdueAmount string `json:"overdue_amount"`
	Count         int64  `json:"count"`
}

type InvoiceListResult struct {
	Invoices []InvoiceResponse    `json:"invoices"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	Limit    int                  `json:"limit"`
	Stats    InvoiceStatsResponse `json:"stats"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (InvoiceResponse, error)
	UpdateInvoice(ctx context.Context, id string, req UpdateInvoiceRequest) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) (InvoiceListResult, error)
	CancelInvoice(ctx context.Context, id string) (InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) error
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	paymentRepo  repository.PaymentRepository
	customerRepo repository.CustomerRepository
	sequenceRepo repository.SequenceRepository
	txManager    repository.TransactionManager
	events       EventPublisher
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	customerRepo repository.CustomerRepository,
	sequenceRepo repository.SequenceRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		customerRepo: customerRepo,
		sequenceRepo: sequenceRepo,
		txManager:    txManager,
		events:       events,
	}
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (InvoiceResponse, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return InvoiceResponse{}, apperror.Validation("invalid customer_id: %v", err)
	}

	issueDate := time.Now().Truncate(24 * time.Hour)
	if req.IssueDate != "" {
		issueDate, err = parseDate(req.IssueDate)
		if err != nil {
			return InvoiceResponse{}, apperror.Validation("invalid issue_date: %v", err)
		}
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return InvoiceResponse{}, apperror.Validation("invalid due_date: %v", err)
	}
	if dueDate.Before(issueDate) {
		return InvoiceResponse{}, apperror.Validation("due_date must not be before issue_date")
	}

	status := req.Status
	if status == "" {
		status = model.StatusPending
	}
	if status != model.StatusDraft && status != model.StatusPending {
		return InvoiceResponse{}, apperror.Validation("initial status must be DRAFT or PENDING, got %q", status)
	}

	items, err := buildItems(req.Items)
	if err != nil {
		return InvoiceResponse{}, err
	}

	discountType := req.DiscountType
	if discountType == "" {
		discountType = model.DiscountPercentage
	}
	discountValue, err := parseOptionalDecimal(req.DiscountValue)
	if err != nil {
		return InvoiceResponse{}, apperror.Validation("invalid discount_value: %v", err)
	}
	roundOff, err := parseOptionalDecimal(req.RoundOff)
	if err != nil {
		return InvoiceResponse{}, apperror.Validation("invalid round_off: %v", err)
	}

	totals, err := computeTotals(items, discountType, discountValue, roundOff)
	if err != nil {
		return InvoiceResponse{}, err
	}

	if _, err := s.customerRepo.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperror.Validation("customer %s not found", customerID)
		}
		return InvoiceResponse{}, fmt.Errorf("failed to look up customer: %w", err)
	}

	invoice := model.Invoice{
		CustomerID:     customerID,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		Subtotal:       totals.Subtotal,
		DiscountType:   discountType,
		DiscountValue:  discountValue,
		DiscountAmount: totals.DiscountAmount,
		TaxAmount:      totals.TaxAmount,
		RoundOff:       roundOff,
		TotalAmount:    totals.TotalAmount,
		AmountPaid:     decimal.Zero,
		Status:         status,
		Notes:          req.Notes,
		Items:          items,
	}

	// Number allocation and insert share one transaction so an insert failure
	// only burns a counter value, never produces a half-created invoice.
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		period := issueDate.Format(periodLayout)
		seq, seqErr := s.sequenceRepo.NextValue(txCtx, period)
		if seqErr != nil {
			return fmt.Errorf("failed to allocate invoice number: %w", seqErr)
		}
		invoice.InvoiceNo = fmt.Sprintf("%s%s%04d", invoiceNoPrefix, period, seq)

		if createErr := s.invoiceRepo.Create(txCtx, &invoice); createErr != nil {
			return fmt.Errorf("failed to create invoice: %w", createErr)
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	reloaded, err := s.invoiceRepo.FindByID(ctx, invoice.ID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}

	resp := toInvoiceResponse(*reloaded, true)
	if s.events != nil {
		s.events.Publish(EventInvoiceCreated, resp)
	}
	return resp, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req UpdateInvoiceRequest) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperror.Validation("invalid invoice id: %v", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			return invoiceLookupError(findErr, invoiceID)
		}

		if !invoice.Editable() {
			return apperror.BusinessRule("invoice %s cannot be edited in status %s", invoice.InvoiceNo, invoice.Status)
		}

		if req.CustomerID != nil {
			customerID, parseErr := uuid.Parse(*req.CustomerID)
			if parseErr != nil {
				return apperror.Validation("invalid customer_id: %v", parseErr)
			}
			if _, lookErr := s.customerRepo.FindByID(txCtx, customerID); lookErr != nil {
				if errors.Is(lookErr, gorm.ErrRecordNotFound) {
					return apperror.Validation("customer %s not found", customerID)
				}
				return fmt.Errorf("failed to look up customer: %w", lookErr)
			}
			invoice.CustomerID = customerID
		}
		if req.IssueDate != nil {
			issueDate, parseErr := parseDate(*req.IssueDate)
			if parseErr != nil {
				return apperror.Validation("invalid issue_date: %v", parseErr)
			}
			invoice.IssueDate = issueDate
		}
		if req.DueDate != nil {
			dueDate, parseErr := parseDate(*req.DueDate)
			if parseErr != nil {
				return apperror.Validation("invalid due_date: %v", parseErr)
			}
			invoice.DueDate = dueDate
		}
		if invoice.DueDate.Before(invoice.IssueDate) {
			return apperror.Validation("due_date must not be before issue_date")
		}
		if req.Notes != nil {
			invoice.Notes = *req.Notes
		}
		if req.DiscountType != nil {
			invoice.DiscountType = *req.DiscountType
		}
		if req.DiscountValue != nil {
			discountValue, parseErr := parseOptionalDecimal(*req.DiscountValue)
			if parseErr != nil {
				return apperror.Validation("invalid discount_value: %v", parseErr)
			}
			invoice.DiscountValue = discountValue
		}
		if req.RoundOff != nil {
			roundOff, parseErr := parseOptionalDecimal(*req.RoundOff)
			if parseErr != nil {
				return apperror.Validation("invalid round_off: %v", parseErr)
			}
			invoice.RoundOff = roundOff
		}

		items := invoice.Items
		if req.Items != nil {
			rebuilt, buildErr := buildItems(req.Items)
			if buildErr != nil {
				return buildErr
			}
			items = rebuilt
		}

		totals, calcErr := computeTotals(items, invoice.DiscountType, invoice.DiscountValue, invoice.RoundOff)
		if calcErr != nil {
			return calcErr
		}
		if totals.TotalAmount.LessThan(invoice.AmountPaid.Sub(model.Tolerance)) {
			return apperror.BusinessRule("new total %s is below the %s already paid",
				totals.TotalAmount.StringFixed(2), invoice.AmountPaid.StringFixed(2))
		}

		invoice.Subtotal = totals.Subtotal
		invoice.DiscountAmount = totals.DiscountAmount
		invoice.TaxAmount = totals.TaxAmount
		invoice.TotalAmount = totals.TotalAmount

		if req.Status != nil {
			if !model.ValidStatus(*req.Status) {
				return apperror.Validation("unknown status %q", *req.Status)
			}
			if *req.Status == model.StatusCancelled {
				return apperror.Validation("use the cancel operation to cancel an invoice")
			}
			if !model.CanTransition(invoice.Status, *req.Status) {
				return apperror.BusinessRule("cannot move invoice from %s to %s", invoice.Status, *req.Status)
			}
			invoice.Status = *req.Status
		}
		// Totals may have shifted relative to what is already paid.
		invoice.Status = model.StatusForPayment(invoice.Status, invoice.AmountPaid, invoice.TotalAmount)

		if req.Items != nil {
			if replaceErr := s.invoiceRepo.ReplaceItems(txCtx, invoice.ID, items); replaceErr != nil {
				return fmt.Errorf("failed to replace items: %w", replaceErr)
			}
		}
		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to update invoice: %w", updateErr)
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	reloaded, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}

	resp := toInvoiceResponse(*reloaded, true)
	if s.events != nil {
		s.events.Publish(EventInvoiceUpdated, resp)
	}
	return resp, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperror.Validation("invalid invoice id: %v", err)
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, invoiceLookupError(err, invoiceID)
	}
	return toInvoiceResponse(*invoice, true), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) (InvoiceListResult, error) {
	params := pagination.Normalize(filter.Page, filter.Limit)

	repoFilter := repository.InvoiceListFilter{
		Status: filter.Status,
		Page:   params.Page,
		Limit:  params.Limit,
	}
	if filter.Status != "" && !model.ValidStatus(filter.Status) {
		return InvoiceListResult{}, apperror.Validation("unknown status %q", filter.Status)
	}
	if filter.CustomerID != "" {
		customerID, err := uuid.Parse(filter.CustomerID)
		if err != nil {
			return InvoiceListResult{}, apperror.Validation("invalid customer_id: %v", err)
		}
		repoFilter.CustomerID = &customerID
	}
	if filter.IssuedFrom != "" {
		from, err := parseDate(filter.IssuedFrom)
		if err != nil {
			return InvoiceListResult{}, apperror.Validation("invalid from date: %v", err)
		}
		repoFilter.IssuedFrom = &from
	}
	if filter.IssuedTo != "" {
		to, err := parseDate(filter.IssuedTo)
		if err != nil {
			return InvoiceListResult{}, apperror.Validation("invalid to date: %v", err)
		}
		repoFilter.IssuedTo = &to
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repoFilter)
	if err != nil {
		return InvoiceListResult{}, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	stats, err := s.invoiceRepo.Stats(ctx, repoFilter)
	if err != nil {
		return InvoiceListResult{}, fmt.Errorf("failed to compute invoice stats: %w", err)
	}

	result := InvoiceListResult{
		Invoices: make([]InvoiceResponse, 0, len(invoices)),
		Total:    total,
		Page:     params.Page,
		Limit:    params.Limit,
		Stats: InvoiceStatsResponse{
			TotalAmount:   stats.TotalAmount.StringFixed(2),
			PaidAmount:    stats.PaidAmount.StringFixed(2),
			PendingAmount: stats.PendingAmount.StringFixed(2),
			OverdueAmount: stats.OverdueAmount.StringFixed(2),
			Count:         stats.Count,
		},
	}
	for _, inv := range invoices {
		result.Invoices = append(result.Invoices, toInvoiceResponse(inv, false))
	}
	return result, nil
}

func (s *invoiceService) CancelInvoice(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperror.Validation("invalid invoice id: %v", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			return invoiceLookupError(findErr, invoiceID)
		}

		if !model.CanTransition(invoice.Status, model.StatusCancelled) || invoice.Status == model.StatusCancelled {
			return apperror.BusinessRule("invoice %s cannot be cancelled in status %s", invoice.InvoiceNo, invoice.Status)
		}

		invoice.Status = model.StatusCancelled
		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to cancel invoice: %w", updateErr)
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	reloaded, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}

	resp := toInvoiceResponse(*reloaded, true)
	if s.events != nil {
		s.events.Publish(EventInvoiceCancelled, resp)
	}
	return resp, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid invoice id: %v", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			return invoiceLookupError(findErr, invoiceID)
		}

		if invoice.Status == model.StatusPaid || invoice.Status == model.StatusCancelled {
			return apperror.BusinessRule("invoice %s cannot be deleted in status %s", invoice.InvoiceNo, invoice.Status)
		}
		paymentCount, countErr := s.paymentRepo.CountByInvoice(txCtx, invoiceID)
		if countErr != nil {
			return fmt.Errorf("failed to count payments: %w", countErr)
		}
		if paymentCount > 0 || invoice.AmountPaid.GreaterThan(model.Tolerance) {
			return apperror.BusinessRule("invoice %s has recorded payments and cannot be deleted", invoice.InvoiceNo)
		}

		if delErr := s.invoiceRepo.Delete(txCtx, invoiceID); delErr != nil {
			return fmt.Errorf("failed to delete invoice: %w", delErr)
		}
		return nil
	})
}

// --- Helpers ---

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func invoiceLookupError(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("invoice %s not found", id)
	}
	return fmt.Errorf("failed to load invoice: %w", err)
}

// --- Mapping ---

func toInvoiceResponse(inv model.Invoice, includeChildren bool) InvoiceResponse {
	resp := InvoiceResponse{
		ID:             inv.ID.String(),
		InvoiceNo:      inv.InvoiceNo,
		CustomerID:     inv.CustomerID.String(),
		IssueDate:      inv.IssueDate.Format(dateLayout),
		DueDate:        inv.DueDate.Format(dateLayout),
		Subtotal:       inv.Subtotal.StringFixed(2),
		DiscountType:   inv.DiscountType,
		DiscountValue:  inv.DiscountValue.StringFixed(2),
		DiscountAmount: inv.DiscountAmount.StringFixed(2),
		TaxAmount:      inv.TaxAmount.StringFixed(2),
		RoundOff:       inv.RoundOff.StringFixed(2),
		TotalAmount:    inv.TotalAmount.StringFixed(2),
		AmountPaid:     inv.AmountPaid.StringFixed(2),
		Balance:        inv.RemainingBalance().StringFixed(2),
		Status:         inv.Status,
		Notes:          inv.Notes,
		CreatedAt:      inv.CreatedAt.Format(time.RFC3339),
	}

	if inv.Customer != nil {
		resp.CustomerName = inv.Customer.Name
		resp.CompanyName = inv.Customer.CompanyName
	}

	if !includeChildren {
		return resp
	}

	for _, item := range inv.Items {
		resp.Items = append(resp.Items, InvoiceItemResponse{
			ID:          item.ID.String(),
			Position:    item.Position,
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.StringFixed(2),
			DiscountPct: item.DiscountPct.String(),
			TaxRate:     item.TaxRate.String(),
			HSNCode:     item.HSNCode,
			Amount:      item.Amount.StringFixed(2),
		})
	}
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(p))
	}
	for _, g := range resolveTaxGroups(inv.Items) {
		resp.TaxGroups = append(resp.TaxGroups, TaxGroupResponse{
			HSNCode:      g.HSNCode,
			TaxRate:      g.TaxRate.String(),
			TaxableValue: g.TaxableValue.StringFixed(2),
			CGSTAmount:   g.CGSTAmount.StringFixed(2),
			SGSTAmount:   g.SGSTAmount.StringFixed(2),
			TotalTax:     g.TotalTax.StringFixed(2),
		})
	}
	return resp
}

func toPaymentResponse(p model.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:        p.ID.String(),
		InvoiceID: p.InvoiceID.String(),
		Amount:    p.Amount.StringFixed(2),
		Method:    p.Method,
		Reference: p.Reference,
		Notes:     p.Notes,
		PaidAt:    p.PaidAt.Format(time.RFC3339),
	}
	if p.CreatedBy != nil {
		s := p.CreatedBy.String()
		resp.CreatedBy = &s
	}
	return resp
}
