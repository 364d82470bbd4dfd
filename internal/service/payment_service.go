package service

import (
	"context"
	"fmt"
	"time"

	"factoryerp/internal/model"
	"factoryerp/internal/repository"
	"factoryerp/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type AddPaymentRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method" binding:"required"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
	PaidAt    string `json:"paid_at"` // RFC3339, defaults to now
}

type AddPaymentResult struct {
	Payment PaymentResponse `json:"payment"`
	Invoice InvoiceResponse `json:"invoice"`
}

// --- Interface ---

type PaymentService interface {
	// AddPayment records a payment against an invoice, bumps amount_paid and
	// derives the new status, all inside one row-locked transaction.
	AddPayment(ctx context.Context, invoiceID string, req AddPaymentRequest, createdBy *uuid.UUID) (AddPaymentResult, error)
	ListPayments(ctx context.Context, invoiceID string) ([]PaymentResponse, error)
}

type paymentService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	txManager   repository.TransactionManager
	events      EventPublisher
}

func NewPaymentService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) PaymentService {
	return &paymentService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		txManager:   txManager,
		events:      events,
	}
}

// --- Implementation ---

func (s *paymentService) AddPayment(ctx context.Context, invoiceID string, req AddPaymentRequest, createdBy *uuid.UUID) (AddPaymentResult, error) {
	id, err := uuid.Parse(invoiceID)
	if err != nil {
		return AddPaymentResult{}, apperror.Validation("invalid invoice id: %v", err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return AddPaymentResult{}, apperror.Validation("invalid amount: %v", err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return AddPaymentResult{}, apperror.Validation("payment amount must be positive")
	}
	if !model.ValidPaymentMethod(req.Method) {
		return AddPaymentResult{}, apperror.Validation("unknown payment method %q", req.Method)
	}

	paidAt := time.Now()
	if req.PaidAt != "" {
		paidAt, err = time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			return AddPaymentResult{}, apperror.Validation("invalid paid_at: %v", err)
		}
	}

	var payment model.Payment
	// The invoice row stays locked from the read through the amount_paid
	// write, so two concurrent payments serialize instead of both computing
	// the new balance from the same stale amount_paid.
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, id)
		if findErr != nil {
			return invoiceLookupError(findErr, id)
		}

		if invoice.Status == model.StatusCancelled {
			return apperror.BusinessRule("invoice %s is cancelled and cannot receive payments", invoice.InvoiceNo)
		}

		newPaid := invoice.AmountPaid.Add(amount)
		if newPaid.GreaterThan(invoice.TotalAmount.Add(model.Tolerance)) {
			return apperror.BusinessRule("payment of %s exceeds remaining balance of %s",
				amount.StringFixed(2), invoice.RemainingBalance().StringFixed(2))
		}

		payment = model.Payment{
			InvoiceID: invoice.ID,
			Amount:    amount,
			Method:    req.Method,
			Reference: req.Reference,
			Notes:     req.Notes,
			PaidAt:    paidAt,
			CreatedBy: createdBy,
		}
		if createErr := s.paymentRepo.Create(txCtx, &payment); createErr != nil {
			return fmt.Errorf("failed to record payment: %w", createErr)
		}

		invoice.AmountPaid = newPaid
		invoice.Status = model.StatusForPayment(invoice.Status, newPaid, invoice.TotalAmount)
		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to update invoice balance: %w", updateErr)
		}
		return nil
	})
	if err != nil {
		return AddPaymentResult{}, err
	}

	reloaded, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return AddPaymentResult{}, fmt.Errorf("failed to reload invoice: %w", err)
	}

	result := AddPaymentResult{
		Payment: toPaymentResponse(payment),
		Invoice: toInvoiceResponse(*reloaded, true),
	}
	if s.events != nil {
		s.events.Publish(EventPaymentRecorded, result)
	}
	return result, nil
}

func (s *paymentService) ListPayments(ctx context.Context, invoiceID string) ([]PaymentResponse, error) {
	id, err := uuid.Parse(invoiceID)
	if err != nil {
		return nil, apperror.Validation("invalid invoice id: %v", err)
	}

	if _, err := s.invoiceRepo.FindByID(ctx, id); err != nil {
		return nil, invoiceLookupError(err, id)
	}

	payments, err := s.paymentRepo.ListByInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}

	result := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, toPaymentResponse(p))
	}
	return result, nil
}
