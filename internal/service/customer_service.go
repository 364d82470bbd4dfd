package service

import (
	"context"
	"errors"
	"fmt"

	"factoryerp/internal/model"
	"factoryerp/internal/repository"
	"factoryerp/pkg/apperror"
	"factoryerp/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CompanyName    string `json:"company_name"`
	TaxCode        string `json:"tax_code"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	BillingAddress string `json:"billing_address"`
}

// CustomerService is the lookup interface to the externally-owned customer
// records; invoicing only needs display data and existence checks.
type CustomerService interface {
	GetCustomer(ctx context.Context, id string) (CustomerResponse, error)
	ListCustomers(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
}

func NewCustomerService(customerRepo repository.CustomerRepository) CustomerService {
	return &customerService{customerRepo: customerRepo}
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (CustomerResponse, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, apperror.Validation("invalid customer id: %v", err)
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CustomerResponse{}, apperror.NotFound("customer %s not found", customerID)
		}
		return CustomerResponse{}, fmt.Errorf("failed to load customer: %w", err)
	}
	return toCustomerResponse(*customer), nil
}

func (s *customerService) ListCustomers(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error) {
	params := pagination.Normalize(page, limit)

	customers, total, err := s.customerRepo.List(ctx, search, params.Page, params.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch customers: %w", err)
	}

	result := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		result = append(result, toCustomerResponse(c))
	}
	return result, total, nil
}

func toCustomerResponse(c model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:             c.ID.String(),
		Name:           c.Name,
		CompanyName:    c.CompanyName,
		TaxCode:        c.TaxCode,
		Phone:          c.Phone,
		Email:          c.Email,
		BillingAddress: c.BillingAddress,
	}
}
