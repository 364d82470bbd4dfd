package service

import (
	"context"
	"fmt"

	"factoryerp/internal/model"
	"factoryerp/internal/repository"
	"factoryerp/pkg/pagination"
)

type TaxCodeResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	DefaultRate string `json:"default_rate"`
}

// TaxCodeService serves the HSN registry used to prefill item tax rates.
// Rates stored on invoices stay authoritative; this is advisory only.
type TaxCodeService interface {
	ListTaxCodes(ctx context.Context, page, limit int) ([]TaxCodeResponse, int64, error)
}

type taxCodeService struct {
	taxCodeRepo repository.TaxCodeRepository
}

func NewTaxCodeService(taxCodeRepo repository.TaxCodeRepository) TaxCodeService {
	return &taxCodeService{taxCodeRepo: taxCodeRepo}
}

func (s *taxCodeService) ListTaxCodes(ctx context.Context, page, limit int) ([]TaxCodeResponse, int64, error) {
	params := pagination.Normalize(page, limit)

	codes, total, err := s.taxCodeRepo.List(ctx, params.Page, params.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tax codes: %w", err)
	}

	result := make([]TaxCodeResponse, 0, len(codes))
	for _, c := range codes {
		result = append(result, toTaxCodeResponse(c))
	}
	return result, total, nil
}

func toTaxCodeResponse(c model.TaxCode) TaxCodeResponse {
	return TaxCodeResponse{
		Code:        c.Code,
		Description: c.Description,
		DefaultRate: c.DefaultRate.String(),
	}
}
