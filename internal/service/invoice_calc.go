package service

import (
	"sort"

	"factoryerp/internal/model"
	"factoryerp/pkg/apperror"

	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	twoHundred = decimal.NewFromInt(200)
)

// TaxGroup is the computed per-(HSN, rate) breakdown line. The single tax
// rate splits into two equal halves (CGST/SGST) applied to the group's
// taxable value.
type TaxGroup struct {
	HSNCode      string          `json:"hsn_code"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	TaxableValue decimal.Decimal `json:"taxable_value"`
	CGSTAmount   decimal.Decimal `json:"cgst_amount"`
	SGSTAmount   decimal.Decimal `json:"sgst_amount"`
	TotalTax     decimal.Decimal `json:"total_tax"`
}

// Totals is the aggregate money state of an invoice.
type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// itemAmount is the one authoritative line-amount formula:
// quantity * unitPrice * (1 - discountPct/100). Everything downstream
// (subtotal, tax base, group taxable values) derives from it.
func itemAmount(quantity, unitPrice, discountPct decimal.Decimal) decimal.Decimal {
	gross := quantity.Mul(unitPrice)
	if discountPct.IsZero() {
		return gross
	}
	return gross.Sub(gross.Mul(discountPct).Div(hundred))
}

// buildItems validates raw item inputs and materializes them with computed
// amounts and positions.
func buildItems(inputs []InvoiceItemRequest) ([]model.InvoiceItem, error) {
	if len(inputs) == 0 {
		return nil, apperror.Validation("invoice requires at least one item")
	}

	items := make([]model.InvoiceItem, 0, len(inputs))
	for i, in := range inputs {
		if in.Description == "" {
			return nil, apperror.Validation("item %d: description is required", i+1)
		}
		quantity, err := decimal.NewFromString(in.Quantity)
		if err != nil || quantity.LessThanOrEqual(decimal.Zero) {
			return nil, apperror.Validation("item %d: quantity must be a positive number", i+1)
		}
		unitPrice, err := decimal.NewFromString(in.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			return nil, apperror.Validation("item %d: unit_price must be a non-negative number", i+1)
		}
		discountPct, err := parseOptionalDecimal(in.DiscountPct)
		if err != nil || discountPct.IsNegative() || discountPct.GreaterThan(hundred) {
			return nil, apperror.Validation("item %d: discount_pct must be between 0 and 100", i+1)
		}
		taxRate, err := parseOptionalDecimal(in.TaxRate)
		if err != nil || taxRate.IsNegative() {
			return nil, apperror.Validation("item %d: tax_rate must be a non-negative number", i+1)
		}

		items = append(items, model.InvoiceItem{
			Position:    i + 1,
			Description: in.Description,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			DiscountPct: discountPct,
			TaxRate:     taxRate,
			HSNCode:     in.HSNCode,
			Amount:      itemAmount(quantity, unitPrice, discountPct),
		})
	}
	return items, nil
}

// computeTotals aggregates the resolved items with the invoice-level discount
// and the caller's manual round-off. Tax is computed per item on the
// pre-invoice-discount amount; the discount comes off after tax.
func computeTotals(items []model.InvoiceItem, discountType string, discountValue, roundOff decimal.Decimal) (Totals, error) {
	subtotal := decimal.Zero
	taxAmount := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount)
		taxAmount = taxAmount.Add(item.Amount.Mul(item.TaxRate).Div(hundred))
	}

	if discountValue.IsNegative() {
		return Totals{}, apperror.Validation("discount_value must not be negative")
	}

	var discountAmount decimal.Decimal
	switch discountType {
	case model.DiscountPercentage:
		if discountValue.GreaterThan(hundred) {
			return Totals{}, apperror.Validation("discount percentage must not exceed 100")
		}
		discountAmount = subtotal.Mul(discountValue).Div(hundred)
	case model.DiscountFixed:
		discountAmount = discountValue
	default:
		return Totals{}, apperror.Validation("unknown discount_type %q", discountType)
	}

	totalAmount := subtotal.Add(taxAmount).Sub(discountAmount).Add(roundOff)
	if totalAmount.IsNegative() {
		return Totals{}, apperror.BusinessRule("discount and round-off produce a negative total (%s)", totalAmount.StringFixed(2))
	}

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      taxAmount,
		DiscountAmount: discountAmount,
		TotalAmount:    totalAmount,
	}, nil
}

// resolveTaxGroups folds the items into (HSN code, rate) groups and splits
// each group's rate into equal CGST and SGST halves. Group taxable values sum
// to the invoice subtotal; no intermediate rounding happens here, so the
// grouped tax reconciles with the per-item total within presentation
// tolerance.
func resolveTaxGroups(items []model.InvoiceItem) []TaxGroup {
	type key struct {
		code string
		rate string
	}

	grouped := make(map[key]*TaxGroup)
	order := make([]key, 0)
	for _, item := range items {
		k := key{code: item.HSNCode, rate: item.TaxRate.String()}
		group, ok := grouped[k]
		if !ok {
			group = &TaxGroup{HSNCode: item.HSNCode, TaxRate: item.TaxRate}
			grouped[k] = group
			order = append(order, k)
		}
		group.TaxableValue = group.TaxableValue.Add(item.Amount)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].code != order[j].code {
			return order[i].code < order[j].code
		}
		return grouped[order[i]].TaxRate.LessThan(grouped[order[j]].TaxRate)
	})

	groups := make([]TaxGroup, 0, len(order))
	for _, k := range order {
		g := grouped[k]
		// halfRate applied twice: taxable * rate/200 each side
		g.CGSTAmount = g.TaxableValue.Mul(g.TaxRate).Div(twoHundred)
		g.SGSTAmount = g.TaxableValue.Mul(g.TaxRate).Div(twoHundred)
		g.TotalTax = g.CGSTAmount.Add(g.SGSTAmount)
		groups = append(groups, *g)
	}
	return groups
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
