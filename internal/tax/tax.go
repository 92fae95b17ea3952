// Package tax computes Chilean IVA amounts. All amounts are CLP integers; fractional
// intermediate values are rounded half away from zero, which is half-up for the
// non-negative amounts accepted here.
package tax

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kinesio/internal/config"
)

// DefaultRate is the IVA rate in force since 2003.
var DefaultRate = decimal.RequireFromString("0.19")

// QuantityScale is the number of decimals a line quantity may carry.
const QuantityScale = 2

var (
	ErrNegativeBase         = errors.New("negative_base_price")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidUnitPrice     = errors.New("invalid_unit_price")
	ErrInvalidDiscount      = errors.New("invalid_discount")
	ErrNegativeLineSubtotal = errors.New("negative_line_subtotal")
)

type PriceBreakdown struct {
	BasePrice  int64   `json:"basePrice"`
	TaxRate    float64 `json:"taxRate"`
	TaxAmount  int64   `json:"taxAmount"`
	FinalPrice int64   `json:"finalPrice"`
}

type LineInput struct {
	Quantity  decimal.Decimal
	UnitPrice int64
	Discount  int64
}

type Totals struct {
	Lines    []int64 `json:"lines"`
	Subtotal int64   `json:"subtotal"`
	Tax      int64   `json:"tax"`
	Total    int64   `json:"total"`
}

type rateSource func() decimal.Decimal

// Calculator is safe for concurrent use. The rate is read on every call so a reloaded
// billing config takes effect for the next invoice.
type Calculator struct {
	rate rateSource
}

func NewCalculator(holder *config.BillingConfigHolder) *Calculator {
	return &Calculator{rate: func() decimal.Decimal {
		return decimal.NewFromFloat(holder.Get().IVARate)
	}}
}

func NewFixedCalculator(rate decimal.Decimal) *Calculator {
	return &Calculator{rate: func() decimal.Decimal { return rate }}
}

func (c *Calculator) Rate() decimal.Decimal {
	return c.rate()
}

// PriceFromBase derives the IVA and gross price for a net amount.
func (c *Calculator) PriceFromBase(base int64) (PriceBreakdown, error) {
	if base < 0 {
		return PriceBreakdown{}, ErrNegativeBase
	}
	rate := c.rate()
	taxAmount := roundCLP(decimal.NewFromInt(base).Mul(rate))
	return PriceBreakdown{
		BasePrice:  base,
		TaxRate:    rate.InexactFloat64(),
		TaxAmount:  taxAmount,
		FinalPrice: base + taxAmount,
	}, nil
}

// TaxOn returns the IVA owed on a net amount.
func (c *Calculator) TaxOn(net int64) int64 {
	return roundCLP(decimal.NewFromInt(net).Mul(c.rate()))
}

// LineSubtotal is round(quantity*unitPrice) - discount.
func (c *Calculator) LineSubtotal(line LineInput) (int64, error) {
	if !line.Quantity.IsPositive() || !line.Quantity.Equal(line.Quantity.Truncate(QuantityScale)) {
		return 0, ErrInvalidQuantity
	}
	if line.UnitPrice <= 0 {
		return 0, ErrInvalidUnitPrice
	}
	if line.Discount < 0 {
		return 0, ErrInvalidDiscount
	}
	gross := roundCLP(line.Quantity.Mul(decimal.NewFromInt(line.UnitPrice)))
	if line.Discount > gross {
		return 0, ErrNegativeLineSubtotal
	}
	return gross - line.Discount, nil
}

// ComputeTotals aggregates line subtotals and applies IVA once on the sum.
func (c *Calculator) ComputeTotals(lines []LineInput) (Totals, error) {
	totals := Totals{Lines: make([]int64, 0, len(lines))}
	for _, line := range lines {
		subtotal, err := c.LineSubtotal(line)
		if err != nil {
			return Totals{}, err
		}
		totals.Lines = append(totals.Lines, subtotal)
		totals.Subtotal += subtotal
	}
	totals.Tax = c.TaxOn(totals.Subtotal)
	totals.Total = totals.Subtotal + totals.Tax
	return totals, nil
}

func roundCLP(v decimal.Decimal) int64 {
	return v.Round(0).IntPart()
}
