// Package quote derives customer sales quotes from a cost build-up. The build-up is
// referenced, never owned: its supplier margin and freight are stripped and replaced
// by the quote's own.
package quote

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/buildup"
	"github.com/mtlprog/fuelprice/internal/domain"
)

// Term is the incoterm a quote is priced on.
type Term string

const (
	TermDDU Term = "DDU"
	TermDDP Term = "DDP"
)

// ParseTerm validates a term. Empty means DDU.
func ParseTerm(s string) (Term, error) {
	switch t := Term(s); t {
	case "":
		return TermDDU, nil
	case TermDDU, TermDDP:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown term %q", ErrInvalidQuote, s)
	}
}

// vatRatePercent is the sales VAT applied to quotes when VAT is applicable.
const vatRatePercent = 16

// VATRate returns the sales VAT rate as a fraction (0.16).
func VATRate() decimal.Decimal {
	return decimal.New(vatRatePercent, -2)
}

// Base holds the build-up prices with the build-up's own margin and freight removed.
type Base struct {
	DDU decimal.Decimal `json:"baseDDU"`
	DDP decimal.Decimal `json:"baseDDP"`
}

// DeriveBase strips the supplier margin from the selling price DDU (losses excluded)
// and the freight to mine from the DDP price. Negative results clamp to zero.
func DeriveBase(b buildup.Result) Base {
	return Base{
		DDU: domain.NonNegative(b.SellingPriceDDUUSD.Sub(b.SupplierMarginUSD)),
		DDP: domain.NonNegative(b.PriceDDPUSD.Sub(b.FreightToMineUSD)),
	}
}

// Totals are the per-unit quote prices after re-adding the quote's margin and freight.
type Totals struct {
	DDU decimal.Decimal `json:"totalDDU"`
	DDP decimal.Decimal `json:"totalDDP"`
}

// Apply re-adds the quote's own margin to the DDU base and freight to the DDP base.
func Apply(base Base, marginUSD, freightUSD decimal.Decimal) Totals {
	return Totals{
		DDU: base.DDU.Add(marginUSD),
		DDP: base.DDP.Add(freightUSD),
	}
}

// UnitPrice picks the total matching the term.
func (t Totals) UnitPrice(term Term) decimal.Decimal {
	if term == TermDDP {
		return t.DDP
	}
	return t.DDU
}

// LineTotal is unit price times quantity.
func LineTotal(unitPrice, quantity decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(quantity)
}

// VAT returns the VAT owed on a line total, or zero when VAT does not apply.
func VAT(lineTotal decimal.Decimal, applicable bool) decimal.Decimal {
	if !applicable {
		return decimal.Zero
	}
	return lineTotal.Mul(VATRate())
}

// Pricing is the full derived price of a quote.
type Pricing struct {
	Base
	Totals
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
	VATAmount  decimal.Decimal `json:"vatAmount"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Terms are the quote-specific parameters of a price derivation.
type Terms struct {
	Term             Term
	Quantity         decimal.Decimal
	MarginUSD        decimal.Decimal
	FreightToMineUSD decimal.Decimal
	VATApplicable    bool
}

// Price derives the quote price from a build-up result.
func Price(b buildup.Result, terms Terms) Pricing {
	base := DeriveBase(b)
	totals := Apply(base, terms.MarginUSD, terms.FreightToMineUSD)
	unit := totals.UnitPrice(terms.Term)
	line := LineTotal(unit, terms.Quantity)
	vat := VAT(line, terms.VATApplicable)

	return Pricing{
		Base:       base,
		Totals:     totals,
		UnitPrice:  unit,
		LineTotal:  line,
		VATAmount:  vat,
		GrandTotal: line.Add(vat),
	}
}

// Rounded returns a copy with every figure rounded for presentation.
func (p Pricing) Rounded(places int32) Pricing {
	for _, v := range []*decimal.Decimal{
		&p.Base.DDU, &p.Base.DDP, &p.Totals.DDU, &p.Totals.DDP,
		&p.UnitPrice, &p.LineTotal, &p.VATAmount, &p.GrandTotal,
	} {
		*v = domain.Present(*v, places)
	}
	return p
}
