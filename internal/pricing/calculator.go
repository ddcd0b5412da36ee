// Package pricing computes sale line totals, sale totals and the share of a
// sale covered by an insurance plan. Everything here is pure.
package pricing

import "github.com/shopspring/decimal"

// Amounts are kept to the cent.
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Line is one priced cart entry.
type Line struct {
	Quantity    int64
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	VATPct      decimal.Decimal
}

// Totals holds the excl. and incl. tax sums of a sale.
type Totals struct {
	ExclTax decimal.Decimal
	InclTax decimal.Decimal
}

// Mode selects how a plan computes its coverage.
type Mode string

const (
	ModePercentage Mode = "percentage"
	ModeFixed      Mode = "fixed"
)

// IsValid reports whether the mode is known.
func (m Mode) IsValid() bool {
	return m == ModePercentage || m == ModeFixed
}

// Plan is the coverage rule of an insurance plan.
type Plan struct {
	Mode    Mode
	Value   decimal.Decimal
	Ceiling decimal.Decimal
}

// Breakdown is the full financial split of a sale.
type Breakdown struct {
	TotalExclTax     decimal.Decimal
	TotalInclTax     decimal.Decimal
	InsuranceCovered decimal.Decimal
	ClientDue        decimal.Decimal
}

// LineTotal returns qty * unitPrice * (1 - discountPct/100) * (1 + vatPct/100).
func LineTotal(qty int64, unitPrice, discountPct, vatPct decimal.Decimal) decimal.Decimal {
	return lineInclTax(qty, unitPrice, discountPct, vatPct).Round(moneyPlaces)
}

// LineExclTax is LineTotal without the VAT factor.
func LineExclTax(qty int64, unitPrice, discountPct decimal.Decimal) decimal.Decimal {
	return lineExclTax(qty, unitPrice, discountPct).Round(moneyPlaces)
}

func lineExclTax(qty int64, unitPrice, discountPct decimal.Decimal) decimal.Decimal {
	discountFactor := decimal.NewFromInt(1).Sub(discountPct.Div(hundred))
	return decimal.NewFromInt(qty).Mul(unitPrice).Mul(discountFactor)
}

func lineInclTax(qty int64, unitPrice, discountPct, vatPct decimal.Decimal) decimal.Decimal {
	vatFactor := decimal.NewFromInt(1).Add(vatPct.Div(hundred))
	return lineExclTax(qty, unitPrice, discountPct).Mul(vatFactor)
}

// SaleTotals sums the rounded contribution of each line, so the sale total
// always equals the sum of the printed line totals.
func SaleTotals(lines []Line) Totals {
	totals := Totals{ExclTax: decimal.Zero, InclTax: decimal.Zero}
	for _, l := range lines {
		totals.ExclTax = totals.ExclTax.Add(LineExclTax(l.Quantity, l.UnitPrice, l.DiscountPct))
		totals.InclTax = totals.InclTax.Add(LineTotal(l.Quantity, l.UnitPrice, l.DiscountPct, l.VATPct))
	}
	return totals
}

// InsuranceCoverage returns the amount the plan pays on a sale total. The
// result never exceeds the plan ceiling nor the total itself.
func InsuranceCoverage(totalInclTax decimal.Decimal, plan *Plan) decimal.Decimal {
	if plan == nil || !totalInclTax.IsPositive() {
		return decimal.Zero
	}
	var amount decimal.Decimal
	switch plan.Mode {
	case ModePercentage:
		amount = totalInclTax.Mul(plan.Value).Div(hundred)
	case ModeFixed:
		amount = plan.Value
	default:
		return decimal.Zero
	}
	amount = decimal.Min(amount, plan.Ceiling, totalInclTax)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(moneyPlaces)
}

// Compute prices a cart and splits its total between insurer and client.
func Compute(lines []Line, plan *Plan) Breakdown {
	totals := SaleTotals(lines)
	covered := InsuranceCoverage(totals.InclTax, plan)
	return Breakdown{
		TotalExclTax:     totals.ExclTax,
		TotalInclTax:     totals.InclTax,
		InsuranceCovered: covered,
		ClientDue:        totals.InclTax.Sub(covered),
	}
}
