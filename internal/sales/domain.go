// Package sales holds the sale aggregate and the orchestrator that prices,
// reserves, invoices and collects a sale inside one unit of work.
package sales

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devibrahimzy/OpticienPro-app/internal/catalog"
	"github.com/devibrahimzy/OpticienPro-app/internal/invoicing"
	"github.com/devibrahimzy/OpticienPro-app/internal/inventory"
	"github.com/devibrahimzy/OpticienPro-app/internal/payments"
	"github.com/devibrahimzy/OpticienPro-app/internal/pricing"
	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// Status is the lifecycle position of a sale.
type Status string

const (
	StatusOpen      Status = "open"
	StatusFinalized Status = "finalized"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusFinalized, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanEdit reports whether lines and plan may still change.
func (s Status) CanEdit() bool { return s == StatusOpen }

// CanCancel reports whether the sale may be cancelled.
func (s Status) CanCancel() bool { return s == StatusOpen || s == StatusFinalized }

// CanPay reports whether payments may be recorded.
func (s Status) CanPay() bool { return s != StatusCancelled }

// Sale is the aggregate persisted in sales.
type Sale struct {
	ID               int64           `json:"id"`
	ClientID         int64           `json:"client_id"`
	SellerID         int64           `json:"seller_id"`
	InsurancePlanID  *int64          `json:"insurance_plan_id,omitempty"`
	Status           Status          `json:"status"`
	TotalExclTax     decimal.Decimal `json:"total_excl_tax"`
	TotalInclTax     decimal.Decimal `json:"total_incl_tax"`
	InsuranceCovered decimal.Decimal `json:"insurance_covered"`
	ClientDue        decimal.Decimal `json:"client_due"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	BalanceDue       decimal.Decimal `json:"balance_due"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	Lines            []Line          `json:"lines,omitempty"`
}

// applyBreakdown stores freshly computed totals on the sale.
func (s *Sale) applyBreakdown(b pricing.Breakdown) {
	s.TotalExclTax = b.TotalExclTax
	s.TotalInclTax = b.TotalInclTax
	s.InsuranceCovered = b.InsuranceCovered
	s.ClientDue = b.ClientDue
	s.BalanceDue = b.ClientDue.Sub(s.AmountPaid)
}

// applyBalance stores the payment balance and finalizes an open sale once
// nothing is left to pay.
func (s *Sale) applyBalance(b payments.Balance) {
	s.AmountPaid = b.AmountPaid
	s.BalanceDue = b.BalanceDue
	if s.Status == StatusOpen && b.Settled() {
		s.Status = StatusFinalized
	}
}

func (s Sale) snapshot() invoicing.Snapshot {
	return invoicing.Snapshot{
		SaleID:       s.ID,
		SellerID:     s.SellerID,
		TotalInclTax: s.TotalInclTax,
		ClientDue:    s.ClientDue,
		AmountPaid:   s.AmountPaid,
		Cancelled:    s.Status == StatusCancelled,
	}
}

// Line is one stored sale line.
type Line struct {
	ID          int64              `json:"id"`
	SaleID      int64              `json:"sale_id"`
	Product     catalog.ProductRef `json:"product"`
	Quantity    int64              `json:"quantity"`
	UnitPrice   decimal.Decimal    `json:"unit_price"`
	DiscountPct decimal.Decimal    `json:"discount_pct"`
	VATPct      decimal.Decimal    `json:"vat_pct"`
	LineTotal   decimal.Decimal    `json:"line_total"`
}

func demandsOf(lines []Line) []inventory.Demand {
	out := make([]inventory.Demand, 0, len(lines))
	for _, l := range lines {
		out = append(out, inventory.Demand{Product: l.Product, Quantity: l.Quantity})
	}
	return out
}

// CartLine is a product entry as sent by the counter. Unit prices are
// trusted as given.
type CartLine struct {
	Product     catalog.ProductRef `json:"product" validate:"required"`
	Quantity    int64              `json:"quantity" validate:"gte=1,lte=100000"`
	UnitPrice   decimal.Decimal    `json:"unit_price" validate:"gte=0"`
	DiscountPct decimal.Decimal    `json:"discount_pct" validate:"gte=0,lte=100"`
	VATPct      decimal.Decimal    `json:"vat_pct" validate:"gte=0,lte=100"`
}

// Cart is the input of create and update.
type Cart struct {
	ClientID        int64           `json:"client_id" validate:"required,gt=0"`
	SellerID        int64           `json:"seller_id" validate:"required,gt=0"`
	InsurancePlanID *int64          `json:"insurance_plan_id,omitempty" validate:"omitempty,gt=0"`
	Lines           []CartLine      `json:"lines" validate:"required,min=1,dive"`
	Upfront         *payments.Input `json:"upfront,omitempty"`
}

func (c Cart) demands() []inventory.Demand {
	out := make([]inventory.Demand, 0, len(c.Lines))
	for _, l := range c.Lines {
		out = append(out, inventory.Demand{Product: l.Product, Quantity: l.Quantity})
	}
	return out
}

func (c Cart) pricingLines() []pricing.Line {
	out := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		out = append(out, pricing.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice, DiscountPct: l.DiscountPct, VATPct: l.VATPct})
	}
	return out
}

func (c Cart) saleLines(saleID int64) []Line {
	out := make([]Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		out = append(out, Line{
			SaleID:      saleID,
			Product:     l.Product,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
			VATPct:      l.VATPct,
			LineTotal:   pricing.LineTotal(l.Quantity, l.UnitPrice, l.DiscountPct, l.VATPct),
		})
	}
	return out
}

func (c *Cart) normalize() {
	if c.Upfront != nil {
		c.Upfront.Reference = strings.TrimSpace(c.Upfront.Reference)
	}
}

// ListFilter narrows sale listings.
type ListFilter struct {
	Status   Status
	ClientID int64
	SellerID int64
	Page     shared.Page
}

// Detail is a sale with everything hanging off it.
type Detail struct {
	Sale     Sale               `json:"sale"`
	Invoice  invoicing.Invoice  `json:"invoice"`
	Payments []payments.Payment `json:"payments"`
}

// PaymentReceipt is returned after a payment was recorded.
type PaymentReceipt struct {
	Payment       payments.Payment `json:"payment"`
	Balance       payments.Balance `json:"balance"`
	SaleStatus    Status           `json:"sale_status"`
	InvoiceStatus invoicing.Status `json:"invoice_status"`
}
