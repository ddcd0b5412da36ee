package invoicing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// Status mirrors the balance of the invoiced sale.
type Status string

const (
	StatusPending       Status = "pending"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusCancelled     Status = "cancelled"
)

// IsValid reports whether the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPartiallyPaid, StatusPaid, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether an invoice may move from s to next.
// Cancelled is terminal; every other status follows the sale balance.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.IsValid() {
		return false
	}
	return s != StatusCancelled || next == StatusCancelled
}

// Invoice is issued once per sale.
type Invoice struct {
	ID           int64           `json:"id"`
	SaleID       int64           `json:"sale_id"`
	SellerID     int64           `json:"seller_id"`
	Number       string          `json:"number"`
	TotalInclTax decimal.Decimal `json:"total_incl_tax"`
	Status       Status          `json:"status"`
	IssuedAt     time.Time       `json:"issued_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Snapshot is the sale state an invoice is derived from.
type Snapshot struct {
	SaleID       int64
	SellerID     int64
	TotalInclTax decimal.Decimal
	ClientDue    decimal.Decimal
	AmountPaid   decimal.Decimal
	Cancelled    bool
}

// DeriveStatus computes the invoice status for a sale snapshot.
func DeriveStatus(s Snapshot) Status {
	switch {
	case s.Cancelled:
		return StatusCancelled
	case !s.ClientDue.Sub(s.AmountPaid).IsPositive():
		return StatusPaid
	case s.AmountPaid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusPending
	}
}

// FormatNumber renders FACT-<year>-<6-digit sequence>.
func FormatNumber(year int, seq int64) string {
	return fmt.Sprintf("FACT-%d-%06d", year, seq)
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	Status Status
	Year   int
	Page   shared.Page
}

var (
	// ErrInvoiceNotFound is returned when no invoice matches.
	ErrInvoiceNotFound = fmt.Errorf("invoicing: invoice %w", shared.ErrNotFound)
	// ErrInvoiceClosed is returned when a cancelled invoice would change.
	ErrInvoiceClosed = fmt.Errorf("invoicing: invoice is cancelled: %w", shared.ErrInvalidState)
)
