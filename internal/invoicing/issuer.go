package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceTx is the transactional store used by the issuer.
type InvoiceTx interface {
	// NextInvoiceSequence increments and returns the running invoice count.
	NextInvoiceSequence(ctx context.Context) (int64, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InvoiceBySaleForUpdate(ctx context.Context, saleID int64) (Invoice, error)
	UpdateInvoiceState(ctx context.Context, id int64, status Status, total decimal.Decimal, at time.Time) error
}

// Issuer creates invoices and keeps their status in step with the sale.
type Issuer struct {
	now func() time.Time
}

// NewIssuer builds Issuer. A nil clock uses the wall clock in UTC.
func NewIssuer(now func() time.Time) *Issuer {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Issuer{now: now}
}

// Issue numbers and stores the invoice of a freshly created sale.
func (i *Issuer) Issue(ctx context.Context, tx InvoiceTx, snap Snapshot) (Invoice, error) {
	seq, err := tx.NextInvoiceSequence(ctx)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoicing: next sequence: %w", err)
	}
	now := i.now()
	inv := Invoice{
		SaleID:       snap.SaleID,
		SellerID:     snap.SellerID,
		Number:       FormatNumber(now.Year(), seq),
		TotalInclTax: snap.TotalInclTax,
		Status:       DeriveStatus(snap),
		IssuedAt:     now,
		UpdatedAt:    now,
	}
	id, err := tx.InsertInvoice(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	inv.ID = id
	return inv, nil
}

// Sync re-derives the invoice of a sale after an edit, payment or
// cancellation.
func (i *Issuer) Sync(ctx context.Context, tx InvoiceTx, snap Snapshot) (Invoice, error) {
	inv, err := tx.InvoiceBySaleForUpdate(ctx, snap.SaleID)
	if err != nil {
		return Invoice{}, err
	}
	next := DeriveStatus(snap)
	if !inv.Status.CanTransitionTo(next) {
		return Invoice{}, fmt.Errorf("%w: %s to %s", ErrInvoiceClosed, inv.Number, next)
	}
	if inv.Status == next && inv.TotalInclTax.Equal(snap.TotalInclTax) {
		return inv, nil
	}
	now := i.now()
	if err := tx.UpdateInvoiceState(ctx, inv.ID, next, snap.TotalInclTax, now); err != nil {
		return Invoice{}, err
	}
	inv.Status = next
	inv.TotalInclTax = snap.TotalInclTax
	inv.UpdatedAt = now
	return inv, nil
}
