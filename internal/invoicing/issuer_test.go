package invoicing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

type memoryInvoiceTx struct {
	counter  int64
	invoices map[int64]Invoice
}

func newMemoryInvoiceTx(counter int64) *memoryInvoiceTx {
	return &memoryInvoiceTx{counter: counter, invoices: make(map[int64]Invoice)}
}

func (m *memoryInvoiceTx) NextInvoiceSequence(context.Context) (int64, error) {
	m.counter++
	return m.counter, nil
}

func (m *memoryInvoiceTx) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	id := int64(len(m.invoices) + 1)
	inv.ID = id
	m.invoices[id] = inv
	return id, nil
}

func (m *memoryInvoiceTx) InvoiceBySaleForUpdate(_ context.Context, saleID int64) (Invoice, error) {
	for _, inv := range m.invoices {
		if inv.SaleID == saleID {
			return inv, nil
		}
	}
	return Invoice{}, fmt.Errorf("%w: sale %d", ErrInvoiceNotFound, saleID)
}

func (m *memoryInvoiceTx) UpdateInvoiceState(_ context.Context, id int64, status Status, total decimal.Decimal, at time.Time) error {
	inv := m.invoices[id]
	inv.Status, inv.TotalInclTax, inv.UpdatedAt = status, total, at
	m.invoices[id] = inv
	return nil
}

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

var issueDay = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func TestIssueNumbersSequentially(t *testing.T) {
	tx := newMemoryInvoiceTx(41)
	issuer := NewIssuer(func() time.Time { return issueDay })
	ctx := context.Background()

	first, err := issuer.Issue(ctx, tx, Snapshot{SaleID: 1, SellerID: 3, TotalInclTax: money(120), ClientDue: money(120)})
	require.NoError(t, err)
	require.Equal(t, "FACT-2025-000042", first.Number)
	require.Equal(t, StatusPending, first.Status)

	second, err := issuer.Issue(ctx, tx, Snapshot{SaleID: 2, SellerID: 3, TotalInclTax: money(80), ClientDue: money(80), AmountPaid: money(80)})
	require.NoError(t, err)
	require.Equal(t, "FACT-2025-000043", second.Number)
	require.Equal(t, StatusPaid, second.Status)
}

func TestSyncFollowsSaleBalance(t *testing.T) {
	tx := newMemoryInvoiceTx(0)
	issuer := NewIssuer(func() time.Time { return issueDay })
	ctx := context.Background()
	snap := Snapshot{SaleID: 5, TotalInclTax: money(120), ClientDue: money(80)}

	_, err := issuer.Issue(ctx, tx, snap)
	require.NoError(t, err)

	snap.AmountPaid = money(30)
	inv, err := issuer.Sync(ctx, tx, snap)
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyPaid, inv.Status)

	snap.AmountPaid = money(80)
	inv, err = issuer.Sync(ctx, tx, snap)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, inv.Status)

	snap.Cancelled = true
	inv, err = issuer.Sync(ctx, tx, snap)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, inv.Status)

	snap.Cancelled = false
	_, err = issuer.Sync(ctx, tx, snap)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestSyncMissingInvoice(t *testing.T) {
	_, err := NewIssuer(nil).Sync(context.Background(), newMemoryInvoiceTx(0), Snapshot{SaleID: 9})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeriveStatus(t *testing.T) {
	require.Equal(t, StatusPaid, DeriveStatus(Snapshot{ClientDue: money(0)}))
	require.Equal(t, StatusPending, DeriveStatus(Snapshot{ClientDue: money(10)}))
	require.Equal(t, StatusPartiallyPaid, DeriveStatus(Snapshot{ClientDue: money(10), AmountPaid: money(4)}))
	require.Equal(t, StatusCancelled, DeriveStatus(Snapshot{ClientDue: money(10), AmountPaid: money(10), Cancelled: true}))
}

func TestFormatNumber(t *testing.T) {
	require.Equal(t, "FACT-2024-000001", FormatNumber(2024, 1))
	require.Equal(t, "FACT-2026-1234567", FormatNumber(2026, 1234567))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1,234.50 MAD", FormatAmount(language.English, decimal.RequireFromString("1234.5")))

	view := NewView(language.English, Invoice{Number: "FACT-2025-000001", TotalInclTax: money(120)})
	require.Equal(t, "120.00 MAD", view.TotalDisplay)
}
