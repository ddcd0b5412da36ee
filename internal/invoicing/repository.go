package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/devibrahimzy/OpticienPro-app/internal/platform/db"
)

const (
	invoiceColumns = `id, sale_id, seller_id, number, total_incl_tax, status, issued_at, updated_at`
	counterName    = "invoice"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.SaleID, &inv.SellerID, &inv.Number, &inv.TotalInclTax, &inv.Status, &inv.IssuedAt, &inv.UpdatedAt)
	return inv, err
}

func invoiceResult(what string, inv Invoice, err error) (Invoice, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, fmt.Errorf("%w: %s", ErrInvoiceNotFound, what)
		}
		return Invoice{}, db.Classify(err)
	}
	return inv, nil
}

// LoadBySale reads the invoice of a sale through q.
func LoadBySale(ctx context.Context, q db.Querier, saleID int64) (Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE sale_id = $1`, saleID))
	return invoiceResult(fmt.Sprintf("sale %d", saleID), inv, err)
}

// Repository reads invoices from PostgreSQL.
type Repository struct {
	db db.Querier
}

// NewRepository constructs Repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Get loads an invoice by id.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	return invoiceResult(fmt.Sprintf("id %d", id), inv, err)
}

// GetBySale loads the invoice issued for a sale.
func (r *Repository) GetBySale(ctx context.Context, saleID int64) (Invoice, error) {
	return LoadBySale(ctx, r.db, saleID)
}

// List returns invoices newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		conds = append(conds, fmt.Sprintf("EXTRACT(YEAR FROM issued_at) = $%d", len(args)))
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	page := filter.Page.Normalize()
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(` ORDER BY issued_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, inv)
	}
	return out, db.Classify(rows.Err())
}

type invoiceTx struct {
	tx pgx.Tx
}

// NewInvoiceTx binds the issuer store to an open transaction.
func NewInvoiceTx(tx pgx.Tx) InvoiceTx {
	return &invoiceTx{tx: tx}
}

// NextInvoiceSequence bumps the counter row. The row lock is held until the
// transaction ends, so concurrent issuers serialize here and a rollback
// gives the number back.
func (s *invoiceTx) NextInvoiceSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := s.tx.QueryRow(ctx, `INSERT INTO invoice_counters (name, value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET value = invoice_counters.value + 1
RETURNING value`, counterName).Scan(&seq)
	if err != nil {
		return 0, db.Classify(err)
	}
	return seq, nil
}

func (s *invoiceTx) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO invoices (sale_id, seller_id, number, total_incl_tax, status, issued_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		inv.SaleID, inv.SellerID, inv.Number, inv.TotalInclTax, inv.Status, inv.IssuedAt, inv.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, db.Classify(err)
	}
	return id, nil
}

func (s *invoiceTx) InvoiceBySaleForUpdate(ctx context.Context, saleID int64) (Invoice, error) {
	inv, err := scanInvoice(s.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE sale_id = $1 FOR UPDATE`, saleID))
	return invoiceResult(fmt.Sprintf("sale %d", saleID), inv, err)
}

func (s *invoiceTx) UpdateInvoiceState(ctx context.Context, id int64, status Status, total decimal.Decimal, at time.Time) error {
	_, err := s.tx.Exec(ctx, `UPDATE invoices SET status = $2, total_incl_tax = $3, updated_at = $4 WHERE id = $1`, id, status, total, at)
	return db.Classify(err)
}
