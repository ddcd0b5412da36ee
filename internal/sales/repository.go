package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devibrahimzy/OpticienPro-app/internal/insurance"
	"github.com/devibrahimzy/OpticienPro-app/internal/invoicing"
	"github.com/devibrahimzy/OpticienPro-app/internal/inventory"
	"github.com/devibrahimzy/OpticienPro-app/internal/payments"
	"github.com/devibrahimzy/OpticienPro-app/internal/platform/db"
)

const (
	saleColumns = `id, client_id, seller_id, insurance_plan_id, status, total_excl_tax, total_incl_tax,
insurance_covered, client_due, amount_paid, balance_due, created_at, updated_at, cancelled_at`
	lineColumns = `id, sale_id, product_kind, product_id, quantity, unit_price, discount_pct, vat_pct, line_total`
)

// Repository provides PostgreSQL backed persistence for sales.
type Repository struct {
	pool   *pgxpool.Pool
	runner *db.Runner
}

// NewRepository constructs a repository. Statements inside a unit of work
// wait at most lockTimeout for a row lock.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, runner: db.NewRunner(pool, lockTimeout)}
}

type txRepo struct {
	inventory.StockTx
	invoicing.InvoiceTx
	payments.PaymentTx
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.runner.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			StockTx:   inventory.NewStockTx(tx),
			InvoiceTx: invoicing.NewInvoiceTx(tx),
			PaymentTx: payments.NewPaymentTx(tx),
			tx:        tx,
		})
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.ClientID, &s.SellerID, &s.InsurancePlanID, &s.Status, &s.TotalExclTax, &s.TotalInclTax,
		&s.InsuranceCovered, &s.ClientDue, &s.AmountPaid, &s.BalanceDue, &s.CreatedAt, &s.UpdatedAt, &s.CancelledAt)
	return s, err
}

func saleResult(id int64, s Sale, err error) (Sale, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, fmt.Errorf("%w: id %d", ErrSaleNotFound, id)
		}
		return Sale{}, db.Classify(err)
	}
	return s, nil
}

func loadLines(ctx context.Context, q db.Querier, saleID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM sale_lines WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.SaleID, &l.Product.Kind, &l.Product.ID, &l.Quantity, &l.UnitPrice, &l.DiscountPct, &l.VATPct, &l.LineTotal); err != nil {
			return nil, db.Classify(err)
		}
		lines = append(lines, l)
	}
	return lines, db.Classify(rows.Err())
}

// GetSale loads a sale with its lines.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if sale, err = saleResult(id, sale, err); err != nil {
		return Sale{}, err
	}
	if sale.Lines, err = loadLines(ctx, r.pool, id); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// ListSales returns sales newest first, without lines.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ClientID > 0 {
		args = append(args, filter.ClientID)
		conds = append(conds, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.SellerID > 0 {
		args = append(args, filter.SellerID)
		conds = append(conds, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	query := `SELECT ` + saleColumns + ` FROM sales`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	page := filter.Page.Normalize()
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	out := make([]Sale, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, s)
	}
	return out, db.Classify(rows.Err())
}

// ListPayments returns the payments of a sale.
func (r *Repository) ListPayments(ctx context.Context, saleID int64) ([]payments.Payment, error) {
	return payments.ListBySale(ctx, r.pool, saleID)
}

// InvoiceBySale returns the invoice of a sale.
func (r *Repository) InvoiceBySale(ctx context.Context, saleID int64) (invoicing.Invoice, error) {
	return invoicing.LoadBySale(ctx, r.pool, saleID)
}

func (t *txRepo) InsertSale(ctx context.Context, s Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (client_id, seller_id, insurance_plan_id, status, total_excl_tax, total_incl_tax,
insurance_covered, client_due, amount_paid, balance_due, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		s.ClientID, s.SellerID, s.InsurancePlanID, s.Status, s.TotalExclTax, s.TotalInclTax,
		s.InsuranceCovered, s.ClientDue, s.AmountPaid, s.BalanceDue, s.CreatedAt, s.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, db.Classify(err)
	}
	return id, nil
}

// SaleForUpdate locks the sale row until the unit of work ends.
func (t *txRepo) SaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	sale, err := scanSale(t.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id))
	return saleResult(id, sale, err)
}

func (t *txRepo) UpdateSale(ctx context.Context, s Sale) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sales SET client_id = $2, seller_id = $3, insurance_plan_id = $4, status = $5,
total_excl_tax = $6, total_incl_tax = $7, insurance_covered = $8, client_due = $9, amount_paid = $10,
balance_due = $11, updated_at = $12, cancelled_at = $13
WHERE id = $1`,
		s.ID, s.ClientID, s.SellerID, s.InsurancePlanID, s.Status,
		s.TotalExclTax, s.TotalInclTax, s.InsuranceCovered, s.ClientDue, s.AmountPaid,
		s.BalanceDue, s.UpdatedAt, s.CancelledAt)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrSaleNotFound, s.ID)
	}
	return nil
}

func (t *txRepo) InsertSaleLines(ctx context.Context, lines []Line) error {
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`INSERT INTO sale_lines (sale_id, product_kind, product_id, quantity, unit_price, discount_pct, vat_pct, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			l.SaleID, l.Product.Kind, l.Product.ID, l.Quantity, l.UnitPrice, l.DiscountPct, l.VATPct, l.LineTotal)
	}
	return db.Classify(t.tx.SendBatch(ctx, batch).Close())
}

func (t *txRepo) DeleteSaleLines(ctx context.Context, saleID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM sale_lines WHERE sale_id = $1`, saleID)
	return db.Classify(err)
}

func (t *txRepo) SaleLines(ctx context.Context, saleID int64) ([]Line, error) {
	return loadLines(ctx, t.tx, saleID)
}

func (t *txRepo) InsurancePlan(ctx context.Context, id int64) (insurance.Plan, error) {
	return insurance.LoadPlan(ctx, t.tx, id)
}
