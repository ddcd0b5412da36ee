package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/devibrahimzy/OpticienPro-app/internal/catalog"
	"github.com/devibrahimzy/OpticienPro-app/internal/platform/db"
)

const lotColumns = `id, product_kind, product_id, supplier_id, status, quantity, delivered_at, note, created_at`

// Repository persists stock lots in PostgreSQL.
type Repository struct {
	db db.Querier
}

// NewRepository constructs Repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (Lot, error) {
	var lot Lot
	err := row.Scan(&lot.ID, &lot.Product.Kind, &lot.Product.ID, &lot.SupplierID, &lot.Status, &lot.Quantity, &lot.DeliveredAt, &lot.Note, &lot.CreatedAt)
	return lot, err
}

func collectLots(rows pgx.Rows, err error) ([]Lot, error) {
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var lots []Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, db.Classify(err)
		}
		lots = append(lots, lot)
	}
	return lots, db.Classify(rows.Err())
}

const deliveredLotsQuery = `SELECT ` + lotColumns + ` FROM stock_lots
WHERE product_kind = $1 AND product_id = $2 AND status = 'delivered'
ORDER BY delivered_at ASC, id ASC`

// DeliveredLots returns delivered lots oldest first without locking them.
func (r *Repository) DeliveredLots(ctx context.Context, product catalog.ProductRef) ([]Lot, error) {
	return collectLots(r.db.Query(ctx, deliveredLotsQuery, product.Kind, product.ID))
}

// CreateLot inserts a lot.
func (r *Repository) CreateLot(ctx context.Context, lot Lot) (Lot, error) {
	created, err := scanLot(r.db.QueryRow(ctx, `INSERT INTO stock_lots (product_kind, product_id, supplier_id, status, quantity, delivered_at, note)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+lotColumns,
		lot.Product.Kind, lot.Product.ID, lot.SupplierID, lot.Status, lot.Quantity, lot.DeliveredAt, lot.Note))
	if err != nil {
		return Lot{}, db.Classify(err)
	}
	return created, nil
}

// GetLot loads one lot.
func (r *Repository) GetLot(ctx context.Context, id int64) (Lot, error) {
	lot, err := scanLot(r.db.QueryRow(ctx, `SELECT `+lotColumns+` FROM stock_lots WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lot{}, fmt.Errorf("%w: id %d", ErrLotNotFound, id)
		}
		return Lot{}, db.Classify(err)
	}
	return lot, nil
}

// ListLots returns lots matching filter, newest first.
func (r *Repository) ListLots(ctx context.Context, filter LotFilter) ([]Lot, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Product != nil {
		args = append(args, filter.Product.Kind, filter.Product.ID)
		conds = append(conds, fmt.Sprintf("product_kind = $%d AND product_id = $%d", len(args)-1, len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + lotColumns + ` FROM stock_lots`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	page := filter.Page.Normalize()
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return collectLots(r.db.Query(ctx, query, args...))
}

// UpdateLotStatus moves a lot from one status to another. The update only
// applies while the lot still has status from.
func (r *Repository) UpdateLotStatus(ctx context.Context, id int64, from, to LotStatus, deliveredAt *time.Time) (Lot, error) {
	lot, err := scanLot(r.db.QueryRow(ctx, `UPDATE stock_lots
SET status = $3, delivered_at = COALESCE($4, delivered_at), updated_at = NOW()
WHERE id = $1 AND status = $2 RETURNING `+lotColumns, id, from, to, deliveredAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lot{}, fmt.Errorf("%w: lot %d is no longer %s", ErrInvalidLotTransition, id, from)
		}
		return Lot{}, db.Classify(err)
	}
	return lot, nil
}

// StockLevel sums the delivered quantity of a product.
func (r *Repository) StockLevel(ctx context.Context, product catalog.ProductRef) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM stock_lots
WHERE product_kind = $1 AND product_id = $2 AND status = 'delivered'`, product.Kind, product.ID).Scan(&total)
	if err != nil {
		return 0, db.Classify(err)
	}
	return total, nil
}

type stockTx struct {
	tx pgx.Tx
}

// NewStockTx binds the ledger store to an open transaction.
func NewStockTx(tx pgx.Tx) StockTx {
	return &stockTx{tx: tx}
}

// DeliveredLots locks the product's delivered lots for the rest of the
// transaction, oldest delivery first.
func (s *stockTx) DeliveredLots(ctx context.Context, product catalog.ProductRef) ([]Lot, error) {
	return collectLots(s.tx.Query(ctx, deliveredLotsQuery+` FOR UPDATE`, product.Kind, product.ID))
}

func (s *stockTx) AdjustLotQuantity(ctx context.Context, lotID int64, delta int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE stock_lots SET quantity = quantity + $2, updated_at = NOW()
WHERE id = $1 AND quantity + $2 >= 0`, lotID, delta)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: lot %d delta %d", ErrNegativeStock, lotID, delta)
	}
	return nil
}

func (s *stockTx) InsertReservations(ctx context.Context, reservations []Reservation) error {
	rows := make([][]any, 0, len(reservations))
	for _, r := range reservations {
		rows = append(rows, []any{r.SaleID, r.LotID, r.Quantity})
	}
	_, err := s.tx.CopyFrom(ctx, pgx.Identifier{"stock_reservations"}, []string{"sale_id", "lot_id", "quantity"}, pgx.CopyFromRows(rows))
	return db.Classify(err)
}

func (s *stockTx) SaleReservations(ctx context.Context, saleID int64) ([]Reservation, error) {
	rows, err := s.tx.Query(ctx, `SELECT r.sale_id, r.lot_id, l.product_kind, l.product_id, r.quantity
FROM stock_reservations r JOIN stock_lots l ON l.id = r.lot_id
WHERE r.sale_id = $1 ORDER BY r.lot_id`, saleID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []Reservation
	for rows.Next() {
		var r Reservation
		if err := rows.Scan(&r.SaleID, &r.LotID, &r.Product.Kind, &r.Product.ID, &r.Quantity); err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, r)
	}
	return out, db.Classify(rows.Err())
}

func (s *stockTx) DeleteSaleReservations(ctx context.Context, saleID int64) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM stock_reservations WHERE sale_id = $1`, saleID)
	return db.Classify(err)
}

func (s *stockTx) LatestDeliveredLot(ctx context.Context, product catalog.ProductRef) (Lot, error) {
	lot, err := scanLot(s.tx.QueryRow(ctx, `SELECT `+lotColumns+` FROM stock_lots
WHERE product_kind = $1 AND product_id = $2 AND status = 'delivered'
ORDER BY delivered_at DESC, id DESC LIMIT 1 FOR UPDATE`, product.Kind, product.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lot{}, ErrNoRestoreTarget
		}
		return Lot{}, db.Classify(err)
	}
	return lot, nil
}
