package payments

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/devibrahimzy/OpticienPro-app/internal/platform/db"
)

const paymentColumns = `id, sale_id, amount, method, reference, paid_at`

// ListBySale returns the payments of a sale in the order they were made.
func ListBySale(ctx context.Context, q db.Querier, saleID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE sale_id = $1 ORDER BY paid_at, id`, saleID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	out := make([]Payment, 0)
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Amount, &p.Method, &p.Reference, &p.PaidAt); err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, p)
	}
	return out, db.Classify(rows.Err())
}

type paymentTx struct {
	tx pgx.Tx
}

// NewPaymentTx binds the ledger store to an open transaction.
func NewPaymentTx(tx pgx.Tx) PaymentTx {
	return &paymentTx{tx: tx}
}

func (s *paymentTx) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO payments (sale_id, amount, method, reference, paid_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, p.SaleID, p.Amount, p.Method, p.Reference, p.PaidAt).Scan(&id)
	if err != nil {
		return 0, db.Classify(err)
	}
	return id, nil
}

func (s *paymentTx) SumPayments(ctx context.Context, saleID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := s.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE sale_id = $1`, saleID).Scan(&total); err != nil {
		return decimal.Zero, db.Classify(err)
	}
	return total, nil
}
