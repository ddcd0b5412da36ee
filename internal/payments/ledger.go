package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// PaymentTx is the transactional store of the ledger.
type PaymentTx interface {
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	SumPayments(ctx context.Context, saleID int64) (decimal.Decimal, error)
}

// Ledger appends payments and recomputes the balance from the stored rows.
type Ledger struct {
	now func() time.Time
}

// NewLedger builds Ledger. A nil clock uses the wall clock in UTC.
func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{now: now}
}

// Append records a payment against a sale whose client due is clientDue.
// The returned balance sums every payment of the sale, the new one included.
func (l *Ledger) Append(ctx context.Context, tx PaymentTx, saleID int64, clientDue decimal.Decimal, in Input) (Payment, Balance, error) {
	if !shared.WithinScale(in.Amount) {
		return Payment{}, Balance{}, shared.NewValidationError("amount", "must have at most 2 decimal places")
	}
	if !in.Amount.IsPositive() {
		return Payment{}, Balance{}, ErrInvalidAmount
	}
	paid, err := tx.SumPayments(ctx, saleID)
	if err != nil {
		return Payment{}, Balance{}, err
	}
	before := ComputeBalance(clientDue, paid)
	if in.Amount.GreaterThan(before.BalanceDue) {
		return Payment{}, Balance{}, fmt.Errorf("%w: paying %s, due %s", ErrOverpayment, in.Amount.StringFixed(2), before.BalanceDue.StringFixed(2))
	}
	p := Payment{
		SaleID:    saleID,
		Amount:    in.Amount,
		Method:    in.Method,
		Reference: strings.TrimSpace(in.Reference),
		PaidAt:    l.now(),
	}
	id, err := tx.InsertPayment(ctx, p)
	if err != nil {
		return Payment{}, Balance{}, err
	}
	p.ID = id
	paid, err = tx.SumPayments(ctx, saleID)
	if err != nil {
		return Payment{}, Balance{}, err
	}
	return p, ComputeBalance(clientDue, paid), nil
}

// Balance recomputes the balance of a sale without writing.
func (l *Ledger) Balance(ctx context.Context, tx PaymentTx, saleID int64, clientDue decimal.Decimal) (Balance, error) {
	paid, err := tx.SumPayments(ctx, saleID)
	if err != nil {
		return Balance{}, err
	}
	return ComputeBalance(clientDue, paid), nil
}
