// Package payments keeps the append-only record of what a client paid on a
// sale.
package payments

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// Method is how the client paid.
type Method string

const (
	MethodCash     Method = "cash"
	MethodCard     Method = "card"
	MethodCheque   Method = "cheque"
	MethodTransfer Method = "transfer"
)

// IsValid reports whether the method is accepted.
func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodCard, MethodCheque, MethodTransfer:
		return true
	default:
		return false
	}
}

// Payment is one recorded payment. Payments are never edited or deleted.
type Payment struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    Method          `json:"method"`
	Reference string          `json:"reference,omitempty"`
	PaidAt    time.Time       `json:"paid_at"`
}

// Input is a payment as entered at the counter.
type Input struct {
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Method    Method          `json:"method" validate:"required,oneof=cash card cheque transfer"`
	Reference string          `json:"reference" validate:"max=120"`
}

// Balance is the client side of a sale after payments.
type Balance struct {
	ClientDue  decimal.Decimal `json:"client_due"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	BalanceDue decimal.Decimal `json:"balance_due"`
}

// Settled reports whether nothing is left to pay.
func (b Balance) Settled() bool {
	return !b.BalanceDue.IsPositive()
}

// ComputeBalance derives the balance from the client due and the payments
// recorded so far.
func ComputeBalance(clientDue, amountPaid decimal.Decimal) Balance {
	return Balance{
		ClientDue:  clientDue,
		AmountPaid: amountPaid,
		BalanceDue: clientDue.Sub(amountPaid),
	}
}

var (
	// ErrInvalidAmount rejects zero or negative payments.
	ErrInvalidAmount = fmt.Errorf("payments: amount must be positive: %w", shared.ErrValidation)
	// ErrOverpayment rejects payments above the balance due.
	ErrOverpayment = fmt.Errorf("payments: amount exceeds balance due: %w", shared.ErrInvalidState)
)
