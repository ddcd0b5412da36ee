package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/devibrahimzy/OpticienPro-app/internal/catalog"
	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// LotStatus tracks a stock lot from request to arrival.
type LotStatus string

const (
	// LotRequested is a lot asked from a supplier but not yet ordered.
	LotRequested LotStatus = "requested"
	// LotOrdered is a lot ordered and awaiting delivery.
	LotOrdered LotStatus = "ordered"
	// LotDelivered is a lot on the shelf. Only delivered lots are reservable.
	LotDelivered LotStatus = "delivered"
)

// IsValid reports whether the status is known.
func (s LotStatus) IsValid() bool {
	switch s {
	case LotRequested, LotOrdered, LotDelivered:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a lot may move from s to next.
func (s LotStatus) CanTransitionTo(next LotStatus) bool {
	switch s {
	case LotRequested:
		return next == LotOrdered || next == LotDelivered
	case LotOrdered:
		return next == LotDelivered
	default:
		return false
	}
}

// Lot is one batch of a product.
type Lot struct {
	ID          int64              `json:"id"`
	Product     catalog.ProductRef `json:"product"`
	SupplierID  *int64             `json:"supplier_id,omitempty"`
	Status      LotStatus          `json:"status"`
	Quantity    int64              `json:"quantity"`
	DeliveredAt *time.Time         `json:"delivered_at,omitempty"`
	Note        string             `json:"note"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Reservable reports whether stock can be taken from the lot.
func (l Lot) Reservable() bool {
	return l.Status == LotDelivered && l.Quantity > 0
}

// Demand is the quantity of one product a sale needs.
type Demand struct {
	Product  catalog.ProductRef `json:"product" validate:"required"`
	Quantity int64              `json:"quantity" validate:"gte=1,lte=100000"`
}

// Aggregate merges demands for the same product and returns them in
// reference order, so lots are always locked in the same sequence.
func Aggregate(demands []Demand) []Demand {
	totals := make(map[catalog.ProductRef]int64, len(demands))
	for _, d := range demands {
		totals[d.Product] += d.Quantity
	}
	out := make([]Demand, 0, len(totals))
	for ref, qty := range totals {
		out = append(out, Demand{Product: ref, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product.Less(out[j].Product) })
	return out
}

// Reservation records how much a sale took from one lot.
type Reservation struct {
	SaleID   int64              `json:"sale_id"`
	LotID    int64              `json:"lot_id"`
	Product  catalog.ProductRef `json:"product"`
	Quantity int64              `json:"quantity"`
}

// Shortage describes one product whose demand exceeds delivered stock.
type Shortage struct {
	Product   catalog.ProductRef `json:"product"`
	Requested int64              `json:"requested"`
	Available int64              `json:"available"`
}

// Shortfall is the missing quantity.
func (s Shortage) Shortfall() int64 {
	return s.Requested - s.Available
}

// ShortageError lists every product that could not be served.
type ShortageError struct {
	Shortages []Shortage
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s requested %d, available %d (short %d)", s.Product, s.Requested, s.Available, s.Shortfall()))
	}
	return shared.ErrInsufficientStock.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ShortageError) Unwrap() error { return shared.ErrInsufficientStock }

// ProblemDetails exposes the shortages to HTTP problem responses.
func (e *ShortageError) ProblemDetails() any {
	type detail struct {
		Shortage
		Shortfall int64 `json:"shortfall"`
	}
	out := make([]detail, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		out = append(out, detail{Shortage: s, Shortfall: s.Shortfall()})
	}
	return out
}

// LotInput registers a new lot.
type LotInput struct {
	Product    catalog.ProductRef `json:"product" validate:"required"`
	Quantity   int64              `json:"quantity" validate:"gte=0,lte=100000"`
	SupplierID *int64             `json:"supplier_id,omitempty" validate:"omitempty,gt=0"`
	Status     LotStatus          `json:"status" validate:"omitempty,oneof=requested ordered delivered"`
	Note       string             `json:"note" validate:"max=500"`
}

// LotFilter narrows lot listings.
type LotFilter struct {
	Product *catalog.ProductRef
	Status  LotStatus
	Page    shared.Page
}

var (
	// ErrLotNotFound is returned when no lot has the requested id.
	ErrLotNotFound = fmt.Errorf("inventory: lot %w", shared.ErrNotFound)
	// ErrInvalidLotTransition is returned for a forbidden status change.
	ErrInvalidLotTransition = fmt.Errorf("inventory: lot status change %w", shared.ErrInvalidState)
	// ErrNegativeStock guards the lot quantity invariant.
	ErrNegativeStock = fmt.Errorf("inventory: lot quantity would go negative: %w", shared.ErrInvalidState)
	// ErrNoRestoreTarget is returned when stock cannot be put back because the
	// product has no delivered lot.
	ErrNoRestoreTarget = fmt.Errorf("inventory: no delivered lot to restore into: %w", shared.ErrInvalidState)
)
