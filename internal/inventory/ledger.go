package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/devibrahimzy/OpticienPro-app/internal/catalog"
)

// LotSource lists the delivered lots of a product.
type LotSource interface {
	DeliveredLots(ctx context.Context, product catalog.ProductRef) ([]Lot, error)
}

// StockTx is the transactional store the ledger mutates. Inside a unit of
// work DeliveredLots must lock the rows it returns.
type StockTx interface {
	LotSource
	AdjustLotQuantity(ctx context.Context, lotID int64, delta int64) error
	InsertReservations(ctx context.Context, reservations []Reservation) error
	SaleReservations(ctx context.Context, saleID int64) ([]Reservation, error)
	DeleteSaleReservations(ctx context.Context, saleID int64) error
	LatestDeliveredLot(ctx context.Context, product catalog.ProductRef) (Lot, error)
}

// Ledger checks, reserves and restores stock. It holds no state; every call
// runs against the store handed in by the caller's unit of work.
type Ledger struct{}

// NewLedger builds Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// CheckAvailability fails with a ShortageError naming every product whose
// demand exceeds the delivered quantity. It never writes.
func (l *Ledger) CheckAvailability(ctx context.Context, src LotSource, demands []Demand) error {
	var shortages []Shortage
	for _, d := range Aggregate(demands) {
		lots, err := src.DeliveredLots(ctx, d.Product)
		if err != nil {
			return fmt.Errorf("inventory: load lots for %s: %w", d.Product, err)
		}
		available := sumReservable(lots)
		if available < d.Quantity {
			shortages = append(shortages, Shortage{Product: d.Product, Requested: d.Quantity, Available: available})
		}
	}
	if len(shortages) > 0 {
		return &ShortageError{Shortages: shortages}
	}
	return nil
}

// Reserve takes the demanded quantities from delivered lots, oldest delivery
// first, and records what was taken from each lot for the sale.
func (l *Ledger) Reserve(ctx context.Context, tx StockTx, saleID int64, demands []Demand) ([]Reservation, error) {
	var reservations []Reservation
	for _, d := range Aggregate(demands) {
		lots, err := tx.DeliveredLots(ctx, d.Product)
		if err != nil {
			return nil, fmt.Errorf("inventory: load lots for %s: %w", d.Product, err)
		}
		fifo(lots)
		if available := sumReservable(lots); available < d.Quantity {
			return nil, &ShortageError{Shortages: []Shortage{{Product: d.Product, Requested: d.Quantity, Available: available}}}
		}
		remaining := d.Quantity
		for _, lot := range lots {
			if remaining == 0 {
				break
			}
			if !lot.Reservable() {
				continue
			}
			take := min(lot.Quantity, remaining)
			if err := tx.AdjustLotQuantity(ctx, lot.ID, -take); err != nil {
				return nil, err
			}
			reservations = append(reservations, Reservation{SaleID: saleID, LotID: lot.ID, Product: d.Product, Quantity: take})
			remaining -= take
		}
	}
	if len(reservations) > 0 {
		if err := tx.InsertReservations(ctx, reservations); err != nil {
			return nil, err
		}
	}
	return reservations, nil
}

// Restore puts a sale's stock back. Recorded reservations are reversed lot by
// lot. Demands with no recorded reservation are returned to the most
// recently delivered lot of the product.
func (l *Ledger) Restore(ctx context.Context, tx StockTx, saleID int64, demands []Demand) error {
	reservations, err := tx.SaleReservations(ctx, saleID)
	if err != nil {
		return err
	}
	covered := make(map[catalog.ProductRef]int64, len(reservations))
	for _, r := range reservations {
		if err := tx.AdjustLotQuantity(ctx, r.LotID, r.Quantity); err != nil {
			return err
		}
		covered[r.Product] += r.Quantity
	}
	if len(reservations) > 0 {
		if err := tx.DeleteSaleReservations(ctx, saleID); err != nil {
			return err
		}
	}
	for _, d := range Aggregate(demands) {
		rest := d.Quantity - covered[d.Product]
		if rest <= 0 {
			continue
		}
		lot, err := tx.LatestDeliveredLot(ctx, d.Product)
		if err != nil {
			return fmt.Errorf("%w: %s", err, d.Product)
		}
		if err := tx.AdjustLotQuantity(ctx, lot.ID, rest); err != nil {
			return err
		}
	}
	return nil
}

func sumReservable(lots []Lot) int64 {
	var total int64
	for _, lot := range lots {
		if lot.Reservable() {
			total += lot.Quantity
		}
	}
	return total
}

// fifo orders lots by delivery date, then id, so consumption is deterministic.
func fifo(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i].DeliveredAt, lots[j].DeliveredAt
		switch {
		case a == nil && b == nil:
			return lots[i].ID < lots[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return lots[i].ID < lots[j].ID
		}
	})
}
