package sales

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devibrahimzy/OpticienPro-app/internal/catalog"
	"github.com/devibrahimzy/OpticienPro-app/internal/insurance"
	"github.com/devibrahimzy/OpticienPro-app/internal/invoicing"
	"github.com/devibrahimzy/OpticienPro-app/internal/inventory"
	"github.com/devibrahimzy/OpticienPro-app/internal/payments"
	"github.com/devibrahimzy/OpticienPro-app/internal/pricing"
)

// memoryState is everything a unit of work can touch. WithTx works on a
// clone and only keeps it when the callback succeeds.
type memoryState struct {
	lots         map[int64]inventory.Lot
	reservations []inventory.Reservation
	sales        map[int64]Sale
	lines        map[int64][]Line
	payments     []payments.Payment
	invoices     map[int64]invoicing.Invoice
	plans        map[int64]insurance.Plan
	counter      int64
	nextID       int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		lots:     make(map[int64]inventory.Lot),
		sales:    make(map[int64]Sale),
		lines:    make(map[int64][]Line),
		invoices: make(map[int64]invoicing.Invoice),
		plans:    make(map[int64]insurance.Plan),
	}
}

func (s *memoryState) clone() *memoryState {
	out := newMemoryState()
	for k, v := range s.lots {
		out.lots[k] = v
	}
	out.reservations = append([]inventory.Reservation(nil), s.reservations...)
	for k, v := range s.sales {
		out.sales[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = append([]Line(nil), v...)
	}
	out.payments = append([]payments.Payment(nil), s.payments...)
	for k, v := range s.invoices {
		out.invoices[k] = v
	}
	for k, v := range s.plans {
		out.plans[k] = v
	}
	out.counter = s.counter
	out.nextID = s.nextID
	return out
}

func (s *memoryState) id() int64 {
	s.nextID++
	return s.nextID
}

type memoryRepo struct {
	state *memoryState
	// fail makes the named store method return the error.
	fail map[string]error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: newMemoryState(), fail: make(map[string]error)}
}

var lotDay = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

func (m *memoryRepo) addLot(ref catalog.ProductRef, qty int64, dayOffset int) int64 {
	at := lotDay.AddDate(0, 0, dayOffset)
	id := m.state.id()
	m.state.lots[id] = inventory.Lot{ID: id, Product: ref, Status: inventory.LotDelivered, Quantity: qty, DeliveredAt: &at, CreatedAt: at}
	return id
}

func (m *memoryRepo) addPlan(mode, value, ceiling string, active bool) int64 {
	id := m.state.id()
	m.state.plans[id] = insurance.Plan{
		ID:      id,
		Name:    fmt.Sprintf("plan-%d", id),
		Mode:    pricing.Mode(mode),
		Value:   decimal.RequireFromString(value),
		Ceiling: decimal.RequireFromString(ceiling),
		Active:  active,
	}
	return id
}

func (m *memoryRepo) stock(ref catalog.ProductRef) int64 {
	var total int64
	for _, lot := range m.state.lots {
		if lot.Product == ref && lot.Status == inventory.LotDelivered {
			total += lot.Quantity
		}
	}
	return total
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := m.state.clone()
	if err := fn(ctx, &memoryTx{state: work, fail: m.fail}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memoryRepo) GetSale(_ context.Context, id int64) (Sale, error) {
	sale, ok := m.state.sales[id]
	if !ok {
		return Sale{}, fmt.Errorf("%w: id %d", ErrSaleNotFound, id)
	}
	sale.Lines = append([]Line(nil), m.state.lines[id]...)
	return sale, nil
}

func (m *memoryRepo) ListSales(_ context.Context, filter ListFilter) ([]Sale, error) {
	out := make([]Sale, 0)
	for _, sale := range m.state.sales {
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		if filter.ClientID > 0 && sale.ClientID != filter.ClientID {
			continue
		}
		if filter.SellerID > 0 && sale.SellerID != filter.SellerID {
			continue
		}
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryRepo) ListPayments(_ context.Context, saleID int64) ([]payments.Payment, error) {
	out := make([]payments.Payment, 0)
	for _, p := range m.state.payments {
		if p.SaleID == saleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) InvoiceBySale(_ context.Context, saleID int64) (invoicing.Invoice, error) {
	for _, inv := range m.state.invoices {
		if inv.SaleID == saleID {
			return inv, nil
		}
	}
	return invoicing.Invoice{}, fmt.Errorf("%w: sale %d", invoicing.ErrInvoiceNotFound, saleID)
}

type memoryTx struct {
	state *memoryState
	fail  map[string]error
}

func (t *memoryTx) DeliveredLots(_ context.Context, ref catalog.ProductRef) ([]inventory.Lot, error) {
	if err := t.fail["DeliveredLots"]; err != nil {
		return nil, err
	}
	var out []inventory.Lot
	for _, lot := range t.state.lots {
		if lot.Product == ref && lot.Status == inventory.LotDelivered {
			out = append(out, lot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (t *memoryTx) AdjustLotQuantity(_ context.Context, lotID int64, delta int64) error {
	if err := t.fail["AdjustLotQuantity"]; err != nil {
		return err
	}
	lot, ok := t.state.lots[lotID]
	if !ok || lot.Quantity+delta < 0 {
		return fmt.Errorf("%w: lot %d delta %d", inventory.ErrNegativeStock, lotID, delta)
	}
	lot.Quantity += delta
	t.state.lots[lotID] = lot
	return nil
}

func (t *memoryTx) InsertReservations(_ context.Context, reservations []inventory.Reservation) error {
	t.state.reservations = append(t.state.reservations, reservations...)
	return nil
}

func (t *memoryTx) SaleReservations(_ context.Context, saleID int64) ([]inventory.Reservation, error) {
	var out []inventory.Reservation
	for _, r := range t.state.reservations {
		if r.SaleID == saleID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memoryTx) DeleteSaleReservations(_ context.Context, saleID int64) error {
	kept := t.state.reservations[:0]
	for _, r := range t.state.reservations {
		if r.SaleID != saleID {
			kept = append(kept, r)
		}
	}
	t.state.reservations = kept
	return nil
}

func (t *memoryTx) LatestDeliveredLot(ctx context.Context, ref catalog.ProductRef) (inventory.Lot, error) {
	lots, _ := t.DeliveredLots(ctx, ref)
	if len(lots) == 0 {
		return inventory.Lot{}, inventory.ErrNoRestoreTarget
	}
	latest := lots[0]
	for _, lot := range lots[1:] {
		if lot.DeliveredAt.After(*latest.DeliveredAt) {
			latest = lot
		}
	}
	return latest, nil
}

func (t *memoryTx) NextInvoiceSequence(context.Context) (int64, error) {
	t.state.counter++
	return t.state.counter, nil
}

func (t *memoryTx) InsertInvoice(_ context.Context, inv invoicing.Invoice) (int64, error) {
	if err := t.fail["InsertInvoice"]; err != nil {
		return 0, err
	}
	inv.ID = t.state.id()
	t.state.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (t *memoryTx) InvoiceBySaleForUpdate(_ context.Context, saleID int64) (invoicing.Invoice, error) {
	for _, inv := range t.state.invoices {
		if inv.SaleID == saleID {
			return inv, nil
		}
	}
	return invoicing.Invoice{}, fmt.Errorf("%w: sale %d", invoicing.ErrInvoiceNotFound, saleID)
}

func (t *memoryTx) UpdateInvoiceState(_ context.Context, id int64, status invoicing.Status, total decimal.Decimal, at time.Time) error {
	inv := t.state.invoices[id]
	inv.Status, inv.TotalInclTax, inv.UpdatedAt = status, total, at
	t.state.invoices[id] = inv
	return nil
}

func (t *memoryTx) InsertPayment(_ context.Context, p payments.Payment) (int64, error) {
	p.ID = t.state.id()
	t.state.payments = append(t.state.payments, p)
	return p.ID, nil
}

func (t *memoryTx) SumPayments(_ context.Context, saleID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range t.state.payments {
		if p.SaleID == saleID {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (t *memoryTx) InsertSale(_ context.Context, sale Sale) (int64, error) {
	sale.ID = t.state.id()
	sale.Lines = nil
	t.state.sales[sale.ID] = sale
	return sale.ID, nil
}

func (t *memoryTx) SaleForUpdate(_ context.Context, id int64) (Sale, error) {
	sale, ok := t.state.sales[id]
	if !ok {
		return Sale{}, fmt.Errorf("%w: id %d", ErrSaleNotFound, id)
	}
	return sale, nil
}

func (t *memoryTx) UpdateSale(_ context.Context, sale Sale) error {
	if err := t.fail["UpdateSale"]; err != nil {
		return err
	}
	if _, ok := t.state.sales[sale.ID]; !ok {
		return fmt.Errorf("%w: id %d", ErrSaleNotFound, sale.ID)
	}
	sale.Lines = nil
	t.state.sales[sale.ID] = sale
	return nil
}

func (t *memoryTx) InsertSaleLines(_ context.Context, lines []Line) error {
	for _, l := range lines {
		l.ID = t.state.id()
		t.state.lines[l.SaleID] = append(t.state.lines[l.SaleID], l)
	}
	return nil
}

func (t *memoryTx) DeleteSaleLines(_ context.Context, saleID int64) error {
	delete(t.state.lines, saleID)
	return nil
}

func (t *memoryTx) SaleLines(_ context.Context, saleID int64) ([]Line, error) {
	return append([]Line(nil), t.state.lines[saleID]...), nil
}

func (t *memoryTx) InsurancePlan(_ context.Context, id int64) (insurance.Plan, error) {
	plan, ok := t.state.plans[id]
	if !ok {
		return insurance.Plan{}, fmt.Errorf("%w: id %d", insurance.ErrPlanNotFound, id)
	}
	return plan, nil
}
