package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/devibrahimzy/OpticienPro-app/internal/catalog"
	"github.com/devibrahimzy/OpticienPro-app/internal/invoicing"
	"github.com/devibrahimzy/OpticienPro-app/internal/inventory"
	"github.com/devibrahimzy/OpticienPro-app/internal/payments"
	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

var (
	frame     = catalog.Frame(1)
	lens      = catalog.Lens(7)
	scarce    = catalog.Lens(9)
	saleClock = time.Date(2025, 3, 14, 15, 4, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type recordingMetrics struct {
	outcomes []string
}

func (m *recordingMetrics) RecordSaleOperation(operation, outcome string) {
	m.outcomes = append(m.outcomes, operation+":"+outcome)
}

type SaleServiceSuite struct {
	suite.Suite
	ctx      context.Context
	repo     *memoryRepo
	audit    *recordingAudit
	metrics  *recordingMetrics
	svc      *Service
	halfPlan int64
	oldPlan  int64
	firstLot int64
}

func TestSaleServiceSuite(t *testing.T) {
	suite.Run(t, new(SaleServiceSuite))
}

func (s *SaleServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = newMemoryRepo()
	s.firstLot = s.repo.addLot(frame, 3, 0)
	s.repo.addLot(frame, 2, 5)
	s.repo.addLot(lens, 10, 1)
	s.repo.addLot(scarce, 3, 2)
	s.halfPlan = s.repo.addPlan("percentage", "50", "40", true)
	s.oldPlan = s.repo.addPlan("fixed", "100", "100", false)
	s.audit = &recordingAudit{}
	s.metrics = &recordingMetrics{}
	s.svc = NewService(s.repo, ServiceOptions{
		Audit:   s.audit,
		Metrics: s.metrics,
		Clock:   func() time.Time { return saleClock },
	})
}

func frameCart(qty int64) Cart {
	return Cart{
		ClientID: 11,
		SellerID: 3,
		Lines: []CartLine{{
			Product:   frame,
			Quantity:  qty,
			UnitPrice: dec("100"),
			VATPct:    dec("20"),
		}},
	}
}

// requireInvariants checks the money and status rules on every stored sale.
func (s *SaleServiceSuite) requireInvariants() {
	for id, sale := range s.repo.state.sales {
		s.Require().True(sale.TotalInclTax.Equal(sale.InsuranceCovered.Add(sale.ClientDue)), "sale %d totals", id)
		s.Require().True(sale.BalanceDue.Equal(sale.ClientDue.Sub(sale.AmountPaid)), "sale %d balance", id)

		paid, err := s.repo.ListPayments(s.ctx, id)
		s.Require().NoError(err)
		sum := decimal.Zero
		for _, p := range paid {
			sum = sum.Add(p.Amount)
		}
		s.Require().True(sum.Equal(sale.AmountPaid), "sale %d paid", id)

		inv, err := s.repo.InvoiceBySale(s.ctx, id)
		s.Require().NoError(err)
		s.Require().Equal(invoicing.DeriveStatus(sale.snapshot()), inv.Status, "sale %d invoice", id)
	}
}

func (s *SaleServiceSuite) TestScenarioAWithoutInsurance() {
	d, err := s.svc.CreateSale(s.ctx, frameCart(1), "")
	s.Require().NoError(err)

	s.True(d.Sale.TotalExclTax.Equal(dec("100")))
	s.True(d.Sale.TotalInclTax.Equal(dec("120")))
	s.True(d.Sale.InsuranceCovered.IsZero())
	s.True(d.Sale.ClientDue.Equal(dec("120")))
	s.True(d.Sale.BalanceDue.Equal(dec("120")))
	s.Equal(StatusOpen, d.Sale.Status)
	s.Require().Len(d.Sale.Lines, 1)
	s.True(d.Sale.Lines[0].LineTotal.Equal(dec("120")))

	s.Equal("FACT-2025-000001", d.Invoice.Number)
	s.Equal(invoicing.StatusPending, d.Invoice.Status)
	s.Empty(d.Payments)
	s.Equal(int64(4), s.repo.stock(frame))
	s.requireInvariants()
}

func (s *SaleServiceSuite) TestScenarioBCoverageIsCapped() {
	cart := frameCart(1)
	cart.InsurancePlanID = &s.halfPlan

	d, err := s.svc.CreateSale(s.ctx, cart, "")
	s.Require().NoError(err)
	s.True(d.Sale.InsuranceCovered.Equal(dec("40")))
	s.True(d.Sale.ClientDue.Equal(dec("80")))
	s.requireInvariants()
}

func (s *SaleServiceSuite) TestScenarioCShortageWritesNothing() {
	cart := Cart{ClientID: 11, SellerID: 3, Lines: []CartLine{{Product: scarce, Quantity: 5, UnitPrice: dec("40")}}}

	_, err := s.svc.CreateSale(s.ctx, cart, "")
	s.Require().ErrorIs(err, shared.ErrInsufficientStock)

	var shortage *inventory.ShortageError
	s.Require().ErrorAs(err, &shortage)
	s.Require().Len(shortage.Shortages, 1)
	s.Equal(scarce, shortage.Shortages[0].Product)
	s.Equal(int64(2), shortage.Shortages[0].Shortfall())

	s.Empty(s.repo.state.sales)
	s.Empty(s.repo.state.lines)
	s.Empty(s.repo.state.invoices)
	s.Empty(s.repo.state.reservations)
	s.Zero(s.repo.state.counter)
	s.Equal(int64(3), s.repo.stock(scarce))
	s.Equal([]string{"create:insufficient_stock"}, s.metrics.outcomes)
	s.Empty(s.audit.logs)
}

func (s *SaleServiceSuite) TestScenarioDFullPaymentFinalizes() {
	cart := frameCart(1)
	cart.InsurancePlanID = &s.halfPlan
	d, err := s.svc.CreateSale(s.ctx, cart, "")
	s.Require().NoError(err)

	receipt, err := s.svc.RecordPayment(s.ctx, d.Sale.ID, payments.Input{Amount: dec("80"), Method: payments.MethodCash}, "")
	s.Require().NoError(err)
	s.True(receipt.Balance.BalanceDue.IsZero())
	s.Equal(StatusFinalized, receipt.SaleStatus)
	s.Equal(invoicing.StatusPaid, receipt.InvoiceStatus)

	got, err := s.svc.GetSale(s.ctx, d.Sale.ID)
	s.Require().NoError(err)
	s.Equal(StatusFinalized, got.Sale.Status)
	s.Equal(invoicing.StatusPaid, got.Invoice.Status)
	s.Len(got.Payments, 1)
	s.requireInvariants()
}

func (s *SaleServiceSuite) TestScenarioECancelFinalizedRestoresStock() {
	d, err := s.svc.CreateSale(s.ctx, frameCart(5), "")
	s.Require().NoError(err)
	s.Equal(int64(0), s.repo.stock(frame))

	_, err = s.svc.RecordPayment(s.ctx, d.Sale.ID, payments.Input{Amount: dec("600"), Method: payments.MethodCard}, "")
	s.Require().NoError(err)

	sale, err := s.svc.CancelSale(s.ctx, d.Sale.ID)
	s.Require().NoError(err)
	s.Equal(StatusCancelled, sale.Status)
	s.Require().NotNil(sale.CancelledAt)
	s.Equal(int64(5), s.repo.stock(frame))
	s.Empty(s.repo.state.reservations)

	inv, err := s.svc.GetInvoice(s.ctx, d.Sale.ID)
	s.Require().NoError(err)
	s.Equal(invoicing.StatusCancelled, inv.Status)
	s.requireInvariants()
}

func (s *SaleServiceSuite) TestReservationIsFIFOAndRestoredExactly() {
	d, err := s.svc.CreateSale(s.ctx, frameCart(4), "")
	s.Require().NoError(err)

	s.Equal(int64(0), s.repo.state.lots[s.firstLot].Quantity)
	s.Require().Len(s.repo.state.reservations, 2)
	s.Equal(s.firstLot, s.repo.state.reservations[0].LotID)
	s.Equal(int64(3), s.repo.state.reservations[0].Quantity)
	s.Equal(int64(1), s.repo.state.reservations[1].Quantity)

	_, err = s.svc.CancelSale(s.ctx, d.Sale.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), s.repo.state.lots[s.firstLot].Quantity)
	s.Equal(int64(5), s.repo.stock(frame))
}

func (s *SaleServiceSuite) TestCancelTwiceIsRejected() {
	d, err := s.svc.CreateSale(s.ctx, frameCart(2), "")
	s.Require().NoError(err)
	_, err = s.svc.CancelSale(s.ctx, d.Sale.ID)
	s.Require().NoError(err)

	_, err = s.svc.CancelSale(s.ctx, d.Sale.ID)
	s.Require().ErrorIs(err, shared.ErrInvalidState)
	s.Equal(int64(5), s.repo.stock(frame))
}

func (s *SaleServiceSuite) TestCancelUnknownSale() {
	_, err := s.svc.CancelSale(s.ctx, 999)
	s.Require().ErrorIs(err, shared.ErrNotFound)
}

func (s *SaleServiceSuite) TestPartialPaymentsThenOverpayment() {
	d, err := s.svc.CreateSale(s.ctx, frameCart(1), "")
	s.Require().NoError(err)

	receipt, err := s.svc.RecordPayment(s.ctx, d.Sale.ID, payments.Input{Amount: dec("50"), Method: payments.MethodCheque, Reference: "CHQ-1"}, "")
	s.Require().NoError(err)
	s.Equal(StatusOpen, receipt.SaleStatus)
	s.Equal(invoicing.StatusPartiallyPaid, receipt.InvoiceStatus)
	s.True(receipt.Balance.BalanceDue.Equal(dec("70")))

	_, err = s.svc.RecordPayment(s.ctx, d.Sale.ID, payments.Input{Amount: dec("70.01"), Method: payments.MethodCash}, "")
	s.Require().ErrorIs(err, shared.ErrInvalidState)

	list, err := s.svc.ListPayments(s.ctx, d.Sale.ID)
	s.Require().NoError(err)
	s.Len(list, 1)
	s.requireInvariants()
}

func (s *SaleServiceSuite) TestPaymentValidation() {
	d, err := s.svc.CreateSale(s.ctx, frameCart(1), "")
	s.Require().NoError(err)

	_, err = s.svc.RecordPayment(s.ctx, d.Sale.ID, payments.Input{Amount: dec("0"), Method: payments.MethodCash}, "")
	s.Require().ErrorIs(err, shared.ErrValidation)

	_, err = s.svc.RecordPayment(s.ctx, d.Sale.ID, payments.Input{Amount: dec("10"), Method: "voucher"}, "")
	var verr *shared.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "method")

	_, err = s.svc.RecordPayment(s.ctx, d.Sale.ID, payments.Input{Amount: dec("0.004"), Method: payments.MethodCash}, "")
	s.Require().ErrorAs(err, &verr)
	s.Equal("must have at most 2 decimal places", verr.Fields["amount"])
	s.Empty(s.repo.state.payments)

	got, err := s.svc.GetSale(s.ctx, d.Sale.ID)
	s.Require().NoError(err)
	s.Equal(StatusOpen, got.Sale.Status)
	s.True(got.Sale.AmountPaid.IsZero())
}

func (s *SaleServiceSuite) TestPaymentOnCancelledSale() {
	d, err := s.svc.CreateSale(s.ctx, frameCart(1), "")
	s.Require().NoError(err)
	_, err = s.svc.CancelSale(s.ctx, d.Sale.ID)
	s.Require().NoError(err)

	_, err = s.svc.RecordPayment(s.ctx, d.Sale.ID, payments.Input{Amount: dec("10"), Method: payments.MethodCash}, "")
	s.Require().ErrorIs(err, ErrAlreadyCancelled)
	s.Empty(s.repo.state.payments)
}

func (s *SaleServiceSuite) TestUpfrontPaymentSettlesSale() {
	cart := frameCart(1)
	cart.Upfront = &payments.Input{Amount: dec("120"), Method: payments.MethodCash, Reference: " avance "}

	d, err := s.svc.CreateSale(s.ctx, cart, "")
	s.Require().NoError(err)
	s.Equal(StatusFinalized, d.Sale.Status)
	s.Equal(invoicing.StatusPaid, d.Invoice.Status)
	s.Require().Len(d.Payments, 1)
	s.Equal("avance", d.Payments[0].Reference)
	s.requireInvariants()
}

func (s *SaleServiceSuite) TestUpfrontAboveDueIsRejected() {
	cart := frameCart(1)
	cart.InsurancePlanID = &s.halfPlan
	cart.Upfront = &payments.Input{Amount: dec("81"), Method: payments.MethodCash}

	_, err := s.svc.CreateSale(s.ctx, cart, "")
	var verr *shared.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "upfront.amount")
	s.Empty(s.repo.state.sales)
	s.Equal(int64(5), s.repo.stock(frame))
}

func (s *SaleServiceSuite) TestAmountsFinerThanCentsAreRejected() {
	cart := frameCart(3)
	cart.Lines[0].UnitPrice = dec("33.333")
	cart.Lines[0].VATPct = dec("20.005")
	_, err := s.svc.CreateSale(s.ctx, cart, "")
	var verr *shared.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "lines[0].unit_price")
	s.Contains(verr.Fields, "lines[0].vat_pct")
	s.NotContains(verr.Fields, "lines[0].discount_pct")

	cart = frameCart(1)
	cart.Upfront = &payments.Input{Amount: dec("0.004"), Method: payments.MethodCash}
	_, err = s.svc.CreateSale(s.ctx, cart, "")
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "upfront.amount")

	s.Empty(s.repo.state.sales)
	s.Empty(s.repo.state.payments)
	s.Equal(int64(5), s.repo.stock(frame))
}

func (s *SaleServiceSuite) TestInsurancePlanMustBeActiveAndKnown() {
	cart := frameCart(1)
	cart.InsurancePlanID = &s.oldPlan
	_, err := s.svc.CreateSale(s.ctx, cart, "")
	s.Require().ErrorIs(err, shared.ErrValidation)

	unknown := int64(404)
	cart.InsurancePlanID = &unknown
	_, err = s.svc.CreateSale(s.ctx, cart, "")
	s.Require().ErrorIs(err, shared.ErrValidation)
	s.Empty(s.repo.state.sales)
}

func (s *SaleServiceSuite) TestCartValidation() {
	_, err := s.svc.CreateSale(s.ctx, Cart{}, "")
	var verr *shared.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("is required", verr.Fields["client_id"])
	s.Equal("is required", verr.Fields["lines"])

	cart := frameCart(0)
	cart.Lines[0].DiscountPct = dec("120")
	_, err = s.svc.CreateSale(s.ctx, cart, "")
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "lines[0].quantity")
	s.Contains(verr.Fields, "lines[0].discount_pct")

	cart = frameCart(1)
	cart.Lines[0].Quantity = 1 << 31
	_, err = s.svc.CreateSale(s.ctx, cart, "")
	s.Require().ErrorAs(err, &verr)
	s.Equal("must be at most 100000", verr.Fields["lines[0].quantity"])
	s.Empty(s.repo.state.sales)
}

func (s *SaleServiceSuite) TestUpdateReplacesLinesAndStock() {
	d, err := s.svc.CreateSale(s.ctx, frameCart(2), "")
	s.Require().NoError(err)

	cart := Cart{ClientID: 11, SellerID: 3, Lines: []CartLine{{
		Product:     lens,
		Quantity:    3,
		UnitPrice:   dec("50"),
		DiscountPct: dec("10"),
	}}}
	updated, err := s.svc.UpdateSale(s.ctx, d.Sale.ID, cart)
	s.Require().NoError(err)

	s.Equal(int64(5), s.repo.stock(frame))
	s.Equal(int64(7), s.repo.stock(lens))
	s.Require().Len(updated.Sale.Lines, 1)
	s.Equal(lens, updated.Sale.Lines[0].Product)
	s.True(updated.Sale.TotalInclTax.Equal(dec("135")))
	s.True(updated.Invoice.TotalInclTax.Equal(dec("135")))
	s.Equal(d.Invoice.Number, updated.Invoice.Number)
	s.Len(s.repo.state.lines[d.Sale.ID], 1)
	s.requireInvariants()
}

func (s *SaleServiceSuite) TestUpdateKeepsPaymentsAndCanSettle() {
	d, err := s.svc.CreateSale(s.ctx, frameCart(1), "")
	s.Require().NoError(err)
	_, err = s.svc.RecordPayment(s.ctx, d.Sale.ID, payments.Input{Amount: dec("20"), Method: payments.MethodCash}, "")
	s.Require().NoError(err)

	cart := frameCart(1)
	cart.Upfront = &payments.Input{Amount: dec("100"), Method: payments.MethodCard}
	updated, err := s.svc.UpdateSale(s.ctx, d.Sale.ID, cart)
	s.Require().NoError(err)
	s.Equal(StatusFinalized, updated.Sale.Status)
	s.Equal(invoicing.StatusPaid, updated.Invoice.Status)
	s.Len(updated.Payments, 2)
	s.requireInvariants()
}

func (s *SaleServiceSuite) TestUpdateRejections() {
	_, err := s.svc.UpdateSale(s.ctx, 999, frameCart(1))
	s.Require().ErrorIs(err, shared.ErrNotFound)

	d, err := s.svc.CreateSale(s.ctx, frameCart(1), "")
	s.Require().NoError(err)
	_, err = s.svc.RecordPayment(s.ctx, d.Sale.ID, payments.Input{Amount: dec("100"), Method: payments.MethodCash}, "")
	s.Require().NoError(err)

	cheap := Cart{ClientID: 11, SellerID: 3, Lines: []CartLine{{Product: lens, Quantity: 1, UnitPrice: dec("50")}}}
	_, err = s.svc.UpdateSale(s.ctx, d.Sale.ID, cheap)
	s.Require().ErrorIs(err, ErrDueBelowPaid)
	s.Equal(int64(4), s.repo.stock(frame))
	s.Equal(int64(10), s.repo.stock(lens))

	_, err = s.svc.RecordPayment(s.ctx, d.Sale.ID, payments.Input{Amount: dec("20"), Method: payments.MethodCash}, "")
	s.Require().NoError(err)
	_, err = s.svc.UpdateSale(s.ctx, d.Sale.ID, frameCart(1))
	s.Require().ErrorIs(err, ErrNotEditable)
}

func (s *SaleServiceSuite) TestUpdateShortageRollsBackRestoration() {
	d, err := s.svc.CreateSale(s.ctx, frameCart(2), "")
	s.Require().NoError(err)

	_, err = s.svc.UpdateSale(s.ctx, d.Sale.ID, Cart{ClientID: 11, SellerID: 3, Lines: []CartLine{{Product: lens, Quantity: 20, UnitPrice: dec("50")}}})
	s.Require().ErrorIs(err, shared.ErrInsufficientStock)

	s.Equal(int64(3), s.repo.stock(frame))
	s.Equal(int64(10), s.repo.stock(lens))
	s.Require().Len(s.repo.state.lines[d.Sale.ID], 1)
	s.Equal(frame, s.repo.state.lines[d.Sale.ID][0].Product)
}

func (s *SaleServiceSuite) TestFailureAfterWritesRollsBackEverything() {
	s.repo.fail["InsertInvoice"] = fmt.Errorf("%w: disk full", shared.ErrStorage)

	_, err := s.svc.CreateSale(s.ctx, frameCart(3), "")
	s.Require().ErrorIs(err, shared.ErrStorage)
	s.Empty(s.repo.state.sales)
	s.Empty(s.repo.state.lines)
	s.Empty(s.repo.state.reservations)
	s.Zero(s.repo.state.counter)
	s.Equal(int64(5), s.repo.stock(frame))
	s.Equal([]string{"create:storage"}, s.metrics.outcomes)
}

func (s *SaleServiceSuite) TestInvoiceNumbersAreSequential() {
	first, err := s.svc.CreateSale(s.ctx, frameCart(1), "")
	s.Require().NoError(err)
	second, err := s.svc.CreateSale(s.ctx, frameCart(1), "")
	s.Require().NoError(err)
	s.Equal("FACT-2025-000001", first.Invoice.Number)
	s.Equal("FACT-2025-000002", second.Invoice.Number)
}

func (s *SaleServiceSuite) TestAuditAndListing() {
	d, err := s.svc.CreateSale(s.ctx, frameCart(1), "")
	s.Require().NoError(err)
	_, err = s.svc.CancelSale(s.ctx, d.Sale.ID)
	s.Require().NoError(err)

	s.Require().Len(s.audit.logs, 2)
	s.Equal("sale.create", s.audit.logs[0].Action)
	s.Equal("sale.cancel", s.audit.logs[1].Action)
	s.Equal(int64(3), s.audit.logs[0].ActorID)

	list, err := s.svc.ListSales(s.ctx, ListFilter{Status: StatusCancelled})
	s.Require().NoError(err)
	s.Len(list, 1)

	_, err = s.svc.ListSales(s.ctx, ListFilter{Status: "lost"})
	s.Require().ErrorIs(err, shared.ErrValidation)
}

func (s *SaleServiceSuite) TestIdempotencyKey() {
	mr := miniredis.RunT(s.T())
	guard := shared.NewIdempotencyGuard(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	s.svc = NewService(s.repo, ServiceOptions{Idempotency: guard, Clock: func() time.Time { return saleClock }})
	key := "1b4e28ba-2fa1-11d2-883f-0016d3cca427"

	_, err := s.svc.CreateSale(s.ctx, frameCart(9), key)
	s.Require().ErrorIs(err, shared.ErrInsufficientStock)

	_, err = s.svc.CreateSale(s.ctx, frameCart(1), key)
	s.Require().NoError(err)

	_, err = s.svc.CreateSale(s.ctx, frameCart(1), key)
	s.Require().ErrorIs(err, shared.ErrIdempotencyConflict)
	s.Len(s.repo.state.sales, 1)
}

type stubCatalog map[catalog.ProductRef]catalog.Product

func (c stubCatalog) Resolve(_ context.Context, ref catalog.ProductRef) (catalog.Product, error) {
	p, ok := c[ref]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (s *SaleServiceSuite) TestCatalogRejectsUnknownAndInactiveProducts() {
	s.svc = NewService(s.repo, ServiceOptions{
		Catalog: stubCatalog{frame: {Ref: frame, Active: false}},
		Clock:   func() time.Time { return saleClock },
	})
	cart := frameCart(1)
	cart.Lines = append(cart.Lines, CartLine{Product: lens, Quantity: 1, UnitPrice: dec("10")})

	_, err := s.svc.CreateSale(s.ctx, cart, "")
	var verr *shared.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields["lines[0].product"], "inactive")
	s.Contains(verr.Fields["lines[1].product"], "unknown")
}

func (s *SaleServiceSuite) TestCoverageNeverExceedsCeilingOrTotal() {
	for i, tc := range []struct{ mode, value, ceiling, price string }{
		{"percentage", "100", "1000", "80"},
		{"percentage", "30", "10", "80"},
		{"fixed", "500", "500", "80"},
		{"fixed", "50", "0", "80"},
	} {
		plan := s.repo.addPlan(tc.mode, tc.value, tc.ceiling, true)
		cart := Cart{ClientID: 11, SellerID: 3, InsurancePlanID: &plan, Lines: []CartLine{{Product: lens, Quantity: 1, UnitPrice: dec(tc.price)}}}
		d, err := s.svc.CreateSale(s.ctx, cart, "")
		s.Require().NoError(err, "case %d", i)
		s.True(d.Sale.InsuranceCovered.LessThanOrEqual(dec(tc.ceiling)), "case %d", i)
		s.True(d.Sale.InsuranceCovered.LessThanOrEqual(d.Sale.TotalInclTax), "case %d", i)
	}
	s.requireInvariants()
}
