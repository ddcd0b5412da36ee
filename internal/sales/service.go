package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/devibrahimzy/OpticienPro-app/internal/catalog"
	"github.com/devibrahimzy/OpticienPro-app/internal/insurance"
	"github.com/devibrahimzy/OpticienPro-app/internal/invoicing"
	"github.com/devibrahimzy/OpticienPro-app/internal/inventory"
	"github.com/devibrahimzy/OpticienPro-app/internal/payments"
	"github.com/devibrahimzy/OpticienPro-app/internal/pricing"
	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

const (
	opCreate  = "create"
	opUpdate  = "update"
	opCancel  = "cancel"
	opPayment = "payment"

	idemCreate  = "sales.create"
	idemPayment = "sales.payment"
)

// TxRepository is the store of one sale unit of work. It carries the stock,
// invoice and payment stores so every write of an operation shares the
// same transaction.
type TxRepository interface {
	inventory.StockTx
	invoicing.InvoiceTx
	payments.PaymentTx

	InsertSale(ctx context.Context, sale Sale) (int64, error)
	SaleForUpdate(ctx context.Context, id int64) (Sale, error)
	UpdateSale(ctx context.Context, sale Sale) error
	InsertSaleLines(ctx context.Context, lines []Line) error
	DeleteSaleLines(ctx context.Context, saleID int64) error
	SaleLines(ctx context.Context, saleID int64) ([]Line, error)
	InsurancePlan(ctx context.Context, id int64) (insurance.Plan, error)
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, error)
	ListPayments(ctx context.Context, saleID int64) ([]payments.Payment, error)
	InvoiceBySale(ctx context.Context, saleID int64) (invoicing.Invoice, error)
}

// Auditor records committed operations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// KeyGuard rejects replayed requests carrying the same idempotency key.
type KeyGuard interface {
	Acquire(ctx context.Context, key, module string) error
	Release(ctx context.Context, key, module string) error
}

// Recorder counts orchestrator outcomes.
type Recorder interface {
	RecordSaleOperation(operation, outcome string)
}

// ServiceOptions carries the optional collaborators of Service.
type ServiceOptions struct {
	Logger      *slog.Logger
	Audit       Auditor
	Idempotency KeyGuard
	Catalog     catalog.Resolver
	Metrics     Recorder
	Clock       func() time.Time
}

// Service is the sale orchestrator.
type Service struct {
	repo     RepositoryPort
	stock    *inventory.Ledger
	issuer   *invoicing.Issuer
	payments *payments.Ledger
	validate *validator.Validate
	logger   *slog.Logger
	audit    Auditor
	idem     KeyGuard
	catalog  catalog.Resolver
	metrics  Recorder
	now      func() time.Time
}

// NewService builds the orchestrator.
func NewService(repo RepositoryPort, opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:     repo,
		stock:    inventory.NewLedger(),
		issuer:   invoicing.NewIssuer(now),
		payments: payments.NewLedger(now),
		validate: shared.NewValidator(),
		logger:   logger,
		audit:    opts.Audit,
		idem:     opts.Idempotency,
		catalog:  opts.Catalog,
		metrics:  opts.Metrics,
		now:      now,
	}
}

// CreateSale prices the cart, reserves its stock, stores the sale and issues
// its invoice. An upfront payment in the cart is recorded in the same unit
// of work. Nothing is written when any step fails.
func (s *Service) CreateSale(ctx context.Context, cart Cart, idempotencyKey string) (detail Detail, err error) {
	defer func() { s.observe(opCreate, err) }()

	cart.normalize()
	if err := s.validateCart(ctx, cart); err != nil {
		return Detail{}, err
	}
	release, err := s.acquire(ctx, idempotencyKey, idemCreate)
	if err != nil {
		return Detail{}, err
	}
	defer func() { release(err) }()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		breakdown, err := s.price(ctx, tx, cart)
		if err != nil {
			return err
		}
		if err := checkUpfront(cart.Upfront, breakdown.ClientDue); err != nil {
			return err
		}
		if err := s.stock.CheckAvailability(ctx, tx, cart.demands()); err != nil {
			return err
		}

		now := s.now()
		sale := Sale{
			ClientID:        cart.ClientID,
			SellerID:        cart.SellerID,
			InsurancePlanID: cart.InsurancePlanID,
			Status:          StatusOpen,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		sale.applyBreakdown(breakdown)
		sale.applyBalance(payments.ComputeBalance(sale.ClientDue, sale.AmountPaid))
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = id
		sale.Lines = cart.saleLines(id)
		if err := tx.InsertSaleLines(ctx, sale.Lines); err != nil {
			return err
		}
		if _, err := s.stock.Reserve(ctx, tx, id, cart.demands()); err != nil {
			return err
		}

		var recorded []payments.Payment
		if cart.Upfront != nil {
			p, bal, err := s.payments.Append(ctx, tx, id, sale.ClientDue, *cart.Upfront)
			if err != nil {
				return err
			}
			recorded = append(recorded, p)
			sale.applyBalance(bal)
			if err := tx.UpdateSale(ctx, sale); err != nil {
				return err
			}
		}

		inv, err := s.issuer.Issue(ctx, tx, sale.snapshot())
		if err != nil {
			return err
		}
		detail = Detail{Sale: sale, Invoice: inv, Payments: recorded}
		return nil
	})
	if err != nil {
		return Detail{}, fmt.Errorf("sales: create sale: %w", err)
	}
	if detail.Payments == nil {
		detail.Payments = []payments.Payment{}
	}

	s.logger.Info("sale created",
		slog.Int64("sale_id", detail.Sale.ID),
		slog.String("invoice", detail.Invoice.Number),
		slog.String("status", string(detail.Sale.Status)),
	)
	s.record(ctx, detail.Sale, "sale.create", map[string]any{
		"invoice":    detail.Invoice.Number,
		"total":      detail.Sale.TotalInclTax.StringFixed(2),
		"client_due": detail.Sale.ClientDue.StringFixed(2),
	})
	return detail, nil
}

// UpdateSale replaces the lines of an open sale. The stock of the previous
// lines is restored before the new cart is checked and reserved, and the
// totals and invoice are recomputed. Payments already made are kept.
func (s *Service) UpdateSale(ctx context.Context, id int64, cart Cart) (detail Detail, err error) {
	defer func() { s.observe(opUpdate, err) }()

	cart.normalize()
	if err := s.validateCart(ctx, cart); err != nil {
		return Detail{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.SaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !sale.Status.CanEdit() {
			return fmt.Errorf("%w: sale %d is %s", ErrNotEditable, id, sale.Status)
		}
		previous, err := tx.SaleLines(ctx, id)
		if err != nil {
			return err
		}
		if err := s.stock.Restore(ctx, tx, id, demandsOf(previous)); err != nil {
			return err
		}

		breakdown, err := s.price(ctx, tx, cart)
		if err != nil {
			return err
		}
		bal, err := s.payments.Balance(ctx, tx, id, breakdown.ClientDue)
		if err != nil {
			return err
		}
		if bal.BalanceDue.IsNegative() {
			return fmt.Errorf("%w: due %s, paid %s", ErrDueBelowPaid, breakdown.ClientDue.StringFixed(2), bal.AmountPaid.StringFixed(2))
		}
		if err := checkUpfront(cart.Upfront, bal.BalanceDue); err != nil {
			return err
		}
		if err := s.stock.CheckAvailability(ctx, tx, cart.demands()); err != nil {
			return err
		}

		if err := tx.DeleteSaleLines(ctx, id); err != nil {
			return err
		}
		sale.Lines = cart.saleLines(id)
		if err := tx.InsertSaleLines(ctx, sale.Lines); err != nil {
			return err
		}
		if _, err := s.stock.Reserve(ctx, tx, id, cart.demands()); err != nil {
			return err
		}

		sale.ClientID = cart.ClientID
		sale.SellerID = cart.SellerID
		sale.InsurancePlanID = cart.InsurancePlanID
		sale.AmountPaid = bal.AmountPaid
		sale.applyBreakdown(breakdown)
		if cart.Upfront != nil {
			if _, bal, err = s.payments.Append(ctx, tx, id, sale.ClientDue, *cart.Upfront); err != nil {
				return err
			}
		}
		sale.applyBalance(bal)
		sale.UpdatedAt = s.now()
		if err := tx.UpdateSale(ctx, sale); err != nil {
			return err
		}

		inv, err := s.issuer.Sync(ctx, tx, sale.snapshot())
		if err != nil {
			return err
		}
		detail = Detail{Sale: sale, Invoice: inv}
		return nil
	})
	if err != nil {
		return Detail{}, fmt.Errorf("sales: update sale %d: %w", id, err)
	}
	if detail.Payments, err = s.repo.ListPayments(ctx, id); err != nil {
		s.logger.Warn("list payments after update", slog.Int64("sale_id", id), slog.Any("error", err))
		detail.Payments = []payments.Payment{}
		err = nil
	}

	s.logger.Info("sale updated", slog.Int64("sale_id", id), slog.String("status", string(detail.Sale.Status)))
	s.record(ctx, detail.Sale, "sale.update", map[string]any{
		"lines": len(detail.Sale.Lines),
		"total": detail.Sale.TotalInclTax.StringFixed(2),
	})
	return detail, nil
}

// CancelSale restores the stock of every line and cancels the sale and its
// invoice. A cancelled sale cannot be cancelled again.
func (s *Service) CancelSale(ctx context.Context, id int64) (sale Sale, err error) {
	defer func() { s.observe(opCancel, err) }()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.SaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanCancel() {
			return fmt.Errorf("%w: sale %d", ErrAlreadyCancelled, id)
		}
		lines, err := tx.SaleLines(ctx, id)
		if err != nil {
			return err
		}
		if err := s.stock.Restore(ctx, tx, id, demandsOf(lines)); err != nil {
			return err
		}

		now := s.now()
		current.Status = StatusCancelled
		current.CancelledAt = &now
		current.UpdatedAt = now
		if err := tx.UpdateSale(ctx, current); err != nil {
			return err
		}
		if _, err := s.issuer.Sync(ctx, tx, current.snapshot()); err != nil {
			return err
		}
		current.Lines = lines
		sale = current
		return nil
	})
	if err != nil {
		return Sale{}, fmt.Errorf("sales: cancel sale %d: %w", id, err)
	}

	s.logger.Info("sale cancelled", slog.Int64("sale_id", id))
	s.record(ctx, sale, "sale.cancel", map[string]any{"restored_lines": len(sale.Lines)})
	return sale, nil
}

// RecordPayment appends a payment and recomputes the balance. The sale is
// finalized and its invoice marked paid once the balance reaches zero.
func (s *Service) RecordPayment(ctx context.Context, id int64, in payments.Input, idempotencyKey string) (receipt PaymentReceipt, err error) {
	defer func() { s.observe(opPayment, err) }()

	if err := shared.ValidateStruct(s.validate, in); err != nil {
		return PaymentReceipt{}, err
	}
	release, err := s.acquire(ctx, idempotencyKey, idemPayment)
	if err != nil {
		return PaymentReceipt{}, err
	}
	defer func() { release(err) }()

	var sale Sale
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.SaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanPay() {
			return fmt.Errorf("%w: sale %d", ErrAlreadyCancelled, id)
		}
		p, bal, err := s.payments.Append(ctx, tx, id, current.ClientDue, in)
		if err != nil {
			return err
		}
		current.applyBalance(bal)
		current.UpdatedAt = s.now()
		if err := tx.UpdateSale(ctx, current); err != nil {
			return err
		}
		inv, err := s.issuer.Sync(ctx, tx, current.snapshot())
		if err != nil {
			return err
		}
		sale = current
		receipt = PaymentReceipt{Payment: p, Balance: bal, SaleStatus: current.Status, InvoiceStatus: inv.Status}
		return nil
	})
	if err != nil {
		return PaymentReceipt{}, fmt.Errorf("sales: record payment on sale %d: %w", id, err)
	}

	s.logger.Info("payment recorded",
		slog.Int64("sale_id", id),
		slog.String("amount", receipt.Payment.Amount.StringFixed(2)),
		slog.String("balance_due", receipt.Balance.BalanceDue.StringFixed(2)),
	)
	s.record(ctx, sale, "sale.payment", map[string]any{
		"payment_id": receipt.Payment.ID,
		"amount":     receipt.Payment.Amount.StringFixed(2),
		"method":     string(receipt.Payment.Method),
	})
	return receipt, nil
}

// ListPayments returns the payments of a sale, oldest first.
func (s *Service) ListPayments(ctx context.Context, saleID int64) ([]payments.Payment, error) {
	if _, err := s.repo.GetSale(ctx, saleID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, saleID)
}

// GetSale loads a sale with its lines, invoice and payments.
func (s *Service) GetSale(ctx context.Context, id int64) (Detail, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	inv, err := s.repo.InvoiceBySale(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	paid, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Sale: sale, Invoice: inv, Payments: paid}, nil
}

// GetInvoice returns the invoice issued for a sale.
func (s *Service) GetInvoice(ctx context.Context, saleID int64) (invoicing.Invoice, error) {
	return s.repo.InvoiceBySale(ctx, saleID)
}

// ListSales lists sales newest first.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewValidationError("status", "must be one of open finalized cancelled")
	}
	return s.repo.ListSales(ctx, filter)
}

func (s *Service) validateCart(ctx context.Context, cart Cart) error {
	if err := shared.ValidateStruct(s.validate, cart); err != nil {
		return err
	}
	problems := &shared.ValidationError{}
	for i, line := range cart.Lines {
		prefix := fmt.Sprintf("lines[%d].", i)
		shared.CheckScale(problems, prefix+"unit_price", line.UnitPrice)
		shared.CheckScale(problems, prefix+"discount_pct", line.DiscountPct)
		shared.CheckScale(problems, prefix+"vat_pct", line.VATPct)
	}
	if cart.Upfront != nil {
		shared.CheckScale(problems, "upfront.amount", cart.Upfront.Amount)
	}
	if s.catalog == nil || !problems.Empty() {
		return problems.OrNil()
	}
	for i, line := range cart.Lines {
		field := fmt.Sprintf("lines[%d].product", i)
		product, err := s.catalog.Resolve(ctx, line.Product)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			problems.Add(field, "unknown product "+line.Product.String())
		case err != nil:
			return err
		case !product.Active:
			problems.Add(field, "product "+line.Product.String()+" is inactive")
		}
	}
	return problems.OrNil()
}

// price loads the referenced plan inside the unit of work and computes the
// sale totals.
func (s *Service) price(ctx context.Context, tx TxRepository, cart Cart) (pricing.Breakdown, error) {
	var coverage *pricing.Plan
	if cart.InsurancePlanID != nil {
		plan, err := tx.InsurancePlan(ctx, *cart.InsurancePlanID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return pricing.Breakdown{}, shared.NewValidationError("insurance_plan_id", "unknown insurance plan")
			}
			return pricing.Breakdown{}, err
		}
		if !plan.Active {
			return pricing.Breakdown{}, fmt.Errorf("%w: %s", insurance.ErrPlanInactive, plan.Name)
		}
		coverage = plan.Coverage()
	}
	return pricing.Compute(cart.pricingLines(), coverage), nil
}

// checkUpfront rejects an upfront payment larger than what is left to pay.
func checkUpfront(upfront *payments.Input, due decimal.Decimal) error {
	if upfront == nil {
		return nil
	}
	if !shared.WithinScale(upfront.Amount) {
		return shared.NewValidationError("upfront.amount", "must have at most 2 decimal places")
	}
	if !upfront.Amount.GreaterThan(due) {
		return nil
	}
	return shared.NewValidationError("upfront.amount", "must not exceed the amount due of "+due.StringFixed(2))
}

// acquire claims the idempotency key and returns the function that gives it
// back when the operation fails.
func (s *Service) acquire(ctx context.Context, key, module string) (func(error), error) {
	if key == "" || s.idem == nil {
		return func(error) {}, nil
	}
	if err := s.idem.Acquire(ctx, key, module); err != nil {
		return nil, err
	}
	return func(opErr error) {
		if opErr == nil {
			return
		}
		if err := s.idem.Release(context.WithoutCancel(ctx), key, module); err != nil {
			s.logger.Warn("release idempotency key", slog.String("module", module), slog.Any("error", err))
		}
	}, nil
}

func (s *Service) observe(operation string, err error) {
	if s.metrics != nil {
		s.metrics.RecordSaleOperation(operation, shared.ErrorKind(err))
	}
}

func (s *Service) record(ctx context.Context, sale Sale, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	meta["status"] = string(sale.Status)
	err := s.audit.Record(context.WithoutCancel(ctx), shared.AuditLog{
		ActorID:  sale.SellerID,
		Action:   action,
		Entity:   "sale",
		EntityID: strconv.FormatInt(sale.ID, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit sale operation", slog.Int64("sale_id", sale.ID), slog.String("action", action), slog.Any("error", err))
	}
}
