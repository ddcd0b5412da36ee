package inventory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/devibrahimzy/OpticienPro-app/internal/catalog"
	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	LotSource
	CreateLot(ctx context.Context, lot Lot) (Lot, error)
	GetLot(ctx context.Context, id int64) (Lot, error)
	ListLots(ctx context.Context, filter LotFilter) ([]Lot, error)
	UpdateLotStatus(ctx context.Context, id int64, from, to LotStatus, deliveredAt *time.Time) (Lot, error)
	StockLevel(ctx context.Context, product catalog.ProductRef) (int64, error)
}

// Service coordinates lot management and read-only availability checks.
type Service struct {
	repo     RepositoryPort
	ledger   *Ledger
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		ledger:   NewLedger(),
		validate: shared.NewValidator(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CheckAvailability reports whether delivered stock covers every demand.
func (s *Service) CheckAvailability(ctx context.Context, demands []Demand) error {
	if len(demands) == 0 {
		return shared.NewValidationError("lines", "is required")
	}
	if err := shared.ValidateStruct(s.validate, struct {
		Lines []Demand `json:"lines" validate:"dive"`
	}{demands}); err != nil {
		return err
	}
	return s.ledger.CheckAvailability(ctx, s.repo, demands)
}

// RegisterLot records a new lot. Lots registered as delivered are stamped
// with the current time and become reservable immediately.
func (s *Service) RegisterLot(ctx context.Context, in LotInput) (Lot, error) {
	in.Note = strings.TrimSpace(in.Note)
	if in.Status == "" {
		in.Status = LotRequested
	}
	if err := shared.ValidateStruct(s.validate, in); err != nil {
		return Lot{}, err
	}
	lot := Lot{
		Product:    in.Product,
		SupplierID: in.SupplierID,
		Status:     in.Status,
		Quantity:   in.Quantity,
		Note:       in.Note,
	}
	if lot.Status == LotDelivered {
		now := s.now()
		lot.DeliveredAt = &now
	}
	created, err := s.repo.CreateLot(ctx, lot)
	if err != nil {
		return Lot{}, err
	}
	s.logger.Info("stock lot registered",
		slog.Int64("lot_id", created.ID),
		slog.String("product", created.Product.String()),
		slog.String("status", string(created.Status)),
		slog.Int64("quantity", created.Quantity))
	return created, nil
}

// UpdateLotStatus moves a lot along requested → ordered → delivered.
func (s *Service) UpdateLotStatus(ctx context.Context, id int64, next LotStatus) (Lot, error) {
	if !next.IsValid() {
		return Lot{}, shared.NewValidationError("status", "must be one of requested ordered delivered")
	}
	lot, err := s.repo.GetLot(ctx, id)
	if err != nil {
		return Lot{}, err
	}
	if !lot.Status.CanTransitionTo(next) {
		return Lot{}, ErrInvalidLotTransition
	}
	var deliveredAt *time.Time
	if next == LotDelivered {
		now := s.now()
		deliveredAt = &now
	}
	updated, err := s.repo.UpdateLotStatus(ctx, id, lot.Status, next, deliveredAt)
	if err != nil {
		return Lot{}, err
	}
	s.logger.Info("stock lot status changed", slog.Int64("lot_id", id), slog.String("from", string(lot.Status)), slog.String("to", string(next)))
	return updated, nil
}

// GetLot loads one lot.
func (s *Service) GetLot(ctx context.Context, id int64) (Lot, error) {
	return s.repo.GetLot(ctx, id)
}

// ListLots lists lots.
func (s *Service) ListLots(ctx context.Context, filter LotFilter) ([]Lot, error) {
	if filter.Product != nil {
		if err := filter.Product.Validate(); err != nil {
			return nil, err
		}
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewValidationError("status", "must be one of requested ordered delivered")
	}
	return s.repo.ListLots(ctx, filter)
}

// StockLevel returns the delivered quantity on hand for a product.
func (s *Service) StockLevel(ctx context.Context, product catalog.ProductRef) (int64, error) {
	if err := product.Validate(); err != nil {
		return 0, err
	}
	return s.repo.StockLevel(ctx, product)
}
