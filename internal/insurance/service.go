package insurance

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/devibrahimzy/OpticienPro-app/internal/pricing"
	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// RepositoryPort abstracts plan persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, in PlanInput) (Plan, error)
	Update(ctx context.Context, id int64, in PlanInput) (Plan, error)
	Get(ctx context.Context, id int64) (Plan, error)
	List(ctx context.Context, filter ListFilter) ([]Plan, error)
	SetActive(ctx context.Context, id int64, active bool) (Plan, error)
}

// Service manages insurance plans. Plans are never deleted, only deactivated.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validate: shared.NewValidator(), logger: logger}
}

// CreatePlan registers a new plan.
func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (Plan, error) {
	in, err := s.check(in)
	if err != nil {
		return Plan{}, err
	}
	plan, err := s.repo.Create(ctx, in)
	if err != nil {
		return Plan{}, err
	}
	s.logger.Info("insurance plan created", slog.Int64("plan_id", plan.ID), slog.String("mode", string(plan.Mode)))
	return plan, nil
}

// UpdatePlan changes a plan's coverage rule. Existing sales keep the amounts
// computed when they were last priced.
func (s *Service) UpdatePlan(ctx context.Context, id int64, in PlanInput) (Plan, error) {
	in, err := s.check(in)
	if err != nil {
		return Plan{}, err
	}
	return s.repo.Update(ctx, id, in)
}

// GetPlan loads one plan.
func (s *Service) GetPlan(ctx context.Context, id int64) (Plan, error) {
	return s.repo.Get(ctx, id)
}

// ListPlans lists active plans, or all of them when includeInactive is set.
func (s *Service) ListPlans(ctx context.Context, includeInactive bool) ([]Plan, error) {
	return s.repo.List(ctx, ListFilter{IncludeInactive: includeInactive})
}

// DeactivatePlan hides a plan from new sales.
func (s *Service) DeactivatePlan(ctx context.Context, id int64) (Plan, error) {
	return s.setActive(ctx, id, false)
}

// ReactivatePlan makes a deactivated plan selectable again.
func (s *Service) ReactivatePlan(ctx context.Context, id int64) (Plan, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id int64, active bool) (Plan, error) {
	plan, err := s.repo.Get(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if plan.Active == active {
		return plan, nil
	}
	plan, err = s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Plan{}, err
	}
	s.logger.Info("insurance plan status changed", slog.Int64("plan_id", id), slog.Bool("active", active))
	return plan, nil
}

func (s *Service) check(in PlanInput) (PlanInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := shared.ValidateStruct(s.validate, in); err != nil {
		return in, err
	}
	if in.Mode == pricing.ModePercentage && in.Value.GreaterThan(hundredPercent) {
		return in, shared.NewValidationError("coverage_value", "must be at most 100 for percentage plans")
	}
	return in, nil
}
