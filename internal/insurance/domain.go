package insurance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devibrahimzy/OpticienPro-app/internal/pricing"
	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// Plan is a third-party payer (mutuelle) covering part of a sale.
type Plan struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Mode      pricing.Mode    `json:"coverage_mode"`
	Value     decimal.Decimal `json:"coverage_value"`
	Ceiling   decimal.Decimal `json:"ceiling"`
	Notes     string          `json:"notes"`
	Active    bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Coverage returns the pricing rule of the plan.
func (p Plan) Coverage() *pricing.Plan {
	return &pricing.Plan{Mode: p.Mode, Value: p.Value, Ceiling: p.Ceiling}
}

// PlanInput carries the editable fields of a plan.
type PlanInput struct {
	Name    string          `json:"name" validate:"required,max=120"`
	Mode    pricing.Mode    `json:"coverage_mode" validate:"required,oneof=percentage fixed"`
	Value   decimal.Decimal `json:"coverage_value" validate:"gte=0"`
	Ceiling decimal.Decimal `json:"ceiling" validate:"gte=0"`
	Notes   string          `json:"notes" validate:"max=500"`
}

// ListFilter narrows plan listings.
type ListFilter struct {
	IncludeInactive bool
}

var (
	// ErrPlanNotFound is returned when no plan has the requested id.
	ErrPlanNotFound = fmt.Errorf("insurance: plan %w", shared.ErrNotFound)
	// ErrPlanInactive is returned when a sale references a deactivated plan.
	ErrPlanInactive = fmt.Errorf("insurance: plan is inactive: %w", shared.ErrValidation)
)

var hundredPercent = decimal.NewFromInt(100)
