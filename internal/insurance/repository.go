package insurance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/devibrahimzy/OpticienPro-app/internal/platform/db"
)

const planColumns = `id, name, coverage_mode, coverage_value, ceiling, notes, is_active, created_at, updated_at`

// Repository persists insurance plans in PostgreSQL.
type Repository struct {
	db db.Querier
}

// NewRepository constructs Repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.Name, &p.Mode, &p.Value, &p.Ceiling, &p.Notes, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func planResult(id int64, p Plan, err error) (Plan, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, fmt.Errorf("%w: id %d", ErrPlanNotFound, id)
		}
		return Plan{}, db.Classify(err)
	}
	return p, nil
}

// LoadPlan reads one plan through q, which may be a pool or a transaction.
func LoadPlan(ctx context.Context, q db.Querier, id int64) (Plan, error) {
	p, err := scanPlan(q.QueryRow(ctx, `SELECT `+planColumns+` FROM insurance_plans WHERE id = $1`, id))
	return planResult(id, p, err)
}

// Create inserts a new active plan.
func (r *Repository) Create(ctx context.Context, in PlanInput) (Plan, error) {
	p, err := scanPlan(r.db.QueryRow(ctx, `INSERT INTO insurance_plans (name, coverage_mode, coverage_value, ceiling, notes)
VALUES ($1, $2, $3, $4, $5) RETURNING `+planColumns, in.Name, in.Mode, in.Value, in.Ceiling, in.Notes))
	if err != nil {
		return Plan{}, db.Classify(err)
	}
	return p, nil
}

// Update overwrites the editable fields of a plan.
func (r *Repository) Update(ctx context.Context, id int64, in PlanInput) (Plan, error) {
	p, err := scanPlan(r.db.QueryRow(ctx, `UPDATE insurance_plans
SET name = $2, coverage_mode = $3, coverage_value = $4, ceiling = $5, notes = $6, updated_at = NOW()
WHERE id = $1 RETURNING `+planColumns, id, in.Name, in.Mode, in.Value, in.Ceiling, in.Notes))
	return planResult(id, p, err)
}

// Get loads one plan.
func (r *Repository) Get(ctx context.Context, id int64) (Plan, error) {
	return LoadPlan(ctx, r.db, id)
}

// List returns plans ordered by name.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Plan, error) {
	query := `SELECT ` + planColumns + ` FROM insurance_plans`
	if !filter.IncludeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name, id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var plans []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, db.Classify(err)
		}
		plans = append(plans, p)
	}
	return plans, db.Classify(rows.Err())
}

// SetActive flips the soft-delete flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (Plan, error) {
	p, err := scanPlan(r.db.QueryRow(ctx, `UPDATE insurance_plans SET is_active = $2, updated_at = NOW()
WHERE id = $1 RETURNING `+planColumns, id, active))
	return planResult(id, p, err)
}
