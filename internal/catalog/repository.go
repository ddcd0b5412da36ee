package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/devibrahimzy/OpticienPro-app/internal/platform/db"
)

// Repository resolves products from the frames and lenses tables.
type Repository struct {
	db db.Querier
}

// NewRepository constructs Repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Resolve loads the product behind ref.
func (r *Repository) Resolve(ctx context.Context, ref ProductRef) (Product, error) {
	if err := ref.Validate(); err != nil {
		return Product{}, err
	}
	var query string
	switch ref.Kind {
	case KindFrame:
		query = `SELECT reference || CASE WHEN brand <> '' THEN ' (' || brand || ')' ELSE '' END, sale_price, active FROM frames WHERE id = $1`
	case KindLens:
		query = `SELECT reference || CASE WHEN lens_type <> '' THEN ' (' || lens_type || ')' ELSE '' END, sale_price, active FROM lenses WHERE id = $1`
	}
	product := Product{Ref: ref}
	err := r.db.QueryRow(ctx, query, ref.ID).Scan(&product.Label, &product.SalePrice, &product.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, ref)
		}
		return Product{}, db.Classify(err)
	}
	return product, nil
}
