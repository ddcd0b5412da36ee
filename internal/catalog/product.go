// Package catalog models the product references sold by the shop. Frames and
// lenses live in separate tables, so a reference always carries its kind.
package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// Kind tags the catalog a product belongs to.
type Kind string

const (
	KindFrame Kind = "frame"
	KindLens  Kind = "lens"
)

// IsValid reports whether the kind is known.
func (k Kind) IsValid() bool {
	switch k {
	case KindFrame, KindLens:
		return true
	default:
		return false
	}
}

// ParseKind converts user input into a Kind.
func ParseKind(raw string) (Kind, error) {
	k := Kind(raw)
	if !k.IsValid() {
		return "", shared.NewValidationError("kind", "must be one of frame lens")
	}
	return k, nil
}

// ProductRef identifies a frame or a lens.
type ProductRef struct {
	Kind Kind  `json:"kind" validate:"required,oneof=frame lens"`
	ID   int64 `json:"id" validate:"required,gt=0"`
}

// Frame references a frame by id.
func Frame(id int64) ProductRef { return ProductRef{Kind: KindFrame, ID: id} }

// Lens references a lens by id.
func Lens(id int64) ProductRef { return ProductRef{Kind: KindLens, ID: id} }

func (r ProductRef) String() string {
	return string(r.Kind) + "#" + strconv.FormatInt(r.ID, 10)
}

// Less orders references by kind then id. Row locks are taken in this order.
func (r ProductRef) Less(other ProductRef) bool {
	if r.Kind != other.Kind {
		return r.Kind < other.Kind
	}
	return r.ID < other.ID
}

// Validate checks the reference is well formed.
func (r ProductRef) Validate() error {
	if !r.Kind.IsValid() {
		return shared.NewValidationError("product.kind", "must be one of frame lens")
	}
	if r.ID <= 0 {
		return shared.NewValidationError("product.id", "must be greater than 0")
	}
	return nil
}

// Product is the catalog view the sale engine needs.
type Product struct {
	Ref       ProductRef      `json:"ref"`
	Label     string          `json:"label"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Active    bool            `json:"active"`
}

// Resolver looks up a product by reference.
type Resolver interface {
	Resolve(ctx context.Context, ref ProductRef) (Product, error)
}

// ErrProductNotFound is returned when the reference matches no row.
var ErrProductNotFound = fmt.Errorf("catalog: product %w", shared.ErrNotFound)
