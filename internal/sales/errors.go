package sales

import (
	"fmt"

	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

var (
	// ErrSaleNotFound is returned when no sale has the requested id.
	ErrSaleNotFound = fmt.Errorf("sales: sale %w", shared.ErrNotFound)
	// ErrNotEditable is returned when a non-open sale is edited.
	ErrNotEditable = fmt.Errorf("sales: only open sales can be edited: %w", shared.ErrInvalidState)
	// ErrAlreadyCancelled is returned when a cancelled sale is cancelled or paid again.
	ErrAlreadyCancelled = fmt.Errorf("sales: sale is cancelled: %w", shared.ErrInvalidState)
	// ErrDueBelowPaid is returned when an edit would leave the client owing
	// less than was already paid.
	ErrDueBelowPaid = fmt.Errorf("sales: client due below amount already paid: %w", shared.ErrInvalidState)
)
