package order

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/atelier-api/internal/domain/product"
)

// Sentinel errors shared across order operations.
var (
	ErrNotFound   = errors.New("order not found")
	ErrForbidden  = errors.New("not allowed to access this order")
	ErrEmptyItems = errors.New("order must contain at least one item")
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level validation failures.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s %s", e.Fields[0].Field, e.Fields[0].Message)
	}
	return fmt.Sprintf("validation failed: %d invalid fields", len(e.Fields))
}

// ProductNotFoundError indicates a line item references a missing product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidTierError indicates a line item requested a pricing tier the product
// does not offer.
type InvalidTierError struct {
	ProductID string
	Tier      product.Tier
}

func (e *InvalidTierError) Error() string {
	return fmt.Sprintf("product %s does not offer tier %q", e.ProductID, e.Tier)
}

// InvalidTransitionError indicates a status change not permitted by the
// lifecycle transition table.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// IllegalStateError indicates an operation attempted on an order whose current
// status forbids it, such as cancelling a completed order.
type IllegalStateError struct {
	Status Status
	Op     string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("cannot %s an order with status %s", e.Op, e.Status)
}
