package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order validation.
var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidOrderID = errors.New("order id is required")
	ErrOrderNotFound  = errors.New("order not found")
)

// InvalidLineError indicates a cart line without a resolvable product id.
type InvalidLineError struct {
	Index int
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("cart line %d has no product id", e.Index)
}

// ProductNotFoundError indicates a cart references a product that no longer
// exists in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s no longer exists", e.ProductID)
}

// InsufficientStockError indicates the cart requires more units of a product
// than are available. The whole checkout aborts; no stock is decremented.
type InsufficientStockError struct {
	ProductID string
	Available int
	Required  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, required %d",
		e.ProductID, e.Available, e.Required)
}

// InvalidStatusError indicates a status string outside the fixed enum.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Status)
}

// StoreUnavailableError wraps transport or transaction failures from the
// backing store that are not part of the domain taxonomy.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return "order store unavailable: " + e.Err.Error()
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
