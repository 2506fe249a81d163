// Package order implements order placement with the non-oversell stock
// contract, and the admin order operations.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Buyer is the contact information captured at checkout.
type Buyer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Line is an immutable snapshot of a cart line taken at order creation,
// carrying its computed subtotal.
type Line struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Color     string          `json:"color,omitempty"`
	Variant   string          `json:"variant,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Order is a placed order. Lines and Total are fixed at creation; only
// Status and UpdatedAt change afterwards, through admin status updates.
type Order struct {
	ID        string
	Buyer     Buyer
	Lines     []Line
	Total     decimal.Decimal
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status is the order lifecycle state. Any status may transition to any
// other: there is no enforced state machine, only enum membership.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a raw status string against the enum.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusCreated, StatusPaid, StatusShipped, StatusCancelled:
		return Status(s), nil
	}
	return "", &InvalidStatusError{Status: s}
}

// Tx is the read-then-write set of one atomic checkout unit. Reads come
// before writes; the backing store validates the read set at commit.
type Tx interface {
	// ProductStock reads the current stock for a product, locking or
	// snapshotting it so the later decrement is consistent with the read.
	// Returns product.ErrNotFound (wrapped or not) for missing products.
	ProductStock(ctx context.Context, productID string) (int, error)

	// DecrementStock writes stock = stock - by for a product already read
	// in this unit.
	DecrementStock(ctx context.Context, productID string, by int) error

	// InsertOrder persists the new order inside this unit.
	InsertOrder(ctx context.Context, o *Order) error
}

// Store runs a read-then-write block as a single all-or-nothing unit,
// retrying automatically when a conflicting concurrent write invalidates the
// block's reads. This is the only concurrency control checkout relies on.
type Store interface {
	RunAtomic(ctx context.Context, fn func(tx Tx) error) error
}

// Repository defines the non-transactional order persistence operations used
// by the admin surface.
type Repository interface {
	List(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	// UpdateStatus overwrites the status and updated timestamp. Returns
	// ErrOrderNotFound when no such order exists.
	UpdateStatus(ctx context.Context, id string, status Status) error
}
