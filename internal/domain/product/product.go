package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for sale. Stock is the single
// inventory pool for the product; color and variant choices on cart lines do
// not get separate pools.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Stock     int
	Category  string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence operations for the product catalog.
// Stock decrements are not part of this interface: they happen only inside
// the order store's atomic transaction.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Upsert(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
