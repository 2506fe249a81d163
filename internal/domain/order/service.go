package order

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mastecno/storefront/internal/domain/cart"
	"github.com/mastecno/storefront/internal/domain/product"
)

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Lines []cart.Line
	Buyer Buyer
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	OrderID string
	Total   decimal.Decimal
}

// Service encapsulates order placement and admin order operations.
type Service struct {
	store  Store
	orders Repository
	now    func() time.Time
	newID  func() string
}

// NewService creates an order Service on top of the atomic store and the
// order repository.
func NewService(store Store, orders Repository) *Service {
	return &Service{
		store:  store,
		orders: orders,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// PlaceOrder converts a cart and buyer into a durable order while enforcing
// the non-negative-stock invariant across every referenced product as one
// all-or-nothing unit.
//
// Validation reads and mutation writes run inside the same atomic unit: the
// store re-runs the whole block when a concurrent checkout invalidates the
// stock reads, so the availability check is always re-evaluated against
// current data. Either every stock decrement and the order creation commit
// together, or nothing does.
//
// Submitting the same cart twice creates two orders and decrements stock
// twice; there is no idempotency key.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Snapshot lines with computed subtotals. The total is fixed here and
	// never recomputed.
	lines := make([]Line, len(req.Lines))
	total := decimal.Zero
	for i, l := range req.Lines {
		if strings.TrimSpace(l.ProductID) == "" {
			return nil, &InvalidLineError{Index: i}
		}
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		subtotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
		lines[i] = Line{
			ProductID: l.ProductID,
			Title:     l.Title,
			UnitPrice: l.UnitPrice,
			Quantity:  qty,
			Color:     l.Color,
			Variant:   l.Variant,
			Subtotal:  subtotal,
		}
		total = total.Add(subtotal)
	}

	// Stock is tracked per product: color/variant lines for the same product
	// draw from one pool, so required quantities are summed per distinct id.
	required := make(map[string]int, len(lines))
	for _, l := range lines {
		required[l.ProductID] += l.Quantity
	}
	ids := make([]string, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	// Deterministic order keeps row lock acquisition consistent across
	// concurrent checkouts.
	sort.Strings(ids)

	o := &Order{
		ID:        s.newID(),
		Buyer:     trimBuyer(req.Buyer),
		Lines:     lines,
		Total:     total,
		Status:    StatusCreated,
		CreatedAt: s.now().UTC(),
	}
	o.UpdatedAt = o.CreatedAt

	err := s.store.RunAtomic(ctx, func(tx Tx) error {
		// Validation phase: read every stock before writing anything.
		decrements := make([]struct {
			id string
			by int
		}, 0, len(ids))

		for _, id := range ids {
			stock, err := tx.ProductStock(ctx, id)
			if err != nil {
				if errors.Is(err, product.ErrNotFound) {
					return &ProductNotFoundError{ProductID: id}
				}
				return errors.Wrapf(err, "read stock for %s", id)
			}
			need := required[id]
			if stock < need {
				return &InsufficientStockError{ProductID: id, Available: stock, Required: need}
			}
			decrements = append(decrements, struct {
				id string
				by int
			}{id, need})
		}

		// Mutation phase.
		for _, d := range decrements {
			if err := tx.DecrementStock(ctx, d.id, d.by); err != nil {
				return errors.Wrapf(err, "decrement stock for %s", d.id)
			}
		}
		return tx.InsertOrder(ctx, o)
	})
	if err != nil {
		return nil, classify(err)
	}

	return &PlaceOrderResult{OrderID: o.ID, Total: total}, nil
}

// UpdateStatus overwrites an order's status with a value from the fixed
// enum. Any status may replace any other; there is no transition validation.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidOrderID
	}
	st, err := ParseStatus(strings.TrimSpace(status))
	if err != nil {
		return err
	}
	if err := s.orders.UpdateStatus(ctx, id, st); err != nil {
		return classify(err)
	}
	return nil
}

// ListOrders returns all orders, newest first.
func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	out, err := s.orders.List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// GetOrder returns one order by id.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidOrderID
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return o, nil
}

// classify passes domain errors through untouched and wraps everything else
// as a StoreUnavailableError.
func classify(err error) error {
	var (
		invalidLine   *InvalidLineError
		notFound      *ProductNotFoundError
		insufficient  *InsufficientStockError
		invalidStatus *InvalidStatusError
	)
	switch {
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidOrderID),
		errors.Is(err, ErrOrderNotFound),
		errors.As(err, &invalidLine),
		errors.As(err, &notFound),
		errors.As(err, &insufficient),
		errors.As(err, &invalidStatus):
		return err
	}
	return &StoreUnavailableError{Err: err}
}

func trimBuyer(b Buyer) Buyer {
	return Buyer{
		Name:  strings.TrimSpace(b.Name),
		Phone: strings.TrimSpace(b.Phone),
		Email: strings.TrimSpace(b.Email),
	}
}
