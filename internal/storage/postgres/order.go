package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mastecno/storefront/internal/domain/order"
	"github.com/mastecno/storefront/internal/domain/product"
)

const (
	stockForUpdateSQL = `SELECT stock FROM products WHERE id = $1 FOR UPDATE`

	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders
		(id, buyer_name, buyer_phone, buyer_email, lines, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`

	listOrdersSQL = `SELECT id, buyer_name, buyer_phone, buyer_email, lines, total, status,
		created_at, updated_at
		FROM orders ORDER BY created_at DESC`

	getOrderByIDSQL = `SELECT id, buyer_name, buyer_phone, buyer_email, lines, total, status,
		created_at, updated_at
		FROM orders WHERE id = $1`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`
)

var (
	_ order.Store      = (*OrderStore)(nil)
	_ order.Repository = (*OrderStore)(nil)
)

// OrderStore implements both the atomic checkout store and the admin order
// repository on one PostgreSQL pool.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// RunAtomic executes fn as one transaction. Stock reads inside fn take row
// locks, so concurrent checkouts over the same products serialize here; a
// loser aborted by the database is re-run with fresh reads.
func (s *OrderStore) RunAtomic(ctx context.Context, fn func(tx order.Tx) error) error {
	return runAtomic(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&orderTx{tx: tx})
	})
}

// orderTx adapts one pgx transaction to the order.Tx read/write set.
type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) ProductStock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := t.tx.QueryRow(ctx, stockForUpdateSQL, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, product.ErrNotFound
		}
		return 0, errors.Wrapf(err, "read stock %q", productID)
	}
	return stock, nil
}

func (t *orderTx) DecrementStock(ctx context.Context, productID string, by int) error {
	ct, err := t.tx.Exec(ctx, decrementStockSQL, productID, by)
	if err != nil {
		return errors.Wrapf(err, "decrement stock %q", productID)
	}
	if ct.RowsAffected() != 1 {
		return errors.Errorf("decrement stock %q: product vanished mid-transaction", productID)
	}
	return nil
}

func (t *orderTx) InsertOrder(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return errors.Wrap(err, "marshal order lines")
	}

	_, err = t.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Buyer.Name, o.Buyer.Phone, o.Buyer.Email,
		linesJSON, o.Total, string(o.Status), o.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}
	return nil
}

// List returns all orders, newest first.
func (s *OrderStore) List(ctx context.Context) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// GetByID returns a single order by its identifier.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := s.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

// UpdateStatus overwrites the status and bumps updated_at.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	ct, err := s.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return errors.Wrapf(err, "update order %q status", id)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		linesJSON []byte
		total     decimal.Decimal
		status    string
	)
	err := row.Scan(&o.ID, &o.Buyer.Name, &o.Buyer.Phone, &o.Buyer.Email,
		&linesJSON, &total, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return o, errors.Wrapf(err, "unmarshal lines for order %q", o.ID)
	}
	o.Total = total
	o.Status = order.Status(status)
	return o, nil
}
