// Package redis persists serialized carts in Redis, one JSON blob per cart.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/mastecno/storefront/internal/domain/cart"
)

// cartKey is the key pattern for stored carts: cart:{cartID}.
const cartKey = "cart:"

// DefaultCartTTL keeps abandoned carts around long enough for a shopper to
// come back, without accumulating them forever.
const DefaultCartTTL = 30 * 24 * time.Hour

// NewClient creates a Redis client for the given address.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store on a Redis client. Every Save rewrites the
// whole blob; the reducer owns merging, the store only mirrors state.
type CartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCartStore returns a CartStore with the given TTL for saved carts.
// A non-positive ttl falls back to DefaultCartTTL.
func NewCartStore(rdb *redis.Client, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &CartStore{rdb: rdb, ttl: ttl}
}

// Load returns the saved lines for cartID. A cart that was never saved, or
// whose blob no longer parses, loads as empty rather than failing.
func (s *CartStore) Load(ctx context.Context, cartID string) ([]cart.Line, error) {
	blob, err := s.rdb.Get(ctx, cartKey+cartID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "load cart %q", cartID)
	}

	var lines []cart.Line
	if err := json.Unmarshal(blob, &lines); err != nil {
		return nil, nil
	}
	return cart.NormalizeLines(lines), nil
}

// Save stores the line list under the cart key, refreshing the TTL.
func (s *CartStore) Save(ctx context.Context, cartID string, lines []cart.Line) error {
	blob, err := json.Marshal(lines)
	if err != nil {
		return errors.Wrapf(err, "marshal cart %q", cartID)
	}
	if err := s.rdb.Set(ctx, cartKey+cartID, blob, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "save cart %q", cartID)
	}
	return nil
}

// Delete removes the saved cart.
func (s *CartStore) Delete(ctx context.Context, cartID string) error {
	if err := s.rdb.Del(ctx, cartKey+cartID).Err(); err != nil {
		return errors.Wrapf(err, "delete cart %q", cartID)
	}
	return nil
}
