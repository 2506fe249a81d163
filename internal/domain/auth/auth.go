// Package auth defines API key authentication for the admin surface.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo is the stored record for an admin API key. Keys are stored only
// as HMAC-SHA256 hashes.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository provides API key lookups.
type Repository interface {
	// FindByHash returns the active key record matching the given hex hash,
	// or an error when no such key exists.
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
