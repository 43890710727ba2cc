// Package storage persists opaque records under string keys. Records are
// versioned JSON produced by the repository layer; the stores never look
// inside them.
package storage

import (
	"context"

	"github.com/stemsi/quizlr/internal/apperror"
)

// ErrNotFound is returned (wrapped) when a key does not exist.
var ErrNotFound = apperror.ErrNotFound

// Store is a flat key/value store with prefix listing.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put creates or replaces the value under key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key returns ErrNotFound.
	Delete(ctx context.Context, key string) error
	// List returns every key starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

func notFound(key string) error {
	return apperror.New(ErrNotFound, "key %s", key)
}
