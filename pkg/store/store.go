// Package store persists wishlist items.
//
// Items get their ids from the store at insertion time; ids are unique,
// strictly increasing, and never reused, even across a Clear.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no item exists for the given id.
var ErrNotFound = errors.New("item not found")

// Item is one wishlist entry.
type Item struct {
	ID          int64  `json:"id"`
	Contributor string `json:"contributor"`
	Description string `json:"description"`
	Claimed     bool   `json:"claimed"`
}

// Store is the durable item collection. Every mutating call persists
// synchronously before returning, so a restart observes the last
// completed mutation.
type Store interface {
	// Insert adds a new unclaimed item and returns its assigned id.
	// Callers validate that description is non-empty before calling.
	Insert(ctx context.Context, contributor, description string) (int64, error)

	// Get returns the item with the given id, or ErrNotFound.
	Get(ctx context.Context, id int64) (*Item, error)

	// SetClaimed sets the claimed flag and returns the updated item.
	// Idempotent: applying the same value twice is not an error.
	SetClaimed(ctx context.Context, id int64, claimed bool) (*Item, error)

	// ListAll returns every item in insertion order (ascending id).
	ListAll(ctx context.Context) ([]*Item, error)

	// Clear removes every item. Ids are not reused afterwards.
	Clear(ctx context.Context) error

	Close() error
}
