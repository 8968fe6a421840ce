// Package store is the system of record for events.
package store

import (
	"context"
	"errors"
	"time"

	"centercal/internal/model"
)

// ErrNotFound is returned when a requested event does not exist.
var ErrNotFound = errors.New("event not found")

// Store defines the read/write operations the service requires from its
// backing store.
type Store interface {
	// Insert stores a new event, assigning ID and CreatedAt on the record.
	Insert(ctx context.Context, ev *model.Event) error

	// GetByID returns a single event or ErrNotFound.
	GetByID(ctx context.Context, id string) (model.Event, error)

	// ListUpcoming returns events with Start >= from, ascending by Start.
	ListUpcoming(ctx context.Context, from time.Time) ([]model.Event, error)

	// ListBetween returns events with Start in [from, to), ascending by Start.
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Event, error)

	Close() error
}
