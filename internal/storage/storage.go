// Package storage provides primitives for connecting to and interacting with
// the authoritative room store. It defines the Store interface along with
// PostgreSQL, SQLite and in-memory implementations that persist the shared
// GameState document and expose the atomic read-modify-write primitive the
// transactional applier is built on.
package storage

import (
	"context"
	"errors"

	"github.com/anoskuns/Ignite-History/internal/models"
)

// Sentinel errors shared by every Store implementation.
var (
	// ErrNotFound indicates no document exists for the room. At login time
	// this is the signal to create the room, not a failure.
	ErrNotFound = errors.New("storage: room not found")
	// ErrExists indicates a Create lost the race against a concurrent
	// creator; the caller should fall back to joining the existing room.
	ErrExists = errors.New("storage: room already exists")
	// ErrConflict indicates an AtomicUpdate detected a concurrent
	// modification between its read and its write. The caller may retry the
	// whole operation from the read step.
	ErrConflict = errors.New("storage: concurrent modification")
)

// UpdateFunc mutates a freshly-read GameState in place. Returning an error
// aborts the update without writing anything.
type UpdateFunc func(state *models.GameState) error

// Store is the authoritative shared state store consumed by the core.
// One document exists per room; the document is the sole unit of atomic
// mutation. Implementations must guarantee that AtomicUpdate applies fn to
// the current document and commits all of its writes together or none.
type Store interface {
	// Close releases the underlying connection.
	Close()

	// Get returns the current document of the room, or ErrNotFound.
	Get(ctx context.Context, roomID string) (*models.GameState, error)

	// Create inserts the genesis document of a room. It never overwrites:
	// if the room already exists it returns ErrExists.
	Create(ctx context.Context, roomID string, state *models.GameState) error

	// Put unconditionally overwrites the document of a room.
	Put(ctx context.Context, roomID string, state *models.GameState) error

	// AtomicUpdate reads the current document, applies fn to it and commits
	// the result, failing with ErrConflict if the document changed in
	// between. It makes a single attempt; retry policy belongs to the caller.
	AtomicUpdate(ctx context.Context, roomID string, fn UpdateFunc) (*models.GameState, error)
}
