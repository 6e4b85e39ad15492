package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/anoskuns/Ignite-History/internal/models"
)

// Memory implements the Store interface entirely in process. It backs tests
// and ephemeral single-process rooms. Documents are held in their serialized
// form so that, exactly like the database-backed stores, no caller ever
// aliases the stored state; AtomicUpdate holds the mutex across the whole
// read-modify-write, which gives it real isolation under concurrent updaters.
type Memory struct {
	mu    sync.Mutex
	rooms map[string]memoryRow
}

type memoryRow struct {
	raw     []byte
	version int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]memoryRow)}
}

// Close is a no-op; the store has no external connection.
func (store *Memory) Close() {}

// Get retrieves and decodes the current document of a room.
func (store *Memory) Get(ctx context.Context, roomID string) (*models.GameState, error) {
	store.mu.Lock()
	row, ok := store.rooms[roomID]
	store.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeState(row.raw)
}

// Create inserts the genesis document of a room, or reports ErrExists.
func (store *Memory) Create(ctx context.Context, roomID string, state *models.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.rooms[roomID]; ok {
		return ErrExists
	}
	store.rooms[roomID] = memoryRow{raw: raw, version: 1}
	return nil
}

// Put unconditionally overwrites the document of a room.
func (store *Memory) Put(ctx context.Context, roomID string, state *models.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	row := store.rooms[roomID]
	store.rooms[roomID] = memoryRow{raw: raw, version: row.version + 1}
	return nil
}

// AtomicUpdate applies fn under the store mutex, so the read and the write of
// one update can never interleave with another updater of the same store.
func (store *Memory) AtomicUpdate(ctx context.Context, roomID string, fn UpdateFunc) (*models.GameState, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row, ok := store.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}

	state, err := decodeState(row.raw)
	if err != nil {
		return nil, err
	}

	if err := fn(state); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	store.rooms[roomID] = memoryRow{raw: raw, version: row.version + 1}

	return state, nil
}
