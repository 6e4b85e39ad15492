package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/anoskuns/Ignite-History/internal/models"
	"github.com/anoskuns/Ignite-History/internal/pkg/logger"
)

const (
	createRoomsTableSQLite = `CREATE TABLE IF NOT EXISTS rooms (
		code TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);`
	getRoomSQLite       = `SELECT state FROM rooms WHERE code = ?;`
	getRoomForCASSQLite = `SELECT state, version FROM rooms WHERE code = ?;`
	insertRoomSQLite    = `INSERT INTO rooms (code, state, version) VALUES (?, ?, 1);`
	upsertRoomSQLite    = `INSERT INTO rooms (code, state, version) VALUES (?, ?, 1) ON CONFLICT (code) DO UPDATE SET state = excluded.state, version = rooms.version + 1;`
	casUpdateRoomSQLite = `UPDATE rooms SET state = ?, version = version + 1 WHERE code = ? AND version = ?;`
)

// SQLite implements the Store interface on an embedded SQLite database.
// It is the degraded single-device backend: there is no server to push
// changes, so cross-process observers learn about commits only through the
// convergence layer's polling. The commit discipline is identical to the
// PostgreSQL store (version compare-and-swap).
type SQLite struct {
	db  *sql.DB
	log *logger.Logger
}

// NewSQLite opens (or creates) the database file at path and prepares the
// rooms table. The connection pool is capped at a single connection, which
// sidesteps SQLITE_BUSY contention between pool connections.
func NewSQLite(path string, l *logger.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		l.Sugar().Errorf("Failed to open sqlite database: %s", err)
		return &SQLite{db: db, log: l}, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), createRoomsTableSQLite); err != nil {
		l.Sugar().Errorf("Failed to create rooms table: %s", err)
		return &SQLite{db: db, log: l}, err
	}

	return &SQLite{db: db, log: l}, nil
}

// Close closes the database connection if it is open.
func (store *SQLite) Close() {
	if store.db != nil {
		store.db.Close()
	}
}

// Get retrieves and decodes the current document of a room.
func (store *SQLite) Get(ctx context.Context, roomID string) (*models.GameState, error) {
	var raw []byte
	err := store.db.QueryRowContext(ctx, getRoomSQLite, roomID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		store.log.Sugar().Errorf("Failed to execute a query getRoomSQLite: %s", err)
		return nil, err
	}
	return decodeState(raw)
}

// Create inserts the genesis document of a room, reporting ErrExists when a
// row with the same code is already present.
func (store *SQLite) Create(ctx context.Context, roomID string, state *models.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = store.db.ExecContext(ctx, insertRoomSQLite, roomID, raw)
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return ErrExists
		}
	}
	if err != nil {
		store.log.Sugar().Errorf("Failed to execute a query insertRoomSQLite: %s", err)
		return err
	}
	return nil
}

// Put unconditionally overwrites the document of a room.
func (store *SQLite) Put(ctx context.Context, roomID string, state *models.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if _, err := store.db.ExecContext(ctx, upsertRoomSQLite, roomID, raw); err != nil {
		store.log.Sugar().Errorf("Failed to execute a query upsertRoomSQLite: %s", err)
		return err
	}
	return nil
}

// AtomicUpdate applies fn to the freshly-read document and commits it with a
// version compare-and-swap, failing with ErrConflict when another writer got
// in between.
func (store *SQLite) AtomicUpdate(ctx context.Context, roomID string, fn UpdateFunc) (*models.GameState, error) {
	var raw []byte
	var version int64

	err := store.db.QueryRowContext(ctx, getRoomForCASSQLite, roomID).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		store.log.Sugar().Errorf("Failed to execute a query getRoomForCASSQLite: %s", err)
		return nil, err
	}

	state, err := decodeState(raw)
	if err != nil {
		return nil, err
	}

	if err := fn(state); err != nil {
		return nil, err
	}

	updated, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}

	result, err := store.db.ExecContext(ctx, casUpdateRoomSQLite, updated, roomID, version)
	if err != nil {
		store.log.Sugar().Errorf("Failed to execute a query casUpdateRoomSQLite: %s", err)
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		store.log.Sugar().Errorf("Failed to execute RowsAffected in casUpdateRoomSQLite: %s", err)
		return nil, err
	}
	if rows == 0 {
		return nil, ErrConflict
	}

	return state, nil
}
