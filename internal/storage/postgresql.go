package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/anoskuns/Ignite-History/internal/models"
	"github.com/anoskuns/Ignite-History/internal/pkg/logger"
)

const (
	createRoomsTableQuery = `CREATE TABLE IF NOT EXISTS rooms (
		code TEXT PRIMARY KEY,
		state JSONB NOT NULL,
		version BIGINT NOT NULL DEFAULT 1
	);`
	getRoomQuery        = `SELECT state FROM rooms WHERE code = $1;`
	getRoomForCASQuery  = `SELECT state, version FROM rooms WHERE code = $1;`
	insertRoomQuery     = `INSERT INTO rooms (code, state, version) VALUES ($1, $2, 1);`
	upsertRoomQuery     = `INSERT INTO rooms (code, state, version) VALUES ($1, $2, 1) ON CONFLICT (code) DO UPDATE SET state = EXCLUDED.state, version = rooms.version + 1;`
	casUpdateRoomQuery  = `UPDATE rooms SET state = $1, version = version + 1 WHERE code = $2 AND version = $3;`
)

// PostgreSQL implements the Store interface on top of a PostgreSQL database.
// Every room is one row; AtomicUpdate relies on an optimistic compare-and-swap
// over the row's version counter, so an interleaved writer makes the commit
// fail with ErrConflict instead of silently overwriting.
type PostgreSQL struct {
	db  *sql.DB
	log *logger.Logger
}

// NewPostgreSQL creates a new PostgreSQL store with the provided connection
// string and logger. It opens the connection, pings the database to ensure
// connectivity and creates the rooms table if it does not exist yet.
func NewPostgreSQL(configDBString string, l *logger.Logger) (*PostgreSQL, error) {
	db, err := sql.Open("pgx", configDBString)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	const defaultTimeout = 10 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		l.Sugar().Errorf("Database ping failed: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	if _, err := db.ExecContext(ctx, createRoomsTableQuery); err != nil {
		l.Sugar().Errorf("Failed to create rooms table: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	return &PostgreSQL{db: db, log: l}, nil
}

// Close closes the database connection if it is open.
func (postgresql *PostgreSQL) Close() {
	if postgresql.db != nil {
		postgresql.db.Close()
	}
}

// Get retrieves and decodes the current document of a room.
func (postgresql *PostgreSQL) Get(ctx context.Context, roomID string) (*models.GameState, error) {
	var raw []byte
	err := postgresql.db.QueryRowContext(ctx, getRoomQuery, roomID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getRoomQuery: %s", err)
		return nil, err
	}
	return decodeState(raw)
}

// Create inserts the genesis document of a room. A unique violation means a
// concurrent creator won the race and is reported as ErrExists.
func (postgresql *PostgreSQL) Create(ctx context.Context, roomID string, state *models.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = postgresql.db.ExecContext(ctx, insertRoomQuery, roomID, raw)
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation {
		return ErrExists
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query insertRoomQuery: %s", err)
		return err
	}
	return nil
}

// Put unconditionally overwrites the document of a room, creating it if
// necessary.
func (postgresql *PostgreSQL) Put(ctx context.Context, roomID string, state *models.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if _, err := postgresql.db.ExecContext(ctx, upsertRoomQuery, roomID, raw); err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query upsertRoomQuery: %s", err)
		return err
	}
	return nil
}

// AtomicUpdate reads the current document, applies fn and commits the result
// guarded by the version the read observed. If another writer committed in
// between, zero rows match and the attempt fails with ErrConflict without
// having written anything.
func (postgresql *PostgreSQL) AtomicUpdate(ctx context.Context, roomID string, fn UpdateFunc) (*models.GameState, error) {
	var raw []byte
	var version int64

	err := postgresql.db.QueryRowContext(ctx, getRoomForCASQuery, roomID).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getRoomForCASQuery: %s", err)
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

	result, err := postgresql.db.ExecContext(ctx, casUpdateRoomQuery, updated, roomID, version)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query casUpdateRoomQuery: %s", err)
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected in casUpdateRoomQuery: %s", err)
		return nil, err
	}
	if rows == 0 {
		return nil, ErrConflict
	}

	return state, nil
}

func decodeState(raw []byte) (*models.GameState, error) {
	state := &models.GameState{}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, err
	}
	return state, nil
}
