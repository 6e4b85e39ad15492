// Package app provides the core business logic for the shared game-state
// engine. It handles room login, player request submission, arbiter
// resolution and the direct arbiter operations, and owns the transactional
// applier that commits every mutation atomically against the storage layer.
// Committed snapshots are handed to the watch layer for fan-out to all room
// observers. Logging functionality is provided via the logger package.
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anoskuns/Ignite-History/internal/game"
	"github.com/anoskuns/Ignite-History/internal/models"
	"github.com/anoskuns/Ignite-History/internal/pkg/logger"
	"github.com/anoskuns/Ignite-History/internal/storage"
	"github.com/anoskuns/Ignite-History/internal/watch"
)

// Predefined errors for invalid requests.
var (
	// ErrMissingRoomOrName indicates that either the room code or the display name is not provided.
	ErrMissingRoomOrName = errors.New("app: missing room or name")
	// ErrInvalidRole indicates a role outside the known set.
	ErrInvalidRole = errors.New("app: invalid role")
)

// App encapsulates the application logic and dependencies required to process requests.
// It interacts with the storage layer, fans committed states out through the
// watcher and uses a logger for error and activity logging.
type App struct {
	db      storage.Store
	watcher *watch.Watcher
	log     *logger.Logger

	// Millisecond clock and id generator, replaceable in tests.
	now   func() int64
	newID func() string
}

// NewApp creates and returns a new instance of App with the provided
// storage, watcher and logger dependencies.
func NewApp(db storage.Store, watcher *watch.Watcher, log *logger.Logger) *App {
	return &App{
		db:      db,
		watcher: watcher,
		log:     log,
		now:     func() int64 { return time.Now().UnixMilli() },
		newID:   uuid.NewString,
	}
}

// NormalizeRoomCode canonicalizes a user-supplied room code. Codes are
// case-insensitive; the same code always addresses the same room.
func NormalizeRoomCode(room string) string {
	return strings.ToUpper(strings.TrimSpace(room))
}

// Login joins a room under a display name and a self-declared role, creating
// the room from the static catalog if it does not exist yet. The boundary
// between "create" and "join" is nothing more than document existence: a
// missing room is not an error. Racing creators are resolved by the
// insert-only Create; the loser falls through and joins the winner's room.
// It returns the resulting snapshot and the identity of the joined player.
func (app *App) Login(ctx context.Context, room, name string, role models.Role) (*models.GameState, string, error) {
	if room == "" || name == "" {
		return nil, "", ErrMissingRoomOrName
	}
	if !role.Valid() {
		return nil, "", ErrInvalidRole
	}
	roomID := NormalizeRoomCode(room)

	if _, err := app.db.Get(ctx, roomID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, "", err
		}
		genesis := game.NewGameState(roomID, app.now())
		if err := app.db.Create(ctx, roomID, genesis); err != nil && !errors.Is(err, storage.ErrExists) {
			return nil, "", err
		}
	}

	var player *models.Player
	newID := app.newID()
	state, err := app.apply(ctx, roomID, func(state *models.GameState) error {
		player = game.JoinPlayer(state, newID, name, role, app.now())
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	// JoinPlayer resolves identity by name, so the committed player may be a
	// rejoined one rather than the freshly generated id.
	joined := state.Players[player.ID]
	if joined == nil {
		joined = player
	}
	return state, joined.ID, nil
}

// State returns the current authoritative snapshot of a room.
func (app *App) State(ctx context.Context, roomID string) (*models.GameState, error) {
	return app.db.Get(ctx, roomID)
}

// SubmitRequest records a player's economic request in PENDING state.
// The request amount for property operations is derived from the catalog
// entry inside the commit, regardless of what the client previewed.
func (app *App) SubmitRequest(ctx context.Context, roomID, playerID string, typ models.RequestType, amount int, targetID string) (*models.Request, error) {
	var request *models.Request
	_, err := app.apply(ctx, roomID, func(state *models.GameState) error {
		var err error
		request, err = game.SubmitRequest(state, app.newID(), playerID, typ, amount, targetID, app.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Approve resolves a pending request in the player's favor if it is still
// valid against the authoritative state at commit time, and rejects it
// otherwise. Approving an already-resolved request is a silent no-op.
func (app *App) Approve(ctx context.Context, roomID, requestID string) (game.Outcome, *models.Request, error) {
	return app.resolve(ctx, roomID, requestID, true)
}

// Reject resolves a pending request as REJECTED with no other state change.
// Rejecting an already-resolved request is a silent no-op.
func (app *App) Reject(ctx context.Context, roomID, requestID string) (game.Outcome, *models.Request, error) {
	return app.resolve(ctx, roomID, requestID, false)
}

func (app *App) resolve(ctx context.Context, roomID, requestID string, approve bool) (game.Outcome, *models.Request, error) {
	var outcome game.Outcome
	var request *models.Request
	_, err := app.apply(ctx, roomID, func(state *models.GameState) error {
		var err error
		outcome, request, err = game.Resolve(state, requestID, approve, app.now())
		return err
	})
	if err != nil {
		return game.OutcomeNoop, nil, err
	}
	if outcome == game.OutcomeNoop {
		app.log.WithRoom(roomID).Sugar().Infof("Request %s already resolved, action discarded", requestID)
	}
	return outcome, request, nil
}

// AdjustBalance applies a signed delta to a player's balance as a direct
// arbiter action.
func (app *App) AdjustBalance(ctx context.Context, roomID, playerID string, delta int) error {
	_, err := app.apply(ctx, roomID, func(state *models.GameState) error {
		return game.AdjustBalance(state, playerID, delta, app.now())
	})
	return err
}

// Tax deducts the tax share of the player's authoritative balance and
// returns the deducted amount.
func (app *App) Tax(ctx context.Context, roomID, playerID string) (int, error) {
	var amount int
	_, err := app.apply(ctx, roomID, func(state *models.GameState) error {
		var err error
		amount, err = game.Tax(state, playerID, app.now())
		return err
	})
	return amount, err
}

// Reset returns the room's economy to its genesis values. The operation is
// idempotent and has no precondition.
func (app *App) Reset(ctx context.Context, roomID string) error {
	_, err := app.apply(ctx, roomID, func(state *models.GameState) error {
		game.Reset(state, app.now())
		return nil
	})
	return err
}

// EndGame marks the room as ended; economic mutations are refused until the
// arbiter resets the room.
func (app *App) EndGame(ctx context.Context, roomID string) error {
	_, err := app.apply(ctx, roomID, func(state *models.GameState) error {
		game.EndGame(state, app.now())
		return nil
	})
	return err
}

// Subscribe registers an observer for every committed snapshot of the room
// and returns a function that cancels the subscription.
func (app *App) Subscribe(roomID string, fn watch.Subscriber) func() {
	return app.watcher.Subscribe(roomID, fn)
}

// Publish offers a snapshot to the room's observers, subject to the
// watcher's monotonic freshness guard.
func (app *App) Publish(state *models.GameState) {
	app.watcher.Publish(state)
}
