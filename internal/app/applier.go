package app

import (
	"context"
	"errors"

	"github.com/anoskuns/Ignite-History/internal/models"
	"github.com/anoskuns/Ignite-History/internal/storage"
)

// maxApplyRetries bounds how often a conflicted commit is retried from the
// read step before the failure is surfaced as transient.
const maxApplyRetries = 3

// ErrTooManyConflicts indicates a mutation repeatedly lost the commit race
// against concurrent writers. Nothing was written; the caller may retry the
// whole operation.
var ErrTooManyConflicts = errors.New("app: too many concurrent modifications")

// apply commits a single mutation intent to the authoritative state of a
// room. Each attempt re-reads the current document and re-runs fn against
// it, so the intent is always validated against fresh state, never a stale
// caller copy. A detected concurrent modification restarts the attempt; the
// commit either applies all of fn's writes or none of them. Successful
// commits are fanned out to the room's observers.
func (app *App) apply(ctx context.Context, roomID string, fn storage.UpdateFunc) (*models.GameState, error) {
	for attempt := 1; ; attempt++ {
		state, err := app.db.AtomicUpdate(ctx, roomID, fn)
		if errors.Is(err, storage.ErrConflict) {
			if attempt >= maxApplyRetries {
				app.log.WithRoom(roomID).Sugar().Warnf("Commit conflicted %d times, giving up", attempt)
				return nil, ErrTooManyConflicts
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		app.watcher.Publish(state)
		return state, nil
	}
}
