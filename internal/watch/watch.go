// Package watch implements the state-convergence layer: it delivers every
// committed GameState to every observer of a room and keeps each observer's
// view monotonic by freshness timestamp. Delivery happens through two
// interchangeable paths sharing one Publish/Subscribe surface: commits made
// in this process are published immediately (push), while commits made by
// other processes against the shared store are discovered by a per-room poll
// loop (pull). A snapshot is only ever adopted if it is strictly newer than
// the one currently held, so a slow poll can never regress an observer to
// stale data.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/anoskuns/Ignite-History/internal/models"
	"github.com/anoskuns/Ignite-History/internal/pkg/logger"
	"github.com/anoskuns/Ignite-History/internal/storage"
)

// Subscriber receives the full current GameState after each adopted commit.
// The state must be treated as read-only. Callbacks run while the feed is
// locked, so they must not block and must not call back into the Watcher;
// slow consumers hand the snapshot off to their own buffer.
type Subscriber func(state *models.GameState)

// Watcher fans committed snapshots out to room observers. The zero interval
// disables polling, leaving only the in-process push path; that is the right
// mode when a single process owns the store.
type Watcher struct {
	store    storage.Store
	interval time.Duration
	log      *logger.Logger

	mu    sync.Mutex
	rooms map[string]*feed
}

type feed struct {
	subs   map[int]Subscriber
	nextID int
	latest *models.GameState
	cancel context.CancelFunc
}

// NewWatcher creates a Watcher over the given store. interval is the polling
// period for discovering commits made by other processes; zero disables it.
func NewWatcher(store storage.Store, interval time.Duration, l *logger.Logger) *Watcher {
	return &Watcher{
		store:    store,
		interval: interval,
		log:      l,
		rooms:    make(map[string]*feed),
	}
}

// Subscribe registers fn as an observer of the room and returns a function
// that cancels the subscription. The first subscriber of a room starts its
// poll loop; the last one leaving stops it. If a snapshot of the room is
// already held, fn receives it immediately.
func (w *Watcher) Subscribe(roomID string, fn Subscriber) func() {
	w.mu.Lock()
	f, ok := w.rooms[roomID]
	if !ok {
		f = &feed{subs: make(map[int]Subscriber)}
		w.rooms[roomID] = f
		if w.interval > 0 && w.store != nil {
			ctx, cancel := context.WithCancel(context.Background())
			f.cancel = cancel
			go w.poll(ctx, roomID)
		}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	// Replay under the lock: a racing Publish cannot slip a fresher
	// snapshot in front of this one.
	if f.latest != nil {
		fn(f.latest)
	}
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			f, ok := w.rooms[roomID]
			if !ok {
				return
			}
			delete(f.subs, id)
			if len(f.subs) == 0 {
				if f.cancel != nil {
					f.cancel()
				}
				delete(w.rooms, roomID)
			}
		})
	}
}

// Publish offers a committed snapshot to the room's observers. Snapshots that
// are not strictly newer than the one already held are dropped; this single
// guard covers both the push path and the poll path, which makes the two
// delivery modes behaviorally interchangeable for consumers.
//
// Adoption and delivery are one atomic step under the feed lock. If the
// callbacks ran after the lock was released, two racing publishes could reach
// a subscriber in inverted freshness order and leave it holding the stale
// snapshot with the guard already advanced past the fresh one.
func (w *Watcher) Publish(state *models.GameState) {
	if state == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.rooms[state.RoomID]
	if !ok {
		return
	}
	if f.latest != nil && state.LastUpdated <= f.latest.LastUpdated {
		return
	}
	f.latest = state
	for _, fn := range f.subs {
		fn(state)
	}
}

func (w *Watcher) poll(ctx context.Context, roomID string) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state, err := w.store.Get(ctx, roomID)
			if err != nil {
				// NotFound just means the room has not been created yet;
				// anything else is transient connectivity trouble. Either
				// way the next tick retries.
				continue
			}
			w.Publish(state)
		}
	}
}
