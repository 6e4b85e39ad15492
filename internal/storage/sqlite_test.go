package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoskuns/Ignite-History/internal/game"
	"github.com/anoskuns/Ignite-History/internal/models"
	"github.com/anoskuns/Ignite-History/internal/pkg/logger"
)

func newSQLiteStore(t *testing.T) *SQLite {
	t.Helper()
	l, err := logger.CreateLogger("info")
	require.NoError(t, err)

	store, err := NewSQLite(filepath.Join(t.TempDir(), "rooms.db"), l)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestSQLiteCreateDuplicate(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "ROOM1", game.NewGameState("ROOM1", 1000)))

	err := store.Create(ctx, "ROOM1", game.NewGameState("ROOM1", 2000))
	assert.ErrorIs(t, err, ErrExists, "second insert of the same room code must classify as ErrExists")

	got, err := store.Get(ctx, "ROOM1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.LastUpdated, "losing creator must not overwrite the winner's document")
}

func TestSQLiteAtomicUpdate(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	state := game.NewGameState("ROOM1", 1000)
	game.JoinPlayer(state, "player1", "Alice", models.RolePlayer, 1001)
	require.NoError(t, store.Create(ctx, "ROOM1", state))

	t.Run("missing room", func(t *testing.T) {
		_, err := store.AtomicUpdate(ctx, "GHOST", func(state *models.GameState) error { return nil })
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("commit is visible to readers", func(t *testing.T) {
		_, err := store.AtomicUpdate(ctx, "ROOM1", func(state *models.GameState) error {
			state.Players["player1"].Balance += 50
			return nil
		})
		require.NoError(t, err)

		got, err := store.Get(ctx, "ROOM1")
		require.NoError(t, err)
		assert.Equal(t, game.InitialBalance+50, got.Players["player1"].Balance)
	})

	t.Run("aborting fn writes nothing", func(t *testing.T) {
		before, err := store.Get(ctx, "ROOM1")
		require.NoError(t, err)

		_, err = store.AtomicUpdate(ctx, "ROOM1", func(state *models.GameState) error {
			state.Players["player1"].Balance = 0
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)

		after, err := store.Get(ctx, "ROOM1")
		require.NoError(t, err)
		assert.Equal(t, before.Players["player1"].Balance, after.Players["player1"].Balance)
	})
}
