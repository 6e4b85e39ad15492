package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoskuns/Ignite-History/internal/game"
	"github.com/anoskuns/Ignite-History/internal/models"
	"github.com/anoskuns/Ignite-History/internal/pkg/logger"
	"github.com/anoskuns/Ignite-History/internal/storage"
	"github.com/anoskuns/Ignite-History/internal/watch"
)

func newTestApp(t *testing.T, store storage.Store) *App {
	t.Helper()
	l, err := logger.CreateLogger("info")
	require.NoError(t, err)
	return NewApp(store, watch.NewWatcher(nil, 0, l), l)
}

// conflictStore wraps a Store and makes the next n atomic commits fail with
// a concurrency conflict before letting them through.
type conflictStore struct {
	storage.Store
	conflicts int
}

func (store *conflictStore) AtomicUpdate(ctx context.Context, roomID string, fn storage.UpdateFunc) (*models.GameState, error) {
	if store.conflicts > 0 {
		store.conflicts--
		return nil, storage.ErrConflict
	}
	return store.Store.AtomicUpdate(ctx, roomID, fn)
}

func TestLoginCreatesRoom(t *testing.T) {
	app := newTestApp(t, storage.NewMemory())
	ctx := context.Background()

	state, playerID, err := app.Login(ctx, "abc", "Alice", models.RolePlayer)
	require.NoError(t, err)

	assert.Equal(t, "ABC", state.RoomID, "room codes are normalized to uppercase")
	assert.Len(t, state.Properties, len(game.Catalog()))
	player := state.Players[playerID]
	require.NotNil(t, player)
	assert.Equal(t, "Alice", player.Name)
	assert.Equal(t, game.InitialBalance, player.Balance)
}

func TestLoginJoinsExistingRoom(t *testing.T) {
	app := newTestApp(t, storage.NewMemory())
	ctx := context.Background()

	_, aliceID, err := app.Login(ctx, "ABC", "Alice", models.RolePlayer)
	require.NoError(t, err)

	state, bobID, err := app.Login(ctx, "abc", "Bob", models.RolePlayer)
	require.NoError(t, err)

	assert.NotEqual(t, aliceID, bobID)
	assert.Len(t, state.Players, 2)
}

func TestLoginRejoinsByName(t *testing.T) {
	app := newTestApp(t, storage.NewMemory())
	ctx := context.Background()

	_, firstID, err := app.Login(ctx, "ABC", "Alice", models.RolePlayer)
	require.NoError(t, err)

	state, secondID, err := app.Login(ctx, "ABC", "Alice", models.RoleArbiter)
	require.NoError(t, err)

	assert.Equal(t, firstID, secondID, "same name resumes the same player")
	assert.Len(t, state.Players, 1)
	assert.Equal(t, models.RoleArbiter, state.Players[secondID].Role)
}

func TestLoginValidation(t *testing.T) {
	app := newTestApp(t, storage.NewMemory())
	ctx := context.Background()

	_, _, err := app.Login(ctx, "", "Alice", models.RolePlayer)
	assert.ErrorIs(t, err, ErrMissingRoomOrName)

	_, _, err = app.Login(ctx, "ABC", "", models.RolePlayer)
	assert.ErrorIs(t, err, ErrMissingRoomOrName)

	_, _, err = app.Login(ctx, "ABC", "Alice", models.Role("king"))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestSubmitAndApprove(t *testing.T) {
	app := newTestApp(t, storage.NewMemory())
	ctx := context.Background()

	_, playerID, err := app.Login(ctx, "ABC", "Alice", models.RolePlayer)
	require.NoError(t, err)

	request, err := app.SubmitRequest(ctx, "ABC", playerID, models.RequestAcquire, 0, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, request.Status)
	assert.Equal(t, 40, request.Amount)

	outcome, resolved, err := app.Approve(ctx, "ABC", request.ID)
	require.NoError(t, err)
	assert.Equal(t, game.OutcomeApplied, outcome)
	assert.Equal(t, models.StatusApproved, resolved.Status)

	state, err := app.State(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, 160, state.Players[playerID].Balance)
	assert.Equal(t, 1, state.Players[playerID].PropertiesCount)
	assert.Equal(t, playerID, state.Properties["p1"].OwnerID)
	assert.Equal(t, 1, state.Properties["p1"].Level)
}

func TestApproveStaleClientPreview(t *testing.T) {
	app := newTestApp(t, storage.NewMemory())
	ctx := context.Background()

	_, playerID, err := app.Login(ctx, "ABC", "Alice", models.RolePlayer)
	require.NoError(t, err)

	request, err := app.SubmitRequest(ctx, "ABC", playerID, models.RequestAcquire, 0, "p1")
	require.NoError(t, err)

	// The player's balance drops after the request was submitted; the
	// arbiter approves anyway. Commit-time re-validation must reject.
	require.NoError(t, app.AdjustBalance(ctx, "ABC", playerID, -180))

	outcome, resolved, err := app.Approve(ctx, "ABC", request.ID)
	require.NoError(t, err)
	assert.Equal(t, game.OutcomeRejected, outcome)
	assert.Equal(t, models.StatusRejected, resolved.Status)

	state, err := app.State(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, 20, state.Players[playerID].Balance)
	assert.False(t, state.Properties["p1"].Owned())
}

func TestApproveDoubleSaleRace(t *testing.T) {
	app := newTestApp(t, storage.NewMemory())
	ctx := context.Background()

	_, aliceID, err := app.Login(ctx, "ABC", "Alice", models.RolePlayer)
	require.NoError(t, err)
	_, bobID, err := app.Login(ctx, "ABC", "Bob", models.RolePlayer)
	require.NoError(t, err)

	aliceRequest, err := app.SubmitRequest(ctx, "ABC", aliceID, models.RequestAcquire, 0, "p1")
	require.NoError(t, err)
	bobRequest, err := app.SubmitRequest(ctx, "ABC", bobID, models.RequestAcquire, 0, "p1")
	require.NoError(t, err)

	outcome1, _, err := app.Approve(ctx, "ABC", aliceRequest.ID)
	require.NoError(t, err)
	outcome2, _, err := app.Approve(ctx, "ABC", bobRequest.ID)
	require.NoError(t, err)

	assert.Equal(t, game.OutcomeApplied, outcome1)
	assert.Equal(t, game.OutcomeRejected, outcome2)

	state, err := app.State(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, aliceID, state.Properties["p1"].OwnerID)
	assert.Equal(t, 200, state.Players[bobID].Balance)
}

func TestApproveIdempotence(t *testing.T) {
	app := newTestApp(t, storage.NewMemory())
	ctx := context.Background()

	_, playerID, err := app.Login(ctx, "ABC", "Alice", models.RolePlayer)
	require.NoError(t, err)

	request, err := app.SubmitRequest(ctx, "ABC", playerID, models.RequestSalary, 0, "")
	require.NoError(t, err)

	outcome, _, err := app.Approve(ctx, "ABC", request.ID)
	require.NoError(t, err)
	require.Equal(t, game.OutcomeApplied, outcome)

	outcome, _, err = app.Approve(ctx, "ABC", request.ID)
	require.NoError(t, err)
	assert.Equal(t, game.OutcomeNoop, outcome)

	state, err := app.State(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, game.InitialBalance+game.SalaryAmount, state.Players[playerID].Balance,
		"salary must be granted exactly once")
}

func TestApplyRetriesConflicts(t *testing.T) {
	memory := storage.NewMemory()
	flaky := &conflictStore{Store: memory, conflicts: maxApplyRetries - 1}
	app := newTestApp(t, flaky)
	ctx := context.Background()

	_, playerID, err := app.Login(ctx, "ABC", "Alice", models.RolePlayer)
	require.NoError(t, err)

	state, err := app.State(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, game.InitialBalance, state.Players[playerID].Balance)
}

func TestApplySurfacesExhaustedRetries(t *testing.T) {
	memory := storage.NewMemory()
	require.NoError(t, memory.Create(context.Background(), "ABC", game.NewGameState("ABC", 1000)))

	flaky := &conflictStore{Store: memory, conflicts: maxApplyRetries}
	app := newTestApp(t, flaky)

	err := app.Reset(context.Background(), "ABC")
	assert.ErrorIs(t, err, ErrTooManyConflicts)
}

func TestTaxUsesAuthoritativeBalance(t *testing.T) {
	app := newTestApp(t, storage.NewMemory())
	ctx := context.Background()

	_, playerID, err := app.Login(ctx, "ABC", "Alice", models.RolePlayer)
	require.NoError(t, err)
	require.NoError(t, app.AdjustBalance(ctx, "ABC", playerID, -100)) // balance 100

	amount, err := app.Tax(ctx, "ABC", playerID)
	require.NoError(t, err)

	assert.Equal(t, 15, amount)
	state, err := app.State(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, 85, state.Players[playerID].Balance)
}

func TestResetAndEndGame(t *testing.T) {
	app := newTestApp(t, storage.NewMemory())
	ctx := context.Background()

	_, playerID, err := app.Login(ctx, "ABC", "Alice", models.RolePlayer)
	require.NoError(t, err)

	request, err := app.SubmitRequest(ctx, "ABC", playerID, models.RequestAcquire, 0, "p1")
	require.NoError(t, err)
	_, _, err = app.Approve(ctx, "ABC", request.ID)
	require.NoError(t, err)

	require.NoError(t, app.EndGame(ctx, "ABC"))
	_, err = app.SubmitRequest(ctx, "ABC", playerID, models.RequestSalary, 0, "")
	assert.ErrorIs(t, err, game.ErrRoomEnded)

	require.NoError(t, app.Reset(ctx, "ABC"))

	state, err := app.State(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, models.RoomActive, state.Status)
	assert.Equal(t, game.InitialBalance, state.Players[playerID].Balance)
	assert.Equal(t, 0, state.Players[playerID].PropertiesCount)
	assert.Empty(t, state.Requests)
	assert.False(t, state.Properties["p1"].Owned())
}

func TestCommitsArePublished(t *testing.T) {
	l, err := logger.CreateLogger("info")
	require.NoError(t, err)
	watcher := watch.NewWatcher(nil, 0, l)
	app := NewApp(storage.NewMemory(), watcher, l)
	ctx := context.Background()

	received := make(chan *models.GameState, 8)
	unsub := watcher.Subscribe("ABC", func(state *models.GameState) { received <- state })
	defer unsub()

	_, playerID, err := app.Login(ctx, "ABC", "Alice", models.RolePlayer)
	require.NoError(t, err)
	require.Len(t, received, 1, "login commit must reach subscribers")
	<-received

	require.NoError(t, app.AdjustBalance(ctx, "ABC", playerID, 50))
	require.Len(t, received, 1, "balance commit must reach subscribers")
	state := <-received
	assert.Equal(t, 250, state.Players[playerID].Balance)
}
