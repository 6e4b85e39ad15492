package game

import (
	"errors"
	"math"

	"github.com/anoskuns/Ignite-History/internal/models"
)

// Errors reported by the rules when an intent cannot be evaluated at all.
// Note that an invalid but well-formed request is not an error: it resolves
// the request to REJECTED, which is a normal terminal outcome.
var (
	// ErrPlayerNotFound indicates the referenced player does not exist in the room.
	ErrPlayerNotFound = errors.New("game: player not found")
	// ErrRequestNotFound indicates the referenced request does not exist in the room.
	ErrRequestNotFound = errors.New("game: request not found")
	// ErrPropertyNotFound indicates the referenced property is not in the catalog.
	ErrPropertyNotFound = errors.New("game: property not found")
	// ErrRoomEnded indicates the room has been ended and no longer accepts
	// economic mutations.
	ErrRoomEnded = errors.New("game: room has ended")
	// ErrUnknownRequestType indicates a request type outside the known set.
	ErrUnknownRequestType = errors.New("game: unknown request type")
)

// Outcome describes what applying an intent did to the state.
type Outcome int

const (
	// OutcomeApplied means the intent mutated the state as asked.
	OutcomeApplied Outcome = iota
	// OutcomeRejected means re-validation failed and the only mutation is the
	// request's own status flipping to REJECTED.
	OutcomeRejected
	// OutcomeNoop means the intent targeted an already-resolved request and
	// was discarded without any mutation.
	OutcomeNoop
)

// String returns a short human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeRejected:
		return "rejected"
	case OutcomeNoop:
		return "noop"
	}
	return "unknown"
}

// NewGameState builds the genesis document of a room: the full catalog with
// every property unowned at level 0, no players and no requests.
func NewGameState(roomID string, now int64) *models.GameState {
	properties := make(map[string]*models.Property)
	for _, entry := range Catalog() {
		property := entry
		properties[property.ID] = &property
	}
	return &models.GameState{
		RoomID:      roomID,
		Status:      models.RoomActive,
		Players:     make(map[string]*models.Player),
		Properties:  properties,
		Requests:    make(map[string]*models.Request),
		LastUpdated: now,
	}
}

// JoinPlayer adds a participant to the room or rejoins an existing one.
// Identity is keyed by display name: logging in again under the same name
// resumes the same player, and a differing role claim updates the stored
// role. New players receive the given id and the initial stake.
func JoinPlayer(state *models.GameState, id, name string, role models.Role, now int64) *models.Player {
	for _, player := range state.Players {
		if player.Name == name {
			if player.Role != role {
				player.Role = role
				touch(state, now)
			}
			return player
		}
	}

	player := &models.Player{
		ID:       id,
		Name:     name,
		Balance:  InitialBalance,
		Role:     role,
		JoinedAt: now,
	}
	state.Players[player.ID] = player
	touch(state, now)
	return player
}

// SubmitRequest appends a PENDING request to the room. The amount carried by
// ACQUIRE and UPGRADE requests is derived from the target property here, not
// taken from the caller, so a stale or dishonest client cannot discount its
// own purchase. A SALARY request without an explicit amount receives the
// fixed salary grant.
func SubmitRequest(state *models.GameState, requestID, playerID string, typ models.RequestType, amount int, targetID string, now int64) (*models.Request, error) {
	if state.Status == models.RoomEnded {
		return nil, ErrRoomEnded
	}
	player, ok := state.Players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}

	request := &models.Request{
		ID:         requestID,
		Type:       typ,
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Status:     models.StatusPending,
		Timestamp:  now,
	}

	switch typ {
	case models.RequestAcquire, models.RequestUpgrade:
		property, ok := state.Properties[targetID]
		if !ok {
			return nil, ErrPropertyNotFound
		}
		request.TargetID = property.ID
		request.TargetName = property.Name
		if typ == models.RequestAcquire {
			request.Amount = property.Price
		} else {
			request.Amount = property.UpgradeCost
		}
	case models.RequestSalary:
		request.Amount = amount
		if request.Amount <= 0 {
			request.Amount = SalaryAmount
		}
	default:
		return nil, ErrUnknownRequestType
	}

	state.Requests[request.ID] = request
	touch(state, now)
	return request, nil
}

// Resolve is the decision function for an arbiter approve or reject action.
// It re-validates the request against the state it is handed, which must be
// the freshly-read authoritative state, never a caller's cached copy.
//
// An approval whose validation fails flips the request to REJECTED with no
// other mutation. A request that is already terminal yields OutcomeNoop: the
// second of two racing arbiter actions is discarded silently.
func Resolve(state *models.GameState, requestID string, approve bool, now int64) (Outcome, *models.Request, error) {
	if state.Status == models.RoomEnded {
		return OutcomeNoop, nil, ErrRoomEnded
	}
	request, ok := state.Requests[requestID]
	if !ok {
		return OutcomeNoop, nil, ErrRequestNotFound
	}
	if request.Status != models.StatusPending {
		return OutcomeNoop, request, nil
	}

	if !approve {
		request.Status = models.StatusRejected
		touch(state, now)
		return OutcomeApplied, request, nil
	}

	player, ok := state.Players[request.PlayerID]
	if !ok {
		return reject(state, request, now)
	}

	switch request.Type {
	case models.RequestAcquire:
		property, ok := state.Properties[request.TargetID]
		if !ok || property.Owned() || player.Balance < request.Amount {
			return reject(state, request, now)
		}
		player.Balance -= request.Amount
		player.PropertiesCount++
		property.OwnerID = player.ID
		property.Level = 1
	case models.RequestUpgrade:
		property, ok := state.Properties[request.TargetID]
		if !ok || property.OwnerID != player.ID || property.Level >= MaxLevel || player.Balance < request.Amount {
			return reject(state, request, now)
		}
		player.Balance -= request.Amount
		property.Level++
	case models.RequestSalary:
		player.Balance += request.Amount
	default:
		return reject(state, request, now)
	}

	request.Status = models.StatusApproved
	touch(state, now)
	return OutcomeApplied, request, nil
}

func reject(state *models.GameState, request *models.Request, now int64) (Outcome, *models.Request, error) {
	request.Status = models.StatusRejected
	touch(state, now)
	return OutcomeRejected, request, nil
}

// AdjustBalance applies a signed delta to a player's balance. This is a
// direct arbiter action and bypasses the request workflow entirely.
func AdjustBalance(state *models.GameState, playerID string, delta int, now int64) error {
	if state.Status == models.RoomEnded {
		return ErrRoomEnded
	}
	player, ok := state.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	player.Balance += delta
	touch(state, now)
	return nil
}

// Tax deducts floor(balance * TaxRate) from a player's balance and returns
// the deducted amount. The amount is computed from the balance inside the
// commit boundary, never from a possibly stale client view.
func Tax(state *models.GameState, playerID string, now int64) (int, error) {
	if state.Status == models.RoomEnded {
		return 0, ErrRoomEnded
	}
	player, ok := state.Players[playerID]
	if !ok {
		return 0, ErrPlayerNotFound
	}
	amount := int(math.Floor(float64(player.Balance) * TaxRate))
	player.Balance -= amount
	touch(state, now)
	return amount, nil
}

// Reset returns the room to its genesis economy: every property unowned at
// level 0, every player at the initial stake with zero properties, and no
// requests. Players themselves are kept. The operation is idempotent and has
// no precondition; it also reactivates an ended room.
func Reset(state *models.GameState, now int64) {
	for _, property := range state.Properties {
		property.OwnerID = ""
		property.Level = 0
	}
	for _, player := range state.Players {
		player.Balance = InitialBalance
		player.PropertiesCount = 0
	}
	state.Requests = make(map[string]*models.Request)
	state.Status = models.RoomActive
	touch(state, now)
}

// EndGame marks the room as ended. Further economic mutations are refused
// until an explicit reset reactivates the room.
func EndGame(state *models.GameState, now int64) {
	state.Status = models.RoomEnded
	touch(state, now)
}

// CanAcquire is the advisory preview for an ACQUIRE request. It tells a
// client whether submitting would be plausible against the given snapshot;
// the applier re-derives validity at commit time regardless.
func CanAcquire(state *models.GameState, playerID, propertyID string) bool {
	player, ok := state.Players[playerID]
	if !ok {
		return false
	}
	property, ok := state.Properties[propertyID]
	if !ok {
		return false
	}
	return !property.Owned() && player.Balance >= property.Price
}

// CanUpgrade is the advisory preview for an UPGRADE request.
func CanUpgrade(state *models.GameState, playerID, propertyID string) bool {
	player, ok := state.Players[playerID]
	if !ok {
		return false
	}
	property, ok := state.Properties[propertyID]
	if !ok {
		return false
	}
	return property.OwnerID == playerID && property.Level < MaxLevel && player.Balance >= property.UpgradeCost
}

func touch(state *models.GameState, now int64) {
	// LastUpdated must advance on every commit so observers can order
	// snapshots; guard against clocks that did not move between commits.
	if now <= state.LastUpdated {
		now = state.LastUpdated + 1
	}
	state.LastUpdated = now
}
