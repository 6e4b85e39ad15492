// Package models defines the data structures shared across the application.
// It includes the game-state document synchronized between all room observers
// as well as the request and response payloads of the HTTP API.
package models

// Role identifies what a participant may do inside a room.
// The arbiter role is self-declared at login; there is no verification
// beyond the claim itself.
type Role string

const (
	// RolePlayer is a regular participant who accumulates currency and property.
	RolePlayer Role = "player"
	// RoleArbiter is the single privileged role that resolves requests,
	// adjusts balances and resets the room. Kept as "admin" on the wire.
	RoleArbiter Role = "admin"
)

// Valid reports whether the role is one of the two known roles.
func (r Role) Valid() bool {
	return r == RolePlayer || r == RoleArbiter
}

// RequestType classifies a player-originated economic request.
type RequestType string

const (
	// RequestAcquire asks to purchase an unowned property at its listed price.
	RequestAcquire RequestType = "ACQUIRE"
	// RequestUpgrade asks to raise an owned property by one level.
	RequestUpgrade RequestType = "UPGRADE"
	// RequestSalary asks for a fixed salary grant.
	RequestSalary RequestType = "SALARY"
)

// RequestStatus is the lifecycle state of a request.
// PENDING transitions exactly once to APPROVED or REJECTED; both are terminal.
type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusRejected RequestStatus = "REJECTED"
)

// RoomStatus is the lifecycle state of a whole room.
type RoomStatus string

const (
	RoomActive RoomStatus = "active"
	RoomEnded  RoomStatus = "ended"
)

// Player is one participant of a room.
// Balance and PropertiesCount are mutated only by the transactional applier;
// PropertiesCount always equals the number of properties owned by the player.
type Player struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Balance         int    `json:"balance"`
	Role            Role   `json:"role"`
	PropertiesCount int    `json:"propertiesCount"`
	JoinedAt        int64  `json:"joinedAt"`
}

// Property is one entry of the static board catalog.
// Level 0 means unowned; levels 1..3 require a non-empty OwnerID.
// TollValues is indexed by level.
type Property struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int    `json:"price"`
	TollValues  [4]int `json:"rentValues"`
	UpgradeCost int    `json:"buildPrice"`
	OwnerID     string `json:"ownerId,omitempty"`
	Level       int    `json:"level"`
}

// Owned reports whether the property currently has an owner.
func (p *Property) Owned() bool {
	return p.OwnerID != ""
}

// Request is a player-originated proposal for an economic change.
// PlayerName and TargetName are display snapshots taken at creation time.
// Timestamp is wall-clock milliseconds used only for display ordering.
type Request struct {
	ID         string        `json:"id"`
	Type       RequestType   `json:"type"`
	PlayerID   string        `json:"playerId"`
	PlayerName string        `json:"playerName"`
	TargetID   string        `json:"targetId,omitempty"`
	TargetName string        `json:"targetName,omitempty"`
	Amount     int           `json:"amount"`
	Status     RequestStatus `json:"status"`
	Timestamp  int64         `json:"timestamp"`
}

// GameState is the aggregate root: the entire shared document of one room.
// It is the sole unit of synchronization and of atomic mutation.
// LastUpdated is a freshness signal (milliseconds) used by the convergence
// layer to discard stale snapshots; it is not a conflict-resolution device.
type GameState struct {
	RoomID      string               `json:"roomId"`
	Status      RoomStatus           `json:"status"`
	Players     map[string]*Player   `json:"players"`
	Properties  map[string]*Property `json:"properties"`
	Requests    map[string]*Request  `json:"requests"`
	LastUpdated int64                `json:"lastUpdated"`
}

// LoginRequest is the payload for establishing a session within a room.
// The room code is case-insensitive and normalized to uppercase server-side.
type LoginRequest struct {
	Room string `json:"room"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// LoginResponse carries the session token, the identity assigned to the
// caller and the snapshot of the room at login time.
type LoginResponse struct {
	Token    string     `json:"token"`
	PlayerID string     `json:"playerId"`
	State    *GameState `json:"state"`
}

// SubmitRequest is the payload for submitting an economic request.
// Amount is advisory: for ACQUIRE and UPGRADE the authoritative amount is
// re-derived from the target property at commit time.
type SubmitRequest struct {
	Type     RequestType `json:"type"`
	Amount   int         `json:"amount"`
	TargetID string      `json:"targetId,omitempty"`
}

// SubmitResponse returns the request as recorded in the shared state.
type SubmitResponse struct {
	Request *Request `json:"request"`
}

// ResolveResponse reports the terminal status a request ended up in after an
// approve or reject action, including the no-op case where it had already
// been resolved by a concurrent arbiter action.
type ResolveResponse struct {
	Request *Request `json:"request"`
}

// AdjustBalanceRequest is the payload for a direct arbiter balance change.
type AdjustBalanceRequest struct {
	Amount int `json:"amount"`
}

// TaxResponse reports the amount deducted by a tax action.
type TaxResponse struct {
	Amount int `json:"amount"`
}

// ErrorResponse is the generic error envelope of the API.
type ErrorResponse struct {
	Errors string `json:"errors"`
}
