// Package auth provides session handling for room participants. A login
// issues a JSON Web Token carrying the player identity, the room and the
// self-declared role; middleware validates the token on protected routes and
// gates arbiter-only routes. The token is a session handle, not
// authentication: anyone may claim the arbiter role, which is a deliberate
// product decision. CanArbitrate is the single policy point to replace if
// real authorization is ever introduced.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/anoskuns/Ignite-History/internal/models"
)

// secretKey is the key used to sign the JWT. It should be kept secure.
var secretKey = []byte("supersecretkey")

// TOKENEXP defines the token expiration duration. Sessions comfortably
// outlast a full board-game evening.
const TOKENEXP = time.Hour * 12

// Claims represents the custom JWT claims identifying a session: which
// player, in which room, under which self-declared role.
// It embeds jwt.RegisteredClaims for standard fields like expiration time.
type Claims struct {
	PlayerID string
	RoomID   string
	Role     models.Role
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT token for the given session identity.
// It sets the expiration time based on TOKENEXP.
func GenerateToken(playerID, roomID string, role models.Role) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TOKENEXP)),
		},
		PlayerID: playerID,
		RoomID:   roomID,
		Role:     role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey)
}

// ParseToken validates the provided JWT token string and parses its claims.
// It returns the Claims if the token is valid, or an error otherwise.
func ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// CanArbitrate decides whether a session may perform arbiter actions.
// The check is intentionally nothing more than the self-declared role claim.
func CanArbitrate(claims *Claims) bool {
	return claims != nil && claims.Role == models.RoleArbiter
}
