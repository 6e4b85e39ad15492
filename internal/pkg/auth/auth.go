package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/anoskuns/Ignite-History/internal/models"
)

// contextKey is a custom type used for storing values in a context without risking collisions.
type contextKey string

// ContextClaims is the key used to store and retrieve the session claims from the request context.
const ContextClaims contextKey = "contextClaims"

// CheckJWTMiddleware validates the Authorization header of incoming requests.
// It checks for the presence of a Bearer token, parses the token and stores
// the session claims in the request context. If validation fails at any
// point, it returns an error response with the appropriate HTTP status code.
func CheckJWTMiddleware() func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")

			if authHeader == "" {
				writeErrorResponse(w, "missing auth header", http.StatusUnauthorized)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeErrorResponse(w, "invalid auth header", http.StatusUnauthorized)
				return
			}

			claims, err := ParseToken(parts[1])
			if err != nil {
				writeErrorResponse(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextClaims, claims)
			h.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

// RequireArbiterMiddleware rejects requests whose session is not allowed to
// perform arbiter actions. It must be mounted after CheckJWTMiddleware.
func RequireArbiterMiddleware() func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeErrorResponse(w, "missing session", http.StatusUnauthorized)
				return
			}
			if !CanArbitrate(claims) {
				writeErrorResponse(w, "arbiter role required", http.StatusForbidden)
				return
			}
			h.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// ClaimsFromContext retrieves the session claims stored by
// CheckJWTMiddleware, or nil when the request carried no valid session.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ContextClaims).(*Claims)
	return claims
}

// writeErrorResponse writes a JSON-formatted error response to the HTTP response writer.
// It sets the Content-Type header, writes the appropriate HTTP status code, and encodes an ErrorResponse payload.
func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Errors: errorInfo})
}
