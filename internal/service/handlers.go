// Package service contains HTTP handler implementations for the game API
// endpoints. It orchestrates request parsing, calls the underlying business
// logic in the app package, maps domain errors to HTTP status codes, and
// writes appropriate HTTP responses. Validation rejections of requests are
// not errors here: they come back as a resolved request with REJECTED status
// and a 200 response.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anoskuns/Ignite-History/internal/app"
	"github.com/anoskuns/Ignite-History/internal/game"
	"github.com/anoskuns/Ignite-History/internal/models"
	"github.com/anoskuns/Ignite-History/internal/pkg/auth"
	"github.com/anoskuns/Ignite-History/internal/pkg/logger"
	"github.com/anoskuns/Ignite-History/internal/storage"
)

const requestTimeout = 10 * time.Second

// handlers aggregates dependencies needed by HTTP handlers,
// including the application business logic and logger.
type handlers struct {
	app *app.App
	log *logger.Logger
}

// newHandlers initializes a new handlers instance with the provided app and logger dependencies.
func newHandlers(app *app.App, l *logger.Logger) *handlers {
	return &handlers{app: app, log: l}
}

// loginHandler establishes a session in a room. A missing room document is
// not an error: it is created from the static catalog, and the caller joins
// it either way. The response carries the session token, the player identity
// and the snapshot at login time.
func (handlers *handlers) loginHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var loginRequest models.LoginRequest

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err = json.Unmarshal(requestBody, &loginRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	state, playerID, err := handlers.app.Login(ctx, loginRequest.Room, loginRequest.Name, loginRequest.Role)
	if err != nil {
		if errors.Is(err, app.ErrMissingRoomOrName) {
			writeErrorResponse(res, "missing room or name", http.StatusBadRequest)
			return
		}
		if errors.Is(err, app.ErrInvalidRole) {
			writeErrorResponse(res, "invalid role", http.StatusBadRequest)
			return
		}
		handlers.writeDomainError(res, err)
		return
	}

	token, err := auth.GenerateToken(playerID, app.NormalizeRoomCode(loginRequest.Room), loginRequest.Role)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSONResponse(res, models.LoginResponse{Token: token, PlayerID: playerID, State: state})
}

// logoutHandler acknowledges the end of a session. Sessions are stateless
// bearer tokens, so there is nothing to revoke server-side; the client
// discards the token.
func (handlers *handlers) logoutHandler(res http.ResponseWriter, req *http.Request) {
	res.WriteHeader(http.StatusOK)
}

// stateHandler returns the current authoritative snapshot of the session's room.
func (handlers *handlers) stateHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	claims := auth.ClaimsFromContext(req.Context())
	if claims == nil {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	state, err := handlers.app.State(ctx, claims.RoomID)
	if err != nil {
		handlers.writeDomainError(res, err)
		return
	}

	writeJSONResponse(res, state)
}

// submitRequestHandler records an economic request on behalf of the session's
// player. The request enters the shared state as PENDING; resolution is the
// arbiter's call.
func (handlers *handlers) submitRequestHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	claims := auth.ClaimsFromContext(req.Context())
	if claims == nil {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	var submitRequest models.SubmitRequest

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err = json.Unmarshal(requestBody, &submitRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	request, err := handlers.app.SubmitRequest(ctx, claims.RoomID, claims.PlayerID, submitRequest.Type, submitRequest.Amount, submitRequest.TargetID)
	if err != nil {
		handlers.writeDomainError(res, err)
		return
	}

	writeJSONResponse(res, models.SubmitResponse{Request: request})
}

// approveHandler resolves a pending request in the player's favor, subject
// to re-validation against the authoritative state at commit time.
func (handlers *handlers) approveHandler(res http.ResponseWriter, req *http.Request) {
	handlers.resolveHandler(res, req, true)
}

// rejectHandler resolves a pending request as REJECTED.
func (handlers *handlers) rejectHandler(res http.ResponseWriter, req *http.Request) {
	handlers.resolveHandler(res, req, false)
}

func (handlers *handlers) resolveHandler(res http.ResponseWriter, req *http.Request, approve bool) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	claims := auth.ClaimsFromContext(req.Context())
	if claims == nil {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	requestID := chi.URLParam(req, "id")

	var request *models.Request
	var err error
	if approve {
		_, request, err = handlers.app.Approve(ctx, claims.RoomID, requestID)
	} else {
		_, request, err = handlers.app.Reject(ctx, claims.RoomID, requestID)
	}
	if err != nil {
		handlers.writeDomainError(res, err)
		return
	}

	writeJSONResponse(res, models.ResolveResponse{Request: request})
}

// adjustBalanceHandler applies a signed balance delta to a player as a
// direct arbiter action.
func (handlers *handlers) adjustBalanceHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	claims := auth.ClaimsFromContext(req.Context())
	if claims == nil {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	var adjustRequest models.AdjustBalanceRequest

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err = json.Unmarshal(requestBody, &adjustRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}

	playerID := chi.URLParam(req, "id")
	if err := handlers.app.AdjustBalance(ctx, claims.RoomID, playerID, adjustRequest.Amount); err != nil {
		handlers.writeDomainError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
}

// taxHandler deducts the tax share of a player's balance and reports the
// deducted amount. The share is computed inside the commit from the
// authoritative balance.
func (handlers *handlers) taxHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	claims := auth.ClaimsFromContext(req.Context())
	if claims == nil {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	playerID := chi.URLParam(req, "id")
	amount, err := handlers.app.Tax(ctx, claims.RoomID, playerID)
	if err != nil {
		handlers.writeDomainError(res, err)
		return
	}

	writeJSONResponse(res, models.TaxResponse{Amount: amount})
}

// resetHandler returns the room's economy to its genesis values.
func (handlers *handlers) resetHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	claims := auth.ClaimsFromContext(req.Context())
	if claims == nil {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := handlers.app.Reset(ctx, claims.RoomID); err != nil {
		handlers.writeDomainError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
}

// endHandler marks the room as ended.
func (handlers *handlers) endHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	claims := auth.ClaimsFromContext(req.Context())
	if claims == nil {
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := handlers.app.EndGame(ctx, claims.RoomID); err != nil {
		handlers.writeDomainError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
}

// writeDomainError maps domain and storage errors to HTTP status codes.
func (handlers *handlers) writeDomainError(res http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeErrorResponse(res, "room not found", http.StatusNotFound)
	case errors.Is(err, game.ErrPlayerNotFound):
		writeErrorResponse(res, "player not found", http.StatusNotFound)
	case errors.Is(err, game.ErrRequestNotFound):
		writeErrorResponse(res, "request not found", http.StatusNotFound)
	case errors.Is(err, game.ErrPropertyNotFound):
		writeErrorResponse(res, "property not found", http.StatusNotFound)
	case errors.Is(err, game.ErrUnknownRequestType):
		writeErrorResponse(res, "unknown request type", http.StatusBadRequest)
	case errors.Is(err, game.ErrRoomEnded):
		writeErrorResponse(res, "room has ended", http.StatusConflict)
	case errors.Is(err, app.ErrTooManyConflicts):
		writeErrorResponse(res, "state is being modified concurrently, please retry", http.StatusConflict)
	default:
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSONResponse(res http.ResponseWriter, payload interface{}) {
	result, err := json.Marshal(payload)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)
	res.Write(result)
}

func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Errors: errorInfo})
}
