package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anoskuns/Ignite-History/internal/models"
	"github.com/anoskuns/Ignite-History/internal/pkg/auth"
)

const (
	// wsWriteWait bounds how long a single snapshot write may take.
	wsWriteWait = 10 * time.Second
	// wsPongWait is how long the connection survives without a pong.
	wsPongWait = 60 * time.Second
	// wsPingPeriod must be shorter than wsPongWait.
	wsPingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHandler streams the full room state to the client: one JSON-encoded
// GameState message per adopted commit, never a diff. The endpoint sits
// outside the JWT middleware, so it validates the session itself, accepting
// the token either as a bearer header or as a "token" query parameter
// (browsers cannot set headers on websocket upgrades).
//
// Delivery is latest-wins: if the client cannot keep up, intermediate
// snapshots are dropped and only the newest one is written. Convergence only
// requires the latest state to arrive, not every state in between.
func (handlers *handlers) wsHandler(res http.ResponseWriter, req *http.Request) {
	tokenStr := req.URL.Query().Get("token")
	if tokenStr == "" {
		parts := strings.Split(req.Header.Get("Authorization"), " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenStr = parts[1]
		}
	}
	claims, err := auth.ParseToken(tokenStr)
	if err != nil {
		writeErrorResponse(res, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(res, req, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates := make(chan *models.GameState, 1)
	unsubscribe := handlers.app.Subscribe(claims.RoomID, func(state *models.GameState) {
		for {
			select {
			case updates <- state:
				return
			default:
				// Replace the queued snapshot with the newer one.
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	defer unsubscribe()

	// Seed the stream with the current snapshot; the watcher's freshness
	// guard keeps this from regressing any observer that already saw a
	// newer commit.
	if state, err := handlers.app.State(req.Context(), claims.RoomID); err == nil {
		handlers.app.Publish(state)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case state := <-updates:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(state); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
