package service

import (
	"github.com/anoskuns/Ignite-History/internal/app"
	"github.com/anoskuns/Ignite-History/internal/pkg/auth"
	"github.com/anoskuns/Ignite-History/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// Service encapsulates the HTTP server configuration, including the
// application's business logic, HTTP handlers, the server's run address, and
// a logger for event and error logging.
type Service struct {
	handlers   *handlers
	app        *app.App
	runAddress string
	log        *logger.Logger
}

// NewService creates and initializes a new Service instance.
// It sets up the handlers using the provided application and logger,
// and configures the server's run address.
func NewService(app *app.App, runAddress string, l *logger.Logger) *Service {
	handlers := newHandlers(app, l)
	return &Service{handlers: handlers, app: app, runAddress: runAddress, log: l}
}

// NewRouter sets up and returns a new chi.Router instance with the necessary
// middleware and routes. Logging middleware applies globally; JWT session
// middleware protects everything behind login; the arbiter-only routes are
// additionally gated on the role claim. The websocket endpoint sits outside
// the JWT middleware because browsers cannot set headers on websocket
// upgrades; it validates the token itself (header or query parameter).
func (service *Service) NewRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(service.log.WithLogging())
	router.Post("/api/login", service.handlers.loginHandler)
	router.Get("/api/ws", service.handlers.wsHandler)
	router.Group(func(r chi.Router) {
		r.Use(auth.CheckJWTMiddleware())
		r.Get("/api/state", service.handlers.stateHandler)
		r.Post("/api/logout", service.handlers.logoutHandler)
		r.Post("/api/request", service.handlers.submitRequestHandler)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireArbiterMiddleware())
			r.Post("/api/request/{id}/approve", service.handlers.approveHandler)
			r.Post("/api/request/{id}/reject", service.handlers.rejectHandler)
			r.Post("/api/player/{id}/balance", service.handlers.adjustBalanceHandler)
			r.Post("/api/player/{id}/tax", service.handlers.taxHandler)
			r.Post("/api/reset", service.handlers.resetHandler)
			r.Post("/api/end", service.handlers.endHandler)
		})
	})
	return router
}
