// Package control serves the local HTTP API that drives the call core: call
// commands, the observable state, the call bubble and the call history.
package control

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"studycall/broker/subscription"
	"studycall/control/middleware"
	"studycall/coordinator"
	"studycall/database"
	"studycall/types/call"
)

// Calls is the part of the coordinator the control API drives.
//
//go:generate mockgen -destination=mock_calls.go -package=control . Calls
type Calls interface {
	State() coordinator.State
	Subscribe() *subscription.Subscription[coordinator.State]
	Unsubscribe(sub *subscription.Subscription[coordinator.State])
	InitiateCall(ctx context.Context, callType call.Type, contextType call.ContextType, contextID string) error
	AcceptCall(ctx context.Context) error
	DeclineCall(ctx context.Context) error
	EndCall(ctx context.Context) error
	ToggleMute() error
	ToggleVideo(ctx context.Context) error
	ToggleScreenShare(ctx context.Context) error
	SetMinimized(minimized bool)
}

// Gestures receives the user gestures reported by the UI.
type Gestures interface {
	Fire()
}

// Server is the control API server.
type Server struct {
	config   Config
	userID   string
	calls    Calls
	db       database.Database
	gestures Gestures
	server   *http.Server
}

// New creates a new control Server for the given local user.
func New(config Config, userID string, calls Calls, db database.Database, gestures Gestures) *Server {
	s := &Server{
		config:   config,
		userID:   userID,
		calls:    calls,
		db:       db,
		gestures: gestures,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router of the control API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Chain(
		middleware.NewAuth(s.config.Token),
		middleware.NewCORS(),
		middleware.NewLogger(),
	))

	r.Get("/state", s.getState)
	r.Handle("/events", middleware.Set(http.HandlerFunc(upgradeRequired), middleware.NewSocket(&stateStream{calls: s.calls})))

	r.Route("/calls", func(r chi.Router) {
		r.Post("/", s.initiateCall)
		r.Post("/accept", s.command(s.calls.AcceptCall))
		r.Post("/decline", s.command(s.calls.DeclineCall))
		r.Post("/end", s.command(s.calls.EndCall))
		r.Post("/mute", s.command(func(context.Context) error { return s.calls.ToggleMute() }))
		r.Post("/video", s.command(s.calls.ToggleVideo))
		r.Post("/screen", s.command(s.calls.ToggleScreenShare))
	})
	r.Put("/minimized", s.setMinimized)

	r.Get("/bubble", s.getBubble)
	r.Put("/bubble", s.putBubble)
	r.Get("/history", s.getHistory)
	r.Post("/gesture", s.gesture)
	return r
}

// Start serves the control API until Stop is called.
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("control api started")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve control api: %w", err)
	}
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop control api: %w", err)
	}
	return nil
}

func upgradeRequired(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusUpgradeRequired, "", "websocket upgrade required")
}
