// Package handlers hosts verification sessions over HTTP and websockets.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"checkpoint/internal/clock"
	"checkpoint/internal/config"
	"checkpoint/internal/diagnostics"
	"checkpoint/internal/middleware"
	"checkpoint/internal/ratelimit"
	"checkpoint/internal/store"
)

var ErrSessionNotFound = errors.New("session not found")

// Ledger persists gate decisions.
type Ledger interface {
	Record(ctx context.Context, d store.Decision) error
	Recent(ctx context.Context, limit int) ([]store.Decision, error)
	Counts(ctx context.Context, since time.Time) (verified, failed int, err error)
}

// Deps are the collaborators of a Server. Ledger, Geo and Backend are
// optional.
type Deps struct {
	Config  *config.Config
	Clock   clock.Clock
	Logger  *zap.Logger
	Limiter ratelimit.Limiter
	Passes  *middleware.Passes
	Ledger  Ledger
	Geo     *diagnostics.GeoCheck
	Backend http.Handler
	// Rand overrides the settle delay source of new sessions.
	Rand func(n int64) int64
}

type Server struct {
	deps     Deps
	cfg      *config.Config
	logger   *zap.Logger
	mw       *middleware.Middleware
	sessions *store.Sessions[*Hosted]
	upgrader websocket.Upgrader
	started  time.Time
	router   chi.Router
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	s := &Server{
		deps:     deps,
		cfg:      deps.Config,
		logger:   deps.Logger.Named("handlers"),
		mw:       middleware.New(deps.Limiter, deps.Passes, deps.Logger),
		sessions: store.NewSessions[*Hosted](deps.Config.Server.SessionTTL),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		started: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer)

	r.Get("/health", s.HealthHandler)
	r.Handle("/checkpoint/assets/*", http.StripPrefix("/checkpoint/assets/", http.FileServer(http.Dir(s.cfg.Server.StaticDir))))

	r.Route("/v1", func(r chi.Router) {
		r.With(s.mw.RateLimiter).Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Get("/sessions/{id}/stream", s.handleStream)
		r.Post("/sessions/{id}/events", s.TelemetryHandler)
		r.Post("/passes/verify", s.VerifyHandler)
		if s.cfg.Server.AdminKey != "" && s.deps.Ledger != nil {
			r.With(func(next http.Handler) http.Handler {
				return APIKeyAuthMiddleware(next, s.cfg.Server.AdminKey)
			}).Get("/decisions", s.handleDecisions)
		}
	})

	challenge := http.HandlerFunc(s.issueChallenge)
	if s.deps.Backend != nil {
		r.With(s.mw.RequirePass(challenge)).Handle("/*", s.deps.Backend)
	} else {
		r.Handle("/*", challenge)
	}
	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run sweeps expired sessions until ctx is done, then closes the rest.
func (s *Server) Run(ctx context.Context) {
	interval := s.cfg.Server.SessionTTL / 4
	if interval > time.Minute || interval <= 0 {
		interval = time.Minute
	}
	s.sessions.Run(ctx, interval)
}

// Sessions exposes the live session registry.
func (s *Server) Sessions() *store.Sessions[*Hosted] { return s.sessions }

func (s *Server) issueChallenge(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.cfg.Server.StaticDir, "challenge.html"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
