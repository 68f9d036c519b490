// Package server provides the HTTP API service for promptvault.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/raohamdcreator-bit/promptvault/internal/auth"
	"github.com/raohamdcreator-bit/promptvault/internal/config"
	"github.com/raohamdcreator-bit/promptvault/internal/db"
	"github.com/raohamdcreator-bit/promptvault/internal/enhance"
	"github.com/raohamdcreator-bit/promptvault/internal/ratelimit"
)

// Service is the promptvault HTTP service.
type Service struct {
	version string
	config  *config.Config

	store       *db.Store
	promptStore *db.PromptStore
	teamStore   *db.TeamStore

	limiter  *ratelimit.Limiter
	verifier auth.Verifier
	enhancer enhance.Enhancer

	router     *chi.Mux
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	startTime time.Time
	ready     atomic.Bool
}

// NewService wires the stores, limiter, and router into a Service.
func NewService(version string, cfg *config.Config, store *db.Store, limiter *ratelimit.Limiter, verifier auth.Verifier, enhancer enhance.Enhancer) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:     version,
		config:      cfg,
		store:       store,
		promptStore: db.NewPromptStore(store),
		teamStore:   db.NewTeamStore(store),
		limiter:     limiter,
		verifier:    verifier,
		enhancer:    enhancer,
		router:      chi.NewRouter(),
		ctx:         ctx,
		cancel:      cancel,
		startTime:   time.Now(),
	}

	svc.setupRoutes()
	return svc
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)

	// Public endpoints: no account needed.
	s.router.Get("/api/demo/prompts", s.handleDemoPrompts)

	enhancePolicy := ratelimit.Policy{
		Endpoint:    "enhance",
		MaxRequests: s.config.EnhanceLimit.MaxRequests,
		Window:      time.Duration(s.config.EnhanceLimit.WindowSeconds) * time.Second,
	}
	s.router.With(ratelimit.Middleware(s.limiter, enhancePolicy, requestIdentity)).
		Post("/api/enhance", s.handleEnhance)

	// Authenticated endpoints.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.verifier))

		r.Post("/api/guest/migrate", s.handleGuestMigrate)

		r.Post("/api/teams", s.handleCreateTeam)
		r.Get("/api/teams", s.handleListTeams)
		r.Get("/api/teams/{teamID}", s.handleGetTeam)
		r.Post("/api/teams/{teamID}/prompts", s.handleCreatePrompt)
		r.Get("/api/teams/{teamID}/prompts", s.handleListPrompts)

		invitePolicy := ratelimit.Policy{
			Endpoint:    "invite",
			MaxRequests: s.config.InviteLimit.MaxRequests,
			Window:      time.Duration(s.config.InviteLimit.WindowSeconds) * time.Second,
		}
		r.With(ratelimit.Middleware(s.limiter, invitePolicy, requestIdentity)).
			Post("/api/teams/{teamID}/invites", s.handleCreateInvite)
		r.Post("/api/invites/{token}/accept", s.handleAcceptInvite)

		r.Get("/api/prompts/{promptID}", s.handleGetPrompt)
		r.Put("/api/prompts/{promptID}", s.handleUpdatePrompt)
		r.Delete("/api/prompts/{promptID}", s.handleDeletePrompt)
		r.Post("/api/prompts/{promptID}/enhance", s.handleEnhancePrompt)
		r.Post("/api/prompts/{promptID}/usage", s.handlePromptUsage)
		r.Post("/api/prompts/{promptID}/ratings", s.handleRatePrompt)
		r.Get("/api/prompts/{promptID}/ratings", s.handleRatingSummary)
	})
}

// Start begins serving HTTP on the configured port. It blocks until the
// listener fails or Shutdown is called.
func (s *Service) Start() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.ready.Store(true)
	log.Info().Int("port", s.config.Port).Str("version", s.version).Msg("promptvault listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and releases the service context.
func (s *Service) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.cancel()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// requestIdentity resolves the rate-limit identity for a request: the
// authenticated user when present, otherwise the guest session header.
func requestIdentity(r *http.Request) string {
	if id, ok := auth.FromContext(r.Context()); ok {
		return id.UserID
	}
	return r.Header.Get("X-Session-ID")
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
