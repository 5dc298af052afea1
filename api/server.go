// Package api provides the read-only HTTP API over a loaded rate snapshot.
//
// It exposes the summary figures, filtered rate windows, regimes, cycles,
// point correlation and CSV export that the front end renders.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/seenimoa/reporate/internal/config"
	"github.com/seenimoa/reporate/internal/infra"
	"github.com/seenimoa/reporate/internal/view"
	"github.com/seenimoa/reporate/pkg/utils"
)

// Version is reported by /health. Set at build time.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	view    atomic.Pointer[view.SnapshotView]
	windows *infra.Cache[view.Window]
	limiter *infra.RateLimiter
	clock   utils.Clock
	log     zerolog.Logger
}

// Options carries the optional collaborators of a Server.
type Options struct {
	Clock  utils.Clock
	Logger *zerolog.Logger // defaults to a no-op logger
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, v *view.SnapshotView, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	srv := &Server{
		cfg:     cfg,
		windows: infra.NewCache[view.Window](cfg.API.CacheDuration(), opts.Clock),
		clock:   opts.Clock,
		log:     logger.With().Str("component", "api").Logger(),
	}
	if cfg.API.RateLimit > 0 {
		srv.limiter = infra.NewRateLimiter(cfg.API.RateLimit, time.Second/time.Duration(cfg.API.RateLimit), opts.Clock)
	}
	srv.view.Store(v)
	srv.router = srv.buildRouter()
	return srv
}

// SetView swaps in a newly loaded snapshot and drops cached windows.
func (s *Server) SetView(v *view.SnapshotView) {
	s.view.Store(v)
	s.windows.Flush()
	s.log.Info().Str("snapshot", v.DisplayID()).Msg("snapshot view replaced")
}

// View returns the snapshot currently served.
func (s *Server) View() *view.SnapshotView {
	return s.view.Load()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// ctx is cancelled. Expired windows are swept once per cache TTL while it
// runs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.windows.RunCleanup(sweepCtx, s.cfg.API.CacheDuration())

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("snapshot", s.View().DisplayID()).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.API.TimeoutDuration()))
	r.Use(rateLimit(s.limiter))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health (also available at /health)
		r.Get("/health", s.handleHealth)

		// Snapshot
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/summary", s.handleSummary)
		r.Get("/presets", s.handlePresets)

		// Windows
		r.Get("/rates", s.handleRates)
		r.Get("/changes", s.handleChanges)
		r.Get("/events", s.handleEvents)
		r.Get("/regimes", s.handleRegimes)
		r.Get("/export.csv", s.handleExportCSV)

		// Cycles
		r.Get("/cycles", s.handleCycles)
		r.Get("/cycles/compare", s.handleCompareCycles)

		// Correlation
		r.Get("/correlate/{date}", s.handleCorrelate)

		// Config
		r.Get("/config", s.handleGetConfig)
	})

	if dir := s.cfg.API.StaticDir; dir != "" {
		s.mountSPA(r, os.DirFS(dir))
	}

	return r
}

// ============================================================
// Response envelope
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
