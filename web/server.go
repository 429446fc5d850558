// ABOUTME: Browser mirror of a console session behind a chi router: timeline, plot gallery, and JSON snapshot.
// ABOUTME: Read-only; prompts are submitted from the terminal, the mirror only renders shared session state.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389-research/crystalens/console"
	"github.com/2389-research/crystalens/metrics"
	"github.com/2389-research/crystalens/runs"
)

// DefaultAddr is used when ServerConfig.Addr is empty.
const DefaultAddr = "127.0.0.1:2390"

// Server renders one session over HTTP.
type Server struct {
	session   *console.Session
	metrics   *metrics.Recorder
	logger    *slog.Logger
	templates *TemplateEngine
	router    chi.Router
	addr      string
}

// ServerConfig holds the configuration for the web mirror.
type ServerConfig struct {
	Addr    string
	Session *console.Session
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

// NewServer creates a Server for cfg.Session.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("web: session must not be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	tmpl, err := NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}
	s := &Server{
		session:   cfg.Session,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		templates: tmpl,
		addr:      cfg.Addr,
	}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("web mirror listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web: shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleTimeline)
	r.Get("/plots", s.handlePlots)
	r.Get("/api/snapshot", s.handleSnapshot)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// current folds in any streamed events before reading the session.
func (s *Server) current() console.Snapshot {
	s.session.Pump()
	return s.session.Snapshot()
}

// handleTimeline renders the filtered feed. Unknown categories are a 400.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filter := runs.CategoryAgent
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, err := runs.ParseCategory(raw)
		if err != nil || c == runs.CategoryNone {
			http.Error(w, fmt.Sprintf("unknown category %q", raw), http.StatusBadRequest)
			return
		}
		if c == runs.CategoryPlots {
			http.Redirect(w, r, "/plots", http.StatusSeeOther)
			return
		}
		filter = c
	}

	snap := s.current()
	data := PageData{
		Title:   filter.Label(),
		Active:  string(filter),
		Filters: filterLinks(string(filter)),
		Status:  statusView(snap),
		Cards:   cardViews(snap.View(filter)),
	}
	if err := s.templates.Render(w, "timeline.html", data); err != nil {
		s.logger.Error("rendering timeline", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// handlePlots renders the gallery. ?name= picks a plot by file name or
// path for this page only; the default is the session's selection.
func (s *Server) handlePlots(w http.ResponseWriter, r *http.Request) {
	snap := s.current()
	selected := snap.Selected
	if name := r.URL.Query().Get("name"); name != "" {
		selected = -1
		for i, a := range snap.Plots {
			if string(a) == name || a.Name() == name {
				selected = i
				break
			}
		}
		if selected < 0 {
			http.Error(w, fmt.Sprintf("unknown plot %q", name), http.StatusNotFound)
			return
		}
	}

	data := PageData{
		Title:   runs.CategoryPlots.Label(),
		Active:  string(runs.CategoryPlots),
		Filters: filterLinks(string(runs.CategoryPlots)),
		Status:  statusView(snap),
		Plots:   plotViews(snap, selected),
	}
	for i := range data.Plots {
		if data.Plots[i].Selected {
			data.Plot = &data.Plots[i]
		}
	}
	if err := s.templates.Render(w, "plots.html", data); err != nil {
		s.logger.Error("rendering plots", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snapshotJSON(s.current()))
}

// handleHealth returns a JSON health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("encoding JSON response", "error", err)
	}
}
