// Package http serves the server-rendered expense dashboard. Each browser
// gets its own dashboard.Controller, kept in an expiring session cache.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expenses/internal/cache"
	"expenses/internal/dashboard"
	"expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	appweb "expenses/web"
)

// Backend is what the dashboard needs from the REST API, plus a probe for
// readiness checks.
type Backend interface {
	dashboard.Backend
	Ping(ctx context.Context) error
}

type Config struct {
	Addr            string
	SessionTTL      time.Duration
	MaxSessions     int
	CleanupInterval time.Duration
	// StartTimeout bounds the initial load of a new session.
	StartTimeout time.Duration
	// PostsPerMinute limits form submissions per client address.
	PostsPerMinute int
	TrustedProxies []string
}

func DefaultConfig() Config {
	return Config{
		Addr:            ":8081",
		SessionTTL:      30 * time.Minute,
		MaxSessions:     100,
		CleanupInterval: 5 * time.Minute,
		StartTimeout:    15 * time.Second,
		PostsPerMinute:  60,
		TrustedProxies:  security.DefaultTrustedProxies,
	}
}

type Server struct {
	http.Server

	cfg       Config
	backend   Backend
	logger    *log.Logger
	templates *template.Template
	now       func() time.Time

	sessions *cache.LRU[*session]
	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	ips      *security.IPResolver

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware.
// Call Start to begin background cleanup.
func NewServer(cfg Config, backend Backend, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	tmpl, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	ips, err := security.NewIPResolver(cfg.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		backend:   backend,
		logger:    logger,
		templates: tmpl,
		now:       time.Now,
		ips:       ips,
		caches:    cache.NewManager(logger),
		limiter: ratelimit.New(ratelimit.Config{
			RequestsPerMinute: cfg.PostsPerMinute,
			CleanupInterval:   cfg.CleanupInterval,
		}),
	}
	s.sessions = cache.NewLRU(cfg.MaxSessions, cfg.SessionTTL, cache.OnEvict(func(id string, _ *session) {
		s.logger.Debug("Session evicted", log.FieldSessionID, id)
	}))
	s.caches.Register(s.sessions)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssets(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	page := http.NewServeMux()
	page.HandleFunc("GET /{$}", s.handleIndex)
	page.HandleFunc("GET /filters", s.handleFilters)
	page.HandleFunc("POST /tabs/{tab}", s.handleTab)
	page.HandleFunc("POST /refresh", s.handleRefresh)
	page.HandleFunc("POST /expenses", s.handleAddExpense)
	page.HandleFunc("POST /expenses/edit", s.handleSubmitEdit)
	page.HandleFunc("POST /expenses/{id}/edit", s.handleOpenEdit)
	page.HandleFunc("POST /expenses/{id}/delete", s.handleDeleteExpense)
	page.HandleFunc("POST /categories", s.handleAddCategory)
	page.HandleFunc("POST /categories/{id}/delete", s.handleDeleteCategory)
	page.HandleFunc("POST /modals/category/open", s.handleOpenCategory)
	page.HandleFunc("POST /modals/{modal}/close", s.handleCloseModal)
	page.HandleFunc("POST /modals/{modal}/outside", s.handleClickOutside)
	page.HandleFunc("GET /charts/categories.png", s.handleCategoryChart)

	limited := s.limiter.Middleware(s.ips.ClientIP, nil, http.MethodPost)
	mux.Handle("/", security.NoStore(limited(page)))

	var h http.Handler = mux
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = log.Middleware(s.logger, s.ips.ClientIP)(h)
	h = trace.Middleware(h)
	return h
}

// Start launches the session sweeper.
func (s *Server) Start() {
	s.caches.StartCleanup(s.cfg.CleanupInterval)
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	return s.sessions.Len()
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// ListenAndServe is http.Server.ListenAndServe without the error returned on
// a clean shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := s.backend.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(ctx, "Backend not ready", log.FieldError, err)
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
