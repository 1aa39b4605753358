// Package api serves the expense REST contract consumed by the dashboard
// and the CLI.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
)

// Service is the business layer behind the handlers.
type Service interface {
	Categories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	Expenses(ctx context.Context) ([]core.Expense, error)
	ExpensesByCategory(ctx context.Context, categoryID int64) ([]core.Expense, error)
	Expense(ctx context.Context, id int64) (core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

type Config struct {
	AllowedOrigins []string
	TrustedProxies []string
}

type Handler struct {
	svc    Service
	logger *log.Logger
}

// NewRouter mounts the /api routes plus health probes.
func NewRouter(svc Service, cfg Config, logger *log.Logger) (http.Handler, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentAPI)

	ips, err := security.NewIPResolver(cfg.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	h := &Handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(trace.Middleware)
	r.Use(log.Middleware(logger, ips.ClientIP))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Accept", "Content-Type", trace.Header},
		ExposedHeaders:   []string{trace.Header},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.SetHeader("Cache-Control", "no-store"))

		api.Route("/categories", func(c chi.Router) {
			c.Get("/", h.ListCategories)
			c.Post("/", h.CreateCategory)
			c.Delete("/{id}", h.DeleteCategory)
		})

		api.Route("/expenses", func(e chi.Router) {
			e.Get("/", h.ListExpenses)
			e.Post("/", h.CreateExpense)
			e.Get("/by-category/{categoryId}", h.ListExpensesByCategory)
			e.Get("/{id}", h.GetExpense)
			e.Put("/{id}", h.UpdateExpense)
			e.Delete("/{id}", h.DeleteExpense)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r, nil
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.svc.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(ctx, "Store not ready", log.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
