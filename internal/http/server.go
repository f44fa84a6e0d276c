package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	applog "finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/middleware/security"
	"finance/internal/middleware/trace"
	"finance/internal/services"
	"finance/internal/sheets"
)

// Deps are the collaborators the HTTP layer serves. Exporter and Ready may
// be nil.
type Deps struct {
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	Exporter     sheets.MonthlyTotalsExporter
	Ready        func(context.Context) error
	Logger       *applog.Logger
	RateLimit    ratelimit.Config
}

type Server struct {
	http.Server
	categories   *services.CategoryService
	transactions *services.TransactionService
	exporter     sheets.MonthlyTotalsExporter
	ready        func(context.Context) error
	logger       *applog.Logger
	detector     *security.Detector
	rateLimiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	// The default proxy list always parses.
	detector, _ := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		categories:   deps.Categories,
		transactions: deps.Transactions,
		exporter:     deps.Exporter,
		ready:        deps.Ready,
		logger:       logger.WithComponent(applog.ComponentHTTP),
		detector:     detector,
		rateLimiter:  ratelimit.NewLimiter(deps.RateLimit),
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(applog.Middleware(s.logger))
	r.Use(trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware)
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(chimw.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, handleRateLimited)

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", s.handleListCategories)
		r.With(limit).Post("/", s.handleCreateCategory)
		r.Get("/{id}", s.handleGetCategory)
		r.With(limit).Put("/{id}", s.handleUpdateCategory)
		r.With(limit).Delete("/{id}", s.handleDeleteCategory)
	})
	r.Get("/categories-monthly-totals", s.handleMonthlyTotals)
	r.With(limit).Post("/categories-monthly-totals/export", s.handleExportMonthlyTotals)
	r.Get("/categories-amount", s.handleAmountByCategory)

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", s.handleListTransactions)
		r.With(limit).Post("/", s.handleCreateTransaction)
		r.Get("/{id}", s.handleGetTransaction)
		r.With(limit).Put("/{id}", s.handleUpdateTransaction)
		r.With(limit).Delete("/{id}", s.handleDeleteTransaction)
	})

	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}
