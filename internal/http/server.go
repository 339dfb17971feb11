// Package http serves the JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cashops/internal/cache"
	"cashops/internal/core"
	applog "cashops/internal/log"
	"cashops/internal/report/sheets"
	"cashops/internal/services"
)

// errBadRequest wraps handler-level parse failures so respondError maps them
// to 400.
var errBadRequest = errors.New("bad request")

// ownerHeader carries the caller identity injected by the auth layer in
// front of this service.
const ownerHeader = "X-User-ID"

type Server struct {
	http.Server

	transactions *services.TransactionService
	budgets      *services.BudgetService
	materializer *services.Materializer
	exporter     *sheets.Exporter

	rateLimiter  *rateLimiter
	metricsCache *cache.LRU[core.Metrics]
	janitor      *cache.Janitor
	startOnce    sync.Once
	shutdownOnce sync.Once
}

// Options bundles the server dependencies. Exporter may be nil, which turns
// the sheets endpoint into 503. Logger defaults to a fresh http-scoped
// logger.
type Options struct {
	Addr         string
	Logger       *applog.Logger
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Materializer *services.Materializer
	Exporter     *sheets.Exporter

	MetricsCacheSize int
	MetricsCacheTTL  time.Duration
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	if opts.MetricsCacheSize < 1 {
		opts.MetricsCacheSize = 256
	}
	if opts.MetricsCacheTTL <= 0 {
		opts.MetricsCacheTTL = 30 * time.Second
	}

	mux := http.NewServeMux()
	requestID := func(*http.Request) string { return newRequestID() }
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           applog.Middleware(logger, requestID)(mux),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		transactions: opts.Transactions,
		budgets:      opts.Budgets,
		materializer: opts.Materializer,
		exporter:     opts.Exporter,
		rateLimiter:  newRateLimiter(),
		metricsCache: cache.NewLRU[core.Metrics](opts.MetricsCacheSize, opts.MetricsCacheTTL),
		janitor:      cache.NewJanitor(),
	}
	s.janitor.Register(s.metricsCache)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/transactions", s.with(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.with(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.with(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/transactions/import", s.with(s.handleImportTransactions))

	mux.HandleFunc("GET /api/metrics", s.with(s.handleMetrics))

	mux.HandleFunc("GET /api/budgets", s.with(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.with(s.handleUpsertBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.with(s.handleDeleteBudget))

	mux.HandleFunc("GET /api/recurring", s.with(s.handleListRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.with(s.handleDeleteRecurring))
	mux.HandleFunc("POST /api/recurring/check", s.with(s.handleRecurringCheck))

	mux.HandleFunc("POST /api/import/preview", s.with(s.handleImportPreview))
	mux.HandleFunc("GET /api/export/csv", s.with(s.handleExportCSV))
	mux.HandleFunc("GET /api/export/report", s.with(s.handleExportReport))
	mux.HandleFunc("POST /api/export/sheets", s.with(s.handleExportSheets))

	return s
}

// with wraps a handler with request logging, rate limiting on mutating
// methods, and security headers. The request-scoped logger installed by
// applog.Middleware is enriched here and re-stored so handlers and
// respondError pick it up through applog.FromContext.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		l := applog.FromContext(r.Context()).With(
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, ip)
		if o := owner(r); o != "" {
			l = l.With(applog.FieldOwnerID, o)
		}
		r = r.WithContext(applog.IntoContext(r.Context(), l))

		l.Info("Request started")

		if r.Method != http.MethodGet && !s.rateLimiter.allow(ip) {
			l.Warn("Rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		setSecurityHeaders(w)
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		l.Info("Request completed",
			applog.FieldStatusCode, rw.status,
			applog.FieldDuration, time.Since(start).Milliseconds())
	}
}

// owner extracts the caller identity. Handlers pass the empty string through
// to the services, which reject it with ErrUnauthorized.
func owner(r *http.Request) string {
	return r.Header.Get(ownerHeader)
}

// invalidateMetrics drops the owner's cached dashboard after a mutation.
func (s *Server) invalidateMetrics(ownerID string) {
	s.metricsCache.Delete(ownerID)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func newRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ListenAndServe starts the background cleanup loops and serves. The loops
// are started here rather than in NewServer so a constructed-but-unserved
// server leaves no goroutines behind.
func (s *Server) ListenAndServe() error {
	s.startBackground()
	return s.Server.ListenAndServe()
}

func (s *Server) startBackground() {
	s.startOnce.Do(func() {
		s.rateLimiter.start()
		s.janitor.Start(10 * time.Minute)
	})
}

// Shutdown stops the HTTP listener and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.janitor.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
