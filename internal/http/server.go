// Package http exposes the JSON API over an embedded http.Server.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/trace"
	"tally/internal/storage"
)

// Store is the slice of the repository the API needs.
type Store interface {
	ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	CreateTransaction(ctx context.Context, t *core.Transaction) error
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, c *core.Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListWallets(ctx context.Context) ([]core.Wallet, error)
	CreateWallet(ctx context.Context, w *core.Wallet) error
	DeleteWallet(ctx context.Context, id string) error

	ListBudgetLimits(ctx context.Context) (map[string]decimal.Decimal, error)
	SetBudgetLimit(ctx context.Context, categoryID string, limit decimal.Decimal) error
	DeleteBudgetLimit(ctx context.Context, categoryID string) error

	LatestSnapshot(ctx context.Context, kind string) ([]byte, time.Time, error)
}

// EventPublisher notifies downstream consumers of transaction changes.
// A nil publisher disables change events without disabling the API.
type EventPublisher interface {
	PublishTransactionChanged(ctx context.Context, id, op string) error
}

type Server struct {
	http.Server
	store  Store
	events EventPublisher

	limiter      *ratelimit.Limiter
	summaryCache *cache.LRU[SummaryResponse]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store Store, events EventPublisher) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store:            store,
		events:           events,
		limiter:          ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		summaryCache:     cache.NewLRU[SummaryResponse](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/wallets", s.handleListWallets)
	mux.HandleFunc("POST /api/wallets", s.handleCreateWallet)
	mux.HandleFunc("DELETE /api/wallets/{id}", s.handleDeleteWallet)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("PUT /api/budgets/{categoryID}", s.handleSetBudget)
	mux.HandleFunc("DELETE /api/budgets/{categoryID}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/insights", s.handleInsights)
	mux.HandleFunc("GET /api/export", s.handleExport)

	limited := s.limiter.Middleware(trace.ClientIP)(mux)
	s.Handler = trace.Middleware(withSecurityHeaders(limited))
	s.Addr = addr

	go s.startCacheCleanup()

	return s
}

// withSecurityHeaders sets hardening headers suitable for a JSON API.
func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// startCacheCleanup periodically drops expired summary cache entries.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.summaryCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// invalidateDerived drops cached aggregates after any data mutation.
func (s *Server) invalidateDerived() {
	s.summaryCache.Purge()
}

// publishChange emits a transaction change event. Publish failures are
// logged but never fail the request; the worker also refreshes on a timer.
func (s *Server) publishChange(ctx context.Context, id, op string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionChanged(ctx, id, op); err != nil {
		slog.WarnContext(ctx, "Failed to publish transaction change",
			"error", err,
			"transaction_id", id,
			"op", op)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListCategories(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "storage not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
