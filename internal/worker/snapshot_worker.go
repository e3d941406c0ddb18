// Package worker precomputes report payloads so dashboard reads do not
// re-scan the full history on every request.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/insight"
	"tally/internal/report"
	"tally/internal/storage"
)

// Snapshot kinds persisted by the worker.
const (
	SnapshotSummary  = "summary"
	SnapshotInsights = "insights"
)

// Store is the slice of the repository the worker needs.
type Store interface {
	ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListBudgetLimits(ctx context.Context) (map[string]decimal.Decimal, error)
	SaveSnapshot(ctx context.Context, kind string, payload []byte, generatedAt time.Time) error
}

// SummaryPayload is the stored shape of the summary snapshot.
type SummaryPayload struct {
	Current core.Summary          `json:"current"`
	Monthly []core.MonthlySummary `json:"monthly"`
}

// InsightsPayload is the stored shape of the insights snapshot.
type InsightsPayload struct {
	Insights []insight.Insight `json:"insights"`
}

type SnapshotWorker struct {
	store Store
	now   func() time.Time
}

func NewSnapshotWorker(store Store) *SnapshotWorker {
	return &SnapshotWorker{store: store, now: time.Now}
}

// HandleChangeMessage refreshes all snapshots in response to one change
// event. The message itself only triggers the reload; its ID is logged for
// tracing.
func (w *SnapshotWorker) HandleChangeMessage(ctx context.Context, msg *amqp.TransactionChangedMessage) error {
	slog.InfoContext(ctx, "Processing transaction change",
		"id", msg.ID,
		"op", msg.Op)
	return w.Refresh(ctx)
}

// Refresh recomputes the summary and insight snapshots from storage.
func (w *SnapshotWorker) Refresh(ctx context.Context) error {
	txs, err := w.store.ListTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	cats, err := w.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	budgets, err := w.store.ListBudgetLimits(ctx)
	if err != nil {
		return fmt.Errorf("load budget limits: %w", err)
	}

	now := w.now()

	summary := SummaryPayload{
		Current: report.Summarize(txs),
		Monthly: report.MonthlySeries(txs),
	}
	if err := w.save(ctx, SnapshotSummary, summary, now); err != nil {
		return err
	}

	insights := insight.Generate(txs, cats, budgets, now)
	insight.SortBySeverity(insights)
	if err := w.save(ctx, SnapshotInsights, InsightsPayload{Insights: insights}, now); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Snapshots refreshed",
		"transactions", len(txs),
		"insights", len(insights))
	return nil
}

func (w *SnapshotWorker) save(ctx context.Context, kind string, payload any, generatedAt time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", kind, err)
	}
	if err := w.store.SaveSnapshot(ctx, kind, body, generatedAt); err != nil {
		return fmt.Errorf("store %s snapshot: %w", kind, err)
	}
	return nil
}
