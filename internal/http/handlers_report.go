package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"tally/internal/core"
	"tally/internal/insight"
	"tally/internal/report"
	"tally/internal/storage"
	"tally/internal/worker"
)

// Snapshots older than this are recomputed live instead of served.
const snapshotFreshFor = 10 * time.Minute

// SummaryResponse carries the overall totals plus the month-by-month series.
type SummaryResponse struct {
	Current core.Summary          `json:"current"`
	Monthly []core.MonthlySummary `json:"monthly"`
}

type insightsResponse struct {
	Insights    []insight.Insight `json:"insights"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	// Totals cover the whole filtered range; a row limit would silently
	// truncate them, and the cache key does not carry it.
	filter.Limit = 0

	key := "summary:" + filter.StartDate + ":" + filter.EndDate + ":" + filter.CategoryID
	if resp, found := s.summaryCache.Get(key); found {
		slog.DebugContext(r.Context(), "Summary cache hit", "key", key)
		respondJSON(w, http.StatusOK, resp)
		return
	}

	txs, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	resp := SummaryResponse{
		Current: report.Summarize(txs),
		Monthly: report.MonthlySeries(txs),
	}
	s.summaryCache.Set(key, resp)

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if resp, ok := s.snapshotInsights(r); ok {
		respondJSON(w, http.StatusOK, resp)
		return
	}

	txs, err := s.store.ListTransactions(r.Context(), storage.TransactionFilter{})
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	budgets, err := s.store.ListBudgetLimits(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	insights := insight.Generate(txs, cats, budgets, time.Now())
	insight.SortBySeverity(insights)

	respondJSON(w, http.StatusOK, insightsResponse{
		Insights:    insights,
		GeneratedAt: time.Now().UTC(),
	})
}

// snapshotInsights serves the worker's latest insight snapshot when it is
// recent enough. Any snapshot problem falls back to live computation.
func (s *Server) snapshotInsights(r *http.Request) (insightsResponse, bool) {
	body, generatedAt, err := s.store.LatestSnapshot(r.Context(), worker.SnapshotInsights)
	if err != nil {
		return insightsResponse{}, false
	}
	if time.Since(generatedAt) > snapshotFreshFor {
		return insightsResponse{}, false
	}

	var payload worker.InsightsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.WarnContext(r.Context(), "Discarding unreadable insight snapshot", "error", err)
		return insightsResponse{}, false
	}

	return insightsResponse{Insights: payload.Insights, GeneratedAt: generatedAt}, true
}
