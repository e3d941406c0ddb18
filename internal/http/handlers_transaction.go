package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/report"
	"tally/internal/storage"
)

type transactionListResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Summary      core.Summary       `json:"summary"`
}

// parseTransactionFilter reads the optional list filters off the query string.
func parseTransactionFilter(r *http.Request) (storage.TransactionFilter, error) {
	q := r.URL.Query()
	filter := storage.TransactionFilter{
		StartDate:  strings.TrimSpace(q.Get("start_date")),
		EndDate:    strings.TrimSpace(q.Get("end_date")),
		CategoryID: strings.TrimSpace(q.Get("category_id")),
	}

	if filter.StartDate != "" && !core.ValidDate(filter.StartDate) {
		return filter, errors.New("invalid start_date: expected YYYY-MM-DD")
	}
	if filter.EndDate != "" && !core.ValidDate(filter.EndDate) {
		return filter, errors.New("invalid end_date: expected YYYY-MM-DD")
	}

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return filter, errors.New("invalid limit: expected a positive number")
		}
		filter.Limit = limit
	}

	return filter, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	txs, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, transactionListResponse{
		Transactions: txs,
		Summary:      report.Summarize(txs),
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.store.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeBody(w, r, &tx); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := tx.Validate(); err != nil {
		respondError(w, r, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}

	if err := s.store.CreateTransaction(r.Context(), &tx); err != nil {
		respondStoreError(w, r, err)
		return
	}

	s.invalidateDerived()
	s.publishChange(r.Context(), tx.ID, amqp.OpCreate)

	slog.InfoContext(r.Context(), "Transaction created",
		"transaction_id", tx.ID,
		"kind", string(tx.Kind),
		"amount", tx.Amount.String())
	respondJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeBody(w, r, &tx); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	tx.ID = r.PathValue("id")
	if err := tx.Validate(); err != nil {
		respondError(w, r, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}

	if err := s.store.UpdateTransaction(r.Context(), tx); err != nil {
		respondStoreError(w, r, err)
		return
	}

	// The update leaves created_at untouched, so the decoded body does not
	// carry it. Reload the row to echo the stored state.
	updated, err := s.store.GetTransaction(r.Context(), tx.ID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	s.invalidateDerived()
	s.publishChange(r.Context(), tx.ID, amqp.OpUpdate)

	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.store.DeleteTransaction(r.Context(), id); err != nil {
		respondStoreError(w, r, err)
		return
	}

	s.invalidateDerived()
	s.publishChange(r.Context(), id, amqp.OpDelete)

	w.WriteHeader(http.StatusNoContent)
}
