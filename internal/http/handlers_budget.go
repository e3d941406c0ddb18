package http

import (
	"net/http"
	"sort"

	"github.com/shopspring/decimal"
)

type budgetEntry struct {
	CategoryID string          `json:"categoryId"`
	Limit      decimal.Decimal `json:"limit"`
}

type setBudgetRequest struct {
	Limit decimal.Decimal `json:"limit"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgetLimits(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	entries := make([]budgetEntry, 0, len(budgets))
	for id, limit := range budgets {
		entries = append(entries, budgetEntry{CategoryID: id, Limit: limit})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CategoryID < entries[j].CategoryID })

	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	categoryID := r.PathValue("categoryID")

	var req setBudgetRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if !req.Limit.IsPositive() {
		respondError(w, r, http.StatusUnprocessableEntity, "budget limit must be positive", nil)
		return
	}

	if err := s.store.SetBudgetLimit(r.Context(), categoryID, req.Limit); err != nil {
		respondStoreError(w, r, err)
		return
	}

	s.invalidateDerived()
	respondJSON(w, http.StatusOK, budgetEntry{CategoryID: categoryID, Limit: req.Limit})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBudgetLimit(r.Context(), r.PathValue("categoryID")); err != nil {
		respondStoreError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}
