package http

import (
	"net/http"

	"tally/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var cat core.Category
	if err := decodeBody(w, r, &cat); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := cat.Validate(); err != nil {
		respondError(w, r, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}

	if err := s.store.CreateCategory(r.Context(), &cat); err != nil {
		respondStoreError(w, r, err)
		return
	}

	s.invalidateDerived()
	respondJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		respondStoreError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.store.ListWallets(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wallets)
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var wallet core.Wallet
	if err := decodeBody(w, r, &wallet); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := wallet.Validate(); err != nil {
		respondError(w, r, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}

	if err := s.store.CreateWallet(r.Context(), &wallet); err != nil {
		respondStoreError(w, r, err)
		return
	}

	s.invalidateDerived()
	respondJSON(w, http.StatusCreated, wallet)
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteWallet(r.Context(), r.PathValue("id")); err != nil {
		respondStoreError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}
