package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tally/internal/export"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = export.FormatCSV
	}
	if format != export.FormatCSV && format != export.FormatJSON {
		respondError(w, r, http.StatusBadRequest, "invalid format: expected csv or json", nil)
		return
	}

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
	if len(txs) == 0 {
		respondError(w, r, http.StatusNotFound, "no transactions found", nil)
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(format, time.Now())+`"`)

	if format == export.FormatJSON {
		if err := export.WriteJSON(w, txs); err != nil {
			slog.ErrorContext(r.Context(), "Export write failed", "error", err, "format", format)
		}
		return
	}

	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	wallets, err := s.store.ListWallets(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	if err := export.WriteCSV(w, txs, cats, wallets); err != nil {
		slog.ErrorContext(r.Context(), "Export write failed", "error", err, "format", format)
	}
}
