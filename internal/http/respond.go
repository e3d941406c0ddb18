package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tally/internal/storage"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes v as indented JSON with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError writes a JSON error body. Server-side failures log the
// underlying error and hide it from the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status)
	}
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondStoreError maps repository errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "not found", nil)
		return
	}
	respondError(w, r, http.StatusInternalServerError, "internal error", err)
}

// decodeBody parses a JSON request body into dst, capping the body size.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}
