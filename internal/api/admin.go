package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maildash/assistant-gateway/internal/crypto"
)

// registerAdmin wires the operator endpoints. Without ADMIN_TOKEN_HASH the
// routes are never registered, so the surface 404s entirely.
func (h *Handler) registerAdmin() {
	if h.cfg.AdminTokenHash == "" {
		return
	}

	h.mux.HandleFunc("POST /admin/ratelimit/reset", h.requireAdmin(h.adminResetRateLimit))
	h.mux.HandleFunc("GET /admin/usage", h.requireAdmin(h.adminUsage))
}

func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || !crypto.VerifyAdminToken(h.cfg.AdminTokenHash, token) {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "A valid admin token is required")
			return
		}
		next(w, r)
	}
}

func (h *Handler) adminResetRateLimit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identifier == "" {
		writeError(w, http.StatusBadRequest, "Invalid input", "identifier is required")
		return
	}

	if h.limiter == nil {
		writeError(w, http.StatusServiceUnavailable, "Service unavailable", "rate limiting is not active")
		return
	}

	if err := h.limiter.Reset(r.Context(), req.Identifier); err != nil {
		slog.Error("rate limit reset failed", "identifier", req.Identifier, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "reset failed")
		return
	}

	slog.Info("rate limit reset", "identifier", req.Identifier)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) adminUsage(w http.ResponseWriter, r *http.Request) {
	if h.usageRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "Service unavailable", "usage accounting is not active")
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid input", "since must be RFC 3339")
			return
		}
		since = parsed
	}

	records, err := h.usageRepo.Usage(r.Context(), since)
	if err != nil {
		slog.Error("usage query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "usage query failed")
		return
	}

	total, err := h.usageRepo.TotalCost(r.Context(), since)
	if err != nil {
		slog.Error("total cost query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "usage query failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"records":      records,
		"count":        len(records),
		"totalCostUsd": total,
		"since":        since.UTC().Format(time.RFC3339),
	})
}
