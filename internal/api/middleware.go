package api

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/maildash/assistant-gateway/internal/metrics"
	"github.com/maildash/assistant-gateway/internal/ratelimit"
)

// clientIdentifier picks the identifier quota is keyed on. Proxy headers
// win over the socket address; development collapses everyone onto one
// identifier so local work never trips the limiter unevenly.
func (h *Handler) clientIdentifier(r *http.Request) string {
	if !h.cfg.Production() {
		return "dev-client"
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if cfIP := r.Header.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.RateLimit.Enabled || h.limiter == nil {
			next(w, r)
			return
		}

		ctx := r.Context()
		identifier := h.clientIdentifier(r)

		decision, err := h.limiter.Check(ctx, identifier)
		if err != nil {
			slog.Error("rate limiter check failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred. Please try again later.")
			return
		}

		if !decision.Allowed {
			h.writeRateLimited(w, decision)
			return
		}

		if err := h.limiter.Record(ctx, identifier); err != nil {
			slog.Warn("rate limiter record failed", "error", err)
		}

		if usage, err := h.limiter.Usage(ctx, identifier); err == nil {
			w.Header().Set("X-RateLimit-Limit-Minute", strconv.Itoa(h.cfg.RateLimit.MaxRequestsPerMinute))
			w.Header().Set("X-RateLimit-Limit-Hour", strconv.Itoa(h.cfg.RateLimit.MaxRequestsPerHour))
			w.Header().Set("X-RateLimit-Remaining-Minute", strconv.Itoa(nonNegative(h.cfg.RateLimit.MaxRequestsPerMinute-usage.Minute)))
			w.Header().Set("X-RateLimit-Remaining-Hour", strconv.Itoa(nonNegative(h.cfg.RateLimit.MaxRequestsPerHour-usage.Hour)))
		}

		next(w, r)
	}
}

func (h *Handler) writeRateLimited(w http.ResponseWriter, decision ratelimit.Decision) {
	metrics.RecordRateLimitHit(decision.Window)

	retryAfter := int(math.Ceil(time.Until(decision.ResetAt).Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	limit := h.cfg.RateLimit.MaxRequestsPerMinute
	if decision.Window == ratelimit.WindowHour {
		limit = h.cfg.RateLimit.MaxRequestsPerHour
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.UnixMilli(), 10))
	w.WriteHeader(http.StatusTooManyRequests)

	writeJSON(w, map[string]any{
		"error":     "Rate limit exceeded",
		"message":   "Too many requests. Please wait " + strconv.Itoa(retryAfter) + " seconds before trying again.",
		"resetTime": decision.ResetAt.UnixMilli(),
		"limit":     decision.Window,
	})
}

func (h *Handler) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred. Please try again later.")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
