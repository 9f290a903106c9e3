// Package api is the HTTP boundary of the gateway: request validation,
// rate limiting, status mapping, the health probe, and the admin surface.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maildash/assistant-gateway/internal/cache"
	"github.com/maildash/assistant-gateway/internal/config"
	"github.com/maildash/assistant-gateway/internal/cost"
	"github.com/maildash/assistant-gateway/internal/crypto"
	"github.com/maildash/assistant-gateway/internal/domain"
	"github.com/maildash/assistant-gateway/internal/metrics"
	"github.com/maildash/assistant-gateway/internal/prompt"
	"github.com/maildash/assistant-gateway/internal/queue"
	"github.com/maildash/assistant-gateway/internal/ratelimit"
	"github.com/maildash/assistant-gateway/internal/repository"
	"github.com/maildash/assistant-gateway/internal/telemetry"
)

// Sender is the dispatch side of the gateway.
type Sender interface {
	Send(ctx context.Context, userMessage string) (*domain.Response, error)
}

type HandlerConfig struct {
	Config     *config.Config
	Dispatcher Sender
	Limiter    ratelimit.Limiter
	Prompts    *prompt.Loader
	Cache      cache.Cache
	Queue      queue.Queue
	Calculator *cost.Calculator
	UsageRepo  repository.UsageRepository
}

type Handler struct {
	cfg        *config.Config
	dispatcher Sender
	limiter    ratelimit.Limiter
	prompts    *prompt.Loader
	cache      cache.Cache
	queue      queue.Queue
	calc       *cost.Calculator
	usageRepo  repository.UsageRepository
	mux        *http.ServeMux
}

func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		cfg:        cfg.Config,
		dispatcher: cfg.Dispatcher,
		limiter:    cfg.Limiter,
		prompts:    cfg.Prompts,
		cache:      cfg.Cache,
		queue:      cfg.Queue,
		calc:       cfg.Calculator,
		usageRepo:  cfg.UsageRepo,
		mux:        http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /api/ai/chat", h.withRateLimit(h.handleChat))
	h.mux.HandleFunc("GET /api/ai/chat", h.handleHealth)
	h.mux.Handle("GET /metrics", promhttp.Handler())
	h.registerAdmin()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withRecovery(h.mux).ServeHTTP(w, r)
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

type chatResponse struct {
	Content        string        `json:"content"`
	ConversationID string        `json:"conversationId,omitempty"`
	Usage          *domain.Usage `json:"usage,omitempty"`
	Model          string        `json:"model,omitempty"`
	Provider       string        `json:"provider,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set("X-Request-ID", requestID)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", "Request body must be valid JSON")
		return
	}

	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Missing message", "Message field is required")
		return
	}
	if vErr := validateMessage(req.Message); vErr != nil {
		writeError(w, http.StatusBadRequest, "Invalid input", vErr.Message)
		return
	}

	primary, ok := h.cfg.Primary()
	if !ok {
		slog.Error("primary provider not configured", "provider", h.cfg.Provider, "request_id", requestID)
		writeError(w, http.StatusServiceUnavailable, "Service unavailable", "AI service is temporarily unavailable. Please try again later.")
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	var cacheKey string
	if h.cfg.Caching.Enabled && h.cache != nil {
		cacheKey = cache.Key(primary.Kind, primary.DefaultModel, h.prompts.Load(), req.Message)
		if cached, hit := h.cache.Get(ctx, cacheKey); hit {
			metrics.CacheHits.Inc()
			w.Header().Set("X-Cache", "HIT")
			slog.Info("cache hit", "request_id", requestID, "provider", cached.Provider)
			writeChatResponse(w, cached, conversationID)
			return
		}
		metrics.CacheMisses.Inc()
	}

	ctx, span := telemetry.StartSpan(ctx, "gateway.dispatch")
	resp, err := h.dispatcher.Send(ctx, req.Message)
	latency := time.Since(start)

	if err != nil {
		telemetry.AddErrorAttribute(span, err)
		span.End()

		status := statusFromError(err)
		slog.Error("dispatch failed",
			"request_id", requestID,
			"provider", primary.Kind,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
		metrics.RecordRequest(primary.Kind, primary.DefaultModel, http.StatusText(status), latency.Seconds())
		metrics.RecordProviderError(primary.Kind, errorCode(err))
		h.publishUsage(r, cost.UsageRecord{
			ID:        requestID,
			Provider:  primary.Kind,
			Model:     primary.DefaultModel,
			LatencyMs: latency.Milliseconds(),
			Status:    errorCode(err),
			Timestamp: time.Now(),
		})

		writeErrorWithCode(w, status, "AI service error", friendlyMessage(err), errorCode(err))
		return
	}

	telemetry.AddRequestAttributes(span, resp.Provider, resp.Model, requestID)
	if resp.Usage != nil {
		telemetry.AddTokenAttributes(span, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	span.End()

	if cacheKey != "" {
		if err := h.cache.Set(ctx, cacheKey, resp, h.cfg.Caching.TTL); err != nil {
			slog.Warn("cache store failed", "error", err, "request_id", requestID)
		}
	}

	record := cost.UsageRecord{
		ID:        requestID,
		Provider:  resp.Provider,
		Model:     resp.Model,
		LatencyMs: latency.Milliseconds(),
		Status:    "success",
		Timestamp: time.Now(),
	}
	if resp.Usage != nil {
		record.PromptTokens = resp.Usage.PromptTokens
		record.CompletionTokens = resp.Usage.CompletionTokens
		if h.calc != nil {
			record.CostUSD = h.calc.Calculate(resp.Model, *resp.Usage)
			metrics.RecordCost(resp.Provider, resp.Model, record.CostUSD)
		}
		metrics.RecordTokens(resp.Provider, resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	h.publishUsage(r, record)

	metrics.RecordRequest(resp.Provider, resp.Model, "OK", latency.Seconds())
	slog.Info("request completed",
		"request_id", requestID,
		"provider", resp.Provider,
		"model", resp.Model,
		"latency_ms", latency.Milliseconds(),
	)

	w.Header().Set("X-Cache", "MISS")
	writeChatResponse(w, resp, conversationID)
}

// handleHealth reports configuration state without touching any upstream.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	primary, ok := h.cfg.Primary()
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]any{
			"status":    "unhealthy",
			"error":     "Configuration error",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"status":       "healthy",
		"provider":     h.cfg.Provider,
		"model":        primary.DefaultModel,
		"configured":   primary.Configured(),
		"rateLimiting": h.cfg.RateLimit.Enabled,
		"fallback":     h.cfg.Fallback.Enabled,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) publishUsage(r *http.Request, record cost.UsageRecord) {
	if h.queue == nil {
		return
	}
	record.ClientHash = crypto.HashIdentifier(h.clientIdentifier(r))
	if err := h.queue.Publish(r.Context(), record); err != nil {
		slog.Warn("usage publish failed", "id", record.ID, "error", err)
	}
}

func writeChatResponse(w http.ResponseWriter, resp *domain.Response, conversationID string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, chatResponse{
		Content:        resp.Content,
		ConversationID: conversationID,
		Usage:          resp.Usage,
		Model:          resp.Model,
		Provider:       resp.Provider,
	})
}

func writeError(w http.ResponseWriter, status int, errLabel, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]any{
		"error":   errLabel,
		"message": message,
	})
}

func writeErrorWithCode(w http.ResponseWriter, status int, errLabel, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]any{
		"error":   errLabel,
		"message": message,
		"code":    code,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}
