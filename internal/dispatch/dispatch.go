// Package dispatch routes a chat request to the configured primary provider
// and, when enabled, walks the fallback order until one adapter succeeds.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maildash/assistant-gateway/internal/circuitbreaker"
	"github.com/maildash/assistant-gateway/internal/config"
	"github.com/maildash/assistant-gateway/internal/domain"
	"github.com/maildash/assistant-gateway/internal/metrics"
	"github.com/maildash/assistant-gateway/internal/notifications"
	"github.com/maildash/assistant-gateway/internal/prompt"
)

// Adapter is one provider backend. Complete applies its own per-call
// timeout from the descriptor it was built with.
type Adapter interface {
	Kind() string
	Complete(ctx context.Context, messages []domain.Message) (*domain.Response, error)
}

type Dispatcher struct {
	cfg      *config.Config
	adapters map[string]Adapter
	prompts  *prompt.Loader
	breakers *circuitbreaker.Manager
	notifier notifications.Notifier
}

func New(cfg *config.Config, prompts *prompt.Loader, breakers *circuitbreaker.Manager, notifier notifications.Notifier) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		adapters: make(map[string]Adapter),
		prompts:  prompts,
		breakers: breakers,
		notifier: notifier,
	}
}

// Register makes an adapter available under its kind. Not safe for
// concurrent use with Send; register everything at startup.
func (d *Dispatcher) Register(a Adapter) {
	d.adapters[a.Kind()] = a
}

// Send completes a single user message. The system context is loaded fresh
// per call so edits to the context file take effect without a restart.
//
// Demo mode short-circuits everything: no fallback, no circuit breaker.
// When fallback is enabled and the primary fails, the configured kinds are
// tried in order; on total exhaustion the PRIMARY's error is returned, not
// the last fallback's, so callers see the failure of the provider they
// asked for.
func (d *Dispatcher) Send(ctx context.Context, userMessage string) (*domain.Response, error) {
	primary, ok := d.cfg.Primary()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, d.cfg.Provider)
	}

	messages := []domain.Message{
		{Role: "system", Content: d.prompts.Load()},
		{Role: "user", Content: userMessage},
	}

	if primary.DemoMode() {
		demo, ok := d.adapters[domain.ProviderDemo]
		if !ok {
			return nil, fmt.Errorf("%w: demo", domain.ErrProviderNotConfigured)
		}
		return demo.Complete(ctx, messages)
	}

	resp, primaryErr := d.attempt(ctx, primary.Kind, messages)
	if primaryErr == nil {
		return resp, nil
	}

	if !d.cfg.Fallback.Enabled {
		return nil, primaryErr
	}

	for _, kind := range d.cfg.Fallback.Providers {
		if kind == primary.Kind {
			continue
		}
		desc, ok := d.cfg.Providers[kind]
		if !ok || !desc.Configured() {
			continue
		}
		adapter, ok := d.adapters[kind]
		if !ok {
			continue
		}
		breaker := d.breakers.Get(kind)
		if err := breaker.Allow(); err != nil {
			slog.Debug("skipping fallback with open circuit", "fallback", kind)
			continue
		}

		slog.Warn("primary provider failed, trying fallback",
			"primary", primary.Kind,
			"fallback", kind,
			"error", primaryErr,
		)
		metrics.RecordFallback(primary.Kind, kind)
		d.notify(ctx, notifications.Event{
			Type:     notifications.EventProviderDown,
			Provider: primary.Kind,
			Message:  fmt.Sprintf("provider %s failed, falling back to %s", primary.Kind, kind),
		})

		resp, err := d.complete(ctx, kind, adapter, breaker, messages)
		if err == nil {
			return resp, nil
		}
		slog.Warn("fallback provider failed", "fallback", kind, "error", err)
	}

	d.notify(ctx, notifications.Event{
		Type:     notifications.EventProvidersExhausted,
		Provider: primary.Kind,
		Message:  "all providers failed",
	})

	return nil, primaryErr
}

// attempt runs one adapter behind its circuit breaker. An open breaker
// fails the attempt without touching the network.
func (d *Dispatcher) attempt(ctx context.Context, kind string, messages []domain.Message) (*domain.Response, error) {
	adapter, ok := d.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotConfigured, kind)
	}

	breaker := d.breakers.Get(kind)
	if err := breaker.Allow(); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	return d.complete(ctx, kind, adapter, breaker, messages)
}

func (d *Dispatcher) complete(ctx context.Context, kind string, adapter Adapter, breaker *circuitbreaker.Breaker, messages []domain.Message) (*domain.Response, error) {
	resp, err := adapter.Complete(ctx, messages)
	if err != nil {
		breaker.RecordFailure()
		if breaker.State() == circuitbreaker.StateOpen {
			d.notify(ctx, notifications.Event{
				Type:     notifications.EventCircuitOpened,
				Provider: kind,
				Message:  fmt.Sprintf("circuit opened for provider %s", kind),
			})
		}
		metrics.SetCircuitBreakerState(kind, int(breaker.State()))
		return nil, err
	}

	breaker.RecordSuccess()
	metrics.SetCircuitBreakerState(kind, int(breaker.State()))
	return resp, nil
}

// BreakerStates exposes circuit state for the health and admin surfaces.
func (d *Dispatcher) BreakerStates() map[string]string {
	return d.breakers.States()
}

func (d *Dispatcher) notify(ctx context.Context, event notifications.Event) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Send(ctx, event); err != nil {
		slog.Warn("notification failed", "type", event.Type, "error", err)
	}
}
