package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrProviderNotFound      = errors.New("provider not found")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrCircuitBreakerOpen    = errors.New("circuit breaker open")
)

// FailureKind classifies a provider failure at the adapter boundary so the
// gateway never has to recover it from error text.
type FailureKind string

const (
	FailureUpstream    FailureKind = "upstream"
	FailureTimeout     FailureKind = "timeout"
	FailureAuth        FailureKind = "auth"
	FailureRateLimited FailureKind = "rate_limited"
)

// ProviderError is an upstream failure carrying the provider kind, the
// upstream HTTP status (0 when none), and the upstream message. Credentials
// must never appear in Message.
type ProviderError struct {
	Provider   string
	StatusCode int
	Kind       FailureKind
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error: status=%d %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// ValidationError rejects an inbound payload. Field distinguishes the short
// machine category from the human message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ClassifyStatus maps an upstream HTTP status to a failure kind.
func ClassifyStatus(status int) FailureKind {
	switch status {
	case 401, 403:
		return FailureAuth
	case 429:
		return FailureRateLimited
	default:
		return FailureUpstream
	}
}
