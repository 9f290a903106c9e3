package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/maildash/assistant-gateway/internal/domain"
)

// statusFromError maps a dispatch failure to an HTTP status. Typed errors
// are inspected first; the substring heuristic only catches errors that
// escaped the adapters untyped.
func statusFromError(err error) int {
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Kind {
		case domain.FailureRateLimited:
			return http.StatusTooManyRequests
		case domain.FailureAuth:
			return http.StatusServiceUnavailable
		case domain.FailureTimeout:
			return http.StatusGatewayTimeout
		default:
			return http.StatusInternalServerError
		}
	}

	if errors.Is(err, domain.ErrProviderNotConfigured) ||
		errors.Is(err, domain.ErrProviderNotFound) ||
		errors.Is(err, domain.ErrCircuitBreakerOpen) {
		return http.StatusServiceUnavailable
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return http.StatusTooManyRequests
	case strings.Contains(msg, "401") || strings.Contains(msg, "authentication"):
		return http.StatusServiceUnavailable
	case strings.Contains(msg, "timeout"):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// friendlyMessage converts a dispatch failure into a sentence safe to show
// an end user. Provider detail and credentials never pass through.
func friendlyMessage(err error) string {
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Kind {
		case domain.FailureRateLimited:
			return "I'm receiving too many requests right now. Please wait a moment and try again."
		case domain.FailureAuth:
			return "There's an issue with the AI service configuration. Please contact support."
		case domain.FailureTimeout:
			return "I'm having trouble connecting to the AI service. Please check your internet connection and try again."
		}

		lower := strings.ToLower(provErr.Message)
		switch {
		case strings.Contains(lower, "quota") || strings.Contains(lower, "billing") || strings.Contains(lower, "insufficient"):
			return "The AI service is temporarily unavailable due to usage limits. Please try again later."
		case strings.Contains(lower, "content") || strings.Contains(lower, "filter") || strings.Contains(lower, "policy"):
			return "I couldn't process your request due to content restrictions. Please try rephrasing your message."
		}
		return "I'm experiencing technical difficulties right now. Please try again in a few moments."
	}

	if errors.Is(err, domain.ErrProviderNotConfigured) || errors.Is(err, domain.ErrProviderNotFound) {
		return "AI service is temporarily unavailable. Please try again later."
	}
	if errors.Is(err, domain.ErrCircuitBreakerOpen) {
		return "The AI service is recovering from an issue. Please try again shortly."
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return "I'm receiving too many requests right now. Please wait a moment and try again."
	case strings.Contains(msg, "401") || strings.Contains(msg, "authentication") || strings.Contains(msg, "api key"):
		return "There's an issue with the AI service configuration. Please contact support."
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "network"):
		return "I'm having trouble connecting to the AI service. Please check your internet connection and try again."
	default:
		return "I'm experiencing technical difficulties right now. Please try again in a few moments."
	}
}

// errorCode is the machine-readable code carried alongside the friendly
// message.
func errorCode(err error) string {
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		return strings.ToUpper(string(provErr.Kind))
	}
	if errors.Is(err, domain.ErrCircuitBreakerOpen) {
		return "CIRCUIT_OPEN"
	}
	return "UNKNOWN_ERROR"
}
