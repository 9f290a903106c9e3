package api

import (
	"regexp"
	"strings"

	"github.com/maildash/assistant-gateway/internal/domain"
)

const maxMessageLength = 4000

// Patterns that suggest prompt injection or abuse. Checked case-insensitively
// against the raw message.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(hack|exploit|bypass|jailbreak)\b`),
	regexp.MustCompile(`(?i)\b(ignore|forget|disregard)\b.*\b(instructions|prompt|context)\b`),
}

// validateMessage checks an inbound chat message. Order matters: presence,
// then length, then content filtering.
func validateMessage(message string) *domain.ValidationError {
	if strings.TrimSpace(message) == "" {
		return &domain.ValidationError{Field: "message", Message: "Message cannot be empty"}
	}

	if len(message) > maxMessageLength {
		return &domain.ValidationError{Field: "message", Message: "Message is too long. Please keep it under 4000 characters."}
	}

	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(message) {
			return &domain.ValidationError{Field: "message", Message: "Please rephrase your message to focus on email and calendar assistance."}
		}
	}

	return nil
}
