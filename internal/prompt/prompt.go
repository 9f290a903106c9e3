// Package prompt loads the system context injected ahead of every user
// message. Context failures never fail a request: a generic default is
// substituted instead.
package prompt

import (
	"log/slog"
	"os"
)

// DefaultContext is used when the context file is missing or unreadable.
const DefaultContext = "You are a helpful AI assistant for email and calendar productivity."

type Loader struct {
	path      string
	maxLength int
}

func NewLoader(path string, maxLength int) *Loader {
	return &Loader{path: path, maxLength: maxLength}
}

// Load returns the context text, truncated to the configured maximum.
func (l *Loader) Load() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		slog.Warn("context file unavailable, using default context", "path", l.path, "error", err)
		return DefaultContext
	}

	text := string(data)
	if l.maxLength > 0 && len(text) > l.maxLength {
		slog.Warn("context truncated", "from", len(text), "to", l.maxLength)
		text = text[:l.maxLength]
	}

	return text
}
