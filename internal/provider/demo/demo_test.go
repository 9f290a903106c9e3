package demo

import (
	"context"
	"strings"
	"testing"

	"github.com/maildash/assistant-gateway/internal/domain"
)

func TestComplete_KeywordRouting(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantIn  string
	}{
		{"email summary", "Can you summarize my emails?", "Email Summary"},
		{"email reply", "help me reply to this email", "Email Response Assistant"},
		{"email general", "my inbox is a mess", "Email Management Help"},
		{"schedule meeting", "schedule a meeting with the team", "Meeting Scheduling Assistant"},
		{"agenda", "what's on my calendar today", "Schedule Overview"},
		{"tasks", "show me my tasks", "Task Management Overview"},
		{"greeting", "hello", "Welcome"},
		{"unknown", "what is the weather", "I'm Here to Help"},
	}

	adapter := New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := adapter.Complete(context.Background(), []domain.Message{
				{Role: "system", Content: "you are helpful"},
				{Role: "user", Content: tt.message},
			})
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if !strings.Contains(resp.Content, tt.wantIn) {
				t.Errorf("Content missing %q, got: %.80s", tt.wantIn, resp.Content)
			}
		})
	}
}

func TestComplete_ResponseShape(t *testing.T) {
	adapter := New()

	userMessage := "hello there"
	resp, err := adapter.Complete(context.Background(), []domain.Message{{Role: "user", Content: userMessage}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if resp.Model != Model {
		t.Errorf("Model = %q, want %q", resp.Model, Model)
	}
	if resp.Provider != domain.ProviderDemo {
		t.Errorf("Provider = %q, want %q", resp.Provider, domain.ProviderDemo)
	}

	wantPrompt := len(userMessage)/4 + 50
	if resp.Usage.PromptTokens != wantPrompt {
		t.Errorf("PromptTokens = %d, want %d", resp.Usage.PromptTokens, wantPrompt)
	}
	if resp.Usage.TotalTokens != resp.Usage.PromptTokens+resp.Usage.CompletionTokens {
		t.Errorf("TotalTokens = %d, want prompt+completion", resp.Usage.TotalTokens)
	}
}

func TestComplete_CancelledContext(t *testing.T) {
	adapter := New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := adapter.Complete(ctx, []domain.Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("Complete() with cancelled context expected error")
	}
}
