package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maildash/assistant-gateway/internal/config"
	"github.com/maildash/assistant-gateway/internal/domain"
)

func testDescriptor(baseURL string) config.Provider {
	return config.Provider{
		Name:         "openai",
		Kind:         domain.ProviderOpenAI,
		BaseURL:      baseURL,
		APIKey:       "sk-test",
		DefaultModel: "gpt-4",
		MaxTokens:    1000,
		Temperature:  0.7,
		Timeout:      5 * time.Second,
	}
}

func TestComplete(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hello there"}},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
		})
	}))
	defer server.Close()

	adapter := New(testDescriptor(server.URL), server.Client())

	resp, err := adapter.Complete(context.Background(), []domain.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", gotPath)
	}
	if gotBody["model"] != "gpt-4" {
		t.Errorf("request model = %v, want gpt-4", gotBody["model"])
	}

	if resp.Content != "hello there" {
		t.Errorf("Content = %q, want %q", resp.Content, "hello there")
	}
	if resp.Provider != domain.ProviderOpenAI {
		t.Errorf("Provider = %q, want %q", resp.Provider, domain.ProviderOpenAI)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Errorf("TotalTokens = %d, want 20", resp.Usage.TotalTokens)
	}
}

func TestComplete_ComputesTotalTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "ok"}},
			},
			"usage": map[string]int{"prompt_tokens": 7, "completion_tokens": 3},
		})
	}))
	defer server.Close()

	adapter := New(testDescriptor(server.URL), server.Client())

	resp, err := adapter.Complete(context.Background(), []domain.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d, want 10", resp.Usage.TotalTokens)
	}
}

func TestComplete_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   domain.FailureKind
		wantInMsg  string
	}{
		{
			name:      "server error with message",
			status:    http.StatusInternalServerError,
			body:      `{"error":{"message":"model overloaded"}}`,
			wantKind:  domain.FailureUpstream,
			wantInMsg: "model overloaded",
		},
		{
			name:      "unauthorized",
			status:    http.StatusUnauthorized,
			body:      `{"error":{"message":"invalid api key"}}`,
			wantKind:  domain.FailureAuth,
			wantInMsg: "invalid api key",
		},
		{
			name:      "rate limited",
			status:    http.StatusTooManyRequests,
			body:      `not json`,
			wantKind:  domain.FailureRateLimited,
			wantInMsg: http.StatusText(http.StatusTooManyRequests),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := New(testDescriptor(server.URL), server.Client())

			_, err := adapter.Complete(context.Background(), []domain.Message{{Role: "user", Content: "hi"}})
			if err == nil {
				t.Fatal("Complete() expected error, got nil")
			}

			var provErr *domain.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("error type = %T, want *domain.ProviderError", err)
			}
			if provErr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", provErr.Kind, tt.wantKind)
			}
			if provErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", provErr.StatusCode, tt.status)
			}
			if provErr.Message != tt.wantInMsg {
				t.Errorf("Message = %q, want %q", provErr.Message, tt.wantInMsg)
			}
		})
	}
}

func TestComplete_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server watches for client disconnect;
		// otherwise r.Context() is never canceled and Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	desc := testDescriptor(server.URL)
	desc.Timeout = 50 * time.Millisecond
	adapter := New(desc, server.Client())

	_, err := adapter.Complete(context.Background(), []domain.Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("Complete() expected timeout error, got nil")
	}

	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T, want *domain.ProviderError", err)
	}
	if provErr.Kind != domain.FailureTimeout {
		t.Errorf("Kind = %q, want %q", provErr.Kind, domain.FailureTimeout)
	}
}
