package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/maildash/assistant-gateway/internal/config"
	"github.com/maildash/assistant-gateway/internal/domain"
)

type mockInvoker struct {
	invokeFunc func(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

func (m *mockInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	return m.invokeFunc(ctx, params, optFns...)
}

func testDescriptor() config.Provider {
	return config.Provider{
		Kind:         "bedrock",
		Region:       "us-east-1",
		DefaultModel: "anthropic.claude-3-sonnet-20240229-v1:0",
		MaxTokens:    2000,
		Temperature:  0.7,
		Timeout:      5 * time.Second,
	}
}

func TestComplete(t *testing.T) {
	var gotInput *bedrockruntime.InvokeModelInput

	client := &mockInvoker{
		invokeFunc: func(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
			gotInput = params
			body, _ := json.Marshal(map[string]any{
				"content": []map[string]any{
					{"type": "text", "text": "hello "},
					{"type": "text", "text": "from bedrock"},
				},
				"usage": map[string]any{"input_tokens": 15, "output_tokens": 7},
			})
			return &bedrockruntime.InvokeModelOutput{Body: body}, nil
		},
	}

	adapter := NewWithClient(testDescriptor(), client)

	resp, err := adapter.Complete(context.Background(), []domain.Message{
		{Role: "system", Content: "You are helpful."},
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if got := *gotInput.ModelId; got != "anthropic.claude-3-sonnet-20240229-v1:0" {
		t.Errorf("ModelId = %q", got)
	}

	var req invokeRequest
	if err := json.Unmarshal(gotInput.Body, &req); err != nil {
		t.Fatal(err)
	}
	if req.AnthropicVersion != anthropicVersion {
		t.Errorf("anthropic_version = %q", req.AnthropicVersion)
	}
	if req.System != "You are helpful." {
		t.Errorf("system = %q, want folded system message", req.System)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Errorf("messages = %+v, want single user turn", req.Messages)
	}

	if resp.Content != "hello from bedrock" {
		t.Errorf("Content = %q, want concatenated text blocks", resp.Content)
	}
	if resp.Provider != domain.ProviderBedrock {
		t.Errorf("Provider = %q", resp.Provider)
	}
	if resp.Usage.TotalTokens != 22 {
		t.Errorf("TotalTokens = %d, want 22", resp.Usage.TotalTokens)
	}
}

type apiError struct {
	status int
	msg    string
}

func (e *apiError) HTTPStatusCode() int { return e.status }
func (e *apiError) Error() string       { return e.msg }

func TestComplete_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind domain.FailureKind
	}{
		{"throttled", &apiError{status: 429, msg: "ThrottlingException"}, domain.FailureRateLimited},
		{"access denied", &apiError{status: 403, msg: "AccessDeniedException"}, domain.FailureAuth},
		{"server error", &apiError{status: 500, msg: "InternalServerException"}, domain.FailureUpstream},
		{"deadline", context.DeadlineExceeded, domain.FailureTimeout},
		{"transport", errors.New("connection refused"), domain.FailureUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockInvoker{
				invokeFunc: func(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
					return nil, tt.err
				},
			}
			adapter := NewWithClient(testDescriptor(), client)

			_, err := adapter.Complete(context.Background(), []domain.Message{{Role: "user", Content: "hi"}})
			var provErr *domain.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("error = %v, want *domain.ProviderError", err)
			}
			if provErr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", provErr.Kind, tt.wantKind)
			}
		})
	}
}
