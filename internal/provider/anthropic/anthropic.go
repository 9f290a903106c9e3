// Package anthropic adapts the generic chat contract to the Anthropic
// messages API. Anthropic has no "system" role in its turn list: the system
// message is folded into the top-level system field, and total token usage
// is computed from the input/output counts it reports.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/maildash/assistant-gateway/internal/config"
	"github.com/maildash/assistant-gateway/internal/domain"
)

const anthropicVersion = "2023-06-01"

type Adapter struct {
	desc   config.Provider
	client *http.Client
}

func New(desc config.Provider, client *http.Client) *Adapter {
	return &Adapter{desc: desc, client: client}
}

func (a *Adapter) Kind() string {
	return domain.ProviderAnthropic
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Adapter) Complete(ctx context.Context, messages []domain.Message) (*domain.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.desc.Timeout)
	defer cancel()

	req := messagesRequest{
		Model:       a.desc.DefaultModel,
		MaxTokens:   a.desc.MaxTokens,
		Temperature: a.desc.Temperature,
	}
	for _, m := range messages {
		if m.Role == "system" {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, message{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.desc.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.desc.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &domain.ProviderError{
				Provider: a.Kind(),
				Kind:     domain.FailureTimeout,
				Message:  fmt.Sprintf("request timed out after %s", a.desc.Timeout),
			}
		}
		return nil, &domain.ProviderError{
			Provider: a.Kind(),
			Kind:     domain.FailureUpstream,
			Message:  "request failed: " + err.Error(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		message := http.StatusText(resp.StatusCode)

		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var errResp errorResponse
		if json.Unmarshal(bodyBytes, &errResp) == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}

		return nil, &domain.ProviderError{
			Provider:   a.Kind(),
			StatusCode: resp.StatusCode,
			Kind:       domain.ClassifyStatus(resp.StatusCode),
			Message:    message,
		}
	}

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var content string
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &domain.Response{
		Content: content,
		Usage: &domain.Usage{
			PromptTokens:     msgResp.Usage.InputTokens,
			CompletionTokens: msgResp.Usage.OutputTokens,
			TotalTokens:      msgResp.Usage.InputTokens + msgResp.Usage.OutputTokens,
		},
		Model:    msgResp.Model,
		Provider: a.Kind(),
	}, nil
}
