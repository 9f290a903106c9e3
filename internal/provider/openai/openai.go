// Package openai adapts the generic chat contract to the OpenAI
// chat-completions API.
package openai

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

type Adapter struct {
	desc   config.Provider
	client *http.Client
}

func New(desc config.Provider, client *http.Client) *Adapter {
	return &Adapter{desc: desc, client: client}
}

func (a *Adapter) Kind() string {
	return domain.ProviderOpenAI
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
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

	body, err := json.Marshal(chatRequest{
		Model:       a.desc.DefaultModel,
		Messages:    messages,
		MaxTokens:   a.desc.MaxTokens,
		Temperature: a.desc.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.desc.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.desc.APIKey)

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
		return nil, upstreamError(resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var content string
	if len(chatResp.Choices) > 0 {
		content = chatResp.Choices[0].Message.Content
	}

	if chatResp.Usage.TotalTokens == 0 {
		chatResp.Usage.TotalTokens = chatResp.Usage.PromptTokens + chatResp.Usage.CompletionTokens
	}

	return &domain.Response{
		Content: content,
		Usage: &domain.Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
		Model:    chatResp.Model,
		Provider: a.Kind(),
	}, nil
}

func upstreamError(resp *http.Response) *domain.ProviderError {
	message := http.StatusText(resp.StatusCode)

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var errResp errorResponse
	if json.Unmarshal(bodyBytes, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &domain.ProviderError{
		Provider:   domain.ProviderOpenAI,
		StatusCode: resp.StatusCode,
		Kind:       domain.ClassifyStatus(resp.StatusCode),
		Message:    message,
	}
}
