// Package azureopenai adapts the generic chat contract to Azure-hosted
// OpenAI deployments. The deployment name doubles as the model: it appears
// in the URL path and is omitted from the request body, and auth uses the
// api-key header instead of a bearer token.
package azureopenai

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

const apiVersion = "2024-02-15-preview"

type Adapter struct {
	desc   config.Provider
	client *http.Client
}

func New(desc config.Provider, client *http.Client) *Adapter {
	return &Adapter{desc: desc, client: client}
}

func (a *Adapter) Kind() string {
	return domain.ProviderAzureOpenAI
}

type chatRequest struct {
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
		Messages:    messages,
		MaxTokens:   a.desc.MaxTokens,
		Temperature: a.desc.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		a.desc.BaseURL, a.desc.DefaultModel, apiVersion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", a.desc.APIKey)

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

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var content string
	if len(chatResp.Choices) > 0 {
		content = chatResp.Choices[0].Message.Content
	}

	model := chatResp.Model
	if model == "" {
		model = a.desc.DefaultModel
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
		Model:    model,
		Provider: a.Kind(),
	}, nil
}
