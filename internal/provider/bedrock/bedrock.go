// Package bedrock adapts the generic chat contract to AWS Bedrock's
// InvokeModel API using the Anthropic message schema. Credentials and
// signing come from the AWS SDK default chain, so the descriptor only
// needs a region.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/maildash/assistant-gateway/internal/config"
	"github.com/maildash/assistant-gateway/internal/domain"
)

const anthropicVersion = "bedrock-2023-05-31"

type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type Adapter struct {
	desc   config.Provider
	client invoker
}

func New(ctx context.Context, desc config.Provider) (*Adapter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(desc.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Adapter{
		desc:   desc,
		client: bedrockruntime.NewFromConfig(cfg),
	}, nil
}

func NewWithClient(desc config.Provider, client invoker) *Adapter {
	return &Adapter{desc: desc, client: client}
}

func (a *Adapter) Kind() string {
	return domain.ProviderBedrock
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeResponse struct {
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

func (a *Adapter) Complete(ctx context.Context, messages []domain.Message) (*domain.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.desc.Timeout)
	defer cancel()

	req := invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        a.desc.MaxTokens,
		Temperature:      a.desc.Temperature,
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

	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(a.desc.DefaultModel),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	}

	output, err := a.client.InvokeModel(ctx, input)
	if err != nil {
		return nil, a.classify(err)
	}

	var invokeResp invokeResponse
	if err := json.Unmarshal(output.Body, &invokeResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	var content string
	for _, block := range invokeResp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	model := invokeResp.Model
	if model == "" {
		model = a.desc.DefaultModel
	}

	return &domain.Response{
		Content: content,
		Usage: &domain.Usage{
			PromptTokens:     invokeResp.Usage.InputTokens,
			CompletionTokens: invokeResp.Usage.OutputTokens,
			TotalTokens:      invokeResp.Usage.InputTokens + invokeResp.Usage.OutputTokens,
		},
		Model:    model,
		Provider: a.Kind(),
	}, nil
}

func (a *Adapter) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ProviderError{
			Provider: a.Kind(),
			Kind:     domain.FailureTimeout,
			Message:  fmt.Sprintf("request timed out after %s", a.desc.Timeout),
		}
	}

	var respErr interface {
		HTTPStatusCode() int
		Error() string
	}
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		return &domain.ProviderError{
			Provider:   a.Kind(),
			StatusCode: status,
			Kind:       domain.ClassifyStatus(status),
			Message:    respErr.Error(),
		}
	}

	return &domain.ProviderError{
		Provider: a.Kind(),
		Kind:     domain.FailureUpstream,
		Message:  "invoke model: " + err.Error(),
	}
}
