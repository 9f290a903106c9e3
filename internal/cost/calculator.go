// Package cost estimates the USD cost of a completed request from upstream
// list prices. Unknown models cost zero rather than guessing.
package cost

import (
	"time"

	"github.com/maildash/assistant-gateway/internal/domain"
)

type ModelPricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

var defaultPricing = map[string]ModelPricing{
	"gpt-4":         {InputPer1K: 0.03, OutputPer1K: 0.06},
	"gpt-4-turbo":   {InputPer1K: 0.01, OutputPer1K: 0.03},
	"gpt-3.5-turbo": {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	// azure deployment naming
	"gpt-35-turbo":             {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	"claude-3-opus-20240229":   {InputPer1K: 0.015, OutputPer1K: 0.075},
	"claude-3-sonnet-20240229": {InputPer1K: 0.003, OutputPer1K: 0.015},
	"claude-3-haiku-20240307":  {InputPer1K: 0.00025, OutputPer1K: 0.00125},
	"anthropic.claude-3-sonnet-20240229-v1:0": {InputPer1K: 0.003, OutputPer1K: 0.015},
	"anthropic.claude-3-haiku-20240307-v1:0":  {InputPer1K: 0.00025, OutputPer1K: 0.00125},
}

type Calculator struct {
	pricing map[string]ModelPricing
}

func NewCalculator() *Calculator {
	return &Calculator{pricing: defaultPricing}
}

func (c *Calculator) Calculate(model string, usage domain.Usage) float64 {
	pricing, ok := c.pricing[model]
	if !ok {
		return 0
	}

	inputCost := float64(usage.PromptTokens) / 1000 * pricing.InputPer1K
	outputCost := float64(usage.CompletionTokens) / 1000 * pricing.OutputPer1K
	return inputCost + outputCost
}

func (c *Calculator) SetPricing(model string, pricing ModelPricing) {
	c.pricing[model] = pricing
}

// UsageRecord is one completed request for accounting. ClientHash is a
// SHA-256 of the network identifier; the raw identifier is never stored.
type UsageRecord struct {
	ID               string    `json:"id"`
	ClientHash       string    `json:"clientHash"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	CostUSD          float64   `json:"costUsd"`
	Cached           bool      `json:"cached"`
	LatencyMs        int64     `json:"latencyMs"`
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
}
