package cost

import (
	"math"
	"testing"

	"github.com/maildash/assistant-gateway/internal/domain"
)

func TestCalculate(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		name  string
		model string
		usage domain.Usage
		want  float64
	}{
		{
			name:  "gpt-4",
			model: "gpt-4",
			usage: domain.Usage{PromptTokens: 1000, CompletionTokens: 500},
			want:  0.03 + 0.03, // 1k in + 0.5k out
		},
		{
			name:  "claude sonnet",
			model: "claude-3-sonnet-20240229",
			usage: domain.Usage{PromptTokens: 2000, CompletionTokens: 1000},
			want:  0.006 + 0.015,
		},
		{
			name:  "unknown model costs zero",
			model: "demo-gpt-4",
			usage: domain.Usage{PromptTokens: 1000, CompletionTokens: 1000},
			want:  0,
		},
		{
			name:  "zero usage",
			model: "gpt-4",
			usage: domain.Usage{},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Calculate(tt.model, tt.usage)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Calculate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetPricing(t *testing.T) {
	c := NewCalculator()
	c.SetPricing("custom-model", ModelPricing{InputPer1K: 1, OutputPer1K: 2})

	got := c.Calculate("custom-model", domain.Usage{PromptTokens: 1000, CompletionTokens: 1000})
	if math.Abs(got-3) > 1e-9 {
		t.Errorf("Calculate() = %v, want 3", got)
	}
}
