package domain

// Message is one turn in a conversation sent to a provider.
// Role is "system", "user", or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting for a single completion. TotalTokens is
// computed as PromptTokens+CompletionTokens when a provider does not
// report it directly.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Response is the normalized result returned by every provider adapter.
type Response struct {
	Content  string `json:"content"`
	Usage    *Usage `json:"usage,omitempty"`
	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Provider kinds known to the gateway.
const (
	ProviderOpenAI      = "openai"
	ProviderAzureOpenAI = "azure-openai"
	ProviderAnthropic   = "anthropic"
	ProviderBedrock     = "bedrock"
	ProviderDemo        = "demo"
)
