package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type CompleteRequest struct {
	Operation string `json:"operation"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type CompleteResponse struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

// LLMProvider issues one extraction call. Retry with backoff is applied by
// the caller's activity retry policy, not inside the provider.
type LLMProvider interface {
	Complete(ctx context.Context, req CompleteRequest) (CompleteResponse, ProviderInfo, error)
}

// EmbeddingProvider returns one unit-normalized vector per input, batched.
type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}
