package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// MockProvider produces deterministic embeddings and a canned triage
// response. Used in tests and offline runs.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 384
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim)}, nil
}

const mockTriageResponse = `{
  "priority_score": 0.1,
  "entities": [{"name": "Mock Entity", "type": "organization", "context": "deterministic mock output"}],
  "relationships": [],
  "anomalies": []
}`

func (m *MockProvider) Complete(ctx context.Context, req CompleteRequest) (CompleteResponse, ProviderInfo, error) {
	_ = ctx
	return CompleteResponse{
		Text:  mockTriageResponse,
		Usage: Usage{InputTokens: len(req.Prompt) / 4, OutputTokens: len(mockTriageResponse) / 4},
	}, ProviderInfo{Name: "mock", Model: "mock-llm-v1"}, nil
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		vec[i] = float32(u%2000)/1000.0 - 1.0
	}
	return Normalize(vec)
}
