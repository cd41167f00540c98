package providers

import (
	"fmt"
	"strings"

	"watchdog/internal/config"
)

// Manager owns the configured LLM and embedding providers. Constructed once
// at process start and injected into everything that issues external calls.
type Manager struct {
	llm   LLMProvider
	embed EmbeddingProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{}

	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "anthropic":
		m.llm = NewAnthropicProvider(cfg.TriageModel)
	case "mock", "":
		m.llm = NewMockProvider(cfg.EmbedDim)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.EmbedProvider)) {
	case "openai":
		m.embed = NewOpenAIEmbedProvider(cfg.EmbedModel)
	case "mock", "":
		m.embed = NewMockProvider(cfg.EmbedDim)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbedProvider)
	}

	return m, nil
}

func (m *Manager) LLM() LLMProvider {
	return m.llm
}

func (m *Manager) Embedder() EmbeddingProvider {
	return m.embed
}
