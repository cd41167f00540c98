package cost

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateKnownModel(t *testing.T) {
	// 1M input + 1M output at sonnet rates.
	require.Equal(t, 18.0, Calculate("claude-sonnet-4-5-20250929", 1_000_000, 1_000_000))
	require.Equal(t, 4.8, Calculate("claude-haiku-4-5-20251001", 1_000_000, 1_000_000))
}

func TestCalculateSmallCall(t *testing.T) {
	got := Calculate("claude-sonnet-4-5-20250929", 1500, 400)
	require.Equal(t, 0.0105, got)
}

func TestCalculateUnknownModelUsesDefault(t *testing.T) {
	require.Equal(t, Calculate("claude-sonnet-4-5-20250929", 1000, 1000), Calculate("some-future-model", 1000, 1000))
}

func TestCalculateZeroTokens(t *testing.T) {
	require.Zero(t, Calculate("claude-sonnet-4-5-20250929", 0, 0))
}
