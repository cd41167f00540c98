package providers

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockEmbedDeterministicAndNormalized(t *testing.T) {
	m := NewMockProvider(32)
	a, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"hello", "world"}})
	require.NoError(t, err)
	b, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"hello", "world"}})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 2)
	require.NotEqual(t, a[0], a[1])

	var sum float64
	for _, x := range a[0] {
		sum += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, sum, 1e-4)
}

func TestMockCompleteParsable(t *testing.T) {
	m := NewMockProvider(0)
	resp, info, err := m.Complete(context.Background(), CompleteRequest{Operation: "triage", Prompt: "chunk text"})
	require.NoError(t, err)
	require.Equal(t, "mock", info.Name)
	require.Contains(t, resp.Text, "priority_score")
	require.Positive(t, resp.Usage.OutputTokens)
}

func TestNormalizeZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	got := Normalize(v)
	for _, x := range got {
		require.False(t, math.IsNaN(float64(x)))
		require.Zero(t, x)
	}
}
