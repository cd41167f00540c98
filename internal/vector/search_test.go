package vector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToLiteral(t *testing.T) {
	got := ToLiteral([]float32{0.5, -1, 0.25})
	require.Equal(t, "[0.500000,-1.000000,0.250000]", got)
}

func TestToLiteralEmpty(t *testing.T) {
	require.Equal(t, "[]", ToLiteral(nil))
}
