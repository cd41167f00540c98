package activities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkOffsetsAdvancesThroughDocument(t *testing.T) {
	para1 := "First paragraph with some words."
	para2 := "Second paragraph carries different words."
	para3 := "Third paragraph closes the document."
	normText := strings.Join([]string{para1, para2, para3}, "\n\n")

	// Second chunk repeats the previous paragraph as overlap.
	chunk1 := para1 + "\n\n" + para2
	chunk2 := para2 + "\n\n" + para3

	start1, end1, cursor := chunkOffsets(normText, 0, chunk1)
	require.Equal(t, 0, start1)
	require.Equal(t, len(chunk1), end1)

	start2, end2, _ := chunkOffsets(normText, cursor, chunk2)
	require.Equal(t, len(normText), end2)
	require.Equal(t, len(normText)-len(chunk2), start2)
	require.Less(t, start2, end1, "overlap region should precede the prior chunk's end")
}

func TestChunkOffsetsFallbackWhenTailMissing(t *testing.T) {
	normText := "completely unrelated text body"
	start, end, cursor := chunkOffsets(normText, 0, "chunk that appears nowhere")
	require.Equal(t, 0, start)
	require.LessOrEqual(t, end, len(normText))
	require.Equal(t, end, cursor)
}
