package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// wordCount stands in for the BPE tokenizer: deterministic and cheap.
func wordCount(s string) int {
	return len(strings.Fields(s))
}

func words(prefix string, n int) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf("%s%d", prefix, i))
	}
	return strings.Join(parts, " ")
}

func TestSplitParagraphs(t *testing.T) {
	require.Equal(t, []string{"Hello world"}, SplitParagraphs("Hello world"))

	got := SplitParagraphs("Paragraph one.\n\nParagraph two.\n\nParagraph three.")
	require.Len(t, got, 3)

	got = SplitParagraphs("First.\n\n\n\n\nSecond.")
	require.Equal(t, []string{"First.", "Second."}, got)
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("One sentence. Another one! A third? Trailing")
	require.Equal(t, []string{"One sentence.", "Another one!", "A third?", "Trailing"}, got)

	// Punctuation without trailing whitespace does not split.
	got = SplitSentences("version 1.2 of the tool")
	require.Equal(t, []string{"version 1.2 of the tool"}, got)
}

func TestChunkEmptyInput(t *testing.T) {
	c := New(wordCount)
	require.Empty(t, c.Chunk("", 100, 10))
	require.Empty(t, c.Chunk("   ", 100, 10))
	require.Empty(t, c.Chunk("\n\n\n", 100, 10))
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	c := New(wordCount)
	text := "This is a short text."
	chunks := c.Chunk(text, 100, 10)
	require.Len(t, chunks, 1)
	require.Equal(t, text, chunks[0].Text)
	require.Equal(t, wordCount(text), chunks[0].TokenCount)
}

func TestChunkTokenCountsMatchTokenizer(t *testing.T) {
	c := New(wordCount)
	paragraphs := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		paragraphs = append(paragraphs, words(fmt.Sprintf("p%d_", i), 40))
	}
	chunks := c.Chunk(strings.Join(paragraphs, "\n\n"), 100, 20)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		require.Equal(t, wordCount(ch.Text), ch.TokenCount)
		require.LessOrEqual(t, ch.TokenCount, 100)
	}
}

func TestChunkOverlapScenario(t *testing.T) {
	// Three paragraphs of ~50 tokens with max 120 / overlap 20: the first
	// chunk holds paragraphs 1-2, the second starts with trailing content
	// of paragraph 2 before paragraph 3.
	p1 := words("a", 50)
	p2s := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		p2s = append(p2s, words(fmt.Sprintf("b%d_", i), 9)+".")
	}
	p2 := strings.Join(p2s, " ")
	p3 := words("c", 50)

	c := New(wordCount)
	chunks := c.Chunk(p1+"\n\n"+p2+"\n\n"+p3, 120, 20)
	require.Len(t, chunks, 2)

	require.Contains(t, chunks[0].Text, "a0")
	require.Contains(t, chunks[0].Text, "b4_0")
	require.NotContains(t, chunks[0].Text, "c0")

	// Overlap seeded from the tail of paragraph 2, within the 20-token budget.
	require.NotContains(t, chunks[1].Text, "a0")
	require.Contains(t, chunks[1].Text, "b4_0")
	require.Contains(t, chunks[1].Text, "c0")
	require.True(t, strings.HasPrefix(chunks[1].Text, "b3_0") || strings.HasPrefix(chunks[1].Text, "b4_0"))
}

func TestChunkOversizedParagraphSplitsBySentences(t *testing.T) {
	sentences := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		sentences = append(sentences, words(fmt.Sprintf("s%d_", i), 30)+".")
	}
	para := strings.Join(sentences, " ")

	c := New(wordCount)
	chunks := c.Chunk(para, 100, 30)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		require.LessOrEqual(t, ch.TokenCount, 100)
		// Sentence-level chunks join with single spaces, never blank lines.
		require.NotContains(t, ch.Text, "\n\n")
	}
}

func TestChunkOversizedSentenceEmittedWhole(t *testing.T) {
	big := words("giant", 300) + "."
	c := New(wordCount)
	chunks := c.Chunk(big, 100, 10)
	require.NotEmpty(t, chunks)
	found := false
	for _, ch := range chunks {
		if ch.TokenCount > 100 {
			found = true
		}
	}
	require.True(t, found, "oversized sentence should be emitted intact, exceeding the budget")
}

func TestChunkFlushesBufferBeforeOversizedParagraph(t *testing.T) {
	small := words("small", 10)
	big := strings.Join([]string{words("x", 60) + ".", words("y", 60) + "."}, " ")
	c := New(wordCount)
	chunks := c.Chunk(small+"\n\n"+big, 100, 10)
	require.GreaterOrEqual(t, len(chunks), 3)
	require.Equal(t, small, chunks[0].Text)
}

func TestEstimatePage(t *testing.T) {
	require.Equal(t, 1, EstimatePage(0, 1000, 10))
	require.Equal(t, 6, EstimatePage(500, 1000, 10))
	require.Equal(t, 10, EstimatePage(999, 1000, 10))
	// Clamped to the page range.
	require.Equal(t, 10, EstimatePage(2000, 1000, 10))
	// Single-page and degenerate inputs.
	require.Equal(t, 1, EstimatePage(500, 1000, 1))
	require.Equal(t, 1, EstimatePage(500, 1000, 0))
	require.Equal(t, 1, EstimatePage(0, 0, 10))
}
