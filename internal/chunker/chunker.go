// Package chunker splits extracted document text into token-bounded,
// overlapping chunks while preserving paragraph and sentence boundaries.
package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"watchdog/internal/tokenizer"
)

type Chunk struct {
	Text       string
	TokenCount int
}

var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// SplitParagraphs splits text on blank-line boundaries, dropping paragraphs
// that are empty after trimming.
func SplitParagraphs(text string) []string {
	parts := paragraphSep.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitSentences splits a paragraph on sentence-ending punctuation followed
// by whitespace.
func SplitSentences(text string) []string {
	out := make([]string, 0, 8)
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		out = append(out, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

type Chunker struct {
	count tokenizer.CountFunc
}

func New(count tokenizer.CountFunc) *Chunker {
	return &Chunker{count: count}
}

// Chunk splits text into chunks of at most maxTokens, seeding each chunk
// after the first with up to overlapTokens of trailing content from its
// predecessor. A single sentence longer than maxTokens is emitted whole.
func (c *Chunker) Chunk(text string, maxTokens, overlapTokens int) []Chunk {
	paragraphs := SplitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, 8)
	var buf []string
	bufTokens := 0

	for _, para := range paragraphs {
		paraTokens := c.count(para)

		// A paragraph that alone exceeds the budget is split by sentences.
		if paraTokens > maxTokens {
			if len(buf) > 0 {
				chunks = append(chunks, c.flush(buf, "\n\n"))
				buf = nil
				bufTokens = 0
			}
			chunks = append(chunks, c.chunkSentences(para, maxTokens, overlapTokens)...)
			continue
		}

		if bufTokens+paraTokens > maxTokens && len(buf) > 0 {
			chunks = append(chunks, c.flush(buf, "\n\n"))
			buf, bufTokens = c.paragraphOverlapSeed(buf, overlapTokens)
		}

		buf = append(buf, para)
		bufTokens += paraTokens
	}

	if len(buf) > 0 {
		chunks = append(chunks, c.flush(buf, "\n\n"))
	}
	return chunks
}

func (c *Chunker) chunkSentences(para string, maxTokens, overlapTokens int) []Chunk {
	sentences := SplitSentences(para)
	chunks := make([]Chunk, 0, 4)
	var buf []string
	bufTokens := 0

	for _, sent := range sentences {
		st := c.count(sent)
		if bufTokens+st > maxTokens && len(buf) > 0 {
			chunks = append(chunks, c.flush(buf, " "))
			buf, bufTokens = c.overlapSeed(buf, overlapTokens)
		}
		buf = append(buf, sent)
		bufTokens += st
	}
	if len(buf) > 0 {
		chunks = append(chunks, c.flush(buf, " "))
	}
	return chunks
}

func (c *Chunker) flush(parts []string, sep string) Chunk {
	text := strings.Join(parts, sep)
	return Chunk{Text: text, TokenCount: c.count(text)}
}

// overlapSeed walks the just-flushed parts in reverse, re-including trailing
// parts while their cumulative token count stays within the overlap budget.
func (c *Chunker) overlapSeed(parts []string, overlapTokens int) ([]string, int) {
	var seed []string
	total := 0
	for i := len(parts) - 1; i >= 0; i-- {
		t := c.count(parts[i])
		if total+t > overlapTokens {
			break
		}
		seed = append([]string{parts[i]}, seed...)
		total += t
	}
	return seed, total
}

// paragraphOverlapSeed seeds the next chunk with whole trailing paragraphs.
// When even the last paragraph exceeds the overlap budget, it falls back to
// that paragraph's trailing sentences so adjacent chunks still share context.
func (c *Chunker) paragraphOverlapSeed(parts []string, overlapTokens int) ([]string, int) {
	seed, total := c.overlapSeed(parts, overlapTokens)
	if len(seed) > 0 || len(parts) == 0 {
		return seed, total
	}
	sentences := SplitSentences(parts[len(parts)-1])
	sentSeed, sentTotal := c.overlapSeed(sentences, overlapTokens)
	if len(sentSeed) == 0 {
		return nil, 0
	}
	return []string{strings.Join(sentSeed, " ")}, sentTotal
}

// EstimatePage maps a character offset within the full text to a 1-based page
// number. Linear approximation, not layout-aware.
func EstimatePage(charOffset, totalChars, pageCount int) int {
	if pageCount <= 1 || totalChars == 0 {
		return 1
	}
	page := int(float64(charOffset)/float64(totalChars)*float64(pageCount)) + 1
	if page < 1 {
		return 1
	}
	if page > pageCount {
		return pageCount
	}
	return page
}
