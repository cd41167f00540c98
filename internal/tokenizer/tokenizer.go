package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// CountFunc reports the token count of a piece of text. It must be
// deterministic; the chunker relies on it for all sizing decisions.
type CountFunc func(text string) int

// New returns a counter backed by the cl100k_base BPE encoding.
func New() (CountFunc, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}
