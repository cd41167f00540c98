package triage

import (
	"strings"

	"watchdog/internal/util"
)

const promptTemplate = `You are analyzing one chunk of text extracted from a document in an investigative archive. Read the chunk and report structured findings.

Respond with a single JSON object, no other commentary, in this shape:
{
  "priority_score": 0.0,
  "entities": [{"name": "...", "type": "person|organization|location|other", "context": "..."}],
  "relationships": [{"source": "...", "target": "...", "type": "...", "description": "...", "confidence": 0.0}],
  "anomalies": [{"type": "...", "description": "...", "severity": "low|medium|high|critical", "confidence": 0.0, "evidence": "..."}]
}

priority_score is a 0-1 urgency signal for the whole chunk. Only report entities actually named in the text. Evidence must quote the text.

Chunk:
{chunk_text}`

// BuildPrompt substitutes the chunk's display text into the instruction
// template, truncated to charLimit.
func BuildPrompt(chunkText string, charLimit int) string {
	return strings.Replace(promptTemplate, "{chunk_text}", util.Truncate(chunkText, charLimit), 1)
}
