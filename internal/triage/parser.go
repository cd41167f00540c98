// Package triage parses LLM extraction responses and normalizes entity names.
package triage

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"unicode"
)

const (
	DefaultConfidence = 0.5
	MaxSnippetChars   = 500
	MaxEvidenceChars  = 1000
)

var ErrNoJSON = errors.New("no JSON object in response")

type EntityItem struct {
	Name    string
	Type    string
	Context string
}

type RelationshipItem struct {
	Source      string
	Target      string
	Type        string
	Description string
	Confidence  float64
}

type AnomalyItem struct {
	Type        string
	Description string
	Severity    string
	Confidence  float64
	Evidence    string
}

type Result struct {
	PriorityScore float64
	Scored        bool
	Entities      []EntityItem
	Relationships []RelationshipItem
	Anomalies     []AnomalyItem
}

// rawResult tolerates models that render numbers as strings or omit fields.
type rawResult struct {
	PriorityScore any `json:"priority_score"`
	Entities      []struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Context string `json:"context"`
	} `json:"entities"`
	Relationships []struct {
		Source      string `json:"source"`
		Target      string `json:"target"`
		Type        string `json:"type"`
		Description string `json:"description"`
		Confidence  any    `json:"confidence"`
	} `json:"relationships"`
	Anomalies []struct {
		Type        string `json:"type"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
		Confidence  any    `json:"confidence"`
		Evidence    string `json:"evidence"`
	} `json:"anomalies"`
}

// ParseResponse extracts the first brace-delimited JSON object found anywhere
// in the response text, tolerating leading and trailing commentary, and folds
// it into a Result with defaults applied. Absent fields are empty, never an
// error; a missing or unparseable object is.
func ParseResponse(response string) (Result, error) {
	start := strings.IndexByte(response, '{')
	end := strings.LastIndexByte(response, '}')
	if start < 0 || end <= start {
		return Result{}, ErrNoJSON
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return Result{}, err
	}

	res := Result{
		PriorityScore: clamp01(coerceFloat(raw.PriorityScore, 0)),
		Scored:        true,
	}
	for _, e := range raw.Entities {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		typ := e.Type
		if typ == "" {
			typ = "unknown"
		}
		res.Entities = append(res.Entities, EntityItem{Name: e.Name, Type: typ, Context: e.Context})
	}
	for _, r := range raw.Relationships {
		if strings.TrimSpace(r.Source) == "" || strings.TrimSpace(r.Target) == "" {
			continue
		}
		typ := r.Type
		if typ == "" {
			typ = "associated"
		}
		res.Relationships = append(res.Relationships, RelationshipItem{
			Source:      r.Source,
			Target:      r.Target,
			Type:        typ,
			Description: r.Description,
			Confidence:  clamp01(coerceFloat(r.Confidence, DefaultConfidence)),
		})
	}
	for _, a := range raw.Anomalies {
		typ := a.Type
		if typ == "" {
			typ = "unknown"
		}
		sev := a.Severity
		if sev == "" {
			sev = "low"
		}
		res.Anomalies = append(res.Anomalies, AnomalyItem{
			Type:        typ,
			Description: a.Description,
			Severity:    sev,
			Confidence:  clamp01(coerceFloat(a.Confidence, DefaultConfidence)),
			Evidence:    a.Evidence,
		})
	}
	return res, nil
}

func coerceFloat(v any, fallback float64) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return fallback
		}
		return f
	default:
		return fallback
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// NormalizeName applies the trim + title-case normalization used for entity
// identity. Deliberately lossy: surface forms differing only in case or
// whitespace collapse to one entity.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	b.Grow(len(name))
	prevLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
