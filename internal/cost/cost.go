// Package cost prices LLM API usage for the expense ledger.
package cost

import "math"

type modelPricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Pricing per 1M tokens.
var pricing = map[string]modelPricing{
	"claude-sonnet-4-5-20250929": {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"claude-haiku-4-5-20251001":  {InputPerMTok: 0.80, OutputPerMTok: 4.00},
}

var defaultPricing = modelPricing{InputPerMTok: 3.00, OutputPerMTok: 15.00}

// Calculate returns the USD cost of a call, rounded to 6 decimal places.
// Unknown models fall back to the default rate rather than erroring.
func Calculate(model string, inputTokens, outputTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		p = defaultPricing
	}
	cost := float64(inputTokens)/1_000_000*p.InputPerMTok + float64(outputTokens)/1_000_000*p.OutputPerMTok
	return math.Round(cost*1e6) / 1e6
}
