// Package pricing holds the model price table and cost calculator.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultModel is the compiled-in fallback when neither the caller nor the
// stored configuration names a model.
const DefaultModel = "llama-3.1-8b-instant"

// ModelPricing is USD per one million tokens.
type ModelPricing struct {
	InputPerMillion  float64 `json:"input_price"`
	OutputPerMillion float64 `json:"output_price"`
	Description      string  `json:"description,omitempty"`
}

// catalogue covers the Groq production models.
var catalogue = map[string]ModelPricing{
	"llama-3.1-8b-instant":     {InputPerMillion: 0.05, OutputPerMillion: 0.08, Description: "Fast 8B Llama 3.1"},
	"llama-3.3-70b-versatile":  {InputPerMillion: 0.59, OutputPerMillion: 0.79, Description: "Llama 3.3 70B general purpose"},
	"mixtral-8x7b-32768":       {InputPerMillion: 0.24, OutputPerMillion: 0.24, Description: "Mixtral 8x7B, 32k context"},
	"gemma2-9b-it":             {InputPerMillion: 0.20, OutputPerMillion: 0.20, Description: "Gemma 2 9B instruction tuned"},
	"llama-guard-3-8b":         {InputPerMillion: 0.20, OutputPerMillion: 0.20, Description: "Llama Guard 3 moderation"},
}

// unknownModelPricing is the safety tier for models missing from the
// catalogue: priced like the most expensive known model rather than failing.
var unknownModelPricing = ModelPricing{InputPerMillion: 0.79, OutputPerMillion: 0.79}

var million = decimal.NewFromInt(1_000_000)

// Lookup returns the pricing for model, falling back to the unknown-model
// tier. The second result reports whether the model was in the catalogue.
func Lookup(model string) (ModelPricing, bool) {
	p, ok := catalogue[model]
	if !ok {
		return unknownModelPricing, false
	}
	return p, true
}

// Cost computes the USD cost of a call, rounded to 6 decimal places.
// Pure: no I/O, deterministic for fixed inputs.
func Cost(model string, inputTokens, outputTokens int) decimal.Decimal {
	p, _ := Lookup(model)

	inputCost := decimal.NewFromInt(int64(inputTokens)).
		Mul(decimal.NewFromFloat(p.InputPerMillion)).
		Div(million)
	outputCost := decimal.NewFromInt(int64(outputTokens)).
		Mul(decimal.NewFromFloat(p.OutputPerMillion)).
		Div(million)

	return inputCost.Add(outputCost).Round(6)
}

// ModelInfo is one catalogue entry for the available-models endpoint.
type ModelInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	InputPrice  float64 `json:"input_price"`
	OutputPrice float64 `json:"output_price"`
}

// Models lists the catalogue, sorted by name for stable output.
func Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(catalogue))
	for name, p := range catalogue {
		out = append(out, ModelInfo{
			Name:        name,
			Description: p.Description,
			InputPrice:  p.InputPerMillion,
			OutputPrice: p.OutputPerMillion,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
