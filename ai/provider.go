package ai

import "context"

// GenerationConfig is passed verbatim to the provider on every call
type GenerationConfig struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
	// ReasoningBudget is the share of the output budget the model may spend on
	// hidden deliberation. nil leaves the provider default.
	ReasoningBudget   *int
	SystemInstruction string
	// JSON asks the provider for a JSON-only response when it supports it
	JSON bool
}

// Part is one text fragment of a candidate
type Part struct {
	Text string
}

// Candidate is one generated alternative
type Candidate struct {
	Parts        []Part
	FinishReason string
}

// Usage holds whichever token counters the provider reported
type Usage struct {
	PromptTokens    *int
	OutputTokens    *int
	TotalTokens     *int
	ReasoningTokens *int
}

// Response is a provider-neutral view of a completion. Every field may be
// empty.
type Response struct {
	Text       string
	Candidates []Candidate
	Usage      *Usage
}

// Provider is the LLM service boundary
type Provider interface {
	Generate(ctx context.Context, model, prompt string, cfg GenerationConfig) (*Response, error)
}

func intPtr(v int) *int { return &v }
