package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns its responses in order and records every config
type scriptedProvider struct {
	responses []*Response
	errs      []error
	calls     []GenerationConfig
	prompts   []string
}

func (p *scriptedProvider) Generate(_ context.Context, _ string, prompt string, cfg GenerationConfig) (*Response, error) {
	i := len(p.calls)
	p.calls = append(p.calls, cfg)
	p.prompts = append(p.prompts, prompt)
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(p.responses) {
		return p.responses[i], nil
	}
	return &Response{}, nil
}

func defaults() GenerationConfig {
	return GenerationConfig{Temperature: 0.2, TopP: 0.9, TopK: 40, MaxOutputTokens: 700, ReasoningBudget: intPtr(0)}
}

func TestExtractTextPrefersTopLevel(t *testing.T) {
	resp := &Response{
		Text:       "  hola  ",
		Candidates: []Candidate{{Parts: []Part{{Text: "otro"}}}},
	}
	assert.Equal(t, "hola", ExtractText(resp))
}

func TestExtractTextJoinsAllCandidateParts(t *testing.T) {
	resp := &Response{
		Text: "   ",
		Candidates: []Candidate{
			{Parts: []Part{{Text: "uno"}, {Text: ""}, {Text: " dos "}}},
			{},
			{Parts: []Part{{Text: "tres"}}},
		},
	}
	assert.Equal(t, "uno\ndos\ntres", ExtractText(resp))
	assert.Equal(t, "", ExtractText(nil))
	assert.Equal(t, "", ExtractText(&Response{}))
}

func TestFinishReason(t *testing.T) {
	assert.Equal(t, "none", FinishReason(nil))
	assert.Equal(t, "none", FinishReason(&Response{}))
	assert.Equal(t, "unknown", FinishReason(&Response{Candidates: []Candidate{{}}}))
	assert.Equal(t, "SAFETY", FinishReason(&Response{Candidates: []Candidate{{FinishReason: "SAFETY"}}}))

	assert.True(t, IsLengthLimit("MAX_TOKENS"))
	assert.True(t, IsLengthLimit("FinishReason.MAX_TOKENS"))
	assert.True(t, IsLengthLimit("length"))
	assert.True(t, IsLengthLimit("2"))
	assert.False(t, IsLengthLimit("SAFETY"))
	assert.False(t, IsLengthLimit("STOP"))
}

func TestCompleteReturnsTrimmedText(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{{Text: "\n respuesta \n"}}}
	c := NewClient(p, "gemini-test", defaults(), nil)

	text, err := c.Complete(context.Background(), "hola", AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, "respuesta", text)
	require.Len(t, p.calls, 1)
	assert.Equal(t, 700, p.calls[0].MaxOutputTokens)
}

func TestCompleteRetriesOnceOnLengthLimit(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{
		{Candidates: []Candidate{{FinishReason: "MAX_TOKENS"}}},
		{Candidates: []Candidate{{Parts: []Part{{Text: "completo"}}, FinishReason: "STOP"}}},
	}}
	c := NewClient(p, "gemini-test", defaults(), nil)

	text, err := c.Complete(context.Background(), "hola", AskOptions{MaxOutputTokens: 420, ReasoningBudget: intPtr(512)})
	require.NoError(t, err)
	assert.Equal(t, "completo", text)

	require.Len(t, p.calls, 2)
	assert.Equal(t, 420, p.calls[0].MaxOutputTokens)
	assert.Equal(t, 512, *p.calls[0].ReasoningBudget)
	assert.Equal(t, 840, p.calls[1].MaxOutputTokens)
	require.NotNil(t, p.calls[1].ReasoningBudget)
	assert.Equal(t, 0, *p.calls[1].ReasoningBudget)
}

func TestRetryBudgetIsClamped(t *testing.T) {
	cases := []struct {
		max, want int
	}{
		{max: 100, want: 256},
		{max: 3000, want: 4096},
		{max: 700, want: 1400},
	}
	for _, tc := range cases {
		p := &scriptedProvider{responses: []*Response{
			{Candidates: []Candidate{{FinishReason: "MAX_TOKENS"}}},
			{Candidates: []Candidate{{FinishReason: "MAX_TOKENS"}}},
		}}
		c := NewClient(p, "m", defaults(), nil)
		_, err := c.Complete(context.Background(), "x", AskOptions{MaxOutputTokens: tc.max})
		require.Error(t, err)
		require.Len(t, p.calls, 2, "exactly one retry")
		assert.Equal(t, tc.want, p.calls[1].MaxOutputTokens)
	}
}

func TestAskAfterFailedRetryReportsUsage(t *testing.T) {
	usage := &Usage{PromptTokens: intPtr(12), TotalTokens: intPtr(1412), ReasoningTokens: intPtr(1400)}
	p := &scriptedProvider{responses: []*Response{
		{Candidates: []Candidate{{FinishReason: "MAX_TOKENS"}}},
		{Candidates: []Candidate{{FinishReason: "MAX_TOKENS"}}, Usage: usage},
	}}
	c := NewClient(p, "m", defaults(), nil)

	out := c.Ask(context.Background(), "x", AskOptions{})
	assert.Contains(t, out, "límite de tokens")
	assert.Contains(t, out, "finish_reason=MAX_TOKENS")
	assert.Contains(t, out, "prompt_token_count=12")
	assert.Contains(t, out, "thoughts_token_count=1400")
	assert.NotContains(t, out, "candidates_token_count")
}

func TestSafetyBlockIsNotRetried(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{
		{Candidates: []Candidate{{FinishReason: "SAFETY"}}},
		{Candidates: []Candidate{{FinishReason: "SAFETY"}}},
	}}
	c := NewClient(p, "m", defaults(), nil)

	_, err := c.Complete(context.Background(), "x", AskOptions{})
	var empty *EmptyResponseError
	require.ErrorAs(t, err, &empty)
	assert.False(t, empty.Retried)
	assert.Equal(t, "SAFETY", empty.FinishReason)
	assert.Len(t, p.calls, 1)

	assert.Contains(t, Describe(err), "finish_reason=SAFETY")

	out := c.Ask(context.Background(), "x", AskOptions{})
	assert.Contains(t, out, "finish_reason=SAFETY")
	assert.Contains(t, out, "usage={}")
	assert.Len(t, p.calls, 2, "each ask makes exactly one call")
}

func TestAskConvertsProviderFault(t *testing.T) {
	p := &scriptedProvider{errs: []error{errors.New("connection refused")}}
	c := NewClient(p, "gemini-x", defaults(), nil)

	out := c.Ask(context.Background(), "x", AskOptions{})
	assert.Contains(t, out, "gemini-x")
	assert.Contains(t, out, "connection refused")
}

func TestOptionsOverrideDefaults(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{{Text: "{}"}}}
	c := NewClient(p, "m", defaults(), nil)

	temp := float32(0)
	topK := 1
	_, err := c.Complete(context.Background(), "x", AskOptions{Temperature: &temp, TopK: &topK, JSON: true, System: "sys"})
	require.NoError(t, err)

	cfg := p.calls[0]
	assert.Equal(t, float32(0), cfg.Temperature)
	assert.Equal(t, 1, cfg.TopK)
	assert.Equal(t, float32(0.9), cfg.TopP)
	assert.True(t, cfg.JSON)
	assert.Equal(t, "sys", cfg.SystemInstruction)
}

func TestDescribeMissingCredential(t *testing.T) {
	assert.Equal(t, MissingCredentialText, Describe(ErrMissingCredential))
}
