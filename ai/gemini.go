package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the genai SDK
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a provider for apiKey. An empty key yields
// ErrMissingCredential so callers can run without an LLM.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Generate implements Provider
func (g *GeminiProvider) Generate(ctx context.Context, model, prompt string, cfg GenerationConfig) (*Response, error) {
	result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), geminiConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}
	return fromGemini(result), nil
}

func geminiConfig(cfg GenerationConfig) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(cfg.Temperature),
		TopP:            genai.Ptr(cfg.TopP),
		TopK:            genai.Ptr(float32(cfg.TopK)),
		MaxOutputTokens: int32(cfg.MaxOutputTokens),
	}
	if cfg.SystemInstruction != "" {
		out.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	if cfg.ReasoningBudget != nil {
		out.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(*cfg.ReasoningBudget)),
		}
	}
	if cfg.JSON {
		out.ResponseMIMEType = "application/json"
	}
	return out
}

func fromGemini(r *genai.GenerateContentResponse) *Response {
	if r == nil {
		return &Response{}
	}
	resp := &Response{}
	if len(r.Candidates) > 0 {
		resp.Text = r.Text()
	}
	for _, c := range r.Candidates {
		if c == nil {
			continue
		}
		cand := Candidate{FinishReason: string(c.FinishReason)}
		if c.Content != nil {
			for _, p := range c.Content.Parts {
				if p == nil || p.Thought {
					continue
				}
				cand.Parts = append(cand.Parts, Part{Text: p.Text})
			}
		}
		resp.Candidates = append(resp.Candidates, cand)
	}
	if u := r.UsageMetadata; u != nil {
		resp.Usage = &Usage{
			PromptTokens:    intPtr(int(u.PromptTokenCount)),
			OutputTokens:    intPtr(int(u.CandidatesTokenCount)),
			TotalTokens:     intPtr(int(u.TotalTokenCount)),
			ReasoningTokens: intPtr(int(u.ThoughtsTokenCount)),
		}
	}
	return resp
}
