package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIProvider calls any OpenAI-compatible chat completions API through
// the go-openai SDK
type OpenAIProvider struct {
	client          *openai.Client
	legacyMaxTokens bool
	log             *zap.SugaredLogger
}

// NewOpenAIProvider creates a provider for apiKey. baseURL may be empty to
// use the public OpenAI endpoint.
func NewOpenAIProvider(apiKey, baseURL string, logger *zap.SugaredLogger) (*OpenAIProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), log: logger}, nil
}

// Generate implements Provider. Top-k and reasoning budget are ignored.
func (o *OpenAIProvider) Generate(ctx context.Context, model, prompt string, cfg GenerationConfig) (*Response, error) {
	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}
	if o.legacyMaxTokens {
		req.MaxTokens = cfg.MaxOutputTokens
	} else {
		req.MaxCompletionTokens = cfg.MaxOutputTokens
	}
	if req.Temperature == 0 {
		// the SDK drops a zero temperature; this keeps the request greedy
		req.Temperature = math.SmallestNonzeroFloat32
	}
	if cfg.SystemInstruction != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: cfg.SystemInstruction})
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	if cfg.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	reqDuration := time.Since(startTime)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed after %v: %w", reqDuration, err)
	}

	out := &Response{}
	for _, choice := range resp.Choices {
		out.Candidates = append(out.Candidates, Candidate{
			Parts:        []Part{{Text: choice.Message.Content}},
			FinishReason: string(choice.FinishReason),
		})
	}
	if len(resp.Choices) > 0 {
		o.log.Infof("Received response from %s in %v, finish_reason=%s", model, reqDuration, resp.Choices[0].FinishReason)
	}
	u := resp.Usage
	if u.TotalTokens > 0 {
		out.Usage = &Usage{
			PromptTokens: intPtr(u.PromptTokens),
			OutputTokens: intPtr(u.CompletionTokens),
			TotalTokens:  intPtr(u.TotalTokens),
		}
		if u.CompletionTokensDetails != nil {
			out.Usage.ReasoningTokens = intPtr(u.CompletionTokensDetails.ReasoningTokens)
		}
	}
	return out, nil
}
