package ai

import (
	"strings"

	"go.uber.org/zap"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// NewDeepseekProvider creates an OpenAI-compatible provider for Deepseek.
// url may be the API base or the full chat completions endpoint; empty
// selects the public API.
func NewDeepseekProvider(apiKey, url string, logger *zap.SugaredLogger) (*OpenAIProvider, error) {
	url = strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(url), "/"), "/chat/completions")
	if url == "" {
		url = deepseekBaseURL
	}
	p, err := NewOpenAIProvider(apiKey, url, logger)
	if err != nil {
		return nil, err
	}
	// Deepseek only reads the legacy max_tokens field
	p.legacyMaxTokens = true
	return p, nil
}
