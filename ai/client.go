package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	minRetryTokens = 256
	maxRetryTokens = 4096
)

// ErrMissingCredential is returned by constructors when no API key is set
var ErrMissingCredential = errors.New("missing LLM API key")

// ProviderError wraps a transport or provider fault
type ProviderError struct {
	Model string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// EmptyResponseError reports a completion without any text
type EmptyResponseError struct {
	Model        string
	FinishReason string
	Usage        *Usage
	Retried      bool
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("model %s returned no text (finish_reason=%s)", e.Model, e.FinishReason)
}

// AskOptions overrides the client defaults for a single call. Zero values
// keep the default.
type AskOptions struct {
	Model           string
	System          string
	Temperature     *float32
	TopP            *float32
	TopK            *int
	MaxOutputTokens int
	ReasoningBudget *int
	JSON            bool
}

// Client is the response repair pipeline around a Provider
type Client struct {
	provider Provider
	model    string
	defaults GenerationConfig
	log      *zap.SugaredLogger
}

// NewClient creates a pipeline over provider. defaults supplies sampling
// parameters for calls that do not override them.
func NewClient(provider Provider, model string, defaults GenerationConfig, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		provider: provider,
		model:    model,
		defaults: defaults,
		log:      logger,
	}
}

// Model returns the default model name
func (c *Client) Model() string {
	return c.model
}

func (c *Client) buildConfig(opts AskOptions) GenerationConfig {
	cfg := c.defaults
	cfg.SystemInstruction = opts.System
	cfg.JSON = opts.JSON
	if opts.Temperature != nil {
		cfg.Temperature = *opts.Temperature
	}
	if opts.TopP != nil {
		cfg.TopP = *opts.TopP
	}
	if opts.TopK != nil {
		cfg.TopK = *opts.TopK
	}
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = opts.MaxOutputTokens
	}
	if opts.ReasoningBudget != nil {
		cfg.ReasoningBudget = intPtr(*opts.ReasoningBudget)
	}
	return cfg
}

// Complete runs the prompt and returns trimmed text. An empty completion cut
// by the output limit is retried once with a doubled budget and no
// reasoning.
func (c *Client) Complete(ctx context.Context, prompt string, opts AskOptions) (string, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = c.model
	}
	cfg := c.buildConfig(opts)

	startTime := time.Now()
	resp, err := c.provider.Generate(ctx, model, prompt, cfg)
	if err != nil {
		c.log.Warnf("LLM call to %s failed after %v: %v", model, time.Since(startTime), err)
		return "", &ProviderError{Model: model, Err: err}
	}
	if text := ExtractText(resp); text != "" {
		c.log.Debugf("LLM call to %s completed in %v (%d chars)", model, time.Since(startTime), len(text))
		return text, nil
	}

	finish := FinishReason(resp)
	if !IsLengthLimit(finish) {
		c.log.Warnf("LLM %s returned empty text, finish_reason=%s", model, finish)
		return "", &EmptyResponseError{Model: model, FinishReason: finish, Usage: usageOf(resp)}
	}

	retryCfg := cfg
	retryCfg.MaxOutputTokens = min(max(cfg.MaxOutputTokens*2, minRetryTokens), maxRetryTokens)
	retryCfg.ReasoningBudget = intPtr(0)
	c.log.Infof("LLM %s hit the output limit with no text, retrying with max_output_tokens=%d", model, retryCfg.MaxOutputTokens)

	resp2, err := c.provider.Generate(ctx, model, prompt, retryCfg)
	if err != nil {
		return "", &ProviderError{Model: model, Err: err}
	}
	if text := ExtractText(resp2); text != "" {
		return text, nil
	}
	return "", &EmptyResponseError{Model: model, FinishReason: FinishReason(resp2), Usage: usageOf(resp2), Retried: true}
}

// Ask is Complete for display: failures become a readable diagnostic and
// the result is never empty.
func (c *Client) Ask(ctx context.Context, prompt string, opts AskOptions) string {
	text, err := c.Complete(ctx, prompt, opts)
	if err != nil {
		return Describe(err)
	}
	return text
}

// Describe renders a pipeline error as user-facing text
func Describe(err error) string {
	var empty *EmptyResponseError
	var perr *ProviderError
	switch {
	case errors.Is(err, ErrMissingCredential):
		return MissingCredentialText
	case errors.As(err, &empty) && empty.Retried:
		return "No pude obtener texto: el modelo llegó al límite de tokens y devolvió contenido vacío.\n" +
			fmt.Sprintf("finish_reason=%s\n", empty.FinishReason) +
			fmt.Sprintf("usage=%s\n", formatUsage(empty.Usage)) +
			"Sugerencias:\n" +
			"- Reduce el prompt (especialmente instrucciones largas).\n" +
			"- Usa respuestas 'corta'.\n" +
			"- Deja el presupuesto de razonamiento en 0 para Quiz/salidas estructuradas."
	case errors.As(err, &empty):
		return "No pude obtener una respuesta de texto (la API devolvió contenido vacío o bloqueado).\n" +
			fmt.Sprintf("finish_reason=%s\n", empty.FinishReason) +
			fmt.Sprintf("usage=%s\n", formatUsage(empty.Usage)) +
			"Tip: intenta reformular, reducir el prompt o bajar el output."
	case errors.As(err, &perr):
		return fmt.Sprintf("No pude consultar el modelo (%s).\nDetalle técnico: %v", perr.Model, perr.Err)
	default:
		return fmt.Sprintf("No pude consultar el modelo.\nDetalle técnico: %v", err)
	}
}

// MissingCredentialText is shown on every LLM path when no API key is set
const MissingCredentialText = "Falta API key en tu .env.\n" +
	"Define una de estas:\n" +
	"  GEMINI_API_KEY=...\n" +
	"  (legacy) GOOGLE_API_KEY=...\n" +
	"  DEEPSEEK_API_KEY=... con LLM_PROVIDER=deepseek\n" +
	"  OPENAI_API_KEY=... con LLM_PROVIDER=openai"

// ExtractText prefers the top-level text and falls back to every non-empty
// part of every candidate, newline-joined
func ExtractText(resp *Response) string {
	if resp == nil {
		return ""
	}
	if t := strings.TrimSpace(resp.Text); t != "" {
		return t
	}
	var chunks []string
	for _, cand := range resp.Candidates {
		for _, p := range cand.Parts {
			if t := strings.TrimSpace(p.Text); t != "" {
				chunks = append(chunks, t)
			}
		}
	}
	return strings.TrimSpace(strings.Join(chunks, "\n"))
}

// FinishReason returns the first candidate's finish reason, "none" without
// candidates and "unknown" when it is blank
func FinishReason(resp *Response) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return "none"
	}
	if fr := strings.TrimSpace(resp.Candidates[0].FinishReason); fr != "" {
		return fr
	}
	return "unknown"
}

// IsLengthLimit reports whether a finish reason means the output budget ran out
func IsLengthLimit(reason string) bool {
	r := strings.ToUpper(strings.TrimSpace(reason))
	return strings.Contains(r, "MAX_TOKENS") || r == "LENGTH" || r == "2"
}

func usageOf(resp *Response) *Usage {
	if resp == nil {
		return nil
	}
	return resp.Usage
}

func formatUsage(u *Usage) string {
	if u == nil {
		return "{}"
	}
	var fields []string
	add := func(name string, v *int) {
		if v != nil {
			fields = append(fields, fmt.Sprintf("%s=%d", name, *v))
		}
	}
	add("prompt_token_count", u.PromptTokens)
	add("candidates_token_count", u.OutputTokens)
	add("total_token_count", u.TotalTokens)
	add("thoughts_token_count", u.ReasoningTokens)
	return "{" + strings.Join(fields, ", ") + "}"
}
