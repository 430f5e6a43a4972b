package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingBotToken is returned by RequireBotToken when the Telegram front end
// is started without a token
var ErrMissingBotToken = errors.New("BOT_TOKEN environment variable is required")

// Generation holds LLM sampling defaults
type Generation struct {
	Temperature     float32 `yaml:"temperature"`
	TopP            float32 `yaml:"top_p"`
	TopK            int     `yaml:"top_k"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	ReasoningBudget int     `yaml:"reasoning_budget"`
}

// LLM providers
const (
	ProviderGemini   = "gemini"
	ProviderDeepseek = "deepseek"
	ProviderOpenAI   = "openai"
)

// Config holds all the configuration for the application
type Config struct {
	LLMProvider    string     `yaml:"provider"`
	GeminiAPIKey   string     `yaml:"-"`
	GeminiModel    string     `yaml:"model"`
	DeepseekAPIKey string     `yaml:"-"`
	DeepseekURL    string     `yaml:"deepseek_url"`
	DeepseekModel  string     `yaml:"deepseek_model"`
	OpenAIAPIKey   string     `yaml:"-"`
	OpenAIBaseURL  string     `yaml:"openai_base_url"`
	OpenAIModel    string     `yaml:"openai_model"`
	Debug          bool       `yaml:"debug"`
	DatabasePath   string     `yaml:"database_path"`
	BotToken       string     `yaml:"-"`
	PlotDir        string     `yaml:"plot_dir"`
	DefaultUser    string     `yaml:"default_user"`
	Generation     Generation `yaml:"generation"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		LLMProvider:   ProviderGemini,
		GeminiModel:   "gemini-2.5-flash",
		DeepseekModel: "deepseek-chat",
		OpenAIModel:   "gpt-4o-mini",
		DatabasePath:  "./data/asesor_memoria.sqlite3",
		PlotDir:       "plots",
		DefaultUser:   "Invitado",
		Generation: Generation{
			Temperature:     0.2,
			TopP:            0.9,
			TopK:            40,
			MaxOutputTokens: 700,
		},
	}
}

// Load loads the configuration from .env, an optional YAML file named by
// TUTOR_CONFIG, and environment variables, in that order of precedence
// (later wins). A missing API key is not an error: the assistant runs with
// the LLM paths disabled.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("TUTOR_CONFIG"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.GeminiAPIKey = strings.TrimSpace(firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"))
	if model := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); model != "" {
		cfg.GeminiModel = model
	}
	if os.Getenv("BACKEND_DEBUG") == "1" || os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dir := os.Getenv("PLOT_DIR"); dir != "" {
		cfg.PlotDir = dir
	}
	cfg.BotToken = os.Getenv("BOT_TOKEN")

	if p := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER"))); p != "" {
		cfg.LLMProvider = p
	}
	cfg.DeepseekAPIKey = strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY"))
	if url := os.Getenv("DEEPSEEK_API_URL"); url != "" {
		cfg.DeepseekURL = url
	}
	if model := strings.TrimSpace(os.Getenv("DEEPSEEK_MODEL")); model != "" {
		cfg.DeepseekModel = model
	}

	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		cfg.OpenAIBaseURL = url
	}
	if model := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); model != "" {
		cfg.OpenAIModel = model
	}

	switch cfg.LLMProvider {
	case ProviderGemini, ProviderDeepseek, ProviderOpenAI:
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}

	return cfg, nil
}

// HasLLM reports whether the selected provider has an API credential
func (c *Config) HasLLM() bool {
	return c.APIKey() != ""
}

// APIKey returns the credential of the selected provider
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderDeepseek:
		return c.DeepseekAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// Model returns the model name of the selected provider
func (c *Config) Model() string {
	switch c.LLMProvider {
	case ProviderDeepseek:
		return c.DeepseekModel
	case ProviderOpenAI:
		return c.OpenAIModel
	}
	return c.GeminiModel
}

// RequireBotToken fails when the Telegram token is absent
func (c *Config) RequireBotToken() error {
	if c.BotToken == "" {
		return ErrMissingBotToken
	}
	return nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
