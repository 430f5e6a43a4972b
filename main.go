package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/korjavin/profesorbot/ai"
	"github.com/korjavin/profesorbot/config"
	"github.com/korjavin/profesorbot/database"
	"github.com/korjavin/profesorbot/session"
	"github.com/korjavin/profesorbot/tools"
)

var (
	debugFlag bool
	dbFlag    string
)

func main() {
	root := &cobra.Command{
		Use:           "profesorbot",
		Short:         "Spanish-speaking study assistant with tools, quizzes and memory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&dbFlag, "db", "", "path to the SQLite database (overrides DB_PATH)")

	root.AddCommand(telegramCmd(), chatCmd(), usersCmd(), progressCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles what every subcommand needs
type app struct {
	cfg *config.Config
	log *zap.SugaredLogger
	db  *database.DB
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warnf("Failed to close database: %v", err)
	}
	_ = a.log.Sync()
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	zc := zap.NewProductionConfig()
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Sugar(), nil
}

// setup loads configuration, applies flags and opens the database
func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if debugFlag {
		cfg.Debug = true
	}
	if dbFlag != "" {
		cfg.DatabasePath = dbFlag
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &app{cfg: cfg, log: logger, db: db}, nil
}

// deps builds the collaborators shared by every session. A missing API key
// leaves LLM nil and the assistant answers with setup instructions.
func (a *app) deps(ctx context.Context) (session.Deps, error) {
	llm, err := newLLM(ctx, a.cfg, a.log)
	if err != nil {
		return session.Deps{}, err
	}
	return session.Deps{
		Store: a.db,
		LLM:   llm,
		Tools: tools.NewRegistry(a.log, tools.WithPlotDir(a.cfg.PlotDir)),
	}, nil
}

func newLLM(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*ai.Client, error) {
	if !cfg.HasLLM() {
		logger.Warnf("No API key for provider %s, LLM answers disabled", cfg.LLMProvider)
		return nil, nil
	}

	var (
		provider ai.Provider
		err      error
	)
	switch cfg.LLMProvider {
	case config.ProviderDeepseek:
		provider, err = ai.NewDeepseekProvider(cfg.DeepseekAPIKey, cfg.DeepseekURL, logger)
	case config.ProviderOpenAI:
		provider, err = ai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, logger)
	default:
		provider, err = ai.NewGeminiProvider(ctx, cfg.GeminiAPIKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", cfg.LLMProvider, err)
	}

	logger.Infof("Using LLM provider %s with model %s", cfg.LLMProvider, cfg.Model())
	return ai.NewClient(provider, cfg.Model(), generationDefaults(cfg.Generation), logger), nil
}

func generationDefaults(g config.Generation) ai.GenerationConfig {
	// always sent: 0 turns hidden reasoning off
	budget := max(g.ReasoningBudget, 0)
	return ai.GenerationConfig{
		Temperature:     g.Temperature,
		TopP:            g.TopP,
		TopK:            g.TopK,
		MaxOutputTokens: g.MaxOutputTokens,
		ReasoningBudget: &budget,
	}
}
