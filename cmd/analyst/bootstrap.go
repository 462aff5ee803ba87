package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stock-analyst/internal/engine"
	"stock-analyst/internal/engine/engineobs"
	"stock-analyst/internal/history"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/llm/claude"
	"stock-analyst/internal/llm/llmobs"
	"stock-analyst/internal/llm/noop"
	"stock-analyst/internal/llm/openai"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/store"
	"stock-analyst/internal/trace"
)

// initializeSystem loads .env and starts the logger and tracer. Logs go to logOut.
func initializeSystem(logOut io.Writer) error {
	_ = godotenv.Load()

	logCfg := logger.LoadConfigFromEnv()
	logCfg.Output = logOut
	if err := logger.InitWithConfig(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(logOut); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func shutdownSystem(ctx context.Context) {
	if err := trace.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shut down tracer: %v\n", err)
	}
}

// loadConfig reads path, falling back to the offline defaults when the default path
// does not exist.
func loadConfig(ctx context.Context, path string, explicit bool) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		logger.Warn(ctx, "No config file found - using defaults (static data, no LLM)", "path", path)
		return store.Default(), nil
	}
	logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
	return nil, err
}

// initializeCompleter picks the LLM provider and wraps it with observability.
func initializeCompleter(ctx context.Context, cfg *store.Config) interfaces.Completer {
	var completer interfaces.Completer

	switch cfg.LLM.Provider {
	case "OPENAI":
		completer = openai.NewCompleter(cfg)
	case "CLAUDE":
		completer = claude.NewCompleter(cfg)
	default:
		completer = noop.NewCompleter()
		logger.Warn(ctx, "No LLM provider configured - LLM analysts will hold a neutral stance")
	}

	return llmobs.Wrap(completer, cfg.LLM.Provider)
}

// compressOldHistory gzips decision journals past the configured retention.
func compressOldHistory(ctx context.Context, cfg *store.Config) {
	if cfg.History.Dir == "" || cfg.History.RetentionDays <= 0 {
		return
	}
	if err := history.New(cfg.History.Dir).CompressOlder(cfg.History.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old decision journals", "error", err)
	}
}

// initializeAnalyzer builds the engine, wraps it with observability and, when a history
// directory is configured, journals every decision.
func initializeAnalyzer(ctx context.Context, cfg *store.Config) (interfaces.Analyzer, error) {
	eng, err := engine.NewFromConfig(ctx, cfg, initializeCompleter(ctx, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	logger.Info(ctx, "Analysis engine ready",
		"analysts", cfg.Graph.Analysts,
		"provider", cfg.LLM.Provider,
		"data_source", cfg.Data.Source,
		"news", cfg.News.Enabled,
	)
	analyzer := engineobs.Wrap(eng)
	if cfg.History.Dir != "" {
		compressOldHistory(ctx, cfg)
		analyzer = history.Record(analyzer, history.New(cfg.History.Dir))
	}
	return analyzer, nil
}

// newAccessLogger builds the zap logger used for HTTP access lines.
func newAccessLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}
