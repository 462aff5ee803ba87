package engine

import (
	"context"
	"fmt"
	"time"

	"stock-analyst/internal/agents"
	"stock-analyst/internal/api"
	"stock-analyst/internal/fallback"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/marketdata"
	"stock-analyst/internal/news"
	"stock-analyst/internal/store"
)

// PolicyFromConfig maps the fallback section onto a retry policy.
func PolicyFromConfig(cfg *store.Config) fallback.Policy {
	return fallback.Policy{
		MaxAttempts:    cfg.Fallback.MaxAttempts,
		InitialBackoff: cfg.Fallback.InitialBackoff,
		MaxBackoff:     cfg.Fallback.MaxBackoff,
		Multiplier:     cfg.Fallback.Multiplier,
		AttemptTimeout: cfg.Fallback.AttemptTimeout,
	}
}

// NewDeps builds the collaborators the workflow nodes share.
func NewDeps(ctx context.Context, cfg *store.Config, completer interfaces.Completer) (agents.Deps, error) {
	policy := PolicyFromConfig(cfg)

	data, err := newMarketData(ctx, cfg, policy)
	if err != nil {
		return agents.Deps{}, err
	}

	var headlines interfaces.HeadlineSource
	if cfg.News.Enabled && len(cfg.News.Sources) > 0 {
		headlines = news.NewScraper(cfg.News.Sources, cfg.News.Timeout, cfg.News.MaxHeadlines)
	} else if cfg.News.Enabled {
		logger.Warn(ctx, "News sentiment enabled without sources - sentiment stays neutral")
	}
	svc := news.NewService(headlines, news.NewAnalyzer(completer, policy), cfg.News.CacheTTL, cfg.News.Enabled)

	return agents.Deps{
		Data:         data,
		Completer:    completer,
		News:         svc,
		Policy:       policy,
		LookbackDays: cfg.Data.LookbackDays,
		Now:          time.Now,
	}, nil
}

func newMarketData(ctx context.Context, cfg *store.Config, policy fallback.Policy) (interfaces.MarketDataSource, error) {
	var source interfaces.MarketDataSource
	switch cfg.Data.Source {
	case "HTTP":
		opts := []api.ClientOption{
			api.WithBaseURL(cfg.Data.BaseURL),
			api.WithTimeout(cfg.Data.Timeout),
			api.WithRateLimiter(api.PerSecond(cfg.Data.RequestsPerSecond)),
			api.WithHeader("Accept", "application/json"),
			api.WithLogging(true),
		}
		for k, v := range api.BrowserHeaders() {
			opts = append(opts, api.WithHeader(k, v))
		}
		client := api.NewClient(opts...)
		source = marketdata.NewHTTP(client, policy)
		logger.Info(ctx, "Using HTTP market data", "base_url", cfg.Data.BaseURL)
	default:
		source = marketdata.NewStatic()
		logger.Info(ctx, "Using STATIC synthetic market data")
	}

	if cfg.Data.CacheDir == "" {
		return source, nil
	}
	cache, err := marketdata.NewFileCache(cfg.Data.CacheDir, cfg.Data.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open market data cache: %w", err)
	}
	if err := cache.CleanupExpired(); err != nil {
		logger.Warn(ctx, "Failed to clean market data cache", "error", err)
	}
	return marketdata.NewCached(source, cache), nil
}

// NewFromConfig builds the engine and everything it needs from configuration.
func NewFromConfig(ctx context.Context, cfg *store.Config, completer interfaces.Completer) (*Engine, error) {
	deps, err := NewDeps(ctx, cfg, completer)
	if err != nil {
		return nil, err
	}
	return New(cfg, deps)
}
