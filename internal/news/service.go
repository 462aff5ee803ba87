package news

import (
	"context"
	"sync"
	"time"

	"stock-analyst/internal/fallback"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

// Service produces the news sentiment signal for a ticker, caching good results.
type Service struct {
	source   interfaces.HeadlineSource
	analyzer *Analyzer
	cache    *sentimentCache
	enabled  bool
}

func NewService(source interfaces.HeadlineSource, analyzer *Analyzer, ttl time.Duration, enabled bool) *Service {
	return &Service{
		source:   source,
		analyzer: analyzer,
		cache:    newSentimentCache(ttl),
		enabled:  enabled,
	}
}

// GetSentiment returns neutral when news is disabled or cannot be fetched.
func (s *Service) GetSentiment(ctx context.Context, ticker string) types.Signal {
	if !s.enabled || s.source == nil {
		return types.Signal{
			Action:     types.Neutral,
			Confidence: fallback.NeutralConfidence,
			Reasoning:  "news sentiment disabled",
		}
	}

	if cached, ok := s.cache.get(ticker); ok {
		logger.Debug(ctx, "Using cached sentiment", "ticker", ticker)
		return cached
	}

	headlines, err := s.source.Headlines(ctx, ticker)
	if err != nil {
		logger.Warn(ctx, "Failed to fetch headlines", "ticker", ticker, "error", err)
		return fallback.Neutral()
	}

	sig := s.analyzer.Analyze(ctx, ticker, headlines)
	// degraded results are not cached so the next request tries again
	if sig.Reasoning != fallback.DegradedReasoning {
		s.cache.set(ticker, sig)
	}
	return sig
}

// sentimentCache expires lazily; set prunes stale entries so no sweeper goroutine is needed.
type sentimentCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
	ttl  time.Duration
	now  func() time.Time
}

type cacheEntry struct {
	signal    types.Signal
	timestamp time.Time
}

func newSentimentCache(ttl time.Duration) *sentimentCache {
	return &sentimentCache{
		data: make(map[string]cacheEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (c *sentimentCache) get(ticker string) (types.Signal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[ticker]
	if !ok || c.now().Sub(entry.timestamp) > c.ttl {
		return types.Signal{}, false
	}
	return entry.signal, true
}

func (c *sentimentCache) set(ticker string, sig types.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.data {
		if now.Sub(e.timestamp) > c.ttl {
			delete(c.data, k)
		}
	}
	c.data[ticker] = cacheEntry{signal: sig, timestamp: now}
}
