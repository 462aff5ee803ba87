package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "llm:\n  provider: openai\n  model: gpt-4o-mini\n"))
	require.NoError(t, err)

	assert.Equal(t, "OPENAI", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "STATIC", cfg.Data.Source)
	assert.Equal(t, 365, cfg.Data.LookbackDays)
	assert.Equal(t, 3, cfg.Fallback.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Fallback.InitialBackoff)
	assert.Equal(t, cfg.LLM.Timeout, cfg.Fallback.AttemptTimeout)
	assert.Equal(t, KnownAnalysts, cfg.Graph.Analysts)
}

func TestLoadConfigParsesDurationsAndSources(t *testing.T) {
	body := `
llm:
  provider: CLAUDE
  timeout: 12s
fallback:
  max_attempts: 5
  initial_backoff: 250ms
  max_backoff: 2s
graph:
  max_concurrency: 3
  show_reasoning: true
  analysts: [technical, fundamentals, valuation]
data:
  source: http
  base_url: http://localhost:9000
news:
  enabled: true
  sources:
    - name: eastmoney
      url: https://so.example.com/news?keyword={ticker}
      item: div.news-item
      title: a.title
      link: a.title
`
	cfg, err := LoadConfig(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, 12*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 12*time.Second, cfg.Fallback.AttemptTimeout)
	assert.Equal(t, 5, cfg.Fallback.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Fallback.InitialBackoff)
	assert.Equal(t, 3, cfg.Graph.MaxConcurrency)
	assert.True(t, cfg.Graph.ShowReasoning)
	assert.Equal(t, []string{"technical", "fundamentals", "valuation"}, cfg.Graph.Analysts)
	assert.Equal(t, "HTTP", cfg.Data.Source)
	require.Len(t, cfg.News.Sources, 1)
	assert.Equal(t, "eastmoney", cfg.News.Sources[0].Name)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad provider", "llm:\n  provider: GEMINI\n", "invalid llm.provider"},
		{"bad data source", "data:\n  source: CSV\n", "invalid data.source"},
		{"http without url", "data:\n  source: HTTP\n", "data.base_url is required"},
		{"unknown analyst", "graph:\n  analysts: [technical, astrology]\n", "unknown analyst 'astrology'"},
		{"single analyst", "graph:\n  analysts: [technical]\n", "at least two analysts"},
		{"duplicate analyst", "graph:\n  analysts: [technical, technical]\n", "listed twice"},
		{"backoff order", "fallback:\n  initial_backoff: 5s\n  max_backoff: 1s\n", "must not be below"},
		{"negative retention", "history:\n  dir: logs\n  retention_days: -1\n", "retention_days cannot be negative"},
		{"bad news source", "news:\n  sources:\n    - name: x\n      url: http://x\n", "news source 'x'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "NOOP", cfg.LLM.Provider)
}
