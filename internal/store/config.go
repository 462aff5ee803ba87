package store

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Analyst names, in the order the portfolio join registers them.
var KnownAnalysts = []string{"short_term", "long_term", "technical", "fundamentals", "sentiment", "valuation"}

type NewsSource struct {
	Name string `yaml:"name"`
	// URL may contain {ticker}, replaced by the requested ticker.
	URL       string `yaml:"url"`
	Item      string `yaml:"item"`
	Title     string `yaml:"title"`
	Link      string `yaml:"link"`
	Published string `yaml:"published"`
}

type Config struct {
	Server struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`
	LLM struct {
		Provider    string        `yaml:"provider"`
		Model       string        `yaml:"model"`
		BaseURL     string        `yaml:"base_url"`
		APIKeyEnv   string        `yaml:"api_key_env"`
		MaxTokens   int           `yaml:"max_tokens"`
		Temperature float64       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`
	Fallback struct {
		MaxAttempts    int           `yaml:"max_attempts"`
		InitialBackoff time.Duration `yaml:"initial_backoff"`
		MaxBackoff     time.Duration `yaml:"max_backoff"`
		Multiplier     float64       `yaml:"multiplier"`
		AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	} `yaml:"fallback"`
	Graph struct {
		MaxConcurrency int      `yaml:"max_concurrency"`
		ShowReasoning  bool     `yaml:"show_reasoning"`
		Analysts       []string `yaml:"analysts"`
	} `yaml:"graph"`
	Data struct {
		Source            string        `yaml:"source"`
		BaseURL           string        `yaml:"base_url"`
		Timeout           time.Duration `yaml:"timeout"`
		CacheDir          string        `yaml:"cache_dir"`
		CacheTTL          time.Duration `yaml:"cache_ttl"`
		RequestsPerSecond int           `yaml:"requests_per_second"`
		LookbackDays      int           `yaml:"lookback_days"`
	} `yaml:"data"`
	News struct {
		Enabled      bool          `yaml:"enabled"`
		MaxHeadlines int           `yaml:"max_headlines"`
		Timeout      time.Duration `yaml:"timeout"`
		CacheTTL     time.Duration `yaml:"cache_ttl"`
		Sources      []NewsSource  `yaml:"sources"`
	} `yaml:"news"`
	// History journals decisions when Dir is set.
	History struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"history"`
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "OPENAI", "CLAUDE", "NOOP":
	default:
		return fmt.Errorf("invalid llm.provider '%s': must be 'OPENAI', 'CLAUDE' or 'NOOP'", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0-2, got %.2f", c.LLM.Temperature)
	}
	if c.Data.Source != "STATIC" && c.Data.Source != "HTTP" {
		return fmt.Errorf("invalid data.source '%s': must be 'STATIC' or 'HTTP'", c.Data.Source)
	}
	if c.Data.Source == "HTTP" && c.Data.BaseURL == "" {
		return errors.New("data.base_url is required when data.source is 'HTTP'")
	}
	if c.Fallback.Multiplier < 1 {
		return fmt.Errorf("fallback.multiplier must be >= 1, got %.2f", c.Fallback.Multiplier)
	}
	if c.Fallback.MaxBackoff < c.Fallback.InitialBackoff {
		return fmt.Errorf("fallback.max_backoff (%s) must not be below fallback.initial_backoff (%s)", c.Fallback.MaxBackoff, c.Fallback.InitialBackoff)
	}
	if c.Graph.MaxConcurrency < 0 {
		return fmt.Errorf("graph.max_concurrency cannot be negative, got %d", c.Graph.MaxConcurrency)
	}
	if len(c.Graph.Analysts) < 2 {
		return fmt.Errorf("graph.analysts needs at least two analysts to fuse, got %d", len(c.Graph.Analysts))
	}
	for i, a := range c.Graph.Analysts {
		if !slices.Contains(KnownAnalysts, a) {
			return fmt.Errorf("unknown analyst '%s': must be one of %s", a, strings.Join(KnownAnalysts, ", "))
		}
		if slices.Contains(c.Graph.Analysts[:i], a) {
			return fmt.Errorf("analyst '%s' listed twice", a)
		}
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days cannot be negative, got %d", c.History.RetentionDays)
	}
	for _, src := range c.News.Sources {
		if src.URL == "" || src.Item == "" || src.Title == "" {
			return fmt.Errorf("news source '%s' needs url, item and title selectors", src.Name)
		}
	}
	return nil
}

// Default returns a configuration that runs offline: static market data, no LLM provider.
func Default() *Config {
	var c Config
	c.LLM.Provider = "NOOP"
	c.Data.Source = "STATIC"
	applyDefaults(&c)
	return &c
}

func applyDefaults(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Minute
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "NOOP"
	}
	c.LLM.Provider = strings.ToUpper(c.LLM.Provider)
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}

	if c.Fallback.MaxAttempts == 0 {
		c.Fallback.MaxAttempts = 3
	}
	if c.Fallback.InitialBackoff == 0 {
		c.Fallback.InitialBackoff = time.Second
	}
	if c.Fallback.MaxBackoff == 0 {
		c.Fallback.MaxBackoff = 10 * time.Second
	}
	if c.Fallback.Multiplier == 0 {
		c.Fallback.Multiplier = 2
	}
	if c.Fallback.AttemptTimeout == 0 {
		c.Fallback.AttemptTimeout = c.LLM.Timeout
	}

	if len(c.Graph.Analysts) == 0 {
		c.Graph.Analysts = slices.Clone(KnownAnalysts)
	}

	if c.Data.Source == "" {
		c.Data.Source = "STATIC"
	}
	c.Data.Source = strings.ToUpper(c.Data.Source)
	if c.Data.Timeout == 0 {
		c.Data.Timeout = 20 * time.Second
	}
	if c.Data.CacheTTL == 0 {
		c.Data.CacheTTL = 6 * time.Hour
	}
	if c.Data.RequestsPerSecond == 0 {
		c.Data.RequestsPerSecond = 5
	}
	if c.Data.LookbackDays == 0 {
		c.Data.LookbackDays = 365
	}

	if c.News.MaxHeadlines == 0 {
		c.News.MaxHeadlines = 10
	}
	if c.News.Timeout == 0 {
		c.News.Timeout = 15 * time.Second
	}
	if c.News.CacheTTL == 0 {
		c.News.CacheTTL = time.Hour
	}
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
