package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/agents"
	"stock-analyst/internal/engine/engineobs"
	"stock-analyst/internal/fallback"
	"stock-analyst/internal/fusion"
	"stock-analyst/internal/llm/noop"
	"stock-analyst/internal/store"
	"stock-analyst/internal/types"
)

func newTestEngine(t *testing.T, analysts ...string) *Engine {
	t.Helper()
	cfg := store.Default()
	if len(analysts) > 0 {
		cfg.Graph.Analysts = analysts
	}
	cfg.Graph.MaxConcurrency = 2
	require.NoError(t, cfg.Validate())

	deps, err := NewDeps(context.Background(), cfg, noop.NewCompleter())
	require.NoError(t, err)
	deps.Now = func() time.Time { return time.Date(2024, 7, 10, 9, 30, 0, 0, time.UTC) }

	eng, err := New(cfg, deps)
	require.NoError(t, err)
	return eng
}

func TestAnalyzeFourBranchAudit(t *testing.T) {
	branches := []string{agents.Technical, agents.Fundamentals, agents.Sentiment, agents.Valuation}
	eng := newTestEngine(t, branches...)

	res, err := eng.Analyze(context.Background(), types.AnalysisRequest{Ticker: "600310"})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "600310", res.Ticker)
	assert.NotEmpty(t, res.RunID)

	var out struct {
		Action       types.Action        `json:"action"`
		AgentSignals []types.AgentSignal `json:"agent_signals"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Output), &out))
	require.Len(t, out.AgentSignals, len(branches))
	for i, b := range branches {
		assert.Equal(t, b, out.AgentSignals[i].Agent)
	}
	assert.Equal(t, res.Decision.Action, out.Action)

	// one message per node, each tagged with its producer
	producers := map[string]int{}
	for _, m := range res.Messages {
		producers[m.Producer]++
	}
	for _, b := range append(branches, agents.MarketData, agents.PortfolioManager) {
		assert.Equal(t, 1, producers[b], b)
	}
	assert.Equal(t, agents.MarketData, res.Messages[0].Producer)
	assert.Equal(t, agents.PortfolioManager, res.Messages[len(res.Messages)-1].Producer)
}

func TestAnalyzeDegradesWithoutLLM(t *testing.T) {
	eng := newTestEngine(t)

	res, err := eng.Analyze(context.Background(), types.AnalysisRequest{
		Ticker:    "000001",
		StartDate: "2023-07-01",
		EndDate:   "2024-06-28",
	})
	require.NoError(t, err)

	require.Len(t, res.Decision.AgentSignals, len(store.KnownAnalysts))
	for i, a := range store.KnownAnalysts {
		assert.Equal(t, a, res.Decision.AgentSignals[i].Agent)
	}

	signals := res.Data["signals"].(map[string]types.Signal)
	assert.Equal(t, fallback.Neutral(), signals[agents.ShortTerm])
	assert.Equal(t, fallback.Neutral(), signals[agents.LongTerm])
	assert.Equal(t, types.Neutral, signals[agents.Sentiment].Action)

	// the narrative call failed, so the vote summary stands
	assert.Equal(t, fusion.Summary(res.Decision.Votes, res.Decision.Action, len(store.KnownAnalysts)), res.Decision.Reasoning)
	assert.Equal(t, "2023-07-01", res.Data[agents.KeyStartDate])
	assert.Equal(t, "2024-06-28", res.Data[agents.KeyEndDate])
}

func TestAnalyzeIsDeterministicForStaticData(t *testing.T) {
	eng := newTestEngine(t)
	req := types.AnalysisRequest{Ticker: "600519", EndDate: "2024-05-31"}

	first, err := eng.Analyze(context.Background(), req)
	require.NoError(t, err)
	second, err := eng.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Decision, second.Decision)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	eng := newTestEngine(t)
	tests := []struct {
		name string
		req  types.AnalysisRequest
	}{
		{"empty ticker", types.AnalysisRequest{}},
		{"letters", types.AnalysisRequest{Ticker: "AAPL"}},
		{"seven digits", types.AnalysisRequest{Ticker: "6003101"}},
		{"bad start", types.AnalysisRequest{Ticker: "600310", StartDate: "2024/01/01"}},
		{"reversed range", types.AnalysisRequest{Ticker: "600310", StartDate: "2024-05-01", EndDate: "2024-04-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Analyze(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	_, err := eng.Analyze(context.Background(), types.AnalysisRequest{Ticker: "60031"})
	assert.ErrorIs(t, err, ErrInvalidTicker)
}

func TestEngineGraphShape(t *testing.T) {
	eng := newTestEngine(t)
	g := eng.Graph()
	assert.Equal(t, agents.MarketData, g.Entry())
	assert.Equal(t, agents.PortfolioManager, g.PrimaryTerminal())
	assert.Equal(t, store.KnownAnalysts, g.Predecessors(agents.PortfolioManager))
}

func TestObservableAnalyzerPassesThrough(t *testing.T) {
	wrapped := engineobs.Wrap(newTestEngine(t))

	res, err := wrapped.Analyze(context.Background(), types.AnalysisRequest{Ticker: "600310"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)

	_, err = wrapped.Analyze(context.Background(), types.AnalysisRequest{Ticker: "bad"})
	assert.ErrorIs(t, err, ErrInvalidTicker)
}
