package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"stock-analyst/internal/agents"
	"stock-analyst/internal/graph"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/store"
	"stock-analyst/internal/types"
)

var (
	// ErrInvalidRequest marks input problems the caller can fix.
	ErrInvalidRequest = errors.New("invalid analysis request")
	// ErrInvalidTicker is returned for anything but a six-digit A-share code.
	ErrInvalidTicker = fmt.Errorf("%w: ticker must be a six-digit code", ErrInvalidRequest)
)

var tickerPattern = regexp.MustCompile(`^\d{6}$`)

// StatusCompleted is the only status a returned result carries; failures return an error.
const StatusCompleted = "completed"

// Engine runs the analysis workflow. The graph is built once and shared by all requests.
type Engine struct {
	graph          *graph.Graph
	analysts       []string
	maxConcurrency int
	showReasoning  bool
	lookbackDays   int
	now            func() time.Time
}

// New wires market_data, the configured analysts and the portfolio manager join.
func New(cfg *store.Config, deps agents.Deps) (*Engine, error) {
	g, err := buildGraph(deps, cfg.Graph.Analysts)
	if err != nil {
		return nil, err
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		graph:          g,
		analysts:       cfg.Graph.Analysts,
		maxConcurrency: cfg.Graph.MaxConcurrency,
		showReasoning:  cfg.Graph.ShowReasoning,
		lookbackDays:   deps.LookbackDays,
		now:            now,
	}, nil
}

func buildGraph(deps agents.Deps, analysts []string) (*graph.Graph, error) {
	b := graph.NewBuilder().
		AddNode(agents.MarketData, agents.NewMarketData(deps)).
		AddNode(agents.PortfolioManager, agents.NewPortfolioManager(deps, analysts))
	for _, name := range analysts {
		node, err := analystNode(name, deps)
		if err != nil {
			return nil, err
		}
		b.AddNode(name, node).AddEdge(agents.MarketData, name)
	}
	return b.AddJoin(agents.PortfolioManager, analysts...).
		SetEntry(agents.MarketData).
		SetPrimaryTerminal(agents.PortfolioManager).
		Build()
}

func analystNode(name string, deps agents.Deps) (graph.Node, error) {
	switch name {
	case agents.ShortTerm:
		return agents.NewShortTerm(deps), nil
	case agents.LongTerm:
		return agents.NewLongTerm(deps), nil
	case agents.Technical:
		return agents.NewTechnical(), nil
	case agents.Fundamentals:
		return agents.NewFundamentals(), nil
	case agents.Sentiment:
		return agents.NewSentiment(deps.News), nil
	case agents.Valuation:
		return agents.NewValuation(), nil
	}
	return nil, fmt.Errorf("unknown analyst %q", name)
}

// Graph exposes the compiled workflow, mainly for inspection.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Analyze runs one request through the workflow. It either returns a completed result
// with a fused decision or an error; there is no partial result.
func (e *Engine) Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error) {
	if !tickerPattern.MatchString(req.Ticker) {
		return nil, fmt.Errorf("%w, got %q", ErrInvalidTicker, req.Ticker)
	}
	if _, _, err := agents.ResolveRange(req.StartDate, req.EndDate, e.now(), e.lookbackDays); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	initial := graph.NewState(map[string]any{
		agents.KeyTicker:    req.Ticker,
		agents.KeyStartDate: req.StartDate,
		agents.KeyEndDate:   req.EndDate,
	}, graph.Metadata{agents.MetaShowReasoning: e.showReasoning})

	res, err := e.graph.Run(ctx, initial, graph.WithMaxConcurrency(e.maxConcurrency))
	if err != nil {
		return nil, fmt.Errorf("analysis of %s failed: %w", req.Ticker, err)
	}

	decision, ok := res.State.Get(agents.KeyDecision)
	if !ok {
		return nil, fmt.Errorf("analysis of %s produced no decision", req.Ticker)
	}
	d, ok := decision.(types.Decision)
	if !ok {
		return nil, fmt.Errorf("analysis of %s: decision has type %T", req.Ticker, decision)
	}
	output, _ := res.Output.Message()

	logger.Debug(ctx, "Analysis finished", "ticker", req.Ticker, "run_id", res.RunID, "messages", len(res.State.Messages))
	return &types.AnalysisResult{
		Ticker:   req.Ticker,
		Status:   StatusCompleted,
		RunID:    res.RunID,
		Decision: d,
		Output:   output,
		Data:     analysisData(res.State, e.analysts),
		Messages: resultMessages(res.State.Messages),
	}, nil
}
