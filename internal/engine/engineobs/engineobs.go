package engineobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/trace"
	"stock-analyst/internal/types"
)

type observableAnalyzer struct {
	analyzer interfaces.Analyzer
}

var _ interfaces.Analyzer = (*observableAnalyzer)(nil)

func Wrap(a interfaces.Analyzer) interfaces.Analyzer {
	return &observableAnalyzer{
		analyzer: a,
	}
}

func (oa *observableAnalyzer) Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Analyze", oteltrace.WithAttributes(
		attribute.String("ticker", req.Ticker),
	))
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting analysis",
		"ticker", req.Ticker,
		"start_date", req.StartDate,
		"end_date", req.EndDate,
	)

	result, err := oa.analyzer.Analyze(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Analysis failed", err,
			"ticker", req.Ticker,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Analysis completed",
		"ticker", req.Ticker,
		"run_id", result.RunID,
		"action", result.Decision.Action,
		"confidence", result.Decision.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
