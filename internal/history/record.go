package history

import (
	"context"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

type recordingAnalyzer struct {
	analyzer interfaces.Analyzer
	log      *Log
}

var _ interfaces.Analyzer = (*recordingAnalyzer)(nil)

// Record journals every completed analysis. A journal write failure is logged and
// never fails the request.
func Record(a interfaces.Analyzer, l *Log) interfaces.Analyzer {
	return &recordingAnalyzer{analyzer: a, log: l}
}

func (r *recordingAnalyzer) Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error) {
	res, err := r.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := r.log.Append(res); err != nil {
		logger.WarnSkip(ctx, 1, "Failed to journal analysis", "ticker", res.Ticker, "run_id", res.RunID, "error", err)
	}
	return res, nil
}
