package interfaces

import (
	"context"

	"stock-analyst/internal/types"
)

type Analyzer interface {
	Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error)
}
