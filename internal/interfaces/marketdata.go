package interfaces

import (
	"context"
	"time"

	"stock-analyst/internal/types"
)

// MarketDataSource never fails: on upstream trouble it returns a snapshot with Empty set.
type MarketDataSource interface {
	Fetch(ctx context.Context, ticker string, start, end time.Time) types.MarketSnapshot
}

type HeadlineSource interface {
	Headlines(ctx context.Context, ticker string) ([]types.NewsHeadline, error)
}
