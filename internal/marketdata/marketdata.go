// Package marketdata provides the market data sources behind the market_data node.
package marketdata

import (
	"time"

	"stock-analyst/internal/types"
)

const DateLayout = "2006-01-02"

// EmptySnapshot is what every source returns when it cannot deliver prices.
func EmptySnapshot(ticker string, start, end time.Time, source string) types.MarketSnapshot {
	return types.MarketSnapshot{
		Ticker:    ticker,
		StartDate: start.Format(DateLayout),
		EndDate:   end.Format(DateLayout),
		Prices:    []types.PriceBar{},
		LineItems: []types.LineItems{},
		Empty:     true,
		Source:    source,
	}
}
