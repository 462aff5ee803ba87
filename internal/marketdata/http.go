package marketdata

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"stock-analyst/internal/api"
	"stock-analyst/internal/fallback"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

// HTTP reads a JSON quote service exposing /prices, /financials and /market, each
// keyed by a ticker query parameter. The three calls run concurrently and fail
// independently; without prices the snapshot is marked Empty.
type HTTP struct {
	client *api.Client
	policy fallback.Policy
}

func NewHTTP(client *api.Client, policy fallback.Policy) *HTTP {
	return &HTTP{client: client, policy: policy}
}

type financialsResponse struct {
	Metrics   types.FinancialMetrics `json:"metrics"`
	LineItems []types.LineItems      `json:"line_items"`
}

func (h *HTTP) Fetch(ctx context.Context, ticker string, start, end time.Time) types.MarketSnapshot {
	snap := EmptySnapshot(ticker, start, end, "http")
	op := logger.StartOperation(ctx, "marketdata.Fetch", "ticker", ticker, "source", "http")
	ctx = op.Context()

	var (
		prices     []types.PriceBar
		financials financialsResponse
		market     types.MarketInfo
	)
	// every goroutine returns nil: a failed part keeps its defaults
	var g errgroup.Group
	g.Go(func() error {
		req := api.NewRequest(http.MethodGet, "/prices").
			WithQuery("ticker", ticker).
			WithQuery("start_date", snap.StartDate).
			WithQuery("end_date", snap.EndDate)
		if err := h.getJSON(ctx, req, &prices); err != nil {
			logger.Warn(ctx, "Price history unavailable, continuing with empty data", "ticker", ticker, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		req := api.NewRequest(http.MethodGet, "/financials").WithQuery("ticker", ticker)
		if err := h.getJSON(ctx, req, &financials); err != nil {
			logger.Warn(ctx, "Financial statements unavailable", "ticker", ticker, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		req := api.NewRequest(http.MethodGet, "/market").WithQuery("ticker", ticker)
		if err := h.getJSON(ctx, req, &market); err != nil {
			logger.Warn(ctx, "Market info unavailable", "ticker", ticker, "error", err)
		}
		return nil
	})
	_ = g.Wait()

	snap.Metrics = financials.Metrics
	if financials.LineItems != nil {
		snap.LineItems = financials.LineItems
	}
	snap.Market = market
	if len(prices) > 0 {
		snap.Prices = prices
		snap.Empty = false
	}
	op.End("bars", len(snap.Prices), "empty", snap.Empty)
	return snap
}

func (h *HTTP) getJSON(ctx context.Context, req *api.Request, out any) error {
	resp, err := h.client.DoWithRetry(req.WithContext(ctx), h.policy)
	if err != nil {
		return err
	}
	return resp.ParseJSON(out)
}
