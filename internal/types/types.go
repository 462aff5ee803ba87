package types

import "strings"

// Action is the categorical vote every analyst produces.
type Action string

const (
	Bullish Action = "bullish"
	Bearish Action = "bearish"
	Neutral Action = "neutral"
)

// Actions lists the categories in their canonical order.
var Actions = []Action{Bullish, Bearish, Neutral}

func (a Action) Valid() bool {
	return a == Bullish || a == Bearish || a == Neutral
}

// ParseAction maps the many spellings LLMs and older prompts use onto an Action.
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bullish", "bull", "buy", "long", "positive", "看涨", "看多", "买入":
		return Bullish, true
	case "bearish", "bear", "sell", "short", "negative", "看跌", "看空", "卖出":
		return Bearish, true
	case "neutral", "hold", "flat", "中立", "中性", "持有", "观望":
		return Neutral, true
	}
	return "", false
}

// Signal is one analyst's output.
type Signal struct {
	Action     Action         `json:"action"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
	Details    map[string]any `json:"details,omitempty"`
}

// AgentSignal is an audit entry: which analyst voted what, and on what evidence.
type AgentSignal struct {
	Agent      string         `json:"agent_name"`
	Action     Action         `json:"signal"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Decision is the fused portfolio outcome.
type Decision struct {
	Action       Action         `json:"action"`
	Confidence   float64        `json:"confidence"`
	Votes        map[Action]int `json:"votes"`
	AgentSignals []AgentSignal  `json:"agent_signals"`
	Reasoning    string         `json:"reasoning"`
}

// Chat roles understood by every completion provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one role-tagged prompt entry.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PriceBar is one daily OHLCV bar.
type PriceBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Amount float64 `json:"amount,omitempty"`
}

// FinancialMetrics are the latest ratio-style indicators for a company.
type FinancialMetrics struct {
	ReturnOnEquity       float64 `json:"return_on_equity"`
	NetMargin            float64 `json:"net_margin"`
	OperatingMargin      float64 `json:"operating_margin"`
	RevenueGrowth        float64 `json:"revenue_growth"`
	EarningsGrowth       float64 `json:"earnings_growth"`
	BookValueGrowth      float64 `json:"book_value_growth"`
	CurrentRatio         float64 `json:"current_ratio"`
	DebtToEquity         float64 `json:"debt_to_equity"`
	FreeCashFlowPerShare float64 `json:"free_cash_flow_per_share"`
	EarningsPerShare     float64 `json:"earnings_per_share"`
	PriceToEarnings      float64 `json:"pe_ratio"`
	PriceToBook          float64 `json:"price_to_book"`
	PriceToSales         float64 `json:"price_to_sales"`
}

// LineItems are statement figures for one reporting period, most recent first.
type LineItems struct {
	Period                 string  `json:"period"`
	NetIncome              float64 `json:"net_income"`
	OperatingRevenue       float64 `json:"operating_revenue"`
	OperatingProfit        float64 `json:"operating_profit"`
	OperatingCashFlow      float64 `json:"operating_cash_flow"`
	WorkingCapital         float64 `json:"working_capital"`
	DepreciationAmortizing float64 `json:"depreciation_and_amortization"`
	CapitalExpenditure     float64 `json:"capital_expenditure"`
	FreeCashFlow           float64 `json:"free_cash_flow"`
}

// MarketInfo is the current quote-level view of the ticker.
type MarketInfo struct {
	MarketCap        float64 `json:"market_cap"`
	Volume           float64 `json:"volume"`
	AverageVolume    float64 `json:"average_volume"`
	FiftyTwoWeekHigh float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  float64 `json:"fifty_two_week_low"`
}

// MarketSnapshot is everything the data source returns for one ticker and range.
// Empty is set when the source failed and the record holds defaults only.
type MarketSnapshot struct {
	Ticker    string           `json:"ticker"`
	StartDate string           `json:"start_date"`
	EndDate   string           `json:"end_date"`
	Prices    []PriceBar       `json:"prices"`
	Metrics   FinancialMetrics `json:"financial_metrics"`
	LineItems []LineItems      `json:"financial_line_items"`
	Market    MarketInfo       `json:"market_data"`
	Empty     bool             `json:"empty,omitempty"`
	Source    string           `json:"source,omitempty"`
}

// Closes returns the closing prices in chronological order.
func (s MarketSnapshot) Closes() []float64 {
	out := make([]float64, len(s.Prices))
	for i, p := range s.Prices {
		out[i] = p.Close
	}
	return out
}

// NewsHeadline is one scraped headline.
type NewsHeadline struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at,omitempty"`
}

// AnalysisRequest is one incoming analysis request. Dates are YYYY-MM-DD and optional.
type AnalysisRequest struct {
	Ticker    string `json:"ticker"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// ResultMessage is a message of the final state as returned to callers.
type ResultMessage struct {
	Producer string `json:"producer"`
	Content  string `json:"content"`
}

// AnalysisResult is the response body of a completed analysis.
type AnalysisResult struct {
	Ticker   string          `json:"ticker"`
	Status   string          `json:"status"`
	RunID    string          `json:"run_id"`
	Decision Decision        `json:"decision"`
	Output   string          `json:"output"`
	Data     map[string]any  `json:"analysis"`
	Messages []ResultMessage `json:"messages"`
}
