package engine

import (
	"stock-analyst/internal/agents"
	"stock-analyst/internal/graph"
	"stock-analyst/internal/types"
)

// analysisData picks what callers see of the final state: the resolved range, the
// market info and every analyst's signal.
func analysisData(s graph.State, analysts []string) map[string]any {
	out := map[string]any{
		agents.KeyStartDate: s.String(agents.KeyStartDate),
		agents.KeyEndDate:   s.String(agents.KeyEndDate),
	}
	if v, ok := s.Get(agents.KeySnapshot); ok {
		if snap, ok := v.(types.MarketSnapshot); ok {
			out["market_data"] = snap.Market
			out["price_bars"] = len(snap.Prices)
			out["data_source"] = snap.Source
		}
	}
	signals := make(map[string]types.Signal, len(analysts))
	for _, a := range analysts {
		if v, ok := s.Get(agents.SignalKey(a)); ok {
			if sig, ok := v.(types.Signal); ok {
				signals[a] = sig
			}
		}
	}
	out["signals"] = signals
	return out
}

func resultMessages(msgs []graph.Message) []types.ResultMessage {
	out := make([]types.ResultMessage, len(msgs))
	for i, m := range msgs {
		out[i] = types.ResultMessage{Producer: m.Producer, Content: m.Content}
	}
	return out
}
