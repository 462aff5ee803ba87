package agents

import (
	"context"

	"stock-analyst/internal/graph"
	"stock-analyst/internal/news"
)

type sentimentNode struct {
	news *news.Service
}

// NewSentiment classifies recent headlines about the ticker.
func NewSentiment(svc *news.Service) graph.Node {
	return &sentimentNode{news: svc}
}

func (n *sentimentNode) Execute(ctx context.Context, in graph.State) (graph.Partial, error) {
	ticker := in.String(KeyTicker)
	if n.news == nil {
		return emit(ctx, in, Sentiment, neutral("news sentiment disabled"))
	}
	return emit(ctx, in, Sentiment, n.news.GetSentiment(ctx, ticker))
}
