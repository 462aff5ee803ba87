package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"stock-analyst/internal/fallback"
	"stock-analyst/internal/fusion"
	"stock-analyst/internal/graph"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

const portfolioPrompt = `You are a portfolio manager. Several analysts have each voted bullish, bearish or neutral
on one stock, and the votes have already been counted into a final decision. Explain the decision in
three to five sentences for an investor: which analysts agree, which dissent and why, and what the
main risks are. Do not change the decision. Reply with plain text only.`

type portfolioManager struct {
	analysts  []string
	completer interfaces.Completer
	policy    fallback.Policy
}

// NewPortfolioManager fuses the analysts' votes. It must be registered as the join of
// exactly the given analysts, in the same order.
func NewPortfolioManager(deps Deps, analysts []string) graph.Node {
	return &portfolioManager{analysts: analysts, completer: deps.Completer, policy: deps.Policy}
}

func (p *portfolioManager) Execute(ctx context.Context, in graph.State) (graph.Partial, error) {
	inputs, err := fusion.Collect(in, p.analysts)
	if err != nil {
		return graph.Partial{}, err
	}
	decision, err := fusion.Fuse(inputs)
	if err != nil {
		return graph.Partial{}, err
	}

	ticker := in.String(KeyTicker)
	if p.completer != nil {
		summary := decision.Reasoning
		decision.Reasoning = fallback.Do(ctx, p.policy, PortfolioManager, func(ctx context.Context) (string, error) {
			text, err := p.completer.Complete(ctx, p.messages(ticker, decision))
			if err != nil {
				return "", err
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return "", errors.New("empty narrative")
			}
			return text, nil
		}, summary)
	}

	logger.Decision(ctx, ticker, string(decision.Action), decision.Confidence, decision.Reasoning)

	content, err := json.Marshal(decision)
	if err != nil {
		return graph.Partial{}, fmt.Errorf("encode decision: %w", err)
	}
	return graph.Partial{}.Say(string(content)).Set(KeyDecision, decision), nil
}

func (p *portfolioManager) messages(ticker string, d types.Decision) []types.ChatMessage {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ticker: %s\nDecision: %s (confidence %.2f)\nVotes: %s\n\nAnalyst signals:\n",
		ticker, d.Action, d.Confidence, d.Reasoning)
	for _, s := range d.AgentSignals {
		fmt.Fprintf(&sb, "- %s: %s (%.2f) %s\n", s.Agent, s.Action, s.Confidence, s.Reasoning)
	}
	return []types.ChatMessage{
		{Role: types.RoleSystem, Content: portfolioPrompt},
		{Role: types.RoleUser, Content: sb.String()},
	}
}
