// Package fusion turns the analysts' categorical votes into one decision.
package fusion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"stock-analyst/internal/graph"
	"stock-analyst/internal/types"
)

var (
	// ErrMissingSignal means an expected analyst produced nothing. It points at broken
	// wiring, so it fails the request instead of degrading.
	ErrMissingSignal = errors.New("missing analyst signal")
	// ErrMalformedSignal means an analyst message could not be read as a signal.
	ErrMalformedSignal = errors.New("malformed analyst signal")
)

// Input is one analyst's vote.
type Input struct {
	Agent  string
	Signal types.Signal
}

// Fuse counts votes per action. The action with strictly more votes than any other wins;
// a tie for first place yields neutral. Confidence is the winner's share of all votes.
// Inputs are echoed, in order, as the audit list, supporting details included.
func Fuse(inputs []Input) (types.Decision, error) {
	if len(inputs) == 0 {
		return types.Decision{}, fmt.Errorf("%w: no analyst signals to fuse", ErrMissingSignal)
	}

	votes := make(map[types.Action]int, len(types.Actions))
	for _, a := range types.Actions {
		votes[a] = 0
	}
	audit := make([]types.AgentSignal, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		if in.Agent == "" {
			return types.Decision{}, fmt.Errorf("%w: signal without analyst name", ErrMalformedSignal)
		}
		if _, dup := seen[in.Agent]; dup {
			return types.Decision{}, fmt.Errorf("%w: analyst %q voted twice", ErrMalformedSignal, in.Agent)
		}
		seen[in.Agent] = struct{}{}
		if !in.Signal.Action.Valid() {
			return types.Decision{}, fmt.Errorf("%w: analyst %q has action %q", ErrMalformedSignal, in.Agent, in.Signal.Action)
		}
		if in.Signal.Confidence < 0 || in.Signal.Confidence > 1 {
			return types.Decision{}, fmt.Errorf("%w: analyst %q has confidence %v", ErrMalformedSignal, in.Agent, in.Signal.Confidence)
		}

		votes[in.Signal.Action]++
		audit = append(audit, types.AgentSignal{
			Agent:      in.Agent,
			Action:     in.Signal.Action,
			Confidence: in.Signal.Confidence,
			Reasoning:  in.Signal.Reasoning,
			Details:    in.Signal.Details,
		})
	}

	winner := types.Neutral
	best, tied := -1, false
	for _, a := range types.Actions {
		switch n := votes[a]; {
		case n > best:
			best, winner, tied = n, a, false
		case n == best:
			tied = true
		}
	}
	if tied {
		winner = types.Neutral
	}

	return types.Decision{
		Action:       winner,
		Confidence:   float64(votes[winner]) / float64(len(inputs)),
		Votes:        votes,
		AgentSignals: audit,
		Reasoning:    Summary(votes, winner, len(inputs)),
	}, nil
}

// Summary renders the vote count in one line, e.g. "bullish with 2 of 4 votes (bullish 2, bearish 1, neutral 1)".
func Summary(votes map[types.Action]int, winner types.Action, total int) string {
	parts := make([]string, 0, len(types.Actions))
	for _, a := range types.Actions {
		parts = append(parts, fmt.Sprintf("%s %d", a, votes[a]))
	}
	return fmt.Sprintf("%s with %d of %d votes (%s)", winner, votes[winner], total, strings.Join(parts, ", "))
}

// Collect reads each expected analyst's signal from the join's input state, in the given
// order. Every analyst must have an output slot holding a JSON-encoded signal message.
func Collect(in graph.State, agents []string) ([]Input, error) {
	inputs := make([]Input, 0, len(agents))
	for _, agent := range agents {
		out, ok := in.Output(agent)
		if !ok {
			return nil, fmt.Errorf("%w: no output from %q", ErrMissingSignal, agent)
		}
		content, ok := out.Message()
		if !ok {
			return nil, fmt.Errorf("%w: %q emitted no message", ErrMissingSignal, agent)
		}
		sig, err := DecodeSignal(content)
		if err != nil {
			return nil, fmt.Errorf("analyst %q: %w", agent, err)
		}
		inputs = append(inputs, Input{Agent: agent, Signal: sig})
	}
	return inputs, nil
}

// DecodeSignal parses a signal message written by an analyst node.
func DecodeSignal(content string) (types.Signal, error) {
	var raw struct {
		Action     string         `json:"action"`
		Confidence float64        `json:"confidence"`
		Reasoning  string         `json:"reasoning"`
		Details    map[string]any `json:"details"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return types.Signal{}, fmt.Errorf("%w: %v", ErrMalformedSignal, err)
	}
	action, ok := types.ParseAction(raw.Action)
	if !ok {
		return types.Signal{}, fmt.Errorf("%w: unknown action %q", ErrMalformedSignal, raw.Action)
	}
	return types.Signal{
		Action:     action,
		Confidence: raw.Confidence,
		Reasoning:  raw.Reasoning,
		Details:    raw.Details,
	}, nil
}

// EncodeSignal is the inverse of DecodeSignal.
func EncodeSignal(sig types.Signal) (string, error) {
	b, err := json.Marshal(sig)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
