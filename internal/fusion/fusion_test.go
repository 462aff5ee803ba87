package fusion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/graph"
	"stock-analyst/internal/types"
)

func vote(agent string, a types.Action, c float64) Input {
	return Input{Agent: agent, Signal: types.Signal{Action: a, Confidence: c, Reasoning: agent + " says " + string(a)}}
}

func withDetails(in Input, details map[string]any) Input {
	in.Signal.Details = details
	return in
}

func TestFuse(t *testing.T) {
	tests := []struct {
		name       string
		inputs     []Input
		action     types.Action
		confidence float64
	}{
		{
			name: "plurality wins",
			inputs: []Input{
				vote("short_term", types.Bullish, 0.9),
				vote("long_term", types.Bullish, 0.6),
				withDetails(vote("technical", types.Bearish, 0.7), map[string]any{"adx": 31.2}),
				withDetails(vote("valuation", types.Neutral, 0.5), map[string]any{"dcf_gap": -0.3}),
			},
			action:     types.Bullish,
			confidence: 0.5,
		},
		{
			name:       "two way tie is neutral",
			inputs:     []Input{vote("a", types.Bullish, 0.8), vote("b", types.Bearish, 0.8)},
			action:     types.Neutral,
			confidence: 0,
		},
		{
			name: "three way tie is neutral",
			inputs: []Input{
				vote("a", types.Bullish, 0.8), vote("b", types.Bearish, 0.8), vote("c", types.Neutral, 0.5),
			},
			action:     types.Neutral,
			confidence: 1.0 / 3.0,
		},
		{
			name:       "unanimous bearish",
			inputs:     []Input{vote("a", types.Bearish, 0.2), vote("b", types.Bearish, 0.9), vote("c", types.Bearish, 0.4)},
			action:     types.Bearish,
			confidence: 1,
		},
		{
			name: "neutral plurality",
			inputs: []Input{
				vote("a", types.Neutral, 0.5), vote("b", types.Neutral, 0.5), vote("c", types.Bullish, 1),
			},
			action:     types.Neutral,
			confidence: 2.0 / 3.0,
		},
		{
			name:       "single vote",
			inputs:     []Input{vote("a", types.Bullish, 0.1)},
			action:     types.Bullish,
			confidence: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Fuse(tt.inputs)
			require.NoError(t, err)
			assert.Equal(t, tt.action, d.Action)
			assert.InDelta(t, tt.confidence, d.Confidence, 1e-9)

			require.Len(t, d.AgentSignals, len(tt.inputs))
			for i, in := range tt.inputs {
				assert.Equal(t, in.Agent, d.AgentSignals[i].Agent)
				assert.Equal(t, in.Signal.Action, d.AgentSignals[i].Action)
				assert.Equal(t, in.Signal.Confidence, d.AgentSignals[i].Confidence)
				assert.Equal(t, in.Signal.Reasoning, d.AgentSignals[i].Reasoning)
			assert.Equal(t, in.Signal.Details, d.AgentSignals[i].Details)
			}

			total := 0
			for _, n := range d.Votes {
				total += n
			}
			assert.Equal(t, len(tt.inputs), total)
		})
	}
}

func TestFuseIsDeterministic(t *testing.T) {
	inputs := []Input{
		vote("a", types.Bullish, 0.9), vote("b", types.Bearish, 0.6), vote("c", types.Bullish, 0.3),
	}
	first, err := Fuse(inputs)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Fuse(inputs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "bullish with 2 of 3 votes (bullish 2, bearish 1, neutral 0)", first.Reasoning)
}

func TestFuseRejectsMalformedInput(t *testing.T) {
	_, err := Fuse(nil)
	assert.ErrorIs(t, err, ErrMissingSignal)

	_, err = Fuse([]Input{vote("a", "sideways", 0.5)})
	assert.ErrorIs(t, err, ErrMalformedSignal)

	_, err = Fuse([]Input{vote("a", types.Bullish, 1.5)})
	assert.ErrorIs(t, err, ErrMalformedSignal)

	_, err = Fuse([]Input{vote("a", types.Bullish, 0.5), vote("a", types.Bearish, 0.5)})
	assert.ErrorIs(t, err, ErrMalformedSignal)
}

func TestDecodeSignal(t *testing.T) {
	sig, err := DecodeSignal(`{"action":"看涨","confidence":0.7,"reasoning":"现金流稳健"}`)
	require.NoError(t, err)
	assert.Equal(t, types.Bullish, sig.Action)
	assert.Equal(t, 0.7, sig.Confidence)

	encoded, err := EncodeSignal(types.Signal{Action: types.Bearish, Confidence: 0.25, Reasoning: "weak"})
	require.NoError(t, err)
	back, err := DecodeSignal(encoded)
	require.NoError(t, err)
	assert.Equal(t, types.Bearish, back.Action)

	_, err = DecodeSignal("not json")
	assert.ErrorIs(t, err, ErrMalformedSignal)
	_, err = DecodeSignal(`{"action":"moon"}`)
	assert.ErrorIs(t, err, ErrMalformedSignal)
}

func TestCollectFromJoinInput(t *testing.T) {
	analyst := func(action types.Action) graph.Node {
		return graph.NodeFunc(func(context.Context, graph.State) (graph.Partial, error) {
			content, err := EncodeSignal(types.Signal{Action: action, Confidence: 0.6, Details: map[string]any{"adx": 31.2}})
			if err != nil {
				return graph.Partial{}, err
			}
			return graph.Partial{}.Say(content), nil
		})
	}

	var collected []Input
	var collectErr error
	join := graph.NodeFunc(func(_ context.Context, in graph.State) (graph.Partial, error) {
		collected, collectErr = Collect(in, []string{"a", "b", "c"})
		return graph.Partial{}, nil
	})

	g, err := graph.NewBuilder().
		AddNode("entry", graph.NodeFunc(func(context.Context, graph.State) (graph.Partial, error) { return graph.Partial{}, nil })).
		AddNode("a", analyst(types.Bullish)).
		AddNode("b", analyst(types.Bearish)).
		AddNode("join", join).
		AddEdge("entry", "a").AddEdge("entry", "b").
		AddJoin("join", "a", "b").
		Build()
	require.NoError(t, err)

	_, err = g.Run(context.Background(), graph.NewState(nil, nil))
	require.NoError(t, err)

	// "c" was never wired in
	assert.ErrorIs(t, collectErr, ErrMissingSignal)
	assert.Nil(t, collected)

	collected, collectErr = nil, nil
	join2 := graph.NodeFunc(func(_ context.Context, in graph.State) (graph.Partial, error) {
		collected, collectErr = Collect(in, []string{"b", "a"})
		return graph.Partial{}, nil
	})
	g2, err := graph.NewBuilder().
		AddNode("entry", graph.NodeFunc(func(context.Context, graph.State) (graph.Partial, error) { return graph.Partial{}, nil })).
		AddNode("a", analyst(types.Bullish)).
		AddNode("b", analyst(types.Bearish)).
		AddNode("join", join2).
		AddEdge("entry", "a").AddEdge("entry", "b").
		AddJoin("join", "a", "b").
		Build()
	require.NoError(t, err)
	_, err = g2.Run(context.Background(), graph.NewState(nil, nil))
	require.NoError(t, err)
	require.NoError(t, collectErr)
	require.Len(t, collected, 2)
	assert.Equal(t, "b", collected[0].Agent)
	assert.Equal(t, types.Bearish, collected[0].Signal.Action)
	assert.Equal(t, "a", collected[1].Agent)

	// details survive the message encoding and reach the audit list
	d, err := Fuse(collected)
	require.NoError(t, err)
	require.Len(t, d.AgentSignals, 2)
	for _, s := range d.AgentSignals {
		assert.Equal(t, map[string]any{"adx": 31.2}, s.Details)
	}
}
