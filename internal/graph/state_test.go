package graph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartialBuildersDoNotAlias(t *testing.T) {
	base := Partial{}.Set("a", 1)
	next := base.Set("b", 2).Say("hello")

	assert.Equal(t, map[string]any{"a": 1}, base.Data)
	assert.Empty(t, base.Messages)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, next.Data)

	content, ok := next.Message()
	require.True(t, ok)
	assert.Equal(t, "hello", content)

	_, ok = base.Message()
	assert.False(t, ok)
}

func TestStateAccessors(t *testing.T) {
	s := NewState(map[string]any{"ticker": "600310", "n": 3}, Metadata{"show_reasoning": true, "mode": "test"})
	s.absorb("market_data", Partial{Messages: []Message{{Producer: "market_data", Content: "loaded"}}})

	assert.Equal(t, "600310", s.String("ticker"))
	assert.Equal(t, "", s.String("n"))
	v, ok := s.Get("n")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.True(t, s.Metadata.Bool("show_reasoning"))
	assert.Equal(t, "test", s.Metadata.String("mode"))
	assert.False(t, s.Metadata.Bool("missing"))
	assert.True(t, s.Contributed("market_data"))
	assert.Len(t, s.MessagesFrom("market_data"), 1)
	assert.Empty(t, s.MessagesFrom("other"))

	out, ok := s.Output("market_data")
	require.True(t, ok)
	assert.Equal(t, "loaded", out.Messages[0].Content)
}

func TestStateCloneIsIndependent(t *testing.T) {
	s := NewState(map[string]any{"k": "v"}, Metadata{"m": 1})
	c := s.Clone()
	c.Data["k"] = "changed"
	c.Metadata["m"] = 2
	c.absorb("n", Partial{}.Say("x").tagged("n"))

	assert.Equal(t, "v", s.Data["k"])
	assert.Equal(t, 1, s.Metadata["m"])
	assert.Empty(t, s.Messages)
	assert.Empty(t, s.Lineage)
}

func TestStateMergeLastWriteWins(t *testing.T) {
	left := NewState(map[string]any{"k": "left", "only_left": 1}, Metadata{"flag": true})
	left.Messages = []Message{{Producer: "a", Content: "one"}}
	right := NewState(map[string]any{"k": "right"}, Metadata{"flag": false, "extra": "x"})
	right.Messages = []Message{{Producer: "a", Content: "one"}, {Producer: "b", Content: "two"}}

	merged := left.Merge(right)
	assert.Equal(t, "right", merged.Data["k"])
	assert.Equal(t, 1, merged.Data["only_left"])
	assert.Equal(t, []Message{{Producer: "a", Content: "one"}, {Producer: "b", Content: "two"}}, merged.Messages)
	// metadata is read-only: existing keys keep their value
	assert.Equal(t, true, merged.Metadata["flag"])
	assert.Equal(t, "x", merged.Metadata["extra"])
	// receiver untouched
	assert.Equal(t, "left", left.Data["k"])
	assert.Len(t, left.Messages, 1)
}

func TestStateRoundTripMergeIsIdempotent(t *testing.T) {
	g := fanGraph(t, entryNode(), branchNode, auditJoin())
	res, err := g.Run(context.Background(), NewState(map[string]any{"request.ticker": "600310"}, Metadata{"show_reasoning": true}))
	require.NoError(t, err)

	raw, err := json.Marshal(res.State)
	require.NoError(t, err)

	var decoded State
	require.NoError(t, json.Unmarshal(raw, &decoded))

	merged := decoded.Merge(decoded)
	assert.Equal(t, decoded, merged)

	again, err := json.Marshal(merged)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
}
