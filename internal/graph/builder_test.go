package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() Node {
	return NodeFunc(func(context.Context, State) (Partial, error) {
		return Partial{}, nil
	})
}

func TestBuildValidGraph(t *testing.T) {
	g, err := NewBuilder().
		AddNode("entry", noop()).
		AddNode("a", noop()).
		AddNode("b", noop()).
		AddNode("join", noop()).
		AddEdge("entry", "a").
		AddEdge("entry", "b").
		AddJoin("join", "b", "a").
		SetEntry("entry").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "entry", g.Entry())
	assert.Equal(t, "join", g.PrimaryTerminal())
	assert.Equal(t, []string{"join"}, g.Terminals())
	assert.Equal(t, []string{"entry", "a", "b", "join"}, g.Nodes())
	// predecessors come back in registration order, not declaration order
	assert.Equal(t, []string{"a", "b"}, g.Predecessors("join"))
	assert.Equal(t, []string{"entry", "a", "b", "join"}, g.TopologicalOrder())
}

func TestBuildRejectsBadWiring(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Builder
		wantMsg string
	}{
		{
			name: "empty graph",
			build: func() *Builder {
				return NewBuilder()
			},
			wantMsg: "graph has no nodes",
		},
		{
			name: "duplicate node",
			build: func() *Builder {
				return NewBuilder().AddNode("a", noop()).AddNode("a", noop())
			},
			wantMsg: `duplicate node "a"`,
		},
		{
			name: "nil node",
			build: func() *Builder {
				return NewBuilder().AddNode("a", nil)
			},
			wantMsg: `node "a" has no implementation`,
		},
		{
			name: "self edge",
			build: func() *Builder {
				return NewBuilder().AddNode("a", noop()).AddEdge("a", "a")
			},
			wantMsg: `self edge on node "a"`,
		},
		{
			name: "duplicate edge",
			build: func() *Builder {
				return NewBuilder().AddNode("a", noop()).AddNode("b", noop()).AddEdge("a", "b").AddEdge("a", "b")
			},
			wantMsg: `duplicate edge "a" -> "b"`,
		},
		{
			name: "unknown consumer",
			build: func() *Builder {
				return NewBuilder().AddNode("a", noop()).AddEdge("a", "ghost")
			},
			wantMsg: `unknown consumer "ghost"`,
		},
		{
			name: "two entries",
			build: func() *Builder {
				return NewBuilder().
					AddNode("a", noop()).AddNode("b", noop()).AddNode("c", noop()).
					AddJoin("c", "a", "b")
			},
			wantMsg: "expected exactly one entry node, found 2",
		},
		{
			name: "declared entry mismatch",
			build: func() *Builder {
				return NewBuilder().AddNode("a", noop()).AddNode("b", noop()).AddEdge("a", "b").SetEntry("b")
			},
			wantMsg: `declared entry "b"`,
		},
		{
			name: "cycle",
			build: func() *Builder {
				return NewBuilder().
					AddNode("entry", noop()).AddNode("a", noop()).AddNode("b", noop()).
					AddJoin("a", "entry", "b").
					AddEdge("a", "b")
			},
			wantMsg: "cycle detected among nodes [a b]",
		},
		{
			name: "undeclared join",
			build: func() *Builder {
				return NewBuilder().
					AddNode("entry", noop()).AddNode("a", noop()).AddNode("b", noop()).AddNode("j", noop()).
					AddEdge("entry", "a").AddEdge("entry", "b").
					AddEdge("a", "j").AddEdge("b", "j")
			},
			wantMsg: `node "j" has 2 incoming edges but is not declared as a join`,
		},
		{
			name: "join with extra edge",
			build: func() *Builder {
				return NewBuilder().
					AddNode("entry", noop()).AddNode("a", noop()).AddNode("b", noop()).AddNode("c", noop()).AddNode("j", noop()).
					AddEdge("entry", "a").AddEdge("entry", "b").AddEdge("entry", "c").
					AddJoin("j", "a", "b").
					AddEdge("c", "j")
			},
			wantMsg: `join "j" declares predecessors [a b] but has edges from [a b c]`,
		},
		{
			name: "join with single predecessor",
			build: func() *Builder {
				return NewBuilder().AddNode("a", noop()).AddNode("j", noop()).AddJoin("j", "a")
			},
			wantMsg: `join "j" needs at least two predecessors`,
		},
		{
			name: "multiple terminals without primary",
			build: func() *Builder {
				return NewBuilder().
					AddNode("entry", noop()).AddNode("a", noop()).AddNode("b", noop()).
					AddEdge("entry", "a").AddEdge("entry", "b")
			},
			wantMsg: "a primary terminal must be set",
		},
		{
			name: "primary is not terminal",
			build: func() *Builder {
				return NewBuilder().
					AddNode("entry", noop()).AddNode("a", noop()).
					AddEdge("entry", "a").
					SetPrimaryTerminal("entry")
			},
			wantMsg: `primary terminal "entry" has outgoing edges`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := tt.build().Build()
			require.Error(t, err)
			assert.Nil(t, g)
			assert.True(t, errors.Is(err, ErrGraphConfiguration), "error should match ErrGraphConfiguration: %v", err)

			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestBuildReportsEveryProblem(t *testing.T) {
	_, err := NewBuilder().
		AddNode("entry", noop()).AddNode("a", noop()).AddNode("b", noop()).AddNode("j", noop()).
		AddEdge("entry", "a").AddEdge("entry", "b").AddEdge("a", "j").AddEdge("b", "j").
		AddNode("island", noop()).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly one entry node")
	assert.Contains(t, err.Error(), `node "j" has 2 incoming edges`)
}
