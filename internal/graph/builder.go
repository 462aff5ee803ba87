package graph

import (
	"errors"
	"slices"
	"sort"
	"strings"
)

type edge struct {
	from, to string
}

// Builder collects nodes and edges and validates them into an immutable Graph.
// Registration order matters: it fixes the merge order at every join.
type Builder struct {
	nodes   map[string]Node
	order   []string
	edges   []edge
	edgeSet map[edge]struct{}
	joins   map[string][]string
	entry   string
	primary string
	errs    []error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:   make(map[string]Node),
		edgeSet: make(map[edge]struct{}),
		joins:   make(map[string][]string),
	}
}

// AddNode registers a node under a unique name.
func (b *Builder) AddNode(name string, n Node) *Builder {
	switch {
	case strings.TrimSpace(name) == "":
		b.errs = append(b.errs, configErrorf("node name cannot be empty"))
	case n == nil:
		b.errs = append(b.errs, configErrorf("node %q has no implementation", name))
	default:
		if _, dup := b.nodes[name]; dup {
			b.errs = append(b.errs, configErrorf("duplicate node %q", name))
			return b
		}
		b.nodes[name] = n
		b.order = append(b.order, name)
	}
	return b
}

// AddEdge registers a single producer -> consumer edge.
func (b *Builder) AddEdge(from, to string) *Builder {
	e := edge{from: from, to: to}
	if from == to {
		b.errs = append(b.errs, configErrorf("self edge on node %q", from))
		return b
	}
	if _, dup := b.edgeSet[e]; dup {
		b.errs = append(b.errs, configErrorf("duplicate edge %q -> %q", from, to))
		return b
	}
	b.edgeSet[e] = struct{}{}
	b.edges = append(b.edges, e)
	return b
}

// AddJoin declares to as a join node waiting on every node in from, and registers the
// corresponding edges. A node with several incoming edges must be declared this way.
func (b *Builder) AddJoin(to string, from ...string) *Builder {
	if len(from) < 2 {
		b.errs = append(b.errs, configErrorf("join %q needs at least two predecessors, got %d", to, len(from)))
		return b
	}
	if _, dup := b.joins[to]; dup {
		b.errs = append(b.errs, configErrorf("join %q declared twice", to))
		return b
	}
	b.joins[to] = slices.Clone(from)
	for _, f := range from {
		b.AddEdge(f, to)
	}
	return b
}

// SetEntry names the expected entry node. Optional; Build checks it against the edges.
func (b *Builder) SetEntry(name string) *Builder {
	b.entry = name
	return b
}

// SetPrimaryTerminal names the terminal whose output is the run's result. Required when
// the graph has more than one terminal.
func (b *Builder) SetPrimaryTerminal(name string) *Builder {
	b.primary = name
	return b
}

// Build validates the wiring and returns the graph. Every problem found is reported,
// joined with errors.Join; each one matches ErrGraphConfiguration.
func (b *Builder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if len(b.order) == 0 {
		return nil, configErrorf("graph has no nodes")
	}

	g := &Graph{index: make(map[string]*vertex, len(b.order))}
	for i, name := range b.order {
		v := &vertex{name: name, idx: i, node: b.nodes[name]}
		g.nodes = append(g.nodes, v)
		g.index[name] = v
	}

	var errs []error
	for _, e := range b.edges {
		from, okFrom := g.index[e.from]
		to, okTo := g.index[e.to]
		if !okFrom {
			errs = append(errs, configErrorf("edge %q -> %q: unknown producer %q", e.from, e.to, e.from))
		}
		if !okTo {
			errs = append(errs, configErrorf("edge %q -> %q: unknown consumer %q", e.from, e.to, e.to))
		}
		if okFrom && okTo {
			from.succs = append(from.succs, to)
			to.preds = append(to.preds, from)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, v := range g.nodes {
		sort.Slice(v.preds, func(i, j int) bool { return v.preds[i].idx < v.preds[j].idx })
		sort.Slice(v.succs, func(i, j int) bool { return v.succs[i].idx < v.succs[j].idx })
	}

	errs = append(errs, b.validateEntry(g)...)
	errs = append(errs, b.validateJoins(g)...)
	errs = append(errs, validateAcyclic(g)...)
	if g.entry != nil {
		errs = append(errs, validateReachable(g)...)
	}
	errs = append(errs, b.validateTerminals(g)...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

func (b *Builder) validateEntry(g *Graph) []error {
	var entries []string
	for _, v := range g.nodes {
		if len(v.preds) == 0 {
			entries = append(entries, v.name)
		}
	}
	if len(entries) != 1 {
		return []error{configErrorf("expected exactly one entry node, found %d %v", len(entries), entries)}
	}
	if b.entry != "" && b.entry != entries[0] {
		return []error{configErrorf("declared entry %q is not the node without predecessors (%q)", b.entry, entries[0])}
	}
	g.entry = g.index[entries[0]]
	return nil
}

func (b *Builder) validateJoins(g *Graph) []error {
	var errs []error
	for name, declared := range b.joins {
		v, ok := g.index[name]
		if !ok {
			// Unknown consumers were already reported through the join's edges.
			continue
		}
		want := slices.Clone(declared)
		have := v.predNames()
		slices.Sort(want)
		slices.Sort(have)
		if !slices.Equal(want, have) {
			errs = append(errs, configErrorf("join %q declares predecessors %v but has edges from %v", name, want, have))
		}
	}
	for _, v := range g.nodes {
		if len(v.preds) > 1 {
			if _, ok := b.joins[v.name]; !ok {
				errs = append(errs, configErrorf("node %q has %d incoming edges but is not declared as a join", v.name, len(v.preds)))
			}
		}
	}
	sortErrors(errs)
	return errs
}

// validateAcyclic runs Kahn's algorithm; ties are broken by registration order so the
// resulting order is stable.
func validateAcyclic(g *Graph) []error {
	inDegree := make([]int, len(g.nodes))
	for _, v := range g.nodes {
		inDegree[v.idx] = len(v.preds)
	}
	var queue []*vertex
	for _, v := range g.nodes {
		if inDegree[v.idx] == 0 {
			queue = append(queue, v)
		}
	}
	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v.name)
		for _, s := range v.succs {
			inDegree[s.idx]--
			if inDegree[s.idx] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if len(order) != len(g.nodes) {
		var cyclic []string
		for _, v := range g.nodes {
			if inDegree[v.idx] > 0 {
				cyclic = append(cyclic, v.name)
			}
		}
		slices.Sort(cyclic)
		return []error{configErrorf("cycle detected among nodes %v", cyclic)}
	}
	g.order = order
	return nil
}

func validateReachable(g *Graph) []error {
	seen := make([]bool, len(g.nodes))
	stack := []*vertex{g.entry}
	seen[g.entry.idx] = true
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range v.succs {
			if !seen[s.idx] {
				seen[s.idx] = true
				stack = append(stack, s)
			}
		}
	}
	var unreachable []string
	for _, v := range g.nodes {
		if !seen[v.idx] {
			unreachable = append(unreachable, v.name)
		}
	}
	if len(unreachable) > 0 {
		return []error{configErrorf("nodes %v are not reachable from entry %q", unreachable, g.entry.name)}
	}
	return nil
}

func (b *Builder) validateTerminals(g *Graph) []error {
	for _, v := range g.nodes {
		if len(v.succs) == 0 {
			g.terminals = append(g.terminals, v)
		}
	}
	if len(g.terminals) == 0 {
		return []error{configErrorf("graph has no terminal node")}
	}
	if b.primary == "" {
		if len(g.terminals) > 1 {
			names := make([]string, len(g.terminals))
			for i, t := range g.terminals {
				names[i] = t.name
			}
			return []error{configErrorf("graph has %d terminals %v; a primary terminal must be set", len(names), names)}
		}
		g.primary = g.terminals[0]
		return nil
	}
	v, ok := g.index[b.primary]
	if !ok {
		return []error{configErrorf("primary terminal %q is not a registered node", b.primary)}
	}
	if len(v.succs) > 0 {
		return []error{configErrorf("primary terminal %q has outgoing edges", b.primary)}
	}
	g.primary = v
	return nil
}

func sortErrors(errs []error) {
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
}
