package graph

import "slices"

type vertex struct {
	name  string
	idx   int
	node  Node
	preds []*vertex
	succs []*vertex
}

func (v *vertex) predNames() []string {
	names := make([]string, len(v.preds))
	for i, p := range v.preds {
		names[i] = p.name
	}
	return names
}

// Graph is a validated, immutable DAG of nodes. It is safe to Run concurrently.
type Graph struct {
	nodes     []*vertex
	index     map[string]*vertex
	entry     *vertex
	terminals []*vertex
	primary   *vertex
	order     []string
}

// Nodes returns node names in registration order.
func (g *Graph) Nodes() []string {
	names := make([]string, len(g.nodes))
	for i, v := range g.nodes {
		names[i] = v.name
	}
	return names
}

// Entry returns the entry node name.
func (g *Graph) Entry() string { return g.entry.name }

// PrimaryTerminal returns the terminal whose output is the run result.
func (g *Graph) PrimaryTerminal() string { return g.primary.name }

// Terminals returns every node without outgoing edges, in registration order.
func (g *Graph) Terminals() []string {
	names := make([]string, len(g.terminals))
	for i, v := range g.terminals {
		names[i] = v.name
	}
	return names
}

// Predecessors returns the producers feeding name, in registration order.
func (g *Graph) Predecessors(name string) []string {
	v, ok := g.index[name]
	if !ok {
		return nil
	}
	return v.predNames()
}

// TopologicalOrder returns a stable topological order of the nodes.
func (g *Graph) TopologicalOrder() []string {
	return slices.Clone(g.order)
}
