package graph

import "context"

// Node is one computation step of a graph. Execute receives the merged state of all the
// node's predecessors and returns only what it adds.
//
// External-call failures are expected to be absorbed by the node (see package fallback).
// A returned error is treated as a programming error and aborts the whole run.
type Node interface {
	Execute(ctx context.Context, in State) (Partial, error)
}

// NodeFunc adapts a plain function to Node.
type NodeFunc func(ctx context.Context, in State) (Partial, error)

// Execute calls f.
func (f NodeFunc) Execute(ctx context.Context, in State) (Partial, error) {
	return f(ctx, in)
}
