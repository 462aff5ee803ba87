package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"stock-analyst/internal/logger"
	"stock-analyst/internal/trace"
)

// Result is the outcome of one run.
type Result struct {
	RunID string
	// State is the accumulated state: every node's partial, with the primary terminal
	// applied last.
	State State
	// Output is the primary terminal's own partial.
	Output Partial
}

type runConfig struct {
	runID          string
	maxConcurrency int64
}

// RunOption tunes a single run.
type RunOption func(*runConfig)

// WithMaxConcurrency bounds how many nodes execute at the same time. Zero means unbounded.
func WithMaxConcurrency(n int) RunOption {
	return func(c *runConfig) {
		c.maxConcurrency = int64(n)
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// run holds the bookkeeping of one execution. mu guards remaining, lineages and partials;
// a node's lineage and partial are written once, before any successor is dispatched.
type run struct {
	g       *Graph
	id      string
	initial State
	sem     *semaphore.Weighted

	mu        sync.Mutex
	remaining []int
	lineages  [][]string
	partials  map[string]Partial
	done      int
}

// Run executes the graph from its entry with initial as the entry's input.
//
// Every node is dispatched exactly once, after all its predecessors completed. A join's
// input is the union of its predecessors' states merged in predecessor registration order,
// so last-write-wins collisions do not depend on completion order. The first node error
// cancels the run's context and is returned.
func (g *Graph) Run(ctx context.Context, initial State, opts ...RunOption) (*Result, error) {
	cfg := runConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}

	op := logger.StartOperation(ctx, "graph.Run", "run_id", cfg.runID, "entry", g.entry.name, "nodes", len(g.nodes))
	ctx = op.Context()

	r := &run{
		g:         g,
		id:        cfg.runID,
		initial:   initial.Clone(),
		remaining: make([]int, len(g.nodes)),
		lineages:  make([][]string, len(g.nodes)),
		partials:  make(map[string]Partial, len(g.nodes)),
	}
	if cfg.maxConcurrency > 0 {
		r.sem = semaphore.NewWeighted(cfg.maxConcurrency)
	}
	for _, v := range g.nodes {
		r.remaining[v.idx] = len(v.preds)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	r.dispatch(egCtx, eg, g.entry, r.initial.Clone())
	if err := eg.Wait(); err != nil {
		op.EndWithError(err)
		return nil, err
	}
	if r.done != len(g.nodes) {
		// Unreachable for a validated graph; guards against a broken counter.
		err := fmt.Errorf("graph run %s finished with %d of %d nodes executed", r.id, r.done, len(g.nodes))
		op.EndWithError(err)
		return nil, err
	}

	final := r.finalState()
	op.End("executed", r.done)
	return &Result{
		RunID:  r.id,
		State:  final,
		Output: r.partials[g.primary.name],
	}, nil
}

func (r *run) dispatch(ctx context.Context, eg *errgroup.Group, v *vertex, in State) {
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.sem != nil {
			if err := r.sem.Acquire(ctx, 1); err != nil {
				return err
			}
		}
		partial, err := r.execute(ctx, v, in)
		if r.sem != nil {
			r.sem.Release(1)
		}
		if err != nil {
			return err
		}
		return r.complete(ctx, eg, v, in, partial)
	})
}

func (r *run) execute(ctx context.Context, v *vertex, in State) (out Partial, err error) {
	ctx, span := trace.StartSpan(ctx, "graph.node/"+v.name, oteltrace.WithAttributes(
		attribute.String("run_id", r.id),
		attribute.String("node", v.name),
	))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err = &NodeError{Node: v.name, Err: fmt.Errorf("panic: %v", rec)}
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	start := time.Now()
	out, err = v.node.Execute(ctx, in)
	if err != nil {
		var nodeErr *NodeError
		if !errors.As(err, &nodeErr) {
			err = &NodeError{Node: v.name, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Partial{}, err
	}
	logger.Debug(ctx, "Node completed",
		"run_id", r.id,
		"node", v.name,
		"messages", len(out.Messages),
		"keys", len(out.Data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out.tagged(v.name), nil
}

// complete records v's output and dispatches every successor whose last predecessor was v.
// Counter updates and join-input construction happen under one lock, so each join sees a
// consistent set of predecessor outputs.
func (r *run) complete(ctx context.Context, eg *errgroup.Group, v *vertex, in State, p Partial) error {
	lineage := make([]string, 0, len(in.Lineage)+1)
	lineage = append(lineage, in.Lineage...)
	lineage = append(lineage, v.name)

	type ready struct {
		v  *vertex
		in State
	}
	var next []ready

	r.mu.Lock()
	r.partials[v.name] = p
	r.lineages[v.idx] = lineage
	r.done++
	for _, s := range v.succs {
		r.remaining[s.idx]--
		if r.remaining[s.idx] == 0 {
			next = append(next, ready{v: s, in: r.mergeLocked(s.preds)})
		}
	}
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	for _, n := range next {
		r.dispatch(ctx, eg, n.v, n.in)
	}
	return nil
}

// mergeLocked rebuilds the state seen after all of sources ran: the initial state plus every
// partial in their combined lineage, walked source by source in the given order.
func (r *run) mergeLocked(sources []*vertex) State {
	st := r.initial.Clone()
	applied := make(map[string]struct{}, len(r.g.nodes))
	for _, name := range st.Lineage {
		applied[name] = struct{}{}
	}
	for _, src := range sources {
		for _, name := range r.lineages[src.idx] {
			if _, ok := applied[name]; ok {
				continue
			}
			applied[name] = struct{}{}
			st.absorb(name, r.partials[name])
		}
	}
	return st
}

func (r *run) finalState() State {
	sources := make([]*vertex, 0, len(r.g.terminals))
	for _, t := range r.g.terminals {
		if t != r.g.primary {
			sources = append(sources, t)
		}
	}
	sources = append(sources, r.g.primary)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mergeLocked(sources)
}
