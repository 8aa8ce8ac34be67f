package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/cache"
	"github.com/spetersoncode/gamecraft/retry"
)

// Engine drives a validated graph from entry to terminal for one request
// at a time. It owns every state mutation: nodes see snapshots and the
// engine applies their deltas single-threaded.
type Engine struct {
	graph  *Graph
	gw     *cache.Gateway
	logger *slog.Logger
	budget time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache attaches the cache gateway consulted before cacheable nodes.
func WithCache(gw *cache.Gateway) Option {
	return func(e *Engine) { e.gw = gw }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithBudget sets the global wall-clock budget for a whole request.
// A breach fails fast into the error-handler path with BudgetExceeded.
func WithBudget(d time.Duration) Option {
	return func(e *Engine) { e.budget = d }
}

// New creates an engine over a built graph.
func New(g *Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:  g,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the graph against the state until a terminal is reached.
// Node failures are recorded on the state and routed to the error
// handler; Run itself only returns an error when the graph cannot make
// progress at all (no error handler, or a failure inside the handler
// chain).
func (e *Engine) Run(ctx context.Context, state *gamecraft.State) error {
	runCtx := ctx
	if e.budget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.budget)
		defer cancel()
	}

	logger := e.logger.With("request_id", state.RequestID)
	current := e.graph.entry
	failing := false
	stepCtx := runCtx

	for current != End {
		if !failing && e.breached(ctx, runCtx) {
			budgetErr := gamecraft.NewError("", gamecraft.KindBudgetExceeded,
				fmt.Sprintf("global budget %s exceeded", e.budget), runCtx.Err())
			state.RecordError(budgetErr)
			logger.Warn("budget exceeded, failing over", "at", current)
			next, err := e.failover(current, budgetErr)
			if err != nil {
				return err
			}
			current = next
			failing = true
			// The handler chain still has to compile a terminal payload
			// after the budget is gone.
			stepCtx = context.WithoutCancel(ctx)
			continue
		}

		if members, isGroup := e.graph.groups[current]; isGroup {
			e.runGroup(stepCtx, logger, current, members, state)
		} else {
			node := e.graph.nodes[current]
			delta, cached, err := e.execute(stepCtx, logger, node, state.Snapshot())
			if err == nil {
				err = state.Apply(node.Name, delta)
			}
			if err != nil {
				classified := gamecraft.AsError(node.Name, err)
				state.RecordError(classified)
				logger.Warn("node failed", "node", node.Name, "kind", classified.Kind, "err", classified)
				if failing {
					return classified
				}
				if e.breached(ctx, runCtx) {
					// Budget died under the node; record the breach and
					// detach the handler chain from the spent deadline.
					state.RecordError(gamecraft.NewError(node.Name, gamecraft.KindBudgetExceeded,
						fmt.Sprintf("global budget %s exceeded", e.budget), runCtx.Err()))
					stepCtx = context.WithoutCancel(ctx)
				}
				next, ferr := e.failover(current, classified)
				if ferr != nil {
					return ferr
				}
				current = next
				failing = true
				continue
			}
			name := node.Name
			if cached {
				name += " (cached)"
			}
			state.RecordExecuted(name)
		}

		next, err := e.next(current, state)
		if err != nil {
			classified := gamecraft.AsError(current, err)
			state.RecordError(classified)
			if failing {
				return classified
			}
			var ferr error
			next, ferr = e.failover(current, classified)
			if ferr != nil {
				return ferr
			}
			failing = true
		}
		current = next
	}

	return nil
}

// breached reports whether the run deadline expired on its own, as
// opposed to the caller cancelling the whole request.
func (e *Engine) breached(ctx, runCtx context.Context) bool {
	return e.budget > 0 && runCtx.Err() != nil && ctx.Err() == nil
}

// failover picks the error-handler node, or gives up when there is none
// or the failure happened inside the handler chain itself.
func (e *Engine) failover(current string, cause error) (string, error) {
	handler := e.graph.errorHandler
	if handler == "" || handler == current {
		return "", cause
	}
	return handler, nil
}

// next resolves the outgoing edge of current. A conditional decision
// returning an undeclared candidate is a validation failure.
func (e *Engine) next(current string, state *gamecraft.State) (string, error) {
	edge := e.graph.edges[current]
	if edge.decide == nil {
		return edge.to, nil
	}
	target := edge.decide(state)
	if _, ok := edge.candidates[target]; !ok {
		return "", gamecraft.NewError(current, gamecraft.KindValidationFailed,
			fmt.Sprintf("decision returned undeclared target %q", target), nil)
	}
	return target, nil
}

// execute runs one node against a snapshot: cache short-circuit, bounded
// attempt(s) per the node's retry policy, then the declared fallback.
// It never touches live state; callers apply the returned delta.
func (e *Engine) execute(ctx context.Context, logger *slog.Logger, node *Node, snap *gamecraft.State) (delta *gamecraft.Delta, cached bool, err error) {
	var key string
	if node.CacheKey != nil && e.gw != nil {
		key = node.CacheKey(snap)
	}

	if key != "" {
		var raw json.RawMessage
		hit, cerr := e.gw.Get(ctx, node.Category, key, &raw)
		if cerr != nil {
			logger.Warn("cache read failed", "node", node.Name, "err", cerr)
		} else if hit {
			d, derr := e.decode(node, raw)
			if derr == nil {
				logger.Debug("cache hit", "node", node.Name, "key", key)
				return d, true, nil
			}
			logger.Warn("cache entry undecodable, re-running node", "node", node.Name, "err", derr)
		}
	}

	cfg := node.Retry
	if cfg.MaxAttempts <= 0 {
		cfg = retry.Disabled()
	}

	started := time.Now()
	delta, err = retry.Do(ctx, cfg, func() (*gamecraft.Delta, error) {
		return e.attempt(ctx, node, node.Run, snap)
	})

	fellBack := false
	if err != nil && node.Fallback != nil {
		logger.Info("trying fallback", "node", node.Name, "cause", err)
		if d, ferr := e.attempt(ctx, node, node.Fallback, snap); ferr == nil {
			if d == nil {
				d = &gamecraft.Delta{}
			}
			d.Warnings = append(d.Warnings,
				fmt.Sprintf("%s: served fallback after: %v", node.Name, err))
			delta, err = d, nil
			fellBack = true
		}
	}
	if err != nil {
		return nil, false, err
	}

	logger.Debug("node done", "node", node.Name, "took", time.Since(started))

	// Only real node output is written through. A fallback delta is a
	// degraded substitute; caching it would mask the recovered upstream
	// for the whole category TTL.
	if key != "" && !fellBack {
		if perr := e.gw.Put(ctx, node.Category, key, delta); perr != nil {
			logger.Warn("cache write failed", "node", node.Name, "err", perr)
		}
	}
	return delta, false, nil
}

// attempt runs one bounded invocation of fn. The node is raced against
// its own timeout so a stuck collaborator surfaces as a timeout error,
// and a panicking node surfaces as an error instead of killing the run.
func (e *Engine) attempt(ctx context.Context, node *Node, fn RunFunc, snap *gamecraft.State) (*gamecraft.Delta, error) {
	nodeCtx := ctx
	if node.Timeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, node.Timeout)
		defer cancel()
	}

	type outcome struct {
		delta *gamecraft.Delta
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: gamecraft.NewError(node.Name, gamecraft.KindValidationFailed,
					fmt.Sprintf("node panicked: %v", r), nil)}
			}
		}()
		d, err := fn(nodeCtx, snap)
		done <- outcome{delta: d, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, gamecraft.AsError(node.Name, out.err)
		}
		return out.delta, nil
	case <-nodeCtx.Done():
		return nil, gamecraft.NewError(node.Name, gamecraft.KindTimeout,
			fmt.Sprintf("timed out after %s", node.Timeout), nodeCtx.Err())
	}
}

// decode rebuilds a cached delta.
func (e *Engine) decode(node *Node, raw json.RawMessage) (*gamecraft.Delta, error) {
	if node.Decode != nil {
		return node.Decode(raw)
	}
	var d gamecraft.Delta
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
