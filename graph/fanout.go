package graph

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/spetersoncode/gamecraft"
)

// runGroup executes a parallel fan-out group: one immutable snapshot, all
// members launched concurrently under their own timeouts, and no sibling
// cancellation when one fails. A failed or timed-out member contributes
// an error entry and an absent slot, never an abort of the group. Merge
// order is fixed by slot name regardless of completion order, so the
// merged state is reproducible.
func (e *Engine) runGroup(ctx context.Context, logger *slog.Logger, name string, members []string, state *gamecraft.State) {
	snap := state.Snapshot()

	type settled struct {
		delta  *gamecraft.Delta
		cached bool
		err    error
	}

	started := time.Now()
	outcomes := make([]settled, len(members))
	var wg sync.WaitGroup
	for i, member := range members {
		node := e.graph.nodes[member]
		wg.Add(1)
		go func(i int, node *Node) {
			defer wg.Done()
			delta, cached, err := e.execute(ctx, logger, node, snap)
			outcomes[i] = settled{delta: delta, cached: cached, err: err}
		}(i, node)
	}
	wg.Wait()

	// Deterministic fan-in: apply settled slots in name order.
	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return members[order[a]] < members[order[b]] })

	for _, i := range order {
		member, out := members[i], outcomes[i]
		if out.err != nil {
			classified := gamecraft.AsError(member, out.err)
			state.RecordError(classified)
			logger.Warn("fan-out member failed", "group", name, "node", member,
				"kind", classified.Kind, "err", classified)
			continue
		}
		if err := state.Apply(member, out.delta); err != nil {
			state.RecordError(gamecraft.AsError(member, err))
			continue
		}
		executed := member
		if out.cached {
			executed += " (cached)"
		}
		state.RecordExecuted(executed)
	}

	logger.Debug("fan-out settled", "group", name, "members", len(members), "took", time.Since(started))
}
