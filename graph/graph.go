// Package graph implements the workflow orchestration engine: a node
// registry plus an edge table driven from a single entry node to a
// terminal, with conditional routing, parallel fan-out groups, per-node
// timeouts and retries, cache short-circuiting, and a global wall-clock
// budget.
//
// The graph is fully enumerable: every node, group, edge, and
// conditional-edge candidate is declared up front and validated by
// [Builder.Build]. Routing surprises are build-time errors, not runtime
// ones.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/cache"
	"github.com/spetersoncode/gamecraft/retry"
)

// End is the terminal target. An edge pointing at End finishes the run.
const End = "END"

// RunFunc executes a node against a read-only state snapshot and returns
// a partial update. It must not mutate the snapshot.
type RunFunc func(ctx context.Context, s *gamecraft.State) (*gamecraft.Delta, error)

// KeyFunc derives a node's cache key from the snapshot. Returning ""
// skips the cache for that invocation.
type KeyFunc func(s *gamecraft.State) string

// DecodeFunc rebuilds a node's typed delta from its cached JSON form.
type DecodeFunc func(raw json.RawMessage) (*gamecraft.Delta, error)

// DecideFunc selects the next node, group, or End from the current
// state. The returned name must be one of the candidates declared on the
// conditional edge.
type DecideFunc func(s *gamecraft.State) string

// Node is the unit of pipeline work. Side effects are confined to Run;
// the engine owns all state mutation by applying the returned delta.
type Node struct {
	// Name uniquely identifies the node; it doubles as the fan-out slot
	// name when the node runs inside a parallel group.
	Name string

	// Run does the work.
	Run RunFunc

	// Fallback, when set, is tried once after Run's retries are
	// exhausted. A successful fallback downgrades the failure to a
	// warning instead of an error-path transition.
	Fallback RunFunc

	// CacheKey makes the node cacheable; nil means never cached.
	CacheKey KeyFunc

	// Category selects the cache TTL class for this node's results.
	Category cache.Category

	// Decode rebuilds the typed delta on a cache hit. When nil the
	// cached delta is unmarshaled generically, which is only safe for
	// deltas that carry no interface-typed payloads.
	Decode DecodeFunc

	// Timeout bounds one Run attempt. Zero means no per-node timeout.
	Timeout time.Duration

	// Retry is the node's retry policy; the zero value means a single
	// attempt. Only errors the taxonomy marks retryable are retried.
	Retry retry.Config
}

// Build-time validation errors.
var (
	ErrNoEntry        = errors.New("graph: no entry node declared")
	ErrDuplicateNode  = errors.New("graph: duplicate node name")
	ErrUnknownTarget  = errors.New("graph: edge references unknown target")
	ErrDanglingNode   = errors.New("graph: node has no outgoing edge")
	ErrDuplicateEdge  = errors.New("graph: node already has an outgoing edge")
	ErrEmptyGroup     = errors.New("graph: parallel group has no members")
	ErrGroupedEdge    = errors.New("graph: group member cannot have its own edge")
	ErrMissingHandler = errors.New("graph: error handler not registered")
)

type edge struct {
	to         string              // unconditional target
	decide     DecideFunc          // conditional decision, nil for unconditional
	candidates map[string]struct{} // declared candidate set for decide
}

// Graph is a validated, immutable node registry and edge table.
type Graph struct {
	nodes        map[string]*Node
	groups       map[string][]string
	edges        map[string]edge
	entry        string
	errorHandler string
}

// Builder accumulates nodes and edges and validates the whole graph at
// Build time.
type Builder struct {
	graph *Graph
	errs  []error
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{
		graph: &Graph{
			nodes:  make(map[string]*Node),
			groups: make(map[string][]string),
			edges:  make(map[string]edge),
		},
	}
}

// AddNode registers a node.
func (b *Builder) AddNode(n *Node) *Builder {
	if n.Name == "" || n.Name == End {
		b.errs = append(b.errs, fmt.Errorf("graph: invalid node name %q", n.Name))
		return b
	}
	if _, exists := b.graph.nodes[n.Name]; exists {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrDuplicateNode, n.Name))
		return b
	}
	if _, exists := b.graph.groups[n.Name]; exists {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrDuplicateNode, n.Name))
		return b
	}
	b.graph.nodes[n.Name] = n
	return b
}

// AddGroup declares a parallel fan-out group. Members must be registered
// nodes; the group itself is addressable in edges under its own name.
// Slot identity is the member node name, so a slot collision is exactly
// a duplicate node name and is rejected by AddNode.
func (b *Builder) AddGroup(name string, members ...string) *Builder {
	if name == "" || name == End {
		b.errs = append(b.errs, fmt.Errorf("graph: invalid group name %q", name))
		return b
	}
	if _, exists := b.graph.nodes[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrDuplicateNode, name))
		return b
	}
	if _, exists := b.graph.groups[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrDuplicateNode, name))
		return b
	}
	if len(members) == 0 {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrEmptyGroup, name))
		return b
	}
	b.graph.groups[name] = members
	return b
}

// AddEdge declares an unconditional edge taken after from completes.
func (b *Builder) AddEdge(from, to string) *Builder {
	if _, exists := b.graph.edges[from]; exists {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrDuplicateEdge, from))
		return b
	}
	b.graph.edges[from] = edge{to: to}
	return b
}

// AddConditionalEdge declares a conditional edge: after from completes,
// decide selects the next target from the declared candidate set.
func (b *Builder) AddConditionalEdge(from string, decide DecideFunc, candidates ...string) *Builder {
	if _, exists := b.graph.edges[from]; exists {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrDuplicateEdge, from))
		return b
	}
	set := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		set[c] = struct{}{}
	}
	b.graph.edges[from] = edge{decide: decide, candidates: set}
	return b
}

// SetEntry declares the single entry node.
func (b *Builder) SetEntry(name string) *Builder {
	b.graph.entry = name
	return b
}

// SetErrorHandler names the node that receives control when a node fails
// non-retryably outside a fan-out group.
func (b *Builder) SetErrorHandler(name string) *Builder {
	b.graph.errorHandler = name
	return b
}

// Build validates the accumulated graph and returns it. All structural
// mistakes surface here, before any request runs.
func (b *Builder) Build() (*Graph, error) {
	errs := append([]error(nil), b.errs...)
	g := b.graph

	known := func(name string) bool {
		if name == End {
			return true
		}
		if _, ok := g.nodes[name]; ok {
			return true
		}
		_, ok := g.groups[name]
		return ok
	}

	if g.entry == "" {
		errs = append(errs, ErrNoEntry)
	} else if !known(g.entry) || g.entry == End {
		errs = append(errs, fmt.Errorf("%w: entry %q", ErrUnknownTarget, g.entry))
	}

	if g.errorHandler != "" {
		if _, ok := g.nodes[g.errorHandler]; !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrMissingHandler, g.errorHandler))
		}
	}

	grouped := make(map[string]string)
	for name, members := range g.groups {
		for _, m := range members {
			if _, ok := g.nodes[m]; !ok {
				errs = append(errs, fmt.Errorf("%w: group %q member %q", ErrUnknownTarget, name, m))
				continue
			}
			grouped[m] = name
		}
	}

	for from, e := range g.edges {
		if !known(from) || from == End {
			errs = append(errs, fmt.Errorf("%w: edge from %q", ErrUnknownTarget, from))
		}
		if e.decide == nil {
			if !known(e.to) {
				errs = append(errs, fmt.Errorf("%w: edge %q -> %q", ErrUnknownTarget, from, e.to))
			}
		} else {
			for c := range e.candidates {
				if !known(c) {
					errs = append(errs, fmt.Errorf("%w: conditional edge from %q candidate %q", ErrUnknownTarget, from, c))
				}
			}
		}
	}

	// Group members route through their group; their own edges would be
	// dead table entries at best and ambiguous at worst.
	for m, group := range grouped {
		if _, hasEdge := g.edges[m]; hasEdge {
			errs = append(errs, fmt.Errorf("%w: %q in group %q", ErrGroupedEdge, m, group))
		}
	}

	// Every routable name needs somewhere to go.
	for name := range g.nodes {
		if _, inGroup := grouped[name]; inGroup {
			continue
		}
		if _, ok := g.edges[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDanglingNode, name))
		}
	}
	for name := range g.groups {
		if _, ok := g.edges[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: group %q", ErrDanglingNode, name))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

// Entry returns the declared entry node name.
func (g *Graph) Entry() string { return g.entry }
