// Package gamecraft defines the shared domain model for the content
// pipeline: the state record threaded through every pipeline node, the
// partial-update delta that nodes return, the error taxonomy used for
// retry and fallback decisions, and the structured artifact types
// (scripts, research payloads, thumbnail suggestions).
//
// The orchestration engine itself lives in the graph package; the
// assembled production pipeline lives in the pipeline package.
//
// # State Model
//
// Each request owns exactly one [State]. Nodes never mutate the state
// they are given; they receive a snapshot and return a [Delta], which
// the engine applies single-threaded. This keeps fan-out merging
// deterministic and makes the write-once invariants (classification
// fields, branch slots) enforceable in one place:
//
//	delta := &gamecraft.Delta{Branch: "game_metadata", BranchResult: info}
//	if err := state.Apply("game_metadata", delta); err != nil {
//	    // invariant violation, surfaces as ValidationFailed
//	}
//
// # Errors
//
// Every failure inside the pipeline is a [*Error] with a [Kind] from a
// closed taxonomy. Kinds decide everything downstream: whether the node
// is retried, whether a fallback strategy may run, and whether the
// request can still degrade gracefully instead of failing outright.
package gamecraft
