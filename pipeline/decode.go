package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/graph"
)

// slotEnvelope mirrors the delta fields a research node writes. Branch
// payloads are interface-typed on the delta itself, so cache hits decode
// through this shape to recover the concrete type.
type slotEnvelope struct {
	Branch       string
	BranchResult json.RawMessage
	Warnings     []string
}

// decodeSlot rebuilds a research node's cached delta with its payload
// typed as T.
func decodeSlot[T any]() graph.DecodeFunc {
	return func(raw json.RawMessage) (*gamecraft.Delta, error) {
		var env slotEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode cached slot: %w", err)
		}
		d := &gamecraft.Delta{Branch: env.Branch, Warnings: env.Warnings}
		if len(env.BranchResult) == 0 || string(env.BranchResult) == "null" {
			return d, nil
		}
		var payload T
		if err := json.Unmarshal(env.BranchResult, &payload); err != nil {
			return nil, fmt.Errorf("decode cached %s payload: %w", env.Branch, err)
		}
		d.BranchResult = payload
		return d, nil
	}
}
