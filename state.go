package gamecraft

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the state record threaded through a single request. It is
// exclusively owned by the engine for the request's lifetime: nodes
// receive read-only snapshots and return a Delta, and the engine applies
// deltas single-threaded. No locking is needed because nothing writes
// concurrently.
type State struct {
	RequestID string
	CreatedAt time.Time
	RawQuery  string

	// Written exactly once by the classification stage.
	Language    Language
	ContentType ContentType
	Confidence  float64
	Params      Params

	// One slot per research branch; each slot is write-once per attempt.
	BranchResults map[string]any

	Generated         *Script
	RegenerationCount int
	MaxRegenerations  int
	Feedback          []string

	QualityScore  float64
	QualityPassed bool

	Thumbnails []ThumbnailSuggestion
	Warnings   []string

	// Append-only audit trails, written by the engine.
	Errors        []*Error
	ExecutedNodes []string

	// Exactly one is set at terminal state.
	Final    *Output
	Degraded *Output
}

// NewState creates the state record for a request.
func NewState(rawQuery string, maxRegenerations int) *State {
	return &State{
		RequestID:        uuid.NewString(),
		CreatedAt:        time.Now(),
		RawQuery:         rawQuery,
		MaxRegenerations: maxRegenerations,
		BranchResults:    make(map[string]any),
	}
}

// Delta is a partial state update returned by a node. Zero-valued fields
// are left untouched; slice fields append. Nodes must not carry state
// across fields they do not own.
type Delta struct {
	// Classification stage, write-once.
	Language    Language
	ContentType ContentType
	Confidence  *float64
	Params      *Params

	// Branch names the fan-out slot this delta owns; BranchResult is its
	// payload. A node may only ever write its own slot.
	Branch       string
	BranchResult any

	// Generation stage. Regenerated marks this write as a regeneration
	// attempt, counted against MaxRegenerations.
	Generated   *Script
	Regenerated bool
	Feedback    []string

	QualityScore  *float64
	QualityPassed *bool

	Thumbnails []ThumbnailSuggestion
	Warnings   []string

	// Terminal payloads; at most one may ever be set per request.
	Final    *Output
	Degraded *Output
}

// Apply merges a node's delta into the state, enforcing the state
// invariants. A violation returns a ValidationFailed error and leaves
// already-merged fields in place; violations are programming errors in
// node wiring, not runtime conditions worth rolling back for.
func (s *State) Apply(node string, d *Delta) error {
	if d == nil {
		return nil
	}

	if d.Language != "" {
		if s.Language != "" && s.Language != d.Language {
			return NewError(node, KindValidationFailed, "language is immutable after classification", nil)
		}
		s.Language = d.Language
	}
	if d.ContentType != "" {
		if s.ContentType != "" && s.ContentType != d.ContentType {
			return NewError(node, KindValidationFailed, "content type is immutable after classification", nil)
		}
		s.ContentType = d.ContentType
	}
	if d.Confidence != nil {
		s.Confidence = *d.Confidence
	}
	if d.Params != nil {
		s.Params = *d.Params
	}

	if d.Branch != "" {
		if _, taken := s.BranchResults[d.Branch]; taken {
			return NewError(node, KindValidationFailed,
				fmt.Sprintf("branch slot %q already written", d.Branch), nil)
		}
		s.BranchResults[d.Branch] = d.BranchResult
	}

	if d.Regenerated {
		if s.RegenerationCount >= s.MaxRegenerations {
			return NewError(node, KindRegenerationExhausted,
				fmt.Sprintf("regeneration limit %d reached", s.MaxRegenerations), nil)
		}
		s.RegenerationCount++
	}
	if d.Generated != nil {
		s.Generated = d.Generated
	}
	s.Feedback = append(s.Feedback, d.Feedback...)

	if d.QualityScore != nil {
		s.QualityScore = *d.QualityScore
	}
	if d.QualityPassed != nil {
		s.QualityPassed = *d.QualityPassed
	}

	s.Thumbnails = append(s.Thumbnails, d.Thumbnails...)
	s.Warnings = append(s.Warnings, d.Warnings...)

	if d.Final != nil || d.Degraded != nil {
		if s.Final != nil || s.Degraded != nil {
			return NewError(node, KindValidationFailed, "terminal output already set", nil)
		}
		if d.Final != nil && d.Degraded != nil {
			return NewError(node, KindValidationFailed, "node set both final and degraded output", nil)
		}
		s.Final = d.Final
		s.Degraded = d.Degraded
	}

	return nil
}

// Snapshot returns a copy of the state safe to hand to concurrent nodes.
// Container fields are copied; payloads inside BranchResults are shared
// and treated as immutable once written.
func (s *State) Snapshot() *State {
	cp := *s
	cp.BranchResults = make(map[string]any, len(s.BranchResults))
	for k, v := range s.BranchResults {
		cp.BranchResults[k] = v
	}
	cp.Feedback = append([]string(nil), s.Feedback...)
	cp.Thumbnails = append([]ThumbnailSuggestion(nil), s.Thumbnails...)
	cp.Warnings = append([]string(nil), s.Warnings...)
	cp.Errors = append([]*Error(nil), s.Errors...)
	cp.ExecutedNodes = append([]string(nil), s.ExecutedNodes...)
	return &cp
}

// RecordError appends to the ordered error trail. Errors are never cleared.
func (s *State) RecordError(e *Error) {
	s.Errors = append(s.Errors, e)
}

// RecordExecuted appends a node name to the execution audit trail.
// Cache hits are recorded with a marker suffix so observed executions
// and real executions stay distinguishable.
func (s *State) RecordExecuted(name string) {
	s.ExecutedNodes = append(s.ExecutedNodes, name)
}

// Terminal reports whether a terminal payload has been set.
func (s *State) Terminal() bool {
	return s.Final != nil || s.Degraded != nil
}

// Result assembles the caller-facing result from the terminal state.
func (s *State) Result() *Result {
	r := &Result{
		RequestID:      s.RequestID,
		ContentType:    s.ContentType,
		Language:       s.Language,
		Errors:         s.Errors,
		ExecutedNodes:  s.ExecutedNodes,
		ProcessingTime: time.Since(s.CreatedAt),
	}
	switch {
	case s.Final != nil:
		r.Success = true
		r.Output = s.Final
	case s.Degraded != nil:
		r.Degraded = true
		r.Output = s.Degraded
	}
	return r
}
