package gamecraft

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies pipeline errors by how they should be handled.
// The taxonomy is closed: every error surfaced by a node is mapped to
// exactly one kind before it reaches the engine.
type Kind string

const (
	// KindClassificationAmbiguous means the query could not be classified
	// with enough confidence to route. Terminal-fatal: no content branch
	// may run and no degraded output is possible.
	KindClassificationAmbiguous Kind = "classification_ambiguous"

	// KindUpstreamUnavailable means an external collaborator could not be
	// reached or returned a server error.
	KindUpstreamUnavailable Kind = "upstream_unavailable"

	// KindUpstreamRateLimited means an external collaborator rejected the
	// call due to rate limiting.
	KindUpstreamRateLimited Kind = "upstream_rate_limited"

	// KindDataNotFound means the lookup succeeded but the requested
	// entity does not exist (unknown game, no trailers, no reviews).
	KindDataNotFound Kind = "data_not_found"

	// KindTimeout means a node exceeded its declared timeout or its
	// context was cancelled.
	KindTimeout Kind = "timeout"

	// KindValidationFailed means a node produced output that violates a
	// state invariant or a routing contract.
	KindValidationFailed Kind = "validation_failed"

	// KindRegenerationExhausted means the quality gate requested more
	// regenerations than the configured maximum allows.
	KindRegenerationExhausted Kind = "regeneration_exhausted"

	// KindBudgetExceeded means the global wall-clock budget for the whole
	// request was breached. Terminal-fatal.
	KindBudgetExceeded Kind = "budget_exceeded"
)

// Error is a classified pipeline error. It records which node raised it
// so the caller's error list reads as an ordered audit of what failed.
type Error struct {
	Node  string // node that raised the error, "" if raised by the engine
	Kind  Kind
	Msg   string
	Cause error
}

// Error returns the error message.
func (e *Error) Error() string {
	prefix := "gamecraft"
	if e.Node != "" {
		prefix = fmt.Sprintf("gamecraft: node %q", e.Node)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Cause }

// Recoverable reports whether the request can continue toward a degraded
// output after this error. Only ambiguous classification and budget
// breaches are fatal to the whole request.
func (e *Error) Recoverable() bool {
	return e.Kind != KindClassificationAmbiguous && e.Kind != KindBudgetExceeded
}

// Retryable reports whether re-running the node may resolve the error.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindUpstreamUnavailable, KindUpstreamRateLimited:
		return true
	}
	return false
}

// NewError creates a classified error raised by the named node.
func NewError(node string, kind Kind, msg string, cause error) *Error {
	return &Error{Node: node, Kind: kind, Msg: msg, Cause: cause}
}

// KindOf extracts the taxonomy kind from err. Errors that carry no
// classification are treated as upstream failures so they stay
// node-local-recoverable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUpstreamUnavailable
}

// AsError normalizes err into a *Error attributed to node. Already
// classified errors keep their kind; the node attribution is filled in
// if missing.
func AsError(node string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		if e.Node == "" {
			return &Error{Node: node, Kind: e.Kind, Msg: e.Msg, Cause: e.Cause}
		}
		return e
	}
	return NewError(node, KindOf(err), err.Error(), err)
}

// IsRetryable reports whether err may resolve on retry.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}
