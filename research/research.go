// Package research holds the data-gathering collaborators behind the
// parallel research branches: game metadata (IGDB), critic review scores
// (OpenCritic), trailer search (YouTube Data API) and event video
// analysis. Each provider maps its upstream's failure modes onto the
// pipeline error taxonomy so retry and fallback policy stays uniform.
package research

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spetersoncode/gamecraft"
)

// Provider is one research branch. Fetch returns the branch's typed
// payload; the pipeline stores it in the matching branch slot.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, params gamecraft.Params) (any, error)
}

const defaultHTTPTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// statusError maps an upstream HTTP status onto the error taxonomy.
func statusError(node string, status int) *gamecraft.Error {
	msg := fmt.Sprintf("upstream returned %d", status)
	switch {
	case status == http.StatusTooManyRequests:
		return gamecraft.NewError(node, gamecraft.KindUpstreamRateLimited, msg, nil)
	case status == http.StatusNotFound:
		return gamecraft.NewError(node, gamecraft.KindDataNotFound, msg, nil)
	case status >= 500:
		return gamecraft.NewError(node, gamecraft.KindUpstreamUnavailable, msg, nil)
	default:
		return gamecraft.NewError(node, gamecraft.KindUpstreamUnavailable, msg, nil)
	}
}
