package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spetersoncode/gamecraft"
)

const openCriticBaseURL = "https://api.opencritic.com/api"

// ReviewProvider fetches aggregated critic scores from OpenCritic:
// a name search to resolve the game ID, then the game record for its
// scores.
type ReviewProvider struct {
	baseURL    string
	httpClient *http.Client
}

// ReviewOption configures the provider.
type ReviewOption func(*ReviewProvider)

// WithReviewBaseURL overrides the OpenCritic endpoint.
func WithReviewBaseURL(u string) ReviewOption {
	return func(p *ReviewProvider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithReviewHTTPClient overrides the HTTP client.
func WithReviewHTTPClient(c *http.Client) ReviewOption {
	return func(p *ReviewProvider) { p.httpClient = c }
}

// NewReviewProvider creates the OpenCritic-backed review score provider.
func NewReviewProvider(opts ...ReviewOption) *ReviewProvider {
	p := &ReviewProvider{
		baseURL:    openCriticBaseURL,
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Provider = (*ReviewProvider)(nil)

// Name returns the branch slot this provider owns.
func (p *ReviewProvider) Name() string { return "review_scores" }

type openCriticSearchHit struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type openCriticGame struct {
	Name               string  `json:"name"`
	TopCriticScore     float64 `json:"topCriticScore"`
	MedianScore        float64 `json:"medianScore"`
	PercentRecommended float64 `json:"percentRecommended"`
	NumReviews         int     `json:"numReviews"`
	URL                string  `json:"url"`
}

// Fetch resolves the game and returns its aggregated critic scores.
func (p *ReviewProvider) Fetch(ctx context.Context, params gamecraft.Params) (any, error) {
	if params.TargetName == "" {
		return nil, gamecraft.NewError(p.Name(), gamecraft.KindDataNotFound,
			"no game name extracted from query", nil)
	}

	var hits []openCriticSearchHit
	searchURL := p.baseURL + "/game/search?" + url.Values{"criteria": {params.TargetName}}.Encode()
	if err := p.getJSON(ctx, searchURL, &hits); err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, gamecraft.NewError(p.Name(), gamecraft.KindDataNotFound,
			fmt.Sprintf("no critic scores for %q", params.TargetName), nil)
	}

	var game openCriticGame
	if err := p.getJSON(ctx, fmt.Sprintf("%s/game/%d", p.baseURL, hits[0].ID), &game); err != nil {
		return nil, err
	}
	if game.NumReviews == 0 {
		return nil, gamecraft.NewError(p.Name(), gamecraft.KindDataNotFound,
			fmt.Sprintf("%q has no critic reviews yet", game.Name), nil)
	}

	scores := []gamecraft.ReviewScore{
		{
			Outlet:   "OpenCritic (top critics)",
			Score:    fmt.Sprintf("%.0f", game.TopCriticScore),
			MaxScore: "100",
			URL:      game.URL,
			Summary:  fmt.Sprintf("average of %d critic reviews", game.NumReviews),
		},
	}
	if game.MedianScore > 0 {
		scores = append(scores, gamecraft.ReviewScore{
			Outlet:   "OpenCritic (median)",
			Score:    fmt.Sprintf("%.0f", game.MedianScore),
			MaxScore: "100",
			URL:      game.URL,
		})
	}
	if game.PercentRecommended > 0 {
		scores = append(scores, gamecraft.ReviewScore{
			Outlet:   "OpenCritic (recommended)",
			Score:    fmt.Sprintf("%.0f", game.PercentRecommended),
			MaxScore: "100",
			URL:      game.URL,
			Summary:  "share of critics recommending the game",
		})
	}
	return scores, nil
}

func (p *ReviewProvider) getJSON(ctx context.Context, rawURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return gamecraft.AsError(p.Name(), err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return gamecraft.AsError(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(p.Name(), resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return gamecraft.NewError(p.Name(), gamecraft.KindUpstreamUnavailable,
			"undecodable response", err)
	}
	return nil
}
