package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spetersoncode/gamecraft"
)

const igdbBaseURL = "https://api.igdb.com/v4"

// MetadataProvider fetches game metadata from IGDB. IGDB uses Twitch
// client-credential auth: a Client-ID header plus a bearer access token.
type MetadataProvider struct {
	clientID    string
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// MetadataOption configures the provider.
type MetadataOption func(*MetadataProvider)

// WithMetadataBaseURL overrides the IGDB endpoint.
func WithMetadataBaseURL(u string) MetadataOption {
	return func(p *MetadataProvider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithMetadataHTTPClient overrides the HTTP client.
func WithMetadataHTTPClient(c *http.Client) MetadataOption {
	return func(p *MetadataProvider) { p.httpClient = c }
}

// NewMetadataProvider creates the IGDB-backed metadata provider.
func NewMetadataProvider(clientID, accessToken string, opts ...MetadataOption) *MetadataProvider {
	p := &MetadataProvider{
		clientID:    clientID,
		accessToken: accessToken,
		baseURL:     igdbBaseURL,
		httpClient:  newHTTPClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Provider = (*MetadataProvider)(nil)

// Name returns the branch slot this provider owns.
func (p *MetadataProvider) Name() string { return "game_metadata" }

// igdbGame is the subset of the IGDB games response the pipeline uses.
type igdbGame struct {
	Name             string `json:"name"`
	Summary          string `json:"summary"`
	FirstReleaseDate int64  `json:"first_release_date"`
	Platforms        []struct {
		Name string `json:"name"`
	} `json:"platforms"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
	InvolvedCompanies []struct {
		Company struct {
			Name string `json:"name"`
		} `json:"company"`
		Developer bool `json:"developer"`
		Publisher bool `json:"publisher"`
	} `json:"involved_companies"`
}

// Fetch looks up the game named in the classified params. A query naming
// no game, or a search with no hits, is DataNotFound.
func (p *MetadataProvider) Fetch(ctx context.Context, params gamecraft.Params) (any, error) {
	if params.TargetName == "" {
		return nil, gamecraft.NewError(p.Name(), gamecraft.KindDataNotFound,
			"no game name extracted from query", nil)
	}

	// IGDB takes an Apicalypse query in the request body.
	query := fmt.Sprintf(`fields name,first_release_date,platforms.name,genres.name,
involved_companies.company.name,involved_companies.developer,
involved_companies.publisher,summary;
search %q;
limit 1;`, params.TargetName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/games", strings.NewReader(query))
	if err != nil {
		return nil, gamecraft.AsError(p.Name(), err)
	}
	req.Header.Set("Client-ID", p.clientID)
	req.Header.Set("Authorization", "Bearer "+p.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, gamecraft.AsError(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(p.Name(), resp.StatusCode)
	}

	var games []igdbGame
	if err := json.NewDecoder(resp.Body).Decode(&games); err != nil {
		return nil, gamecraft.NewError(p.Name(), gamecraft.KindUpstreamUnavailable,
			"undecodable response", err)
	}
	if len(games) == 0 {
		return nil, gamecraft.NewError(p.Name(), gamecraft.KindDataNotFound,
			fmt.Sprintf("no IGDB entry for %q", params.TargetName), nil)
	}

	return toGameInfo(games[0]), nil
}

func toGameInfo(g igdbGame) *gamecraft.GameInfo {
	info := &gamecraft.GameInfo{
		Name:        g.Name,
		Description: g.Summary,
	}
	if g.FirstReleaseDate > 0 {
		info.ReleaseDate = time.Unix(g.FirstReleaseDate, 0).UTC().Format("2006-01-02")
	}
	for _, pl := range g.Platforms {
		info.Platforms = append(info.Platforms, pl.Name)
	}
	if len(g.Genres) > 0 {
		info.Genre = g.Genres[0].Name
	}
	for _, ic := range g.InvolvedCompanies {
		if ic.Developer && info.Developer == "" {
			info.Developer = ic.Company.Name
		}
		if ic.Publisher && info.Publisher == "" {
			info.Publisher = ic.Company.Name
		}
	}
	return info
}
