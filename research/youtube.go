package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/spetersoncode/gamecraft"
)

const youtubeBaseURL = "https://www.googleapis.com/youtube/v3"

// MediaProvider searches YouTube for trailers and gameplay videos for
// the classified game.
type MediaProvider struct {
	apiKey     string
	baseURL    string
	maxResults int
	language   gamecraft.Language
	httpClient *http.Client
}

// MediaOption configures the provider.
type MediaOption func(*MediaProvider)

// WithMediaBaseURL overrides the YouTube Data API endpoint.
func WithMediaBaseURL(u string) MediaOption {
	return func(p *MediaProvider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithMediaHTTPClient overrides the HTTP client.
func WithMediaHTTPClient(c *http.Client) MediaOption {
	return func(p *MediaProvider) { p.httpClient = c }
}

// WithMediaMaxResults caps the number of assets returned.
func WithMediaMaxResults(n int) MediaOption {
	return func(p *MediaProvider) { p.maxResults = n }
}

// WithMediaLanguage biases search relevance toward the request language.
func WithMediaLanguage(l gamecraft.Language) MediaOption {
	return func(p *MediaProvider) { p.language = l }
}

// NewMediaProvider creates the YouTube-backed media provider.
func NewMediaProvider(apiKey string, opts ...MediaOption) *MediaProvider {
	p := &MediaProvider{
		apiKey:     apiKey,
		baseURL:    youtubeBaseURL,
		maxResults: 5,
		language:   gamecraft.LanguageEnglish,
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Provider = (*MediaProvider)(nil)

// Name returns the branch slot this provider owns.
func (p *MediaProvider) Name() string { return "media_search" }

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

// Fetch searches for trailer and gameplay videos. No hits is DataNotFound.
func (p *MediaProvider) Fetch(ctx context.Context, params gamecraft.Params) (any, error) {
	if params.TargetName == "" {
		return nil, gamecraft.NewError(p.Name(), gamecraft.KindDataNotFound,
			"no game name extracted from query", nil)
	}

	// The classified request language wins over the construction-time
	// default.
	lang := p.language
	if params.Language != "" {
		lang = params.Language
	}
	region, relevance := "US", "en"
	if lang == gamecraft.LanguageFrench {
		region, relevance = "FR", "fr"
	}

	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("q", params.TargetName+" trailer gameplay")
	q.Set("type", "video")
	q.Set("maxResults", strconv.Itoa(p.maxResults))
	q.Set("key", p.apiKey)
	q.Set("regionCode", region)
	q.Set("relevanceLanguage", relevance)

	var out youtubeSearchResponse
	if err := p.getJSON(ctx, p.baseURL+"/search?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, gamecraft.NewError(p.Name(), gamecraft.KindDataNotFound,
			fmt.Sprintf("no videos found for %q", params.TargetName), nil)
	}

	assets := make([]gamecraft.MediaAsset, 0, len(out.Items))
	for _, item := range out.Items {
		assets = append(assets, gamecraft.MediaAsset{
			Title:       item.Snippet.Title,
			URL:         "https://www.youtube.com/watch?v=" + item.ID.VideoID,
			AssetType:   assetType(item.Snippet.Title),
			ChannelName: item.Snippet.ChannelTitle,
			UploadDate:  item.Snippet.PublishedAt,
		})
	}
	return assets, nil
}

// VideoInfo is the detail payload for a single video, used by event
// analysis.
type VideoInfo struct {
	ID              string
	Title           string
	Description     string
	ChannelName     string
	UploadDate      string
	DurationSeconds int
}

type youtubeVideosResponse struct {
	Items []struct {
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// VideoDetails fetches metadata for one video by URL.
func (p *MediaProvider) VideoDetails(ctx context.Context, videoURL string) (*VideoInfo, error) {
	id := ExtractVideoID(videoURL)
	if id == "" {
		return nil, gamecraft.NewError(p.Name(), gamecraft.KindValidationFailed,
			fmt.Sprintf("not a YouTube video URL: %s", videoURL), nil)
	}

	q := url.Values{}
	q.Set("part", "snippet,contentDetails")
	q.Set("id", id)
	q.Set("key", p.apiKey)

	var out youtubeVideosResponse
	if err := p.getJSON(ctx, p.baseURL+"/videos?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, gamecraft.NewError(p.Name(), gamecraft.KindDataNotFound,
			fmt.Sprintf("video %s not found", id), nil)
	}

	item := out.Items[0]
	return &VideoInfo{
		ID:              id,
		Title:           item.Snippet.Title,
		Description:     item.Snippet.Description,
		ChannelName:     item.Snippet.ChannelTitle,
		UploadDate:      item.Snippet.PublishedAt,
		DurationSeconds: parseISODuration(item.ContentDetails.Duration),
	}, nil
}

func (p *MediaProvider) getJSON(ctx context.Context, rawURL string, dest any) error {
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

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([^&]+)`),
	regexp.MustCompile(`youtu\.be/([^?]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^?]+)`),
}

// ExtractVideoID pulls the video ID out of the common YouTube URL forms.
// Returns "" when the URL does not reference a video.
func ExtractVideoID(rawURL string) string {
	for _, pat := range videoIDPatterns {
		if m := pat.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODuration converts the API's PT15M33S form to seconds.
func parseISODuration(s string) int {
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	return h*3600 + min*60 + sec
}

// assetType guesses the asset category from the video title.
func assetType(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "trailer"):
		return "trailer"
	case strings.Contains(lower, "interview"):
		return "interview"
	default:
		return "gameplay"
	}
}
