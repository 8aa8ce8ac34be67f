package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/llm"
)

// VideoLookup is the slice of the media provider that event analysis
// needs: resolving one video URL to its metadata.
type VideoLookup interface {
	VideoDetails(ctx context.Context, videoURL string) (*VideoInfo, error)
}

// EventAnalyzer is the EVENT branch: it resolves the referenced video
// and has the model extract announced games, highlights and timestamps
// from the video metadata.
type EventAnalyzer struct {
	videos VideoLookup
	client llm.Client
	opts   []llm.Option
}

// NewEventAnalyzer creates the analyzer.
func NewEventAnalyzer(videos VideoLookup, client llm.Client, opts ...llm.Option) *EventAnalyzer {
	return &EventAnalyzer{videos: videos, client: client, opts: opts}
}

var _ Provider = (*EventAnalyzer)(nil)

// Name returns the branch slot this provider owns.
func (a *EventAnalyzer) Name() string { return "event_analysis" }

const eventPrompt = `You analyze gaming event videos (showcases, directs, conferences).
From the video title and description below, extract a single JSON object:

{
  "announced_games": [string],   // game titles announced or shown
  "highlights": [string],        // up to 5 key moments or announcements
  "timestamps": {string: string} // "MM:SS" -> short label, from the description's chapter list if present
}

Respond with the JSON object only.`

type eventAnalysis struct {
	AnnouncedGames []string          `json:"announced_games"`
	Highlights     []string          `json:"highlights"`
	Timestamps     map[string]string `json:"timestamps"`
}

// Fetch resolves the event video and analyzes it. A request without a
// video URL is DataNotFound; the generation stage can still write an
// event script from the raw query when this slot is absent.
func (a *EventAnalyzer) Fetch(ctx context.Context, params gamecraft.Params) (any, error) {
	if params.SourceURL == "" {
		return nil, gamecraft.NewError(a.Name(), gamecraft.KindDataNotFound,
			"no video URL found for event analysis", nil)
	}

	info, err := a.videos.VideoDetails(ctx, params.SourceURL)
	if err != nil {
		return nil, gamecraft.AsError(a.Name(), err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: eventPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Title: %s\n\nDescription:\n%s", info.Title, info.Description)},
	}
	opts := append([]llm.Option{llm.WithJSONResponse(), llm.WithMaxTokens(600)}, a.opts...)
	resp, err := a.client.Complete(ctx, messages, opts...)
	if err != nil {
		return nil, gamecraft.AsError(a.Name(), err)
	}

	var analysis eventAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &analysis); err != nil {
		// The video metadata alone still makes a usable event payload.
		analysis = eventAnalysis{}
	}
	if len(analysis.Highlights) > 5 {
		analysis.Highlights = analysis.Highlights[:5]
	}

	return &gamecraft.EventInfo{
		Title:          info.Title,
		VideoURL:       params.SourceURL,
		AnnouncedGames: analysis.AnnouncedGames,
		Highlights:     analysis.Highlights,
		Timestamps:     analysis.Timestamps,
	}, nil
}
