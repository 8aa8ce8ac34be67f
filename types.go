package gamecraft

import "time"

// ContentType is the classified category of a content request.
type ContentType string

const (
	ContentTypeEvent ContentType = "event"
	ContentTypeGame  ContentType = "game"
)

// Language is the detected language of the request and the generated script.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
)

// Params holds the parameters extracted by classification. Downstream
// nodes treat them as read-only.
type Params struct {
	DurationMinutes int      `json:"duration_minutes"`
	TargetName      string   `json:"target_name,omitempty"` // game name for GAME queries
	SourceURL       string   `json:"source_url,omitempty"`  // event video URL for EVENT queries
	Format          string   `json:"format,omitempty"`      // review, preview, event
	Language        Language `json:"language,omitempty"`    // resolved request language
}

// GameInfo is the metadata payload produced by the game metadata provider.
type GameInfo struct {
	Name        string   `json:"name"`
	Developer   string   `json:"developer,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
	Platforms   []string `json:"platforms,omitempty"`
	Genre       string   `json:"genre,omitempty"`
	Price       float64  `json:"price,omitempty"`
	Description string   `json:"description,omitempty"`
}

// MediaAsset is a single video asset found by the media provider.
type MediaAsset struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	AssetType       string `json:"asset_type"` // trailer, gameplay, interview
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	ChannelName     string `json:"channel_name,omitempty"`
	UploadDate      string `json:"upload_date,omitempty"`
}

// ReviewScore is one outlet's score for a game.
type ReviewScore struct {
	Outlet   string `json:"outlet"`
	Score    string `json:"score"`
	MaxScore string `json:"max_score,omitempty"`
	URL      string `json:"url,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// EventInfo is the payload produced by the event analysis branch.
type EventInfo struct {
	Title          string            `json:"title"`
	VideoURL       string            `json:"video_url"`
	AnnouncedGames []string          `json:"announced_games,omitempty"`
	Highlights     []string          `json:"highlights,omitempty"`
	Timestamps     map[string]string `json:"timestamps,omitempty"`
}

// Script is the generated structured script.
type Script struct {
	Title           string            `json:"title"`
	DurationMinutes int               `json:"duration_minutes"`
	Content         string            `json:"content"`
	Timestamps      map[string]string `json:"timestamps,omitempty"`
	Format          string            `json:"format"`
	Language        Language          `json:"language"`
}

// ThumbnailSuggestion is an auxiliary artifact: a thumbnail concept with
// an image-generation prompt, produced after the script compiles.
type ThumbnailSuggestion struct {
	Style       string   `json:"style"`
	Prompt      string   `json:"prompt"`
	Description string   `json:"description"`
	TargetCTR   string   `json:"target_ctr,omitempty"`
	DesignNotes []string `json:"design_notes,omitempty"`
}

// Output is the compiled artifact: the script plus whatever research data
// survived. A degraded output carries warnings naming what is missing.
type Output struct {
	Script     *Script               `json:"script,omitempty"`
	Game       *GameInfo             `json:"game_info,omitempty"`
	Media      []MediaAsset          `json:"media_assets,omitempty"`
	Reviews    []ReviewScore         `json:"review_scores,omitempty"`
	Event      *EventInfo            `json:"event_info,omitempty"`
	Thumbnails []ThumbnailSuggestion `json:"thumbnails,omitempty"`
	Warnings   []string              `json:"warnings,omitempty"`
}

// Result is what the pipeline hands back to the caller: always either a
// complete or a degraded output together with the ordered error list and
// the execution audit trail, never a bare error.
type Result struct {
	RequestID      string        `json:"request_id"`
	Success        bool          `json:"success"`
	Degraded       bool          `json:"degraded"`
	ContentType    ContentType   `json:"content_type,omitempty"`
	Language       Language      `json:"language,omitempty"`
	Output         *Output       `json:"output,omitempty"`
	Errors         []*Error      `json:"errors,omitempty"`
	ExecutedNodes  []string      `json:"executed_nodes"`
	ProcessingTime time.Duration `json:"processing_time"`
}
