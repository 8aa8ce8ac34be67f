// Package generate turns merged research data into a structured script:
// template-assembled prompts per content branch and format, a reformat-only
// enhancer for the quality gate's ENHANCE decision, and a thumbnail coach
// that suggests concepts after the script compiles.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/llm"
)

// Request carries everything the writer needs for one script.
type Request struct {
	Query           string
	ContentType     gamecraft.ContentType
	Language        gamecraft.Language
	Format          string
	DurationMinutes int

	Game    *gamecraft.GameInfo
	Reviews []gamecraft.ReviewScore
	Media   []gamecraft.MediaAsset
	Event   *gamecraft.EventInfo

	// Feedback accumulates quality-gate rejections across regeneration
	// attempts; each entry must be addressed by the next draft.
	Feedback []string
}

// Writer produces a script from a request.
type Writer interface {
	Write(ctx context.Context, req Request) (*gamecraft.Script, error)
}

// ScriptWriter is the LLM-backed Writer.
type ScriptWriter struct {
	client llm.Client
	opts   []llm.Option
}

// NewScriptWriter creates a writer over a completion client.
func NewScriptWriter(client llm.Client, opts ...llm.Option) *ScriptWriter {
	return &ScriptWriter{client: client, opts: opts}
}

var _ Writer = (*ScriptWriter)(nil)

// scriptWire is the JSON shape the writer and enhancer prompts request.
type scriptWire struct {
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Timestamps map[string]string `json:"timestamps"`
}

// Write assembles the branch prompt and has the model draft the script.
func (w *ScriptWriter) Write(ctx context.Context, req Request) (*gamecraft.Script, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, gamecraft.NewError("generate", gamecraft.KindValidationFailed,
			"prompt assembly failed", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: writerSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}
	opts := append([]llm.Option{llm.WithJSONResponse()}, w.opts...)
	resp, err := w.client.Complete(ctx, messages, opts...)
	if err != nil {
		return nil, gamecraft.AsError("generate", err)
	}

	var wire scriptWire
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &wire); err != nil {
		return nil, gamecraft.NewError("generate", gamecraft.KindValidationFailed,
			"model returned an unparseable script", err)
	}
	if wire.Content == "" {
		return nil, gamecraft.NewError("generate", gamecraft.KindValidationFailed,
			"model returned an empty script", nil)
	}

	timestamps := wire.Timestamps
	if len(timestamps) == 0 {
		timestamps = SectionTimestamps(req.ContentType, req.Format, req.DurationMinutes)
	}

	return &gamecraft.Script{
		Title:           wire.Title,
		DurationMinutes: req.DurationMinutes,
		Content:         wire.Content,
		Timestamps:      timestamps,
		Format:          req.Format,
		Language:        req.Language,
	}, nil
}

// buildPrompt fills the branch template from the research payloads.
func buildPrompt(req Request) (string, error) {
	var sb strings.Builder

	switch req.ContentType {
	case gamecraft.ContentTypeGame:
		if req.Game == nil {
			return "", fmt.Errorf("game branch without game metadata")
		}
		scores := make([]string, 0, len(req.Reviews))
		for _, s := range req.Reviews {
			scores = append(scores, fmt.Sprintf("%s: %s/%s", s.Outlet, s.Score, s.MaxScore))
		}
		titles := make([]string, 0, len(req.Media))
		for _, m := range req.Media {
			titles = append(titles, m.Title)
		}
		err := gamePromptTmpl.Execute(&sb, map[string]any{
			"DurationMinutes": req.DurationMinutes,
			"FormatLabel":     strings.ReplaceAll(req.Format, "_", " "),
			"LanguageLabel":   languageLabel(req.Language),
			"GameName":        req.Game.Name,
			"Developer":       req.Game.Developer,
			"Publisher":       req.Game.Publisher,
			"Platforms":       strings.Join(req.Game.Platforms, ", "),
			"Genre":           req.Game.Genre,
			"ReleaseDate":     req.Game.ReleaseDate,
			"Description":     req.Game.Description,
			"ReviewScores":    strings.Join(scores, ", "),
			"MediaTitles":     strings.Join(titles, "; "),
			"Feedback":        req.Feedback,
		})
		return sb.String(), err

	case gamecraft.ContentTypeEvent:
		title := req.Query
		var announced, highlights, chapters string
		if req.Event != nil {
			title = req.Event.Title
			announced = strings.Join(req.Event.AnnouncedGames, ", ")
			highlights = strings.Join(req.Event.Highlights, ". ")
			pairs := make([]string, 0, len(req.Event.Timestamps))
			for at, label := range req.Event.Timestamps {
				pairs = append(pairs, at+" "+label)
			}
			chapters = strings.Join(pairs, ", ")
		}
		err := eventPromptTmpl.Execute(&sb, map[string]any{
			"DurationMinutes": req.DurationMinutes,
			"LanguageLabel":   languageLabel(req.Language),
			"EventTitle":      title,
			"AnnouncedGames":  announced,
			"Highlights":      highlights,
			"Timestamps":      chapters,
			"Feedback":        req.Feedback,
		})
		return sb.String(), err

	default:
		return "", fmt.Errorf("unknown content type %q", req.ContentType)
	}
}

func languageLabel(l gamecraft.Language) string {
	if l == gamecraft.LanguageFrench {
		return "French"
	}
	return "English"
}

// SectionTimestamps computes the default section layout when the model
// returns none. Section boundaries scale with the requested duration.
func SectionTimestamps(ct gamecraft.ContentType, format string, duration int) map[string]string {
	if duration < 3 {
		duration = 3
	}

	if ct == gamecraft.ContentTypeEvent {
		endHighlights := min(duration-2, duration*8/10)
		return map[string]string{
			"intro":         "00:00-00:30",
			"announcements": "00:30-02:00",
			"highlights":    fmt.Sprintf("02:00-%02d:00", endHighlights),
			"conclusion":    fmt.Sprintf("%02d:00-%02d:00", endHighlights, duration),
		}
	}

	if format == "review" {
		endGameplay := min(duration-3, duration*6/10)
		endReview := min(duration-1, duration*9/10)
		return map[string]string{
			"hook":          "00:00-00:30",
			"overview":      "00:30-02:00",
			"gameplay":      fmt.Sprintf("02:00-%02d:00", endGameplay),
			"review_scores": fmt.Sprintf("%02d:00-%02d:00", endGameplay, endReview),
			"conclusion":    fmt.Sprintf("%02d:00-%02d:00", endReview, duration),
		}
	}

	return map[string]string{"full_content": fmt.Sprintf("00:00-%02d:00", duration)}
}
