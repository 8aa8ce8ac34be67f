// Package classify turns a raw natural-language request into a routed
// classification: language, content type, extracted parameters and a
// confidence score. The pipeline routes on the confidence; classification
// itself never decides whether to proceed.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/llm"
)

// Classification is the structured outcome of classifying one request.
type Classification struct {
	Language    gamecraft.Language
	ContentType gamecraft.ContentType
	Confidence  float64
	// GameName is set for GAME requests naming a specific title.
	GameName string
	// VideoURL is set for EVENT requests that reference a video.
	VideoURL string
	// Format is the requested script format (review, preview, summary,
	// complete_guide, general). Defaults to review.
	Format string
}

// Service classifies a raw request.
type Service interface {
	Classify(ctx context.Context, text string) (*Classification, error)
}

// Classifier is the LLM-backed Service implementation. One completion
// call validates relevance and extracts every classification field as a
// JSON object.
type Classifier struct {
	client llm.Client
	opts   []llm.Option
}

// New creates a classifier over a completion client.
func New(client llm.Client, opts ...llm.Option) *Classifier {
	return &Classifier{client: client, opts: opts}
}

var _ Service = (*Classifier)(nil)

const systemPrompt = `You are a classifier for a gaming YouTube content creation tool.
Given a user query, respond with a single JSON object and nothing else:

{
  "relevant": bool,      // is the query about video games, gaming events, or gaming video content creation?
  "reason": string,      // one sentence, why relevant or not
  "language": string,    // "en" or "fr"
  "content_type": string,// "event" for showcases/conferences/streams/video analysis, "game" for specific games and reviews
  "confidence": number,  // 0.0-1.0, how confident you are in content_type
  "game_name": string,   // specific game title for game queries, "" if none
  "video_url": string,   // video URL mentioned in the query, "" if none
  "format": string       // one of "review", "preview", "summary", "complete_guide", "general"
}

Examples:
"Summarize the Nintendo Direct" -> event, summary
"Create a review of Zelda Breath of the Wild" -> game, review, game_name "Zelda Breath of the Wild"
"Fais une critique de Final Fantasy XVI" -> game, review, language "fr"
"How to cook pasta" -> relevant false`

// wire is the JSON shape the model is instructed to emit.
type wire struct {
	Relevant    bool    `json:"relevant"`
	Reason      string  `json:"reason"`
	Language    string  `json:"language"`
	ContentType string  `json:"content_type"`
	Confidence  float64 `json:"confidence"`
	GameName    string  `json:"game_name"`
	VideoURL    string  `json:"video_url"`
	Format      string  `json:"format"`
}

var validFormats = map[string]bool{
	"review":         true,
	"preview":        true,
	"summary":        true,
	"complete_guide": true,
	"general":        true,
}

// Classify validates relevance and extracts the classification in one
// completion call. Irrelevant or unparseable responses surface as
// ClassificationAmbiguous, which the pipeline treats as fatal.
func (c *Classifier) Classify(ctx context.Context, text string) (*Classification, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: text},
	}

	opts := append([]llm.Option{llm.WithJSONResponse(), llm.WithMaxTokens(300)}, c.opts...)
	resp, err := c.client.Complete(ctx, messages, opts...)
	if err != nil {
		return nil, gamecraft.AsError("classify", err)
	}

	var w wire
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &w); err != nil {
		return nil, gamecraft.NewError("classify", gamecraft.KindClassificationAmbiguous,
			fmt.Sprintf("unparseable classification: %v", err), err)
	}
	if !w.Relevant {
		reason := w.Reason
		if reason == "" {
			reason = "query is not about gaming or content creation"
		}
		return nil, gamecraft.NewError("classify", gamecraft.KindClassificationAmbiguous, reason, nil)
	}

	out := &Classification{
		Language:   normalizeLanguage(w.Language),
		Confidence: w.Confidence,
		GameName:   strings.Trim(strings.TrimSpace(w.GameName), `"'`),
		VideoURL:   strings.TrimSpace(w.VideoURL),
		Format:     strings.ToLower(strings.TrimSpace(w.Format)),
	}
	if !validFormats[out.Format] {
		out.Format = "review"
	}
	if out.VideoURL != "" && !strings.HasPrefix(out.VideoURL, "http://") && !strings.HasPrefix(out.VideoURL, "https://") {
		out.VideoURL = ""
	}

	switch strings.ToLower(strings.TrimSpace(w.ContentType)) {
	case "event":
		out.ContentType = gamecraft.ContentTypeEvent
	case "game":
		out.ContentType = gamecraft.ContentTypeGame
	default:
		return nil, gamecraft.NewError("classify", gamecraft.KindClassificationAmbiguous,
			fmt.Sprintf("unknown content type %q", w.ContentType), nil)
	}

	return out, nil
}

func normalizeLanguage(s string) gamecraft.Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fr", "french", "français", "francais":
		return gamecraft.LanguageFrench
	default:
		return gamecraft.LanguageEnglish
	}
}
