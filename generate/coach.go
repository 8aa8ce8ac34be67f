package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/llm"
)

const maxThumbnailSuggestions = 3

// Coach proposes thumbnail concepts for a compiled script. It runs after
// compilation and is strictly best-effort: the pipeline treats a coach
// failure as a warning, never as a degraded output.
type Coach struct {
	client llm.Client
	opts   []llm.Option
}

// NewCoach creates a coach over a completion client.
func NewCoach(client llm.Client, opts ...llm.Option) *Coach {
	return &Coach{client: client, opts: opts}
}

// Suggest returns up to three thumbnail concepts for the script.
func (c *Coach) Suggest(ctx context.Context, script *gamecraft.Script) ([]gamecraft.ThumbnailSuggestion, error) {
	if script == nil {
		return nil, gamecraft.NewError("thumbnail_coach", gamecraft.KindValidationFailed,
			"no script to suggest thumbnails for", nil)
	}

	user := fmt.Sprintf("Video title: %s\nFormat: %s\nLanguage: %s\n\nScript:\n%s",
		script.Title, script.Format, script.Language, script.Content)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: coachSystemPrompt},
		{Role: llm.RoleUser, Content: user},
	}
	resp, err := c.client.Complete(ctx, messages, c.opts...)
	if err != nil {
		return nil, gamecraft.AsError("thumbnail_coach", err)
	}

	var suggestions []gamecraft.ThumbnailSuggestion
	if err := json.Unmarshal([]byte(extractJSONArray(resp.Content)), &suggestions); err != nil {
		return nil, gamecraft.NewError("thumbnail_coach", gamecraft.KindValidationFailed,
			"model returned unparseable suggestions", err)
	}
	if len(suggestions) > maxThumbnailSuggestions {
		suggestions = suggestions[:maxThumbnailSuggestions]
	}
	return suggestions, nil
}

// extractJSONArray trims prose around a JSON array. Providers without a
// native JSON mode for arrays occasionally wrap the payload in text.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}
