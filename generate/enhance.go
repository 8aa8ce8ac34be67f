package generate

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/llm"
)

// Enhancer reformats a script without regenerating its substance. The
// quality gate uses it for the ENHANCE band: structural problems worth
// fixing, content worth keeping.
type Enhancer struct {
	client llm.Client
	opts   []llm.Option
}

// NewEnhancer creates an enhancer over a completion client.
func NewEnhancer(client llm.Client, opts ...llm.Option) *Enhancer {
	return &Enhancer{client: client, opts: opts}
}

// Enhance returns a reformatted copy of the script. Duration, format and
// language always carry over; a failed or unparseable enhancement returns
// the original untouched, since the content already cleared the
// regeneration band.
func (e *Enhancer) Enhance(ctx context.Context, script *gamecraft.Script) *gamecraft.Script {
	payload, err := json.Marshal(scriptWire{
		Title:      script.Title,
		Content:    script.Content,
		Timestamps: script.Timestamps,
	})
	if err != nil {
		return script
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: enhancerSystemPrompt},
		{Role: llm.RoleUser, Content: string(payload)},
	}
	opts := append([]llm.Option{llm.WithJSONResponse()}, e.opts...)
	resp, err := e.client.Complete(ctx, messages, opts...)
	if err != nil {
		return script
	}

	var wire scriptWire
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &wire); err != nil || wire.Content == "" {
		return script
	}

	out := *script
	out.Content = wire.Content
	if wire.Title != "" {
		out.Title = wire.Title
	}
	if len(wire.Timestamps) > 0 {
		out.Timestamps = wire.Timestamps
	}
	return &out
}
