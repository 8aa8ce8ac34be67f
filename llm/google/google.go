// Package google implements llm.Client on the Google GenAI SDK.
package google

import (
	"context"

	"google.golang.org/genai"

	"github.com/spetersoncode/gamecraft/llm"
)

const DefaultModel = "gemini-2.0-flash"

// Client wraps the Google GenAI SDK to implement llm.Client.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a new Google GenAI client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	c := &Client{
		client: client,
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClientOption configures the Google client.
type ClientOption func(*Client)

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// Complete sends a conversation and returns the finished response.
func (c *Client) Complete(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Response, error) {
	options := llm.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	config := &genai.GenerateContentConfig{}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		config.Temperature = &temp
	}
	if options.JSONResponse {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, convertMessages(messages), config)
	if err != nil {
		return nil, err
	}

	content := ""
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			content += part.Text
		}
	}

	out := &llm.Response{
		Content: content,
		Model:   model,
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func convertMessages(messages []llm.Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		role := "user"
		switch msg.Role {
		case llm.RoleAssistant:
			role = "model"
		case llm.RoleSystem:
			// Gemini has no separate system channel here; system prompts
			// travel as user context.
			role = "user"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents
}

var _ llm.Client = (*Client)(nil)
