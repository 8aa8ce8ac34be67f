// Package llm defines the provider-neutral completion client the
// pipeline's language nodes call. Concrete clients for OpenAI, Anthropic
// and Google live in the subpackages and are selected by configuration.
package llm

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a completion conversation.
type Message struct {
	Role    Role
	Content string
}

// Response is a completed model response.
type Response struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Options configures a single completion call.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	// JSONResponse requests a JSON object response where the provider
	// supports a native JSON mode.
	JSONResponse bool
}

// Option is a functional option for completion calls.
type Option func(*Options)

// WithModel overrides the client's default model.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = &t }
}

// WithJSONResponse requests a JSON object response.
func WithJSONResponse() Option {
	return func(o *Options) { o.JSONResponse = true }
}

// ApplyOptions applies functional options with defaults.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Client is the completion interface the pipeline depends on.
type Client interface {
	// Complete sends a conversation and returns the finished response.
	Complete(ctx context.Context, messages []Message, opts ...Option) (*Response, error)
}
