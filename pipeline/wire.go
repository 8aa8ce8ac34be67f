package pipeline

import (
	"context"
	"fmt"

	"github.com/spetersoncode/gamecraft/cache"
	"github.com/spetersoncode/gamecraft/classify"
	"github.com/spetersoncode/gamecraft/generate"
	"github.com/spetersoncode/gamecraft/llm"
	"github.com/spetersoncode/gamecraft/llm/anthropic"
	"github.com/spetersoncode/gamecraft/llm/google"
	"github.com/spetersoncode/gamecraft/llm/openai"
	"github.com/spetersoncode/gamecraft/research"
)

// NewFromConfig builds a Runner with real providers from cfg: the first
// configured LLM key picks the model backend, Redis backs the cache when
// an address is set, in-memory otherwise.
func NewFromConfig(ctx context.Context, cfg Config, opts ...Option) (*Runner, error) {
	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	videos := research.NewMediaProvider(cfg.YouTubeAPIKey)
	deps := Deps{
		Classifier: classify.New(client),
		Metadata:   research.NewMetadataProvider(cfg.IGDBClientID, cfg.IGDBAccessToken),
		Reviews:    research.NewReviewProvider(),
		Media:      videos,
		Events:     research.NewEventAnalyzer(videos, client),
		Writer:     generate.NewScriptWriter(client),
		Enhancer:   generate.NewEnhancer(client),
		Coach:      generate.NewCoach(client),
	}

	var store cache.Store
	if cfg.RedisAddr != "" {
		store = cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	} else {
		store = cache.NewMemoryStore()
	}
	gw := cache.New(store,
		cache.WithTTL(cache.CategoryStable, cfg.StableTTL),
		cache.WithTTL(cache.CategoryVolatile, cfg.VolatileTTL),
		cache.WithTTL(cache.CategoryDerived, cfg.DerivedTTL),
	)

	// Caller options come last so they can still swap the gateway.
	opts = append([]Option{WithCache(gw)}, opts...)
	return New(deps, cfg, opts...)
}

func newLLMClient(ctx context.Context, cfg Config) (llm.Client, error) {
	switch {
	case cfg.OpenAIAPIKey != "":
		return openai.New(cfg.OpenAIAPIKey), nil
	case cfg.AnthropicAPIKey != "":
		return anthropic.New(cfg.AnthropicAPIKey), nil
	case cfg.GoogleAPIKey != "":
		return google.New(ctx, cfg.GoogleAPIKey)
	default:
		return nil, fmt.Errorf("pipeline: no LLM API key configured")
	}
}
