package pipeline

import (
	"os"
	"strconv"
	"time"

	"github.com/spetersoncode/gamecraft/quality"
	"github.com/spetersoncode/gamecraft/retry"
)

// Config holds every tunable of the pipeline. Thresholds, budgets and
// TTLs live here so call sites never hard-code them.
type Config struct {
	// ConfidenceThreshold is the minimum classification confidence to
	// route into a content branch; below it the request fails as
	// ambiguous. Default 0.8.
	ConfidenceThreshold float64

	// Quality holds the gate thresholds (pass 0.85, enhance 0.70).
	Quality quality.Config

	// MaxRegenerations bounds quality-gate regeneration loops, default 2.
	MaxRegenerations int

	// Budget is the global wall-clock limit per request, default 2m.
	Budget time.Duration

	// DefaultDurationMinutes is used when the query names no duration.
	DefaultDurationMinutes int

	// Per-node timeouts.
	ClassifyTimeout time.Duration
	ResearchTimeout time.Duration
	GenerateTimeout time.Duration

	// Retry is the policy applied to research and LLM nodes.
	Retry retry.Config

	// Cache TTLs per category.
	StableTTL   time.Duration
	VolatileTTL time.Duration
	DerivedTTL  time.Duration

	// Upstream credentials.
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string
	IGDBClientID    string
	IGDBAccessToken string
	YouTubeAPIKey   string

	// Redis cache backend; empty RedisAddr selects the in-memory store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:    0.8,
		Quality:                quality.DefaultConfig(),
		MaxRegenerations:       2,
		Budget:                 2 * time.Minute,
		DefaultDurationMinutes: 10,
		ClassifyTimeout:        30 * time.Second,
		ResearchTimeout:        30 * time.Second,
		GenerateTimeout:        60 * time.Second,
		Retry:                  retry.DefaultConfig(),
		StableTTL:              24 * time.Hour,
		VolatileTTL:            time.Hour,
		DerivedTTL:             24 * time.Hour,
	}
}

// FromEnv builds a config from the environment on top of the defaults.
// Callers load .env files before calling this.
func FromEnv() Config {
	cfg := DefaultConfig()

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.GoogleAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.IGDBClientID = os.Getenv("IGDB_CLIENT_ID")
	cfg.IGDBAccessToken = os.Getenv("IGDB_ACCESS_TOKEN")
	cfg.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if v, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		cfg.RedisDB = v
	}

	if v, err := strconv.ParseFloat(os.Getenv("GAMECRAFT_CONFIDENCE_THRESHOLD"), 64); err == nil {
		cfg.ConfidenceThreshold = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("GAMECRAFT_QUALITY_PASS"), 64); err == nil {
		cfg.Quality.PassThreshold = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("GAMECRAFT_QUALITY_ENHANCE"), 64); err == nil {
		cfg.Quality.EnhanceThreshold = v
	}
	if v, err := strconv.Atoi(os.Getenv("GAMECRAFT_MAX_REGENERATIONS")); err == nil {
		cfg.MaxRegenerations = v
	}
	if v, err := time.ParseDuration(os.Getenv("GAMECRAFT_BUDGET")); err == nil {
		cfg.Budget = v
	}
	if v, err := strconv.Atoi(os.Getenv("GAMECRAFT_DEFAULT_DURATION")); err == nil {
		cfg.DefaultDurationMinutes = v
	}

	return cfg
}
