package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/cache"
	"github.com/spetersoncode/gamecraft/classify"
	"github.com/spetersoncode/gamecraft/generate"
	"github.com/spetersoncode/gamecraft/quality"
	"github.com/spetersoncode/gamecraft/retry"
)

type fakeClassifier struct {
	result classify.Classification
	err    error
	calls  atomic.Int32
}

func (f *fakeClassifier) Classify(context.Context, string) (*classify.Classification, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	c := f.result
	return &c, nil
}

type fakeProvider struct {
	name    string
	payload any
	err     error
	calls   atomic.Int32

	mu   sync.Mutex
	last gamecraft.Params
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Fetch(_ context.Context, params gamecraft.Params) (any, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = params
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func (f *fakeProvider) lastParams() gamecraft.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeWriter struct {
	calls    atomic.Int32
	feedback [][]string
	err      error
}

func (f *fakeWriter) Write(_ context.Context, req generate.Request) (*gamecraft.Script, error) {
	f.calls.Add(1)
	f.feedback = append(f.feedback, req.Feedback)
	if f.err != nil {
		return nil, f.err
	}
	return &gamecraft.Script{
		Title:           "Draft " + req.Query,
		Content:         "script body",
		DurationMinutes: req.DurationMinutes,
		Format:          req.Format,
		Language:        req.Language,
	}, nil
}

type fakeEnhancer struct {
	calls atomic.Int32
}

func (f *fakeEnhancer) Enhance(_ context.Context, s *gamecraft.Script) *gamecraft.Script {
	f.calls.Add(1)
	out := *s
	out.Title = "Enhanced " + s.Title
	return &out
}

type fakeCoach struct {
	suggestions []gamecraft.ThumbnailSuggestion
	err         error
	calls       atomic.Int32
}

func (f *fakeCoach) Suggest(context.Context, *gamecraft.Script) ([]gamecraft.ThumbnailSuggestion, error) {
	f.calls.Add(1)
	return f.suggestions, f.err
}

// fixtures shared by the end-to-end tests.

func gameClassification() classify.Classification {
	return classify.Classification{
		Language:    gamecraft.LanguageEnglish,
		ContentType: gamecraft.ContentTypeGame,
		Confidence:  0.95,
		GameName:    "Hades",
		Format:      "review",
	}
}

func eventClassification() classify.Classification {
	return classify.Classification{
		Language:    gamecraft.LanguageEnglish,
		ContentType: gamecraft.ContentTypeEvent,
		Confidence:  0.9,
		VideoURL:    "https://youtube.com/watch?v=abc123xyz00",
		Format:      "summary",
	}
}

type fixture struct {
	classifier *fakeClassifier
	metadata   *fakeProvider
	reviews    *fakeProvider
	media      *fakeProvider
	events     *fakeProvider
	writer     *fakeWriter
	enhancer   *fakeEnhancer
	coach      *fakeCoach
}

func newFixture(c classify.Classification) *fixture {
	return &fixture{
		classifier: &fakeClassifier{result: c},
		metadata: &fakeProvider{
			name:    slotGameMetadata,
			payload: &gamecraft.GameInfo{Name: "Hades", Developer: "Supergiant Games"},
		},
		reviews: &fakeProvider{
			name:    slotReviewScores,
			payload: []gamecraft.ReviewScore{{Outlet: "OpenCritic (top critics)", Score: "93", MaxScore: "100"}},
		},
		media: &fakeProvider{
			name:    slotMediaSearch,
			payload: []gamecraft.MediaAsset{{Title: "Hades trailer", URL: "https://youtube.com/watch?v=t"}},
		},
		events: &fakeProvider{
			name:    slotEventAnalysis,
			payload: &gamecraft.EventInfo{Title: "Summer Showcase"},
		},
		writer:   &fakeWriter{},
		enhancer: &fakeEnhancer{},
		coach: &fakeCoach{suggestions: []gamecraft.ThumbnailSuggestion{
			{Style: "bold", Prompt: "hades close-up"},
		}},
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Classifier: f.classifier,
		Metadata:   f.metadata,
		Reviews:    f.reviews,
		Media:      f.media,
		Events:     f.events,
		Writer:     f.writer,
		Enhancer:   f.enhancer,
		Coach:      f.coach,
	}
}

// testConfig disables retries and lets every draft pass the gate so
// tests exercise routing, not scoring.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = retry.Disabled()
	cfg.Quality = quality.Config{PassThreshold: 0, EnhanceThreshold: 0}
	return cfg
}

func newRunner(t *testing.T, f *fixture, cfg Config, opts ...Option) *Runner {
	t.Helper()
	r, err := New(f.deps(), cfg, opts...)
	require.NoError(t, err)
	return r
}

func TestRunnerGameHappyPath(t *testing.T) {
	f := newFixture(gameClassification())
	r := newRunner(t, f, testConfig())

	res := r.Run(context.Background(), "Hades review please")

	require.True(t, res.Success)
	assert.False(t, res.Degraded)
	require.NotNil(t, res.Output)
	require.NotNil(t, res.Output.Script)
	assert.Equal(t, "review", res.Output.Script.Format)
	require.NotNil(t, res.Output.Game)
	assert.Equal(t, "Hades", res.Output.Game.Name)
	assert.Len(t, res.Output.Reviews, 1)
	assert.Len(t, res.Output.Media, 1)
	assert.Len(t, res.Output.Thumbnails, 1)
	assert.Empty(t, res.Errors)

	assert.Equal(t, int32(1), f.metadata.calls.Load())
	assert.Equal(t, int32(1), f.reviews.calls.Load())
	assert.Equal(t, int32(1), f.media.calls.Load())
	assert.Equal(t, int32(0), f.events.calls.Load())
	assert.Equal(t, int32(1), f.writer.calls.Load())

	assert.Contains(t, res.ExecutedNodes, nodeClassify)
	assert.Contains(t, res.ExecutedNodes, nodeMerge)
	assert.Contains(t, res.ExecutedNodes, nodeCompile)
	assert.NotContains(t, res.ExecutedNodes, nodeErrorHandler)
}

func TestRunnerEventPath(t *testing.T) {
	f := newFixture(eventClassification())
	r := newRunner(t, f, testConfig())

	res := r.Run(context.Background(), "summarize the summer showcase")

	require.True(t, res.Success)
	require.NotNil(t, res.Output.Event)
	assert.Equal(t, "Summer Showcase", res.Output.Event.Title)
	assert.Equal(t, gamecraft.ContentTypeEvent, res.ContentType)

	assert.Equal(t, int32(1), f.events.calls.Load())
	assert.Equal(t, int32(0), f.metadata.calls.Load())
	assert.Equal(t, int32(0), f.reviews.calls.Load())
	assert.Contains(t, res.ExecutedNodes, slotEventAnalysis)
	assert.NotContains(t, res.ExecutedNodes, slotGameMetadata)
}

func TestRunnerThreadsLanguageToResearch(t *testing.T) {
	c := gameClassification()
	c.Language = gamecraft.LanguageFrench
	f := newFixture(c)
	r := newRunner(t, f, testConfig())

	res := r.Run(context.Background(), "fais une critique du jeu Hades")

	require.True(t, res.Success)
	assert.Equal(t, gamecraft.LanguageFrench, res.Language)
	assert.Equal(t, gamecraft.LanguageFrench, f.media.lastParams().Language)
	assert.Equal(t, gamecraft.LanguageFrench, f.metadata.lastParams().Language)
}

func TestRunnerLowConfidenceClarifies(t *testing.T) {
	c := gameClassification()
	c.Confidence = 0.4
	f := newFixture(c)
	r := newRunner(t, f, testConfig())

	res := r.Run(context.Background(), "something about that game maybe")

	assert.False(t, res.Success)
	assert.True(t, res.Degraded)
	require.NotNil(t, res.Output)
	assert.Nil(t, res.Output.Script)
	assert.NotEmpty(t, res.Output.Warnings)

	require.NotEmpty(t, res.Errors)
	assert.Equal(t, gamecraft.KindClassificationAmbiguous, res.Errors[0].Kind)

	// No content work happens on the clarify path.
	assert.Equal(t, int32(0), f.metadata.calls.Load())
	assert.Equal(t, int32(0), f.events.calls.Load())
	assert.Equal(t, int32(0), f.writer.calls.Load())
}

func TestRunnerPartialResearchFailure(t *testing.T) {
	f := newFixture(gameClassification())
	f.reviews.err = gamecraft.NewError(slotReviewScores, gamecraft.KindDataNotFound, "no scores yet", nil)
	r := newRunner(t, f, testConfig())

	res := r.Run(context.Background(), "Hades review")

	require.True(t, res.Success)
	assert.Empty(t, res.Output.Reviews)
	require.NotNil(t, res.Output.Game)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, gamecraft.KindDataNotFound, res.Errors[0].Kind)
	assert.Contains(t, res.Output.Warnings, fmt.Sprintf("%s unavailable, continuing without it", slotReviewScores))
}

func TestRunnerMetadataFallback(t *testing.T) {
	f := newFixture(gameClassification())
	f.metadata.err = gamecraft.NewError(slotGameMetadata, gamecraft.KindUpstreamUnavailable, "igdb down", nil)
	r := newRunner(t, f, testConfig())

	res := r.Run(context.Background(), "Hades review")

	require.True(t, res.Success)
	require.NotNil(t, res.Output.Game)
	assert.Equal(t, "Hades", res.Output.Game.Name)
	assert.Empty(t, res.Output.Game.Developer)
	assert.Empty(t, res.Errors)

	found := false
	for _, w := range res.Output.Warnings {
		if strings.Contains(w, "fallback") {
			found = true
		}
	}
	assert.True(t, found, "expected a fallback warning, got %v", res.Output.Warnings)
}

func TestRunnerRegenerationExhausted(t *testing.T) {
	f := newFixture(gameClassification())
	cfg := testConfig()
	cfg.MaxRegenerations = 2
	// Thresholds nothing can reach force a regenerate verdict each pass.
	cfg.Quality = quality.Config{PassThreshold: 1.1, EnhanceThreshold: 1.05}
	r := newRunner(t, f, cfg)

	res := r.Run(context.Background(), "Hades review")

	assert.False(t, res.Success)
	assert.True(t, res.Degraded)
	assert.Equal(t, int32(3), f.writer.calls.Load(), "initial draft plus two regenerations")

	// Regeneration attempts carry the gate's feedback.
	require.Len(t, f.writer.feedback, 3)
	assert.Empty(t, f.writer.feedback[0])
	assert.NotEmpty(t, f.writer.feedback[1])

	kinds := make([]gamecraft.Kind, 0, len(res.Errors))
	for _, e := range res.Errors {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, gamecraft.KindRegenerationExhausted)

	// The failure is recoverable, so the degraded output keeps the last
	// draft alongside the research results.
	require.NotNil(t, res.Output)
	assert.NotNil(t, res.Output.Script)
	assert.NotNil(t, res.Output.Game)
}

func TestRunnerEnhancePath(t *testing.T) {
	f := newFixture(gameClassification())
	cfg := testConfig()
	// Scores land between the thresholds, forcing the enhance verdict.
	cfg.Quality = quality.Config{PassThreshold: 1.1, EnhanceThreshold: 0}
	r := newRunner(t, f, cfg)

	res := r.Run(context.Background(), "Hades review")

	require.True(t, res.Success)
	assert.Equal(t, int32(1), f.writer.calls.Load())
	assert.Equal(t, int32(1), f.enhancer.calls.Load(), "reformat runs exactly once, then ships")
	assert.Contains(t, res.Output.Script.Title, "Enhanced")
	assert.Contains(t, res.Output.Warnings, enhanceMarker)
	assert.Contains(t, res.ExecutedNodes, nodeFormatRetry)
}

func TestRunnerCoachFailureIsBestEffort(t *testing.T) {
	f := newFixture(gameClassification())
	f.coach.err = gamecraft.NewError(nodeThumbnailCoach, gamecraft.KindUpstreamUnavailable, "model down", nil)
	r := newRunner(t, f, testConfig())

	res := r.Run(context.Background(), "Hades review")

	require.True(t, res.Success)
	assert.Empty(t, res.Output.Thumbnails)
	assert.NotEmpty(t, res.Output.Warnings)
}

func TestRunnerCachedResearch(t *testing.T) {
	f := newFixture(gameClassification())
	gw := cache.New(cache.NewMemoryStore())
	r := newRunner(t, f, testConfig(), WithCache(gw))

	first := r.Run(context.Background(), "Hades review")
	require.True(t, first.Success)
	assert.Equal(t, int32(1), f.metadata.calls.Load())

	second := r.Run(context.Background(), "Hades review")
	require.True(t, second.Success)

	// Research short-circuits on the warm cache; generation still runs.
	assert.Equal(t, int32(1), f.metadata.calls.Load())
	assert.Equal(t, int32(1), f.reviews.calls.Load())
	assert.Equal(t, int32(1), f.media.calls.Load())
	assert.Equal(t, int32(2), f.writer.calls.Load())

	assert.Contains(t, second.ExecutedNodes, slotGameMetadata+" (cached)")
	require.NotNil(t, second.Output.Game)
	assert.Equal(t, "Supergiant Games", second.Output.Game.Developer)
}

func TestRunnerClassifierOutage(t *testing.T) {
	f := newFixture(gameClassification())
	f.classifier.err = gamecraft.NewError(nodeClassify, gamecraft.KindUpstreamUnavailable, "model down", nil)
	r := newRunner(t, f, testConfig())

	res := r.Run(context.Background(), "Hades review")

	assert.False(t, res.Success)
	assert.True(t, res.Degraded)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, gamecraft.KindUpstreamUnavailable, res.Errors[0].Kind)
	assert.Contains(t, res.ExecutedNodes, nodeErrorHandler)
	assert.Contains(t, res.ExecutedNodes, nodeDegradedCompile)
}

func TestNewRejectsIncompleteDeps(t *testing.T) {
	f := newFixture(gameClassification())
	deps := f.deps()
	deps.Writer = nil
	_, err := New(deps, testConfig())
	require.Error(t, err)
}

func TestNewRejectsMisnamedProvider(t *testing.T) {
	f := newFixture(gameClassification())
	deps := f.deps()
	deps.Reviews = &fakeProvider{name: "scores"}
	_, err := New(deps, testConfig())
	require.Error(t, err)
}
