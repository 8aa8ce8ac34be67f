// Package pipeline assembles the content graph: classification, routed
// research, generation, the quality gate and compilation, plus the
// degraded path that turns failures into a structured result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/cache"
	"github.com/spetersoncode/gamecraft/classify"
	"github.com/spetersoncode/gamecraft/generate"
	"github.com/spetersoncode/gamecraft/graph"
	"github.com/spetersoncode/gamecraft/research"
)

// Node and fan-out slot names. Research slots must match the provider
// names so deltas land in the slots the merge step reads.
const (
	nodeLanguageDetect  = "language_detect"
	nodeClassify        = "classify"
	nodeClarify         = "clarify"
	groupGameResearch   = "game_research"
	slotGameMetadata    = "game_metadata"
	slotReviewScores    = "review_scores"
	slotMediaSearch     = "media_search"
	slotEventAnalysis   = "event_analysis"
	nodeMerge           = "merge"
	nodeTemplateSelect  = "template_select"
	nodeGenerate        = "generate"
	nodeQualityGate     = "quality_gate"
	nodeFormatRetry     = "format_retry"
	nodeThumbnailCoach  = "thumbnail_coach"
	nodeCompile         = "compile"
	nodeErrorHandler    = "error_handler"
	nodeDegradedCompile = "degraded_compile"
)

// enhanceMarker flags that the script already went through a reformat
// pass. The enhancement is structural only, so a second pass cannot move
// the score; the gate ships instead of looping.
const enhanceMarker = "script reformatted for structure"

// Enhancer reworks a script's structure without touching its substance.
type Enhancer interface {
	Enhance(ctx context.Context, script *gamecraft.Script) *gamecraft.Script
}

// Coach proposes thumbnail concepts for a finished script.
type Coach interface {
	Suggest(ctx context.Context, script *gamecraft.Script) ([]gamecraft.ThumbnailSuggestion, error)
}

// Deps are the collaborators the pipeline orchestrates. All fields are
// required except Enhancer and Coach, whose stages are skipped when nil.
type Deps struct {
	Classifier classify.Service
	Metadata   research.Provider
	Reviews    research.Provider
	Media      research.Provider
	Events     research.Provider
	Writer     generate.Writer
	Enhancer   Enhancer
	Coach      Coach
}

func (d Deps) validate() error {
	switch {
	case d.Classifier == nil:
		return fmt.Errorf("pipeline: classifier is required")
	case d.Metadata == nil, d.Reviews == nil, d.Media == nil, d.Events == nil:
		return fmt.Errorf("pipeline: all four research providers are required")
	case d.Writer == nil:
		return fmt.Errorf("pipeline: script writer is required")
	}
	for name, p := range map[string]research.Provider{
		slotGameMetadata:  d.Metadata,
		slotReviewScores:  d.Reviews,
		slotMediaSearch:   d.Media,
		slotEventAnalysis: d.Events,
	} {
		if p.Name() != name {
			return fmt.Errorf("pipeline: provider for slot %q reports name %q", name, p.Name())
		}
	}
	return nil
}

// Runner executes content requests against the assembled graph.
type Runner struct {
	engine *graph.Engine
	cfg    Config
	logger *slog.Logger
}

// Option configures a Runner.
type Option func(*runnerOptions)

type runnerOptions struct {
	logger  *slog.Logger
	gateway *cache.Gateway
}

// WithLogger sets the structured logger for the runner and its engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *runnerOptions) { o.logger = logger }
}

// WithCache attaches a cache gateway so research results short-circuit
// repeat requests.
func WithCache(gw *cache.Gateway) Option {
	return func(o *runnerOptions) { o.gateway = gw }
}

// New assembles the content graph from deps and returns a Runner.
func New(deps Deps, cfg Config, opts ...Option) (*Runner, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	ro := runnerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&ro)
	}

	n := &nodes{deps: deps, cfg: cfg}

	b := graph.NewBuilder().
		AddNode(&graph.Node{Name: nodeLanguageDetect, Run: n.languageDetect}).
		AddNode(&graph.Node{
			Name:    nodeClassify,
			Run:     n.classify,
			Timeout: cfg.ClassifyTimeout,
			Retry:   cfg.Retry,
		}).
		AddNode(&graph.Node{Name: nodeClarify, Run: n.clarify}).
		AddNode(n.providerNode(deps.Metadata, cache.CategoryStable, targetKey,
			decodeSlot[*gamecraft.GameInfo](), n.metadataFallback)).
		AddNode(n.providerNode(deps.Reviews, cache.CategoryVolatile, targetKey,
			decodeSlot[[]gamecraft.ReviewScore](), nil)).
		AddNode(n.providerNode(deps.Media, cache.CategoryDerived, mediaKey,
			decodeSlot[[]gamecraft.MediaAsset](), nil)).
		AddNode(n.providerNode(deps.Events, cache.CategoryVolatile, sourceKey,
			decodeSlot[*gamecraft.EventInfo](), nil)).
		AddGroup(groupGameResearch, slotGameMetadata, slotReviewScores, slotMediaSearch).
		AddNode(&graph.Node{Name: nodeMerge, Run: n.merge}).
		AddNode(&graph.Node{Name: nodeTemplateSelect, Run: n.templateSelect}).
		AddNode(&graph.Node{
			Name:    nodeGenerate,
			Run:     n.generate,
			Timeout: cfg.GenerateTimeout,
			Retry:   cfg.Retry,
		}).
		AddNode(&graph.Node{Name: nodeQualityGate, Run: n.qualityGate}).
		AddNode(&graph.Node{Name: nodeFormatRetry, Run: n.formatRetry, Timeout: cfg.GenerateTimeout}).
		AddNode(&graph.Node{
			Name:     nodeThumbnailCoach,
			Run:      n.thumbnailCoach,
			Fallback: n.thumbnailFallback,
			Timeout:  cfg.GenerateTimeout,
		}).
		AddNode(&graph.Node{Name: nodeCompile, Run: n.compile}).
		AddNode(&graph.Node{Name: nodeErrorHandler, Run: n.errorHandler}).
		AddNode(&graph.Node{Name: nodeDegradedCompile, Run: n.degradedCompile}).
		SetEntry(nodeLanguageDetect).
		SetErrorHandler(nodeErrorHandler).
		AddEdge(nodeLanguageDetect, nodeClassify).
		AddConditionalEdge(nodeClassify, n.route, groupGameResearch, slotEventAnalysis, nodeClarify).
		AddEdge(groupGameResearch, nodeMerge).
		AddEdge(slotEventAnalysis, nodeMerge).
		AddEdge(nodeMerge, nodeTemplateSelect).
		AddEdge(nodeTemplateSelect, nodeGenerate).
		AddEdge(nodeGenerate, nodeQualityGate).
		AddConditionalEdge(nodeQualityGate, n.afterQuality, nodeThumbnailCoach, nodeFormatRetry, nodeGenerate).
		AddEdge(nodeFormatRetry, nodeQualityGate).
		AddEdge(nodeThumbnailCoach, nodeCompile).
		AddEdge(nodeCompile, graph.End).
		AddEdge(nodeClarify, graph.End).
		AddEdge(nodeErrorHandler, nodeDegradedCompile).
		AddEdge(nodeDegradedCompile, graph.End)

	g, err := b.Build()
	if err != nil {
		return nil, err
	}

	eopts := []graph.Option{graph.WithLogger(ro.logger)}
	if cfg.Budget > 0 {
		eopts = append(eopts, graph.WithBudget(cfg.Budget))
	}
	if ro.gateway != nil {
		eopts = append(eopts, graph.WithCache(ro.gateway))
	}

	return &Runner{
		engine: graph.New(g, eopts...),
		cfg:    cfg,
		logger: ro.logger,
	}, nil
}

// Run executes one content request. It always returns a structured
// result: even when the error path itself breaks, the caller gets a
// degraded result carrying the accumulated errors, never a bare panic.
func (r *Runner) Run(ctx context.Context, rawQuery string) *gamecraft.Result {
	state := gamecraft.NewState(strings.TrimSpace(rawQuery), r.cfg.MaxRegenerations)
	r.logger.Info("request started", "request_id", state.RequestID, "query", state.RawQuery)

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("request panicked", "request_id", state.RequestID, "panic", rec)
			r.forceDegraded(state, fmt.Sprintf("pipeline panicked: %v", rec))
		}
	}()

	if err := r.engine.Run(ctx, state); err != nil {
		r.logger.Error("request failed past recovery", "request_id", state.RequestID, "error", err)
		r.forceDegraded(state, fmt.Sprintf("error path failed: %s", err))
	}

	result := state.Result()
	r.logger.Info("request finished",
		"request_id", state.RequestID,
		"success", result.Success,
		"degraded", result.Degraded,
		"nodes", len(result.ExecutedNodes),
		"errors", len(result.Errors))
	return result
}

// forceDegraded makes the state terminal when the engine gave up before
// any compile step could. Results must always carry an output.
func (r *Runner) forceDegraded(state *gamecraft.State, warning string) {
	if state.Terminal() {
		return
	}
	state.Warnings = append(state.Warnings, warning)
	state.Degraded = &gamecraft.Output{Warnings: state.Warnings}
}
