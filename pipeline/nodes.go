package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/cache"
	"github.com/spetersoncode/gamecraft/classify"
	"github.com/spetersoncode/gamecraft/generate"
	"github.com/spetersoncode/gamecraft/graph"
	"github.com/spetersoncode/gamecraft/quality"
	"github.com/spetersoncode/gamecraft/research"
)

// nodes carries the collaborators into the node closures.
type nodes struct {
	deps Deps
	cfg  Config
}

// languageDetect runs the cheap lexical heuristic before any LLM call.
// It only writes the language when the heuristic has a clear signal;
// otherwise the classifier decides.
func (n *nodes) languageDetect(_ context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	lang, confident := classify.DetectLanguage(s.RawQuery)
	if !confident {
		return &gamecraft.Delta{}, nil
	}
	return &gamecraft.Delta{Language: lang}, nil
}

func (n *nodes) classify(ctx context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	c, err := n.deps.Classifier.Classify(ctx, s.RawQuery)
	if err != nil {
		return nil, err
	}
	// The lexical pass may have claimed the language already; the slot
	// is write-once, so it wins over the classifier's guess.
	lang := s.Language
	if lang == "" {
		lang = c.Language
	}
	d := &gamecraft.Delta{
		ContentType: c.ContentType,
		Confidence:  &c.Confidence,
		Params: &gamecraft.Params{
			DurationMinutes: n.cfg.DefaultDurationMinutes,
			TargetName:      c.GameName,
			SourceURL:       c.VideoURL,
			Format:          c.Format,
			Language:        lang,
		},
	}
	if s.Language == "" {
		d.Language = c.Language
	}
	return d, nil
}

// route decides the research branch after classification. Low confidence
// goes to clarify regardless of the guessed content type.
func (n *nodes) route(s *gamecraft.State) string {
	if s.Confidence < n.cfg.ConfidenceThreshold {
		return nodeClarify
	}
	if s.ContentType == gamecraft.ContentTypeEvent {
		return slotEventAnalysis
	}
	return groupGameResearch
}

// clarify terminates ambiguous requests. It always raises so the error
// path assembles the degraded, warnings-only result asking the caller to
// rephrase.
func (n *nodes) clarify(_ context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	return nil, gamecraft.NewError(nodeClarify, gamecraft.KindClassificationAmbiguous,
		fmt.Sprintf("confidence %.2f is below %.2f, please rephrase the request with a specific game or event",
			s.Confidence, n.cfg.ConfidenceThreshold), nil)
}

// providerNode wraps a research provider as a cacheable graph node whose
// delta lands in the provider's own fan-out slot.
func (n *nodes) providerNode(p research.Provider, cat cache.Category, key graph.KeyFunc, decode graph.DecodeFunc, fallback graph.RunFunc) *graph.Node {
	return &graph.Node{
		Name: p.Name(),
		Run: func(ctx context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
			payload, err := p.Fetch(ctx, s.Params)
			if err != nil {
				return nil, err
			}
			return &gamecraft.Delta{Branch: p.Name(), BranchResult: payload}, nil
		},
		Fallback: fallback,
		CacheKey: key,
		Category: cat,
		Decode:   decode,
		Timeout:  n.cfg.ResearchTimeout,
		Retry:    n.cfg.Retry,
	}
}

func targetKey(s *gamecraft.State) string {
	return strings.ToLower(strings.TrimSpace(s.Params.TargetName))
}

// mediaKey separates cached media per language: a French request must
// not be served assets searched with English relevance.
func mediaKey(s *gamecraft.State) string {
	name := targetKey(s)
	if name == "" {
		return ""
	}
	return name + "|" + string(s.Params.Language)
}

func sourceKey(s *gamecraft.State) string {
	return s.Params.SourceURL
}

// metadataFallback supplies a minimal metadata record when the provider
// is down, so generation can still produce something anchored to the
// requested game.
func (n *nodes) metadataFallback(_ context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	name := strings.TrimSpace(s.Params.TargetName)
	if name == "" {
		return nil, gamecraft.NewError(slotGameMetadata, gamecraft.KindDataNotFound,
			"no game name to fall back on", nil)
	}
	return &gamecraft.Delta{
		Branch:       slotGameMetadata,
		BranchResult: &gamecraft.GameInfo{Name: name},
	}, nil
}

// merge validates the fan-in: each filled slot must carry its expected
// type, and each missing slot becomes a warning the final output keeps.
func (n *nodes) merge(_ context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	var expected []string
	if s.ContentType == gamecraft.ContentTypeEvent {
		expected = []string{slotEventAnalysis}
	} else {
		expected = []string{slotGameMetadata, slotReviewScores, slotMediaSearch}
	}

	var warnings []string
	for _, slot := range expected {
		raw, ok := s.BranchResults[slot]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s unavailable, continuing without it", slot))
			continue
		}
		var typed bool
		switch slot {
		case slotGameMetadata:
			_, typed = raw.(*gamecraft.GameInfo)
		case slotReviewScores:
			_, typed = raw.([]gamecraft.ReviewScore)
		case slotMediaSearch:
			_, typed = raw.([]gamecraft.MediaAsset)
		case slotEventAnalysis:
			_, typed = raw.(*gamecraft.EventInfo)
		}
		if !typed {
			return nil, gamecraft.NewError(nodeMerge, gamecraft.KindValidationFailed,
				fmt.Sprintf("slot %q holds %T", slot, raw), nil)
		}
	}
	return &gamecraft.Delta{Warnings: warnings}, nil
}

// templateSelect pins the output format and duration before generation.
func (n *nodes) templateSelect(_ context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	params := s.Params
	if params.Format == "" {
		if s.ContentType == gamecraft.ContentTypeEvent {
			params.Format = "summary"
		} else {
			params.Format = "review"
		}
	}
	if params.DurationMinutes <= 0 {
		params.DurationMinutes = n.cfg.DefaultDurationMinutes
	}
	return &gamecraft.Delta{Params: &params}, nil
}

func (n *nodes) generate(ctx context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	req := generate.Request{
		Query:           s.RawQuery,
		ContentType:     s.ContentType,
		Language:        s.Language,
		Format:          s.Params.Format,
		DurationMinutes: s.Params.DurationMinutes,
		Game:            gameSlot(s),
		Reviews:         reviewSlot(s),
		Media:           mediaSlot(s),
		Event:           eventSlot(s),
		Feedback:        s.Feedback,
	}
	script, err := n.deps.Writer.Write(ctx, req)
	if err != nil {
		return nil, err
	}
	return &gamecraft.Delta{Generated: script, Regenerated: s.Generated != nil}, nil
}

// qualityGate scores the draft against the researched facts. A failing
// verdict after the regeneration cap raises so the error path ships a
// degraded result instead of looping.
func (n *nodes) qualityGate(_ context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	report := quality.Evaluate(s.Generated, n.facts(s))
	verdict := quality.Decide(n.cfg.Quality, report.Score, s.RegenerationCount, s.MaxRegenerations)
	if verdict == quality.VerdictFail {
		return nil, gamecraft.NewError(nodeQualityGate, gamecraft.KindRegenerationExhausted,
			fmt.Sprintf("score %.2f still below threshold after %d regenerations",
				report.Score, s.RegenerationCount), nil)
	}
	passed := verdict == quality.VerdictPass
	d := &gamecraft.Delta{QualityScore: &report.Score, QualityPassed: &passed}
	if verdict == quality.VerdictRegenerate {
		d.Feedback = report.Feedback
	}
	return d, nil
}

// afterQuality routes on the verdict the gate recorded. The reformat
// pass is structural, so once its marker is present an enhance verdict
// ships rather than reformatting again.
func (n *nodes) afterQuality(s *gamecraft.State) string {
	verdict := quality.Decide(n.cfg.Quality, s.QualityScore, s.RegenerationCount, s.MaxRegenerations)
	switch verdict {
	case quality.VerdictPass:
		return nodeThumbnailCoach
	case quality.VerdictEnhance:
		if n.deps.Enhancer == nil || slices.Contains(s.Warnings, enhanceMarker) {
			return nodeThumbnailCoach
		}
		return nodeFormatRetry
	default:
		return nodeGenerate
	}
}

func (n *nodes) formatRetry(ctx context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	enhanced := n.deps.Enhancer.Enhance(ctx, s.Generated)
	return &gamecraft.Delta{Generated: enhanced, Warnings: []string{enhanceMarker}}, nil
}

func (n *nodes) thumbnailCoach(ctx context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	if n.deps.Coach == nil {
		return &gamecraft.Delta{}, nil
	}
	suggestions, err := n.deps.Coach.Suggest(ctx, s.Generated)
	if err != nil {
		return nil, err
	}
	return &gamecraft.Delta{Thumbnails: suggestions}, nil
}

// thumbnailFallback keeps suggestions best-effort: a coach failure costs
// a warning, never the whole request.
func (n *nodes) thumbnailFallback(context.Context, *gamecraft.State) (*gamecraft.Delta, error) {
	return &gamecraft.Delta{}, nil
}

func (n *nodes) compile(_ context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	return &gamecraft.Delta{Final: &gamecraft.Output{
		Script:     s.Generated,
		Game:       gameSlot(s),
		Media:      mediaSlot(s),
		Reviews:    reviewSlot(s),
		Event:      eventSlot(s),
		Thumbnails: s.Thumbnails,
		Warnings:   s.Warnings,
	}}, nil
}

// errorHandler translates the accumulated errors into caller-facing
// warnings before the degraded compile.
func (n *nodes) errorHandler(_ context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	warnings := make([]string, 0, len(s.Errors))
	for _, e := range s.Errors {
		if e.Node != "" {
			warnings = append(warnings, fmt.Sprintf("%s failed: %s", e.Node, e.Msg))
		} else {
			warnings = append(warnings, fmt.Sprintf("request aborted: %s", e.Msg))
		}
	}
	return &gamecraft.Delta{Warnings: warnings}, nil
}

// degradedCompile assembles whatever survived. After a non-recoverable
// error there is no trustworthy content, so the output carries warnings
// only.
func (n *nodes) degradedCompile(_ context.Context, s *gamecraft.State) (*gamecraft.Delta, error) {
	out := &gamecraft.Output{Warnings: s.Warnings}
	fatal := false
	for _, e := range s.Errors {
		if !e.Recoverable() {
			fatal = true
			break
		}
	}
	if !fatal {
		out.Script = s.Generated
		out.Game = gameSlot(s)
		out.Media = mediaSlot(s)
		out.Reviews = reviewSlot(s)
		out.Event = eventSlot(s)
		out.Thumbnails = s.Thumbnails
	}
	return &gamecraft.Delta{Degraded: out}, nil
}

func (n *nodes) facts(s *gamecraft.State) quality.Facts {
	return quality.Facts{
		ContentType:     s.ContentType,
		DurationMinutes: s.Params.DurationMinutes,
		Game:            gameSlot(s),
		Reviews:         reviewSlot(s),
		Event:           eventSlot(s),
	}
}

func gameSlot(s *gamecraft.State) *gamecraft.GameInfo {
	v, _ := s.BranchResults[slotGameMetadata].(*gamecraft.GameInfo)
	return v
}

func reviewSlot(s *gamecraft.State) []gamecraft.ReviewScore {
	v, _ := s.BranchResults[slotReviewScores].([]gamecraft.ReviewScore)
	return v
}

func mediaSlot(s *gamecraft.State) []gamecraft.MediaAsset {
	v, _ := s.BranchResults[slotMediaSearch].([]gamecraft.MediaAsset)
	return v
}

func eventSlot(s *gamecraft.State) *gamecraft.EventInfo {
	v, _ := s.BranchResults[slotEventAnalysis].(*gamecraft.EventInfo)
	return v
}
