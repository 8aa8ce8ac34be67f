// Package quality scores generated scripts and decides what the pipeline
// does with them: ship, reformat, regenerate with feedback, or give up.
// Scoring is deterministic; it checks the script against the research
// facts it was generated from rather than asking a model to grade itself.
package quality

import (
	"fmt"
	"strings"

	"github.com/spetersoncode/gamecraft"
)

// Verdict is the gate decision for one evaluated script.
type Verdict string

const (
	// VerdictPass ships the script as-is.
	VerdictPass Verdict = "pass"
	// VerdictEnhance keeps the content but reformats it.
	VerdictEnhance Verdict = "enhance"
	// VerdictRegenerate rejects the draft and regenerates with feedback.
	VerdictRegenerate Verdict = "regenerate"
	// VerdictFail gives up on generation; the pipeline degrades.
	VerdictFail Verdict = "fail"
)

// Config holds the gate thresholds.
type Config struct {
	// PassThreshold is the minimum score to ship, default 0.85.
	PassThreshold float64
	// EnhanceThreshold is the minimum score to reformat instead of
	// regenerating, default 0.70.
	EnhanceThreshold float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{PassThreshold: 0.85, EnhanceThreshold: 0.70}
}

// Facts is the research data the script was generated from.
type Facts struct {
	ContentType     gamecraft.ContentType
	DurationMinutes int
	Game            *gamecraft.GameInfo
	Reviews         []gamecraft.ReviewScore
	Event           *gamecraft.EventInfo
}

// Report is the outcome of evaluating one script.
type Report struct {
	Score        float64
	Completeness float64
	Accuracy     float64
	// Feedback names each defect; on regeneration it is appended to the
	// writer's input.
	Feedback []string
}

// wordsPerMinute is the low end of a spoken YouTube script; anything
// shorter cannot fill the requested duration.
const wordsPerMinute = 100

// Evaluate scores a script against the facts it was generated from.
// Score is the mean of a structural completeness check and an accuracy
// proxy measuring how much of the research data the script actually uses.
func Evaluate(script *gamecraft.Script, facts Facts) *Report {
	r := &Report{}
	if script == nil || script.Content == "" {
		r.Feedback = append(r.Feedback, "script is empty")
		return r
	}

	r.Completeness = completeness(script, facts, r)
	r.Accuracy = accuracy(script, facts, r)
	r.Score = (r.Completeness + r.Accuracy) / 2
	return r
}

func completeness(script *gamecraft.Script, facts Facts, r *Report) float64 {
	checks, passed := 0, 0

	check := func(ok bool, feedback string) {
		checks++
		if ok {
			passed++
		} else {
			r.Feedback = append(r.Feedback, feedback)
		}
	}

	check(script.Title != "", "script has no title")
	check(len(script.Timestamps) > 0, "script has no section timestamps")
	check(strings.Contains(script.Content, "["), "script sections are not timestamped")

	words := len(strings.Fields(script.Content))
	wanted := facts.DurationMinutes * wordsPerMinute
	check(wanted == 0 || words >= wanted/2,
		fmt.Sprintf("script is too short for %d minutes (%d words)", facts.DurationMinutes, words))

	// A closing call to action is part of every format.
	lower := strings.ToLower(script.Content)
	check(strings.Contains(lower, "comment") || strings.Contains(lower, "commentaire"),
		"script has no closing call to action")

	return float64(passed) / float64(checks)
}

func accuracy(script *gamecraft.Script, facts Facts, r *Report) float64 {
	lower := strings.ToLower(script.Content + " " + script.Title)
	checks, passed := 0, 0

	mention := func(s, feedback string) {
		if s == "" {
			return
		}
		checks++
		if strings.Contains(lower, strings.ToLower(s)) {
			passed++
		} else {
			r.Feedback = append(r.Feedback, feedback)
		}
	}

	switch facts.ContentType {
	case gamecraft.ContentTypeGame:
		if facts.Game != nil {
			mention(facts.Game.Name, "script never names the game")
			mention(facts.Game.Developer, "script omits the developer")
			mention(facts.Game.Genre, "script omits the genre")
		}
		if len(facts.Reviews) > 0 {
			mention(facts.Reviews[0].Score, "script omits the critic scores")
		}
	case gamecraft.ContentTypeEvent:
		if facts.Event != nil {
			mention(facts.Event.Title, "script never names the event")
			for i, g := range facts.Event.AnnouncedGames {
				if i >= 3 {
					break
				}
				mention(g, fmt.Sprintf("script omits announced game %q", g))
			}
		}
	}

	if checks == 0 {
		// Nothing to verify against; structure is all we have.
		return 1
	}
	return float64(passed) / float64(checks)
}

// Decide maps a score onto the gate verdict given how many regenerations
// the request has already spent.
func Decide(cfg Config, score float64, regenerations, maxRegenerations int) Verdict {
	switch {
	case score >= cfg.PassThreshold:
		return VerdictPass
	case score >= cfg.EnhanceThreshold:
		return VerdictEnhance
	case regenerations < maxRegenerations:
		return VerdictRegenerate
	default:
		return VerdictFail
	}
}
