package gamecraft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestApplyClassificationWriteOnce(t *testing.T) {
	s := NewState("hades review", 2)

	require.NoError(t, s.Apply("classify", &Delta{
		Language:    LanguageEnglish,
		ContentType: ContentTypeGame,
		Confidence:  floatPtr(0.93),
	}))
	assert.Equal(t, LanguageEnglish, s.Language)
	assert.Equal(t, ContentTypeGame, s.ContentType)
	assert.Equal(t, 0.93, s.Confidence)

	// Re-writing the same values is a no-op, not a violation.
	require.NoError(t, s.Apply("classify", &Delta{Language: LanguageEnglish}))

	err := s.Apply("rogue", &Delta{ContentType: ContentTypeEvent})
	require.Error(t, err)
	assert.Equal(t, KindValidationFailed, KindOf(err))

	err = s.Apply("rogue", &Delta{Language: LanguageFrench})
	require.Error(t, err)
	assert.Equal(t, KindValidationFailed, KindOf(err))
}

func TestApplyBranchSlotsWriteOnce(t *testing.T) {
	s := NewState("q", 2)

	require.NoError(t, s.Apply("metadata", &Delta{Branch: "metadata", BranchResult: "a"}))
	err := s.Apply("metadata", &Delta{Branch: "metadata", BranchResult: "b"})
	require.Error(t, err)
	assert.Equal(t, KindValidationFailed, KindOf(err))
	assert.Equal(t, "a", s.BranchResults["metadata"])
}

func TestApplyRegenerationCap(t *testing.T) {
	s := NewState("q", 2)

	require.NoError(t, s.Apply("generate", &Delta{Generated: &Script{Title: "v1"}}))
	require.NoError(t, s.Apply("generate", &Delta{Generated: &Script{Title: "v2"}, Regenerated: true}))
	require.NoError(t, s.Apply("generate", &Delta{Generated: &Script{Title: "v3"}, Regenerated: true}))
	assert.Equal(t, 2, s.RegenerationCount)

	err := s.Apply("generate", &Delta{Generated: &Script{Title: "v4"}, Regenerated: true})
	require.Error(t, err)
	assert.Equal(t, KindRegenerationExhausted, KindOf(err))
	assert.Equal(t, 2, s.RegenerationCount)
	assert.Equal(t, "v3", s.Generated.Title)
}

func TestApplyTerminalExclusivity(t *testing.T) {
	s := NewState("q", 2)
	require.NoError(t, s.Apply("compile", &Delta{Final: &Output{}}))
	assert.True(t, s.Terminal())

	err := s.Apply("degraded_compile", &Delta{Degraded: &Output{}})
	require.Error(t, err)
	assert.Equal(t, KindValidationFailed, KindOf(err))

	s2 := NewState("q", 2)
	err = s2.Apply("compile", &Delta{Final: &Output{}, Degraded: &Output{}})
	require.Error(t, err)
	assert.False(t, s2.Terminal())
}

func TestApplyAppendsSlices(t *testing.T) {
	s := NewState("q", 2)
	require.NoError(t, s.Apply("a", &Delta{Warnings: []string{"w1"}, Feedback: []string{"f1"}}))
	require.NoError(t, s.Apply("b", &Delta{Warnings: []string{"w2"}}))
	assert.Equal(t, []string{"w1", "w2"}, s.Warnings)
	assert.Equal(t, []string{"f1"}, s.Feedback)

	require.NoError(t, s.Apply("c", nil))
	assert.Equal(t, []string{"w1", "w2"}, s.Warnings)
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewState("q", 2)
	require.NoError(t, s.Apply("metadata", &Delta{Branch: "metadata", BranchResult: "a"}))
	s.RecordExecuted("metadata")
	s.Warnings = append(s.Warnings, "w")

	snap := s.Snapshot()
	snap.BranchResults["rogue"] = "x"
	snap.Warnings = append(snap.Warnings, "rogue")
	snap.ExecutedNodes = append(snap.ExecutedNodes, "rogue")

	assert.NotContains(t, s.BranchResults, "rogue")
	assert.Equal(t, []string{"w"}, s.Warnings)
	assert.Equal(t, []string{"metadata"}, s.ExecutedNodes)
	assert.Equal(t, s.RequestID, snap.RequestID)
}

func TestResultAssembly(t *testing.T) {
	s := NewState("q", 2)
	require.NoError(t, s.Apply("classify", &Delta{
		Language:    LanguageFrench,
		ContentType: ContentTypeEvent,
	}))
	s.RecordExecuted("classify")

	require.NoError(t, s.Apply("compile", &Delta{Final: &Output{Script: &Script{Title: "t"}}}))
	r := s.Result()
	assert.True(t, r.Success)
	assert.False(t, r.Degraded)
	assert.Equal(t, "t", r.Output.Script.Title)
	assert.Equal(t, LanguageFrench, r.Language)
	assert.Equal(t, ContentTypeEvent, r.ContentType)
	assert.NotEmpty(t, r.RequestID)
	assert.Equal(t, []string{"classify"}, r.ExecutedNodes)

	s2 := NewState("q", 2)
	s2.RecordError(NewError("n", KindDataNotFound, "x", nil))
	require.NoError(t, s2.Apply("degraded_compile", &Delta{Degraded: &Output{Warnings: []string{"partial"}}}))
	r2 := s2.Result()
	assert.False(t, r2.Success)
	assert.True(t, r2.Degraded)
	require.Len(t, r2.Errors, 1)
}
