package classify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/gamecraft"
	"github.com/spetersoncode/gamecraft/llm"
)

// mockClient returns canned responses and counts calls.
type mockClient struct {
	calls    atomic.Int32
	response string
	err      error
}

func (m *mockClient) Complete(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Response, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Content: m.response, Model: "mock"}, nil
}

func TestClassifyGameQuery(t *testing.T) {
	client := &mockClient{response: `{
		"relevant": true,
		"reason": "game review request",
		"language": "en",
		"content_type": "game",
		"confidence": 0.93,
		"game_name": "Hades II",
		"video_url": "",
		"format": "review"
	}`}

	c, err := New(client).Classify(context.Background(), "Create a review of Hades II")
	require.NoError(t, err)
	assert.Equal(t, gamecraft.LanguageEnglish, c.Language)
	assert.Equal(t, gamecraft.ContentTypeGame, c.ContentType)
	assert.Equal(t, 0.93, c.Confidence)
	assert.Equal(t, "Hades II", c.GameName)
	assert.Equal(t, "review", c.Format)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestClassifyFrenchEventQuery(t *testing.T) {
	client := &mockClient{response: `{
		"relevant": true,
		"reason": "event summary",
		"language": "fr",
		"content_type": "EVENT",
		"confidence": 0.88,
		"game_name": "",
		"video_url": "https://youtube.com/watch?v=abc123",
		"format": "summary"
	}`}

	c, err := New(client).Classify(context.Background(), "Résume le Nintendo Direct")
	require.NoError(t, err)
	assert.Equal(t, gamecraft.LanguageFrench, c.Language)
	assert.Equal(t, gamecraft.ContentTypeEvent, c.ContentType)
	assert.Equal(t, "https://youtube.com/watch?v=abc123", c.VideoURL)
	assert.Equal(t, "summary", c.Format)
}

func TestClassifyIrrelevantQueryIsAmbiguous(t *testing.T) {
	client := &mockClient{response: `{"relevant": false, "reason": "cooking question"}`}

	_, err := New(client).Classify(context.Background(), "How to cook pasta")
	require.Error(t, err)
	assert.Equal(t, gamecraft.KindClassificationAmbiguous, gamecraft.KindOf(err))
	assert.Contains(t, err.Error(), "cooking question")
}

func TestClassifyUnparseableResponseIsAmbiguous(t *testing.T) {
	client := &mockClient{response: "I cannot classify that."}

	_, err := New(client).Classify(context.Background(), "some query")
	require.Error(t, err)
	assert.Equal(t, gamecraft.KindClassificationAmbiguous, gamecraft.KindOf(err))
}

func TestClassifyUnknownContentTypeIsAmbiguous(t *testing.T) {
	client := &mockClient{response: `{"relevant": true, "content_type": "podcast", "confidence": 0.9}`}

	_, err := New(client).Classify(context.Background(), "some query")
	require.Error(t, err)
	assert.Equal(t, gamecraft.KindClassificationAmbiguous, gamecraft.KindOf(err))
}

func TestClassifyClientErrorPassesThroughTaxonomy(t *testing.T) {
	client := &mockClient{err: errors.New("connection refused")}

	_, err := New(client).Classify(context.Background(), "review Hades")
	require.Error(t, err)
	assert.Equal(t, gamecraft.KindUpstreamUnavailable, gamecraft.KindOf(err))
}

func TestClassifyNormalizesSloppyFields(t *testing.T) {
	client := &mockClient{response: `{
		"relevant": true,
		"language": "FRENCH",
		"content_type": " game ",
		"confidence": 0.8,
		"game_name": "\"Elden Ring\"",
		"video_url": "not a url",
		"format": "Documentary"
	}`}

	c, err := New(client).Classify(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, gamecraft.LanguageFrench, c.Language)
	assert.Equal(t, gamecraft.ContentTypeGame, c.ContentType)
	assert.Equal(t, "Elden Ring", c.GameName)
	assert.Empty(t, c.VideoURL, "non-http URLs are dropped")
	assert.Equal(t, "review", c.Format, "unknown formats default to review")
}

func TestDetectLanguage(t *testing.T) {
	lang, ok := DetectLanguage("Fais une critique de Final Fantasy XVI")
	assert.True(t, ok)
	assert.Equal(t, gamecraft.LanguageFrench, lang)

	lang, ok = DetectLanguage("Create a review of Zelda Breath of the Wild")
	assert.True(t, ok)
	assert.Equal(t, gamecraft.LanguageEnglish, lang)

	// A single weak marker is not enough signal either way.
	_, ok = DetectLanguage("preview des")
	assert.False(t, ok)
}
