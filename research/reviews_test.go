package research

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/gamecraft"
)

func newReviewServer(t *testing.T, gameBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/game/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Hades II", r.URL.Query().Get("criteria"))
		w.Write([]byte(`[{"id": 4504, "name": "Hades II"}]`))
	})
	mux.HandleFunc("/game/4504", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(gameBody))
	})
	return httptest.NewServer(mux)
}

func TestReviewFetch(t *testing.T) {
	srv := newReviewServer(t, `{
		"name": "Hades II",
		"topCriticScore": 93.2,
		"medianScore": 94,
		"percentRecommended": 98.7,
		"numReviews": 87,
		"url": "https://opencritic.com/game/4504/hades-ii"
	}`)
	defer srv.Close()

	p := NewReviewProvider(WithReviewBaseURL(srv.URL))
	got, err := p.Fetch(context.Background(), gamecraft.Params{TargetName: "Hades II"})
	require.NoError(t, err)

	scores, ok := got.([]gamecraft.ReviewScore)
	require.True(t, ok)
	require.Len(t, scores, 3)
	assert.Equal(t, "93", scores[0].Score)
	assert.Equal(t, "100", scores[0].MaxScore)
	assert.Equal(t, "94", scores[1].Score)
	assert.Equal(t, "99", scores[2].Score)
}

func TestReviewFetchUnreviewedGameIsDataNotFound(t *testing.T) {
	srv := newReviewServer(t, `{"name": "Hades II", "numReviews": 0}`)
	defer srv.Close()

	p := NewReviewProvider(WithReviewBaseURL(srv.URL))
	_, err := p.Fetch(context.Background(), gamecraft.Params{TargetName: "Hades II"})
	require.Error(t, err)
	assert.Equal(t, gamecraft.KindDataNotFound, gamecraft.KindOf(err))
}

func TestReviewFetchNoSearchHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := NewReviewProvider(WithReviewBaseURL(srv.URL))
	_, err := p.Fetch(context.Background(), gamecraft.Params{TargetName: "Nothing"})
	require.Error(t, err)
	assert.Equal(t, gamecraft.KindDataNotFound, gamecraft.KindOf(err))
}

func TestReviewFetchServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewReviewProvider(WithReviewBaseURL(srv.URL))
	_, err := p.Fetch(context.Background(), gamecraft.Params{TargetName: "g"})
	require.Error(t, err)
	assert.Equal(t, gamecraft.KindUpstreamUnavailable, gamecraft.KindOf(err))
}
