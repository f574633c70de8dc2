package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ragchat-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	scores []float64
	err    error
}

func (s *stubScorer) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.scores, nil
}

func docs(contents ...string) []models.Document {
	out := make([]models.Document, len(contents))
	for i, c := range contents {
		out[i] = models.Document{Content: c}
	}
	return out
}

func contents(in []models.Document) []string {
	out := make([]string, len(in))
	for i, d := range in {
		out[i] = d.Text()
	}
	return out
}

func TestRerankOrdersByScore(t *testing.T) {
	r := NewReranker(&stubScorer{scores: []float64{0.1, 0.9, 0.5}})

	got := r.Rerank(context.Background(), "q", docs("a", "b", "c"), 3)
	assert.Equal(t, []string{"b", "c", "a"}, contents(got))
}

func TestRerankTruncates(t *testing.T) {
	r := NewReranker(&stubScorer{scores: []float64{0.1, 0.9, 0.5, 0.7}})

	got := r.Rerank(context.Background(), "q", docs("a", "b", "c", "d"), 2)
	assert.Equal(t, []string{"b", "d"}, contents(got))
}

func TestRerankStableOnTies(t *testing.T) {
	r := NewReranker(&stubScorer{scores: []float64{0.5, 0.5, 0.5}})

	got := r.Rerank(context.Background(), "q", docs("a", "b", "c"), 3)
	assert.Equal(t, []string{"a", "b", "c"}, contents(got))
}

func TestRerankIsPermutation(t *testing.T) {
	input := docs("a", "b", "c", "d", "e")
	r := NewReranker(&stubScorer{scores: []float64{3, 1, 4, 1, 5}})

	got := r.Rerank(context.Background(), "q", input, 5)
	assert.ElementsMatch(t, contents(input), contents(got))
	// Input order untouched.
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, contents(input))
}

func TestRerankWithoutScorer(t *testing.T) {
	r := NewReranker(nil)

	got := r.Rerank(context.Background(), "q", docs("a", "b", "c"), 2)
	assert.Equal(t, []string{"a", "b"}, contents(got))
}

func TestRerankScorerFailureDegrades(t *testing.T) {
	r := NewReranker(&stubScorer{err: errors.New("model offline")})

	got := r.Rerank(context.Background(), "q", docs("a", "b", "c"), 2)
	assert.Equal(t, []string{"a", "b"}, contents(got))
}

func TestRerankEmptyInput(t *testing.T) {
	r := NewReranker(&stubScorer{})
	assert.Empty(t, r.Rerank(context.Background(), "q", nil, 5))
}

func TestHTTPScorer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "q", req["query"])
		json.NewEncoder(w).Encode(map[string]interface{}{"scores": []float64{0.2, 0.8}})
	}))
	defer server.Close()

	scorer := NewHTTPScorer(server.URL)
	scores, err := scorer.Score(context.Background(), "q", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.8}, scores)
}

func TestHTTPScorerLengthMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"scores": []float64{0.2}})
	}))
	defer server.Close()

	scorer := NewHTTPScorer(server.URL)
	_, err := scorer.Score(context.Background(), "q", []string{"a", "b"})
	assert.Error(t, err)
}
