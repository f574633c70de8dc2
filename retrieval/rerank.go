package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"ragchat-backend/models"
)

// Scorer rates the relevance of candidate texts against a query. Scores are
// positionally aligned with the input texts.
type Scorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Reranker reorders retrieval candidates with a cross-encoder scorer. With
// no scorer configured it degrades to head-of-list truncation so the
// pipeline stays usable without the optional model.
type Reranker struct {
	scorer Scorer
}

// NewReranker creates a Reranker; scorer may be nil.
func NewReranker(scorer Scorer) *Reranker {
	return &Reranker{scorer: scorer}
}

// Rerank scores each (query, document text) pair, stable-sorts the
// documents by descending score and returns the first topN. The input slice
// is never mutated. If scoring is unavailable or fails, the first topN
// documents are returned in retrieval order.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []models.Document, topN int) []models.Document {
	if len(docs) == 0 {
		return []models.Document{}
	}
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}
	if r.scorer == nil {
		return append([]models.Document{}, docs[:topN]...)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text()
	}

	scores, err := r.scorer.Score(ctx, query, texts)
	if err != nil || len(scores) != len(docs) {
		return append([]models.Document{}, docs[:topN]...)
	}

	ranked := make([]models.RankedDocument, len(docs))
	for i, doc := range docs {
		ranked[i] = models.RankedDocument{Document: doc, Score: scores[i]}
	}
	// Stable: ties keep original retrieval order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	out := make([]models.Document, topN)
	for i := 0; i < topN; i++ {
		out[i] = ranked[i].Document
	}
	return out
}

// HTTPScorer scores pairs through a cross-encoder rerank endpoint.
type HTTPScorer struct {
	url    string
	client *http.Client
}

// NewHTTPScorer creates a scorer for the given rerank endpoint URL.
func NewHTTPScorer(url string) *HTTPScorer {
	return &HTTPScorer{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type scoreRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

// Score implements Scorer.
func (s *HTTPScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	data, err := json.Marshal(scoreRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank API error: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed scoreResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Scores) != len(texts) {
		return nil, fmt.Errorf("rerank API returned %d scores for %d texts", len(parsed.Scores), len(texts))
	}
	return parsed.Scores, nil
}
