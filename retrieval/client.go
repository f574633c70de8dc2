// Package retrieval talks to the external vector-store service: document
// search, dialogue generation and a pluggable cross-encoder reranker.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragchat-backend/models"
)

// Client issues search and dialogue calls against the vector-store HTTP API.
// Each call carries its own timeout so searches stay responsive while the
// service is under ingestion load.
type Client struct {
	baseURL         string
	token           string
	metricType      string
	defaultTopK     int
	searchClient    *http.Client
	dialogueClient  *http.Client
	defaultMaxToken int
}

// ClientOption is a functional option for Client.
type ClientOption func(*Client)

// WithMetricType overrides the similarity metric sent with searches.
func WithMetricType(metric string) ClientOption {
	return func(c *Client) {
		c.metricType = metric
	}
}

// WithDefaultTopK sets the top_k used when a caller passes topK <= 0.
func WithDefaultTopK(topK int) ClientOption {
	return func(c *Client) {
		c.defaultTopK = topK
	}
}

// WithSearchTimeout sets the timeout for search calls.
func WithSearchTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.searchClient.Timeout = d
	}
}

// WithDialogueTimeout sets the timeout for dialogue calls.
func WithDialogueTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.dialogueClient.Timeout = d
	}
}

// NewClient creates a Client for the given service base URL and token.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:         baseURL,
		token:           token,
		metricType:      "cosine",
		defaultTopK:     3,
		searchClient:    &http.Client{Timeout: 15 * time.Second},
		dialogueClient:  &http.Client{Timeout: 60 * time.Second},
		defaultMaxToken: 1024,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	Token      string `json:"token"`
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	MetricType string `json:"metric_type"`
	Expr       string `json:"expr,omitempty"`
}

type searchResponse struct {
	Files   []models.Document `json:"files"`
	Results []models.Document `json:"results"`
}

// Search queries a database for the topK most similar documents. A response
// with a malformed or missing document list is treated as an empty result
// set, not an error.
func (c *Client) Search(ctx context.Context, dbName, query string, topK int) ([]models.Document, error) {
	return c.SearchExpr(ctx, dbName, query, topK, "")
}

// SearchExpr is Search with an optional metadata filter expression.
func (c *Client) SearchExpr(ctx context.Context, dbName, query string, topK int, expr string) ([]models.Document, error) {
	if topK <= 0 {
		topK = c.defaultTopK
	}
	payload := searchRequest{
		Token:      c.token,
		Query:      query,
		TopK:       topK,
		MetricType: c.metricType,
		Expr:       expr,
	}

	body, err := c.post(ctx, c.searchClient, fmt.Sprintf("%s/databases/%s/search", c.baseURL, dbName), payload)
	if err != nil {
		return nil, fmt.Errorf("search API error: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return []models.Document{}, nil
	}
	if resp.Files != nil {
		return resp.Files, nil
	}
	if resp.Results != nil {
		return resp.Results, nil
	}
	return []models.Document{}, nil
}

type dialogueRequest struct {
	UserInput string `json:"user_input"`
	Token     string `json:"token"`
	MaxTokens int    `json:"max_tokens"`
}

type dialogueResponse struct {
	Response string `json:"response"`
}

// Dialogue sends a fully assembled prompt to the generation endpoint and
// returns the model's reply. A missing response field yields an empty
// string.
func (c *Client) Dialogue(ctx context.Context, prompt string) (string, error) {
	payload := dialogueRequest{
		UserInput: prompt,
		Token:     c.token,
		MaxTokens: c.defaultMaxToken,
	}

	body, err := c.post(ctx, c.dialogueClient, c.baseURL+"/dialogue", payload)
	if err != nil {
		return "", fmt.Errorf("dialogue API error: %w", err)
	}

	var resp dialogueResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil
	}
	return resp.Response, nil
}

type createDatabaseRequest struct {
	DatabaseName string `json:"database_name"`
	Token        string `json:"token"`
	MetricType   string `json:"metric_type"`
}

// CreateDatabase provisions a database on the vector service.
func (c *Client) CreateDatabase(ctx context.Context, dbName string) error {
	payload := createDatabaseRequest{
		DatabaseName: dbName,
		Token:        c.token,
		MetricType:   c.metricType,
	}
	if _, err := c.post(ctx, c.searchClient, c.baseURL+"/databases", payload); err != nil {
		return fmt.Errorf("create database API error: %w", err)
	}
	return nil
}

// CorpusEntry is one document to ingest: raw text plus metadata.
type CorpusEntry struct {
	File     string                 `json:"file"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type uploadRequest struct {
	Files []CorpusEntry `json:"files"`
	Token string        `json:"token"`
}

// UploadFiles pushes a batch of corpus entries into a database.
func (c *Client) UploadFiles(ctx context.Context, dbName string, entries []CorpusEntry) error {
	payload := uploadRequest{Files: entries, Token: c.token}
	if _, err := c.post(ctx, c.dialogueClient, fmt.Sprintf("%s/databases/%s/files", c.baseURL, dbName), payload); err != nil {
		return fmt.Errorf("upload API error: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, client *http.Client, url string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
