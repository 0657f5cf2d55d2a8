package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gargarushee/VisualMemorySearch/internal/config"
	"github.com/go-resty/resty/v2"
)

// JinaEmbedder produces text embeddings via the Jina embeddings API or
// any endpoint speaking the same request shape.
type JinaEmbedder struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
	enabled    bool
}

// NewJinaEmbedder creates an embedder from configuration. Without an API
// key the embedder is disabled and every call returns ErrEmbeddingFailed,
// which callers handle by falling back to a lexical embedding.
func NewJinaEmbedder(cfg *config.EmbeddingConfig) *JinaEmbedder {
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 384
	}

	if cfg.APIKey == "" {
		return &JinaEmbedder{dimensions: dims, model: cfg.Model, enabled: false}
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(30 * time.Second)

	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = "https://api.jina.ai/v1/embeddings"
	}

	return &JinaEmbedder{
		client:     client,
		endpoint:   endpoint,
		model:      cfg.Model,
		dimensions: dims,
		enabled:    true,
	}
}

type jinaEmbedRequest struct {
	Model      string   `json:"model"`
	Task       string   `json:"task,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
	Input      []string `json:"input"`
}

type jinaEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// Embed returns the embedding for document text.
func (e *JinaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text, "retrieval.passage")
}

// EmbedQuery returns the embedding for a search query. Queries and
// documents use different task types so the model can embed them
// asymmetrically.
func (e *JinaEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return e.embed(ctx, query, "retrieval.query")
}

func (e *JinaEmbedder) embed(ctx context.Context, text, task string) ([]float32, error) {
	if !e.enabled {
		return nil, fmt.Errorf("%w: no API key configured", ErrEmbeddingFailed)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty input", ErrEmbeddingFailed)
	}

	req := jinaEmbedRequest{
		Model:      e.model,
		Task:       task,
		Dimensions: e.dimensions,
		Input:      []string{text},
	}

	var resp jinaEmbedResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(e.endpoint)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrEmbeddingFailed, httpResp.StatusCode(), string(httpResp.Body()))
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrEmbeddingFailed)
	}

	vec := resp.Data[0].Embedding
	if len(vec) != e.dimensions {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", ErrEmbeddingFailed, e.dimensions, len(vec))
	}
	return vec, nil
}

// Dimensions returns the embedding vector size.
func (e *JinaEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns the embedding model name.
func (e *JinaEmbedder) Model() string {
	if !e.enabled {
		return "lexical-fallback"
	}
	return e.model
}
