// Package embed requests text embeddings from an OpenAI compatible API.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/your-org/jailcrawler/internal/config"
	"github.com/your-org/jailcrawler/internal/models"
	"github.com/your-org/jailcrawler/internal/observability"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewClient(cfg config.EmbeddingConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &models.InternalError{Detail: "embedding api key is required"}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = models.EmbeddingDimensions
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: dims,
	}, nil
}

// Embed returns the vector for text. A vector of the wrong length is an
// InternalError since the store column has a fixed width.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := c.embed(ctx, text)
	if err != nil {
		observability.EmbeddingRequests.WithLabelValues("failed").Inc()
		return nil, err
	}
	observability.EmbeddingRequests.WithLabelValues("ok").Inc()
	return vec, nil
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &models.InternalError{Detail: "embedding input is empty"}
	}

	reqBody := embeddingRequest{Model: c.model, Input: []string{text}}
	if strings.HasPrefix(c.model, "text-embedding-3") {
		reqBody.Dimensions = c.dimensions
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &models.InternalError{Detail: "marshal embedding request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, &models.InternalError{Detail: "build embedding request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding request: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read embedding response: %v", models.ErrNetwork, err)
	}

	var out embeddingResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &models.InternalError{Detail: fmt.Sprintf("decode embedding response (status %d)", resp.StatusCode), Err: err}
	}
	if out.Error != nil {
		return nil, &models.InternalError{Detail: "embedding service: " + out.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &models.InternalError{Detail: fmt.Sprintf("embedding service returned status %d", resp.StatusCode)}
	}
	if len(out.Data) == 0 {
		return nil, &models.InternalError{Detail: "embedding service returned no vectors"}
	}

	raw := out.Data[0].Embedding
	if len(raw) != c.dimensions {
		return nil, &models.InternalError{Detail: fmt.Sprintf("embedding has %d dimensions, want %d", len(raw), c.dimensions)}
	}
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}
