// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package embed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/datamesa/steamset/internal/config"
)

// Provider turns a batch of texts into one embedding per text, in order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// HTTPProvider calls a text-embeddings inference server. The request is
// {"model": ..., "inputs": [...]}; the response is either a bare array of
// vectors or an object carrying it under "embeddings".
type HTTPProvider struct {
	client   *http.Client
	endpoint string
	model    string
}

// NewHTTPProvider builds a provider against cfg's inference endpoint.
func NewHTTPProvider(cfg config.EmbeddingConfig) *HTTPProvider {
	return &HTTPProvider{
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
	}
}

type embedRequest struct {
	Model  string   `json:"model,omitempty"`
	Inputs []string `json:"inputs"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed sends one inference request for the whole batch.
func (p *HTTPProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: p.model, Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed server returned %d: %.200s", resp.StatusCode, payload)
	}

	// Bare-array form first; the wrapped form as fallback.
	var vectors [][]float32
	if err := json.Unmarshal(payload, &vectors); err == nil {
		return vectors, nil
	}
	var wrapped embedResponse
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	return wrapped.Embeddings, nil
}
