package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/veritaslegal/lexdraft-go/internal/oracle"
)

// GeminiEmbedder implements Embedder using the Google Generative Language
// batchEmbedContents REST API. It is safe for concurrent use.
type GeminiEmbedder struct {
	// baseURL is the API base (e.g. "https://generativelanguage.googleapis.com/v1beta").
	baseURL string
	// apiKey is sent via the x-goog-api-key header.
	apiKey string
	// model is the embedding model name (e.g. "text-embedding-004").
	model string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// GeminiConfig holds the settings for constructing a GeminiEmbedder.
type GeminiConfig struct {
	// BaseURL is the API base URL. Leave empty for the public endpoint.
	BaseURL string
	// APIKey is the Google AI Studio API key.
	APIKey string
	// Model is the embedding model name (e.g. "text-embedding-004").
	Model string
}

// NewGeminiEmbedder constructs a GeminiEmbedder from the given config.
func NewGeminiEmbedder(cfg *GeminiConfig) *GeminiEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiEmbedder{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// geminiEmbedRequest is the JSON body sent to the batchEmbedContents endpoint.
type geminiEmbedRequest struct {
	Requests []geminiEmbedContent `json:"requests"`
}

type geminiEmbedContent struct {
	Model   string `json:"model"`
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

// geminiEmbedResponse is the JSON body returned from the batchEmbedContents endpoint.
type geminiEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed converts a batch of texts into their corresponding embeddings.
// The returned slice is parallel to the input slice.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body := geminiEmbedRequest{Requests: make([]geminiEmbedContent, len(texts))}
	for i, text := range texts {
		req := geminiEmbedContent{Model: "models/" + e.model}
		req.Content.Parts = []struct {
			Text string `json:"text"`
		}{{Text: text}}
		body.Requests[i] = req
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: marshal request: %w", err)
	}

	url := e.baseURL + "/models/" + e.model + ":batchEmbedContents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, oracle.Classify("embed", fmt.Errorf("gemini embedder: request failed: %w", err))
	}
	defer resp.Body.Close()

	var result geminiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, oracle.Classify("embed", fmt.Errorf("gemini embedder: decode response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, oracle.Classify("embed", fmt.Errorf("gemini embedder: %s (HTTP %d)", msg, resp.StatusCode))
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embedder: expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	embeddings := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		embeddings[i] = emb.Values
	}

	return embeddings, nil
}
