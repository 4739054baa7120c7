// Package embedder provides implementations of the Embedder interface for
// converting text into dense vector embeddings. Each implementation talks to
// a different backend (Gemini, OpenAI, Azure OpenAI, Ollama) via plain HTTP —
// no additional SDK dependencies are required.
package embedder

import (
	"context"
	"fmt"

	"github.com/veritaslegal/lexdraft-go/internal/oracle"
	"github.com/veritaslegal/lexdraft-go/internal/retry"
)

// Embedder converts a batch of texts into dense vector embeddings. The
// returned slice is parallel to the input slice. Implementations must be safe
// for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne is a convenience wrapper for embedding a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder: expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// WithRetry wraps inner so every Embed call runs under the retry policy.
// Transient provider failures (rate limit, quota, timeout) are retried with
// exponential backoff; everything else surfaces immediately.
func WithRetry(inner Embedder, policy retry.Policy) Embedder {
	if policy.Retryable == nil {
		policy.Retryable = oracle.IsTransient
	}
	return &retryingEmbedder{inner: inner, policy: policy}
}

type retryingEmbedder struct {
	inner  Embedder
	policy retry.Policy
}

func (r *retryingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := r.policy.Do(ctx, func() error {
		var embedErr error
		vecs, embedErr = r.inner.Embed(ctx, texts)
		return embedErr
	})
	if err != nil {
		return nil, err
	}
	return vecs, nil
}
