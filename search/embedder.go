package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/cache"
	"github.com/poiesic/wayfarer/resilience"
)

// CachedEmbedder embeds text through the content-addressed cache.
// A cache hit never reaches the provider.
type CachedEmbedder struct {
	embedder  ai.Embedder
	cache     *cache.Cache
	dimension int
	policy    resilience.Policy
	logger    *slog.Logger
}

// NewCachedEmbedder creates an embedder producing vectors of dimension values.
// A nil cache disables caching.
func NewCachedEmbedder(embedder ai.Embedder, c *cache.Cache, dimension int, opts ...Option) (*CachedEmbedder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}
	s, err := applyOptions("embedder", opts)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{
		embedder:  embedder,
		cache:     c,
		dimension: dimension,
		policy:    s.policy,
		logger:    s.logger,
	}, nil
}

// Dimension returns the vector length this embedder produces.
func (e *CachedEmbedder) Dimension() int {
	return e.dimension
}

// Embed returns the vector for text.
//
// A cached vector is returned without calling the provider. Otherwise the
// provider is called under the retry policy, the result is checked against
// the configured dimension and written to the cache.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.GetVector(ctx, text, e.dimension); ok {
		e.logger.Debug("embedding cache hit", "length", len(text))
		return vec, nil
	}

	vec, err := resilience.Do(ctx, e.policy, "embed", func(ctx context.Context) ([]float32, error) {
		return e.embedder.EmbedText(ctx, text)
	})
	if err != nil {
		e.logger.Error("embedding failed", "op", "embed", "subsystem", "embedding", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if err := e.checkDimension(vec); err != nil {
		return nil, err
	}

	e.cache.PutVector(ctx, text, vec)
	return vec, nil
}

// EmbedBatch returns one vector per text, in input order.
// Cached texts are served from the cache; the rest are embedded in a single
// provider call and written back.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []int
	for i, text := range texts {
		if vec, ok := e.cache.GetVector(ctx, text, e.dimension); ok {
			vectors[i] = vec
			continue
		}
		missing = append(missing, i)
	}

	e.logger.Debug("embedding batch", "texts", len(texts), "cached", len(texts)-len(missing))
	if len(missing) == 0 {
		return vectors, nil
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}

	fetched, err := resilience.Do(ctx, e.policy, "embed_batch", func(ctx context.Context) ([][]float32, error) {
		return e.embedder.EmbedTexts(ctx, pending)
	})
	if err != nil {
		e.logger.Error("batch embedding failed", "op", "embed_batch", "subsystem", "embedding", "texts", len(pending), "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if len(fetched) != len(pending) {
		return nil, fmt.Errorf("%w: expected %d vectors, received %d", ErrEmbeddingUnavailable, len(pending), len(fetched))
	}

	for j, i := range missing {
		if err := e.checkDimension(fetched[j]); err != nil {
			return nil, err
		}
		vectors[i] = fetched[j]
		e.cache.PutVector(ctx, texts[i], fetched[j])
	}
	return vectors, nil
}

func (e *CachedEmbedder) checkDimension(vec []float32) error {
	if len(vec) != e.dimension {
		e.logger.Error("provider returned wrong vector length", "got", len(vec), "want", e.dimension)
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), e.dimension)
	}
	return nil
}
