package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/resilience"
	"github.com/poiesic/wayfarer/storage"
)

// Retriever finds the entities nearest to a query.
type Retriever struct {
	embedder *CachedEmbedder
	index    storage.VectorIndex
	policy   resilience.Policy
	logger   *slog.Logger
}

// NewRetriever creates a retriever over index. The embedder is used by Query
// and may be nil when only QueryVector is called.
func NewRetriever(embedder *CachedEmbedder, index storage.VectorIndex, opts ...Option) (*Retriever, error) {
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	s, err := applyOptions("retriever", opts)
	if err != nil {
		return nil, err
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		policy:   s.policy,
		logger:   s.logger,
	}, nil
}

// Query embeds text and returns up to topK matches.
// An embedding failure is logged and yields no matches.
func (r *Retriever) Query(ctx context.Context, text string, topK int) []core.Match {
	if r.embedder == nil {
		r.logger.Error("query without embedder", "op", "query")
		return nil
	}
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		r.logger.Error("could not embed query", "op", "query", "err", err)
		return nil
	}
	return r.QueryVector(ctx, vec, topK)
}

// QueryVector returns up to topK matches for vec, in the index's order.
// An index failure is logged and yields no matches.
func (r *Retriever) QueryVector(ctx context.Context, vec []float32, topK int) []core.Match {
	if topK <= 0 {
		return nil
	}
	matches, err := resilience.Do(ctx, r.policy, "vector_query", func(ctx context.Context) ([]core.Match, error) {
		return r.index.Query(ctx, vec, topK)
	})
	if err != nil {
		r.logger.Error("vector index query failed", "op", "vector_query", "subsystem", "vector_index", "err", err)
		return nil
	}

	if len(matches) > topK {
		matches = matches[:topK]
	}
	r.logger.Debug("vector index returned matches", "matches", len(matches))
	return matches
}
