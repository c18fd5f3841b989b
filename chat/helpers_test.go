package chat

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/wayfarer/ai/mock"
	"github.com/poiesic/wayfarer/cache"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/resilience"
	"github.com/poiesic/wayfarer/search"
	"github.com/poiesic/wayfarer/storage"
	"github.com/poiesic/wayfarer/storage/memory"
	"github.com/stretchr/testify/require"
)

// vocabulary maps each vector dimension to a keyword.
var vocabulary = []string{"beach", "da nang", "hanoi", "mountain", "lake", "food", "bridge", "old town"}

// keywordVector embeds text as keyword counts, so related texts score high.
func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocabulary))
	for i, word := range vocabulary {
		vec[i] = float32(strings.Count(lower, word))
	}
	// Keep every vector non-zero.
	vec[len(vec)-1] += 0.01
	return vec
}

func noSleepPolicy() resilience.Policy {
	p := resilience.DefaultPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return p
}

var dataset = []core.Node{
	{ID: "danang_city", Type: "City", Name: "Da Nang", Region: "Central", Description: "Coastal city in central Vietnam"},
	{ID: "my_khe_beach", Type: "Attraction", Name: "My Khe Beach", City: "Da Nang", Description: "A long beach in Da Nang with soft sand",
		Connections: []core.Connection{{Relation: "Located_In", Target: "danang_city"}}},
	{ID: "dragon_bridge", Type: "Attraction", Name: "Dragon Bridge", City: "Da Nang", Description: "Bridge over the Han river in Da Nang",
		Connections: []core.Connection{{Relation: "Located_In", Target: "danang_city"}}},
	{ID: "hanoi_city", Type: "City", Name: "Hanoi", Description: "Capital of Vietnam, known for its lake and old town"},
	{ID: "hoan_kiem_lake", Type: "Attraction", Name: "Hoan Kiem Lake", City: "Hanoi", Description: "Historic lake in central Hanoi",
		Connections: []core.Connection{{Relation: "Located_In", Target: "hanoi_city"}}},
}

// fixture is a session over in-memory stores seeded with dataset.
type fixture struct {
	session   *Session
	embedder  *mock.MockEmbedder
	generator *mock.MockGenerator
	graph     *memory.GraphStore
	index     *memory.VectorIndex
	cache     *cache.Cache
}

func nodeText(n core.Node) string {
	return strings.Join([]string{n.Name, n.Type, n.City, n.Description}, " ")
}

func newFixture(t *testing.T, withGraph bool, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	dim := len(vocabulary)

	embedder := mock.NewMockEmbedderWithDimension(dim)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return keywordVector(text), nil
	}
	generator := mock.NewMockGenerator()

	index := memory.NewVectorIndex(dim)
	graph := memory.NewGraphStore()
	var records []storage.VectorRecord
	for i := range dataset {
		n := dataset[i]
		records = append(records, storage.VectorRecord{ID: n.ID, Values: keywordVector(nodeText(n)), Metadata: n.Metadata()})
		require.NoError(t, graph.UpsertEntity(ctx, &n))
	}
	require.NoError(t, index.Upsert(ctx, records))
	for _, n := range dataset {
		for _, c := range n.Connections {
			require.NoError(t, graph.Link(ctx, n.ID, c.Relation, c.Target))
		}
	}

	c, err := cache.New(memory.NewCacheStore())
	require.NoError(t, err)

	policy := search.WithPolicy(noSleepPolicy())
	cached, err := search.NewCachedEmbedder(embedder, c, dim, policy)
	require.NoError(t, err)
	retriever, err := search.NewRetriever(cached, index, policy)
	require.NoError(t, err)

	var store storage.GraphStore
	if withGraph {
		store = graph
	}
	enricher, err := search.NewEnricher(store, policy)
	require.NoError(t, err)

	opts = append([]Option{WithPolicy(noSleepPolicy())}, opts...)
	session, err := NewSession(Components{
		Embedder:  cached,
		Retriever: retriever,
		Enricher:  enricher,
		Generator: generator,
		Cache:     c,
	}, opts...)
	require.NoError(t, err)

	return &fixture{
		session:   session,
		embedder:  embedder,
		generator: generator,
		graph:     graph,
		index:     index,
		cache:     c,
	}
}

// recordingMonitor records the states of every turn.
type recordingMonitor struct {
	mu       sync.Mutex
	states   []core.TurnState
	finished []core.TurnResult
}

func (m *recordingMonitor) Start(_ int, _ string) {}

func (m *recordingMonitor) StateChanged(_ int, state core.TurnState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

func (m *recordingMonitor) AfterRetrieval(_ []core.Match) {}

func (m *recordingMonitor) AfterEnrichment(_ []core.GraphFact) {}

func (m *recordingMonitor) Finish(result core.TurnResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, result)
}

// countingGraph counts Neighbors calls and returns no facts.
type countingGraph struct {
	calls int
}

func (g *countingGraph) Neighbors(ctx context.Context, id string, limit int) ([]core.GraphFact, error) {
	g.calls++
	return nil, nil
}

func (g *countingGraph) Ping(ctx context.Context) error { return nil }

func (g *countingGraph) Close() error { return nil }

// emptyIndex never matches.
type emptyIndex struct{}

func (emptyIndex) Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error) {
	return nil, nil
}

func (emptyIndex) Close() error { return nil }

func emptyRetriever(t *testing.T, f *fixture) *search.Retriever {
	t.Helper()
	r, err := search.NewRetriever(f.session.embedder, emptyIndex{}, search.WithPolicy(noSleepPolicy()))
	require.NoError(t, err)
	return r
}

// safeBuffer is a bytes.Buffer safe for concurrent use.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
