package search

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/resilience"
)

// fastPolicy retries without sleeping and records requested delays.
func fastPolicy(sleeps *[]time.Duration) resilience.Policy {
	p := resilience.DefaultPolicy()
	var mu sync.Mutex
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		if sleeps != nil {
			mu.Lock()
			*sleeps = append(*sleeps, d)
			mu.Unlock()
		}
		return ctx.Err()
	}
	return p
}

// stubIndex returns fixed matches or an error.
type stubIndex struct {
	matches []core.Match
	err     error
	calls   int
}

func (s *stubIndex) Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error) {
	s.calls++
	return s.matches, s.err
}

func (s *stubIndex) Close() error { return nil }

// stubGraph serves facts per id and can fail selected ids.
type stubGraph struct {
	mu    sync.Mutex
	facts map[string][]core.GraphFact
	errs  map[string]error
	calls map[string]int
	delay map[string]time.Duration
}

func newStubGraph() *stubGraph {
	return &stubGraph{
		facts: make(map[string][]core.GraphFact),
		errs:  make(map[string]error),
		calls: make(map[string]int),
		delay: make(map[string]time.Duration),
	}
}

func (g *stubGraph) Neighbors(ctx context.Context, id string, limit int) ([]core.GraphFact, error) {
	g.mu.Lock()
	g.calls[id]++
	facts, err, delay := g.facts[id], g.errs[id], g.delay[id]
	g.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if len(facts) > limit {
		facts = facts[:limit]
	}
	return append([]core.GraphFact(nil), facts...), nil
}

func (g *stubGraph) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func (g *stubGraph) Ping(ctx context.Context) error { return nil }

func (g *stubGraph) Close() error { return nil }
