package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/resilience"
	"github.com/poiesic/wayfarer/storage"
)

// Enricher expands matched entities one hop through the graph store.
type Enricher struct {
	store   storage.GraphStore
	sw      *resilience.Switch
	policy  resilience.Policy
	fanout  int
	workers int
	logger  *slog.Logger
}

// NewEnricher creates an enricher over store. A nil store disables
// enrichment; Expand then returns no facts.
func NewEnricher(store storage.GraphStore, opts ...Option) (*Enricher, error) {
	s, err := applyOptions("enricher", opts)
	if err != nil {
		return nil, err
	}

	sw := s.graphSwitch
	if sw == nil {
		sw = resilience.NewSwitch("graph", store != nil)
	}

	return &Enricher{
		store:   store,
		sw:      sw,
		policy:  s.policy,
		fanout:  s.fanout,
		workers: s.workers,
		logger:  s.logger,
	}, nil
}

// Switch returns the graph capability switch.
func (e *Enricher) Switch() *resilience.Switch {
	return e.sw
}

// Enabled reports whether Expand will query the graph store.
func (e *Enricher) Enabled() bool {
	return e.store != nil && e.sw.Enabled()
}

// Expand returns the one-hop facts of every id, grouped by id in input order.
//
// Ids are fetched concurrently. A failed fetch is logged and contributes no
// facts. An authentication or availability failure disables the graph for
// the rest of the session.
func (e *Enricher) Expand(ctx context.Context, ids []string) []core.GraphFact {
	if !e.Enabled() || len(ids) == 0 {
		return nil
	}

	size := min(len(ids), e.workers)
	pool, err := ants.NewPool(size)
	if err != nil {
		e.logger.Error("could not create worker pool", "size", size, "err", err)
		return nil
	}
	defer pool.Release()

	results := make([][]core.GraphFact, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = e.expandOne(ctx, id)
		}
		if err := pool.Submit(task); err != nil {
			e.logger.Warn("pool rejected task, fetching inline", "id", id, "err", err)
			task()
		}
	}
	wg.Wait()

	var facts []core.GraphFact
	for _, r := range results {
		facts = append(facts, r...)
	}
	e.logger.Debug("graph returned facts", "ids", len(ids), "facts", len(facts))
	return facts
}

func (e *Enricher) expandOne(ctx context.Context, id string) []core.GraphFact {
	if !e.sw.Enabled() {
		return nil
	}

	facts, err := resilience.Do(ctx, e.policy, "graph_neighbors", func(ctx context.Context) ([]core.GraphFact, error) {
		return e.store.Neighbors(ctx, id, e.fanout)
	})
	if err != nil {
		e.logger.Warn("error fetching graph context", "op", "graph_neighbors", "subsystem", "graph", "id", id, "err", err)
		switch resilience.KindOf(err) {
		case resilience.AuthFailure, resilience.ServiceUnavailable:
			e.sw.Disable(fmt.Errorf("neighbors of %s: %w", id, err))
		}
		return nil
	}

	if len(facts) > e.fanout {
		facts = facts[:e.fanout]
	}
	for i := range facts {
		if facts[i].Source == "" {
			facts[i].Source = id
		}
		facts[i].TargetDescription = truncateRunes(facts[i].TargetDescription, FactDescriptionLimit)
	}
	return facts
}
