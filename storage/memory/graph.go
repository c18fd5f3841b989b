package memory

import (
	"context"
	"sync"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

type edge struct {
	source   string
	relation string
	target   string
}

// GraphStore is an in-memory entity graph.
// Edges are returned in insertion order.
type GraphStore struct {
	mu       sync.RWMutex
	entities map[string]core.Node
	edges    []edge
}

var (
	_ storage.GraphStore  = (*GraphStore)(nil)
	_ storage.GraphWriter = (*GraphStore)(nil)
)

// NewGraphStore creates an empty graph.
func NewGraphStore() *GraphStore {
	return &GraphStore{entities: make(map[string]core.Node)}
}

// UpsertEntity creates or replaces the entity for node.
func (g *GraphStore) UpsertEntity(ctx context.Context, node *core.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entities[node.ID] = *node
	return nil
}

// Link creates a relation from source to target. Links touching unknown
// entities and duplicate links are skipped.
func (g *GraphStore) Link(ctx context.Context, source, relation, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.entities[source]; !ok {
		return nil
	}
	if _, ok := g.entities[target]; !ok {
		return nil
	}
	e := edge{source: source, relation: relation, target: target}
	for _, existing := range g.edges {
		if existing == e {
			return nil
		}
	}
	g.edges = append(g.edges, e)
	return nil
}

// Neighbors returns up to limit facts for edges touching id in either direction.
func (g *GraphStore) Neighbors(ctx context.Context, id string, limit int) ([]core.GraphFact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	var facts []core.GraphFact
	for _, e := range g.edges {
		if limit > 0 && len(facts) >= limit {
			break
		}
		var other string
		switch id {
		case e.source:
			other = e.target
		case e.target:
			other = e.source
		default:
			continue
		}
		node := g.entities[other]
		facts = append(facts, core.GraphFact{
			Source:            id,
			Relation:          e.relation,
			TargetID:          node.ID,
			TargetName:        node.Name,
			TargetType:        node.Type,
			TargetDescription: node.Description,
			Labels:            labels(node),
		})
	}
	return facts, nil
}

// Ping always succeeds.
func (g *GraphStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (g *GraphStore) Close() error {
	return nil
}

func labels(node core.Node) []string {
	if node.Type == "" {
		return []string{"Entity"}
	}
	return []string{"Entity", node.Type}
}
