package sqlite

import (
	"context"
	"fmt"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

// GraphStore is an entity graph on SQLite: an entities table plus a
// subject/predicate/object quads table.
type GraphStore struct {
	db    *DB
	owned bool
}

var (
	_ storage.GraphStore  = (*GraphStore)(nil)
	_ storage.GraphWriter = (*GraphStore)(nil)
)

// NewGraphStore creates a graph store on a shared database.
// Closing the store does not close the database.
func NewGraphStore(db *DB) *GraphStore {
	return &GraphStore{db: db}
}

// OpenGraphStore opens a dedicated database at path.
func OpenGraphStore(ctx context.Context, path string) (*GraphStore, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return &GraphStore{db: db, owned: true}, nil
}

// UpsertEntity creates or replaces the entity for node.
func (g *GraphStore) UpsertEntity(ctx context.Context, node *core.Node) error {
	_, err := g.db.db.ExecContext(ctx,
		`INSERT INTO entities (id, name, type, city, description) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, type = excluded.type,
		 city = excluded.city, description = excluded.description`,
		node.ID, node.Name, node.Type, node.City, node.Description,
	)
	if err != nil {
		return fmt.Errorf("upsert entity %s: %w", node.ID, err)
	}
	return nil
}

// Link creates a relation from source to target when both entities exist.
func (g *GraphStore) Link(ctx context.Context, source, relation, target string) error {
	_, err := g.db.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO quads (subject, predicate, object)
		 SELECT ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM entities WHERE id = ?)
		   AND EXISTS (SELECT 1 FROM entities WHERE id = ?)`,
		source, relation, target, source, target,
	)
	if err != nil {
		return fmt.Errorf("link %s -[%s]-> %s: %w", source, relation, target, err)
	}
	return nil
}

// Neighbors returns up to limit facts for edges touching id in either
// direction, in insertion order.
func (g *GraphStore) Neighbors(ctx context.Context, id string, limit int) ([]core.GraphFact, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	rows, err := g.db.db.QueryContext(ctx, `
		SELECT q.id AS qid, q.predicate, e.id, e.name, e.type, e.description
		FROM quads q JOIN entities e ON e.id = q.object
		WHERE q.subject = ?
		UNION ALL
		SELECT q.id AS qid, q.predicate, e.id, e.name, e.type, e.description
		FROM quads q JOIN entities e ON e.id = q.subject
		WHERE q.object = ?
		ORDER BY qid
		LIMIT ?`, id, id, limit)
	if err != nil {
		return nil, fmt.Errorf("neighbors %s: %w", id, err)
	}
	defer rows.Close()

	var facts []core.GraphFact
	for rows.Next() {
		var qid int64
		var fact core.GraphFact
		if err := rows.Scan(&qid, &fact.Relation, &fact.TargetID, &fact.TargetName, &fact.TargetType, &fact.TargetDescription); err != nil {
			return nil, fmt.Errorf("neighbors %s: %w", id, err)
		}
		fact.Source = id
		fact.Labels = []string{"Entity"}
		if fact.TargetType != "" {
			fact.Labels = append(fact.Labels, fact.TargetType)
		}
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("neighbors %s: %w", id, err)
	}
	return facts, nil
}

// Ping verifies the database is reachable.
func (g *GraphStore) Ping(ctx context.Context) error {
	return g.db.db.PingContext(ctx)
}

// Close closes the database when the store owns it.
func (g *GraphStore) Close() error {
	if g.owned {
		return g.db.Close()
	}
	return nil
}
