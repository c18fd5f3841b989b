package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/resilience"
	"github.com/poiesic/wayfarer/storage"
)

const subsystem = "graph"

const neighborsQuery = `MATCH (n:Entity {id: $id})-[r]-(m:Entity)
RETURN type(r) AS rel, labels(m) AS labels, m.id AS id,
       m.name AS name, m.type AS type, m.description AS description
LIMIT $limit`

const upsertEntityQuery = `MERGE (n:Entity {id: $id})
SET n.name = $name, n.type = $type, n.city = $city, n.region = $region,
    n.description = $description, n.tags = $tags`

// Options configures the connection to a Neo4j server.
type Options struct {
	URI      string
	Username string
	Password string
	Database string // Empty uses the server default
}

// GraphStore implements storage.GraphStore and storage.GraphWriter on Neo4j.
// Driver failures are tagged with a resilience.Kind.
type GraphStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

var (
	_ storage.GraphStore  = (*GraphStore)(nil)
	_ storage.GraphWriter = (*GraphStore)(nil)
)

// NewGraphStore creates a driver for the server. No connection is made
// until the first query or Ping.
func NewGraphStore(opts Options) (*GraphStore, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("neo4j: uri is required")
	}
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: create driver: %w", err)
	}
	return &GraphStore{
		driver:   driver,
		database: opts.Database,
		logger:   slog.Default().With("component", "neo4j-graph"),
	}, nil
}

// Ping verifies connectivity and credentials.
func (g *GraphStore) Ping(ctx context.Context) error {
	if err := g.driver.VerifyConnectivity(ctx); err != nil {
		return resilience.Tag(subsystem, "ping", classify(err), err)
	}
	return nil
}

// Neighbors returns up to limit facts for relationships touching id.
func (g *GraphStore) Neighbors(ctx context.Context, id string, limit int) ([]core.GraphFact, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	result, err := neo4j.ExecuteQuery(ctx, g.driver, neighborsQuery,
		map[string]any{"id": id, "limit": int64(limit)},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, resilience.Tag(subsystem, "neighbors", classify(err), err)
	}

	facts := make([]core.GraphFact, 0, len(result.Records))
	for _, record := range result.Records {
		facts = append(facts, factFromRecord(id, record))
	}
	return facts, nil
}

// UpsertEntity merges the entity for node.
func (g *GraphStore) UpsertEntity(ctx context.Context, node *core.Node) error {
	tags := node.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := neo4j.ExecuteQuery(ctx, g.driver, upsertEntityQuery,
		map[string]any{
			"id":          node.ID,
			"name":        node.Name,
			"type":        node.Type,
			"city":        node.City,
			"region":      node.Region,
			"description": node.Description,
			"tags":        tags,
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
	)
	if err != nil {
		return resilience.Tag(subsystem, "upsert_entity", classify(err), err)
	}
	return nil
}

// Link merges a relationship from source to target when both entities exist.
// The relation is validated before it is placed in the query text.
func (g *GraphStore) Link(ctx context.Context, source, relation, target string) error {
	if err := core.ValidateRelation(relation); err != nil {
		return err
	}
	query := fmt.Sprintf(`MATCH (a:Entity {id: $source}), (b:Entity {id: $target})
MERGE (a)-[:%s]->(b)`, relation)

	_, err := neo4j.ExecuteQuery(ctx, g.driver, query,
		map[string]any{"source": source, "target": target},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
	)
	if err != nil {
		return resilience.Tag(subsystem, "link", classify(err), err)
	}
	return nil
}

// Close closes the driver.
func (g *GraphStore) Close() error {
	g.logger.Debug("closing neo4j driver")
	return g.driver.Close(context.Background())
}

// factFromRecord converts one row of neighborsQuery into a GraphFact.
func factFromRecord(source string, record *neo4j.Record) core.GraphFact {
	fact := core.GraphFact{Source: source}
	fact.Relation = stringValue(record, "rel")
	fact.TargetID = stringValue(record, "id")
	fact.TargetName = stringValue(record, "name")
	fact.TargetType = stringValue(record, "type")
	fact.TargetDescription = stringValue(record, "description")

	if raw, ok := record.Get("labels"); ok {
		switch labels := raw.(type) {
		case []any:
			for _, l := range labels {
				if s, ok := l.(string); ok {
					fact.Labels = append(fact.Labels, s)
				}
			}
		case []string:
			fact.Labels = append(fact.Labels, labels...)
		}
	}
	return fact
}

func stringValue(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// classify maps driver errors to resilience kinds.
func classify(err error) resilience.Kind {
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		switch {
		case strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security."):
			return resilience.AuthFailure
		case strings.HasPrefix(neoErr.Code, "Neo.TransientError."):
			return resilience.ServiceUnavailable
		}
	}
	if neo4j.IsConnectivityError(err) {
		return resilience.ServiceUnavailable
	}
	return resilience.ClassifyTransport(err)
}
