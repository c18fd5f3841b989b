package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/resilience"
	"github.com/poiesic/wayfarer/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const subsystem = "vector_index"

// Options configures a serverless Pinecone index.
type Options struct {
	APIKey    string
	IndexName string
	Dimension int
	Cloud     string // e.g. "aws"
	Region    string // e.g. "us-east-1"

	// ReadyTimeout bounds how long EnsureIndex waits for a new index to become ready.
	ReadyTimeout time.Duration
}

// indexConn is the subset of *pinecone.IndexConnection used by Index.
type indexConn interface {
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	Close() error
}

// Index implements storage.VectorIndex and storage.VectorProvisioner on Pinecone.
type Index struct {
	client *pinecone.Client
	opts   Options
	conn   indexConn
	logger *slog.Logger
}

var (
	_ storage.VectorIndex       = (*Index)(nil)
	_ storage.VectorProvisioner = (*Index)(nil)
)

// NewIndex creates a client for the configured index. Call EnsureIndex
// before querying.
func NewIndex(opts Options) (*Index, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("pinecone: api key is required")
	}
	if opts.IndexName == "" {
		return nil, fmt.Errorf("pinecone: index name is required")
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("pinecone: dimension must be positive")
	}
	if opts.Cloud == "" {
		opts.Cloud = "aws"
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 2 * time.Minute
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: opts.APIKey})
	if err != nil {
		return nil, fmt.Errorf("pinecone: create client: %w", err)
	}
	return &Index{
		client: client,
		opts:   opts,
		logger: slog.Default().With("component", "pinecone-index", "index", opts.IndexName),
	}, nil
}

// EnsureIndex creates the serverless index with cosine metric when it is
// absent, waits for it to become ready, and connects to its host.
func (i *Index) EnsureIndex(ctx context.Context) error {
	indexes, err := i.client.ListIndexes(ctx)
	if err != nil {
		return resilience.Tag(subsystem, "list_indexes", classify(err), err)
	}

	exists := false
	for _, idx := range indexes {
		if idx.Name == i.opts.IndexName {
			exists = true
			break
		}
	}

	if !exists {
		i.logger.Info("creating serverless index", "dimension", i.opts.Dimension, "cloud", i.opts.Cloud, "region", i.opts.Region)
		_, err := i.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
			Name:      i.opts.IndexName,
			Dimension: int32(i.opts.Dimension),
			Metric:    pinecone.Cosine,
			Cloud:     pinecone.Cloud(i.opts.Cloud),
			Region:    i.opts.Region,
		})
		if err != nil {
			return resilience.Tag(subsystem, "create_index", classify(err), err)
		}
	}

	desc, err := i.waitReady(ctx)
	if err != nil {
		return err
	}
	if int(desc.Dimension) != i.opts.Dimension {
		return fmt.Errorf("%w: index %s has %d, configured %d", storage.ErrDimensionMismatch, i.opts.IndexName, desc.Dimension, i.opts.Dimension)
	}

	conn, err := i.client.Index(pinecone.NewIndexConnParams{Host: desc.Host})
	if err != nil {
		return resilience.Tag(subsystem, "connect", classify(err), err)
	}
	i.conn = conn
	return nil
}

func (i *Index) waitReady(ctx context.Context) (*pinecone.Index, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opts.ReadyTimeout)
	defer cancel()

	for {
		desc, err := i.client.DescribeIndex(ctx, i.opts.IndexName)
		if err != nil {
			return nil, resilience.Tag(subsystem, "describe_index", classify(err), err)
		}
		if desc.Status == nil || desc.Status.Ready {
			return desc, nil
		}
		i.logger.Debug("waiting for index to become ready", "state", desc.Status.State)
		if err := resilience.SleepContext(ctx, time.Second); err != nil {
			return nil, fmt.Errorf("pinecone: index %s not ready: %w", i.opts.IndexName, err)
		}
	}
}

// Query returns up to topK matches with metadata and without values.
func (i *Index) Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error) {
	if i.conn == nil {
		return nil, fmt.Errorf("%w: index not connected", storage.ErrStorageClosed)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}

	res, err := i.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, resilience.Tag(subsystem, "query", classify(err), err)
	}
	return matchesFromResponse(res), nil
}

// Upsert writes records in a single request.
func (i *Index) Upsert(ctx context.Context, records []storage.VectorRecord) error {
	if i.conn == nil {
		return fmt.Errorf("%w: index not connected", storage.ErrStorageClosed)
	}

	vectors := make([]*pinecone.Vector, 0, len(records))
	for _, r := range records {
		if len(r.Values) != i.opts.Dimension {
			return fmt.Errorf("%w: %s has %d, index %d", storage.ErrDimensionMismatch, r.ID, len(r.Values), i.opts.Dimension)
		}
		md, err := toMetadata(r.Metadata)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", storage.ErrSerializationFailed, r.ID, err)
		}
		vectors = append(vectors, &pinecone.Vector{Id: r.ID, Values: r.Values, Metadata: md})
	}

	count, err := i.conn.UpsertVectors(ctx, vectors)
	if err != nil {
		return resilience.Tag(subsystem, "upsert", classify(err), err)
	}
	i.logger.Debug("upserted vectors", "count", count)
	return nil
}

// Close closes the index connection.
func (i *Index) Close() error {
	if i.conn == nil {
		return nil
	}
	return i.conn.Close()
}

func matchesFromResponse(res *pinecone.QueryVectorsResponse) []core.Match {
	if res == nil {
		return nil
	}
	matches := make([]core.Match, 0, len(res.Matches))
	for _, m := range res.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		match := core.Match{ID: m.Vector.Id, Score: m.Score}
		if m.Vector.Metadata != nil {
			match.Metadata = core.Metadata(m.Vector.Metadata.AsMap())
		}
		matches = append(matches, match)
	}
	return matches
}

// toMetadata converts metadata to a protobuf struct. String lists are
// widened to []any as structpb requires.
func toMetadata(md core.Metadata) (*pinecone.Metadata, error) {
	if len(md) == 0 {
		return nil, nil
	}
	fields := make(map[string]any, len(md))
	for k, v := range md {
		switch t := v.(type) {
		case []string:
			list := make([]any, len(t))
			for i, s := range t {
				list[i] = s
			}
			fields[k] = list
		default:
			fields[k] = v
		}
	}
	return structpb.NewStruct(fields)
}

// classify maps a client error to a resilience kind. Control-plane calls
// return *pinecone.PineconeError carrying the HTTP status; data-plane calls
// return gRPC status errors.
func classify(err error) resilience.Kind {
	var pcErr *pinecone.PineconeError
	if errors.As(err, &pcErr) {
		return resilience.KindForStatus(pcErr.Code)
	}

	switch status.Code(err) {
	case codes.ResourceExhausted:
		return resilience.RateLimited
	case codes.Unauthenticated, codes.PermissionDenied:
		return resilience.AuthFailure
	case codes.Unavailable, codes.DeadlineExceeded:
		return resilience.ServiceUnavailable
	}
	return resilience.ClassifyTransport(err)
}
