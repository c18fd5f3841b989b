package pinecone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/resilience"
	"github.com/poiesic/wayfarer/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeConn struct {
	queryReq  *pinecone.QueryByVectorValuesRequest
	queryRes  *pinecone.QueryVectorsResponse
	queryErr  error
	upserted  []*pinecone.Vector
	upsertErr error
}

func (f *fakeConn) QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	f.queryReq = in
	return f.queryRes, f.queryErr
}

func (f *fakeConn) UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error) {
	f.upserted = append(f.upserted, in...)
	return uint32(len(in)), f.upsertErr
}

func (f *fakeConn) Close() error { return nil }

func newTestIndex(conn indexConn) *Index {
	return &Index{
		opts:   Options{IndexName: "vietnam-travel", Dimension: 3},
		conn:   conn,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestIndex_Query(t *testing.T) {
	md, err := structpb.NewStruct(map[string]any{"name": "Hoi An", "type": "City"})
	require.NoError(t, err)

	conn := &fakeConn{queryRes: &pinecone.QueryVectorsResponse{
		Matches: []*pinecone.ScoredVector{
			{Vector: &pinecone.Vector{Id: "city_hoi_an", Metadata: md}, Score: 0.91},
			{Vector: &pinecone.Vector{Id: "city_hue"}, Score: 0.72},
			nil,
		},
	}}
	idx := newTestIndex(conn)

	matches, err := idx.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "city_hoi_an", matches[0].ID)
	assert.InDelta(t, 0.91, matches[0].Score, 1e-6)
	assert.Equal(t, "Hoi An", matches[0].Metadata.String("name"))
	assert.Nil(t, matches[1].Metadata)

	assert.Equal(t, uint32(5), conn.queryReq.TopK)
	assert.True(t, conn.queryReq.IncludeMetadata)
	assert.False(t, conn.queryReq.IncludeValues)
}

func TestIndex_QueryErrorIsTagged(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want resilience.Kind
	}{
		{"grpc rate limit", status.Error(codes.ResourceExhausted, "Request rate exceeded"), resilience.RateLimited},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "Bad credentials"), resilience.AuthFailure},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "project mismatch"), resilience.AuthFailure},
		{"grpc unavailable", status.Error(codes.Unavailable, "upstream connect error"), resilience.ServiceUnavailable},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "deadline"), resilience.ServiceUnavailable},
		{"grpc internal with digits", status.Error(codes.Internal, "vector 4012 failed"), resilience.Other},
		{"grpc wrapped", fmt.Errorf("query: %w", status.Error(codes.ResourceExhausted, "slow down")), resilience.RateLimited},
		{"http 429", &pinecone.PineconeError{Code: 429, Msg: errors.New("too many requests")}, resilience.RateLimited},
		{"http 401", &pinecone.PineconeError{Code: 401, Msg: errors.New("invalid api key")}, resilience.AuthFailure},
		{"http 403", &pinecone.PineconeError{Code: 403, Msg: errors.New("forbidden")}, resilience.AuthFailure},
		{"http 503", &pinecone.PineconeError{Code: 503, Msg: errors.New("try again")}, resilience.ServiceUnavailable},
		{"http 404", &pinecone.PineconeError{Code: 404, Msg: errors.New("index 503 not found")}, resilience.Other},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, resilience.ServiceUnavailable},
		{"plain text", errors.New("HTTP 429 Too Many Requests"), resilience.Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := newTestIndex(&fakeConn{queryErr: tt.err, upsertErr: tt.err})

			_, err := idx.Query(context.Background(), []float32{1, 0, 0}, 5)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.want, resilience.KindOf(err))

			err = idx.Upsert(context.Background(), []storage.VectorRecord{{ID: "city_hue", Values: []float32{0, 1, 0}}})
			require.Error(t, err)
			assert.Equal(t, tt.want, resilience.KindOf(err))
		})
	}
}

func TestIndex_RateLimitBacksOff(t *testing.T) {
	idx := newTestIndex(&fakeConn{queryErr: status.Error(codes.ResourceExhausted, "Request rate exceeded")})

	var sleeps []time.Duration
	policy := resilience.Policy{
		MaxAttempts: 3,
		BackoffUnit: 10 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			if d > 0 {
				sleeps = append(sleeps, d)
			}
			return nil
		},
	}

	_, err := resilience.Do(context.Background(), policy, "vector_query", func(ctx context.Context) ([]core.Match, error) {
		return idx.Query(ctx, []float32{1, 0, 0}, 5)
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second}, sleeps)
}

func TestIndex_NotConnected(t *testing.T) {
	idx := &Index{opts: Options{Dimension: 3}}
	_, err := idx.Query(context.Background(), []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestIndex_Upsert(t *testing.T) {
	conn := &fakeConn{}
	idx := newTestIndex(conn)

	err := idx.Upsert(context.Background(), []storage.VectorRecord{{
		ID:       "city_da_nang",
		Values:   []float32{0.1, 0.2, 0.3},
		Metadata: core.Metadata{"name": "Da Nang", "tags": []string{"beach", "bridge"}},
	}})
	require.NoError(t, err)
	require.Len(t, conn.upserted, 1)
	assert.Equal(t, "city_da_nang", conn.upserted[0].Id)
	assert.Equal(t, []any{"beach", "bridge"}, conn.upserted[0].Metadata.AsMap()["tags"])

	err = idx.Upsert(context.Background(), []storage.VectorRecord{{ID: "bad", Values: []float32{1}}})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestNewIndex_Validation(t *testing.T) {
	_, err := NewIndex(Options{IndexName: "x", Dimension: 3})
	assert.Error(t, err, "api key required")

	_, err = NewIndex(Options{APIKey: "k", Dimension: 3})
	assert.Error(t, err, "index name required")

	_, err = NewIndex(Options{APIKey: "k", IndexName: "x"})
	assert.Error(t, err, "dimension required")
}

// TestIndex_Live runs against a real project when WAYFARER_PINECONE_API_KEY is set.
func TestIndex_Live(t *testing.T) {
	key := os.Getenv("WAYFARER_PINECONE_API_KEY")
	if key == "" {
		t.Skip("WAYFARER_PINECONE_API_KEY not set")
	}
	idx, err := NewIndex(Options{APIKey: key, IndexName: "wayfarer-test", Dimension: 8})
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.EnsureIndex(context.Background()))
}
