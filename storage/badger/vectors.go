package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

// VectorIndex is a local exhaustive-scan vector index on BadgerDB.
// Vectors are stored unit-normalized so that cosine similarity is a dot product.
type VectorIndex struct {
	backend   *Backend
	dimension int
	owned     bool
	logger    *slog.Logger
}

var (
	_ storage.VectorIndex       = (*VectorIndex)(nil)
	_ storage.VectorProvisioner = (*VectorIndex)(nil)
)

// NewVectorIndex creates a vector index of the given dimension on a shared backend.
// Closing the index does not close the backend.
func NewVectorIndex(backend *Backend, dimension int) *VectorIndex {
	return &VectorIndex{
		backend:   backend,
		dimension: dimension,
		logger:    slog.Default().With("component", "badger-vector-index"),
	}
}

// OpenVectorIndex opens a dedicated backend at path for the index.
func OpenVectorIndex(path string, inMemory bool, dimension int) (*VectorIndex, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	idx := NewVectorIndex(backend, dimension)
	idx.owned = true
	return idx, nil
}

// EnsureIndex records the index dimension on first use and verifies it afterwards.
func (v *VectorIndex) EnsureIndex(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", storage.ErrInvalidQuery)
	}

	return v.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(vectorDimKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			v.logger.Info("creating local vector index", "dimension", v.dimension)
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, uint64(v.dimension))
			return tx.Set([]byte(vectorDimKey), buf)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("%w: index metadata", storage.ErrTruncatedData)
			}
			stored := int(binary.BigEndian.Uint64(val))
			if stored != v.dimension {
				return fmt.Errorf("%w: index has %d, configured %d", storage.ErrDimensionMismatch, stored, v.dimension)
			}
			return nil
		})
	}, true)
}

// Upsert writes records, replacing any existing vector with the same ID.
func (v *VectorIndex) Upsert(ctx context.Context, records []storage.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	wb := v.backend.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range records {
		record := records[i]
		if len(record.Values) != v.dimension {
			return fmt.Errorf("%w: %s has %d, index %d", storage.ErrDimensionMismatch, record.ID, len(record.Values), v.dimension)
		}
		record.Values = storage.Normalize(record.Values)
		data, err := storage.MarshalVectorRecord(&record)
		if err != nil {
			return err
		}
		if err := wb.Set(makeVectorKey(record.ID), data); err != nil {
			return err
		}
	}

	if err := wb.Flush(); err != nil {
		return err
	}
	v.logger.Debug("upserted vectors", "count", len(records))
	return nil
}

// Query returns up to topK records most similar to vector, best first.
func (v *VectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}
	if len(vector) != v.dimension {
		return nil, fmt.Errorf("%w: query has %d, index %d", storage.ErrDimensionMismatch, len(vector), v.dimension)
	}
	if v.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	query := storage.Normalize(vector)
	var results []core.Match

	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *storage.VectorRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalVectorRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			results = append(results, core.Match{
				ID:       record.ID,
				Score:    storage.DotProduct(query, record.Values),
				Metadata: record.Metadata,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return storage.RankMatches(results, topK), nil
}

// Count returns the number of vectors in the index.
func (v *VectorIndex) Count(ctx context.Context) (int, error) {
	count := 0
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return ctx.Err()
	}, false)
	return count, err
}

// Close closes the backend when the index owns it.
func (v *VectorIndex) Close() error {
	if v.owned && !v.backend.IsClosed() {
		return v.backend.Close()
	}
	return nil
}
