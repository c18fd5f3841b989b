package badger

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// Key prefixes for different data types
const (
	cachePrefix        = "cache:"
	vectorRecordPrefix = "vecrec:"
	vectorDimKey       = "vecmeta:dim"
)

// makeCacheKey generates the badger key for a cache entry.
// Cache keys are already content hashes, so they are stored verbatim.
func makeCacheKey(key string) []byte {
	return []byte(cachePrefix + key)
}

// makeVectorKey generates a fixed-length key for a vector record by ID.
func makeVectorKey(id string) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(id))
	return []byte(vectorRecordPrefix + hex.EncodeToString(h.Sum(nil)))
}
