package storage

import (
	"math"
	"slices"
	"strings"

	"github.com/poiesic/wayfarer/core"
)

// Normalize returns a unit-length copy of vec. A zero vector is returned as a copy.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(vec))
	if sum == 0 {
		copy(out, vec)
		return out
	}
	norm := float32(1 / math.Sqrt(sum))
	for i, x := range vec {
		out[i] = x * norm
	}
	return out
}

// DotProduct calculates the dot product of two vectors.
// For unit vectors this is their cosine similarity.
func DotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// RankMatches sorts matches by score descending, ID ascending on ties,
// and truncates the result to topK.
func RankMatches(matches []core.Match, topK int) []core.Match {
	slices.SortFunc(matches, func(a, b core.Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
