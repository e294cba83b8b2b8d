// Package similarity implements cosine-similarity search over node
// embeddings streamed from a store.GraphStore.
package similarity

import (
	"context"
	"math"
	"sort"

	"github.com/wrenfield/ctxcore/internal/store"
)

// Match is a node paired with its similarity to a query embedding.
type Match struct {
	NodeID     string
	Similarity float32
}

// Cosine computes cosine similarity between two vectors. Returns 0 (not
// NaN) for mismatched lengths or either vector having zero norm.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	na := float32(math.Sqrt(float64(normA)))
	nb := float32(math.Sqrt(float64(normB)))
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

// TopK streams every embedding from g, excluding excludeID, and returns the
// up-to-k matches with similarity >= threshold in descending similarity
// order. Returns an empty slice without touching the store when k <= 0.
// A threshold above 1 is clamped to 1 so identical embeddings still match.
func TopK(ctx context.Context, g store.GraphStore, query []float32, excludeID string, k int, threshold float32) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}
	if threshold > 1 {
		threshold = 1
	}

	var matches []Match
	err := g.ForEachEmbedding(ctx, func(ne store.NodeEmbedding) error {
		if ne.ID == excludeID {
			return nil
		}
		sim := Cosine(query, ne.Embedding)
		if sim >= threshold {
			matches = append(matches, Match{NodeID: ne.ID, Similarity: sim})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
