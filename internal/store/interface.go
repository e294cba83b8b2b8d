package store

import "context"

// GraphStore is the read-only capability surface the retrieval core
// requires from a backing graph database. Any implementation (in-memory,
// embedded, or remote) that honors these contracts can drive the core.
//
// All methods take a context so a caller-imposed deadline or cancellation
// can unwind a blocking store call; the core has no timer of its own.
type GraphStore interface {
	// GetNode returns the node with the given id, or (nil, nil) if absent.
	GetNode(ctx context.Context, id string) (*Node, error)

	// GetEdgesTouching returns every edge where id is the source or the
	// target (i.e. both directions), in no particular order.
	GetEdgesTouching(ctx context.Context, id string) ([]Edge, error)

	// GetEmbedding returns the embedding for a node, or (nil, nil) if the
	// node has none.
	GetEmbedding(ctx context.Context, id string) ([]float32, error)

	// ForEachEmbedding streams every (node id, embedding) pair to yield.
	// Implementations should stream rather than materialize the full result
	// set, since semantic search is O(N) over every embedded node. Stops and
	// returns yield's error immediately if yield returns one.
	ForEachEmbedding(ctx context.Context, yield func(NodeEmbedding) error) error

	// FTSSearch runs a full-text search for the (already built) query string
	// and returns matching nodes with no relevance score attached — FTS here
	// is a coarse filter, not a ranker.
	FTSSearch(ctx context.Context, query string) ([]Node, error)
}
