package traverse

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/wrenfield/ctxcore/internal/store"
)

// heapEntry is a min-heap element. Ties are broken first by node id then by
// the id of the edge that produced the entry, so identical inputs produce
// identical outputs regardless of map iteration order or queue internals.
type heapEntry struct {
	distance float64
	nodeID   string
	edgeID   string
	hops     int
}

type entryHeap []heapEntry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].distance != h[j].distance {
		return h[i].distance < h[j].distance
	}
	if h[i].nodeID != h[j].nodeID {
		return h[i].nodeID < h[j].nodeID
	}
	return h[i].edgeID < h[j].edgeID
}
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(heapEntry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type backPointer struct {
	prevNodeID string
	edgeType   string
}

// From runs a weighted single-source shortest-path expansion starting at
// sourceID against g, honoring cfg's cutoffs, and returns reached nodes
// ordered by ascending distance with rank assigned 1..N.
func From(ctx context.Context, g store.GraphStore, sourceID string, cfg Config) ([]Result, error) {
	cfg = cfg.normalized()

	var allowSet map[string]bool
	if cfg.EdgeTypeAllowlist != nil {
		allowSet = make(map[string]bool, len(cfg.EdgeTypeAllowlist))
		for _, t := range cfg.EdgeTypeAllowlist {
			allowSet[t] = true
		}
	}
	denySet := make(map[string]bool, len(cfg.EdgeTypeDenylist))
	for _, t := range cfg.EdgeTypeDenylist {
		denySet[t] = true
	}

	dist := map[string]float64{sourceID: 0}
	prev := map[string]backPointer{}
	visited := map[string]bool{}

	h := &entryHeap{{distance: 0, nodeID: sourceID, hops: 0}}
	heap.Init(h)

	var results []Result

	for h.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := heap.Pop(h).(heapEntry)

		if entry.distance > cfg.MaxCost {
			break
		}
		if entry.hops > cfg.MaxHops {
			continue
		}
		if visited[entry.nodeID] {
			continue
		}
		if best, ok := dist[entry.nodeID]; ok && entry.distance > best {
			continue
		}
		visited[entry.nodeID] = true

		if entry.nodeID != sourceID {
			node, err := g.GetNode(ctx, entry.nodeID)
			if err != nil {
				return nil, fmt.Errorf("traverse: loading node %s: %w", entry.nodeID, err)
			}
			if node != nil && (!cfg.ItemsOnly || node.IsItem) {
				results = append(results, Result{
					NodeID:    entry.nodeID,
					Distance:  entry.distance,
					Relevance: 1.0 / (1.0 + entry.distance),
					Hops:      entry.hops,
					Path:      reconstructPath(prev, sourceID, entry.nodeID),
				})
				if len(results) >= cfg.Budget {
					break
				}
			}
		}

		edges, err := g.GetEdgesTouching(ctx, entry.nodeID)
		if err != nil {
			return nil, fmt.Errorf("traverse: loading edges for %s: %w", entry.nodeID, err)
		}

		for _, edge := range edges {
			if excludedEdgeTypes[edge.EdgeType] {
				continue
			}
			if cfg.NotSuperseded && edge.IsSuperseded() {
				continue
			}
			if allowSet != nil && !allowSet[edge.EdgeType] {
				continue
			}
			if denySet[edge.EdgeType] {
				continue
			}

			neighbor := edge.TargetID
			if edge.SourceID != entry.nodeID {
				neighbor = edge.SourceID
			}
			if visited[neighbor] {
				continue
			}

			cost := EdgeCost(edge.EdgeType, edge.Confidence)
			newDist := entry.distance + cost
			if newDist > cfg.MaxCost {
				continue
			}

			if best, ok := dist[neighbor]; !ok || newDist < best {
				dist[neighbor] = newDist
				prev[neighbor] = backPointer{prevNodeID: entry.nodeID, edgeType: edge.EdgeType}
				heap.Push(h, heapEntry{
					distance: newDist,
					nodeID:   neighbor,
					edgeID:   edge.ID,
					hops:     entry.hops + 1,
				})
			}
		}
	}

	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

func reconstructPath(prev map[string]backPointer, source, target string) []PathHop {
	var path []PathHop
	current := target
	for current != source {
		bp, ok := prev[current]
		if !ok {
			break
		}
		path = append(path, PathHop{NodeID: current, EdgeType: bp.edgeType})
		current = bp.prevNodeID
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
