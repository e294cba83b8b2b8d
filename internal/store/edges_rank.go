package store

import "sort"

// edgeTypeRankPriority returns the ranking priority used by RankEdgesForNode.
// This is a supplemental convenience for callers that want "the N edges most
// worth showing about a node" (e.g. a CLI inspector) and is independent of
// the traversal cost function in package traverse, which uses its own
// priority table keyed to traversal semantics rather than display ranking.
func edgeTypeRankPriority(edgeType string) float64 {
	switch edgeType {
	case "contradicts", "flags":
		return 1.0
	case "derives_from", "summarizes", "resolves", "supersedes":
		return 0.7
	case "supports", "questions", "prerequisite", "evolved_from":
		return 0.5
	default:
		return 0.3
	}
}

// edgeWithTime pairs an edge with the creation timestamp used to compute its
// recency component in RankEdgesForNode.
type edgeWithTime struct {
	edge      Edge
	createdAt int64
}

// rankByRecencyConfidencePriority scores each edge as
// 0.3*recency + 0.3*confidence + 0.4*type_priority, where recency is the
// edge's linear position within [oldest, newest] createdAt among the
// candidates (1.0 for all when the range is zero), and returns the topN
// highest-scoring edges in descending score order.
func rankByRecencyConfidencePriority(items []edgeWithTime, topN int) []Edge {
	if len(items) == 0 {
		return nil
	}

	oldest, newest := items[0].createdAt, items[0].createdAt
	for _, it := range items[1:] {
		if it.createdAt < oldest {
			oldest = it.createdAt
		}
		if it.createdAt > newest {
			newest = it.createdAt
		}
	}
	timeRange := float64(newest - oldest)

	type scored struct {
		score float64
		edge  Edge
	}
	scoredItems := make([]scored, len(items))
	for i, it := range items {
		recency := 1.0
		if timeRange > 0 {
			recency = float64(it.createdAt-oldest) / timeRange
		}
		scoredItems[i] = scored{
			score: 0.3*recency + 0.3*it.edge.EffectiveConfidence() + 0.4*edgeTypeRankPriority(it.edge.EdgeType),
			edge:  it.edge,
		}
	}

	sort.Slice(scoredItems, func(i, j int) bool {
		return scoredItems[i].score > scoredItems[j].score
	})

	if len(scoredItems) > topN {
		scoredItems = scoredItems[:topN]
	}

	result := make([]Edge, len(scoredItems))
	for i, s := range scoredItems {
		result[i] = s.edge
	}
	return result
}
