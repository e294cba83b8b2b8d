// Package traverse implements the weighted shortest-path context expansion
// that walks the graph outward from a source node, turning confidence-weighted
// edges into a ranked, budget-limited list of nearby nodes with full path
// provenance.
package traverse

// structuralEdgeTypes are edges that connect the hierarchy scaffold (file
// containment, parent/child groupings) rather than semantic relationships.
// Crossing many of them in a row must cost meaningfully more than crossing
// one strong semantic edge, or the traversal tunnels through a whole subtree
// and reports it as "close" to the source.
var structuralEdgeTypes = map[string]bool{
	"defined_in": true,
	"belongs_to": true,
	"contains":   true,
	"parent_of":  true,
}

// edgeTypePriority returns the traversal priority in [0,1] for an edge type.
// Higher priority means more diagnostic value and therefore a cheaper cost:
// a contradiction is worth crossing more readily than an incidental mention.
// Unrecognized types fall back to the lowest priority tier.
func edgeTypePriority(edgeType string) float64 {
	switch edgeType {
	case "contradicts", "flags":
		return 1.0
	case "summarizes", "derives_from":
		return 0.7
	case "supports", "questions":
		return 0.5
	case "related", "calls", "reference":
		return 0.3
	default:
		return 0.3
	}
}

// IsStructuralEdge reports whether an edge type belongs to the hierarchy
// scaffold rather than a semantic relationship.
func IsStructuralEdge(edgeType string) bool {
	return structuralEdgeTypes[edgeType]
}

// structuralFloor is the minimum cost assigned to a structural edge
// regardless of its confidence, so hierarchy traversal can't tunnel through
// an entire subtree for free.
const structuralFloor = 0.4

// EdgeCost maps an edge type and optional confidence to a non-negative
// traversal cost. Absent confidence is treated as the neutral prior 0.5.
func EdgeCost(edgeType string, confidence *float64) float64 {
	base := 0.5
	if confidence != nil {
		c := *confidence
		if c < 0 {
			c = 0
		} else if c > 1 {
			c = 1
		}
		base = 1 - c
	}

	priority := edgeTypePriority(edgeType)
	semanticAdjustment := 1 - 0.5*priority
	raw := base * semanticAdjustment

	cost := raw
	if IsStructuralEdge(edgeType) && cost < structuralFloor {
		cost = structuralFloor
	}
	if cost < 0 {
		cost = 0
	}
	return cost
}
