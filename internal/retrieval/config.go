// Package retrieval implements anchor discovery and context gathering: it
// turns a task description and a task-node id into a ranked set of context
// rows with provenance, by combining semantic search, keyword search, and
// the traversal core.
package retrieval

// AnchorConfig tunes anchor discovery.
type AnchorConfig struct {
	MaxAnchors int
	SimilarTop int
	Threshold  float64
}

// DefaultAnchorConfig returns the anchor-discovery defaults.
func DefaultAnchorConfig() AnchorConfig {
	return AnchorConfig{
		MaxAnchors: 5,
		SimilarTop: 10,
		Threshold:  0.3,
	}
}

// GatherConfig tunes context gathering.
type GatherConfig struct {
	Budget  int
	MaxHops int
	MaxCost float64
	// MaxLessons caps retrieved lesson nodes. The core does not interpret
	// it; it rides along for the renderer.
	MaxLessons int
}

// DefaultGatherConfig returns the context-gathering defaults.
func DefaultGatherConfig() GatherConfig {
	return GatherConfig{
		Budget:     7,
		MaxHops:    4,
		MaxCost:    2.0,
		MaxLessons: 5,
	}
}

// excludedEdgeTypes is the fixed exclusion list context gathering always
// applies, regardless of caller configuration.
var excludedEdgeTypes = []string{"clicked", "backtracked", "session_item"}
