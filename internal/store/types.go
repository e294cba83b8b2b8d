// Package store defines the read-only graph contract the retrieval core is
// built against, plus a SQLite-backed implementation. See the subpackage
// store/postgres for an alternative backend.
package store

// Node is a single vertex in the knowledge graph: code, documentation, or an
// operational bookkeeping record.
type Node struct {
	ID          string
	Title       string
	AITitle     *string // AI-refined title, preferred for display when set
	Content     *string
	Tags        *string // opaque JSON blob, not interpreted by the core
	NodeClass   *string // open set; "operational" is privileged
	IsItem      bool    // leaf (true) vs grouping/category (false)
	ParentID    *string
	HasEmbedding bool
}

// DisplayTitle returns the AI-refined title when present, else the raw title.
func (n *Node) DisplayTitle() string {
	if n.AITitle != nil && *n.AITitle != "" {
		return *n.AITitle
	}
	return n.Title
}

// IsOperational reports whether the node belongs to the orchestrator's own
// bookkeeping class, which is excluded from anchors and context.
func (n *Node) IsOperational() bool {
	return n.NodeClass != nil && *n.NodeClass == "operational"
}

// Edge is a directed, typed link between two nodes.
type Edge struct {
	ID           string
	SourceID     string
	TargetID     string
	EdgeType     string
	Confidence   *float64 // as stored (not clamped on read); absent means "unset"; EffectiveConfidence clamps to [0,1]
	AgentID      *string
	SupersededBy *string
	Metadata     *string
}

// EffectiveConfidence returns the edge's confidence, defaulting to 0.5 (the
// cost function's neutral prior) when unset, clamped to [0,1].
func (e *Edge) EffectiveConfidence() float64 {
	if e.Confidence == nil {
		return 0.5
	}
	c := *e.Confidence
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// IsSuperseded reports whether the edge has been replaced by another edge.
// An edge that names itself is defensively treated as not superseded.
func (e *Edge) IsSuperseded() bool {
	return e.SupersededBy != nil && *e.SupersededBy != e.ID
}

// NodeEmbedding pairs a node ID with its embedding vector.
type NodeEmbedding struct {
	ID        string
	Embedding []float32
}
