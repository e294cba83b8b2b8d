package retrieval

import (
	"context"
	"fmt"
	"os"

	"github.com/wrenfield/ctxcore/internal/metrics"
	"github.com/wrenfield/ctxcore/internal/similarity"
	"github.com/wrenfield/ctxcore/internal/store"
)

// AnchorSource identifies which search produced an anchor.
type AnchorSource string

const (
	SourceSemantic AnchorSource = "semantic"
	SourceFTS      AnchorSource = "fts"
)

// Anchor is a seed node for context gathering.
type Anchor struct {
	NodeID string       `json:"node_id"`
	Title  string       `json:"title"`
	Score  float64      `json:"score"` // similarity in [0,1] for semantic anchors, 0 for FTS
	Source AnchorSource `json:"source"`
}

// FindAnchors runs semantic and keyword search for task against taskNodeID's
// embedding and text, merges the two result sets (semantic first, FTS
// appended, deduplicated by node id), and truncates to cfg.MaxAnchors.
// Nodes in the "operational" class and the task node itself are excluded
// from both sources.
//
// A failure in one source is logged and the surviving source is used; only
// both sources failing surfaces an error to the caller.
func FindAnchors(ctx context.Context, g store.GraphStore, task, taskNodeID string, cfg AnchorConfig) ([]Anchor, error) {
	maxAnchors := cfg.MaxAnchors
	if maxAnchors <= 0 {
		maxAnchors = 5
	}
	m := metrics.Default()

	semanticAnchors, semErr := semanticAnchors(ctx, g, taskNodeID, cfg, maxAnchors)
	if semErr != nil {
		m.RecordStoreError(ctx, "semantic_search")
		fmt.Fprintf(os.Stderr, "[retrieval] warning: semantic anchor search failed: %v\n", semErr)
	}

	ftsAnchors, ftsErr := ftsAnchors(ctx, g, task, taskNodeID, maxAnchors)
	if ftsErr != nil {
		m.RecordStoreError(ctx, "fts_search")
		fmt.Fprintf(os.Stderr, "[retrieval] warning: fts anchor search failed: %v\n", ftsErr)
	}

	if semErr != nil && ftsErr != nil {
		return nil, fmt.Errorf("retrieval: both anchor sources failed: semantic: %v; fts: %w", semErr, ftsErr)
	}
	m.RecordAnchorsFound(ctx, "semantic", int64(len(semanticAnchors)))
	m.RecordAnchorsFound(ctx, "fts", int64(len(ftsAnchors)))

	seen := make(map[string]bool, len(semanticAnchors)+len(ftsAnchors))
	merged := make([]Anchor, 0, maxAnchors)
	for _, a := range semanticAnchors {
		if seen[a.NodeID] {
			continue
		}
		seen[a.NodeID] = true
		merged = append(merged, a)
	}
	for _, a := range ftsAnchors {
		if seen[a.NodeID] {
			continue
		}
		seen[a.NodeID] = true
		merged = append(merged, a)
	}
	if len(merged) > maxAnchors {
		merged = merged[:maxAnchors]
	}
	return merged, nil
}

func semanticAnchors(ctx context.Context, g store.GraphStore, taskNodeID string, cfg AnchorConfig, maxAnchors int) ([]Anchor, error) {
	taskEmb, err := g.GetEmbedding(ctx, taskNodeID)
	if err != nil {
		return nil, err
	}
	if taskEmb == nil {
		return nil, nil
	}

	matches, err := similarity.TopK(ctx, g, taskEmb, taskNodeID, cfg.SimilarTop, float32(cfg.Threshold))
	if err != nil {
		return nil, err
	}

	var anchors []Anchor
	for _, m := range matches {
		node, err := g.GetNode(ctx, m.NodeID)
		if err != nil {
			return nil, err
		}
		if node == nil || node.IsOperational() {
			continue
		}
		anchors = append(anchors, Anchor{
			NodeID: m.NodeID,
			Title:  node.DisplayTitle(),
			Score:  float64(m.Similarity),
			Source: SourceSemantic,
		})
		if len(anchors) >= maxAnchors {
			break
		}
	}
	return anchors, nil
}

func ftsAnchors(ctx context.Context, g store.GraphStore, task, taskNodeID string, maxAnchors int) ([]Anchor, error) {
	query := store.BuildFTSQuery(task)
	if query == "" {
		return nil, nil
	}

	nodes, err := g.FTSSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	var anchors []Anchor
	for _, n := range nodes {
		if n.ID == taskNodeID || n.IsOperational() {
			continue
		}
		anchors = append(anchors, Anchor{
			NodeID: n.ID,
			Title:  n.DisplayTitle(),
			Score:  0,
			Source: SourceFTS,
		})
		if len(anchors) >= maxAnchors {
			break
		}
	}
	return anchors, nil
}
