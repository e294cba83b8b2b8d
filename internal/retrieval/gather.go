package retrieval

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/wrenfield/ctxcore/internal/metrics"
	"github.com/wrenfield/ctxcore/internal/store"
	"github.com/wrenfield/ctxcore/internal/traverse"
)

// ContextRow is a single ranked entry in the gathered context, with
// provenance back to the anchor and path that produced it.
type ContextRow struct {
	Rank      int                `json:"rank"`
	NodeID    string             `json:"node_id"`
	Title     string             `json:"title"`
	Relevance float64            `json:"relevance"`
	Distance  float64            `json:"distance"`
	Hops      int                `json:"hops"`
	Path      []traverse.PathHop `json:"path"`
	Via       string             `json:"via"`    // edge-type sequence along the path, "->"-joined
	Anchor    string             `json:"anchor"` // display title of the anchor that produced this row; "search" for an anchor's own row
	NodeClass string             `json:"node_class,omitempty"`
}

type bestEntry struct {
	relevance float64
	distance  float64
	hops      int
	path      []traverse.PathHop
	title     string
	anchor    string
	via       string
	nodeClass string
}

// GatherContext runs the traverser from each anchor with items_only=true,
// not_superseded=true, and the fixed operational exclusion list, merges
// results into a map keyed by node id (keeping the highest-relevance entry
// per node), drops operational nodes and the task node itself, and returns
// the rows sorted by descending relevance with rank assigned 1..N.
//
// A traversal failure from a single anchor is logged and that anchor is
// skipped; the other anchors still contribute. Cancellation aborts the
// whole call with no partial results.
func GatherContext(ctx context.Context, g store.GraphStore, anchors []Anchor, taskNodeID string, cfg GatherConfig) ([]ContextRow, error) {
	budget := cfg.Budget
	if budget <= 0 {
		budget = 7
	}
	maxHops := cfg.MaxHops
	if maxHops <= 0 {
		maxHops = 4
	}
	maxCost := cfg.MaxCost
	if maxCost <= 0 {
		maxCost = 2.0
	}

	m := metrics.Default()
	m.ActiveGathers.Add(ctx, 1)
	start := time.Now()
	defer func() {
		m.ActiveGathers.Add(ctx, -1)
		m.GatherDuration.Record(ctx, time.Since(start).Seconds())
	}()

	tcfg := traverse.Config{
		Budget:           budget,
		MaxHops:          maxHops,
		MaxCost:          maxCost,
		EdgeTypeDenylist: excludedEdgeTypes,
		NotSuperseded:    true,
		ItemsOnly:        true,
	}

	seen := make(map[string]bestEntry)

	for _, anchor := range anchors {
		entries, err := expandAnchor(ctx, g, anchor, tcfg, m)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fmt.Fprintf(os.Stderr, "[retrieval] warning: traversal from anchor %s failed: %v\n", anchor.NodeID, err)
			continue
		}

		for id, e := range entries {
			prev, exists := seen[id]
			if !exists || e.relevance > prev.relevance {
				seen[id] = e
			}
		}

		if prev, exists := seen[anchor.NodeID]; !exists || prev.relevance < 1.0 {
			sourceLabel := "Semantic match"
			if anchor.Source == SourceFTS {
				sourceLabel = "FTS match"
			}
			seen[anchor.NodeID] = bestEntry{
				relevance: 1.0,
				title:     anchor.Title,
				anchor:    "search",
				via:       sourceLabel,
			}
		}
	}

	delete(seen, taskNodeID)

	type kv struct {
		id string
		e  bestEntry
	}
	sorted := make([]kv, 0, len(seen))
	for id, e := range seen {
		sorted = append(sorted, kv{id, e})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].e.relevance != sorted[j].e.relevance {
			return sorted[i].e.relevance > sorted[j].e.relevance
		}
		return sorted[i].id < sorted[j].id
	})

	rows := make([]ContextRow, len(sorted))
	for i, item := range sorted {
		rows[i] = ContextRow{
			Rank:      i + 1,
			NodeID:    item.id,
			Title:     item.e.title,
			Relevance: item.e.relevance,
			Distance:  item.e.distance,
			Hops:      item.e.hops,
			Path:      item.e.path,
			Via:       item.e.via,
			Anchor:    item.e.anchor,
			NodeClass: item.e.nodeClass,
		}
	}
	m.ContextRowsReturned.Add(ctx, int64(len(rows)))
	return rows, nil
}

// expandAnchor traverses from one anchor and resolves each reached node,
// returning fully formed entries so a mid-anchor store failure never leaves
// a half-merged result in the caller's map.
func expandAnchor(ctx context.Context, g store.GraphStore, anchor Anchor, tcfg traverse.Config, m *metrics.Metrics) (map[string]bestEntry, error) {
	tstart := time.Now()
	results, err := traverse.From(ctx, g, anchor.NodeID, tcfg)
	m.TraversalDuration.Record(ctx, time.Since(tstart).Seconds())
	if err != nil {
		return nil, err
	}

	entries := make(map[string]bestEntry, len(results))
	for _, r := range results {
		node, err := g.GetNode(ctx, r.NodeID)
		if err != nil {
			m.RecordStoreError(ctx, "get_node")
			return nil, err
		}
		if node == nil || node.IsOperational() {
			continue
		}

		via := "direct"
		if len(r.Path) > 0 {
			parts := make([]string, len(r.Path))
			for i, hop := range r.Path {
				parts[i] = hop.EdgeType
			}
			via = strings.Join(parts, " -> ")
		}
		nodeClass := ""
		if node.NodeClass != nil {
			nodeClass = *node.NodeClass
		}

		entries[r.NodeID] = bestEntry{
			relevance: r.Relevance,
			distance:  r.Distance,
			hops:      r.Hops,
			path:      r.Path,
			title:     node.DisplayTitle(),
			anchor:    anchor.Title,
			via:       via,
			nodeClass: nodeClass,
		}
	}
	return entries, nil
}
