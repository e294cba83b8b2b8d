package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/wrenfield/ctxcore/internal/store"
)

// ResolveNode finds a node by full ID or by full-text title search. An
// ambiguous reference lists the candidates instead of guessing.
func ResolveNode(ctx context.Context, g store.GraphStore, reference string) (*store.Node, error) {
	node, err := g.GetNode(ctx, reference)
	if err != nil {
		return nil, err
	}
	if node != nil {
		return node, nil
	}

	ftsResults, err := g.FTSSearch(ctx, store.BuildFTSQuery(reference))
	if err == nil {
		var items []store.Node
		for _, n := range ftsResults {
			if n.IsItem {
				items = append(items, n)
			}
		}
		switch len(items) {
		case 1:
			return &items[0], nil
		case 0:
			// fall through to not found
		default:
			limit := 10
			if len(items) < limit {
				limit = len(items)
			}
			lines := make([]string, limit)
			for i := 0; i < limit; i++ {
				lines[i] = fmt.Sprintf("  %s %s", shortID(items[i].ID), items[i].Title)
			}
			return nil, fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\nUse a full node ID instead.",
				reference, len(items), strings.Join(lines, "\n"))
		}
	}

	return nil, fmt.Errorf("node not found: %s", reference)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
