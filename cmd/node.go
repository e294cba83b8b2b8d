package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wrenfield/ctxcore/internal/store"
)

var nodeTopEdges int

// edgeRanker is the optional store capability behind the "node" command's
// top-edges section; the SQLite backend implements it.
type edgeRanker interface {
	RankEdgesForNode(ctx context.Context, id string, topN int, notSuperseded bool) ([]store.Edge, error)
}

var nodeCmd = &cobra.Command{
	Use:   "node <ref>",
	Short: "Inspect a node: attributes, embedding, most relevant edges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		g, closeStore, err := OpenStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		node, err := ResolveNode(ctx, g, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:        %s\n", node.ID)
		fmt.Printf("Title:     %s\n", node.Title)
		if node.AITitle != nil {
			fmt.Printf("AI title:  %s\n", *node.AITitle)
		}
		kind := "grouping"
		if node.IsItem {
			kind = "item"
		}
		fmt.Printf("Kind:      %s\n", kind)
		if node.NodeClass != nil {
			fmt.Printf("Class:     %s\n", *node.NodeClass)
		}
		if node.ParentID != nil {
			fmt.Printf("Parent:    %s\n", shortID(*node.ParentID))
		}
		if node.Content != nil {
			preview := *node.Content
			if len(preview) > 120 {
				preview = preview[:120] + "…"
			}
			fmt.Printf("Content:   %s\n", preview)
		}

		emb, err := g.GetEmbedding(ctx, node.ID)
		if err != nil {
			return fmt.Errorf("loading embedding: %w", err)
		}
		if emb == nil {
			fmt.Println("Embedding: none")
		} else {
			fmt.Printf("Embedding: %s dims (%s)\n",
				humanize.Comma(int64(len(emb))), humanize.Bytes(uint64(len(emb)*4)))
		}

		ranker, ok := g.(edgeRanker)
		if !ok {
			return nil
		}
		edges, err := ranker.RankEdgesForNode(ctx, node.ID, nodeTopEdges, true)
		if err != nil {
			return fmt.Errorf("ranking edges: %w", err)
		}
		if len(edges) == 0 {
			return nil
		}
		fmt.Printf("\nTop edges (%d):\n", len(edges))
		for _, e := range edges {
			other := e.TargetID
			arrow := "->"
			if e.TargetID == node.ID {
				other = e.SourceID
				arrow = "<-"
			}
			fmt.Printf("  %s [%s] %s  conf=%.2f\n", arrow, e.EdgeType, shortID(other), e.EffectiveConfidence())
		}
		return nil
	},
}

func init() {
	nodeCmd.Flags().IntVar(&nodeTopEdges, "top-edges", 10, "How many ranked edges to show")
	rootCmd.AddCommand(nodeCmd)
}
