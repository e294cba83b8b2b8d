package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wrenfield/ctxcore/internal/traverse"
)

var (
	travBudget        int
	travMaxHops       int
	travMaxCost       float64
	travNotSuperseded bool
	travItemsOnly     bool
	travJSON          bool
	travEdgeTypes     string
)

var traverseCmd = &cobra.Command{
	Use:   "traverse <id>",
	Short: "Weighted shortest-path expansion from a source node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		g, closeStore, err := OpenStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		source, err := ResolveNode(ctx, g, args[0])
		if err != nil {
			return err
		}

		cfg := traverse.Config{
			Budget:        travBudget,
			MaxHops:       travMaxHops,
			MaxCost:       travMaxCost,
			NotSuperseded: travNotSuperseded,
			ItemsOnly:     travItemsOnly,
		}
		if travEdgeTypes != "" {
			cfg.EdgeTypeAllowlist = strings.Split(travEdgeTypes, ",")
			for i := range cfg.EdgeTypeAllowlist {
				cfg.EdgeTypeAllowlist[i] = strings.TrimSpace(cfg.EdgeTypeAllowlist[i])
			}
		}

		results, err := traverse.From(ctx, g, source.ID, cfg)
		if err != nil {
			return fmt.Errorf("context expansion: %w", err)
		}

		if travJSON {
			output := struct {
				Source  jsonNodeRef       `json:"source"`
				Budget  int               `json:"budget"`
				Results []traverse.Result `json:"results"`
				Count   int               `json:"count"`
			}{
				Source:  jsonNodeRef{source.ID, source.DisplayTitle()},
				Budget:  travBudget,
				Results: results,
				Count:   len(results),
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(output)
		}

		printTraverseHumanReadable(source.DisplayTitle(), results)
		return nil
	},
}

func init() {
	traverseCmd.Flags().IntVar(&travBudget, "budget", 20, "Max nodes to return")
	traverseCmd.Flags().IntVar(&travMaxHops, "max-hops", 6, "Max graph depth")
	traverseCmd.Flags().Float64Var(&travMaxCost, "max-cost", 3.0, "Cost ceiling")
	traverseCmd.Flags().BoolVar(&travNotSuperseded, "not-superseded", false, "Filter superseded edges")
	traverseCmd.Flags().BoolVar(&travItemsOnly, "items-only", false, "Skip grouping nodes in results")
	traverseCmd.Flags().BoolVar(&travJSON, "json", false, "JSON output")
	traverseCmd.Flags().StringVar(&travEdgeTypes, "edge-types", "", "Comma-separated edge type allowlist")
	rootCmd.AddCommand(traverseCmd)
}

func printTraverseHumanReadable(sourceTitle string, results []traverse.Result) {
	if len(results) == 0 {
		fmt.Printf("No context nodes found for: %s\n", sourceTitle)
		return
	}

	fmt.Printf("Expansion from: %s  budget=%d\n\n", sourceTitle, travBudget)

	for _, r := range results {
		fmt.Printf("  %2d. %s — dist=%.3f rel=%.0f%% hops=%d\n",
			r.Rank, shortID(r.NodeID), r.Distance, r.Relevance*100, r.Hops)
		if len(r.Path) > 0 {
			hops := make([]string, len(r.Path))
			for i, hop := range r.Path {
				hops[i] = fmt.Sprintf("→[%s]→ %s", hop.EdgeType, shortID(hop.NodeID))
			}
			fmt.Printf("      %s\n", strings.Join(hops, " "))
		}
	}

	fmt.Printf("\n%d node(s) within budget\n", len(results))
}
