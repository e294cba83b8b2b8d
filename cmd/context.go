package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wrenfield/ctxcore/internal/retrieval"
)

var (
	gatherBudget     int
	gatherMaxHops    int
	gatherMaxCost    float64
	gatherMaxAnchors int
	gatherSimilarTop int
	gatherThreshold  float64
	gatherTask       string
	gatherJSON       bool
)

var gatherCmd = &cobra.Command{
	Use:   "context <task-node>",
	Short: "Anchor discovery plus graph expansion into ranked task context",
	Long: `Finds anchors for the task via semantic and keyword search, expands the
graph from each anchor, and prints the merged, ranked context rows. The task
text defaults to the task node's own title/content; override with --task.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		g, closeStore, err := OpenStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		taskNode, err := ResolveNode(ctx, g, args[0])
		if err != nil {
			return err
		}

		task := gatherTask
		if task == "" {
			task = taskNode.DisplayTitle()
			if taskNode.Content != nil {
				task += " " + *taskNode.Content
			}
		}

		anchorCfg := retrieval.AnchorConfig{
			MaxAnchors: gatherMaxAnchors,
			SimilarTop: gatherSimilarTop,
			Threshold:  gatherThreshold,
		}
		anchors, err := retrieval.FindAnchors(ctx, g, task, taskNode.ID, anchorCfg)
		if err != nil {
			return fmt.Errorf("anchor search: %w", err)
		}

		gatherCfg := retrieval.GatherConfig{
			Budget:  gatherBudget,
			MaxHops: gatherMaxHops,
			MaxCost: gatherMaxCost,
		}
		rows, err := retrieval.GatherContext(ctx, g, anchors, taskNode.ID, gatherCfg)
		if err != nil {
			return fmt.Errorf("context gathering: %w", err)
		}

		if gatherJSON {
			output := struct {
				RunID   string                 `json:"run_id"`
				Task    string                 `json:"task"`
				Source  jsonNodeRef            `json:"source"`
				Anchors []retrieval.Anchor     `json:"anchors"`
				Rows    []retrieval.ContextRow `json:"rows"`
				Count   int                    `json:"count"`
			}{
				RunID:   uuid.NewString(),
				Task:    task,
				Source:  jsonNodeRef{taskNode.ID, taskNode.DisplayTitle()},
				Anchors: anchors,
				Rows:    rows,
				Count:   len(rows),
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(output)
		}

		printGatherHumanReadable(taskNode.DisplayTitle(), anchors, rows)
		return nil
	},
}

type jsonNodeRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func init() {
	gatherCmd.Flags().IntVar(&gatherBudget, "budget", 7, "Max context rows per traversal")
	gatherCmd.Flags().IntVar(&gatherMaxHops, "max-hops", 4, "Max graph depth")
	gatherCmd.Flags().Float64Var(&gatherMaxCost, "max-cost", 2.0, "Cumulative cost ceiling")
	gatherCmd.Flags().IntVar(&gatherMaxAnchors, "max-anchors", 5, "Cap on the combined anchor list")
	gatherCmd.Flags().IntVar(&gatherSimilarTop, "similar-top", 10, "k for semantic search")
	gatherCmd.Flags().Float64Var(&gatherThreshold, "threshold", 0.3, "Minimum cosine similarity for anchors")
	gatherCmd.Flags().StringVar(&gatherTask, "task", "", "Task description (defaults to the node's title+content)")
	gatherCmd.Flags().BoolVar(&gatherJSON, "json", false, "JSON output")
	rootCmd.AddCommand(gatherCmd)
}

func printGatherHumanReadable(taskTitle string, anchors []retrieval.Anchor, rows []retrieval.ContextRow) {
	color := isatty.IsTerminal(os.Stdout.Fd())

	fmt.Printf("Context for: %s\n\n", taskTitle)

	if len(anchors) == 0 {
		fmt.Println("No anchors found.")
		return
	}
	fmt.Printf("Anchors (%d):\n", len(anchors))
	for _, a := range anchors {
		score := ""
		if a.Source == retrieval.SourceSemantic {
			score = fmt.Sprintf(" sim=%.2f", a.Score)
		}
		fmt.Printf("  [%s] %s %s%s\n", a.Source, shortID(a.NodeID), a.Title, score)
	}

	if len(rows) == 0 {
		fmt.Println("\nNo context rows within budget.")
		return
	}
	fmt.Printf("\nRanked context (%d):\n", len(rows))
	for _, r := range rows {
		fmt.Printf("  %2d. %s %s %s — rel=%.0f%% hops=%d\n",
			r.Rank, shortID(r.NodeID), relevanceBar(r.Relevance, color), r.Title, r.Relevance*100, r.Hops)
		fmt.Printf("      via %s (anchor: %s)\n", r.Via, r.Anchor)
	}
}

// relevanceBar renders a ten-segment bar for a relevance in [0,1], with
// ANSI color only when writing to a terminal.
func relevanceBar(relevance float64, color bool) string {
	if relevance < 0 {
		relevance = 0
	} else if relevance > 1 {
		relevance = 1
	}
	filled := int(relevance*10 + 0.5)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
	if !color {
		return bar
	}
	switch {
	case relevance >= 0.7:
		return "\x1b[32m" + bar + "\x1b[0m"
	case relevance >= 0.4:
		return "\x1b[33m" + bar + "\x1b[0m"
	default:
		return "\x1b[31m" + bar + "\x1b[0m"
	}
}
