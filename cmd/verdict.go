package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wrenfield/ctxcore/internal/verdict"
)

var (
	verdictTextFile string
	verdictJSON     bool
)

var verdictCmd = &cobra.Command{
	Use:   "verdict <impl-node>",
	Short: "Resolve a supports/contradicts verdict for an implementation node",
	Long: `Applies the three-layer verdict detection: graph edges targeting the node
(verifier-agent edges first), then a <verdict>{...}</verdict> block in the
verifier output, then a keyword scan. Verifier output is read from --text
(use "-" for stdin); with no text, only the graph layer applies.`,
	Args: cobra.ExactArgs(1),
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

		var text string
		switch verdictTextFile {
		case "":
		case "-":
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading verifier output from stdin: %w", err)
			}
			text = string(data)
		default:
			data, err := os.ReadFile(verdictTextFile)
			if err != nil {
				return fmt.Errorf("reading verifier output: %w", err)
			}
			text = string(data)
		}

		result, err := verdict.Determine(ctx, g, node.ID, text)
		if err != nil {
			return fmt.Errorf("verdict resolution: %w", err)
		}

		if verdictJSON {
			output := struct {
				Node       jsonNodeRef     `json:"node"`
				Verdict    verdict.Verdict `json:"verdict"`
				Confidence float64         `json:"confidence"`
				Reason     string          `json:"reason,omitempty"`
			}{
				Node:       jsonNodeRef{node.ID, node.DisplayTitle()},
				Verdict:    result.Verdict,
				Confidence: result.Confidence,
				Reason:     result.Reason,
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(output)
		}

		fmt.Printf("Node:       %s (%s)\n", node.DisplayTitle(), shortID(node.ID))
		fmt.Printf("Verdict:    %s\n", result.Verdict)
		fmt.Printf("Confidence: %.2f\n", result.Confidence)
		if result.Reason != "" {
			fmt.Printf("Reason:     %s\n", result.Reason)
		}
		return nil
	},
}

func init() {
	verdictCmd.Flags().StringVar(&verdictTextFile, "text", "", "File with verifier output ('-' for stdin)")
	verdictCmd.Flags().BoolVar(&verdictJSON, "json", false, "JSON output")
	rootCmd.AddCommand(verdictCmd)
}
