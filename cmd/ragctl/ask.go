package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askOfficial string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about indexed officials",
	Long: `Retrieves the records most similar to the question and asks the
generation model to answer from them only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askOfficial, "official", "o", "", "only use records of officials whose name contains this")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	result, err := rag.Ask(cmd.Context(), question, askOfficial)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if jsonOut {
		return printJSON(cmd, result)
	}

	cmd.Println(result.Answer)
	cmd.Println()
	cmd.Printf("Confidence: %s (%s)\n", result.Confidence, result.Outcome)
	if len(result.Sources) > 0 {
		cmd.Println("Sources:")
		for i, src := range result.Sources {
			cmd.Printf("  [%d] %s - %s (%.2f)\n", i+1, src.EntityName, src.ChunkType, src.SimilarityScore)
		}
	}
	return nil
}
