package main

import (
	"fmt"

	"officialqa-backend/models"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is indexed",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	status, err := rag.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if jsonOut {
		return printJSON(cmd, status)
	}

	cmd.Printf("Embeddings: %d\n", status.TotalEmbeddings)
	cmd.Printf("Officials:  %d\n", status.EntitiesIndexed)
	for _, t := range models.AllChunkTypes() {
		if n, ok := status.ByChunkType[t]; ok {
			cmd.Printf("  %-13s %d\n", t, n)
		}
	}
	return nil
}
