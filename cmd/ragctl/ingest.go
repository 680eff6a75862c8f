package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [official-id]",
	Short: "Index one official",
	Long: `Chunks one official record, embeds every chunk that is not yet
indexed and stores it. Chunks already indexed are left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var ingestAllCmd = &cobra.Command{
	Use:   "ingest-all",
	Short: "Index every official",
	Long: `Indexes every official in turn at the configured rate. Failures are
reported per official and the run continues, unless too many fail in a row.`,
	Args: cobra.NoArgs,
	RunE: runIngestAll,
}

var purgeCmd = &cobra.Command{
	Use:   "purge [official-id]",
	Short: "Remove every indexed chunk of an official",
	Args:  cobra.ExactArgs(1),
	RunE:  runPurge,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the tables and indexes the index needs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := rag.Initialize(cmd.Context()); err != nil {
			return fmt.Errorf("initialize failed: %w", err)
		}
		cmd.Println("Index initialized.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(ingestAllCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(initCmd)
}

func parseOfficialID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid official id %q", arg)
	}
	return id, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	id, err := parseOfficialID(args[0])
	if err != nil {
		return err
	}

	result, err := rag.Ingest(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if jsonOut {
		return printJSON(cmd, result)
	}
	cmd.Printf("%s: %d chunks inserted, %d skipped\n", result.EntityName, result.Inserted, result.Skipped)
	for _, e := range result.ChunkErrors {
		cmd.Printf("  %s failed: %s\n", e.ChunkType, e.Error)
	}
	return nil
}

func runIngestAll(cmd *cobra.Command, _ []string) error {
	result, err := rag.IngestAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("ingest-all failed: %w", err)
	}

	if jsonOut {
		if err := printJSON(cmd, result); err != nil {
			return err
		}
	} else {
		cmd.Printf("%d officials processed, %d chunks inserted, %d skipped\n",
			result.EntitiesProcessed, result.ChunksInserted, result.ChunksSkipped)
		for _, e := range result.Errors {
			cmd.Printf("  official %d: %s\n", e.EntityID, e.Error)
		}
	}

	if result.Aborted {
		return fmt.Errorf("ingest-all stopped early after repeated failures")
	}
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	id, err := parseOfficialID(args[0])
	if err != nil {
		return err
	}

	removed, err := rag.Purge(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	cmd.Printf("Removed %d chunks for official %d.\n", removed, id)
	return nil
}
