package main

import (
	"context"
	"encoding/json"
	"fmt"

	"officialqa-backend/app"
	"officialqa-backend/config"
	"officialqa-backend/models"

	"github.com/spf13/cobra"
)

// ragService is what the commands drive
type ragService interface {
	Ask(ctx context.Context, question, entityName string) (models.AnswerResult, error)
	Ingest(ctx context.Context, entityID int64) (models.IngestResult, error)
	IngestAll(ctx context.Context) (models.BatchIngestResult, error)
	Status(ctx context.Context) (models.IndexStatus, error)
	Purge(ctx context.Context, entityID int64) (int, error)
	Initialize(ctx context.Context) error
}

var (
	rag      ragService
	instance *app.App
	jsonOut  bool
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Query and maintain the officials Q&A index",
	Long: `ragctl answers questions about public officials from the vector index
and runs the indexing jobs that build it. Settings come from the same
environment variables and .env file as the server.`,
	SilenceUsage:      true,
	PersistentPreRunE: connect,
	PersistentPostRun: func(*cobra.Command, []string) {
		if instance != nil {
			instance.Close()
			instance = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output results as JSON")
}

// connect wires the service from the environment unless one is already set.
func connect(cmd *cobra.Command, _ []string) error {
	if rag != nil {
		return nil
	}

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	instance = a
	rag = a.Service
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
