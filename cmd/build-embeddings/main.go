package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"officialqa-backend/app"
	"officialqa-backend/config"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	if err := a.Service.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize index: %v", err)
	}

	log.Printf("🔄 Building embeddings (%.1f officials/sec, stop after %d consecutive failures)",
		cfg.IngestRatePerSec, cfg.IngestMaxConsecutiveFailures)
	start := time.Now()

	result, err := a.Service.IngestAll(ctx)
	if err != nil {
		log.Fatalf("❌ Ingestion failed: %v", err)
	}

	for _, e := range result.Errors {
		log.Printf("   ⚠️  Official %d: %s", e.EntityID, e.Error)
	}
	log.Printf("✓ Done in %s: %d officials, %d chunks inserted, %d skipped",
		time.Since(start).Round(time.Millisecond), result.EntitiesProcessed, result.ChunksInserted, result.ChunksSkipped)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	if result.Aborted {
		a.Close()
		os.Exit(1)
	}
}
