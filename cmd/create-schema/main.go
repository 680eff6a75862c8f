package main

import (
	"context"
	"log"
	"os"

	"officialqa-backend/app"
	"officialqa-backend/config"
	"officialqa-backend/repository"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := app.InitPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Drop the embeddings table first (for development - re-embedding is required afterwards)
	if os.Getenv("RESET_SCHEMA") == "true" {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS official_embeddings CASCADE"); err != nil {
			log.Fatalf("Failed to drop table: %v", err)
		}
		log.Println("✓ Dropped existing official_embeddings table (if any)")
	}

	statements := append(repository.OfficialsSchema(), repository.EmbeddingsSchema(cfg.EmbeddingDimensions)...)
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt.SQL); err != nil {
			log.Fatalf("Failed to create %s: %v", stmt.Name, err)
		}
		log.Printf("✓ %s", stmt.Name)
	}

	log.Printf("✓ Schema ready (embedding dimensions: %d)", cfg.EmbeddingDimensions)
}
