package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"officialqa-backend/app"
	"officialqa-backend/config"
	"officialqa-backend/repository"
)

func main() {
	config.LoadDotEnv()

	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <officials.json>", os.Args[0])
	}
	path := os.Args[1]

	officials, err := repository.LoadOfficialsFile(path)
	if err != nil {
		log.Fatalf("Failed to load officials: %v", err)
	}

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

	repo := repository.NewOfficialRepository(pool)
	if err := repo.Initialize(ctx); err != nil {
		log.Fatalf("Failed to create officials table: %v", err)
	}

	saved := 0
	for i := range officials {
		o := &officials[i]
		if o.Name == "" {
			log.Printf("⚠️  Skipping entry %d: missing name", i)
			continue
		}
		if err := repo.Save(ctx, o); err != nil {
			log.Printf("❌ Failed to save %s: %v", o.Name, err)
			continue
		}
		saved++
	}

	if err := repo.SyncIDSequence(ctx); err != nil {
		log.Printf("Warning: %v", err)
	}

	fmt.Printf("✅ Seeded %d of %d officials from %s\n", saved, len(officials), path)
}
