package main

import (
	"context"
	"log"

	"officialqa-backend/app"
	"officialqa-backend/config"
	"officialqa-backend/handlers"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	ragHandler := handlers.NewRAGHandler(a.Service)

	// Setup Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	ragHandler.RegisterRoutes(api.Group("/rag"), handlers.AdminToken(cfg.AdminTokenHash))

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
