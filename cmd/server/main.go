package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/david/tender-digest/internal/ai"
	"github.com/david/tender-digest/internal/api"
	"github.com/david/tender-digest/internal/auth"
	"github.com/david/tender-digest/internal/config"
	"github.com/david/tender-digest/internal/db"
	"github.com/david/tender-digest/internal/pipeline"
	"github.com/david/tender-digest/internal/report"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config (embedded default when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	secret, err := auth.SecretFromEnv()
	if err != nil {
		log.Fatalf("Auth configuration failed: %v", err)
	}

	var embedder ai.Embedder
	if cfg.AI.Enabled {
		embedder = ai.NewOllamaClient(cfg.AI)
		log.Printf("Embeddings enabled via %s (%s)", cfg.AI.Host, cfg.AI.EmbedModel)
	}

	store := db.NewStore(pool)
	reports := &report.Service{
		Pipeline: pipeline.New(cfg),
		Store:    store,
		Embedder: embedder,
	}

	srv := api.NewServer(cfg.Server, secret, reports, store, embedder)
	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := srv.Start(cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
