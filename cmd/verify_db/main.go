package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/david/tender-digest/internal/config"
	"github.com/david/tender-digest/internal/db"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config (embedded default when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Unable to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	var migrations int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM schema_migrations").Scan(&migrations); err != nil {
		log.Fatalf("Query failed (migrations not applied?): %v", err)
	}

	counts, err := db.NewStore(pool).Counts(ctx)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	fmt.Printf("Applied migrations: %d\n", migrations)
	fmt.Printf("Report runs: %d\n", counts.Runs)
	statuses := make([]string, 0, len(counts.RunsByStatus))
	for s := range counts.RunsByStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Printf("  %s: %d\n", s, counts.RunsByStatus[s])
	}
	fmt.Printf("Stored documents: %d\n", counts.Documents)
	fmt.Printf("With embedding: %d\n", counts.EmbeddedDocuments)
}
