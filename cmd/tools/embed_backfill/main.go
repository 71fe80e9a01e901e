package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/david/tender-digest/internal/ai"
	"github.com/david/tender-digest/internal/config"
	"github.com/david/tender-digest/internal/db"
)

type docMetric struct {
	DocID     string
	FileID    string
	AuctionID string
	Chars     int
	Duration  time.Duration
	Error     string
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config (embedded default when empty)")
	batchSize := flag.Int("batch-size", 50, "Documents fetched per batch")
	maxItems := flag.Int("max-items", 500, "Max documents to embed in this run")
	rateLimitMs := flag.Int("rate-limit-ms", 200, "Delay between embedding calls in milliseconds")
	dryRun := flag.Bool("dry-run", false, "List documents that would be embedded; do not call the model")
	flag.Parse()

	if *batchSize <= 0 || *maxItems <= 0 {
		exitErr(errors.New("batch-size and max-items must be > 0"))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		exitErr(err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		exitErr(err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	embedder := ai.NewOllamaClient(cfg.AI)
	metrics := make([]docMetric, 0, *maxItems)
	seen := map[string]bool{}

	for len(metrics) < *maxItems {
		limit := min(*batchSize, *maxItems-len(metrics))
		docs, err := store.DocumentsMissingEmbedding(ctx, limit)
		if err != nil {
			exitErr(err)
		}

		progressed := false
		for _, d := range docs {
			id := d.ID.String()
			if seen[id] {
				continue
			}
			seen[id] = true
			progressed = true

			m := docMetric{DocID: id, FileID: d.FileID, AuctionID: d.AuctionID, Chars: d.TextChars}
			start := time.Now()
			if *dryRun {
				fmt.Printf("[DRY-RUN] %s (auction %s, file %s, %d chars)\n", id, d.AuctionID, d.FileID, d.TextChars)
			} else {
				vec, err := embedder.GenerateEmbedding(ctx, d.Text)
				if err == nil {
					err = store.SetEmbedding(ctx, d.ID, vec)
				}
				if err != nil {
					m.Error = err.Error()
				}
				if *rateLimitMs > 0 {
					time.Sleep(time.Duration(*rateLimitMs) * time.Millisecond)
				}
			}
			m.Duration = time.Since(start)
			metrics = append(metrics, m)
		}

		// Failed or dry-run documents come back in the next batch.
		if !progressed || len(docs) < limit {
			break
		}
	}

	printReport(metrics)
}

func printReport(metrics []docMetric) {
	fmt.Println("\n=== Embedding Backfill Report ===")
	fmt.Printf("%-36s %-10s %-10s %-8s %-8s %s\n", "document", "auction", "file", "chars", "sec", "error")

	embedded, failed := 0, 0
	for _, m := range metrics {
		if m.Error != "" {
			failed++
		} else {
			embedded++
		}
		fmt.Printf("%-36s %-10s %-10s %-8d %-8.2f %s\n", m.DocID, m.AuctionID, m.FileID, m.Chars, m.Duration.Seconds(), m.Error)
	}

	fmt.Printf("\nTotals: processed=%d embedded=%d errors=%d\n", len(metrics), embedded, failed)
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
