package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/tender-digest/internal/config"
	"github.com/david/tender-digest/internal/db"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config (embedded default when empty)")
	status := flag.String("status", "", "Only show runs with this status (running, completed, failed)")
	limit := flag.Int("limit", 10, "Number of runs to show")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	runs, err := db.NewStore(pool).ListRuns(ctx, *status, *limit)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Run", "Status", "Auctions", "Failed", "Files", "Parsed", "Duration", "Started At", "Error"})

	for _, r := range runs {
		duration := "Running..."
		if r.CompletedAt != nil {
			duration = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		t.AppendRow(table.Row{
			r.ID.String()[:8], r.Status, r.AuctionsTotal, r.AuctionsFailed,
			r.FilesTotal, r.FilesParsed, duration, r.StartedAt.Format("2006-01-02 15:04:05"), r.Error,
		})
	}
	t.Render()
}
