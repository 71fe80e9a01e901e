package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/tender-digest/internal/config"
	"github.com/david/tender-digest/internal/criterion"
	"github.com/david/tender-digest/internal/pipeline"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config (embedded default when empty)")
	urlsFlag := flag.String("urls", "", "Comma-separated auction links or ids")
	criteriaFlag := flag.String("criteria", "все", `Criteria numbers 1-6 separated by spaces or commas, or "все"`)
	asJSON := flag.Bool("json", false, "Print the raw result as JSON")
	flag.Parse()

	urls := criterion.ParseURLs(*urlsFlag)
	if len(urls) == 0 {
		log.Fatal("Please provide auction links using -urls")
	}
	criteria, err := criterion.ParseSelection(*criteriaFlag)
	if err != nil {
		log.Fatalf("Invalid -criteria: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	res, err := pipeline.New(cfg).Run(context.Background(), urls, criteria)
	if err != nil {
		log.Fatalf("Collection failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatal(err)
		}
		return
	}

	for i, a := range res.Auctions {
		fmt.Printf("\n[%d] %s (auction %s)\n", i+1, a.URL, a.AuctionID)
		if a.Error != "" {
			fmt.Printf("    failed: %s\n", a.Error)
			continue
		}
		renderCriteria(res.Criteria[i])
		renderFiles(res, i)
	}

	st := res.Stats()
	log.Printf("Collection finished. Auctions: %d (failed %d), Files: %d (parsed %d)", st.Auctions, st.FailedAuctions, st.Files, st.ParsedFiles)
}

func renderCriteria(entries []*criterion.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Criterion", "Value"})
	for _, e := range entries {
		if e == nil {
			t.AppendRow(table.Row{"-", "(not available)", ""})
			continue
		}
		t.AppendRow(table.Row{e.Index, e.Label, entryValue(e)})
	}
	t.Render()
}

func entryValue(e *criterion.Entry) string {
	switch {
	case len(e.Deliveries) > 0:
		parts := make([]string, 0, len(e.Deliveries))
		for _, d := range e.Deliveries {
			parts = append(parts, fmt.Sprintf("%s, %s", d.Period, d.Place))
		}
		return strings.Join(parts, "\n")
	case len(e.Specifications) > 0:
		parts := make([]string, 0, len(e.Specifications))
		for _, s := range e.Specifications {
			parts = append(parts, fmt.Sprintf("%s x %s", s.Name, s.Quantity))
		}
		return strings.Join(parts, "\n")
	default:
		return e.Value
	}
}

func renderFiles(res *pipeline.Result, i int) {
	if len(res.Files[i]) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"File", "Saved As", "Provenance", "Chars", "Error"})
	for _, f := range res.Files[i] {
		provenance, chars := "", 0
		if f.Text != nil {
			provenance = string(f.Text.Provenance)
			chars = utf8.RuneCountInString(f.Text.Text)
		}
		t.AppendRow(table.Row{f.DeclaredName, f.SavedName, provenance, chars, f.Error})
	}
	t.Render()
}
