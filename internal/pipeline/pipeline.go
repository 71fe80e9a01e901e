package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/david/tender-digest/internal/acquire"
	"github.com/david/tender-digest/internal/auction"
	"github.com/david/tender-digest/internal/config"
	"github.com/david/tender-digest/internal/criterion"
	"github.com/david/tender-digest/internal/document"
)

// AuctionSource loads one auction record from its page URL or id.
type AuctionSource interface {
	Fetch(ctx context.Context, source string, opts auction.FetchOptions) (*auction.AuctionRecord, error)
}

// FileAcquirer turns one attached file into text inside dir.
type FileAcquirer interface {
	Acquire(ctx context.Context, dir string, file auction.AttachedFile) *acquire.FileResult
}

// Collector drives auctions through fetching, criterion building and document
// extraction.
type Collector struct {
	Auctions     AuctionSource
	Files        FileAcquirer
	Concurrency  int
	DocumentsDir string
}

// New wires a Collector against the live provider.
func New(cfg *config.Config) *Collector {
	client := auction.NewClient(cfg.Provider)
	extractor := document.NewDispatcher(cfg.Documents)
	return &Collector{
		Auctions:     client,
		Files:        acquire.NewAcquirer(cfg.Provider, client.DownloadURL, extractor),
		Concurrency:  cfg.Pipeline.Concurrency,
		DocumentsDir: cfg.Documents.Dir,
	}
}

// AuctionResult summarises one requested URL.
type AuctionResult struct {
	URL       string `json:"url"`
	AuctionID string `json:"auctionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result is index-aligned with the requested URLs. A failed auction keeps its
// slot with nil criteria and files.
type Result struct {
	Criteria [][]*criterion.Entry    `json:"infoCriterion"`
	Files    [][]*acquire.FileResult `json:"filesContent"`
	Auctions []AuctionResult         `json:"auctions"`
}

type Stats struct {
	Auctions       int
	FailedAuctions int
	Files          int
	ParsedFiles    int
	SkippedFiles   int
}

func (r *Result) Stats() Stats {
	s := Stats{Auctions: len(r.Auctions)}
	for _, a := range r.Auctions {
		if a.Error != "" {
			s.FailedAuctions++
		}
	}
	for _, files := range r.Files {
		for _, f := range files {
			s.Files++
			if f != nil && f.Text != nil {
				s.ParsedFiles++
			} else {
				s.SkippedFiles++
			}
		}
	}
	return s
}

// Run processes urls, selecting criteria by 1-based index (all six when
// criteria is empty). Only a failure to prepare the documents directory is
// returned; every other failure is recorded in the result.
func (c *Collector) Run(ctx context.Context, urls []string, criteria []int) (*Result, error) {
	if err := acquire.EnsureDocumentsDir(c.DocumentsDir); err != nil {
		return nil, fmt.Errorf("documents dir: %w", err)
	}
	if len(criteria) == 0 {
		criteria = criterion.All()
	}
	opts := auction.FetchOptions{Characteristics: slices.Contains(criteria, 6)}

	res := &Result{
		Criteria: make([][]*criterion.Entry, len(urls)),
		Files:    make([][]*acquire.FileResult, len(urls)),
		Auctions: make([]AuctionResult, len(urls)),
	}

	limit := c.Concurrency
	if limit < 1 {
		limit = 1
	}
	start := time.Now()
	log.Printf("[pipeline] processing %d auctions, criteria %v, concurrency %d", len(urls), criteria, limit)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			res.Criteria[i], res.Files[i], res.Auctions[i] = c.processAuction(gctx, i, url, criteria, opts)
			return nil
		})
	}
	_ = g.Wait()

	st := res.Stats()
	log.Printf("[pipeline] done in %s: %d/%d auctions ok, %d/%d files parsed",
		time.Since(start).Round(time.Millisecond), st.Auctions-st.FailedAuctions, st.Auctions, st.ParsedFiles, st.Files)
	return res, nil
}

func (c *Collector) processAuction(ctx context.Context, index int, url string, criteria []int, opts auction.FetchOptions) ([]*criterion.Entry, []*acquire.FileResult, AuctionResult) {
	ar := AuctionResult{URL: url, AuctionID: auction.IDFromURL(url)}

	rec, err := c.Auctions.Fetch(ctx, url, opts)
	if err != nil {
		ar.Error = err.Error()
		log.Printf("[pipeline] auction %s skipped: %v", url, err)
		return nil, nil, ar
	}
	ar.AuctionID = rec.ID

	entries, err := criterion.Build(rec)
	if err != nil {
		ar.Error = err.Error()
		log.Printf("[pipeline] auction %s skipped: %v", rec.ID, err)
		return nil, nil, ar
	}
	selected := criterion.Select(entries, criteria)

	// One directory per auction, removed once its files are parsed.
	dir := filepath.Join(c.DocumentsDir, fmt.Sprintf("%d_%s", index, rec.ID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		ar.Error = fmt.Sprintf("create %s: %v", dir, err)
		log.Printf("[pipeline] auction %s: %s", rec.ID, ar.Error)
		return selected, nil, ar
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("[pipeline] could not remove %s: %v", dir, err)
		}
	}()

	files := make([]*acquire.FileResult, 0, len(rec.Files))
	for _, f := range rec.Files {
		files = append(files, c.Files.Acquire(ctx, dir, f))
	}
	return selected, files, ar
}
