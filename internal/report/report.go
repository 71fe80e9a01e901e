package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/david/tender-digest/internal/ai"
	"github.com/david/tender-digest/internal/criterion"
	"github.com/david/tender-digest/internal/db"
	"github.com/david/tender-digest/internal/document"
	"github.com/david/tender-digest/internal/models"
	"github.com/david/tender-digest/internal/pipeline"
)

var (
	ErrNoURLs           = errors.New("at least one auction url is required")
	ErrInvalidCriterion = errors.New("criterion must be between 1 and 6")
)

// mockPDF stands in for the rendered report until layout is implemented.
const mockPDF = "%PDF-1.4\n%Mock PDF content\n"

// Runner is the extraction pipeline.
type Runner interface {
	Run(ctx context.Context, urls []string, criteria []int) (*pipeline.Result, error)
}

// Recorder persists runs and their documents.
type Recorder interface {
	CreateRun(ctx context.Context, urls []string, criteria []int) (*models.ReportRun, error)
	FinishRun(ctx context.Context, id uuid.UUID, out db.RunOutcome) error
	SaveDocument(ctx context.Context, doc models.RunDocument, embedding []float32) (uuid.UUID, error)
}

// Request is the body of a report request.
type Request struct {
	URLs      []string `json:"urls"`
	Criterion []int    `json:"criterion"`
	// ClientID is the authenticated caller, empty when the route is open.
	ClientID string `json:"-"`
}

// Normalize drops blank urls, defaults the criteria to all six and rejects
// anything out of range.
func (r *Request) Normalize() error {
	urls := make([]string, 0, len(r.URLs))
	for _, u := range r.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return ErrNoURLs
	}
	r.URLs = urls

	if len(r.Criterion) == 0 {
		r.Criterion = criterion.All()
	}
	for _, c := range r.Criterion {
		if c < 1 || c > criterion.Count {
			return fmt.Errorf("%w: %d", ErrInvalidCriterion, c)
		}
	}
	return nil
}

type Report struct {
	RunID  uuid.UUID
	Result *pipeline.Result
	PDF    []byte
}

func (r *Report) Filename() string {
	return fmt.Sprintf("report_%s.pdf", r.RunID)
}

// Service generates reports. Store and Embedder are optional.
type Service struct {
	Pipeline Runner
	Store    Recorder
	Embedder ai.Embedder
}

// Generate runs the pipeline for req and records the run when a Store is set.
func (s *Service) Generate(ctx context.Context, req Request) (*Report, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	runID := uuid.New()
	if s.Store != nil {
		run, err := s.Store.CreateRun(ctx, req.URLs, req.Criterion)
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}
	client := req.ClientID
	if client == "" {
		client = "anonymous"
	}
	log.Printf("[report] run %s for %s: %d urls, criteria %v", runID, client, len(req.URLs), req.Criterion)

	res, err := s.Pipeline.Run(ctx, req.URLs, req.Criterion)
	// Bookkeeping must outlive a client that hung up.
	bg := context.WithoutCancel(ctx)
	if err != nil {
		s.finish(bg, runID, db.RunOutcome{Status: models.RunFailed, AuctionsTotal: len(req.URLs), Error: err.Error()})
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	sanitizeTexts(res)
	s.saveDocuments(bg, runID, res)

	st := res.Stats()
	payload, err := json.Marshal(res)
	if err != nil {
		log.Printf("[report] run %s: could not encode payload: %v", runID, err)
	}
	s.finish(bg, runID, db.RunOutcome{
		Status:         models.RunCompleted,
		AuctionsTotal:  st.Auctions,
		AuctionsFailed: st.FailedAuctions,
		FilesTotal:     st.Files,
		FilesParsed:    st.ParsedFiles,
		Payload:        payload,
	})

	return &Report{RunID: runID, Result: res, PDF: Render(res)}, nil
}

func (s *Service) finish(ctx context.Context, runID uuid.UUID, out db.RunOutcome) {
	if s.Store == nil {
		return
	}
	if err := s.Store.FinishRun(ctx, runID, out); err != nil {
		log.Printf("[report] run %s: could not record outcome: %v", runID, err)
	}
}

// sanitizeTexts strips characters Postgres cannot store from every extracted
// text, whichever extractor produced it.
func sanitizeTexts(res *pipeline.Result) {
	for _, files := range res.Files {
		for _, f := range files {
			if f != nil && f.Text != nil {
				f.Text.Text = document.SanitizeText(f.Text.Text)
			}
		}
	}
}

func (s *Service) saveDocuments(ctx context.Context, runID uuid.UUID, res *pipeline.Result) {
	if s.Store == nil {
		return
	}
	for i, files := range res.Files {
		for _, f := range files {
			if f == nil || f.Text == nil || strings.TrimSpace(f.Text.Text) == "" {
				continue
			}
			var embedding []float32
			if s.Embedder != nil {
				vec, err := s.Embedder.GenerateEmbedding(ctx, f.Text.Text)
				if err != nil {
					log.Printf("[report] run %s: no embedding for file %s: %v", runID, f.FileID, err)
				} else {
					embedding = vec
				}
			}
			doc := models.RunDocument{
				RunID:        runID,
				AuctionIndex: i,
				AuctionID:    res.Auctions[i].AuctionID,
				FileID:       f.FileID,
				SavedName:    f.SavedName,
				Provenance:   string(f.Text.Provenance),
				Text:         f.Text.Text,
			}
			if _, err := s.Store.SaveDocument(ctx, doc, embedding); err != nil {
				log.Printf("[report] run %s: could not store file %s: %v", runID, f.FileID, err)
			}
		}
	}
}

// Render produces the PDF handed back to the caller.
func Render(res *pipeline.Result) []byte {
	return []byte(mockPDF)
}
