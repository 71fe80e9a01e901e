package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/david/tender-digest/internal/models"
)

var ErrNotFound = errors.New("not found")

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RunOutcome is what FinishRun records once the pipeline returns.
type RunOutcome struct {
	Status         string
	AuctionsTotal  int
	AuctionsFailed int
	FilesTotal     int
	FilesParsed    int
	Error          string
	Payload        json.RawMessage
}

const runCols = `id, status, urls, criteria, auctions_total, auctions_failed,
	files_total, files_parsed, error, payload, started_at, completed_at`

func scanRun(scan func(dest ...any) error) (models.ReportRun, error) {
	var r models.ReportRun
	var runErr *string
	var payload []byte
	err := scan(
		&r.ID, &r.Status, &r.URLs, &r.Criteria, &r.AuctionsTotal, &r.AuctionsFailed,
		&r.FilesTotal, &r.FilesParsed, &runErr, &payload, &r.StartedAt, &r.CompletedAt,
	)
	if err != nil {
		return r, err
	}
	if runErr != nil {
		r.Error = *runErr
	}
	if len(payload) > 0 {
		r.Payload = json.RawMessage(payload)
	}
	return r, nil
}

const docCols = `id, run_id, auction_index, auction_id, file_id, saved_name, provenance,
	text, length(text), embedding IS NOT NULL, created_at`

func scanDocument(scan func(dest ...any) error, extra ...any) (models.RunDocument, error) {
	var d models.RunDocument
	dest := []any{
		&d.ID, &d.RunID, &d.AuctionIndex, &d.AuctionID, &d.FileID, &d.SavedName, &d.Provenance,
		&d.Text, &d.TextChars, &d.HasEmbedding, &d.CreatedAt,
	}
	err := scan(append(dest, extra...)...)
	return d, err
}

// CreateRun records a new run in the running state.
func (s *Store) CreateRun(ctx context.Context, urls []string, criteria []int) (*models.ReportRun, error) {
	sql := fmt.Sprintf(`
		INSERT INTO report_runs (status, urls, criteria)
		VALUES ($1, $2, $3)
		RETURNING %s
	`, runCols)
	r, err := scanRun(s.pool.QueryRow(ctx, sql, models.RunRunning, urls, criteria).Scan)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return &r, nil
}

// FinishRun stores the outcome and completion time of run id.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, out RunOutcome) error {
	var runErr *string
	if out.Error != "" {
		runErr = &out.Error
	}
	var payload []byte
	if len(out.Payload) > 0 {
		payload = out.Payload
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE report_runs
		SET status = $2, auctions_total = $3, auctions_failed = $4,
			files_total = $5, files_parsed = $6, error = $7, payload = $8,
			completed_at = NOW()
		WHERE id = $1
	`, id, out.Status, out.AuctionsTotal, out.AuctionsFailed, out.FilesTotal, out.FilesParsed, runErr, payload)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveDocument stores one parsed file. embedding may be nil.
func (s *Store) SaveDocument(ctx context.Context, doc models.RunDocument, embedding []float32) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO run_documents (run_id, auction_index, auction_id, file_id, saved_name, provenance, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, doc.RunID, doc.AuctionIndex, doc.AuctionID, doc.FileID, doc.SavedName, doc.Provenance, doc.Text, vectorArg(embedding)).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save document %s: %w", doc.FileID, err)
	}
	return id, nil
}

// SetEmbedding attaches an embedding to an already stored document.
func (s *Store) SetEmbedding(ctx context.Context, docID uuid.UUID, embedding []float32) error {
	tag, err := s.pool.Exec(ctx, "UPDATE run_documents SET embedding = $2 WHERE id = $1", docID, vectorArg(embedding))
	if err != nil {
		return fmt.Errorf("set embedding %s: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set embedding %s: %w", docID, ErrNotFound)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*models.ReportRun, error) {
	sql := fmt.Sprintf("SELECT %s FROM report_runs WHERE id = $1", runCols)
	r, err := scanRun(s.pool.QueryRow(ctx, sql, id).Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs, optionally filtered by status. The
// payload is left out.
func (s *Store) ListRuns(ctx context.Context, status string, limit int) ([]models.ReportRun, error) {
	where, args := buildRunFilter(status)
	args = append(args, clampLimit(limit))
	sql := fmt.Sprintf(`
		SELECT %s
		FROM report_runs
		%s
		ORDER BY started_at DESC
		LIMIT $%d
	`, runCols, where, len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []models.ReportRun{}
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Payload = nil
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListDocuments returns the documents of run id in auction order.
func (s *Store) ListDocuments(ctx context.Context, runID uuid.UUID) ([]models.RunDocument, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM run_documents
		WHERE run_id = $1
		ORDER BY auction_index, created_at
	`, docCols)
	return s.queryDocuments(ctx, sql, runID)
}

// DocumentsMissingEmbedding returns up to limit documents stored without an
// embedding, oldest first.
func (s *Store) DocumentsMissingEmbedding(ctx context.Context, limit int) ([]models.RunDocument, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM run_documents
		WHERE embedding IS NULL AND text <> ''
		ORDER BY created_at
		LIMIT $1
	`, docCols)
	return s.queryDocuments(ctx, sql, clampLimit(limit))
}

// SearchDocuments ranks embedded documents by cosine distance to query.
func (s *Store) SearchDocuments(ctx context.Context, query []float32, limit int) ([]models.RunDocument, error) {
	if len(query) == 0 {
		return nil, errors.New("search documents: empty query embedding")
	}
	sql := fmt.Sprintf(`
		SELECT %s, embedding <=> $1 AS distance
		FROM run_documents
		WHERE embedding IS NOT NULL
		ORDER BY distance
		LIMIT $2
	`, docCols)

	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(query), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	docs := []models.RunDocument{}
	for rows.Next() {
		var distance float64
		d, err := scanDocument(rows.Scan, &distance)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Distance = &distance
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) queryDocuments(ctx context.Context, sql string, args ...any) ([]models.RunDocument, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []models.RunDocument{}
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Counts summarises table sizes for the operator tools.
type Counts struct {
	Runs              int
	RunsByStatus      map[string]int
	Documents         int
	EmbeddedDocuments int
}

func (s *Store) Counts(ctx context.Context) (*Counts, error) {
	c := &Counts{RunsByStatus: map[string]int{}}
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM report_runs").Scan(&c.Runs); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*), COUNT(embedding) FROM run_documents").Scan(&c.Documents, &c.EmbeddedDocuments); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	rows, err := s.pool.Query(ctx, "SELECT status, COUNT(*) FROM report_runs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count runs by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		c.RunsByStatus[status] = n
	}
	return c, rows.Err()
}

func buildRunFilter(status string) (string, []any) {
	switch status {
	case "", "all":
		return "", nil
	default:
		return "WHERE status = $1", []any{status}
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func vectorArg(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}
