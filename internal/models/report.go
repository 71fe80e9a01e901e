package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ReportRun is one generate_report request and its outcome.
type ReportRun struct {
	ID             uuid.UUID       `json:"id"`
	Status         string          `json:"status"`
	URLs           []string        `json:"urls"`
	Criteria       []int           `json:"criteria"`
	AuctionsTotal  int             `json:"auctions_total"`
	AuctionsFailed int             `json:"auctions_failed"`
	FilesTotal     int             `json:"files_total"`
	FilesParsed    int             `json:"files_parsed"`
	Error          string          `json:"error,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at"`
}

// RunDocument is the text of one attached file parsed during a run.
type RunDocument struct {
	ID           uuid.UUID `json:"id"`
	RunID        uuid.UUID `json:"run_id"`
	AuctionIndex int       `json:"auction_index"`
	AuctionID    string    `json:"auction_id"`
	FileID       string    `json:"file_id"`
	SavedName    string    `json:"saved_name"`
	Provenance   string    `json:"provenance"`
	Text         string    `json:"text,omitempty"`
	TextChars    int       `json:"text_chars"`
	HasEmbedding bool      `json:"has_embedding"`
	Distance     *float64  `json:"distance,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
