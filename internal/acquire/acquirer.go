package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/david/tender-digest/internal/auction"
	"github.com/david/tender-digest/internal/config"
	"github.com/david/tender-digest/internal/document"
)

var errNoFileID = errors.New("attached file has no id")

// FileResult is the outcome for one attached file. Text is nil when the file
// could not be downloaded, saved or parsed; Error then says why.
type FileResult struct {
	FileID       string                  `json:"fileId"`
	DeclaredName string                  `json:"declaredName"`
	SavedName    string                  `json:"savedName,omitempty"`
	Text         *document.ExtractedText `json:"text"`
	Error        string                  `json:"error,omitempty"`
}

// Acquirer downloads attached files, hands them to the document parser and
// removes them again.
type Acquirer struct {
	HTTP      *http.Client
	UserAgent string
	URLFor    func(fileID auction.ID) string
	Extractor document.Extractor
}

// NewAcquirer builds an Acquirer whose downloads are bounded by the provider's
// download timeout.
func NewAcquirer(cfg config.ProviderConfig, urlFor func(auction.ID) string, ex document.Extractor) *Acquirer {
	timeout := time.Duration(cfg.DownloadTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Acquirer{
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: cfg.UserAgent,
		URLFor:    urlFor,
		Extractor: ex,
	}
}

// Acquire fetches file into dir, extracts its text and deletes it. Failures are
// reported in the result, never returned, so one bad file does not stop the
// others.
func (a *Acquirer) Acquire(ctx context.Context, dir string, file auction.AttachedFile) *FileResult {
	res := &FileResult{FileID: string(file.ID), DeclaredName: file.Name}
	if file.ID == "" {
		res.Error = errNoFileID.Error()
		log.Printf("[acquire] skipping %q: %v", file.Name, errNoFileID)
		return res
	}

	path, err := a.download(ctx, dir, file)
	if err != nil {
		res.Error = err.Error()
		log.Printf("[acquire] file %s skipped: %v", file.ID, err)
		return res
	}
	res.SavedName = filepath.Base(path)
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("[acquire] could not remove %s: %v", path, err)
		}
	}()

	text, err := a.Extractor.Extract(ctx, path)
	if err != nil {
		res.Error = err.Error()
		log.Printf("[acquire] file %s (%s) not parsed: %v", file.ID, res.SavedName, err)
		return res
	}
	res.Text = &text
	return res
}

func (a *Acquirer) download(ctx context.Context, dir string, file auction.AttachedFile) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URLFor(file.ID), nil)
	if err != nil {
		return "", err
	}
	if a.UserAgent != "" {
		req.Header.Set("User-Agent", a.UserAgent)
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: unexpected status code: %d", resp.StatusCode)
	}

	f, name, err := createUnique(dir, ResolveFilename(resp.Header, file))
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)

	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return path, nil
}
