package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/david/tender-digest/internal/auth"
	"github.com/david/tender-digest/internal/config"
	"github.com/david/tender-digest/internal/db"
	"github.com/david/tender-digest/internal/models"
	"github.com/david/tender-digest/internal/pipeline"
	"github.com/david/tender-digest/internal/report"
)

var testSecret = []byte("api-test-secret")

type fakeGenerator struct {
	got report.Request
	err error
	id  uuid.UUID
}

func (f *fakeGenerator) Generate(ctx context.Context, req report.Request) (*report.Report, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &report.Report{RunID: f.id, Result: &pipeline.Result{}, PDF: []byte("%PDF-1.4\n%Mock PDF content\n")}, nil
}

type fakeStore struct {
	runs map[uuid.UUID]*models.ReportRun
	docs []models.RunDocument
	hits []float32
}

func (f *fakeStore) GetRun(ctx context.Context, id uuid.UUID) (*models.ReportRun, error) {
	if r, ok := f.runs[id]; ok {
		return r, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) ListRuns(ctx context.Context, status string, limit int) ([]models.ReportRun, error) {
	var out []models.ReportRun
	for _, r := range f.runs {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListDocuments(ctx context.Context, runID uuid.UUID) ([]models.RunDocument, error) {
	return f.docs, nil
}

func (f *fakeStore) SearchDocuments(ctx context.Context, query []float32, limit int) ([]models.RunDocument, error) {
	f.hits = query
	return f.docs, nil
}

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func bearer(t *testing.T) string {
	t.Helper()
	tok, err := auth.MintToken(testSecret, uuid.New(), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func do(t *testing.T, s *Server, method, path, body string, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", bearer(t))
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer(config.ServerConfig{}, testSecret, &fakeGenerator{}, nil, nil)
	rec := do(t, s, http.MethodGet, "/health", "", false)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestGenerateReport(t *testing.T) {
	gen := &fakeGenerator{id: uuid.New()}
	s := NewServer(config.ServerConfig{}, testSecret, gen, nil, nil)

	rec := do(t, s, http.MethodPost, "/api/generate_report", `{"urls":["https://zakupki.mos.ru/auction/1"]}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type %q", ct)
	}
	wantCD := fmt.Sprintf("attachment; filename=report_%s.pdf", gen.id)
	if cd := rec.Header().Get("Content-Disposition"); cd != wantCD {
		t.Errorf("content disposition %q, want %q", cd, wantCD)
	}
	if rec.Header().Get(HeaderReportRun) != gen.id.String() {
		t.Errorf("run header %q", rec.Header().Get(HeaderReportRun))
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-1.4") {
		t.Errorf("body %q", rec.Body.String())
	}
	if len(gen.got.Criterion) != 6 {
		t.Errorf("criteria not defaulted: %v", gen.got.Criterion)
	}
}

func TestGenerateReport_PassesClientID(t *testing.T) {
	client := uuid.New()
	tok, err := auth.MintToken(testSecret, client, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	gen := &fakeGenerator{id: uuid.New()}
	s := NewServer(config.ServerConfig{}, testSecret, gen, nil, nil)

	for _, path := range []string{"/api/generate_report", "/api/v1/reports"} {
		t.Run(path, func(t *testing.T) {
			gen.got = report.Request{}
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"urls":["1"],"ClientID":"spoofed"}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+tok)
			rec := httptest.NewRecorder()
			s.Echo.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
			}
			if gen.got.ClientID != client.String() {
				t.Errorf("client id = %q, want %q", gen.got.ClientID, client)
			}
		})
	}
}

func TestGenerateReport_Errors(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		authorized bool
		genErr     error
		want       int
	}{
		{"no token", `{"urls":["1"]}`, false, nil, http.StatusUnauthorized},
		{"bad json", `{"urls":`, true, nil, http.StatusBadRequest},
		{"no urls", `{"urls":[]}`, true, nil, http.StatusBadRequest},
		{"bad criterion", `{"urls":["1"],"criterion":[9]}`, true, nil, http.StatusBadRequest},
		{"pipeline failure", `{"urls":["1"]}`, true, errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewServer(config.ServerConfig{}, testSecret, &fakeGenerator{err: tc.genErr}, nil, nil)
			rec := do(t, s, http.MethodPost, "/api/generate_report", tc.body, tc.authorized)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestCollectReturnsJSON(t *testing.T) {
	gen := &fakeGenerator{id: uuid.New()}
	s := NewServer(config.ServerConfig{}, testSecret, gen, nil, nil)

	rec := do(t, s, http.MethodPost, "/api/v1/reports", `{"urls":["1"],"criterion":[1,6]}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		RunID  uuid.UUID       `json:"run_id"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.RunID != gen.id {
		t.Errorf("unexpected body %s (%v)", rec.Body.String(), err)
	}
}

func TestRuns(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{
		runs: map[uuid.UUID]*models.ReportRun{id: {ID: id, Status: models.RunCompleted}},
		docs: []models.RunDocument{{RunID: id, FileID: "9001"}},
	}
	s := NewServer(config.ServerConfig{}, testSecret, &fakeGenerator{}, store, fakeEmbedder{})

	cases := []struct {
		path string
		want int
	}{
		{"/api/v1/runs", http.StatusOK},
		{"/api/v1/runs?status=failed", http.StatusOK},
		{"/api/v1/runs/" + id.String(), http.StatusOK},
		{"/api/v1/runs/" + uuid.New().String(), http.StatusNotFound},
		{"/api/v1/runs/not-a-uuid", http.StatusBadRequest},
		{"/api/v1/runs/" + id.String() + "/documents", http.StatusOK},
		{"/api/v1/documents/search?q=paper", http.StatusOK},
		{"/api/v1/documents/search", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := do(t, s, http.MethodGet, tc.path, "", true)
		if rec.Code != tc.want {
			t.Errorf("GET %s = %d, want %d: %s", tc.path, rec.Code, tc.want, rec.Body.String())
		}
	}
	if len(store.hits) != 2 {
		t.Errorf("search did not use the query embedding")
	}
}

func TestRuns_WithoutStore(t *testing.T) {
	s := NewServer(config.ServerConfig{}, testSecret, &fakeGenerator{}, nil, nil)
	for _, path := range []string{"/api/v1/runs", "/api/v1/documents/search?q=x"} {
		if rec := do(t, s, http.MethodGet, path, "", true); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", path, rec.Code)
		}
	}
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	s := NewServer(config.ServerConfig{}, testSecret, &fakeGenerator{}, &fakeStore{}, fakeEmbedder{err: errors.New("down")})
	if rec := do(t, s, http.MethodGet, "/api/v1/documents/search?q=x", "", true); rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
