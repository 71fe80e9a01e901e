package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/david/tender-digest/internal/acquire"
	"github.com/david/tender-digest/internal/auction"
	"github.com/david/tender-digest/internal/auth"
	"github.com/david/tender-digest/internal/criterion"
	"github.com/david/tender-digest/internal/report"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8081", "API base URL")
	urlsFlag := flag.String("urls", "", "Comma-separated auction links")
	criteriaFlag := flag.String("criteria", "все", `Criteria numbers 1-6 separated by spaces or commas, or "все"`)
	outDir := flag.String("out", ".", "Directory to save the report into")
	timeoutSec := flag.Int("timeout-sec", 600, "HTTP timeout in seconds")
	flag.Parse()

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		exitErr(fmt.Errorf("missing JWT_SECRET environment variable"))
	}

	urls := criterion.ParseURLs(*urlsFlag)
	if len(urls) == 0 {
		exitErr(fmt.Errorf("no auction links provided: use -urls"))
	}
	criteria, err := criterion.ParseSelection(*criteriaFlag)
	if err != nil {
		exitErr(err)
	}

	token, err := auth.MintToken([]byte(secret), uuid.New(), 10*time.Minute)
	if err != nil {
		exitErr(err)
	}

	body, err := json.Marshal(report.Request{URLs: urls, Criterion: criteria})
	if err != nil {
		exitErr(err)
	}
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/generate_report", bytes.NewReader(body))
	if err != nil {
		exitErr(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		exitErr(fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	fmt.Printf("Response Status: %s\n", resp.Status)
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		exitErr(fmt.Errorf("server refused the request: %s", strings.TrimSpace(string(msg))))
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		exitErr(err)
	}
	name := acquire.UniqueName(*outDir, acquire.ResolveFilename(resp.Header, auction.AttachedFile{Name: "report.pdf"}))
	path := filepath.Join(*outDir, name)

	f, err := os.Create(path)
	if err != nil {
		exitErr(err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		exitErr(fmt.Errorf("saving report: %w", err))
	}

	fmt.Printf("Run: %s\n", resp.Header.Get("X-Report-Run"))
	fmt.Printf("Saved %d bytes to %s\n", n, path)
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
