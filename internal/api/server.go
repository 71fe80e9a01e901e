package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/david/tender-digest/internal/ai"
	"github.com/david/tender-digest/internal/auth"
	"github.com/david/tender-digest/internal/config"
	"github.com/david/tender-digest/internal/db"
	"github.com/david/tender-digest/internal/models"
	"github.com/david/tender-digest/internal/report"
)

const HeaderReportRun = "X-Report-Run"

// Generator produces a report for one request.
type Generator interface {
	Generate(ctx context.Context, req report.Request) (*report.Report, error)
}

// RunStore reads recorded runs. db.Store implements it.
type RunStore interface {
	GetRun(ctx context.Context, id uuid.UUID) (*models.ReportRun, error)
	ListRuns(ctx context.Context, status string, limit int) ([]models.ReportRun, error)
	ListDocuments(ctx context.Context, runID uuid.UUID) ([]models.RunDocument, error)
	SearchDocuments(ctx context.Context, query []float32, limit int) ([]models.RunDocument, error)
}

type Server struct {
	Reports Generator
	Store   RunStore
	AI      ai.Embedder
	Echo    *echo.Echo
}

// NewServer wires routes. store and embedder may be nil, in which case the
// endpoints depending on them answer 503.
func NewServer(cfg config.ServerConfig, secret []byte, reports Generator, store RunStore, embedder ai.Embedder) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := append([]string{}, cfg.CORSOrigins...)
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		allowedOrigins = append(allowedOrigins, splitCSV(extra)...)
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{echo.HeaderContentDisposition, HeaderReportRun},
	}))

	s := &Server{
		Reports: reports,
		Store:   store,
		AI:      embedder,
		Echo:    e,
	}
	s.routes(auth.RequireToken(secret))
	return s
}

func (s *Server) routes(requireToken echo.MiddlewareFunc) {
	s.Echo.GET("/health", s.handleHealth)
	s.Echo.POST("/api/generate_report", s.handleGenerateReport, requireToken)

	api := s.Echo.Group("/api/v1", requireToken)
	api.POST("/reports", s.handleCollect)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)
	api.GET("/runs/:id/documents", s.handleListDocuments)
	api.GET("/documents/search", s.handleSearchDocuments)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// handleGenerateReport answers with the report PDF as an attachment.
func (s *Server) handleGenerateReport(c echo.Context) error {
	rep, status, err := s.generate(c)
	if err != nil {
		return c.JSON(status, map[string]string{"error": err.Error()})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", rep.Filename()))
	c.Response().Header().Set(HeaderReportRun, rep.RunID.String())
	return c.Blob(http.StatusOK, "application/pdf", rep.PDF)
}

// handleCollect answers with the extracted data instead of the PDF.
func (s *Server) handleCollect(c echo.Context) error {
	rep, status, err := s.generate(c)
	if err != nil {
		return c.JSON(status, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"run_id": rep.RunID,
		"result": rep.Result,
	})
}

func (s *Server) generate(c echo.Context) (*report.Report, int, error) {
	var req report.Request
	if err := c.Bind(&req); err != nil {
		return nil, http.StatusBadRequest, errors.New("invalid request body")
	}
	if id, err := auth.GetClientIDFromContext(c); err == nil {
		req.ClientID = id.String()
	}

	rep, err := s.Reports.Generate(c.Request().Context(), req)
	switch {
	case errors.Is(err, report.ErrNoURLs), errors.Is(err, report.ErrInvalidCriterion):
		return nil, http.StatusBadRequest, err
	case err != nil:
		c.Logger().Errorf("Failed to generate report: %v", err)
		return nil, http.StatusInternalServerError, errors.New("report generation failed")
	}
	return rep, http.StatusOK, nil
}

func (s *Server) handleListRuns(c echo.Context) error {
	if s.Store == nil {
		return storeUnavailable(c)
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	runs, err := s.Store.ListRuns(c.Request().Context(), c.QueryParam("status"), limit)
	if err != nil {
		c.Logger().Errorf("Failed to list runs: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) handleGetRun(c echo.Context) error {
	if s.Store == nil {
		return storeUnavailable(c)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid run id"})
	}
	run, err := s.Store.GetRun(c.Request().Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	if err != nil {
		c.Logger().Errorf("Failed to get run %s: %v", id, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleListDocuments(c echo.Context) error {
	if s.Store == nil {
		return storeUnavailable(c)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid run id"})
	}
	docs, err := s.Store.ListDocuments(c.Request().Context(), id)
	if err != nil {
		c.Logger().Errorf("Failed to list documents of run %s: %v", id, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) handleSearchDocuments(c echo.Context) error {
	if s.Store == nil || s.AI == nil {
		return storeUnavailable(c)
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query parameter q is required"})
	}
	limit := 10
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	aiCtx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	vec, err := s.AI.GenerateEmbedding(aiCtx, q)
	if err != nil {
		c.Logger().Errorf("Failed to generate query embedding: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "embedding service unavailable"})
	}

	docs, err := s.Store.SearchDocuments(c.Request().Context(), vec, limit)
	if err != nil {
		c.Logger().Errorf("Failed to search documents: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func storeUnavailable(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "run history is not configured"})
}

func splitCSV(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
