package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MarcusFernando/Bh-licit/internal/db"
	"github.com/MarcusFernando/Bh-licit/internal/ingest"
	"github.com/MarcusFernando/Bh-licit/internal/items"
	"github.com/MarcusFernando/Bh-licit/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	Store    *db.Store
	Pipeline *ingest.Pipeline
	Resolver *items.Resolver
	PDF      *items.PDFExtractor
	Echo     *echo.Echo

	// Background job tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

func NewServer(store *db.Store, pipeline *ingest.Pipeline, resolver *items.Resolver) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s := &Server{
		Store:    store,
		Pipeline: pipeline,
		Resolver: resolver,
		PDF:      items.NewPDFExtractor(),
		Echo:     e,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.GET("/licitacoes", s.handleListLicitacoes)
	api.GET("/licitacoes/:id", s.handleGetLicitacao)
	api.PATCH("/licitacoes/:id/status", s.handleSetStatus)
	api.GET("/licitacoes/:id/itens", s.handleGetItems)
	api.POST("/licitacoes/:id/itens/resolve", s.handleResolveItems)
	api.POST("/licitacoes/:id/itens/extract", s.handleExtractItems)
	api.GET("/stats", s.handleGetStats)

	api.POST("/sync", s.handleTriggerSync)
	api.POST("/enrich", s.handleEnrichPending)
	api.GET("/jobs/:id", s.handleJobStatus)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleListLicitacoes(c echo.Context) error {
	params := db.ListParams{
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
		Search:   c.QueryParam("q"),
		Limit:    20,
	}

	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 100 {
		params.Limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 1 {
		params.Offset = (v - 1) * params.Limit
	}
	if v, err := strconv.Atoi(c.QueryParam("days")); err == nil && v > 0 {
		params.Days = v
	}

	result, err := s.Store.ListLicitacoes(c.Request().Context(), params)
	if err != nil {
		c.Logger().Errorf("Failed to list licitacoes: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetLicitacao(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid id"})
	}
	l, err := s.Store.GetLicitacao(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, l)
}

// validStatusTargets are the manual review outcomes. The pipeline's own
// statuses are not settable from outside.
var validStatusTargets = map[string]bool{
	models.StatusAprovado:  true,
	models.StatusRejeitado: true,
	models.StatusRecebido:  true,
}

func (s *Server) handleSetStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid id"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil || !validStatusTargets[req.Status] {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "status must be recebido, aprovado or rejeitado"})
	}

	if err := s.Store.SetStatus(c.Request().Context(), id, req.Status); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": req.Status})
}

func (s *Server) handleGetItems(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid id"})
	}
	list, err := s.Store.GetItems(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if list == nil {
		list = []models.LicitacaoItem{}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleResolveItems(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid id"})
	}
	l, err := s.Store.GetLicitacao(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	list, err := s.Resolver.Resolve(c.Request().Context(), l)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"pncp_id": l.PNCPID,
		"count":   len(list),
		"items":   list,
	})
}

// handleExtractItems pulls the item table straight from the edital PDF.
// Manual escape hatch for tenders neither API generation nor the portal
// page can answer for.
func (s *Server) handleExtractItems(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid id"})
	}
	l, err := s.Store.GetLicitacao(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	pdfURL := strings.TrimSpace(c.QueryParam("url"))
	if pdfURL == "" {
		pdfURL = l.LinkEdital
	}
	if pdfURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no edital URL available"})
	}

	list, err := s.PDF.ExtractFromURL(c.Request().Context(), pdfURL)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	if err := s.Store.InsertItems(c.Request().Context(), id, list); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"pncp_id": l.PNCPID,
		"count":   len(list),
		"items":   list,
	})
}

func (s *Server) handleGetStats(c echo.Context) error {
	stats, err := s.Store.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleTriggerSync(c echo.Context) error {
	days := 3
	if v, err := strconv.Atoi(c.QueryParam("days")); err == nil && v > 0 && v <= 30 {
		days = v
	}

	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":  "A sync job is already running",
			"job_id": job.ID,
		})
	}

	// context.WithoutCancel detaches from the HTTP lifecycle but keeps
	// trace values; the timeout bounds the job on its own.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 30*time.Minute,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Status:    "running",
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.runningJob = job
	s.jobMu.Unlock()

	go func() {
		defer jobCancel()
		stats, err := s.Pipeline.RunSync(jobCtx, days)

		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		job.EndedAt = time.Now()
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
			log.Printf("[sync-job %s] failed: %v", jobID, err)
			return
		}
		job.Status = "completed"
		job.Result = stats
		log.Printf("[sync-job %s] completed: new=%d", jobID, stats.New)
	}()

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "Sync job started",
		"job_id":  jobID,
		"days":    days,
		"poll":    fmt.Sprintf("/api/v1/jobs/%s", jobID),
	})
}

func (s *Server) handleEnrichPending(c echo.Context) error {
	limit := 100
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}

	n, err := s.Pipeline.EnrichPending(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Enrichment backfill complete",
		"enriched": n,
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	job := s.runningJob
	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]interface{}{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	return c.JSON(http.StatusOK, resp)
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}
