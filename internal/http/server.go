// Package http provides the HTTP API for minuted.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minuted/internal/extraction"
	"github.com/fyrsmithlabs/minuted/internal/pipeline"
	"github.com/fyrsmithlabs/minuted/internal/store"
)

// Processor runs the transcript pipeline for one request.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) *pipeline.Result
}

// Server provides HTTP endpoints for minuted.
type Server struct {
	echo      *echo.Echo
	processor Processor
	logger    *zap.Logger
	config    *Config
	metrics   *Metrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server. A nil metrics value creates an
// unregistered instance, which is what tests want.
func NewServer(processor Processor, logger *zap.Logger, cfg *Config, metrics *Metrics) (*Server, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		processor: processor,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/meetings/process", s.handleProcess)
}

// ProcessResponse is the response body for POST /api/v1/meetings/process.
type ProcessResponse struct {
	Meeting        *store.Meeting          `json:"meeting,omitempty"`
	MeetingSummary MeetingSummaryEnvelope  `json:"meeting_summary"`
	ActionItems    []extraction.ActionItem `json:"action_items"`
	ResolvedTasks  []pipeline.ResolvedTask `json:"resolved_tasks"`
	Emails         []pipeline.Draft        `json:"emails"`
	DBTasks        []store.Task            `json:"db_tasks"`
	Errors         map[string]string       `json:"errors"`
}

// MeetingSummaryEnvelope pairs the summary text with the persisted meeting
// id, when one exists.
type MeetingSummaryEnvelope struct {
	Summary   string `json:"summary"`
	MeetingID string `json:"meeting_id,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   "minuted",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleProcess runs the transcript pipeline. Missing transcript or company
// id is a client input error; stage failures degrade the response to 207
// instead of failing it.
func (s *Server) handleProcess(c echo.Context) error {
	var req pipeline.Request
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid process request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Transcript == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "transcript is required")
	}
	if req.CompanyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "company_id is required")
	}

	result := s.processor.Process(c.Request().Context(), req)

	resp := ProcessResponse{
		MeetingSummary: MeetingSummaryEnvelope{Summary: result.Summary},
		ActionItems:    result.ActionItems,
		ResolvedTasks:  result.ResolvedTasks,
		Emails:         result.Emails,
		DBTasks:        result.DBTasks,
		Errors:         result.StageErrors,
	}
	if result.Meeting != nil {
		resp.Meeting = result.Meeting
		resp.MeetingSummary.MeetingID = result.Meeting.ID
	}

	status := http.StatusOK
	if !result.OK() {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, resp)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
