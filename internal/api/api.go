// Package api exposes the pipelines and the stored results over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reconthing/reconthing/internal/model"
	"github.com/reconthing/reconthing/internal/pipeline"
	"github.com/reconthing/reconthing/internal/task"
)

const internalError = "An internal server error occurred."

type Starter interface {
	Start(kind task.Kind, domain string) (task.Task, error)
}

type Tasks interface {
	Get(id string) (task.Task, error)
}

type Results interface {
	Subdomains(ctx context.Context, domain string) ([]model.Subdomain, error)
	DNSResolutions(ctx context.Context, domain string) ([]model.DNSResolution, error)
	SubdomainsWithResolutions(ctx context.Context, domain string) ([]model.SubdomainResolutions, error)
	HTTPProbeResults(ctx context.Context, domain string) ([]model.HTTPProbeResult, error)
}

type server struct {
	starter Starter
	tasks   Tasks
	results Results
}

// DomainRequest is the body of every pipeline start request.
type DomainRequest struct {
	Domain string `json:"domain" binding:"required"`
}

type StartResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message,omitempty"`
}

// NewRouter returns the HTTP handler of the service. metrics may be nil.
func NewRouter(starter Starter, tasks Tasks, results Results, metrics http.Handler) *gin.Engine {
	s := server{starter: starter, tasks: tasks, results: results}

	r := gin.New()
	r.Use(logRequests(), gin.CustomRecovery(recovered))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to Reconthing API"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/enumerate", s.start(task.KindEnumerate, ""))
		v1.GET("/enumerate/status/:task_id", s.status(task.KindEnumerate))
		v1.GET("/subdomains/:domain", s.subdomains)
	}
	dns := v1.Group("/dns")
	{
		dns.POST("/resolve", s.start(task.KindResolve, ""))
		dns.GET("/resolve/status/:task_id", s.status(task.KindResolve))
		dns.GET("/resolutions/:domain", s.resolutions)
		dns.GET("/subdomains-with-resolutions/:domain", s.subdomainsWithResolutions)
	}
	probe := v1.Group("/http")
	{
		probe.POST("/probe", s.start(task.KindProbe, ""))
		probe.GET("/probe/status/:task_id", s.status(task.KindProbe))
		probe.GET("/probe/results/:domain", s.probeResults)
	}
	automation := v1.Group("/automation")
	{
		automation.POST("/basic-recon", s.start(task.KindBasicRecon, "Basic recon started"))
		automation.GET("/task/:task_id", s.status(task.KindBasicRecon))
	}
	return r
}

func detail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"detail": msg})
}

func recovered(c *gin.Context, err any) {
	slog.ErrorContext(c.Request.Context(), "unhandled panic", "path", c.Request.URL.Path, "panic", err)
	detail(c, http.StatusInternalServerError, internalError)
}

func logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}

func (s server) start(kind task.Kind, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DomainRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			detail(c, http.StatusBadRequest, "Invalid request payload: a domain is required")
			return
		}
		domain, err := model.NormalizeDomain(req.Domain)
		if err != nil {
			detail(c, http.StatusBadRequest, err.Error())
			return
		}

		t, err := s.starter.Start(kind, domain)
		switch {
		case errors.Is(err, pipeline.ErrShuttingDown):
			detail(c, http.StatusServiceUnavailable, "Service is shutting down")
			return
		case err != nil:
			slog.ErrorContext(c.Request.Context(), "starting pipeline", "kind", kind, "domain", domain, "error", err)
			detail(c, http.StatusInternalServerError, internalError)
			return
		}
		slog.InfoContext(c.Request.Context(), "pipeline accepted", "kind", kind, "domain", domain, "task_id", t.ID)
		c.JSON(http.StatusAccepted, StartResponse{TaskID: t.ID, Message: message})
	}
}

// status serves tasks of one kind only, others are not found.
func (s server) status(kind task.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := s.tasks.Get(c.Param("task_id"))
		if errors.Is(err, task.ErrNotFound) || (err == nil && t.Kind != kind) {
			detail(c, http.StatusNotFound, "Task not found")
			return
		}
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "reading task", "error", err)
			detail(c, http.StatusInternalServerError, internalError)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// domainParam returns the normalized :domain, or aborts with 400.
func domainParam(c *gin.Context) (string, bool) {
	domain, err := model.NormalizeDomain(c.Param("domain"))
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return domain, true
}

func respond[T any](c *gin.Context, rows []T, err error, notFound string) {
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "reading results", "path", c.Request.URL.Path, "error", err)
		detail(c, http.StatusInternalServerError, internalError)
		return
	}
	if len(rows) == 0 {
		detail(c, http.StatusNotFound, notFound)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s server) subdomains(c *gin.Context) {
	domain, ok := domainParam(c)
	if !ok {
		return
	}
	rows, err := s.results.Subdomains(c.Request.Context(), domain)
	respond(c, rows, err, "No subdomains found for this domain")
}

func (s server) resolutions(c *gin.Context) {
	domain, ok := domainParam(c)
	if !ok {
		return
	}
	rows, err := s.results.DNSResolutions(c.Request.Context(), domain)
	respond(c, rows, err, "No DNS resolutions found for this domain")
}

func (s server) subdomainsWithResolutions(c *gin.Context) {
	domain, ok := domainParam(c)
	if !ok {
		return
	}
	rows, err := s.results.SubdomainsWithResolutions(c.Request.Context(), domain)
	respond(c, rows, err, "No subdomains or DNS resolutions found for this domain")
}

func (s server) probeResults(c *gin.Context) {
	domain, ok := domainParam(c)
	if !ok {
		return
	}
	rows, err := s.results.HTTPProbeResults(c.Request.Context(), domain)
	respond(c, rows, err, "No HTTP probe results found for this domain")
}
