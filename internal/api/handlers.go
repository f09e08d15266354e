package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hirewire/jobcrawl/internal/database"
	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/logger"
	"github.com/hirewire/jobcrawl/internal/orchestrator"
	"github.com/hirewire/jobcrawl/internal/robots"
	"github.com/hirewire/jobcrawl/internal/storage"
)

// Pagination defaults for list endpoints.
const (
	defaultLimit  = 20
	defaultOffset = 0
)

// Crawler starts, runs and stops crawl sessions. The orchestrator
// implements it.
type Crawler interface {
	StartSession(ctx context.Context, cfg domain.SessionConfig) (string, error)
	RunSession(ctx context.Context, sessionID string) (*orchestrator.Summary, error)
	Stop(sessionID string) bool
	ActiveSessions() []string
}

// SessionReader reads persisted sessions. The Postgres repository
// implements it.
type SessionReader interface {
	GetBySessionID(ctx context.Context, sessionID string) (*domain.CrawlSession, error)
	List(ctx context.Context, status string, limit, offset int) ([]*domain.CrawlSession, error)
}

// JobSearcher queries the job index. The job store implements it.
type JobSearcher interface {
	Search(ctx context.Context, q storage.JobQuery) (*storage.JobPage, error)
}

// RobotsPolicy answers robots.txt queries for arbitrary agents.
type RobotsPolicy interface {
	Check(ctx context.Context, rawURL string) (robots.Result, error)
	CheckAgent(ctx context.Context, rawURL, agent string) (robots.Result, error)
}

// Handler carries the dependencies of all API endpoints. Crawls started via
// the API run on baseCtx so they survive the originating request.
type Handler struct {
	crawler  Crawler
	sessions SessionReader
	jobs     JobSearcher
	robots   RobotsPolicy
	logger   logger.Interface
	baseCtx  context.Context
}

// NewHandler creates the API handler set.
func NewHandler(
	baseCtx context.Context,
	crawler Crawler,
	sessions SessionReader,
	jobs JobSearcher,
	policy RobotsPolicy,
	log logger.Interface,
) *Handler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Handler{
		crawler:  crawler,
		sessions: sessions,
		jobs:     jobs,
		robots:   policy,
		logger:   log,
		baseCtx:  baseCtx,
	}
}

// crawlRequest is the POST /crawl body.
type crawlRequest struct {
	Sources     []string `json:"sources"`
	Companies   []string `json:"companies"`
	SearchTerms []string `json:"search_terms"`
	Locations   []string `json:"locations"`
	MaxJobs     int      `json:"max_jobs"`
}

// StartCrawl creates a session and runs it asynchronously.
func (h *Handler) StartCrawl(c *gin.Context) {
	var req crawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Sources) == 0 && len(req.Companies) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one source or company is required"})
		return
	}

	sessionID, err := h.crawler.StartSession(c.Request.Context(), domain.SessionConfig{
		Sources:     req.Sources,
		Companies:   req.Companies,
		SearchTerms: req.SearchTerms,
		Locations:   req.Locations,
		MaxJobs:     req.MaxJobs,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go func() {
		if _, runErr := h.crawler.RunSession(h.baseCtx, sessionID); runErr != nil {
			h.logger.Error("Crawl session failed", "session_id", sessionID, "error", runErr)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"session_id": sessionID,
		"status":     string(domain.SessionStatusRunning),
		"message":    "crawl started",
	})
}

// StopCrawl requests cancellation of a running session.
func (h *Handler) StopCrawl(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if !h.crawler.Stop(sessionID) {
		c.JSON(http.StatusNotFound, gin.H{
			"acknowledged": false,
			"message":      "session is not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"acknowledged": true,
		"message":      "stop requested",
	})
}

// GetSession returns the full persisted session document.
func (h *Handler) GetSession(c *gin.Context) {
	sessionID := c.Param("sessionId")

	session, err := h.sessions.GetBySessionID(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSessions returns sessions newest first, optionally filtered by status.
func (h *Handler) ListSessions(c *gin.Context) {
	status := c.Query("status")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", strconv.Itoa(defaultOffset)))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	sessions, err := h.sessions.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
		"active":   h.crawler.ActiveSessions(),
	})
}

// SearchJobs returns a filtered, paginated page of stored jobs.
func (h *Handler) SearchJobs(c *gin.Context) {
	query := storage.JobQuery{
		Source:   c.Query("source"),
		Status:   c.Query("status"),
		WorkType: c.Query("work_type"),
		Company:  c.Query("company"),
	}

	var err error
	if query.Page, err = intQuery(c, "page", 1); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	if query.Size, err = intQuery(c, "size", storage.DefaultPageSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
		return
	}
	if query.PostedAfter, err = timeQuery(c, "posted_after"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid posted_after"})
		return
	}
	if query.PostedBefore, err = timeQuery(c, "posted_before"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid posted_before"})
		return
	}

	page, err := h.jobs.Search(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, storage.ErrIndexNotFound) {
			c.JSON(http.StatusOK, &storage.JobPage{
				Jobs: []domain.StructuredJob{},
				Page: query.Page,
				Size: query.Size,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, page)
}

// CheckRobots reports whether a URL may be crawled, and with what delay.
func (h *Handler) CheckRobots(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	var (
		result robots.Result
		err    error
	)
	if agent := c.Query("agent"); agent != "" {
		result, err = h.robots.CheckAgent(c.Request.Context(), rawURL, agent)
	} else {
		result, err = h.robots.Check(c.Request.Context(), rawURL)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":                 rawURL,
		"allowed":             result.Allowed,
		"crawl_delay_seconds": result.CrawlDelay.Seconds(),
	})
}

// intQuery parses a positive integer query parameter with a default.
func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, errors.New("invalid integer parameter")
	}
	return value, nil
}

// timeQuery parses an optional RFC3339 query parameter.
func timeQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
