// Package scheduler drives recurring crawls and retention cleanup on cron
// schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/logger"
	"github.com/hirewire/jobcrawl/internal/orchestrator"
)

// Default schedules: crawl every six hours, clean up nightly.
const (
	DefaultCrawlSchedule   = "0 */6 * * *"
	DefaultCleanupSchedule = "0 2 * * *"
	DefaultRetentionDays   = 30
)

// Runner starts and executes crawl sessions. The orchestrator implements it.
type Runner interface {
	StartSession(ctx context.Context, cfg domain.SessionConfig) (string, error)
	RunSession(ctx context.Context, sessionID string) (*orchestrator.Summary, error)
}

// Cleaner removes jobs older than a cutoff. The job store implements it.
type Cleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds the schedules and the session template for recurring crawls.
type Config struct {
	CrawlSchedule   string               `mapstructure:"crawl_schedule"`
	CleanupSchedule string               `mapstructure:"cleanup_schedule"`
	RetentionDays   int                  `mapstructure:"retention_days"`
	Session         domain.SessionConfig `mapstructure:"session"`
}

// Scheduler owns the cron instance and its lifecycle context.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	cleaner Cleaner
	cfg     Config
	logger  logger.Interface

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. Empty schedule fields fall back to the defaults.
func New(runner Runner, cleaner Cleaner, cfg Config, log logger.Interface) *Scheduler {
	if cfg.CrawlSchedule == "" {
		cfg.CrawlSchedule = DefaultCrawlSchedule
	}
	if cfg.CleanupSchedule == "" {
		cfg.CleanupSchedule = DefaultCleanupSchedule
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	return &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		cleaner: cleaner,
		cfg:     cfg,
		logger:  log,
	}
}

// Start registers the cron entries and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.cfg.CrawlSchedule, func() {
		if err := s.TriggerCrawl(s.ctx); err != nil {
			s.logger.Error("Scheduled crawl failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule crawl: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.CleanupSchedule, func() {
		if err := s.TriggerCleanup(s.ctx); err != nil {
			s.logger.Error("Scheduled cleanup failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		"crawl_schedule", s.cfg.CrawlSchedule,
		"cleanup_schedule", s.cfg.CleanupSchedule,
		"retention_days", s.cfg.RetentionDays)
	return nil
}

// Stop halts the cron scheduler and waits for running entries to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// TriggerCrawl runs one recurring crawl session immediately.
func (s *Scheduler) TriggerCrawl(ctx context.Context) error {
	s.logger.Info("Scheduled crawl triggered", "sources", s.cfg.Session.Sources)

	sessionID, err := s.runner.StartSession(ctx, s.cfg.Session)
	if err != nil {
		return fmt.Errorf("failed to start scheduled session: %w", err)
	}

	summary, err := s.runner.RunSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to run scheduled session: %w", err)
	}

	s.logger.Info("Scheduled crawl finished",
		"session_id", summary.SessionID,
		"status", string(summary.Status),
		"jobs_found", summary.JobsFound,
		"jobs_saved", summary.JobsSaved)
	return nil
}

// TriggerCleanup deletes jobs older than the retention window.
func (s *Scheduler) TriggerCleanup(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)

	deleted, err := s.cleaner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up old jobs: %w", err)
	}

	s.logger.Info("Cleanup finished", "deleted", deleted, "cutoff", cutoff)
	return nil
}
