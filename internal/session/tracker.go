package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/logger"
)

// Tracker owns the mutable state of one crawl session. Every mutation is
// applied under the lock and persisted before the method returns, so the
// stored session never lags the in-memory one by more than the current call.
type Tracker struct {
	store  Store
	logger logger.Interface
	now    func() time.Time

	mu      sync.Mutex
	session *domain.CrawlSession
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// Start creates a new running session, persists it, and returns its tracker.
func Start(
	ctx context.Context,
	store Store,
	instance int,
	cfg domain.SessionConfig,
	log logger.Interface,
	opts ...Option,
) (*Tracker, error) {
	if log == nil {
		log = logger.NewNoOp()
	}

	t := &Tracker{
		store:  store,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	now := t.now()
	t.session = &domain.CrawlSession{
		SessionID:       uuid.NewString(),
		CrawlerInstance: instance,
		Status:          domain.SessionStatusRunning,
		StartTime:       now,
		Configuration:   cfg,
		Results:         []domain.ResultRef{},
		Errors:          []domain.SessionError{},
		Notifications:   []domain.SessionNotification{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := store.Create(ctx, t.session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	t.logger.Info("Session started",
		"session_id", t.session.SessionID,
		"sources", cfg.Sources,
		"max_jobs", cfg.MaxJobs)
	return t, nil
}

// Resume loads a stored session and wraps it in a tracker.
func Resume(
	ctx context.Context,
	store Store,
	sessionID string,
	log logger.Interface,
	opts ...Option,
) (*Tracker, error) {
	if log == nil {
		log = logger.NewNoOp()
	}

	stored, err := store.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	t := &Tracker{
		store:   store,
		logger:  log,
		now:     time.Now,
		session: stored,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// SessionID returns the tracked session's ID.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.SessionID
}

// Snapshot returns a deep copy of the current session state.
func (t *Tracker) Snapshot() (*domain.CrawlSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneSession(t.session)
}

// ProgressUpdate carries the progress fields to change. Nil fields are left
// untouched.
type ProgressUpdate struct {
	CurrentStep    *string
	StepsCompleted *int
	TotalSteps     *int
	CurrentSource  *string
	CurrentCompany *string
}

// UpdateProgress shallow-merges the update into the session's progress.
func (t *Tracker) UpdateProgress(ctx context.Context, update ProgressUpdate) error {
	return t.mutate(ctx, func(s *domain.CrawlSession) {
		if update.CurrentStep != nil {
			s.Progress.CurrentStep = *update.CurrentStep
		}
		if update.StepsCompleted != nil {
			s.Progress.StepsCompleted = *update.StepsCompleted
		}
		if update.TotalSteps != nil {
			s.Progress.TotalSteps = *update.TotalSteps
		}
		if update.CurrentSource != nil {
			s.Progress.CurrentSource = *update.CurrentSource
		}
		if update.CurrentCompany != nil {
			s.Progress.CurrentCompany = *update.CurrentCompany
		}
	})
}

// AddResult appends a reference to the extracted job and keeps the
// statistics counters in step with the result list.
func (t *Tracker) AddResult(ctx context.Context, job *domain.StructuredJob) error {
	return t.mutate(ctx, func(s *domain.CrawlSession) {
		s.Results = append(s.Results, domain.ResultRef{
			JobID:     job.ID,
			Title:     job.Title,
			Company:   job.Company,
			Location:  job.Location,
			Source:    job.Source,
			FetchedAt: t.now(),
		})
		s.Statistics.TotalJobsFound = len(s.Results)

		if job.WorkType == domain.WorkTypeRemote {
			s.Statistics.JobsByType.Remote++
		}
		if job.EmploymentType.FullTime > 0 {
			s.Statistics.JobsByType.FullTime++
		}
		if job.EmploymentType.PartTime > 0 {
			s.Statistics.JobsByType.PartTime++
		}
		if job.EmploymentType.Contract > 0 {
			s.Statistics.JobsByType.Contract++
		}
	})
}

// AddError records a per-source failure without changing the session status.
func (t *Tracker) AddError(ctx context.Context, source string, cause error) error {
	return t.mutate(ctx, func(s *domain.CrawlSession) {
		s.Errors = append(s.Errors, domain.SessionError{
			Source:    source,
			Error:     cause.Error(),
			Timestamp: t.now(),
		})
	})
}

// AddNotification appends an entry to the session's activity feed.
func (t *Tracker) AddNotification(ctx context.Context, level domain.NotificationLevel, message string) error {
	return t.mutate(ctx, func(s *domain.CrawlSession) {
		s.Notifications = append(s.Notifications, domain.SessionNotification{
			Level:     level,
			Message:   message,
			Timestamp: t.now(),
		})
	})
}

// UpdateStatistics applies the mutation to the statistics block.
func (t *Tracker) UpdateStatistics(ctx context.Context, fn func(*domain.SessionStatistics)) error {
	return t.mutate(ctx, func(s *domain.CrawlSession) {
		fn(&s.Statistics)
	})
}

// Complete transitions the session to the given terminal status. Terminal
// states absorb: once completed, failed or stopped, later calls are no-ops.
func (t *Tracker) Complete(ctx context.Context, status domain.SessionStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session.Status.IsTerminal() {
		return nil
	}

	now := t.now()
	t.session.Status = status
	t.session.EndTime = &now
	t.session.Statistics.ExecutionTime = int(now.Sub(t.session.StartTime).Seconds())
	t.session.UpdatedAt = now

	if err := t.store.Save(ctx, t.session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	t.logger.Info("Session finished",
		"session_id", t.session.SessionID,
		"status", string(status),
		"jobs_found", t.session.Statistics.TotalJobsFound,
		"jobs_saved", t.session.Statistics.JobsSaved,
		"execution_time", t.session.Statistics.ExecutionTime)
	return nil
}

// mutate applies fn under the lock and persists the result. Mutations on a
// finished session are rejected.
func (t *Tracker) mutate(ctx context.Context, fn func(*domain.CrawlSession)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session.Status.IsTerminal() {
		return fmt.Errorf("session %s is already %s", t.session.SessionID, t.session.Status)
	}

	fn(t.session)
	t.session.UpdatedAt = t.now()

	if err := t.store.Save(ctx, t.session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}
