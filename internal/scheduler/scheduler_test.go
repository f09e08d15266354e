package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/orchestrator"
	"github.com/hirewire/jobcrawl/internal/scheduler"
)

type stubRunner struct {
	started []domain.SessionConfig
	ran     []string
	runErr  error
}

func (r *stubRunner) StartSession(_ context.Context, cfg domain.SessionConfig) (string, error) {
	r.started = append(r.started, cfg)
	return "sess-1", nil
}

func (r *stubRunner) RunSession(_ context.Context, sessionID string) (*orchestrator.Summary, error) {
	if r.runErr != nil {
		return nil, r.runErr
	}
	r.ran = append(r.ran, sessionID)
	return &orchestrator.Summary{
		SessionID: sessionID,
		Status:    domain.SessionStatusCompleted,
		JobsFound: 3,
		JobsSaved: 3,
	}, nil
}

type stubCleaner struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (c *stubCleaner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	c.cutoff = cutoff
	return c.deleted, c.err
}

func TestScheduler_TriggerCrawl(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	s := scheduler.New(runner, &stubCleaner{}, scheduler.Config{
		Session: domain.SessionConfig{
			Sources:     []string{"remoteok"},
			SearchTerms: []string{"golang"},
			MaxJobs:     25,
		},
	}, nil)

	require.NoError(t, s.TriggerCrawl(context.Background()))

	require.Len(t, runner.started, 1)
	assert.Equal(t, []string{"remoteok"}, runner.started[0].Sources)
	assert.Equal(t, []string{"sess-1"}, runner.ran)
}

func TestScheduler_TriggerCrawl_RunFailure(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{runErr: errors.New("browser crashed")}
	s := scheduler.New(runner, &stubCleaner{}, scheduler.Config{}, nil)

	err := s.TriggerCrawl(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser crashed")
}

func TestScheduler_TriggerCleanup_UsesRetentionWindow(t *testing.T) {
	t.Parallel()

	cleaner := &stubCleaner{deleted: 12}
	s := scheduler.New(&stubRunner{}, cleaner, scheduler.Config{RetentionDays: 30}, nil)

	require.NoError(t, s.TriggerCleanup(context.Background()))

	expected := time.Now().AddDate(0, 0, -30)
	assert.WithinDuration(t, expected, cleaner.cutoff, time.Minute)
}

func TestScheduler_StartRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	s := scheduler.New(&stubRunner{}, &stubCleaner{}, scheduler.Config{
		CrawlSchedule: "not a cron expression",
	}, nil)

	err := s.Start(context.Background())
	require.Error(t, err)
}

func TestScheduler_StartAndStop(t *testing.T) {
	t.Parallel()

	s := scheduler.New(&stubRunner{}, &stubCleaner{}, scheduler.Config{}, nil)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
