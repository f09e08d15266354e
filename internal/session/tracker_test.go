package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/session"
)

func newTracker(t *testing.T, store session.Store, opts ...session.Option) *session.Tracker {
	t.Helper()

	tracker, err := session.Start(context.Background(), store, 1, domain.SessionConfig{
		Sources:     []string{"remoteok"},
		SearchTerms: []string{"golang"},
		MaxJobs:     50,
	}, nil, opts...)
	require.NoError(t, err)
	return tracker
}

func remoteFullTimeJob(id string) *domain.StructuredJob {
	return &domain.StructuredJob{
		ID:             id,
		Title:          "Go Engineer",
		Company:        "Acme",
		Source:         "remoteok",
		WorkType:       domain.WorkTypeRemote,
		EmploymentType: domain.EmploymentType{FullTime: 1},
	}
}

func TestTracker_StartPersistsRunningSession(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	tracker := newTracker(t, store)

	stored, err := store.GetBySessionID(context.Background(), tracker.SessionID())
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusRunning, stored.Status)
	assert.Equal(t, []string{"remoteok"}, stored.Configuration.Sources)
	assert.NotNil(t, stored.Results)
	assert.Nil(t, stored.EndTime)
}

func TestTracker_ResultsDriveStatistics(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	tracker := newTracker(t, store)
	ctx := context.Background()

	require.NoError(t, tracker.AddResult(ctx, remoteFullTimeJob("job-1")))
	require.NoError(t, tracker.AddResult(ctx, &domain.StructuredJob{
		ID:             "job-2",
		Title:          "Contract Analyst",
		Source:         "indeed",
		WorkType:       domain.WorkTypeOnsite,
		EmploymentType: domain.EmploymentType{Contract: 1},
	}))

	snap, err := tracker.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, len(snap.Results), snap.Statistics.TotalJobsFound)
	assert.Equal(t, 2, snap.Statistics.TotalJobsFound)
	assert.Equal(t, 1, snap.Statistics.JobsByType.Remote)
	assert.Equal(t, 1, snap.Statistics.JobsByType.FullTime)
	assert.Equal(t, 1, snap.Statistics.JobsByType.Contract)
	assert.Equal(t, "job-1", snap.Results[0].JobID)

	// Each mutation reaches the store before the call returns.
	stored, err := store.GetBySessionID(ctx, tracker.SessionID())
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Statistics.TotalJobsFound)
}

func TestTracker_UpdateProgressShallowMerge(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	tracker := newTracker(t, store)
	ctx := context.Background()

	step := "scraping"
	total := 4
	require.NoError(t, tracker.UpdateProgress(ctx, session.ProgressUpdate{
		CurrentStep: &step,
		TotalSteps:  &total,
	}))

	source := "remoteok"
	require.NoError(t, tracker.UpdateProgress(ctx, session.ProgressUpdate{
		CurrentSource: &source,
	}))

	snap, err := tracker.Snapshot()
	require.NoError(t, err)

	// The second update left earlier fields untouched.
	assert.Equal(t, "scraping", snap.Progress.CurrentStep)
	assert.Equal(t, 4, snap.Progress.TotalSteps)
	assert.Equal(t, "remoteok", snap.Progress.CurrentSource)
}

func TestTracker_CompleteIsAbsorbing(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	current := start
	clock := func() time.Time { return current }

	store := session.NewMemoryStore()
	tracker := newTracker(t, store, session.WithClock(clock))
	ctx := context.Background()

	current = start.Add(90 * time.Second)
	require.NoError(t, tracker.Complete(ctx, domain.SessionStatusStopped))

	// A later completion with a different status is a no-op.
	current = start.Add(5 * time.Minute)
	require.NoError(t, tracker.Complete(ctx, domain.SessionStatusCompleted))

	snap, err := tracker.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusStopped, snap.Status)
	require.NotNil(t, snap.EndTime)
	assert.True(t, snap.EndTime.Equal(start.Add(90*time.Second)))
	assert.Equal(t, 90, snap.Statistics.ExecutionTime)
}

func TestTracker_MutationsRejectedAfterCompletion(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	tracker := newTracker(t, store)
	ctx := context.Background()

	require.NoError(t, tracker.Complete(ctx, domain.SessionStatusCompleted))

	err := tracker.AddResult(ctx, remoteFullTimeJob("job-1"))
	require.Error(t, err)

	err = tracker.AddError(ctx, "indeed", errors.New("timeout"))
	require.Error(t, err)
}

func TestTracker_CompleteRequiresTerminalStatus(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	tracker := newTracker(t, store)

	err := tracker.Complete(context.Background(), domain.SessionStatusRunning)
	require.Error(t, err)
}

func TestTracker_ErrorsAndNotifications(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	tracker := newTracker(t, store)
	ctx := context.Background()

	require.NoError(t, tracker.AddError(ctx, "indeed", errors.New("render timeout")))
	require.NoError(t, tracker.AddNotification(ctx, domain.NotificationWarning, "indeed skipped"))

	snap, err := tracker.Snapshot()
	require.NoError(t, err)

	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "indeed", snap.Errors[0].Source)
	assert.Equal(t, "render timeout", snap.Errors[0].Error)
	assert.Equal(t, domain.SessionStatusRunning, snap.Status)

	require.Len(t, snap.Notifications, 1)
	assert.Equal(t, domain.NotificationWarning, snap.Notifications[0].Level)
}
