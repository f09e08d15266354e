package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/jobcrawl/internal/domain"
)

func TestSessionRowRoundTrip(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 2, 1, 12, 30, 0, 0, time.UTC)
	session := &domain.CrawlSession{
		SessionID:       "sess-1",
		CrawlerInstance: 1,
		Status:          domain.SessionStatusCompleted,
		StartTime:       time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		EndTime:         &end,
		Configuration: domain.SessionConfig{
			Sources:     []string{"remoteok", "hackernews"},
			SearchTerms: []string{"golang"},
			MaxJobs:     50,
		},
		Progress: domain.SessionProgress{
			CurrentStep:    "completed",
			StepsCompleted: 4,
			TotalSteps:     4,
		},
		Statistics: domain.SessionStatistics{
			TotalJobsFound: 2,
			JobsSaved:      2,
			ExecutionTime:  1800,
		},
		Results: []domain.ResultRef{
			{JobID: "job-1", Title: "Go Engineer", Company: "Acme", Source: "remoteok"},
		},
		Errors: []domain.SessionError{
			{Source: "indeed", Error: "timeout"},
		},
	}

	row, err := toRow(session)
	require.NoError(t, err)

	// JSONB arrays are stored as [], never null.
	assert.Equal(t, "[]", string(row.Notifications))

	restored, err := fromRow(row)
	require.NoError(t, err)

	assert.Equal(t, session.SessionID, restored.SessionID)
	assert.Equal(t, session.Status, restored.Status)
	assert.Equal(t, session.Configuration.Sources, restored.Configuration.Sources)
	assert.Equal(t, session.Statistics.TotalJobsFound, restored.Statistics.TotalJobsFound)
	require.Len(t, restored.Results, 1)
	assert.Equal(t, "job-1", restored.Results[0].JobID)
	require.Len(t, restored.Errors, 1)
	assert.Equal(t, "indeed", restored.Errors[0].Source)
	require.NotNil(t, restored.EndTime)
	assert.True(t, restored.EndTime.Equal(end))
}
