package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/extract"
	"github.com/hirewire/jobcrawl/internal/orchestrator"
	"github.com/hirewire/jobcrawl/internal/robots"
	"github.com/hirewire/jobcrawl/internal/session"
	"github.com/hirewire/jobcrawl/internal/sources"
	"github.com/hirewire/jobcrawl/internal/storage"
)

// stubAdapter is a canned-response source for orchestrator tests.
type stubAdapter struct {
	name    string
	jobs    []domain.RawJob
	err     error
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (a *stubAdapter) Name() string         { return a.name }
func (a *stubAdapter) Delay() time.Duration { return 0 }

func (a *stubAdapter) Scrape(ctx context.Context, _, _ string, limit int) ([]domain.RawJob, error) {
	a.calls.Add(1)
	if a.started != nil {
		select {
		case a.started <- struct{}{}:
		default:
		}
	}
	if a.release != nil {
		select {
		case <-a.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	if limit > len(a.jobs) {
		limit = len(a.jobs)
	}
	return a.jobs[:limit], nil
}

// allowAll is a permissive robots policy.
type allowAll struct{}

func (allowAll) Check(context.Context, string) (robots.Result, error) {
	return robots.Result{Allowed: true}, nil
}

// captureSink records upserted jobs.
type captureSink struct {
	jobs []domain.StructuredJob
}

func (s *captureSink) BulkUpsert(_ context.Context, jobs []domain.StructuredJob) (storage.BulkResult, error) {
	s.jobs = append(s.jobs, jobs...)
	return storage.BulkResult{Saved: len(jobs)}, nil
}

func makeRawJobs(prefix string, n int) []domain.RawJob {
	jobs := make([]domain.RawJob, 0, n)
	for i := 0; i < n; i++ {
		jobs = append(jobs, domain.RawJob{
			Title:       fmt.Sprintf("%s Engineer %d", prefix, i),
			Company:     "Acme",
			Description: "Remote full time role building Go services.",
			SourceURL:   fmt.Sprintf("https://example.com/%s/%d", prefix, i),
		})
	}
	return jobs
}

func runSession(
	t *testing.T,
	o *orchestrator.Orchestrator,
	store session.Store,
	cfg domain.SessionConfig,
) (*orchestrator.Summary, *domain.CrawlSession) {
	t.Helper()

	ctx := context.Background()
	id, err := o.StartSession(ctx, cfg)
	require.NoError(t, err)

	summary, err := o.RunSession(ctx, id)
	require.NoError(t, err)

	stored, err := store.GetBySessionID(ctx, id)
	require.NoError(t, err)
	return summary, stored
}

func TestOrchestrator_SharedQuotaAcrossSources(t *testing.T) {
	t.Parallel()

	src1 := &stubAdapter{name: "src1", jobs: makeRawJobs("alpha", 30)}
	src2 := &stubAdapter{name: "src2", jobs: makeRawJobs("beta", 30)}
	sink := &captureSink{}
	store := session.NewMemoryStore()

	o := orchestrator.New(
		sources.NewRegistry(src1, src2),
		extract.New(nil),
		allowAll{},
		store,
		sink,
		nil,
	)

	summary, stored := runSession(t, o, store, domain.SessionConfig{
		Sources:     []string{"src1", "src2"},
		SearchTerms: []string{"golang"},
		MaxJobs:     20,
	})

	assert.Equal(t, domain.SessionStatusCompleted, summary.Status)
	assert.LessOrEqual(t, summary.JobsFound, 20)
	assert.Equal(t, 20, summary.JobsFound)
	assert.Equal(t, 20, summary.JobsSaved)
	assert.Len(t, sink.jobs, 20)

	assert.Equal(t, len(stored.Results), stored.Statistics.TotalJobsFound)
	assert.Equal(t, 20, stored.Statistics.JobsSaved)
	assert.Equal(t, 20, stored.Statistics.TitlesFetched)
	assert.Equal(t, map[string]int{"src1": 20}, summary.Sources)
	require.NotNil(t, stored.EndTime)
}

func TestOrchestrator_PerSourceCounts(t *testing.T) {
	t.Parallel()

	src1 := &stubAdapter{name: "src1", jobs: makeRawJobs("alpha", 4)}
	src2 := &stubAdapter{name: "src2", jobs: makeRawJobs("beta", 6)}
	sink := &captureSink{}
	store := session.NewMemoryStore()

	o := orchestrator.New(
		sources.NewRegistry(src1, src2),
		extract.New(nil),
		allowAll{},
		store,
		sink,
		nil,
	)

	summary, stored := runSession(t, o, store, domain.SessionConfig{
		Sources:     []string{"src1", "src2"},
		SearchTerms: []string{"golang"},
		MaxJobs:     50,
	})

	assert.Equal(t, 10, summary.JobsFound)
	assert.Equal(t, map[string]int{"src1": 4, "src2": 6}, summary.Sources)
	assert.Equal(t, 10, stored.Statistics.TitlesFetched)
}

func TestOrchestrator_StopDoesNotAffectOtherSessions(t *testing.T) {
	t.Parallel()

	slow := &stubAdapter{
		name:    "slow",
		jobs:    makeRawJobs("slow", 5),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	fast := &stubAdapter{name: "fast", jobs: makeRawJobs("fast", 5)}
	sink := &captureSink{}
	store := session.NewMemoryStore()

	o := orchestrator.New(
		sources.NewRegistry(slow, fast),
		extract.New(nil),
		allowAll{},
		store,
		sink,
		nil,
	)
	ctx := context.Background()

	idA, err := o.StartSession(ctx, domain.SessionConfig{
		Sources:     []string{"slow"},
		SearchTerms: []string{"one", "two"},
		MaxJobs:     50,
	})
	require.NoError(t, err)

	type runResult struct {
		summary *orchestrator.Summary
		err     error
	}
	done := make(chan runResult, 1)
	go func() {
		summary, runErr := o.RunSession(ctx, idA)
		done <- runResult{summary: summary, err: runErr}
	}()

	// Wait until A is blocked inside its first scrape.
	select {
	case <-slow.started:
	case <-time.After(5 * time.Second):
		t.Fatal("session A never started scraping")
	}
	assert.Contains(t, o.ActiveSessions(), idA)

	// B runs to completion while A is in flight.
	summaryB, storedB := runSession(t, o, store, domain.SessionConfig{
		Sources:     []string{"fast"},
		SearchTerms: []string{"golang"},
		MaxJobs:     50,
	})
	assert.Equal(t, domain.SessionStatusCompleted, summaryB.Status)
	assert.Equal(t, 5, storedB.Statistics.TotalJobsFound)

	require.True(t, o.Stop(idA))

	var resultA runResult
	select {
	case resultA = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session A never finished after stop")
	}
	require.NoError(t, resultA.err)
	assert.Equal(t, domain.SessionStatusStopped, resultA.summary.Status)

	storedA, err := store.GetBySessionID(ctx, idA)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusStopped, storedA.Status)
	assert.Equal(t, domain.SessionStatusCompleted, storedB.Status)

	// The cancelled in-flight scrape is the stop taking effect, not a
	// source failure.
	assert.Empty(t, storedA.Errors)

	assert.Empty(t, o.ActiveSessions())
	assert.False(t, o.Stop(idA))
}

func TestOrchestrator_RobotsDisallowSkipsSource(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	src := &stubAdapter{name: "src1", jobs: makeRawJobs("alpha", 5)}
	sink := &captureSink{}
	store := session.NewMemoryStore()

	o := orchestrator.New(
		sources.NewRegistry(src),
		extract.New(nil),
		robots.NewChecker(server.Client(), "jobcrawl", time.Hour, nil),
		store,
		sink,
		nil,
		orchestrator.WithBaseURL("src1", server.URL+"/"),
	)

	summary, stored := runSession(t, o, store, domain.SessionConfig{
		Sources:     []string{"src1"},
		SearchTerms: []string{"golang"},
		MaxJobs:     50,
	})

	assert.Equal(t, domain.SessionStatusCompleted, summary.Status)
	assert.Zero(t, summary.JobsFound)
	assert.Zero(t, src.calls.Load())
	assert.Empty(t, sink.jobs)

	var sawSkip bool
	for _, n := range stored.Notifications {
		if n.Level == domain.NotificationWarning {
			sawSkip = true
		}
	}
	assert.True(t, sawSkip, "expected a robots skip notification")
}

func TestOrchestrator_SourceErrorIsolation(t *testing.T) {
	t.Parallel()

	broken := &stubAdapter{name: "broken", err: errors.New("rate limited")}
	healthy := &stubAdapter{name: "healthy", jobs: makeRawJobs("ok", 3)}
	sink := &captureSink{}
	store := session.NewMemoryStore()

	o := orchestrator.New(
		sources.NewRegistry(broken, healthy),
		extract.New(nil),
		allowAll{},
		store,
		sink,
		nil,
	)

	summary, stored := runSession(t, o, store, domain.SessionConfig{
		Sources:     []string{"broken", "healthy"},
		SearchTerms: []string{"golang"},
		MaxJobs:     50,
	})

	assert.Equal(t, domain.SessionStatusCompleted, summary.Status)
	assert.Equal(t, 3, summary.JobsFound)
	assert.Equal(t, 1, summary.Errors)
	require.Len(t, stored.Errors, 1)
	assert.Equal(t, "broken", stored.Errors[0].Source)
}

func TestOrchestrator_DedupAcrossSources(t *testing.T) {
	t.Parallel()

	shared := domain.RawJob{
		Title:       "Go Engineer",
		Company:     "Acme",
		Description: "Same posting syndicated twice.",
		SourceURL:   "https://example.com/jobs/1",
	}
	src1 := &stubAdapter{name: "src1", jobs: []domain.RawJob{shared}}
	src2 := &stubAdapter{name: "src2", jobs: []domain.RawJob{shared}}
	sink := &captureSink{}
	store := session.NewMemoryStore()

	o := orchestrator.New(
		sources.NewRegistry(src1, src2),
		extract.New(nil),
		allowAll{},
		store,
		sink,
		nil,
	)

	summary, stored := runSession(t, o, store, domain.SessionConfig{
		Sources:     []string{"src1", "src2"},
		SearchTerms: []string{"golang"},
		MaxJobs:     50,
	})

	assert.Equal(t, 1, summary.JobsFound)
	assert.Len(t, sink.jobs, 1)
	assert.Equal(t, 1, stored.Statistics.TotalJobsFound)
	assert.Equal(t, map[string]int{"src1": 1, "src2": 0}, summary.Sources)
	assert.Equal(t, 2, stored.Statistics.TitlesFetched)
}

func TestOrchestrator_UnknownSourceRecorded(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	store := session.NewMemoryStore()

	o := orchestrator.New(
		sources.NewRegistry(),
		extract.New(nil),
		allowAll{},
		store,
		sink,
		nil,
	)

	summary, stored := runSession(t, o, store, domain.SessionConfig{
		Sources:     []string{"nosuch"},
		SearchTerms: []string{"golang"},
		MaxJobs:     10,
	})

	assert.Equal(t, domain.SessionStatusCompleted, summary.Status)
	assert.Equal(t, 1, summary.Errors)
	require.Len(t, stored.Errors, 1)
	assert.Equal(t, "nosuch", stored.Errors[0].Source)
}

func TestOrchestrator_CompanyPhaseSharesQuota(t *testing.T) {
	t.Parallel()

	src := &stubAdapter{name: "src1", jobs: makeRawJobs("search", 10)}
	sink := &captureSink{}
	store := session.NewMemoryStore()

	o := orchestrator.New(
		sources.NewRegistry(src),
		extract.New(nil),
		allowAll{},
		store,
		sink,
		nil,
	)

	// The company phase searches the configured sources with the company
	// name, then the source phase runs; both share one quota.
	summary, stored := runSession(t, o, store, domain.SessionConfig{
		Sources:     []string{"src1"},
		Companies:   []string{"Acme"},
		SearchTerms: []string{"golang"},
		MaxJobs:     10,
	})

	assert.Equal(t, 10, summary.JobsFound)
	assert.Equal(t, 1, stored.Statistics.CompaniesFetched)
	assert.Len(t, sink.jobs, 10)
}
