package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/jobcrawl/internal/sources"
)

const remoteOKFixture = `[
  {"legal": "API terms of service...", "last_updated": 1700000000},
  {"id": "101", "position": "Senior Go Engineer", "company": "Acme",
   "description": "Build crawlers in Go", "url": "https://remoteok.io/remote-jobs/101",
   "date": "2026-02-01T00:00:00+00:00", "salary_min": 90000, "salary_max": 140000},
  {"id": "102", "position": "Marketing Manager", "company": "Beta",
   "description": "Run campaigns", "url": "https://remoteok.io/remote-jobs/102",
   "date": 1706745600},
  {"id": "103", "position": "Go Developer", "company": "Gamma",
   "description": "Backend services", "url": "",
   "date": "2026-02-02T00:00:00+00:00", "salary_min": 80000},
  {"id": "104", "position": "", "company": "NoTitle Inc"}
]`

func newRemoteOKServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(remoteOKFixture))
	}))
}

func TestRemoteOK_Scrape_FiltersByTerm(t *testing.T) {
	t.Parallel()

	server := newRemoteOKServer(t)
	defer server.Close()

	adapter := sources.NewRemoteOK(server.URL, server.Client(), nil, nil)

	jobs, err := adapter.Scrape(context.Background(), "go", "", 50)
	require.NoError(t, err)

	require.Len(t, jobs, 2)
	assert.Equal(t, "Senior Go Engineer", jobs[0].Title)
	assert.Equal(t, "Acme", jobs[0].Company)
	assert.Equal(t, "Remote", jobs[0].Location)
	assert.Equal(t, "$90000 - $140000", jobs[0].Salary)
	assert.Equal(t, "https://remoteok.io/remote-jobs/101", jobs[0].SourceURL)

	assert.Equal(t, "Go Developer", jobs[1].Title)
	assert.Equal(t, "$80000+", jobs[1].Salary)
	// Missing URL falls back to the job ID path.
	assert.Equal(t, "https://remoteok.io/remote-jobs/103", jobs[1].SourceURL)
}

func TestRemoteOK_Scrape_SkipsMetadataAndUntitled(t *testing.T) {
	t.Parallel()

	server := newRemoteOKServer(t)
	defer server.Close()

	adapter := sources.NewRemoteOK(server.URL, server.Client(), nil, nil)

	jobs, err := adapter.Scrape(context.Background(), "", "", 50)
	require.NoError(t, err)

	// Metadata element and the titleless entry are dropped.
	assert.Len(t, jobs, 3)
}

func TestRemoteOK_Scrape_RespectsLimit(t *testing.T) {
	t.Parallel()

	server := newRemoteOKServer(t)
	defer server.Close()

	adapter := sources.NewRemoteOK(server.URL, server.Client(), nil, nil)

	jobs, err := adapter.Scrape(context.Background(), "", "", 1)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestRemoteOK_Scrape_UnixDateNormalized(t *testing.T) {
	t.Parallel()

	server := newRemoteOKServer(t)
	defer server.Close()

	adapter := sources.NewRemoteOK(server.URL, server.Client(), nil, nil)

	jobs, err := adapter.Scrape(context.Background(), "marketing", "", 10)
	require.NoError(t, err)

	require.Len(t, jobs, 1)
	assert.Equal(t, "2024-02-01T00:00:00Z", jobs[0].DatePosted)
}

func TestRemoteOK_Scrape_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := sources.NewRemoteOK(server.URL, server.Client(), nil, nil)

	jobs, err := adapter.Scrape(context.Background(), "go", "", 10)
	require.Error(t, err)
	assert.Empty(t, jobs)
}
