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

const hnSearchFixture = `{
  "hits": [
    {"objectID": "900", "title": "Show HN: my hiring side project"},
    {"objectID": "901", "title": "Ask HN: Who is hiring? (February 2026)"}
  ]
}`

const hnItemFixture = `{
  "children": [
    {"id": 1001, "created_at": "2026-02-03T10:00:00Z",
     "text": "Acme Systems | Toronto, Canada | We are hiring: Senior Backend Engineer to build our Go services platform. $140k - $180k. Apply at acme.example."},
    {"id": 1002, "created_at": "2026-02-03T11:00:00Z",
     "text": "too short"},
    {"id": 1003, "created_at": "2026-02-03T12:00:00Z",
     "text": "Widget Labs | Remote | Looking for: Frontend Developer with React experience to own our dashboard product end to end. Competitive compensation and equity."}
  ]
}`

func newHNServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "who is hiring", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(hnSearchFixture))
	})
	mux.HandleFunc("/items/901", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(hnItemFixture))
	})

	return httptest.NewServer(mux)
}

func TestHackerNews_Scrape_MinesComments(t *testing.T) {
	t.Parallel()

	server := newHNServer(t)
	defer server.Close()

	adapter := sources.NewHackerNews(server.URL, server.Client(), nil)

	jobs, err := adapter.Scrape(context.Background(), "", "", 10)
	require.NoError(t, err)

	require.Len(t, jobs, 2)

	assert.Equal(t, "Acme Systems", jobs[0].Company)
	assert.Equal(t, "Toronto, Canada", jobs[0].Location)
	assert.Equal(t, "Senior Backend Engineer to build our Go services platform", jobs[0].Title)
	assert.Equal(t, "$140k - $180k", jobs[0].Salary)
	assert.Equal(t, "https://news.ycombinator.com/item?id=1001", jobs[0].SourceURL)
	assert.Equal(t, "2026-02-03T10:00:00Z", jobs[0].DatePosted)

	assert.Equal(t, "Widget Labs", jobs[1].Company)
	assert.Equal(t, "Remote", jobs[1].Location)
	assert.Equal(t, "Frontend Developer with React experience to own our dashboard product end to end", jobs[1].Title)
}

func TestHackerNews_Scrape_TermNarrowsResults(t *testing.T) {
	t.Parallel()

	server := newHNServer(t)
	defer server.Close()

	adapter := sources.NewHackerNews(server.URL, server.Client(), nil)

	jobs, err := adapter.Scrape(context.Background(), "react", "", 10)
	require.NoError(t, err)

	require.Len(t, jobs, 1)
	assert.Equal(t, "Widget Labs", jobs[0].Company)
}

func TestHackerNews_Scrape_NoHiringStory(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits": []}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := sources.NewHackerNews(server.URL, server.Client(), nil)

	jobs, err := adapter.Scrape(context.Background(), "", "", 10)
	require.Error(t, err)
	assert.Empty(t, jobs)
}
