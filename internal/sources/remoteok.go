package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/logger"
)

// defaultRemoteOKURL is the public RemoteOK job API.
const defaultRemoteOKURL = "https://remoteok.io/api"

// RemoteOK scrapes the RemoteOK JSON API. The API returns every active
// posting in one response; the first array element is legal metadata and
// is skipped.
type RemoteOK struct {
	baseURL    string
	httpClient *http.Client
	agents     *UserAgentPool
	logger     logger.Interface
}

// remoteOKJob mirrors the fields we read from one API element.
type remoteOKJob struct {
	ID          string          `json:"id"`
	Position    string          `json:"position"`
	Company     string          `json:"company"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	Date        json.RawMessage `json:"date"`
	SalaryMin   float64         `json:"salary_min"`
	SalaryMax   float64         `json:"salary_max"`
}

// NewRemoteOK creates the RemoteOK adapter. An empty baseURL uses the
// public API endpoint.
func NewRemoteOK(baseURL string, httpClient *http.Client, agents *UserAgentPool, log logger.Interface) *RemoteOK {
	if baseURL == "" {
		baseURL = defaultRemoteOKURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if agents == nil {
		agents = NewUserAgentPool(nil, time.Now().UnixNano())
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &RemoteOK{baseURL: baseURL, httpClient: httpClient, agents: agents, logger: log}
}

// Name implements Adapter.
func (a *RemoteOK) Name() string { return SourceRemoteOK }

// Delay implements Adapter.
func (a *RemoteOK) Delay() time.Duration { return delayRemoteOK }

// Scrape fetches the API and keeps postings whose position contains the
// search term. RemoteOK is remote-only, so location is ignored.
func (a *RemoteOK) Scrape(ctx context.Context, term, _ string, limit int) ([]domain.RawJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("remoteok: create request: %w", err)
	}
	req.Header.Set("User-Agent", a.agents.Random())
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remoteok: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remoteok: unexpected status %d", resp.StatusCode)
	}

	var entries []remoteOKJob
	if err = json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("remoteok: decode response: %w", err)
	}

	// First element is metadata, not a job.
	if len(entries) > 0 {
		entries = entries[1:]
	}

	lowerTerm := strings.ToLower(term)

	jobs := make([]domain.RawJob, 0, limit)
	for _, entry := range entries {
		if len(jobs) >= limit {
			break
		}
		if entry.Position == "" {
			continue
		}
		if lowerTerm != "" && !strings.Contains(strings.ToLower(entry.Position), lowerTerm) {
			continue
		}

		sourceURL := entry.URL
		if sourceURL == "" && entry.ID != "" {
			sourceURL = "https://remoteok.io/remote-jobs/" + entry.ID
		}

		jobs = append(jobs, domain.RawJob{
			Title:       entry.Position,
			Company:     entry.Company,
			Location:    "Remote",
			Description: entry.Description,
			Salary:      formatRemoteOKSalary(entry.SalaryMin, entry.SalaryMax),
			SourceURL:   sourceURL,
			DatePosted:  decodeRemoteOKDate(entry.Date),
		})
	}

	a.logger.Info("RemoteOK scrape finished", "jobs", len(jobs), "term", term)
	return jobs, nil
}

// formatRemoteOKSalary renders the API's annual salary bounds as text for
// the extractor.
func formatRemoteOKSalary(minSalary, maxSalary float64) string {
	switch {
	case minSalary > 0 && maxSalary > 0:
		return fmt.Sprintf("$%.0f - $%.0f", minSalary, maxSalary)
	case minSalary > 0:
		return fmt.Sprintf("$%.0f+", minSalary)
	default:
		return ""
	}
}

// decodeRemoteOKDate handles the API's date field, which has been both an
// RFC 3339 string and a unix timestamp over time.
func decodeRemoteOKDate(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		seconds := int64(asNumber)
		// Millisecond timestamps are normalized to seconds.
		if seconds > 1e12 {
			seconds /= 1000
		}
		return time.Unix(seconds, 0).UTC().Format(time.RFC3339)
	}

	return ""
}
