package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/logger"
)

// defaultAlgoliaURL is the Hacker News Algolia search API.
const defaultAlgoliaURL = "https://hn.algolia.com/api/v1"

// minCommentLength filters out "me too" replies that carry no job content.
const minCommentLength = 100

// hnDescriptionCap truncates comment text carried into the raw job.
const hnDescriptionCap = 500

// Patterns for mining structured hints out of free-form "Who is hiring"
// comments. Comments loosely follow "Company | Location | Role | Salary".
var (
	hnCompanyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^([A-Z][A-Za-z\s&]+)\s*\|`),
		regexp.MustCompile(`^([A-Z][A-Za-z\s&]+)\s*-`),
		regexp.MustCompile(`^([A-Z][A-Za-z\s&]+)\s*\(`),
	}
	hnLocationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\|\s*([A-Za-z\s,]+)\s*\|`),
		regexp.MustCompile(`(?i)Location:\s*([A-Za-z\s,]+)`),
	}
	hnRemotePattern = regexp.MustCompile(`(?i)\|\s*Remote|Remote\s*\|`)
	hnTitlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)hiring[\s:]+([^|.]+)`),
		regexp.MustCompile(`(?i)seeking[\s:]+([^|.]+)`),
		regexp.MustCompile(`(?i)looking for[\s:]+([^|.]+)`),
	}
	hnSalaryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\$(\d+)k?\s*-\s*\$?(\d+)k`),
		regexp.MustCompile(`(?i)\$(\d+)k`),
		regexp.MustCompile(`(?i)(\d+)k\s*-\s*(\d+)k`),
	}
	hnTagPattern   = regexp.MustCompile(`<[^>]+>`)
	hnSpacePattern = regexp.MustCompile(`\s+`)
)

// HackerNews scrapes the latest "Ask HN: Who is hiring?" thread via the
// Algolia API and mines its top-level comments for job postings.
type HackerNews struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Interface
}

// hnSearchResponse is the story search result shape.
type hnSearchResponse struct {
	Hits []struct {
		ObjectID string `json:"objectID"`
		Title    string `json:"title"`
	} `json:"hits"`
}

// hnItemResponse is the story-with-comments shape.
type hnItemResponse struct {
	Children []struct {
		ObjectID  int    `json:"id"`
		Text      string `json:"text"`
		CreatedAt string `json:"created_at"`
	} `json:"children"`
}

// NewHackerNews creates the Hacker News adapter. An empty baseURL uses the
// public Algolia endpoint.
func NewHackerNews(baseURL string, httpClient *http.Client, log logger.Interface) *HackerNews {
	if baseURL == "" {
		baseURL = defaultAlgoliaURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &HackerNews{baseURL: baseURL, httpClient: httpClient, logger: log}
}

// Name implements Adapter.
func (a *HackerNews) Name() string { return SourceHackerNews }

// Delay implements Adapter.
func (a *HackerNews) Delay() time.Duration { return delayHackerNews }

// Scrape finds the latest hiring thread and converts its comments to raw
// jobs. The search term and location only narrow results when present in
// the comment text.
func (a *HackerNews) Scrape(ctx context.Context, term, _ string, limit int) ([]domain.RawJob, error) {
	storyID, err := a.findLatestHiringStory(ctx)
	if err != nil {
		return nil, err
	}

	var item hnItemResponse
	if err = a.getJSON(ctx, a.baseURL+"/items/"+storyID, &item); err != nil {
		return nil, err
	}

	lowerTerm := strings.ToLower(term)

	jobs := make([]domain.RawJob, 0, limit)
	for _, comment := range item.Children {
		if len(jobs) >= limit {
			break
		}
		text := stripHTMLTags(comment.Text)
		if len(text) < minCommentLength {
			continue
		}
		if lowerTerm != "" && !strings.Contains(strings.ToLower(text), lowerTerm) {
			continue
		}

		description := text
		if len(description) > hnDescriptionCap {
			description = description[:hnDescriptionCap] + "..."
		}

		jobs = append(jobs, domain.RawJob{
			Title:       hnExtractTitle(text),
			Company:     hnExtractCompany(text),
			Location:    hnExtractLocation(text),
			Description: description,
			Salary:      hnExtractSalary(text),
			SourceURL:   fmt.Sprintf("https://news.ycombinator.com/item?id=%d", comment.ObjectID),
			DatePosted:  comment.CreatedAt,
		})
	}

	a.logger.Info("Hacker News scrape finished", "jobs", len(jobs), "term", term)
	return jobs, nil
}

// findLatestHiringStory searches for the most recent "Who is hiring" story.
func (a *HackerNews) findLatestHiringStory(ctx context.Context) (string, error) {
	query := url.Values{}
	query.Set("query", "who is hiring")
	query.Set("tags", "story")
	query.Set("hitsPerPage", "5")

	var search hnSearchResponse
	if err := a.getJSON(ctx, a.baseURL+"/search?"+query.Encode(), &search); err != nil {
		return "", err
	}

	for _, hit := range search.Hits {
		if strings.Contains(strings.ToLower(hit.Title), "who is hiring") {
			return hit.ObjectID, nil
		}
	}

	return "", fmt.Errorf("hackernews: no hiring story found")
}

// getJSON fetches a URL and decodes the JSON response.
func (a *HackerNews) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("hackernews: create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hackernews: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hackernews: unexpected status %d", resp.StatusCode)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hackernews: decode response: %w", err)
	}
	return nil
}

// stripHTMLTags removes markup from Algolia comment text.
func stripHTMLTags(text string) string {
	text = hnTagPattern.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "&#x27;", "'")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&lt;", "<")
	return strings.TrimSpace(hnSpacePattern.ReplaceAllString(text, " "))
}

func hnExtractCompany(text string) string {
	for _, pattern := range hnCompanyPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	return "Startup/Company"
}

func hnExtractLocation(text string) string {
	for _, pattern := range hnLocationPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	if hnRemotePattern.MatchString(text) {
		return "Remote"
	}
	return "Not specified"
}

func hnExtractTitle(text string) string {
	for _, pattern := range hnTitlePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	return "Software Engineer"
}

func hnExtractSalary(text string) string {
	for _, pattern := range hnSalaryPatterns {
		if match := pattern.FindString(text); match != "" {
			return match
		}
	}
	return ""
}
