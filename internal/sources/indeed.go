package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/logger"
)

// indeedBaseURL is the Indeed search origin.
const indeedBaseURL = "https://www.indeed.com"

// indeedCardSelector matches job cards across Indeed's markup variants.
const indeedCardSelector = `[data-jk], .job_seen_beacon, .slider_container .slider_item`

// Indeed scrapes Indeed search results through the shared headless browser.
type Indeed struct {
	browser *Browser
	logger  logger.Interface
}

// NewIndeed creates the Indeed adapter.
func NewIndeed(browser *Browser, log logger.Interface) *Indeed {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Indeed{browser: browser, logger: log}
}

// Name implements Adapter.
func (a *Indeed) Name() string { return SourceIndeed }

// Delay implements Adapter.
func (a *Indeed) Delay() time.Duration { return delayIndeed }

// Scrape renders the search results page and parses the job cards.
func (a *Indeed) Scrape(ctx context.Context, term, location string, limit int) ([]domain.RawJob, error) {
	searchURL := fmt.Sprintf("%s/jobs?q=%s&l=%s&limit=%d&sort=date",
		indeedBaseURL, url.QueryEscape(term), url.QueryEscape(location), limit)

	html, err := a.browser.Render(ctx, searchURL, "[data-jk]")
	if err != nil {
		return nil, fmt.Errorf("indeed: render search page: %w", err)
	}

	jobs, err := ParseIndeedJobs(html, limit)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Indeed scrape finished", "jobs", len(jobs), "term", term, "location", location)
	return jobs, nil
}

// ParseIndeedJobs extracts raw jobs from rendered Indeed search HTML.
// Each field tries several candidate selectors since the markup shifts.
func ParseIndeedJobs(html string, limit int) ([]domain.RawJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("indeed: parse html: %w", err)
	}

	jobs := make([]domain.RawJob, 0, limit)

	doc.Find(indeedCardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		title := firstText(card,
			`[data-testid="job-title"] a`, ".jobTitle a", "h2 a", ".jobTitle-color-purple")
		if title == "" {
			return true
		}

		sourceURL := ""
		if jk, ok := card.Attr("data-jk"); ok && jk != "" {
			sourceURL = indeedBaseURL + "/viewjob?jk=" + jk
		} else {
			sourceURL = absoluteURL(indeedBaseURL, firstAttr(card, "href",
				`[data-testid="job-title"] a`, ".jobTitle a", "h2 a"))
		}

		jobs = append(jobs, domain.RawJob{
			Title:   title,
			Company: firstText(card, `[data-testid="company-name"]`, ".companyName", `[data-testid="company-name"] a`),
			Location: firstText(card,
				`[data-testid="job-location"]`, ".companyLocation", ".locationsContainer"),
			Salary: firstText(card,
				`[data-testid="attribute_snippet_testid"]`, ".salary-snippet", ".estimatedSalary"),
			Description: firstText(card, `[data-testid="job-snippet"]`, ".summary", ".job-snippet"),
			SourceURL:   sourceURL,
		})

		return len(jobs) < limit
	})

	return jobs, nil
}
