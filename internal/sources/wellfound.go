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

// wellfoundBaseURL is the Wellfound (formerly AngelList Talent) origin.
const wellfoundBaseURL = "https://wellfound.com"

// wellfoundCardSelector matches job cards across Wellfound's markup variants.
const wellfoundCardSelector = `[data-test="JobCard"], .job-card, .startup-link, .job-listing`

// Wellfound scrapes Wellfound startup job listings through the shared
// headless browser.
type Wellfound struct {
	browser *Browser
	logger  logger.Interface
}

// NewWellfound creates the Wellfound adapter.
func NewWellfound(browser *Browser, log logger.Interface) *Wellfound {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Wellfound{browser: browser, logger: log}
}

// Name implements Adapter.
func (a *Wellfound) Name() string { return SourceWellfound }

// Delay implements Adapter.
func (a *Wellfound) Delay() time.Duration { return delayWellfound }

// Scrape renders the recency-sorted search results and parses the cards.
// Wellfound search does not take a location parameter; remote filtering
// happens downstream in extraction.
func (a *Wellfound) Scrape(ctx context.Context, term, _ string, limit int) ([]domain.RawJob, error) {
	searchURL := fmt.Sprintf("%s/jobs?query=%s&sortBy=recency",
		wellfoundBaseURL, url.QueryEscape(term))

	html, err := a.browser.Render(ctx, searchURL, `[data-test="JobCard"]`)
	if err != nil {
		return nil, fmt.Errorf("wellfound: render search page: %w", err)
	}

	jobs, err := ParseWellfoundJobs(html, limit)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Wellfound scrape finished", "jobs", len(jobs), "term", term)
	return jobs, nil
}

// ParseWellfoundJobs extracts raw jobs from rendered Wellfound search HTML.
func ParseWellfoundJobs(html string, limit int) ([]domain.RawJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("wellfound: parse html: %w", err)
	}

	jobs := make([]domain.RawJob, 0, limit)

	doc.Find(wellfoundCardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		title := firstText(card,
			`[data-test="JobTitle"]`, ".job-title", "h2", "h3", `a[href*="/jobs/"]`)
		if title == "" {
			return true
		}

		sourceURL := firstAttr(card, "href", `a[href*="/jobs/"]`, `a[href*="/job/"]`)
		sourceURL = absoluteURL(wellfoundBaseURL, sourceURL)

		jobs = append(jobs, domain.RawJob{
			Title: title,
			Company: firstText(card,
				`[data-test="CompanyName"]`, ".company-name", ".startup-name", "h4"),
			Location: firstText(card, `[data-test="JobLocation"]`, ".location", ".job-location"),
			Salary:   firstText(card, `[data-test="JobSalary"]`, ".salary", ".compensation"),
			SourceURL: sourceURL,
		})

		return len(jobs) < limit
	})

	return jobs, nil
}
