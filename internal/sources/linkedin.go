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

// linkedInBaseURL is the LinkedIn jobs search origin.
const linkedInBaseURL = "https://www.linkedin.com"

// linkedInCardSelector matches job cards across LinkedIn's markup variants.
const linkedInCardSelector = `.base-card, .job-search-card, .jobs-search__results-list li`

// LinkedIn scrapes the public LinkedIn job search through the shared
// headless browser. LinkedIn has the strictest anti-bot posture of the
// supported sources, hence the longest delay.
type LinkedIn struct {
	browser *Browser
	logger  logger.Interface
}

// NewLinkedIn creates the LinkedIn adapter.
func NewLinkedIn(browser *Browser, log logger.Interface) *LinkedIn {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &LinkedIn{browser: browser, logger: log}
}

// Name implements Adapter.
func (a *LinkedIn) Name() string { return SourceLinkedIn }

// Delay implements Adapter.
func (a *LinkedIn) Delay() time.Duration { return delayLinkedIn }

// Scrape renders the last-24h search results sorted by date and parses the
// job cards.
func (a *LinkedIn) Scrape(ctx context.Context, term, location string, limit int) ([]domain.RawJob, error) {
	searchURL := fmt.Sprintf("%s/jobs/search?keywords=%s&location=%s&f_TPR=r86400&sortBy=DD",
		linkedInBaseURL, url.QueryEscape(term), url.QueryEscape(location))

	html, err := a.browser.Render(ctx, searchURL, ".base-card")
	if err != nil {
		return nil, fmt.Errorf("linkedin: render search page: %w", err)
	}

	jobs, err := ParseLinkedInJobs(html, limit)
	if err != nil {
		return nil, err
	}

	a.logger.Info("LinkedIn scrape finished", "jobs", len(jobs), "term", term, "location", location)
	return jobs, nil
}

// ParseLinkedInJobs extracts raw jobs from rendered LinkedIn search HTML.
func ParseLinkedInJobs(html string, limit int) ([]domain.RawJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("linkedin: parse html: %w", err)
	}

	jobs := make([]domain.RawJob, 0, limit)
	seen := make(map[string]struct{})

	doc.Find(linkedInCardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		title := firstText(card,
			".base-search-card__title", ".job-search-card__title", "h3 a", ".sr-only")
		if title == "" {
			return true
		}

		sourceURL := firstAttr(card, "href", `a[href*="/jobs/view"]`, ".base-card__full-link")
		sourceURL = absoluteURL(linkedInBaseURL, sourceURL)

		// The combined card selectors overlap; dedupe within the page.
		key := title + "|" + sourceURL
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}

		datePosted := firstAttr(card, "datetime", "time")
		if datePosted == "" {
			datePosted = firstText(card, "time", ".job-search-card__listdate")
		}

		jobs = append(jobs, domain.RawJob{
			Title: title,
			Company: firstText(card,
				".base-search-card__subtitle", ".job-search-card__subtitle", "h4 a", ".hidden-nested-link"),
			Location:   firstText(card, ".job-search-card__location", ".job-result-card__location"),
			SourceURL:  sourceURL,
			DatePosted: datePosted,
		})

		return len(jobs) < limit
	})

	return jobs, nil
}
