package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/logger"
)

// genericCardSelector is the union of job-card class heuristics tried
// against ad hoc career pages.
const genericCardSelector = `[data-testid*="job"], [data-test*="job"], .job, .job-card, ` +
	`.job-listing, .job-item, .job-search-card, .base-card, .search-result, ` +
	`.posting, .vacancy, .position`

// Generic field selector chains, loosest heuristics last.
var (
	genericTitleSelectors = []string{
		"h1", "h2", "h3", ".title", `[class*="title"]`, `a[href*="job"]`,
	}
	genericCompanySelectors = []string{
		".company", `[class*="company"]`, ".employer", `[class*="employer"]`,
	}
	genericLocationSelectors = []string{
		".location", `[class*="location"]`, ".city", `[class*="city"]`,
	}
	genericDescriptionSelectors = []string{
		".description", `[class*="description"]`, ".summary", `[class*="summary"]`, "p",
	}
	genericSalarySelectors = []string{
		".salary", `[class*="salary"]`, ".compensation", `[class*="compensation"]`, ".pay", `[class*="pay"]`,
	}
)

// Generic is the fallback adapter for ad hoc company career pages. It
// fetches a single page with colly and applies generic CSS job-card
// heuristics to extract whatever it can.
type Generic struct {
	agents *UserAgentPool
	logger logger.Interface
}

// NewGeneric creates the generic career-page adapter.
func NewGeneric(agents *UserAgentPool, log logger.Interface) *Generic {
	if agents == nil {
		agents = NewUserAgentPool(nil, time.Now().UnixNano())
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Generic{agents: agents, logger: log}
}

// Name implements Adapter.
func (a *Generic) Name() string { return SourceGeneric }

// Delay implements Adapter.
func (a *Generic) Delay() time.Duration { return delayGeneric }

// Scrape treats the search term as the page URL to crawl. The orchestrator
// routes URL-shaped sources here.
func (a *Generic) Scrape(ctx context.Context, term, _ string, limit int) ([]domain.RawJob, error) {
	if !IsCrawlableURL(term) {
		return nil, fmt.Errorf("generic: %q is not a crawlable URL", term)
	}
	return a.ScrapeURL(ctx, term, limit)
}

// ScrapeURL crawls one page and extracts job cards by class heuristics.
func (a *Generic) ScrapeURL(ctx context.Context, pageURL string, limit int) ([]domain.RawJob, error) {
	collector := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(a.agents.Random()),
		colly.MaxDepth(1),
	)
	collector.SetRequestTimeout(defaultHTTPTimeout)

	jobs := make([]domain.RawJob, 0, limit)
	seen := make(map[string]struct{})

	collector.OnHTML(genericCardSelector, func(e *colly.HTMLElement) {
		if len(jobs) >= limit {
			return
		}

		card := e.DOM

		title := firstText(card, genericTitleSelectors...)
		if title == "" {
			// Bare anchor cards carry the title as their own text.
			title = strings.TrimSpace(card.Text())
		}
		if title == "" {
			return
		}

		company := firstText(card, genericCompanySelectors...)

		// Nested card selectors match the same posting repeatedly.
		key := title + "|" + company
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		sourceURL := e.Request.AbsoluteURL(e.ChildAttr("a[href]", "href"))
		if sourceURL == "" {
			sourceURL = pageURL
		}

		jobs = append(jobs, domain.RawJob{
			Title:       title,
			Company:     company,
			Location:    firstText(card, genericLocationSelectors...),
			Description: firstText(card, genericDescriptionSelectors...),
			Salary:      firstText(card, genericSalarySelectors...),
			SourceURL:   sourceURL,
		})
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("generic: visit %s: %w", pageURL, err)
	}
	collector.Wait()

	a.logger.Info("Generic scrape finished", "jobs", len(jobs), "url", pageURL)
	return jobs, nil
}

// IsCrawlableURL reports whether the string parses as an absolute http(s)
// URL. The orchestrator uses it to route URL-shaped entries to this adapter.
func IsCrawlableURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
