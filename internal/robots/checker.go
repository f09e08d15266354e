// Package robots provides robots.txt compliance checking with per-origin
// caching. Compliance is advisory: every failure path degrades to
// "allowed, no delay" so that crawling is never blocked by a transient
// network issue.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hirewire/jobcrawl/internal/logger"
)

// DefaultCacheTTL is how long a fetched robots.txt stays fresh.
const DefaultCacheTTL = 24 * time.Hour

// DefaultFetchTimeout bounds a single robots.txt fetch.
const DefaultFetchTimeout = 5 * time.Second

// robotsTxtPath is the well-known path for robots.txt files.
const robotsTxtPath = "/robots.txt"

// maxRobotsBodyBytes limits the size of robots.txt responses we will read.
const maxRobotsBodyBytes = 512 * 1024 // 512 KB

// Result is the combined answer for one URL and agent.
type Result struct {
	Allowed    bool          `json:"allowed"`
	CrawlDelay time.Duration `json:"crawl_delay"`
}

// Checker fetches, parses and caches robots.txt rules per (origin, agent).
type Checker struct {
	httpClient *http.Client
	userAgent  string
	logger     logger.Interface
	cache      map[string]*cacheEntry // keyed by origin + "|" + agent
	mu         sync.RWMutex
	cacheTTL   time.Duration
}

// cacheEntry stores the parsed rule set and metadata for one origin+agent.
type cacheEntry struct {
	rules     *RuleSet
	fetchedAt time.Time
	allowAll  bool // robots.txt missing or errored
}

// NewChecker creates a Checker. A nil httpClient gets a client with the
// default fetch timeout; a zero cacheTTL gets the default TTL.
func NewChecker(httpClient *http.Client, userAgent string, cacheTTL time.Duration, log logger.Interface) *Checker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultFetchTimeout}
	}
	if cacheTTL == 0 {
		cacheTTL = DefaultCacheTTL
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	return &Checker{
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     log,
		cache:      make(map[string]*cacheEntry),
		cacheTTL:   cacheTTL,
	}
}

// IsAllowed checks whether the URL may be crawled by the checker's
// configured user agent.
func (c *Checker) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	return c.IsAllowedAgent(ctx, rawURL, c.userAgent)
}

// IsAllowedAgent checks whether the URL may be crawled by the given agent.
func (c *Checker) IsAllowedAgent(ctx context.Context, rawURL, agent string) (bool, error) {
	res, err := c.CheckAgent(ctx, rawURL, agent)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

// CrawlDelay returns the crawl delay declared for the URL's origin, or zero
// when none applies.
func (c *Checker) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	res, err := c.Check(ctx, rawURL)
	if err != nil {
		return 0
	}
	return res.CrawlDelay
}

// Check answers both the allowed question and the crawl delay for the
// checker's configured user agent.
func (c *Checker) Check(ctx context.Context, rawURL string) (Result, error) {
	return c.CheckAgent(ctx, rawURL, c.userAgent)
}

// CheckAgent answers both the allowed question and the crawl delay for an
// explicit user agent.
func (c *Checker) CheckAgent(ctx context.Context, rawURL, agent string) (Result, error) {
	parsed, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return Result{}, fmt.Errorf("robots: parse url: %w", parseErr)
	}
	if parsed.Host == "" {
		return Result{}, fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	origin := originOf(parsed)
	entry := c.getOrFetchEntry(ctx, origin, agent)

	if entry.allowAll {
		return Result{Allowed: true}, nil
	}

	return Result{
		Allowed:    entry.rules.Allows(parsed.Path),
		CrawlDelay: entry.rules.CrawlDelay,
	}, nil
}

// originOf builds the scheme://host origin for a parsed URL, defaulting to
// https when the scheme is absent.
func originOf(u *url.URL) string {
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + strings.ToLower(u.Host)
}

// getOrFetchEntry returns a fresh cached entry or fetches robots.txt.
func (c *Checker) getOrFetchEntry(ctx context.Context, origin, agent string) *cacheEntry {
	key := origin + "|" + strings.ToLower(agent)

	if entry, ok := c.getCachedEntry(key); ok {
		return entry
	}

	return c.fetchAndCache(ctx, key, origin, agent)
}

// getCachedEntry returns a cached entry if it exists and is not stale.
func (c *Checker) getCachedEntry(key string) (*cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.cache[key]
	if !ok {
		return nil, false
	}

	if time.Since(entry.fetchedAt) > c.cacheTTL {
		return nil, false
	}

	return entry, true
}

// fetchAndCache fetches robots.txt for the origin and caches the parsed
// rule set. Any fetch failure and any non-2xx response caches allow-all.
func (c *Checker) fetchAndCache(ctx context.Context, key, origin, agent string) *cacheEntry {
	body, statusCode, fetchErr := c.doFetch(ctx, origin+robotsTxtPath, agent)
	if fetchErr != nil {
		c.logger.Debug("robots fetch failed, allowing all",
			"origin", origin,
			"error", fetchErr,
		)
		return c.store(key, &cacheEntry{fetchedAt: time.Now(), allowAll: true})
	}

	if !isSuccessStatus(statusCode) {
		return c.store(key, &cacheEntry{fetchedAt: time.Now(), allowAll: true})
	}

	return c.store(key, &cacheEntry{
		rules:     ParseRuleSet(body, agent),
		fetchedAt: time.Now(),
	})
}

// doFetch performs the HTTP GET request for a robots.txt URL.
func (c *Checker) doFetch(ctx context.Context, robotsURL, agent string) (body []byte, statusCode int, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if reqErr != nil {
		return nil, 0, fmt.Errorf("robots: create request: %w", reqErr)
	}

	if agent != "" {
		req.Header.Set("User-Agent", agent)
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, 0, fmt.Errorf("robots: fetch: %w", doErr)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxRobotsBodyBytes)

	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("robots: read body: %w", readErr)
	}

	return body, resp.StatusCode, nil
}

// store caches the entry under key and returns it.
func (c *Checker) store(key string, entry *cacheEntry) *cacheEntry {
	c.mu.Lock()
	c.cache[key] = entry
	c.mu.Unlock()
	return entry
}

// statusSuccessLow is the lower bound (inclusive) for HTTP success status codes.
const statusSuccessLow = 200

// statusSuccessHigh is the upper bound (exclusive) for HTTP success status codes.
const statusSuccessHigh = 300

// isSuccessStatus returns true if the HTTP status code is in the 2xx range.
func isSuccessStatus(statusCode int) bool {
	return statusCode >= statusSuccessLow && statusCode < statusSuccessHigh
}
