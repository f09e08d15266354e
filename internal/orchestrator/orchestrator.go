// Package orchestrator runs crawl sessions end to end: it fans out over the
// configured sources and companies, enforces the shared job quota and the
// robots policy, extracts and deduplicates results, and persists everything
// through the session tracker and the job store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/extract"
	"github.com/hirewire/jobcrawl/internal/logger"
	"github.com/hirewire/jobcrawl/internal/robots"
	"github.com/hirewire/jobcrawl/internal/session"
	"github.com/hirewire/jobcrawl/internal/sources"
	"github.com/hirewire/jobcrawl/internal/storage"
)

// DefaultMaxJobs caps a session that does not set its own limit.
const DefaultMaxJobs = 50

// Default robots-gate URLs per source. The generic adapter gates the page
// URL itself.
var defaultBaseURLs = map[string]string{
	sources.SourceRemoteOK:   "https://remoteok.io/",
	sources.SourceHackerNews: "https://hn.algolia.com/",
	sources.SourceIndeed:     "https://www.indeed.com/",
	sources.SourceLinkedIn:   "https://www.linkedin.com/",
	sources.SourceWellfound:  "https://wellfound.com/",
}

// JobSink receives the deduplicated structured jobs of a finished crawl.
type JobSink interface {
	BulkUpsert(ctx context.Context, jobs []domain.StructuredJob) (storage.BulkResult, error)
}

// Policy answers robots.txt questions for a URL.
type Policy interface {
	Check(ctx context.Context, rawURL string) (robots.Result, error)
}

// Orchestrator coordinates crawl sessions. Each running session holds its
// own stop token, so stopping one never affects another.
type Orchestrator struct {
	registry  *sources.Registry
	extractor *extract.Extractor
	robots    Policy
	store     session.Store
	sink      JobSink
	browser   *sources.Browser
	logger    logger.Interface
	instance  int
	baseURLs  map[string]string
	sleep     func(ctx context.Context, d time.Duration)

	mu     sync.Mutex
	active map[string]*runState
}

// runState is the per-session cancellation token.
type runState struct {
	cancel  context.CancelFunc
	stopped atomic.Bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBrowser attaches the shared Playwright browser so it is closed after
// each crawl batch.
func WithBrowser(b *sources.Browser) Option {
	return func(o *Orchestrator) {
		o.browser = b
	}
}

// WithInstance sets the crawler instance number recorded on sessions.
func WithInstance(instance int) Option {
	return func(o *Orchestrator) {
		o.instance = instance
	}
}

// WithBaseURL overrides the robots-gate URL for one source.
func WithBaseURL(source, baseURL string) Option {
	return func(o *Orchestrator) {
		o.baseURLs[source] = baseURL
	}
}

// New creates an orchestrator.
func New(
	registry *sources.Registry,
	extractor *extract.Extractor,
	policy Policy,
	store session.Store,
	sink JobSink,
	log logger.Interface,
	opts ...Option,
) *Orchestrator {
	if log == nil {
		log = logger.NewNoOp()
	}

	o := &Orchestrator{
		registry:  registry,
		extractor: extractor,
		robots:    policy,
		store:     store,
		sink:      sink,
		logger:    log,
		baseURLs:  make(map[string]string, len(defaultBaseURLs)),
		sleep:     ctxSleep,
		active:    make(map[string]*runState),
	}
	for name, baseURL := range defaultBaseURLs {
		o.baseURLs[name] = baseURL
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartSession creates a new session for the configuration and returns its
// ID without running it.
func (o *Orchestrator) StartSession(ctx context.Context, cfg domain.SessionConfig) (string, error) {
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = DefaultMaxJobs
	}

	tracker, err := session.Start(ctx, o.store, o.instance, cfg, o.logger)
	if err != nil {
		return "", err
	}
	return tracker.SessionID(), nil
}

// Summary reports the outcome of one crawl run. Sources holds the number
// of jobs each source contributed after dedup and quota enforcement.
type Summary struct {
	SessionID string               `json:"session_id"`
	Status    domain.SessionStatus `json:"status"`
	JobsFound int                  `json:"jobs_found"`
	JobsSaved int                  `json:"jobs_saved"`
	Sources   map[string]int       `json:"sources"`
	Errors    int                  `json:"errors"`
	Duration  time.Duration        `json:"duration"`
}

// Stop requests cancellation of a running session. It reports whether the
// session was active.
func (o *Orchestrator) Stop(sessionID string) bool {
	o.mu.Lock()
	state, ok := o.active[sessionID]
	o.mu.Unlock()
	if !ok {
		return false
	}

	if state.stopped.CompareAndSwap(false, true) {
		state.cancel()
		o.logger.Info("Stop requested", "session_id", sessionID)
	}
	return true
}

// ActiveSessions returns the IDs of sessions currently running, sorted.
func (o *Orchestrator) ActiveSessions() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]string, 0, len(o.active))
	for id := range o.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RunSession executes the stored session until its quota is met, its work
// is exhausted, or it is stopped.
func (o *Orchestrator) RunSession(ctx context.Context, sessionID string) (*Summary, error) {
	tracker, err := session.Resume(ctx, o.store, sessionID, o.logger)
	if err != nil {
		return nil, err
	}

	snap, err := tracker.Snapshot()
	if err != nil {
		return nil, err
	}
	if snap.Status.IsTerminal() {
		return nil, fmt.Errorf("session %s is already %s", sessionID, snap.Status)
	}

	scrapeCtx, cancel := context.WithCancel(ctx)
	state := &runState{cancel: cancel}

	o.mu.Lock()
	if _, running := o.active[sessionID]; running {
		o.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("session %s is already running", sessionID)
	}
	o.active[sessionID] = state
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		delete(o.active, sessionID)
		o.mu.Unlock()

		if o.browser != nil {
			if closeErr := o.browser.Close(); closeErr != nil {
				o.logger.Warn("Failed to close browser", "error", closeErr)
			}
		}
	}()

	return o.run(ctx, scrapeCtx, state, tracker, &snap.Configuration)
}

// run is the crawl loop proper. ctx is used for persistence so state is
// saved even after the scrape context is cancelled by a stop request.
func (o *Orchestrator) run(
	ctx context.Context,
	scrapeCtx context.Context,
	state *runState,
	tracker *session.Tracker,
	cfg *domain.SessionConfig,
) (*Summary, error) {
	maxJobs := cfg.MaxJobs
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}

	terms := cfg.SearchTerms
	if len(terms) == 0 {
		terms = []string{""}
	}
	location := ""
	if len(cfg.Locations) > 0 {
		location = cfg.Locations[0]
	}

	totalSteps := len(cfg.Companies) + len(cfg.Sources)*len(terms)
	o.updateProgress(ctx, tracker, session.ProgressUpdate{
		CurrentStep: ptr("starting"),
		TotalSteps:  &totalSteps,
	})

	collected := make([]domain.StructuredJob, 0, maxJobs)
	seen := make(map[string]struct{})
	counts := make(map[string]int)
	steps := 0

	// Company-direct phase. Results count against the same shared quota.
	for _, company := range cfg.Companies {
		if state.stopped.Load() || len(collected) >= maxJobs {
			break
		}
		steps++
		o.updateProgress(ctx, tracker, session.ProgressUpdate{
			CurrentStep:    ptr("fetching companies"),
			CurrentCompany: &company,
			StepsCompleted: &steps,
		})
		o.crawlCompany(ctx, scrapeCtx, state, tracker, company, location, maxJobs, &collected, seen, counts)
	}

	// Source fan-out over the cartesian (source x term) space.
	for _, name := range cfg.Sources {
		for _, term := range terms {
			if state.stopped.Load() || len(collected) >= maxJobs {
				break
			}
			steps++
			o.updateProgress(ctx, tracker, session.ProgressUpdate{
				CurrentStep:    ptr("scraping sources"),
				CurrentSource:  &name,
				StepsCompleted: &steps,
			})

			adapter, ok := o.registry.Get(name)
			if !ok {
				o.recordError(ctx, tracker, name, fmt.Errorf("unknown source: %s", name))
				continue
			}
			o.crawlSource(ctx, scrapeCtx, state, tracker, adapter, term, location, o.baseURLs[name], maxJobs, &collected, seen, counts)
		}
	}

	return o.finalize(ctx, state, tracker, collected, counts)
}

// crawlCompany fetches jobs directly from one company. URL-shaped entries
// are crawled as career pages; plain names are searched on every configured
// source.
func (o *Orchestrator) crawlCompany(
	ctx context.Context,
	scrapeCtx context.Context,
	state *runState,
	tracker *session.Tracker,
	company, location string,
	maxJobs int,
	collected *[]domain.StructuredJob,
	seen map[string]struct{},
	counts map[string]int,
) {
	adapter, ok := o.registry.Get(sources.SourceGeneric)
	if ok && sources.IsCrawlableURL(company) {
		before := len(*collected)
		o.crawlSource(ctx, scrapeCtx, state, tracker, adapter, company, location, company, maxJobs, collected, seen, counts)
		if len(*collected) > before {
			o.bumpCompaniesFetched(ctx, tracker)
		}
		return
	}

	fetched := false
	for _, name := range o.registry.Names() {
		if state.stopped.Load() || len(*collected) >= maxJobs {
			break
		}
		src, srcOK := o.registry.Get(name)
		if !srcOK || name == sources.SourceGeneric {
			continue
		}
		before := len(*collected)
		o.crawlSource(ctx, scrapeCtx, state, tracker, src, company, location, o.baseURLs[name], maxJobs, collected, seen, counts)
		if len(*collected) > before {
			fetched = true
		}
	}
	if fetched {
		o.bumpCompaniesFetched(ctx, tracker)
	}
}

// crawlSource runs one adapter invocation: robots gate, crawl delay,
// scrape, extract, dedup, quota enforcement, session appends.
func (o *Orchestrator) crawlSource(
	ctx context.Context,
	scrapeCtx context.Context,
	state *runState,
	tracker *session.Tracker,
	adapter sources.Adapter,
	term, location, gateURL string,
	maxJobs int,
	collected *[]domain.StructuredJob,
	seen map[string]struct{},
	counts map[string]int,
) {
	remaining := maxJobs - len(*collected)
	if remaining <= 0 {
		return
	}

	delay := adapter.Delay()
	if gateURL != "" {
		result, err := o.robots.Check(scrapeCtx, gateURL)
		switch {
		case err != nil:
			o.logger.Warn("Robots check failed, proceeding", "url", gateURL, "error", err)
		case !result.Allowed:
			o.notify(ctx, tracker, domain.NotificationWarning,
				fmt.Sprintf("Skipping %s: disallowed by robots.txt", adapter.Name()))
			return
		case result.CrawlDelay > delay:
			delay = result.CrawlDelay
		}
	}

	raws, err := adapter.Scrape(scrapeCtx, term, location, remaining)
	if err != nil {
		// A stop request cancels the scrape context; the resulting
		// cancellation is not a source failure.
		if state.stopped.Load() && errors.Is(err, context.Canceled) {
			return
		}
		o.recordError(ctx, tracker, adapter.Name(), err)
		return
	}

	if upErr := tracker.UpdateStatistics(ctx, func(stats *domain.SessionStatistics) {
		stats.TitlesFetched += len(raws)
	}); upErr != nil {
		o.logger.Warn("Failed to update statistics", "error", upErr)
	}

	jobs := o.extractor.BatchExtract(raws, adapter.Name())
	added := 0
	for _, job := range jobs {
		if len(*collected) >= maxJobs {
			break
		}
		key := job.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		*collected = append(*collected, *job)
		added++
		if addErr := tracker.AddResult(ctx, job); addErr != nil {
			o.logger.Warn("Failed to record result", "error", addErr)
		}
	}

	counts[adapter.Name()] += added

	o.logger.Info("Source scraped",
		"source", adapter.Name(),
		"term", term,
		"raw", len(raws),
		"added", added)

	// Pause before the next combination hits the network.
	if !state.stopped.Load() && delay > 0 {
		o.sleep(scrapeCtx, delay)
	}
}

// finalize upserts the batch, settles the terminal status, and builds the
// summary.
func (o *Orchestrator) finalize(
	ctx context.Context,
	state *runState,
	tracker *session.Tracker,
	collected []domain.StructuredJob,
	counts map[string]int,
) (*Summary, error) {
	status := domain.SessionStatusCompleted
	saved := 0

	if len(collected) > 0 {
		result, err := o.sink.BulkUpsert(ctx, collected)
		if err != nil {
			o.recordError(ctx, tracker, "storage", err)
			status = domain.SessionStatusFailed
		} else {
			saved = result.Saved
			if result.Failed > 0 {
				o.notify(ctx, tracker, domain.NotificationWarning,
					fmt.Sprintf("%d jobs failed to index", result.Failed))
			}
		}
	}

	if upErr := tracker.UpdateStatistics(ctx, func(stats *domain.SessionStatistics) {
		stats.JobsSaved = saved
	}); upErr != nil {
		o.logger.Warn("Failed to update statistics", "error", upErr)
	}

	if state.stopped.Load() {
		status = domain.SessionStatusStopped
	}

	level := domain.NotificationSuccess
	if status != domain.SessionStatusCompleted {
		level = domain.NotificationWarning
	}
	o.notify(ctx, tracker, level,
		fmt.Sprintf("Crawl %s: %d jobs found, %d saved", status, len(collected), saved))

	o.updateProgress(ctx, tracker, session.ProgressUpdate{CurrentStep: ptr(string(status))})

	if err := tracker.Complete(ctx, status); err != nil {
		return nil, fmt.Errorf("failed to finalize session: %w", err)
	}

	snap, err := tracker.Snapshot()
	if err != nil {
		return nil, err
	}
	return &Summary{
		SessionID: snap.SessionID,
		Status:    snap.Status,
		JobsFound: snap.Statistics.TotalJobsFound,
		JobsSaved: snap.Statistics.JobsSaved,
		Sources:   counts,
		Errors:    len(snap.Errors),
		Duration:  snap.Duration(),
	}, nil
}

// recordError isolates a per-source failure: logged and recorded, never
// propagated.
func (o *Orchestrator) recordError(ctx context.Context, tracker *session.Tracker, source string, err error) {
	o.logger.Warn("Source failed", "source", source, "error", err)
	if addErr := tracker.AddError(ctx, source, err); addErr != nil {
		o.logger.Warn("Failed to record error", "error", addErr)
	}
}

func (o *Orchestrator) notify(
	ctx context.Context,
	tracker *session.Tracker,
	level domain.NotificationLevel,
	message string,
) {
	if err := tracker.AddNotification(ctx, level, message); err != nil {
		o.logger.Warn("Failed to record notification", "error", err)
	}
}

func (o *Orchestrator) updateProgress(ctx context.Context, tracker *session.Tracker, update session.ProgressUpdate) {
	if err := tracker.UpdateProgress(ctx, update); err != nil {
		o.logger.Warn("Failed to update progress", "error", err)
	}
}

func (o *Orchestrator) bumpCompaniesFetched(ctx context.Context, tracker *session.Tracker) {
	if err := tracker.UpdateStatistics(ctx, func(stats *domain.SessionStatistics) {
		stats.CompaniesFetched++
	}); err != nil {
		o.logger.Warn("Failed to update statistics", "error", err)
	}
}

// ctxSleep pauses for d or until the context is done.
func ctxSleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func ptr[T any](v T) *T {
	return &v
}
