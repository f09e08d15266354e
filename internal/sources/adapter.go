// Package sources contains the site adapters that scrape external job
// boards into raw job records. Adapters are best-effort: a total failure
// returns an empty list plus an error for the caller to log, never a panic
// and never a partial crash of the crawl run.
package sources

import (
	"context"
	"time"

	"github.com/hirewire/jobcrawl/internal/domain"
)

// Canonical source names.
const (
	SourceRemoteOK   = "remoteok"
	SourceHackerNews = "hackernews"
	SourceIndeed     = "indeed"
	SourceLinkedIn   = "linkedin"
	SourceWellfound  = "wellfound"
	SourceGeneric    = "generic"
)

// Per-source request delays. Sites with stricter anti-bot postures get
// longer pauses between requests.
const (
	delayRemoteOK   = 1 * time.Second
	delayHackerNews = 1 * time.Second
	delayIndeed     = 3 * time.Second
	delayLinkedIn   = 4 * time.Second
	delayWellfound  = 3 * time.Second
	delayGeneric    = 2 * time.Second
)

// defaultHTTPTimeout bounds one API request made by an adapter.
const defaultHTTPTimeout = 30 * time.Second

// Adapter scrapes one external source for raw job records.
type Adapter interface {
	// Name returns the canonical lowercase source name.
	Name() string
	// Delay is the pause the orchestrator applies after calling this
	// adapter, before moving to the next source combination.
	Delay() time.Duration
	// Scrape fetches up to limit raw jobs for a search term and location.
	// On total failure it returns an empty slice and the error.
	Scrape(ctx context.Context, term, location string, limit int) ([]domain.RawJob, error)
}

// Registry resolves configured source names to adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Register adds or replaces an adapter.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Get returns the adapter for a source name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered source names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
