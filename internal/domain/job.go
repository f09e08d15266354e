// Package domain provides domain models used across the application.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// WorkType describes where the work happens.
type WorkType string

const (
	// WorkTypeOnsite is the default work type.
	WorkTypeOnsite WorkType = "onsite"
	// WorkTypeRemote indicates fully remote work.
	WorkTypeRemote WorkType = "remote"
	// WorkTypeHybrid indicates mixed remote and office work.
	WorkTypeHybrid WorkType = "hybrid"
)

// Job status values.
const (
	// JobStatusOpen is the status assigned to every freshly extracted job.
	JobStatusOpen = "open"
)

// DefaultMaxApplications is the application cap assigned to extracted jobs
// unless the raw record carries its own.
const DefaultMaxApplications = 100

// CurrencySupported lists the currencies downstream consumers accept.
var CurrencySupported = []string{"USD", "INR"}

// RawJob is an unstructured bag of scraped fields as produced by a site
// adapter, before extraction.
type RawJob struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Salary      string `json:"salary"`
	SourceURL   string `json:"source_url"`
	ExternalURL string `json:"external_url"`
	DatePosted  string `json:"date_posted"`
}

// EmploymentType holds independent counters per employment bucket. Multiple
// buckets may be nonzero for one posting.
type EmploymentType struct {
	FullTime   int    `json:"full_time"`
	PartTime   int    `json:"part_time"`
	Contract   int    `json:"contract"`
	Internship int    `json:"internship"`
	Temporary  int    `json:"temporary"`
	Other      string `json:"other"`
}

// IsZero reports whether no bucket was detected.
func (e *EmploymentType) IsZero() bool {
	return e.FullTime == 0 && e.PartTime == 0 && e.Contract == 0 &&
		e.Internship == 0 && e.Temporary == 0
}

// Summary renders a human-readable breakdown such as "1 FTE, 1 Contract".
func (e *EmploymentType) Summary() string {
	var parts []string
	if e.FullTime > 0 {
		parts = append(parts, fmt.Sprintf("%d FTE", e.FullTime))
	}
	if e.Contract > 0 {
		parts = append(parts, fmt.Sprintf("%d Contract", e.Contract))
	}
	if e.PartTime > 0 {
		parts = append(parts, fmt.Sprintf("%d Part-time", e.PartTime))
	}
	if e.Internship > 0 {
		parts = append(parts, fmt.Sprintf("%d Internship", e.Internship))
	}
	if e.Temporary > 0 {
		parts = append(parts, fmt.Sprintf("%d Temporary", e.Temporary))
	}
	if len(parts) == 0 {
		return "1 FTE"
	}
	return strings.Join(parts, ", ")
}

// Main returns the single dominant employment type string for legacy
// consumers that expect one value.
func (e *EmploymentType) Main() string {
	switch {
	case e.FullTime > 0:
		return "full-time"
	case e.Contract > 0:
		return "contract"
	case e.PartTime > 0:
		return "part-time"
	case e.Internship > 0:
		return "internship"
	default:
		return "full-time"
	}
}

// Salary is a heuristically parsed compensation range. Min and Max are nil
// when no number was detected; equal when only one was.
type Salary struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency string   `json:"currency"`
}

// StructuredJob is the normalized output of the extractor and the unit of
// persistence in the job store.
type StructuredJob struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`

	EmploymentType EmploymentType `json:"employment_type"`
	Salary         Salary         `json:"salary"`

	Skills []string `json:"skills"`
	Tags   []string `json:"tags"`

	WorkType   WorkType  `json:"work_type"`
	DatePosted time.Time `json:"date_posted"`

	Source      string `json:"source"`
	SourceURL   string `json:"source_url"`
	ExternalURL string `json:"external_url"`

	Status          string   `json:"status"`
	IsActive        bool     `json:"is_active"`
	Applicants      []string `json:"applicants"`
	MaxApplications int      `json:"max_applications"`

	// Derived convenience fields for legacy consumers.
	Type               string   `json:"type"`
	WithEmploymentType string   `json:"with_employment_type"`
	CurrencySupported  []string `json:"currency_supported"`

	CrawledAt time.Time `json:"crawled_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DedupKey returns the key used to deduplicate persisted jobs across crawls:
// the source URL when present, otherwise title, company and source combined.
func (j *StructuredJob) DedupKey() string {
	if j.SourceURL != "" {
		return j.SourceURL
	}
	return j.Title + "|" + j.Company + "|" + j.Source
}
