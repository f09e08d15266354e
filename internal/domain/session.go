package domain

import (
	"time"
)

// SessionStatus is the lifecycle state of a crawl session.
type SessionStatus string

const (
	// SessionStatusRunning is the initial state of every session.
	SessionStatusRunning SessionStatus = "running"
	// SessionStatusCompleted marks a session that finished normally.
	SessionStatusCompleted SessionStatus = "completed"
	// SessionStatusFailed marks a session aborted by an unhandled error.
	SessionStatusFailed SessionStatus = "failed"
	// SessionStatusStopped marks a session cancelled by a stop request.
	SessionStatusStopped SessionStatus = "stopped"
)

// IsTerminal reports whether the status admits no further transitions.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed || s == SessionStatusStopped
}

// NotificationLevel classifies session activity-feed entries.
type NotificationLevel string

// Notification levels.
const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// SessionConfig is the immutable configuration snapshot taken when a crawl
// session is created.
type SessionConfig struct {
	Sources     []string `json:"sources"`
	Companies   []string `json:"companies"`
	SearchTerms []string `json:"search_terms"`
	Locations   []string `json:"locations"`
	MaxJobs     int      `json:"max_jobs"`
	Filters     JSONBMap `json:"filters"`
}

// SessionProgress is the live progress snapshot polled by UIs mid-run.
type SessionProgress struct {
	CurrentStep    string `json:"current_step"`
	StepsCompleted int    `json:"steps_completed"`
	TotalSteps     int    `json:"total_steps"`
	CurrentSource  string `json:"current_source"`
	CurrentCompany string `json:"current_company"`
}

// JobsByType is the employment-type breakdown inside session statistics.
type JobsByType struct {
	Remote   int `json:"remote"`
	FullTime int `json:"full_time"`
	PartTime int `json:"part_time"`
	Contract int `json:"contract"`
}

// SessionStatistics aggregates counts for one crawl run. TotalJobsFound is
// kept equal to the length of the session's result list.
type SessionStatistics struct {
	TotalJobsFound   int        `json:"total_jobs_found"`
	JobsSaved        int        `json:"jobs_saved"`
	CompaniesFetched int        `json:"companies_fetched"`
	TitlesFetched    int        `json:"titles_fetched"`
	ExecutionTime    int        `json:"execution_time"`
	JobsByType       JobsByType `json:"jobs_by_type"`
}

// ResultRef is a lightweight reference to one extracted job, appended to the
// session's ordered result list. The full payload lives in the job store.
type ResultRef struct {
	JobID     string    `json:"job_id"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	Location  string    `json:"location"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SessionError records one per-source failure without aborting the run.
type SessionError struct {
	Source    string    `json:"source"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionNotification is one entry in the human-readable activity feed.
type SessionNotification struct {
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
}

// CrawlSession is the persisted, mutable record of one crawl execution.
type CrawlSession struct {
	SessionID       string        `json:"session_id"`
	CrawlerInstance int           `json:"crawler_instance"`
	Status          SessionStatus `json:"status"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         *time.Time    `json:"end_time,omitempty"`

	Configuration SessionConfig     `json:"configuration"`
	Progress      SessionProgress   `json:"progress"`
	Statistics    SessionStatistics `json:"statistics"`

	Results       []ResultRef           `json:"results"`
	Errors        []SessionError        `json:"errors"`
	Notifications []SessionNotification `json:"notifications"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Duration returns the elapsed session time: EndTime minus StartTime once
// finished, otherwise time since start.
func (s *CrawlSession) Duration() time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}
