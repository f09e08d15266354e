// Package extract converts raw scraped job records into the normalized
// structured schema using keyword and regex heuristics. The heuristics are
// deliberately simple and lossy (salary range is the sorted extremes of all
// numbers found, not a true range parse); they are preserved as documented,
// testable rules rather than corrected.
package extract

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/logger"
)

const (
	// maxTextLength caps cleaned text fields.
	maxTextLength = 10000
	// maxSkills caps the extracted skills list.
	maxSkills = 15
	// maxTags caps the extracted tags list.
	maxTags = 10
	// defaultCurrency is assumed when no symbol or code is recognized.
	defaultCurrency = "USD"
)

// ErrEmptyRawJob is returned when a raw record carries no usable fields.
var ErrEmptyRawJob = errors.New("extract: empty raw job")

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	specialRe    = regexp.MustCompile(`[^\w\s\-.,!?()]`)
	numberRe     = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
	// currencyAmountRe narrows number extraction to amounts attached to a
	// currency symbol, so "5+ years ... $120,000" does not pull 5 into the
	// salary range.
	currencyAmountRe = regexp.MustCompile(`[$₹€£¥]\s*[\d,]+(?:\.\d+)?`)
	digitsRe         = regexp.MustCompile(`\d+`)
	leadingNonDigit  = regexp.MustCompile(`^[^\d]+`)
)

// dateLayouts are tried in order when parsing a posting date.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Extractor derives structured jobs from raw scrape output.
type Extractor struct {
	logger logger.Interface
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the extractor's time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// New creates an Extractor.
func New(log logger.Interface, opts ...Option) *Extractor {
	if log == nil {
		log = logger.NewNoOp()
	}

	e := &Extractor{
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract converts one raw job into a structured job. Every extraction gets
// a fresh unique ID; deduplication happens downstream at persistence time.
func (e *Extractor) Extract(raw domain.RawJob, source string) (*domain.StructuredJob, error) {
	title := cleanText(raw.Title)
	company := cleanText(raw.Company)
	location := cleanText(raw.Location)
	description := cleanText(raw.Description)

	if title == "" && company == "" && description == "" {
		return nil, ErrEmptyRawJob
	}

	employment := extractEmploymentType(description, title)

	// Salary is parsed from the raw text so currency symbols survive; the
	// cleaned fields have them stripped.
	salaryText := raw.Salary
	if salaryText == "" {
		salaryText = raw.Description
	}
	salary := extractSalary(salaryText)

	externalURL := raw.ExternalURL
	if externalURL == "" {
		externalURL = raw.SourceURL
	}

	now := e.now()

	job := &domain.StructuredJob{
		ID:          uuid.NewString(),
		Title:       title,
		Company:     company,
		Location:    location,
		Description: description,

		EmploymentType: employment,
		Salary:         salary,

		Skills: extractSkills(description, title),
		Tags:   extractTags(description, title, company),

		WorkType:   extractWorkType(description, location),
		DatePosted: e.parseDate(raw.DatePosted),

		Source:      strings.ToLower(source),
		SourceURL:   raw.SourceURL,
		ExternalURL: externalURL,

		Status:          domain.JobStatusOpen,
		IsActive:        true,
		Applicants:      []string{},
		MaxApplications: domain.DefaultMaxApplications,

		Type:               employment.Main(),
		WithEmploymentType: employment.Summary(),
		CurrencySupported:  domain.CurrencySupported,

		CrawledAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return job, nil
}

// BatchExtract converts a list of raw jobs, skipping and logging individual
// failures. It never fails the batch.
func (e *Extractor) BatchExtract(raws []domain.RawJob, source string) []*domain.StructuredJob {
	jobs := make([]*domain.StructuredJob, 0, len(raws))

	for _, raw := range raws {
		job, err := e.Extract(raw, source)
		if err != nil {
			e.logger.Warn("Skipping unextractable job",
				"title", raw.Title,
				"source", source,
				"error", err,
			)
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs
}

// cleanText trims, collapses whitespace, strips special characters and caps
// the length of a text field.
func cleanText(text string) string {
	text = strings.TrimSpace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = specialRe.ReplaceAllString(text, "")
	if len(text) > maxTextLength {
		text = text[:maxTextLength]
	}
	return text
}

// extractEmploymentType scans description+title against the employment
// keyword buckets. Defaults to fullTime=1 when nothing matched.
func extractEmploymentType(description, title string) domain.EmploymentType {
	text := strings.ToLower(description + " " + title)

	var et domain.EmploymentType
	for _, bucket := range employmentBuckets {
		if !containsAny(text, bucket.keywords) {
			continue
		}
		switch bucket.name {
		case "fullTime":
			et.FullTime = 1
		case "partTime":
			et.PartTime = 1
		case "contract":
			et.Contract = 1
		case "internship":
			et.Internship = 1
		case "temporary":
			et.Temporary = 1
		}
	}

	if et.IsZero() {
		et.FullTime = 1
	}
	return et
}

// extractSalary parses compensation text. Zero numbers found means a null
// range; one number means min == max; two or more means the sorted extremes.
func extractSalary(salaryText string) domain.Salary {
	if salaryText == "" {
		return domain.Salary{Currency: defaultCurrency}
	}

	text := strings.ToLower(salaryText)

	currency := defaultCurrency
	for _, entry := range currencyTable {
		if strings.Contains(text, entry.symbol) {
			currency = entry.currency
			break
		}
	}

	// Prefer amounts attached to a currency symbol; fall back to every
	// number in the text when none are.
	tokens := currencyAmountRe.FindAllString(text, -1)
	for i, token := range tokens {
		tokens[i] = leadingNonDigit.ReplaceAllString(token, "")
	}
	if len(tokens) == 0 {
		tokens = numberRe.FindAllString(text, -1)
	}

	var numbers []float64
	for _, token := range tokens {
		n, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64)
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}

	switch len(numbers) {
	case 0:
		return domain.Salary{Currency: currency}
	case 1:
		return domain.Salary{Min: &numbers[0], Max: &numbers[0], Currency: currency}
	default:
		sort.Float64s(numbers)
		return domain.Salary{
			Min:      &numbers[0],
			Max:      &numbers[len(numbers)-1],
			Currency: currency,
		}
	}
}

// extractSkills substring-matches the technology dictionary against
// description+title, preserving dictionary order, title-cased, capped.
func extractSkills(description, title string) []string {
	text := strings.ToLower(description + " " + title)

	skills := make([]string, 0, maxSkills)
	seen := make(map[string]struct{})

	for _, skill := range skillKeywords {
		if !strings.Contains(text, skill) {
			continue
		}
		cased := titleCase(skill)
		if _, dup := seen[cased]; dup {
			continue
		}
		seen[cased] = struct{}{}
		skills = append(skills, cased)
		if len(skills) == maxSkills {
			break
		}
	}

	return skills
}

// extractTags matches the role/domain dictionary against
// description+title+company, then appends derived tags.
func extractTags(description, title, company string) []string {
	text := strings.ToLower(description + " " + title + " " + company)

	tags := make([]string, 0, maxTags)
	seen := make(map[string]struct{})

	add := func(tag string) {
		if len(tags) == maxTags {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, tag := range tagKeywords {
		if strings.Contains(text, tag) {
			add(titleCase(tag))
		}
	}

	if strings.Contains(text, "remote") {
		add("Remote")
	}
	if strings.Contains(text, "hybrid") {
		add("Hybrid")
	}
	if strings.Contains(text, "senior") {
		add("Senior")
	}
	if strings.Contains(text, "junior") || strings.Contains(text, "entry") {
		add("Entry Level")
	}

	return tags
}

// extractWorkType derives the work type from description+location with
// remote > hybrid > onsite precedence.
func extractWorkType(description, location string) domain.WorkType {
	text := strings.ToLower(description + " " + location)

	switch {
	case strings.Contains(text, "remote"):
		return domain.WorkTypeRemote
	case strings.Contains(text, "hybrid"):
		return domain.WorkTypeHybrid
	case strings.Contains(text, "work from home"), strings.Contains(text, "wfh"):
		return domain.WorkTypeRemote
	default:
		return domain.WorkTypeOnsite
	}
}

// parseDate parses a posting date string: absolute layouts first, then
// relative forms like "2 days ago", finally falling back to now.
func (e *Extractor) parseDate(dateStr string) time.Time {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return e.now()
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t
		}
	}

	lower := strings.ToLower(dateStr)
	if strings.Contains(lower, "day") {
		return e.now().Add(-time.Duration(firstNumber(lower)) * 24 * time.Hour)
	}
	if strings.Contains(lower, "hour") {
		return e.now().Add(-time.Duration(firstNumber(lower)) * time.Hour)
	}

	return e.now()
}

// firstNumber extracts the first integer in a string, or 0.
func firstNumber(s string) int {
	match := digitsRe.FindString(s)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

// containsAny reports whether text contains any of the keywords.
func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// titleCase upper-cases only the first letter, matching the dictionary's
// presentation ("node.js" becomes "Node.js").
func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
