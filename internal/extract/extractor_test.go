package extract_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/extract"
)

func newTestExtractor(t *testing.T) *extract.Extractor {
	t.Helper()
	return extract.New(nil)
}

func TestExtract_DefaultsToFullTime(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	job, err := e.Extract(domain.RawJob{
		Title:       "Software Engineer",
		Company:     "Acme",
		Description: "We build widgets with Go and Postgres.",
	}, "remoteok")
	require.NoError(t, err)

	assert.Equal(t, 1, job.EmploymentType.FullTime)
	assert.Equal(t, 0, job.EmploymentType.PartTime)
	assert.Equal(t, 0, job.EmploymentType.Contract)
	assert.Equal(t, 0, job.EmploymentType.Internship)
	assert.Equal(t, 0, job.EmploymentType.Temporary)
	assert.Equal(t, "1 FTE", job.WithEmploymentType)
}

func TestExtract_MultipleEmploymentBuckets(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	job, err := e.Extract(domain.RawJob{
		Title:       "Engineer",
		Description: "Open to full-time or contract arrangements.",
	}, "indeed")
	require.NoError(t, err)

	assert.Equal(t, 1, job.EmploymentType.FullTime)
	assert.Equal(t, 1, job.EmploymentType.Contract)
	assert.Equal(t, "1 FTE, 1 Contract", job.WithEmploymentType)
	assert.Equal(t, "full-time", job.Type)
}

func TestExtract_SingleSalaryNumber(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	job, err := e.Extract(domain.RawJob{
		Title:  "Contractor",
		Salary: "$80/hour",
	}, "remoteok")
	require.NoError(t, err)

	require.NotNil(t, job.Salary.Min)
	require.NotNil(t, job.Salary.Max)
	assert.InDelta(t, 80, *job.Salary.Min, 0.001)
	assert.InDelta(t, 80, *job.Salary.Max, 0.001)
	assert.Equal(t, "USD", job.Salary.Currency)
}

func TestExtract_SalaryRangeSortedExtremes(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	job, err := e.Extract(domain.RawJob{
		Title:  "Engineer",
		Salary: "₹1,800,000 to ₹900,000 per year",
	}, "linkedin")
	require.NoError(t, err)

	require.NotNil(t, job.Salary.Min)
	require.NotNil(t, job.Salary.Max)
	assert.InDelta(t, 900000, *job.Salary.Min, 0.001)
	assert.InDelta(t, 1800000, *job.Salary.Max, 0.001)
	assert.Equal(t, "INR", job.Salary.Currency)
}

func TestExtract_NoSalaryNumbers(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	job, err := e.Extract(domain.RawJob{
		Title:  "Engineer",
		Salary: "competitive compensation",
	}, "indeed")
	require.NoError(t, err)

	assert.Nil(t, job.Salary.Min)
	assert.Nil(t, job.Salary.Max)
	assert.Equal(t, "USD", job.Salary.Currency)
}

func TestExtract_SeniorEngineerScenario(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	job, err := e.Extract(domain.RawJob{
		Title: "Senior Software Engineer",
		Description: "We are hiring a senior engineer with 5+ years of experience. " +
			"This is a full-time position paying $120,000 to $180,000 annually.",
	}, "indeed")
	require.NoError(t, err)

	assert.Equal(t, 1, job.EmploymentType.FullTime)
	require.NotNil(t, job.Salary.Min)
	require.NotNil(t, job.Salary.Max)
	assert.InDelta(t, 120000, *job.Salary.Min, 0.001)
	assert.InDelta(t, 180000, *job.Salary.Max, 0.001)
	assert.Equal(t, "USD", job.Salary.Currency)
	assert.Equal(t, domain.WorkTypeOnsite, job.WorkType)
	assert.Contains(t, job.Tags, "Senior")
}

func TestExtract_WorkTypePrecedence(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	tests := []struct {
		name        string
		description string
		location    string
		want        domain.WorkType
	}{
		{"remote beats hybrid", "remote-first company with hybrid offices", "", domain.WorkTypeRemote},
		{"hybrid", "hybrid schedule, 2 days in office", "", domain.WorkTypeHybrid},
		{"wfh counts as remote", "wfh friendly", "", domain.WorkTypeRemote},
		{"location remote", "great team", "Remote - US", domain.WorkTypeRemote},
		{"default onsite", "great team", "Toronto, ON", domain.WorkTypeOnsite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job, err := e.Extract(domain.RawJob{
				Title:       "Engineer",
				Description: tt.description,
				Location:    tt.location,
			}, "wellfound")
			require.NoError(t, err)
			assert.Equal(t, tt.want, job.WorkType)
		})
	}
}

func TestExtract_SkillsDictionaryOrderAndCap(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	job, err := e.Extract(domain.RawJob{
		Title: "Platform Engineer",
		Description: "Stack: javascript typescript python java php ruby rust swift kotlin " +
			"react angular vue django flask mysql postgresql mongodb redis docker kubernetes",
	}, "remoteok")
	require.NoError(t, err)

	assert.Len(t, job.Skills, 15)
	// Dictionary order, not appearance order.
	assert.Equal(t, "Javascript", job.Skills[0])
	assert.Equal(t, "Python", job.Skills[1])
}

func TestExtract_FreshIDPerExtraction(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	raw := domain.RawJob{Title: "Engineer", Company: "Acme", SourceURL: "https://example.com/jobs/1"}

	first, err := e.Extract(raw, "indeed")
	require.NoError(t, err)
	second, err := e.Extract(raw, "indeed")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.DedupKey(), second.DedupKey())
}

func TestExtract_RelativeDates(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e := extract.New(nil, extract.WithClock(func() time.Time { return fixed }))

	job, err := e.Extract(domain.RawJob{
		Title:      "Engineer",
		DatePosted: "3 days ago",
	}, "indeed")
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(-3*24*time.Hour), job.DatePosted)

	job, err = e.Extract(domain.RawJob{
		Title:      "Engineer",
		DatePosted: "5 hours ago",
	}, "indeed")
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(-5*time.Hour), job.DatePosted)

	job, err = e.Extract(domain.RawJob{
		Title:      "Engineer",
		DatePosted: "not a date at all",
	}, "indeed")
	require.NoError(t, err)
	assert.Equal(t, fixed, job.DatePosted)
}

func TestExtract_AssemblyDefaults(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	job, err := e.Extract(domain.RawJob{
		Title:     "Engineer",
		SourceURL: "https://example.com/jobs/42",
	}, "RemoteOK")
	require.NoError(t, err)

	assert.Equal(t, "remoteok", job.Source)
	assert.Equal(t, domain.JobStatusOpen, job.Status)
	assert.True(t, job.IsActive)
	assert.Empty(t, job.Applicants)
	assert.Equal(t, domain.DefaultMaxApplications, job.MaxApplications)
	assert.Equal(t, []string{"USD", "INR"}, job.CurrencySupported)
	// External URL falls back to the source URL.
	assert.Equal(t, "https://example.com/jobs/42", job.ExternalURL)
}

func TestBatchExtract_IsTotal(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	raws := []domain.RawJob{
		{Title: "Good Job", Company: "Acme"},
		{}, // nothing extractable
		{Title: "Another Job", Company: "Beta"},
		{}, // nothing extractable
	}

	jobs := e.BatchExtract(raws, "indeed")

	assert.Len(t, jobs, 2)
	assert.Equal(t, "Good Job", jobs[0].Title)
	assert.Equal(t, "Another Job", jobs[1].Title)
}

func TestBatchExtract_EmptyInput(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	assert.Empty(t, e.BatchExtract(nil, "indeed"))
}

func TestExtract_CleansText(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	job, err := e.Extract(domain.RawJob{
		Title:   "  Senior\t\tEngineer  ",
		Company: "Acme © Corp",
	}, "indeed")
	require.NoError(t, err)

	assert.Equal(t, "Senior Engineer", job.Title)
	assert.Equal(t, "Acme  Corp", job.Company)
}

func TestExtract_LengthCapStaysValidUTF8(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	// Non-ASCII runes are stripped before the length cap, so the capped
	// field is ASCII-only and never ends mid-rune.
	job, err := e.Extract(domain.RawJob{
		Title:       "Café Engineer",
		Description: strings.Repeat("héllo wörld ", 1200),
	}, "indeed")
	require.NoError(t, err)

	assert.Equal(t, "Caf Engineer", job.Title)
	assert.Len(t, job.Description, 10000)
	assert.True(t, utf8.ValidString(job.Description))
	for _, r := range job.Description {
		if r >= utf8.RuneSelf {
			t.Fatalf("unexpected non-ASCII rune %q in cleaned text", r)
		}
	}
}
