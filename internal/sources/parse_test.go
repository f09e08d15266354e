package sources_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/jobcrawl/internal/sources"
)

const indeedHTML = `<html><body>
<div data-jk="abc123" class="job_seen_beacon">
  <h2 class="jobTitle"><a href="/viewjob?jk=abc123">Senior Go Engineer</a></h2>
  <span data-testid="company-name">Acme</span>
  <div data-testid="job-location">Austin, TX</div>
  <div data-testid="attribute_snippet_testid">$130,000 - $170,000 a year</div>
  <div data-testid="job-snippet">Build backend services in Go.</div>
</div>
<div class="job_seen_beacon">
  <h2><a href="/viewjob?jk=def456">Platform Engineer</a></h2>
  <span class="companyName">Beta Corp</span>
  <div class="companyLocation">Remote</div>
  <div class="summary">Own our Kubernetes platform.</div>
</div>
<div class="job_seen_beacon"><span>no title here</span></div>
</body></html>`

func TestParseIndeedJobs_SelectorFallbacks(t *testing.T) {
	t.Parallel()

	jobs, err := sources.ParseIndeedJobs(indeedHTML, 10)
	require.NoError(t, err)

	require.Len(t, jobs, 2)

	assert.Equal(t, "Senior Go Engineer", jobs[0].Title)
	assert.Equal(t, "Acme", jobs[0].Company)
	assert.Equal(t, "Austin, TX", jobs[0].Location)
	assert.Equal(t, "$130,000 - $170,000 a year", jobs[0].Salary)
	assert.Equal(t, "Build backend services in Go.", jobs[0].Description)
	// data-jk cards resolve to the canonical view URL.
	assert.Equal(t, "https://www.indeed.com/viewjob?jk=abc123", jobs[0].SourceURL)

	// Second card has no data-jk and uses the fallback selectors.
	assert.Equal(t, "Platform Engineer", jobs[1].Title)
	assert.Equal(t, "Beta Corp", jobs[1].Company)
	assert.Equal(t, "Remote", jobs[1].Location)
	assert.Equal(t, "Own our Kubernetes platform.", jobs[1].Description)
	assert.Equal(t, "https://www.indeed.com/viewjob?jk=def456", jobs[1].SourceURL)
}

func TestParseIndeedJobs_Limit(t *testing.T) {
	t.Parallel()

	jobs, err := sources.ParseIndeedJobs(indeedHTML, 1)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

const linkedInHTML = `<html><body><ul class="jobs-search__results-list">
<li>
  <div class="base-card">
    <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/111"></a>
    <h3 class="base-search-card__title">Backend Engineer</h3>
    <h4 class="base-search-card__subtitle">Gamma Inc</h4>
    <span class="job-search-card__location">Berlin, Germany</span>
    <time datetime="2026-02-01">1 day ago</time>
  </div>
</li>
<li>
  <div class="job-search-card">
    <a href="/jobs/view/222">link</a>
    <h3 class="job-search-card__title">Data Engineer</h3>
    <h4 class="job-search-card__subtitle">Delta Ltd</h4>
    <span class="job-search-card__location">Remote</span>
    <time class="job-search-card__listdate">2 days ago</time>
  </div>
</li>
</ul></body></html>`

func TestParseLinkedInJobs_DedupesOverlappingCards(t *testing.T) {
	t.Parallel()

	jobs, err := sources.ParseLinkedInJobs(linkedInHTML, 10)
	require.NoError(t, err)

	// The li and inner card selectors overlap; each posting appears once.
	require.Len(t, jobs, 2)

	assert.Equal(t, "Backend Engineer", jobs[0].Title)
	assert.Equal(t, "Gamma Inc", jobs[0].Company)
	assert.Equal(t, "Berlin, Germany", jobs[0].Location)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/111", jobs[0].SourceURL)
	assert.Equal(t, "2026-02-01", jobs[0].DatePosted)

	assert.Equal(t, "Data Engineer", jobs[1].Title)
	// Relative hrefs are made absolute.
	assert.Equal(t, "https://www.linkedin.com/jobs/view/222", jobs[1].SourceURL)
	assert.Equal(t, "2 days ago", jobs[1].DatePosted)
}

const wellfoundHTML = `<html><body>
<div data-test="JobCard">
  <a href="/jobs/333-founding-engineer"><span data-test="JobTitle">Founding Engineer</span></a>
  <span data-test="CompanyName">Epsilon</span>
  <span data-test="JobLocation">San Francisco</span>
  <span data-test="JobSalary">$150k - $200k</span>
</div>
<div class="job-listing">
  <h3>Growth Engineer</h3>
  <h4>Zeta</h4>
  <span class="location">Remote</span>
  <a href="https://wellfound.com/jobs/444-growth-engineer">apply</a>
</div>
</body></html>`

func TestParseWellfoundJobs_SelectorFallbacks(t *testing.T) {
	t.Parallel()

	jobs, err := sources.ParseWellfoundJobs(wellfoundHTML, 10)
	require.NoError(t, err)

	require.Len(t, jobs, 2)

	assert.Equal(t, "Founding Engineer", jobs[0].Title)
	assert.Equal(t, "Epsilon", jobs[0].Company)
	assert.Equal(t, "San Francisco", jobs[0].Location)
	assert.Equal(t, "$150k - $200k", jobs[0].Salary)
	assert.Equal(t, "https://wellfound.com/jobs/333-founding-engineer", jobs[0].SourceURL)

	assert.Equal(t, "Growth Engineer", jobs[1].Title)
	assert.Equal(t, "Zeta", jobs[1].Company)
	assert.Equal(t, "https://wellfound.com/jobs/444-growth-engineer", jobs[1].SourceURL)
}
