package indeed

import (
	"testing"

	"jobharvest-engine/internal/scrape/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsHTML = `<html><body>
<div id="mosaic-jobResults">
  <div class="job_seen_beacon">
    <h2 class="jobTitle"><a data-jk="abc123" href="/rc/clk?jk=abc123"><span title="Go Developer">Go Developer</span></a></h2>
    <span data-testid="company-name">Initech</span>
    <div data-testid="text-location">Remote</div>
    <div class="salary-snippet-container">$120,000 a year</div>
  </div>
  <div class="job_seen_beacon">
    <h2 class="jobTitle"><a href="/rc/clk?jk=def456&from=serp"><span title="SRE">SRE</span></a></h2>
    <span data-testid="company-name">Hooli</span>
    <div data-testid="text-location">Chicago, IL</div>
  </div>
  <div class="job_seen_beacon"><h2 class="jobTitle">No key</h2></div>
</div>
<div id="jobDescriptionText"><p>Write Go services.</p></div>
<a data-testid="pagination-page-next" href="/jobs?q=go&start=10">Next</a>
</body></html>`

func resultsPage(t *testing.T, raw string) *types.Page {
	t.Helper()
	p, err := types.NewPage(raw, resultsHTML)
	require.NoError(t, err)
	return p
}

func TestScanListing(t *testing.T) {
	recs := New().ScanListing(resultsPage(t, "https://www.indeed.com/jobs?q=go&vjk=abc123"))
	require.Len(t, recs, 2)

	assert.Equal(t, "Go Developer", recs[0].Title)
	assert.Equal(t, "Initech", recs[0].Company)
	assert.Equal(t, "https://www.indeed.com/viewjob?jk=abc123", recs[0].URL)
	assert.Equal(t, "$120,000 a year", recs[0].Salary)
	assert.True(t, recs[0].IsRemote)

	assert.Equal(t, "https://www.indeed.com/viewjob?jk=def456", recs[1].URL)
	assert.Equal(t, "Chicago, IL", recs[1].Location)
}

func TestExtractDetail(t *testing.T) {
	d, ok := New().ExtractDetail(resultsPage(t, "https://www.indeed.com/jobs?q=go&vjk=abc123"))
	require.True(t, ok)
	assert.Equal(t, "https://www.indeed.com/viewjob?jk=abc123", d.URL)
	assert.Equal(t, "Write Go services.", d.Description)

	_, ok = New().ExtractDetail(resultsPage(t, "https://www.indeed.com/jobs?q=go"))
	assert.False(t, ok)
}

func TestNextPageAndParam(t *testing.T) {
	next, ok := New().NextPageLink(resultsPage(t, "https://www.indeed.com/jobs?q=go"))
	require.True(t, ok)
	assert.Equal(t, "https://www.indeed.com/jobs?q=go&start=10", next)
	assert.Equal(t, "start", New().PageParam().Name)
	assert.Equal(t, 10, New().PageParam().Step)
}

func TestNormalizeURL(t *testing.T) {
	a := New()
	assert.Equal(t, "https://www.indeed.com/viewjob?jk=xyz", a.NormalizeURL("https://www.indeed.com/rc/clk?jk=xyz&from=serp"))
	assert.Equal(t, "https://uk.indeed.com/viewjob?jk=q1", a.NormalizeURL("https://UK.indeed.com/jobs?q=go&vjk=q1"))
	assert.Equal(t, "https://www.indeed.com/jobs", a.NormalizeURL("https://www.indeed.com/jobs/?q=go"))
}
