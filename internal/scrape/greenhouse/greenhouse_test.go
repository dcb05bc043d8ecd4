package greenhouse

import (
	"net/url"
	"testing"

	"jobharvest-engine/internal/scrape/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boardHTML = `<html><body>
<span class="company-name">at Acme Inc</span>
<section class="level-0">
  <div class="opening"><a href="/acme/jobs/4001001">Site Reliability Engineer</a><span class="location">Remote</span></div>
  <div class="opening"><a href="/acme/jobs/4001002?gh_src=abc">Data Engineer</a><span class="location">New York, NY</span></div>
  <a href="/acme/jobs/4001001">View job</a>
  <a href="/acme">Home</a>
</section>
</body></html>`

const postingHTML = `<html><body>
<span class="company-name">at Acme Inc</span>
<h1 class="app-title">Site Reliability Engineer</h1>
<div class="location">Remote</div>
<div id="content"><p>Keep the lights on.</p><p>On-call rotation.</p></div>
</body></html>`

func TestScanBoard(t *testing.T) {
	p, err := types.NewPage("https://boards.greenhouse.io/acme", boardHTML)
	require.NoError(t, err)

	recs := New().ScanListing(p)
	require.Len(t, recs, 2)
	assert.Equal(t, "Site Reliability Engineer", recs[0].Title)
	assert.Equal(t, "Acme Inc", recs[0].Company)
	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/4001001", recs[0].URL)
	assert.True(t, recs[0].IsRemote)
	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/4001002", recs[1].URL)
	assert.Equal(t, "New York, NY", recs[1].Location)
}

func TestScanPostingPage(t *testing.T) {
	p, err := types.NewPage("https://boards.greenhouse.io/acme/jobs/4001001", postingHTML)
	require.NoError(t, err)

	recs := New().ScanListing(p)
	require.Len(t, recs, 1)
	assert.Equal(t, "Site Reliability Engineer", recs[0].Title)
	assert.Equal(t, "Acme Inc", recs[0].Company)
	assert.Equal(t, "Keep the lights on.\n\nOn-call rotation.", recs[0].Description)
	assert.Equal(t, "Remote", recs[0].Location)
}

func TestCurrentItemID(t *testing.T) {
	a := New()
	u, _ := url.Parse("https://boards.greenhouse.io/acme/jobs/4001001")
	assert.Equal(t, "4001001", a.CurrentItemID(u))

	u, _ = url.Parse("https://boards.greenhouse.io/embed/job_app?for=acme&gh_jid=77")
	assert.Equal(t, "77", a.CurrentItemID(u))

	u, _ = url.Parse("https://boards.greenhouse.io/acme")
	assert.Equal(t, "", a.CurrentItemID(u))
}
