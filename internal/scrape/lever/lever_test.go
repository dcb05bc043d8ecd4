package lever

import (
	"testing"

	"jobharvest-engine/internal/scrape/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listHTML = `<html><body>
<div class="postings-group">
  <div class="posting">
    <a class="posting-title" href="https://jobs.lever.co/acme/0b5e8f4c-1234-4abc-9def-0123456789ab">
      <h5 data-qa="posting-name">Staff Engineer</h5>
      <div class="posting-categories">
        <span class="sort-by-location location">Berlin</span>
        <span class="workplaceTypes">Remote</span>
      </div>
    </a>
  </div>
  <div class="posting">
    <a class="posting-title" href="https://jobs.lever.co/acme/not-a-posting"><h5>Broken</h5></a>
  </div>
</div>
</body></html>`

func TestScanList(t *testing.T) {
	p, err := types.NewPage("https://jobs.lever.co/acme", listHTML)
	require.NoError(t, err)

	recs := New().ScanListing(p)
	require.Len(t, recs, 1)
	assert.Equal(t, "Staff Engineer", recs[0].Title)
	assert.Equal(t, "acme", recs[0].Company)
	assert.Equal(t, "Berlin", recs[0].Location)
	assert.Equal(t, "https://jobs.lever.co/acme/0b5e8f4c-1234-4abc-9def-0123456789ab", recs[0].URL)
	assert.True(t, recs[0].IsRemote)
}

func TestNormalizeURLDropsApply(t *testing.T) {
	assert.Equal(t,
		"https://jobs.lever.co/acme/0b5e8f4c-1234-4abc-9def-0123456789ab",
		New().NormalizeURL("https://jobs.lever.co/acme/0b5e8f4c-1234-4abc-9def-0123456789ab/apply?lever-source=x"))
}

func TestNoPagination(t *testing.T) {
	assert.Equal(t, "", New().PageParam().Name)
}
