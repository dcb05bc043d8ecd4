package util

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Selection
}

func TestFindJobPostingInGraph(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{"@type":"Organization","name":"ignored"}</script>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"WebPage","name":"x"},
  {"@type":["JobPosting"],
   "title":"  Senior Go Engineer ",
   "description":"<p>Build &amp; run services.</p><ul><li>Go</li></ul>",
   "datePosted":"2026-01-02",
   "validThrough":"2026-02-01T00:00:00Z",
   "jobLocationType":"TELECOMMUTE",
   "hiringOrganization":{"@type":"Organization","name":"Acme Corp"},
   "jobLocation":[{"address":{"addressLocality":"Austin","addressRegion":"TX","addressCountry":"US"}}],
   "baseSalary":{"currency":"USD","value":{"minValue":100000,"maxValue":150000,"unitText":"YEAR"}}}
]}
</script></head><body></body></html>`

	p, ok := FindJobPosting(docFrom(t, html))
	require.True(t, ok)
	assert.Equal(t, "Senior Go Engineer", p.Title)
	assert.Equal(t, "Acme Corp", p.Company)
	assert.Equal(t, "Austin, TX, US", p.Location)
	assert.Equal(t, "Build & run services.\n\nGo", p.Description)
	assert.True(t, p.Remote)
	assert.Equal(t, "USD 100000-150000 / year", p.Salary)
	require.NotNil(t, p.ValidThrough)
	assert.True(t, p.ValidThrough.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFindJobPostingArrayAndStringOrg(t *testing.T) {
	html := `<script type="application/ld+json">[{"@type":"BreadcrumbList"},{"@type":"JobPosting","title":"SRE","hiringOrganization":"Globex"}]</script>`
	p, ok := FindJobPosting(docFrom(t, html))
	require.True(t, ok)
	assert.Equal(t, "SRE", p.Title)
	assert.Equal(t, "Globex", p.Company)
	assert.Nil(t, p.ValidThrough)
}

func TestFindJobPostingMissingOrBroken(t *testing.T) {
	_, ok := FindJobPosting(docFrom(t, `<script type="application/ld+json">{not json</script>`))
	assert.False(t, ok)

	_, ok = FindJobPosting(docFrom(t, `<p>no structured data</p>`))
	assert.False(t, ok)
}

func TestParseLooseTime(t *testing.T) {
	for _, s := range []string{"2026-03-04", "2026-03-04T10:00", "2026-03-04 10:00:00", "2026-03-04T10:00:00+02:00"} {
		_, ok := ParseLooseTime(s)
		assert.True(t, ok, s)
	}
	_, ok := ParseLooseTime("next tuesday")
	assert.False(t, ok)
}

func TestNilHostLimiterNeverWaits(t *testing.T) {
	var hl *HostLimiter
	assert.Nil(t, NewHostLimiter(0, 5))
	assert.NoError(t, hl.WaitURL(context.Background(), "https://example.com"))
}

func TestHostLimiterHonorsContext(t *testing.T) {
	hl := NewHostLimiter(0.001, 1)
	require.NotNil(t, hl)
	require.NoError(t, hl.WaitURL(context.Background(), "https://a.example.com/x"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, hl.WaitURL(ctx, "https://a.example.com/y"))

	// separate host has its own bucket
	assert.NoError(t, hl.WaitURL(context.Background(), "https://b.example.com/"))
}
