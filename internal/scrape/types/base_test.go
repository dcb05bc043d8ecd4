package types

import (
	"net/url"
	"testing"
	"time"

	"jobharvest-engine/internal/scrape/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPage(t *testing.T, raw, html string) *Page {
	t.Helper()
	p, err := NewPage(raw, html)
	require.NoError(t, err)
	return p
}

func testBase() Base {
	return Base{
		SiteName:        "Example",
		Hosts:           []string{"example.com"},
		Keep:            []string{"id"},
		Param:           util.PageParam{Name: "page", Step: 1, Start: 1},
		DetailSelectors: []string{".description"},
	}
}

func TestPageTextSkipsScripts(t *testing.T) {
	p := mustPage(t, "https://example.com/", `<body><script>var hidden = 1;</script><p>Hello</p>  <p>world</p></body>`)
	assert.Equal(t, "Hello world", p.Text())
	assert.Equal(t, "https://example.com/", p.Href())

	var nilPage *Page
	assert.Equal(t, "", nilPage.Text())
}

func TestBaseMatchesSubdomains(t *testing.T) {
	b := testBase()
	for raw, want := range map[string]bool{
		"https://example.com/jobs":     true,
		"https://www.example.com/jobs": true,
		"https://notexample.com/jobs":  false,
		"https://example.org/jobs":     false,
	} {
		u, _ := url.Parse(raw)
		assert.Equal(t, want, b.Matches(u), raw)
	}
	assert.False(t, b.Matches(nil))
}

func TestBaseCurrentItemID(t *testing.T) {
	b := testBase()
	u, _ := url.Parse("https://example.com/jobs/12345/apply?id=abc")
	assert.Equal(t, "abc", b.CurrentItemID(u))

	u, _ = url.Parse("https://example.com/careers/2024/jobs/987654")
	assert.Equal(t, "987654", b.CurrentItemID(u))

	u, _ = url.Parse("https://example.com/careers")
	assert.Equal(t, "", b.CurrentItemID(u))
}

func TestBaseExtractDetail(t *testing.T) {
	b := testBase()
	p := mustPage(t, "https://example.com/jobs/1?id=9&utm_source=x", `
<div class="description"><p>Design and run the platform.</p></div>
<script type="application/ld+json">{"@type":"JobPosting","title":"x","hiringOrganization":{"name":"Acme"}}</script>`)

	d, ok := b.ExtractDetail(p)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/jobs/1?id=9", d.URL)
	assert.Equal(t, "Design and run the platform.", d.Description)
	assert.Equal(t, "Acme", d.Company)

	_, ok = b.ExtractDetail(mustPage(t, "https://example.com/jobs", `<p>search results</p>`))
	assert.False(t, ok)
}

func TestBaseIsUnavailableText(t *testing.T) {
	b := testBase()
	reason, ok := b.IsUnavailableText(mustPage(t, "https://example.com/jobs/1", `<h2>No longer accepting applications</h2>`))
	require.True(t, ok)
	assert.Equal(t, "no longer accepting applications", reason)

	_, ok = b.IsUnavailableText(mustPage(t, "https://example.com/jobs/1", `<button>Apply</button>`))
	assert.False(t, ok)
}

func TestBaseExpiresAt(t *testing.T) {
	b := testBase()
	at, ok := b.ExpiresAt(mustPage(t, "https://example.com/jobs/1",
		`<script type="application/ld+json">{"@type":"JobPosting","validThrough":"2025-01-31"}</script>`))
	require.True(t, ok)
	assert.True(t, at.Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)))

	_, ok = b.ExpiresAt(mustPage(t, "https://example.com/jobs/1", `<p>nothing</p>`))
	assert.False(t, ok)
}

func TestBaseNextPageLink(t *testing.T) {
	b := testBase()

	next, ok := b.NextPageLink(mustPage(t, "https://example.com/jobs?page=2",
		`<a rel="next" href="/jobs?page=3">Next</a>`))
	require.True(t, ok)
	assert.Equal(t, "https://example.com/jobs?page=3", next)

	_, ok = b.NextPageLink(mustPage(t, "https://example.com/jobs?page=2",
		`<a rel="next" aria-disabled="true" href="/jobs?page=3">Next</a>`))
	assert.False(t, ok, "disabled control")

	_, ok = b.NextPageLink(mustPage(t, "https://example.com/jobs?page=2",
		`<a rel="next" href="/jobs/?page=2#top">Next</a>`))
	assert.False(t, ok, "link to the current page")
}

func TestJobPathID(t *testing.T) {
	u, _ := url.Parse("https://example.com/jobs/abc-123/")
	assert.Equal(t, "abc-123", JobPathID(u))
	assert.Equal(t, "", JobPathID(nil))
}
