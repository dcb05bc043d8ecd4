package util

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeJobURL(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		keep []string
		want string
	}{
		{
			name: "keeps job id param and drops the rest",
			raw:  "HTTPS://WWW.LinkedIn.com/jobs/search/?currentJobId=123&utm_source=x&keywords=go#frag",
			keep: []string{"currentJobId"},
			want: "https://www.linkedin.com/jobs/search?currentJobId=123",
		},
		{
			name: "no keep params drops the query",
			raw:  "https://boards.greenhouse.io/acme/jobs/4001/?gh_src=abc",
			want: "https://boards.greenhouse.io/acme/jobs/4001",
		},
		{
			name: "tracking params are never kept",
			raw:  "https://example.com/job?utm_campaign=a&id=7",
			keep: []string{"utm_campaign", "id"},
			want: "https://example.com/job?id=7",
		},
		{
			name: "relative input is returned trimmed",
			raw:  "  /jobs/view/1  ",
			want: "/jobs/view/1",
		},
		{name: "empty", raw: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeJobURL(tc.raw, tc.keep...))
		})
	}
}

func TestSameURL(t *testing.T) {
	assert.True(t, SameURL("https://www.indeed.com/viewjob?jk=abc&from=serp", "https://WWW.indeed.com/viewjob/?jk=abc", "jk"))
	assert.False(t, SameURL("https://www.indeed.com/viewjob?jk=abc", "https://www.indeed.com/viewjob?jk=def", "jk"))
}

func TestNextPageURL(t *testing.T) {
	offset := PageParam{Name: "start", Step: 25}
	u, _ := url.Parse("https://www.linkedin.com/jobs/search?keywords=go")

	next, ok := NextPageURL(u, offset)
	require.True(t, ok)
	assert.Equal(t, "https://www.linkedin.com/jobs/search?keywords=go&start=25", next)

	u2, _ := url.Parse(next)
	next, ok = NextPageURL(u2, offset)
	require.True(t, ok)
	assert.Equal(t, "https://www.linkedin.com/jobs/search?keywords=go&start=50", next)

	page := PageParam{Name: "page", Step: 1, Start: 1}
	u3, _ := url.Parse("https://boards.greenhouse.io/acme#top")
	next, ok = NextPageURL(u3, page)
	require.True(t, ok)
	assert.Equal(t, "https://boards.greenhouse.io/acme?page=2", next)

	bad, _ := url.Parse("https://example.com/?page=abc")
	_, ok = NextPageURL(bad, page)
	assert.False(t, ok)

	_, ok = NextPageURL(u, PageParam{})
	assert.False(t, ok)
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://www.indeed.com/jobs?q=go")

	got, ok := ResolveURL(base, "/viewjob?jk=1")
	require.True(t, ok)
	assert.Equal(t, "https://www.indeed.com/viewjob?jk=1", got)

	for _, href := range []string{"", "#", "javascript:void(0)"} {
		_, ok := ResolveURL(base, href)
		assert.False(t, ok, href)
	}

	_, ok = ResolveURL(nil, "/relative")
	assert.False(t, ok)
}

func TestURLKeyKeepsNonTrackingParams(t *testing.T) {
	assert.Equal(t,
		"https://x.com/view?from=serp&jk=abc",
		URLKey("https://X.com/view/?jk=abc&utm_source=y&from=serp"),
	)
	assert.Equal(t, URLKey("https://x.com/a?b=1&a=2"), URLKey("https://x.com/a?a=2&b=1"))
}

func TestURLIsTooGeneric(t *testing.T) {
	assert.True(t, URLIsTooGeneric("https://www.linkedin.com/jobs/alerts?x=1"))
	assert.False(t, URLIsTooGeneric("https://www.linkedin.com/jobs/view/42"))
}
