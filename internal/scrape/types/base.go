package types

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
)

// DefaultUnavailablePhrases are matched after folding, so case and accents
// do not matter.
var DefaultUnavailablePhrases = []string{
	"no longer accepting applications",
	"no longer accepting",
	"this job is no longer available",
	"this job has expired",
	"job has expired",
	"this position has been filled",
	"position has been filled",
	"this job posting has been removed",
	"the job you are looking for is no longer",
	"this posting is closed",
	"job not found",
	"this job is closed",
	"applications are closed",
}

var numericSegment = regexp.MustCompile(`\d{4,}`)

// Base supplies the behaviour most sites share. Site adapters embed it and
// override what differs.
type Base struct {
	SiteName string
	Hosts    []string
	// Keep lists the query params that identify a job, e.g. "currentJobId".
	Keep    []string
	Param   util.PageParam
	Phrases []string
	// NextSelectors are tried in order for the "next page" control.
	NextSelectors []string
	// DetailSelectors locate the description container.
	DetailSelectors []string
}

func (b Base) Name() string { return b.SiteName }

func (b Base) Matches(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range b.Hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (b Base) ScanListing(*Page) []domain.JobRecord { return nil }

// ExtractDetail falls back to the JSON-LD posting and then DetailSelectors.
func (b Base) ExtractDetail(p *Page) (Detail, bool) {
	if p == nil || p.Doc == nil {
		return Detail{}, false
	}
	d := Detail{URL: b.NormalizeURL(p.Href())}
	if desc := util.FirstBlock(p.Doc.Selection, b.DetailSelectors...); desc != "" {
		d.Description = desc
	}
	if jp, ok := util.FindJobPosting(p.Doc.Selection); ok {
		if d.Description == "" {
			d.Description = jp.Description
		}
		d.Company = jp.Company
	}
	if d.Description == "" {
		return Detail{}, false
	}
	d.Description = util.Truncate(d.Description, domain.MaxDescriptionLen)
	return d, true
}

// CurrentItemID prefers the first Keep param, then the last long numeric run
// in the path.
func (b Base) CurrentItemID(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	for _, k := range b.Keep {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	ids := numericSegment.FindAllString(u.Path, -1)
	if len(ids) > 0 {
		return ids[len(ids)-1]
	}
	return ""
}

func (b Base) IsUnavailableText(p *Page) (string, bool) {
	phrases := b.Phrases
	if len(phrases) == 0 {
		phrases = DefaultUnavailablePhrases
	}
	return util.ContainsAnyFolded(p.Text(), phrases)
}

func (b Base) ExpiresAt(p *Page) (time.Time, bool) {
	if p == nil || p.Doc == nil {
		return time.Time{}, false
	}
	jp, ok := util.FindJobPosting(p.Doc.Selection)
	if !ok || jp.ValidThrough == nil {
		return time.Time{}, false
	}
	return *jp.ValidThrough, true
}

func (b Base) NextPageLink(p *Page) (string, bool) {
	if p == nil || p.Doc == nil {
		return "", false
	}
	sels := b.NextSelectors
	if len(sels) == 0 {
		sels = []string{`a[rel="next"]`, `link[rel="next"]`, `a[aria-label="Next"]`, `a[aria-label="Next Page"]`}
	}
	for _, sel := range sels {
		var href string
		p.Doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if _, disabled := s.Attr("disabled"); disabled {
				return true
			}
			if v, ok := s.Attr("aria-disabled"); ok && v == "true" {
				return true
			}
			if h, ok := s.Attr("href"); ok {
				href = h
				return false
			}
			return true
		})
		if next, ok := util.ResolveURL(p.URL, href); ok && !samePage(p.URL, next) {
			return next, true
		}
	}
	return "", false
}

// samePage compares with every query key kept, so two result pages that
// differ only by offset are different pages.
func samePage(cur *url.URL, next string) bool {
	n, err := url.Parse(next)
	if err != nil || cur == nil {
		return false
	}
	var keys []string
	for k := range cur.Query() {
		keys = append(keys, k)
	}
	for k := range n.Query() {
		keys = append(keys, k)
	}
	return util.SameURL(cur.String(), next, keys...)
}

func (b Base) PageParam() util.PageParam { return b.Param }

func (b Base) NormalizeURL(raw string) string {
	return util.NormalizeJobURL(raw, b.Keep...)
}

// JobPathID is the last path element, used by sites whose job URLs end in an id.
func JobPathID(u *url.URL) string {
	if u == nil {
		return ""
	}
	return path.Base(strings.TrimRight(u.Path, "/"))
}
