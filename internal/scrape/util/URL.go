package util

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

func isTrackingParam(k string) bool {
	lk := strings.ToLower(k)
	return strings.HasPrefix(lk, "utm_") ||
		lk == "gclid" || lk == "fbclid" || lk == "msclkid" ||
		lk == "mc_cid" || lk == "mc_eid" ||
		lk == "mkt_tok" || lk == "trk" || lk == "refid" || lk == "trackingid"
}

// NormalizeJobURL collapses the many URLs a posting can be reached by into one
// dedup key: lower-case scheme and host, no fragment, no trailing slash, and a
// query reduced to the given job-id params. With no keep params the query is
// dropped entirely. Unparseable input is returned trimmed.
func NormalizeJobURL(raw string, keep ...string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}

	q := u.Query()
	kept := url.Values{}
	for _, k := range keep {
		if isTrackingParam(k) {
			continue
		}
		if vals, ok := q[k]; ok && len(vals) > 0 && vals[0] != "" {
			vals = append([]string(nil), vals...)
			sort.Strings(vals)
			kept[k] = vals[:1]
		}
	}
	u.RawQuery = kept.Encode()
	return u.String()
}

// SameURL compares two URLs by their normalized form.
func SameURL(a, b string, keep ...string) bool {
	return NormalizeJobURL(a, keep...) == NormalizeJobURL(b, keep...)
}

// PageParam describes how a results page is addressed in the query string.
// Offset-style params step by the page size; page-number params step by 1.
type PageParam struct {
	Name  string
	Step  int
	Start int
}

// NextPageURL increments p in u's query. A missing param is treated as Start,
// so the first page advances to Start+Step.
func NextPageURL(u *url.URL, p PageParam) (string, bool) {
	if u == nil || p.Name == "" || p.Step <= 0 {
		return "", false
	}
	q := u.Query()
	cur := p.Start
	if v := strings.TrimSpace(q.Get(p.Name)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return "", false
		}
		cur = n
	}
	q.Set(p.Name, strconv.Itoa(cur+p.Step))

	next := *u
	next.Fragment = ""
	next.RawQuery = q.Encode()
	return next.String(), true
}

// ResolveURL resolves href against base. Empty or javascript: hrefs fail.
func ResolveURL(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String(), true
		}
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// URLIsTooGeneric flags alert and settings pages that look like jobs but are not.
func URLIsTooGeneric(u string) bool {
	lu := strings.ToLower(u)
	for _, junk := range []string{"/comm/jobs/alerts", "/jobs/alerts", "/settings", "/preferences"} {
		if strings.Contains(lu, junk) {
			return true
		}
	}
	return false
}

// URLKey is the tracker-side identity of a job URL: NormalizeJobURL keeping
// every non-tracking query param, so ids carried in the query survive.
func URLKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	var keep []string
	for k := range u.Query() {
		keep = append(keep, k)
	}
	sort.Strings(keep)
	return NormalizeJobURL(raw, keep...)
}
