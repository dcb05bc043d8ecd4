// Package workday reads *.myworkdayjobs.com career sites. Workday renders
// client-side, so it only works on live browser snapshots.
package workday

import (
	"net/url"
	"regexp"
	"strings"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape/types"
	"jobharvest-engine/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
)

// Requisition ids end the job slug: .../job/Austin-TX/Senior-Engineer_R12345
var requisition = regexp.MustCompile(`/job/(?:[^/]+/)*[^/]*_([A-Za-z0-9-]+)/?$`)

type Adapter struct {
	types.Base
}

func New() *Adapter {
	return &Adapter{Base: types.Base{
		SiteName: "Workday",
		Hosts:    []string{"myworkdayjobs.com", "myworkdaysite.com"},
		Phrases: append([]string{
			"the page you are looking for doesn't exist",
			"this job posting is no longer available",
		}, types.DefaultUnavailablePhrases...),
		NextSelectors: []string{
			`a[aria-label="next"]`,
			`a[rel="next"]`,
		},
		DetailSelectors: []string{
			"[data-automation-id='jobPostingDescription']",
			"[data-automation-id='job-posting-details']",
		},
	}}
}

func (a *Adapter) ScanListing(p *types.Page) []domain.JobRecord {
	if p == nil || p.Doc == nil {
		return nil
	}
	if a.CurrentItemID(p.URL) != "" {
		if rec, ok := a.detailRecord(p); ok {
			return []domain.JobRecord{rec}
		}
		return nil
	}

	company := tenant(p.URL)
	seen := map[string]bool{}
	var out []domain.JobRecord
	p.Doc.Find("a[data-automation-id='jobTitle']").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		abs, ok := util.ResolveURL(p.URL, href)
		if !ok {
			return
		}
		u, err := url.Parse(abs)
		if err != nil || a.CurrentItemID(u) == "" {
			return
		}
		key := a.NormalizeURL(abs)
		title := util.CleanText(link.Text())
		if seen[key] || title == "" {
			return
		}
		seen[key] = true

		card := link.Closest("li")
		loc := util.NormalizeLocation(util.FirstText(card, "[data-automation-id='locations'] dd", "[data-automation-id='locations']"))
		out = append(out, domain.JobRecord{
			Title:    util.Truncate(title, domain.MaxTitleLen),
			Company:  company,
			Location: loc,
			URL:      key,
			IsRemote: util.IsRemote(loc, title),
			Source:   a.Name(),
		})
	})
	return out
}

func (a *Adapter) detailRecord(p *types.Page) (domain.JobRecord, bool) {
	title := util.FirstText(p.Doc.Selection, "[data-automation-id='jobPostingHeader']", "h2", "h1")
	if title == "" {
		return domain.JobRecord{}, false
	}
	d, _ := a.ExtractDetail(p)
	loc := util.NormalizeLocation(util.FirstText(p.Doc.Selection, "[data-automation-id='locations'] dd", "[data-automation-id='locations']"))
	company := d.Company
	if company == "" {
		company = tenant(p.URL)
	}
	return domain.JobRecord{
		Title:       util.Truncate(title, domain.MaxTitleLen),
		Company:     company,
		Location:    loc,
		Description: d.Description,
		URL:         a.NormalizeURL(p.Href()),
		IsRemote:    util.IsRemote(loc, title),
		Source:      a.Name(),
	}, true
}

func (a *Adapter) CurrentItemID(u *url.URL) string {
	if u == nil {
		return ""
	}
	m := requisition.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return m[1]
}

// tenant is the first host label: acme.wd5.myworkdayjobs.com -> acme.
func tenant(u *url.URL) string {
	if u == nil {
		return ""
	}
	host := u.Hostname()
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}
