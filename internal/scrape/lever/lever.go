// Package lever reads jobs.lever.co posting lists and posting pages.
package lever

import (
	"net/url"
	"regexp"
	"strings"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape/types"
	"jobharvest-engine/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
)

var postingID = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

type Adapter struct {
	types.Base
}

// New returns the Lever adapter. Lever lists every posting on one page, so it
// has no page param.
func New() *Adapter {
	return &Adapter{Base: types.Base{
		SiteName: "Lever",
		Hosts:    []string{"jobs.lever.co", "jobs.eu.lever.co"},
		DetailSelectors: []string{
			"[data-qa='job-description']",
			".posting-page .section-wrapper.page-full-width",
			".posting-page .content",
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

	company := companySlug(p.URL)
	seen := map[string]bool{}
	var out []domain.JobRecord
	p.Doc.Find(".posting").Each(func(_ int, card *goquery.Selection) {
		href, _ := card.Find("a.posting-title, a[href]").First().Attr("href")
		abs, ok := util.ResolveURL(p.URL, href)
		if !ok || postingID.FindString(abs) == "" {
			return
		}
		key := a.NormalizeURL(abs)
		if seen[key] {
			return
		}
		title := util.FirstText(card, "[data-qa='posting-name']", "h5", ".posting-name")
		if title == "" {
			return
		}
		seen[key] = true

		loc := util.NormalizeLocation(util.FirstText(card, ".sort-by-location", ".posting-categories .location", ".location"))
		mode := util.FirstText(card, ".workplaceTypes", ".sort-by-workplace")
		out = append(out, domain.JobRecord{
			Title:    util.Truncate(title, domain.MaxTitleLen),
			Company:  company,
			Location: loc,
			URL:      key,
			IsRemote: util.IsRemote(loc+" "+mode, title),
			Source:   a.Name(),
		})
	})
	return out
}

func (a *Adapter) detailRecord(p *types.Page) (domain.JobRecord, bool) {
	title := util.FirstText(p.Doc.Selection, ".posting-headline h2", "[data-qa='posting-name']", "h2")
	if title == "" {
		return domain.JobRecord{}, false
	}
	d, _ := a.ExtractDetail(p)

	loc := util.NormalizeLocation(util.FirstText(p.Doc.Selection, ".posting-categories .location", "[itemprop='jobLocation']", ".location"))
	mode := util.FirstText(p.Doc.Selection, ".posting-categories .workplaceTypes")
	company := d.Company
	if company == "" {
		company = companySlug(p.URL)
	}
	return domain.JobRecord{
		Title:       util.Truncate(title, domain.MaxTitleLen),
		Company:     company,
		Location:    loc,
		Description: d.Description,
		URL:         a.NormalizeURL(p.Href()),
		IsRemote:    util.IsRemote(loc+" "+mode, title),
		Source:      a.Name(),
	}, true
}

func (a *Adapter) CurrentItemID(u *url.URL) string {
	if u == nil {
		return ""
	}
	return postingID.FindString(strings.ToLower(u.Path))
}

// NormalizeURL drops the /apply suffix so the posting and its form share a key.
func (a *Adapter) NormalizeURL(raw string) string {
	n := a.Base.NormalizeURL(raw)
	return strings.TrimSuffix(n, "/apply")
}

func (a *Adapter) ExtractDetail(p *types.Page) (types.Detail, bool) {
	d, ok := a.Base.ExtractDetail(p)
	if !ok {
		return d, false
	}
	d.URL = a.NormalizeURL(p.Href())
	return d, true
}

func companySlug(u *url.URL) string {
	if u == nil {
		return ""
	}
	seg := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(seg) == 0 {
		return ""
	}
	return seg[0]
}
