// Package smartrecruiters reads jobs.smartrecruiters.com company pages and
// posting pages.
package smartrecruiters

import (
	"net/url"
	"regexp"
	"strings"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape/types"
	"jobharvest-engine/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
)

// Posting paths look like /<Company>/<id>-<slug>.
var postingPath = regexp.MustCompile(`^/[^/]+/(\d{6,})(?:-[^/]*)?/?$`)

type Adapter struct {
	types.Base
}

func New() *Adapter {
	return &Adapter{Base: types.Base{
		SiteName: "SmartRecruiters",
		Hosts:    []string{"jobs.smartrecruiters.com", "careers.smartrecruiters.com"},
		Param:    util.PageParam{Name: "page", Step: 1, Start: 1},
		NextSelectors: []string{
			`a[rel="next"]`,
			`.pagination a.next`,
		},
		DetailSelectors: []string{
			"[itemprop='description']",
			".job-sections",
			"#st-jobDescription",
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

	company := firstNonEmpty(
		util.FirstText(p.Doc.Selection, ".company-name", "header h1"),
		companySlug(p.URL),
	)
	seen := map[string]bool{}
	var out []domain.JobRecord
	p.Doc.Find("li.opening-job, .js-openings-load li").Each(func(_ int, card *goquery.Selection) {
		href, _ := card.Find("a[href]").First().Attr("href")
		abs, ok := util.ResolveURL(p.URL, href)
		if !ok {
			return
		}
		u, err := url.Parse(abs)
		if err != nil || a.CurrentItemID(u) == "" {
			return
		}
		key := a.NormalizeURL(abs)
		if seen[key] {
			return
		}
		title := util.FirstText(card, "h4.job-title", ".job-title", "h4")
		if title == "" {
			return
		}
		seen[key] = true

		loc := util.NormalizeLocation(util.FirstText(card, ".job-desc", ".job-location"))
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
	title := util.FirstText(p.Doc.Selection, "h1.job-title", "[itemprop='title']", "h1")
	if title == "" {
		return domain.JobRecord{}, false
	}
	d, _ := a.ExtractDetail(p)

	loc := strings.Join(nonEmpty(
		util.FirstText(p.Doc.Selection, "[itemprop='addressLocality']"),
		util.FirstText(p.Doc.Selection, "[itemprop='addressRegion']"),
		util.FirstText(p.Doc.Selection, "[itemprop='addressCountry']"),
	), ", ")
	if loc == "" {
		loc = util.FirstText(p.Doc.Selection, ".job-detail-list .job-location", "spl-job-location")
	}
	loc = util.NormalizeLocation(loc)

	return domain.JobRecord{
		Title:       util.Truncate(title, domain.MaxTitleLen),
		Company:     firstNonEmpty(d.Company, companySlug(p.URL)),
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
	m := postingPath.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return m[1]
}

func companySlug(u *url.URL) string {
	if u == nil {
		return ""
	}
	seg := strings.Split(strings.Trim(u.Path, "/"), "/")
	return seg[0]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
