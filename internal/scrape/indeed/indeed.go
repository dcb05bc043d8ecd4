// Package indeed reads Indeed search results and viewjob pages.
package indeed

import (
	"net/url"
	"strings"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape/types"
	"jobharvest-engine/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
)

type Adapter struct {
	types.Base
}

func New() *Adapter {
	return &Adapter{Base: types.Base{
		SiteName: "Indeed",
		Hosts:    []string{"indeed.com"},
		Keep:     []string{"jk"},
		Param:    util.PageParam{Name: "start", Step: 10, Start: 0},
		NextSelectors: []string{
			`a[data-testid="pagination-page-next"]`,
			`a[aria-label="Next Page"]`,
			`a[aria-label="Next"]`,
		},
		DetailSelectors: []string{
			"#jobDescriptionText",
			".jobsearch-JobComponent-description",
		},
	}}
}

func (a *Adapter) ScanListing(p *types.Page) []domain.JobRecord {
	if p == nil || p.Doc == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []domain.JobRecord

	p.Doc.Find("div.job_seen_beacon, li div.cardOutline, div.tapItem").Each(func(_ int, card *goquery.Selection) {
		jk := cardKey(card)
		if jk == "" {
			return
		}
		key := a.viewURL(p.URL, jk)
		if seen[key] {
			return
		}
		title := util.FirstText(card, "h2.jobTitle span[title]", "h2.jobTitle a span", "h2.jobTitle")
		if title == "" {
			return
		}
		seen[key] = true

		loc := util.NormalizeLocation(util.FirstText(card, "[data-testid='text-location']", ".companyLocation"))
		out = append(out, domain.JobRecord{
			Title:    util.Truncate(title, domain.MaxTitleLen),
			Company:  util.Truncate(util.FirstText(card, "[data-testid='company-name']", ".companyName"), domain.MaxCompanyLen),
			Location: loc,
			Salary:   util.FirstText(card, ".salary-snippet-container", "[data-testid='attribute_snippet_testid'].salary-snippet", ".estimated-salary"),
			URL:      key,
			IsRemote: util.IsRemote(loc, title),
			Source:   a.Name(),
		})
	})
	return out
}

func (a *Adapter) ExtractDetail(p *types.Page) (types.Detail, bool) {
	id := a.CurrentItemID(p.URL)
	if id == "" {
		return types.Detail{}, false
	}
	d, ok := a.Base.ExtractDetail(p)
	if !ok {
		return d, false
	}
	d.URL = a.viewURL(p.URL, id)
	if c := util.FirstText(p.Doc.Selection, "[data-testid='inlineHeader-companyName']", "[data-company-name='true']"); c != "" {
		d.Company = util.Truncate(c, domain.MaxCompanyLen)
	}
	return d, true
}

// CurrentItemID reads jk on viewjob pages and vjk on the split search view.
func (a *Adapter) CurrentItemID(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	for _, k := range []string{"jk", "vjk"} {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

func (a *Adapter) NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err == nil && u.Host != "" {
		if id := a.CurrentItemID(u); id != "" {
			return a.viewURL(u, id)
		}
	}
	return a.Base.NormalizeURL(raw)
}

func (a *Adapter) viewURL(base *url.URL, jk string) string {
	host := "www.indeed.com"
	if base != nil && base.Host != "" {
		host = strings.ToLower(base.Host)
	}
	return "https://" + host + "/viewjob?jk=" + url.QueryEscape(jk)
}

func cardKey(card *goquery.Selection) string {
	if v, ok := card.Find("a[data-jk]").First().Attr("data-jk"); ok {
		return strings.TrimSpace(v)
	}
	if v, ok := card.Attr("data-jk"); ok {
		return strings.TrimSpace(v)
	}
	if href, ok := card.Find("a[href*='jk=']").First().Attr("href"); ok {
		if u, err := url.Parse(href); err == nil {
			return u.Query().Get("jk")
		}
	}
	return ""
}
