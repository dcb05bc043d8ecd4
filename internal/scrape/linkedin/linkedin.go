// Package linkedin reads LinkedIn job search results and job views, both the
// signed-in two-pane layout and the public guest pages.
package linkedin

import (
	"net/url"
	"regexp"
	"strings"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape/types"
	"jobharvest-engine/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
)

var viewID = regexp.MustCompile(`/jobs/view/(?:[^/]*-)?(\d{5,})`)

const pageSize = 25

type Adapter struct {
	types.Base
}

func New() *Adapter {
	return &Adapter{Base: types.Base{
		SiteName: "LinkedIn",
		Hosts:    []string{"linkedin.com"},
		Keep:     []string{"currentJobId"},
		Param:    util.PageParam{Name: "start", Step: pageSize, Start: 0},
		NextSelectors: []string{
			`a[aria-label="View next page"]`,
			`a.jobs-search-pagination__button--next`,
		},
		DetailSelectors: []string{
			".jobs-description__content .jobs-box__html-content",
			".jobs-description__content",
			"#job-details",
			".show-more-less-html__markup",
			".description__text",
		},
	}}
}

func (a *Adapter) ScanListing(p *types.Page) []domain.JobRecord {
	if p == nil || p.Doc == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []domain.JobRecord

	cards := p.Doc.Find("li[data-occludable-job-id], .job-card-container[data-job-id], div.base-card, li.jobs-search-results__list-item")
	cards.Each(func(_ int, card *goquery.Selection) {
		id := cardJobID(card)
		if id == "" {
			return
		}
		key := viewURL(id)
		if seen[key] {
			return
		}
		title := util.FirstText(card,
			".job-card-list__title strong",
			".job-card-list__title",
			"a.job-card-container__link span[aria-hidden='true']",
			".base-search-card__title",
		)
		if title == "" {
			return
		}
		seen[key] = true

		loc := util.NormalizeLocation(util.FirstText(card,
			".job-card-container__metadata-wrapper li",
			".job-card-container__metadata-item",
			".job-search-card__location",
		))
		rec := domain.JobRecord{
			Title: util.Truncate(title, domain.MaxTitleLen),
			Company: util.Truncate(util.FirstText(card,
				".artdeco-entity-lockup__subtitle",
				".job-card-container__primary-description",
				".base-search-card__subtitle",
			), domain.MaxCompanyLen),
			Location: loc,
			Salary:   util.FirstText(card, ".job-card-container__salary-info", ".job-search-card__salary-info"),
			URL:      key,
			IsRemote: util.IsRemote(loc, title),
			Source:   a.Name(),
		}
		if dt, ok := card.Find("time[datetime]").First().Attr("datetime"); ok {
			rec.DatePosted = dt
		}
		out = append(out, rec)
	})
	return out
}

// ExtractDetail reads the right-hand pane of the search page or a /jobs/view/
// page. The URL is the canonical view URL of the displayed job.
func (a *Adapter) ExtractDetail(p *types.Page) (types.Detail, bool) {
	id := a.CurrentItemID(p.URL)
	if id == "" {
		return types.Detail{}, false
	}
	d, ok := a.Base.ExtractDetail(p)
	if !ok {
		return d, false
	}
	d.URL = viewURL(id)
	if c := util.FirstText(p.Doc.Selection,
		".job-details-jobs-unified-top-card__company-name",
		".jobs-unified-top-card__company-name",
		".topcard__org-name-link",
	); c != "" {
		d.Company = util.Truncate(c, domain.MaxCompanyLen)
	}
	return d, true
}

func (a *Adapter) CurrentItemID(u *url.URL) string {
	if u == nil {
		return ""
	}
	if v := strings.TrimSpace(u.Query().Get("currentJobId")); v != "" {
		return v
	}
	if m := viewID.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return ""
}

// NormalizeURL maps every URL that names a job to its /jobs/view/<id> form.
func (a *Adapter) NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err == nil {
		if id := a.CurrentItemID(u); id != "" {
			return viewURL(id)
		}
	}
	return a.Base.NormalizeURL(raw)
}

func cardJobID(card *goquery.Selection) string {
	for _, attr := range []string{"data-occludable-job-id", "data-job-id"} {
		if v, ok := card.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if v, ok := card.Find("[" + attr + "]").First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if urn, ok := card.Attr("data-entity-urn"); ok {
		if i := strings.LastIndex(urn, ":"); i >= 0 {
			return urn[i+1:]
		}
	}
	if href, ok := card.Find("a[href*='/jobs/view/']").First().Attr("href"); ok {
		if m := viewID.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	return ""
}

func viewURL(id string) string {
	return "https://www.linkedin.com/jobs/view/" + id
}
