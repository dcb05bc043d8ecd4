// Package greenhouse reads Greenhouse-hosted job boards and posting pages.
package greenhouse

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
		SiteName: "Greenhouse",
		Hosts:    []string{"boards.greenhouse.io", "job-boards.greenhouse.io"},
		Keep:     []string{"gh_jid"},
		Param:    util.PageParam{Name: "page", Step: 1, Start: 1},
		NextSelectors: []string{
			`a[rel="next"]`,
			`a[aria-label="Next page"]`,
			`.pagination__next a`,
		},
		DetailSelectors: []string{
			"#content",
			".job__description",
			"#app_body .content",
		},
	}}
}

func (a *Adapter) ScanListing(p *types.Page) []domain.JobRecord {
	if p == nil || p.Doc == nil {
		return nil
	}
	if extractJobID(p.Href()) != "" {
		if rec, ok := a.detailRecord(p); ok {
			return []domain.JobRecord{rec}
		}
		return nil
	}

	company := boardCompany(p)
	seen := map[string]bool{}
	var out []domain.JobRecord

	p.Doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		abs, ok := util.ResolveURL(p.URL, href)
		if !ok || !strings.Contains(strings.ToLower(abs), "/jobs/") {
			return
		}
		if extractJobID(abs) == "" {
			return
		}
		key := a.NormalizeURL(abs)
		if seen[key] {
			return
		}

		// Newer boards put title and location in sibling paragraphs.
		title := util.FirstText(link, "p.body--medium", ".job-title")
		if title == "" {
			title = util.CleanText(link.Text())
		}
		if title == "" || util.LooksLikeJunkTitle(title) {
			return
		}
		seen[key] = true

		row := link.Closest(".opening, tr.job-post, .job-post")
		loc := util.NormalizeLocation(util.FirstText(row, ".location", "p.body__secondary"))
		if loc == "" {
			loc = util.NormalizeLocation(util.FirstText(link, "p.body__secondary"))
		}

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
	title := util.FirstText(p.Doc.Selection, "h1.app-title", ".job__title h1", "h1")
	if title == "" {
		return domain.JobRecord{}, false
	}
	d, _ := a.ExtractDetail(p)
	company := d.Company
	if company == "" {
		company = boardCompany(p)
	}
	loc := util.FindLocation(p.Doc.Selection)
	rec := domain.JobRecord{
		Title:       util.Truncate(title, domain.MaxTitleLen),
		Company:     company,
		Location:    loc,
		Description: d.Description,
		URL:         a.NormalizeURL(p.Href()),
		IsRemote:    util.IsRemote(loc, title),
		Source:      a.Name(),
	}
	if jp, ok := util.FindJobPosting(p.Doc.Selection); ok {
		rec.DatePosted = jp.DatePosted
		rec.Salary = jp.Salary
		rec.IsRemote = rec.IsRemote || jp.Remote
	}
	return rec, true
}

func (a *Adapter) ExtractDetail(p *types.Page) (types.Detail, bool) {
	d, ok := a.Base.ExtractDetail(p)
	if !ok {
		return d, false
	}
	if d.Company == "" {
		d.Company = strings.TrimPrefix(util.FirstText(p.Doc.Selection, ".company-name"), "at ")
	}
	return d, true
}

func (a *Adapter) CurrentItemID(u *url.URL) string {
	if u == nil {
		return ""
	}
	if v := u.Query().Get("gh_jid"); v != "" {
		return v
	}
	return extractJobID(u.String())
}

// extractJobID takes the run of digits after /jobs/.
func extractJobID(u string) string {
	parts := strings.SplitN(u, "/jobs/", 2)
	if len(parts) < 2 {
		return ""
	}
	end := 0
	for end < len(parts[1]) && parts[1][end] >= '0' && parts[1][end] <= '9' {
		end++
	}
	return parts[1][:end]
}

// boardCompany reads the board heading, falling back to the board slug.
func boardCompany(p *types.Page) string {
	if name := util.FirstText(p.Doc.Selection, ".company-name", "#header h1", ".board__header h1"); name != "" {
		return util.Truncate(strings.TrimPrefix(name, "at "), domain.MaxCompanyLen)
	}
	seg := strings.Split(strings.Trim(p.URL.Path, "/"), "/")
	if len(seg) > 0 && seg[0] != "" && seg[0] != "embed" {
		return seg[0]
	}
	return ""
}
