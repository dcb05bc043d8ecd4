// Package types holds the contract between the harvesting engine and the
// per-site extraction adapters.
package types

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
)

// Page is a snapshot of the currently loaded document.
type Page struct {
	URL *url.URL
	Doc *goquery.Document
}

func NewPage(rawURL, html string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	return &Page{URL: u, Doc: doc}, nil
}

// Text is the visible body text.
func (p *Page) Text() string {
	if p == nil || p.Doc == nil {
		return ""
	}
	body := p.Doc.Find("body").Clone()
	body.Find("script,style,noscript,template").Remove()
	return util.CleanText(body.Text())
}

func (p *Page) Href() string {
	if p == nil || p.URL == nil {
		return ""
	}
	return p.URL.String()
}

// Detail is what an adapter can read from a job detail page.
type Detail struct {
	URL         string
	Description string
	Company     string
}

// Adapter is the per-site extraction capability set. Implementations must not
// navigate or fetch; they only read the page they are handed.
type Adapter interface {
	Name() string
	Matches(u *url.URL) bool

	// ScanListing returns every job card visible on the page. Description may
	// be empty when the card does not show it.
	ScanListing(p *Page) []domain.JobRecord
	// ExtractDetail reads the detail pane or page. ok is false when no job
	// detail is displayed.
	ExtractDetail(p *Page) (Detail, bool)

	// CurrentItemID is the job id the location points at, or "".
	CurrentItemID(u *url.URL) string
	// IsUnavailableText returns the matched reason when the page says the
	// posting is closed.
	IsUnavailableText(p *Page) (string, bool)
	// ExpiresAt reads structured expiry metadata when present.
	ExpiresAt(p *Page) (time.Time, bool)

	// NextPageLink is the structural "next" control of a results page.
	NextPageLink(p *Page) (string, bool)
	PageParam() util.PageParam

	// NormalizeURL returns the dedup key for a job URL on this site.
	NormalizeURL(raw string) string
}
