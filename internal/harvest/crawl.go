package harvest

import (
	"context"
	"fmt"
	"log"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape/types"
)

// StartCrawl scans the current results page and keeps paginating.
func (ep *Episode) StartCrawl(ctx context.Context, opts StartOptions) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	_, page, gen, err := ep.begin(ctx)
	if err != nil {
		return err
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = ep.eng.cfg.MaxPages
	}
	s := CrawlState{MaxPages: maxPages, DelayMs: opts.DelayMs}
	if err := ep.commit(ctx, gen, s); err != nil {
		return err
	}
	logStart(ep.session, KindCrawl, maxPages)
	ep.notify(Notice{Kind: KindCrawl, Event: EventStarted, Message: fmt.Sprintf("crawling up to %d pages", maxPages), State: s})

	ep.scanCrawl(s, page)
	return nil
}

func (ep *Episode) stepCrawl(s CrawlState) {
	if !ep.settle() {
		return
	}
	page, err := ep.snapshot()
	if err != nil {
		log.Printf("[crawl] snapshot session=%s err=%v", ep.session, err)
		ep.finish(s.Advance(0, 0, 0), "page unreadable")
		return
	}
	ep.scanCrawl(s, page)
}

func (ep *Episode) scanCrawl(s CrawlState, page *types.Page) {
	a, ok := ep.eng.sites.For(page.URL)
	if !ok {
		ep.finish(s, "left supported site")
		return
	}

	listings := a.ScanListing(page)
	if d, ok := a.ExtractDetail(page); ok && domain.HasUsableDescription(d.Description) {
		attachDetail(listings, d)
	}

	added, merged := 0, 0
	for _, job := range listings {
		if ep.sub.Seen(job.URL) {
			continue
		}
		ep.enrich(&job)
		r := ep.sub.Submit(job)
		switch {
		case r.Added:
			added++
		case r.Merged:
			merged++
		}
	}

	next, hasNext := NextPage(a, page)
	s = s.Advance(len(listings), added, merged)
	log.Printf("[crawl] page session=%s n=%d/%d found=%d added=%d next=%q", ep.session, s.PagesScanned, s.MaxPages, len(listings), added, next)

	t := s.Plan(len(listings), next, hasNext, ep.eng.cfg.DefaultDelay)
	if t.Done {
		ep.finish(s, t.Reason)
		return
	}
	if !ep.persist(s) {
		return
	}
	ep.notify(Notice{Kind: KindCrawl, Event: EventProgress, Message: fmt.Sprintf("page %d/%d", s.PagesScanned, s.MaxPages), State: s})
	ep.scheduleNavigation(t.Next, t.Delay)
}
