package harvest

import (
	"context"
	"fmt"
	"log"
	"time"

	"jobharvest-engine/internal/domain"
)

// StartAutoFetch queues every job on this site that still lacks a
// description and navigates to the first one.
func (ep *Episode) StartAutoFetch(ctx context.Context, opts StartOptions) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	a, _, gen, err := ep.begin(ctx)
	if err != nil {
		return err
	}

	entries, err := ep.eng.client.NeedingDescriptions(ctx, ep.eng.cfg.FetchLimit)
	if err != nil {
		ep.notify(Notice{Kind: KindAutoFetch, Event: EventError, Message: "could not load jobs needing descriptions"})
		return fmt.Errorf("load backlog: %w", err)
	}
	var queue []domain.HarvestQueueEntry
	for _, e := range entries {
		if onSite(a, e.URL, e.Source) {
			queue = append(queue, e)
		}
	}
	if len(queue) == 0 {
		ep.notify(Notice{Kind: KindAutoFetch, Event: EventEmpty, Message: "nothing to do: no " + a.Name() + " jobs need descriptions"})
		return ErrNothingToDo
	}

	s := AutoFetchState{Queue: queue, DelayMs: opts.DelayMs}
	if err := ep.commit(ctx, gen, s); err != nil {
		return err
	}
	logStart(ep.session, KindAutoFetch, len(queue))
	ep.notify(Notice{Kind: KindAutoFetch, Event: EventStarted, Message: fmt.Sprintf("fetching %d descriptions", len(queue)), State: s})

	ep.followAutoFetch(s, ep.eng.cfg.StartDelay)
	return nil
}

// stepAutoFetch runs on the page of queue[index].
func (ep *Episode) stepAutoFetch(s AutoFetchState) {
	entry, ok := s.Current()
	if !ok {
		ep.finish(s, "")
		return
	}
	if !ep.settle() {
		return
	}

	captured := false
	if page, err := ep.snapshot(); err != nil {
		log.Printf("[autofetch] snapshot session=%s err=%v", ep.session, err)
	} else if a, found := ep.eng.sites.For(page.URL); found {
		if d, ok := a.ExtractDetail(page); ok && domain.HasUsableDescription(d.Description) {
			captured = ep.sub.UpdateDescription(entry.URL, d.Description, d.Company)
		}
	}
	log.Printf("[autofetch] step session=%s index=%d/%d captured=%v", ep.session, s.Index+1, len(s.Queue), captured)

	ep.followAutoFetch(s.Advance(captured), 0)
}

// followAutoFetch persists s and moves on: finish, skip unusable targets in
// place, or navigate to the next one.
func (ep *Episode) followAutoFetch(s AutoFetchState, delay time.Duration) {
	for {
		t := s.Plan(ep.eng.cfg.DefaultDelay)
		if t.Done {
			ep.finish(s, "")
			return
		}
		if !ep.persist(s) {
			return
		}
		if t.Skip {
			entry, _ := s.Current()
			log.Printf("[autofetch] skip session=%s index=%d url=%q", ep.session, s.Index, entry.URL)
			if ep.eng.clock.Sleep(ep.ctx, ep.eng.cfg.SkipDelay) != nil {
				return
			}
			s = s.SkipCurrent()
			continue
		}
		if delay <= 0 {
			delay = t.Delay
		}
		ep.notify(Notice{Kind: KindAutoFetch, Event: EventProgress, Message: fmt.Sprintf("%d/%d", s.Index, len(s.Queue)), State: s})
		ep.scheduleNavigation(t.Next, delay)
		return
	}
}
