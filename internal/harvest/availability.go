package harvest

import (
	"context"
	"fmt"
	"log"
	"time"

	"jobharvest-engine/internal/domain"
)

// StartAvailability revisits this site's jobs the tracker wants re-checked.
func (ep *Episode) StartAvailability(ctx context.Context, opts StartOptions) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	a, _, gen, err := ep.begin(ctx)
	if err != nil {
		return err
	}

	entries, err := ep.eng.client.NeedingAvailabilityCheck(ctx, a.Name())
	if err != nil {
		ep.notify(Notice{Kind: KindAvailability, Event: EventError, Message: "could not load jobs needing a check"})
		return fmt.Errorf("load backlog: %w", err)
	}
	// The tracker already filters by source; other backends may not.
	var queue []domain.CheckEntry
	for _, e := range entries {
		if onSite(a, e.URL, e.Source) {
			queue = append(queue, e)
		}
	}
	if len(queue) == 0 {
		ep.notify(Notice{Kind: KindAvailability, Event: EventEmpty, Message: "nothing to do: no " + a.Name() + " jobs need checking"})
		return ErrNothingToDo
	}

	s := AvailabilityState{Queue: queue, DelayMs: opts.DelayMs}
	if err := ep.commit(ctx, gen, s); err != nil {
		return err
	}
	logStart(ep.session, KindAvailability, len(queue))
	ep.notify(Notice{Kind: KindAvailability, Event: EventStarted, Message: fmt.Sprintf("checking %d jobs", len(queue)), State: s})

	ep.followAvailability(s, ep.eng.cfg.StartDelay)
	return nil
}

func (ep *Episode) stepAvailability(s AvailabilityState) {
	entry, ok := s.Current()
	if !ok {
		ep.finish(s, "")
		return
	}
	if !ep.settle() {
		return
	}

	page, err := ep.snapshot()
	if err != nil {
		log.Printf("[availability] snapshot session=%s err=%v", ep.session, err)
		ep.followAvailability(s.Advance(Verdict{}, false), 0)
		return
	}

	a, found := ep.eng.sites.ForURL(entry.URL)
	if !found {
		ep.followAvailability(s.SkipCurrent(), 0)
		return
	}

	v := Classify(a, page, entry, ep.eng.clock.Now())
	var callOK bool
	if v.Unavailable {
		callOK = ep.sub.MarkUnavailable(entry, v.Reason)
	} else {
		callOK = ep.sub.MarkChecked(entry)
	}
	log.Printf("[availability] step session=%s index=%d/%d id=%d unavailable=%v reason=%q ok=%v",
		ep.session, s.Index+1, len(s.Queue), entry.ID, v.Unavailable, v.Reason, callOK)

	ep.followAvailability(s.Advance(v, callOK), 0)
}

func (ep *Episode) followAvailability(s AvailabilityState, delay time.Duration) {
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
			log.Printf("[availability] skip session=%s index=%d url=%q", ep.session, s.Index, entry.URL)
			if ep.eng.clock.Sleep(ep.ctx, ep.eng.cfg.SkipDelay) != nil {
				return
			}
			s = s.SkipCurrent()
			continue
		}
		if delay <= 0 {
			delay = t.Delay
		}
		ep.notify(Notice{Kind: KindAvailability, Event: EventProgress, Message: fmt.Sprintf("%d/%d", s.Index, len(s.Queue)), State: s})
		ep.scheduleNavigation(t.Next, delay)
		return
	}
}
