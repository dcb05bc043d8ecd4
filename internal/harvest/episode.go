package harvest

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scheduler"
	"jobharvest-engine/internal/scrape/types"
	"jobharvest-engine/internal/submit"
)

// Episode is the engine's life inside one page load.
type Episode struct {
	eng     *Engine
	session string
	tab     Tab
	repo    Repo
	sub     *submit.Episode

	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes steps, monitor ticks and starts.
	mu sync.Mutex

	// haltMu guards halted, stops and the single pending navigation.
	haltMu    sync.Mutex
	halted    bool
	stops     uint64
	stopTimer func() bool

	kick chan struct{}
}

func (e *Engine) NewEpisode(parent context.Context, session string, tab Tab) *Episode {
	ctx, cancel := context.WithCancel(parent)
	return &Episode{
		eng:     e,
		session: session,
		tab:     tab,
		repo:    NewRepo(e.store, session),
		sub:     e.client.Episode(ctx),
		ctx:     ctx,
		cancel:  cancel,
		kick:    make(chan struct{}, 1),
	}
}

func (ep *Episode) Session() string { return ep.session }

// Run resumes the persisted workflow, or runs the passive monitor when none
// is active. With a monitor interval configured it then keeps ticking until
// Close.
func (ep *Episode) Run() {
	ep.mu.Lock()
	ws, err := ep.repo.Active(ep.ctx)
	if err != nil {
		log.Printf("[harvest] load state session=%s err=%v", ep.session, err)
	}
	switch s := ws.(type) {
	case AutoFetchState:
		ep.stepAutoFetch(s)
	case CrawlState:
		ep.stepCrawl(s)
	case AvailabilityState:
		ep.stepAvailability(s)
	default:
		if err == nil {
			ep.monitorLocked()
		}
	}
	ep.mu.Unlock()

	if iv := ep.eng.cfg.MonitorInterval; iv > 0 {
		go scheduler.Loop(ep.ctx, iv, "monitor", func(context.Context) error {
			ep.MonitorTick()
			return nil
		}, ep.kick)
	}
}

// Close ends the episode: the pending navigation is dropped and
// fire-and-forget submissions are waited for.
func (ep *Episode) Close() {
	ep.haltMu.Lock()
	if ep.stopTimer != nil {
		ep.stopTimer()
		ep.stopTimer = nil
	}
	ep.haltMu.Unlock()
	ep.cancel()
	ep.sub.Flush()
}

// Stop cancels whatever workflow is active. Persisted state is cleared
// before anything else so a reload cannot resume it.
func (ep *Episode) Stop() error {
	ep.haltMu.Lock()
	ep.halted = true
	ep.stops++
	err := ep.repo.ClearAll(context.WithoutCancel(ep.ctx))
	if ep.stopTimer != nil {
		ep.stopTimer()
		ep.stopTimer = nil
	}
	ep.haltMu.Unlock()

	if err != nil {
		log.Printf("[harvest] stop session=%s err=%v", ep.session, err)
		return fmt.Errorf("clear workflow state: %w", err)
	}
	log.Printf("[harvest] stopped session=%s", ep.session)
	ep.notify(Notice{Event: EventStopped, Message: "workflow stopped"})
	return nil
}

func (ep *Episode) Status(ctx context.Context) (Status, error) {
	st := Status{Session: ep.session}
	if p, err := ep.tab.Snapshot(ctx); err == nil {
		st.URL = p.Href()
	}
	ws, err := ep.repo.Active(ctx)
	if err != nil {
		return st, err
	}
	if ws != nil {
		st.Active = ws.Kind()
		st.State = ws
		st.Summary = summaryOf(ws)
	}
	return st, nil
}

func (ep *Episode) notify(n Notice) {
	n.Session = ep.session
	ep.eng.notifier.Notify(context.WithoutCancel(ep.ctx), n)
}

func (ep *Episode) settle() bool {
	return ep.eng.clock.Sleep(ep.ctx, ep.eng.cfg.SettleDelay) == nil
}

func (ep *Episode) snapshot() (*types.Page, error) {
	return ep.tab.Snapshot(ep.ctx)
}

// persist overwrites the workflow record unless the episode was stopped.
func (ep *Episode) persist(ws WorkflowState) bool {
	ep.haltMu.Lock()
	defer ep.haltMu.Unlock()
	if ep.halted {
		return false
	}
	if err := ep.repo.Save(context.WithoutCancel(ep.ctx), ws); err != nil {
		log.Printf("[%s] save state session=%s err=%v", ws.Kind(), ep.session, err)
	}
	return true
}

// finish deletes the workflow record and reports totals.
func (ep *Episode) finish(ws WorkflowState, reason string) {
	ep.haltMu.Lock()
	if ep.halted {
		ep.haltMu.Unlock()
		return
	}
	if err := ep.repo.Clear(context.WithoutCancel(ep.ctx), ws.Kind()); err != nil {
		log.Printf("[%s] clear state session=%s err=%v", ws.Kind(), ep.session, err)
	}
	ep.haltMu.Unlock()

	msg := summaryOf(ws)
	if reason != "" {
		msg = reason + ": " + msg
	}
	log.Printf("[%s] complete session=%s %s", ws.Kind(), ep.session, msg)
	ep.notify(Notice{Kind: ws.Kind(), Event: EventCompleted, Message: msg, State: ws})
}

// scheduleNavigation replaces the pending navigation with one to target.
func (ep *Episode) scheduleNavigation(target string, d time.Duration) {
	ep.haltMu.Lock()
	defer ep.haltMu.Unlock()
	if ep.halted {
		return
	}
	if ep.stopTimer != nil {
		ep.stopTimer()
	}
	ep.stopTimer = ep.eng.clock.AfterFunc(d, func() {
		ep.haltMu.Lock()
		halted := ep.halted
		ep.stopTimer = nil
		ep.haltMu.Unlock()
		if halted || ep.ctx.Err() != nil {
			return
		}
		if err := ep.tab.Navigate(context.WithoutCancel(ep.ctx), target); err != nil {
			// No retry: the workflow resumes whenever the tab next loads.
			log.Printf("[harvest] navigate session=%s url=%q err=%v", ep.session, target, err)
		}
	})
}

// begin checks the preconditions shared by every start. The returned
// generation must be handed to commit; a Stop in between voids the start.
func (ep *Episode) begin(ctx context.Context) (types.Adapter, *types.Page, uint64, error) {
	ep.haltMu.Lock()
	gen := ep.stops
	ep.haltMu.Unlock()

	ws, err := ep.repo.Active(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	if ws != nil {
		return nil, nil, 0, fmt.Errorf("%w (%s)", ErrWorkflowActive, ws.Kind())
	}
	page, err := ep.tab.Snapshot(ctx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read page: %w", err)
	}
	a, ok := ep.eng.sites.For(page.URL)
	if !ok {
		return nil, nil, 0, fmt.Errorf("%w: %s", ErrNoAdapter, page.URL.Hostname())
	}
	return a, page, gen, nil
}

// commit writes the first state of a workflow. It refuses with ErrStopped
// when Stop ran after begin, leaving nothing for a reload to resume.
func (ep *Episode) commit(ctx context.Context, gen uint64, ws WorkflowState) error {
	ep.haltMu.Lock()
	defer ep.haltMu.Unlock()
	if ep.stops != gen {
		log.Printf("[%s] start abandoned session=%s: stopped", ws.Kind(), ep.session)
		return ErrStopped
	}
	if err := ep.repo.Save(ctx, ws); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	ep.halted = false
	return nil
}

// onSite keeps entries that belong to the adapter, by URL host or by the
// declared source. Entries with unusable URLs stay when the source matches
// so they are counted as skipped rather than silently lost.
func onSite(a types.Adapter, rawURL, source string) bool {
	if source != "" && strings.EqualFold(source, a.Name()) {
		return true
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	return err == nil && a.Matches(u)
}

func (ep *Episode) enrich(job *domain.JobRecord) {
	if ep.eng.enricher != nil {
		ep.eng.enricher.Enrich(job)
	}
}

// attachDetail copies the open detail pane's description onto the matching
// listing. It reports whether one matched.
func attachDetail(listings []domain.JobRecord, d types.Detail) bool {
	for i := range listings {
		if listings[i].URL != d.URL {
			continue
		}
		if listings[i].Description == "" {
			listings[i].Description = d.Description
		}
		if listings[i].Company == "" {
			listings[i].Company = d.Company
		}
		return true
	}
	return false
}
