package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"jobharvest-engine/internal/harvest"
)

var (
	ErrTabNotFound = errors.New("tab not found")
	ErrTabNotReady = errors.New("tab has not finished loading")
)

const signalBinding = "__jobharvestSignal"

// signalScript pings the engine on scroll (throttled) and when the tab
// becomes visible, so lazily rendered listings are picked up early.
const signalScript = `(() => {
  if (window.__jobharvestInstalled) return;
  window.__jobharvestInstalled = true;
  let last = 0;
  const ping = () => {
    const now = Date.now();
    if (now - last < 1000) return;
    last = now;
    if (typeof window.` + signalBinding + ` === "function") window.` + signalBinding + `();
  };
  window.addEventListener("scroll", ping, { passive: true });
  document.addEventListener("visibilitychange", () => {
    if (document.visibilityState === "visible") ping();
  });
})();`

// PageSource opens new browser pages.
type PageSource interface {
	NewPage() (playwright.Page, error)
}

type TabInfo struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	OpenedAt time.Time `json:"openedAt"`
}

// Driver keeps one harvest session per open tab. Every document load in a
// tab ends the previous episode and starts a new one.
type Driver struct {
	ctx   context.Context
	eng   *harvest.Engine
	pages PageSource

	mu   sync.Mutex
	tabs map[string]*session
}

type session struct {
	id       string
	openedAt time.Time
	page     playwright.Page
	tab      *Tab

	mu sync.Mutex
	ep *harvest.Episode

	closeOnce sync.Once
}

func NewDriver(ctx context.Context, eng *harvest.Engine, pages PageSource) *Driver {
	return &Driver{ctx: ctx, eng: eng, pages: pages, tabs: map[string]*session{}}
}

// Open creates a tab and, when rawURL is set, navigates it.
func (d *Driver) Open(ctx context.Context, rawURL string) (TabInfo, error) {
	page, err := d.pages.NewPage()
	if err != nil {
		return TabInfo{}, fmt.Errorf("new page: %w", err)
	}
	s := &session{id: uuid.NewString(), openedAt: time.Now().UTC(), page: page, tab: NewTab(page)}

	if err := page.ExposeFunction(signalBinding, func(args ...interface{}) interface{} {
		if ep := s.current(); ep != nil {
			ep.Signal()
		}
		return nil
	}); err != nil {
		log.Printf("[browser] expose signal tab=%s err=%v", s.id, err)
	}
	if err := page.AddInitScript(playwright.Script{Content: playwright.String(signalScript)}); err != nil {
		log.Printf("[browser] init script tab=%s err=%v", s.id, err)
	}
	// Handlers run on the driver's dispatch goroutine; page calls made
	// from there would block it.
	page.OnLoad(func(playwright.Page) { go d.loaded(s) })
	page.OnClose(func(playwright.Page) { go d.closed(s) })

	d.mu.Lock()
	d.tabs[s.id] = s
	d.mu.Unlock()
	log.Printf("[browser] open tab=%s url=%q", s.id, rawURL)

	if rawURL != "" {
		if err := s.tab.Navigate(ctx, rawURL); err != nil {
			return s.info(), fmt.Errorf("navigate: %w", err)
		}
	}
	return s.info(), nil
}

func (d *Driver) loaded(s *session) {
	ep := d.eng.NewEpisode(d.ctx, s.id, s.tab)

	s.mu.Lock()
	prev := s.ep
	s.ep = ep
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	ep.Run()
}

func (d *Driver) closed(s *session) {
	s.closeOnce.Do(func() {
		d.mu.Lock()
		delete(d.tabs, s.id)
		d.mu.Unlock()

		s.mu.Lock()
		ep := s.ep
		s.ep = nil
		s.mu.Unlock()
		if ep != nil {
			ep.Close()
		}
		if err := d.eng.ClearSession(context.WithoutCancel(d.ctx), s.id); err != nil {
			log.Printf("[browser] clear session tab=%s err=%v", s.id, err)
		}
		log.Printf("[browser] closed tab=%s", s.id)
	})
}

func (d *Driver) get(id string) (*session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.tabs[id]
	if !ok {
		return nil, ErrTabNotFound
	}
	return s, nil
}

func (d *Driver) episode(id string) (*harvest.Episode, error) {
	s, err := d.get(id)
	if err != nil {
		return nil, err
	}
	ep := s.current()
	if ep == nil {
		return nil, ErrTabNotReady
	}
	return ep, nil
}

func (d *Driver) List() []TabInfo {
	d.mu.Lock()
	out := make([]TabInfo, 0, len(d.tabs))
	for _, s := range d.tabs {
		out = append(out, s.info())
	}
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// Close closes the tab and drops its persisted state.
func (d *Driver) Close(ctx context.Context, id string) error {
	s, err := d.get(id)
	if err != nil {
		return err
	}
	if err := s.page.Close(); err != nil {
		log.Printf("[browser] close page tab=%s err=%v", id, err)
	}
	d.closed(s)
	return nil
}

func (d *Driver) CloseAll(ctx context.Context) {
	for _, t := range d.List() {
		_ = d.Close(ctx, t.ID)
	}
}

func (d *Driver) Start(ctx context.Context, id string, kind harvest.Kind, opts harvest.StartOptions) error {
	ep, err := d.episode(id)
	if err != nil {
		return err
	}
	switch kind {
	case harvest.KindAutoFetch:
		return ep.StartAutoFetch(ctx, opts)
	case harvest.KindCrawl:
		return ep.StartCrawl(ctx, opts)
	case harvest.KindAvailability:
		return ep.StartAvailability(ctx, opts)
	}
	return fmt.Errorf("unknown workflow %q", kind)
}

func (d *Driver) Stop(ctx context.Context, id string) error {
	ep, err := d.episode(id)
	if err != nil {
		return err
	}
	return ep.Stop()
}

func (d *Driver) Status(ctx context.Context, id string) (harvest.Status, error) {
	ep, err := d.episode(id)
	if err != nil {
		return harvest.Status{}, err
	}
	return ep.Status(ctx)
}

// OpenAndStart opens url and starts kind once the first load has been
// handled. Used by scheduled runs.
func (d *Driver) OpenAndStart(ctx context.Context, rawURL string, kind harvest.Kind, opts harvest.StartOptions) (TabInfo, error) {
	info, err := d.Open(ctx, rawURL)
	if err != nil {
		return info, err
	}
	deadline := time.NewTimer(45 * time.Second)
	defer deadline.Stop()
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()
	for {
		err := d.Start(ctx, info.ID, kind, opts)
		if !errors.Is(err, ErrTabNotReady) {
			return info, err
		}
		select {
		case <-ctx.Done():
			return info, ctx.Err()
		case <-deadline.C:
			return info, err
		case <-tick.C:
		}
	}
}

func (s *session) current() *harvest.Episode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ep
}

func (s *session) info() TabInfo {
	return TabInfo{ID: s.id, URL: s.page.URL(), OpenedAt: s.openedAt}
}
