package harvest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"jobharvest-engine/internal/harvest"
	"jobharvest-engine/internal/scrape"
	"jobharvest-engine/internal/scrape/types"
	"jobharvest-engine/internal/scrape/util"
	"jobharvest-engine/internal/statestore"
	"jobharvest-engine/internal/store"
	"jobharvest-engine/internal/submit"
	"jobharvest-engine/internal/tracker"

	"github.com/stretchr/testify/require"
)

// fakeTab serves canned HTML by URL. Redirects map a navigation target to
// the URL the tab actually lands on.
type fakeTab struct {
	mu        sync.Mutex
	url       string
	pages     map[string]string
	redirects map[string]string
	navs      []string
	broken    bool
}

func newFakeTab(start string) *fakeTab {
	return &fakeTab{url: start, pages: map[string]string{}, redirects: map[string]string{}}
}

func (t *fakeTab) Snapshot(context.Context) (*types.Page, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken {
		return nil, errors.New("page crashed")
	}
	html, ok := t.pages[t.url]
	if !ok {
		html = "<html><body></body></html>"
	}
	return types.NewPage(t.url, html)
}

func (t *fakeTab) Navigate(_ context.Context, target string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.navs = append(t.navs, target)
	if to, ok := t.redirects[target]; ok {
		target = to
	}
	t.url = target
	return nil
}

func (t *fakeTab) breakPage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broken = true
}

func (t *fakeTab) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

// fakeClock never waits. The single pending navigation runs only when the
// test calls fire.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending func()
	delays  []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays = append(c.delays, d)
	c.pending = f
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		had := c.pending != nil
		c.pending = nil
		return had
	}
}

func (c *fakeClock) hasPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

func (c *fakeClock) lastDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.delays) == 0 {
		return 0
	}
	return c.delays[len(c.delays)-1]
}

func (c *fakeClock) fire(t *testing.T) {
	t.Helper()
	c.mu.Lock()
	f := c.pending
	c.pending = nil
	c.mu.Unlock()
	require.NotNil(t, f, "no navigation scheduled")
	f()
}

type noticeLog struct {
	mu sync.Mutex
	ns []harvest.Notice
}

func (l *noticeLog) Notify(_ context.Context, n harvest.Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ns = append(l.ns, n)
}

func (l *noticeLog) last(ev harvest.Event) (harvest.Notice, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.ns) - 1; i >= 0; i-- {
		if l.ns[i].Event == ev {
			return l.ns[i], true
		}
	}
	return harvest.Notice{}, false
}

type rig struct {
	eng     *harvest.Engine
	store   *statestore.Memory
	db      *store.DB
	clock   *fakeClock
	notices *noticeLog
}

func newRig(t *testing.T) *rig {
	t.Helper()
	return newRigWith(t, nil)
}

// newRigWith wraps the tracker handler, letting a test stall or rewrite
// backend calls.
func newRigWith(t *testing.T, wrap func(http.Handler) http.Handler) *rig {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db.Pool, store.TrackerSchema))
	var h http.Handler = tracker.New(db.Pool, tracker.Options{}).Routes()
	if wrap != nil {
		h = wrap(h)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		_ = db.Close()
	})

	client, err := submit.New(submit.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	r := &rig{
		store:   statestore.NewMemory(),
		db:      db,
		clock:   &fakeClock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)},
		notices: &noticeLog{},
	}
	r.eng = harvest.New(harvest.Config{StartDelay: 250 * time.Millisecond, DefaultDelay: 2 * time.Second},
		r.store, client, scrape.DefaultRegistry(),
		harvest.WithClock(r.clock), harvest.WithNotifier(r.notices))
	return r
}

func (r *rig) addJob(t *testing.T, title, rawURL, source, desc string) int64 {
	t.Helper()
	id, _, err := store.InsertJobIgnore(context.Background(), r.db.Pool, store.JobInsert{
		Title: title, URL: rawURL, URLKey: util.URLKey(rawURL), Source: source, Description: desc,
	})
	require.NoError(t, err)
	return id
}

// open attaches an episode to an already loaded tab without running the
// load-time step.
func (r *rig) open(tab *fakeTab) *harvest.Episode {
	return r.eng.NewEpisode(context.Background(), "tab-1", tab)
}

// load simulates the tab finishing a navigation: the old episode ends and a
// fresh one resumes from persisted state.
func (r *rig) load(t *testing.T, prev *harvest.Episode, tab *fakeTab) *harvest.Episode {
	t.Helper()
	if prev != nil {
		prev.Close()
	}
	ep := r.eng.NewEpisode(context.Background(), "tab-1", tab)
	ep.Run()
	return ep
}

func (r *rig) status(t *testing.T, ep *harvest.Episode) harvest.Status {
	t.Helper()
	st, err := ep.Status(context.Background())
	require.NoError(t, err)
	return st
}
