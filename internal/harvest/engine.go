package harvest

import (
	"context"
	"errors"
	"log"
	"time"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape"
	"jobharvest-engine/internal/scrape/types"
	"jobharvest-engine/internal/statestore"
	"jobharvest-engine/internal/submit"
)

var (
	ErrWorkflowActive = errors.New("another workflow is already active in this tab")
	ErrNoAdapter      = errors.New("no site adapter for this page")
	ErrNothingToDo    = errors.New("nothing to do")
	ErrStopped        = errors.New("workflow stopped before it started")
)

// Tab is the browser tab an episode runs in.
type Tab interface {
	Snapshot(ctx context.Context) (*types.Page, error)
	Navigate(ctx context.Context, url string) error
}

// Enricher fills derived fields (skills, remote flag) before submission.
type Enricher interface {
	Enrich(job *domain.JobRecord)
}

// Clock abstracts timers so steps can be driven without waiting.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (realClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type Config struct {
	// SettleDelay is waited after load before extracting.
	SettleDelay time.Duration
	// StartDelay precedes the first navigation of a workflow.
	StartDelay time.Duration
	// SkipDelay is spent on an entry whose URL is unusable.
	SkipDelay time.Duration
	// DefaultDelay is used when a workflow has no delay of its own.
	DefaultDelay    time.Duration
	MaxPages        int
	FetchLimit      int
	MonitorInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.StartDelay <= 0 {
		c.StartDelay = 500 * time.Millisecond
	}
	if c.SkipDelay <= 0 {
		c.SkipDelay = 500 * time.Millisecond
	}
	if c.DefaultDelay <= 0 {
		c.DefaultDelay = 3 * time.Second
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 10
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = 200
	}
	return c
}

type Engine struct {
	cfg      Config
	store    statestore.Store
	client   *submit.Client
	sites    *scrape.Registry
	notifier Notifier
	enricher Enricher
	clock    Clock
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option  { return func(e *Engine) { e.notifier = n } }
func WithEnricher(en Enricher) Option { return func(e *Engine) { e.enricher = en } }
func WithClock(c Clock) Option        { return func(e *Engine) { e.clock = c } }

func New(cfg Config, store statestore.Store, client *submit.Client, sites *scrape.Registry, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg.withDefaults(),
		store:    store,
		client:   client,
		sites:    sites,
		notifier: NopNotifier{},
		clock:    realClock{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Config() Config { return e.cfg }

// ClearSession drops everything persisted for a closed tab.
func (e *Engine) ClearSession(ctx context.Context, session string) error {
	return e.store.ClearSession(ctx, session)
}

// CheckAvailabilityServerSide triggers the tracker's own bulk check.
func (e *Engine) CheckAvailabilityServerSide(ctx context.Context, source string) (int64, error) {
	return e.client.CheckAvailability(ctx, source)
}

// StartOptions tune a workflow start. Zero values fall back to Config.
type StartOptions struct {
	DelayMs  int `json:"delayMs"`
	MaxPages int `json:"maxPages"`
}

// Status is a point-in-time view of a tab session.
type Status struct {
	Session string        `json:"session"`
	URL     string        `json:"url,omitempty"`
	Active  Kind          `json:"active,omitempty"`
	State   WorkflowState `json:"state,omitempty"`
	Summary string        `json:"summary,omitempty"`
}

func summaryOf(ws WorkflowState) string {
	switch s := ws.(type) {
	case AutoFetchState:
		return s.Summary()
	case CrawlState:
		return s.Summary()
	case AvailabilityState:
		return s.Summary()
	}
	return ""
}

func logStart(session string, k Kind, n int) {
	log.Printf("[%s] start session=%s entries=%d", k, session, n)
}
