package httpapi

import (
	"context"
	"sync/atomic"

	"jobharvest-engine/internal/browser"
	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/harvest"
	"jobharvest-engine/internal/poll"
)

// TabController is the browser side of the control API.
type TabController interface {
	List() []browser.TabInfo
	Open(ctx context.Context, url string) (browser.TabInfo, error)
	Close(ctx context.Context, id string) error
	Start(ctx context.Context, id string, kind harvest.Kind, opts harvest.StartOptions) error
	Stop(ctx context.Context, id string) error
	Status(ctx context.Context, id string) (harvest.Status, error)
}

type Schedules interface {
	Statuses() []poll.RunStatus
	RunNow(name string) error
}

type Deps struct {
	Tabs      TabController
	Hub       *events.Hub
	Schedules Schedules

	// CheckAvailability asks the tracker to run its own bulk check.
	CheckAvailability func(ctx context.Context, source string) (int64, error)

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Token, when set, is required in X-Control-Token on every route but
	// /health.
	Token string
}
