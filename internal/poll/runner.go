// Package poll runs configured workflows on cron schedules and keeps the
// last-run status of each.
package poll

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/scheduler"
)

var (
	ErrUnknownSchedule = errors.New("unknown schedule")
	ErrAlreadyRunning  = errors.New("schedule is already running")
)

// StartFunc opens the schedule's URL and starts its workflow, returning
// the tab it runs in.
type StartFunc func(ctx context.Context, s config.Schedule) (tabID string, err error)

type RunStatus struct {
	Name      string `json:"name"`
	Cron      string `json:"cron"`
	Workflow  string `json:"workflow"`
	URL       string `json:"url"`
	LastRunAt string `json:"last_run_at"`
	LastOkAt  string `json:"last_ok_at"`
	LastError string `json:"last_error"`
	LastTab   string `json:"last_tab,omitempty"`
	Runs      int    `json:"runs"`
	Running   bool   `json:"running"`
}

type Runner struct {
	ctx   context.Context
	start StartFunc
	hub   *events.Hub
	cron  *scheduler.Cron

	mu        sync.Mutex
	schedules map[string]config.Schedule
	status    map[string]*RunStatus
}

func NewRunner(ctx context.Context, start StartFunc, hub *events.Hub) *Runner {
	return &Runner{
		ctx:       ctx,
		start:     start,
		hub:       hub,
		cron:      scheduler.NewCron(ctx),
		schedules: map[string]config.Schedule{},
		status:    map[string]*RunStatus{},
	}
}

// Load registers every schedule. Call before Start.
func (r *Runner) Load(schedules []config.Schedule) error {
	for _, s := range schedules {
		s := s
		if err := r.cron.Add(s.Cron, s.Name, func(context.Context) error {
			err := r.RunNow(s.Name)
			if errors.Is(err, ErrAlreadyRunning) {
				log.Printf("[poll] skip name=%s: previous run still starting", s.Name)
				return nil
			}
			return err
		}); err != nil {
			return err
		}
		r.mu.Lock()
		r.schedules[s.Name] = s
		r.status[s.Name] = &RunStatus{Name: s.Name, Cron: s.Cron, Workflow: s.Workflow, URL: s.URL}
		r.mu.Unlock()
	}
	return nil
}

func (r *Runner) Start() { r.cron.Start() }
func (r *Runner) Stop()  { r.cron.Stop() }

// RunNow starts the named schedule in the background.
func (r *Runner) RunNow(name string) error {
	r.mu.Lock()
	s, ok := r.schedules[name]
	st := r.status[name]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownSchedule
	}
	if st.Running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	st.Running = true
	st.LastRunAt = time.Now().Format(time.RFC3339)
	r.mu.Unlock()

	go r.run(s)
	return nil
}

func (r *Runner) run(s config.Schedule) {
	log.Printf("[poll] run name=%s workflow=%s url=%q", s.Name, s.Workflow, s.URL)
	tab, err := r.start(r.ctx, s)

	now := time.Now().Format(time.RFC3339)
	r.mu.Lock()
	st := r.status[s.Name]
	st.Running = false
	st.Runs++
	st.LastTab = tab
	if err != nil {
		st.LastError = err.Error()
		log.Printf("[poll] error name=%s: %v", s.Name, err)
	} else {
		st.LastError = ""
		st.LastOkAt = now
	}
	snap := *st
	r.mu.Unlock()

	if r.hub != nil {
		r.hub.Publish(events.MakeEvent("", "schedule.run", 1, snap))
	}
}

func (r *Runner) Statuses() []RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RunStatus, 0, len(r.status))
	for _, st := range r.status {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
