package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Cron wraps robfig/cron for timer-triggered workflows.
type Cron struct {
	c   *cron.Cron
	ctx context.Context
}

func NewCron(ctx context.Context) *Cron {
	return &Cron{
		c:   cron.New(cron.WithLogger(cron.DefaultLogger)),
		ctx: ctx,
	}
}

// Add registers task under spec ("@every 6h", "0 9 * * 1-5", ...).
func (s *Cron) Add(spec, name string, task Task) error {
	_, err := s.c.AddFunc(spec, func() {
		if s.ctx.Err() != nil {
			return
		}
		log.Printf("[cron] fire name=%s", name)
		if err := task(s.ctx); err != nil {
			log.Printf("[cron] name=%s error: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", spec, err)
	}
	return nil
}

func (s *Cron) Len() int { return len(s.c.Entries()) }

func (s *Cron) Start() {
	s.c.Start()
	log.Printf("[cron] started entries=%d", len(s.c.Entries()))
}

// Stop halts the scheduler and waits for running jobs.
func (s *Cron) Stop() {
	<-s.c.Stop().Done()
	log.Println("[cron] stopped")
}

// ValidSpec reports whether spec parses with the standard cron parser.
func ValidSpec(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}
