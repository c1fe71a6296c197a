/*
scheduler.go - Holiday cache pre-warming

PURPOSE:
  Periodically fetches the holidays of the current and the next year so
  that report and calendar requests rarely wait on the holiday source.
  A failed run leaves nothing cached; the next request or run retries.

DESIGN:
  - robfig/cron job on a configurable schedule (default "0 3 * * *")
  - Runs once immediately on Start, in the background
  - Fetches are bounded by the holiday source's own timeout

USAGE:
  prewarmer := NewHolidayPrewarmer(cache, "NW", "0 3 * * *", log)
  if err := prewarmer.Start(); err != nil { ... }
  // ... later
  prewarmer.Stop()

SEE ALSO:
  - holiday/cache.go: Cache.Prefetch
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/oncall-ledger/accounting"
)

// HolidayPrewarmer fills the holiday cache on a cron schedule.
type HolidayPrewarmer struct {
	Holidays     accounting.HolidayPrefetcher
	Jurisdiction string
	Schedule     string // cron expression
	Now          func() time.Time

	log  logrus.FieldLogger
	cron *cron.Cron
	wg   sync.WaitGroup
	mu   sync.Mutex
}

// NewHolidayPrewarmer creates a prewarmer; call Start to schedule it.
func NewHolidayPrewarmer(holidays accounting.HolidayPrefetcher, jurisdiction, schedule string, log logrus.FieldLogger) *HolidayPrewarmer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HolidayPrewarmer{
		Holidays:     holidays,
		Jurisdiction: jurisdiction,
		Schedule:     schedule,
		Now:          time.Now,
		log:          log.WithField("component", "holiday-prewarmer"),
	}
}

// Start schedules the job and triggers one run immediately.
func (p *HolidayPrewarmer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil {
		return fmt.Errorf("holiday prewarmer already started")
	}

	c := cron.New(cron.WithLocation(time.Local))
	if _, err := c.AddFunc(p.Schedule, func() { p.Run(context.Background()) }); err != nil {
		return fmt.Errorf("invalid prewarm schedule %q: %w", p.Schedule, err)
	}
	p.cron = c
	c.Start()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Run(context.Background())
	}()

	p.log.WithField("schedule", p.Schedule).Info("holiday prewarmer started")
	return nil
}

// Stop stops scheduling and waits for running jobs.
func (p *HolidayPrewarmer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
	p.wg.Wait()
	p.cron = nil
	p.log.Info("holiday prewarmer stopped")
}

// Run prefetches the current and the next year once.
func (p *HolidayPrewarmer) Run(ctx context.Context) error {
	year := p.Now().Year()
	years := []int{year, year + 1}
	log := p.log.WithField("years", years)

	if _, err := p.Holidays.Prefetch(ctx, p.Jurisdiction, years...); err != nil {
		log.WithError(err).Warn("holiday prewarm failed")
		return err
	}
	log.Debug("holiday prewarm done")
	return nil
}
