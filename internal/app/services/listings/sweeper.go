package listings

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/campuslink/platform/internal/app/system"
	"github.com/campuslink/platform/internal/logging"
)

var _ system.Service = (*Sweeper)(nil)

// Sweeper expires listings past their deadline on a cron schedule.
type Sweeper struct {
	service  *Service
	schedule string
	log      *logging.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewSweeper creates a lifecycle-managed expiry sweeper. schedule uses cron
// syntax, e.g. "@every 10m".
func NewSweeper(service *Service, schedule string, log *logging.Logger) *Sweeper {
	if log == nil {
		log = logging.NewDefault("listings-sweeper")
	}
	if schedule == "" {
		schedule = "@every 10m"
	}
	return &Sweeper{
		service:  service,
		schedule: schedule,
		log:      log,
	}
}

func (sw *Sweeper) Name() string { return "listings-sweeper" }

func (sw *Sweeper) Start(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(sw.schedule, func() { sw.sweep() }); err != nil {
		return err
	}
	c.Start()
	sw.cron = c
	sw.running = true
	sw.log.WithField("schedule", sw.schedule).Info("listing sweeper started")
	return nil
}

func (sw *Sweeper) Stop(ctx context.Context) error {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return nil
	}
	c := sw.cron
	sw.cron = nil
	sw.running = false
	sw.mu.Unlock()

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	sw.log.Info("listing sweeper stopped")
	return nil
}

func (sw *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := sw.service.ExpireDue(ctx, time.Now()); err != nil {
		sw.log.WithError(err).Warn("listing sweep failed")
	}
}
