package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/campuslink/platform/internal/app/system"
	"github.com/campuslink/platform/internal/logging"
)

var _ system.Service = (*Dispatcher)(nil)

const dispatchBatchSize = 50

// Dispatcher drains the notification queue on an interval.
type Dispatcher struct {
	service  *Service
	interval time.Duration
	log      *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewDispatcher creates a lifecycle-managed notification dispatcher.
func NewDispatcher(service *Service, interval time.Duration, log *logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.NewDefault("notifications-dispatcher")
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Dispatcher{
		service:  service,
		interval: interval,
		log:      log,
	}
}

func (d *Dispatcher) Name() string { return "notifications-dispatcher" }

func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				d.tick(runCtx)
			}
		}
	}()

	d.log.Info("notification dispatcher started")
	return nil
}

func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.log.Info("notification dispatcher stopped")
	return nil
}

func (d *Dispatcher) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sent, err := d.service.DispatchPending(ctx, dispatchBatchSize)
	if err != nil {
		d.log.WithError(err).Warn("dispatch tick failed")
		return
	}
	if sent > 0 {
		d.log.WithField("count", sent).Info("notifications dispatched")
	}
}
