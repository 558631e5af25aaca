package payments

import (
	"context"
	"sync"
	"time"

	"github.com/campuslink/platform/internal/app/system"
	"github.com/campuslink/platform/internal/logging"
)

var _ system.Service = (*SettlementPoller)(nil)

// SettlementPoller reconciles pending payments against the gateway on an
// interval, catching charges whose webhook never arrived.
type SettlementPoller struct {
	service  *Service
	interval time.Duration
	log      *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewSettlementPoller creates a lifecycle-managed settlement poller.
func NewSettlementPoller(service *Service, interval time.Duration, log *logging.Logger) *SettlementPoller {
	if log == nil {
		log = logging.NewDefault("payments-poller")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &SettlementPoller{
		service:  service,
		interval: interval,
		log:      log,
	}
}

func (p *SettlementPoller) Name() string { return "payments-settlement-poller" }

func (p *SettlementPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.tick(runCtx)
			}
		}
	}()

	p.log.Info("settlement poller started")
	return nil
}

func (p *SettlementPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.log.Info("settlement poller stopped")
	return nil
}

func (p *SettlementPoller) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	settled, err := p.service.ReconcilePending(ctx)
	if err != nil {
		p.log.WithError(err).Warn("settlement tick failed")
		return
	}
	if settled > 0 {
		p.log.WithField("count", settled).Info("payments reconciled")
	}
}
