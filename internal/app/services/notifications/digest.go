package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/campuslink/platform/internal/app/domain/listing"
	"github.com/campuslink/platform/internal/app/domain/notification"
	"github.com/campuslink/platform/internal/app/storage"
	"github.com/campuslink/platform/internal/app/system"
	"github.com/campuslink/platform/internal/logging"
)

var _ system.Service = (*Digest)(nil)

// Digest queues a weekly summary of open listings for every member.
type Digest struct {
	service  *Service
	users    storage.UserStore
	listings storage.ListingStore
	schedule string
	log      *logging.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewDigest creates a lifecycle-managed digest job. schedule uses cron
// syntax, e.g. "0 8 * * MON".
func NewDigest(service *Service, users storage.UserStore, listings storage.ListingStore, schedule string, log *logging.Logger) *Digest {
	if log == nil {
		log = logging.NewDefault("notifications-digest")
	}
	if schedule == "" {
		schedule = "0 8 * * MON"
	}
	return &Digest{
		service:  service,
		users:    users,
		listings: listings,
		schedule: schedule,
		log:      log,
	}
}

func (d *Digest) Name() string { return "notifications-digest" }

func (d *Digest) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(d.schedule, func() { d.run() }); err != nil {
		return err
	}
	c.Start()
	d.cron = c
	d.running = true
	d.log.WithField("schedule", d.schedule).Info("digest job started")
	return nil
}

func (d *Digest) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	c := d.cron
	d.cron = nil
	d.running = false
	d.mu.Unlock()

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	d.log.Info("digest job stopped")
	return nil
}

func (d *Digest) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := d.Run(ctx); err != nil {
		d.log.WithError(err).Warn("digest run failed")
	}
}

// Run builds and queues the digest once. Exposed for tests and manual runs.
func (d *Digest) Run(ctx context.Context) error {
	open, err := d.listings.ListListings(ctx, listing.Filter{Status: listing.StatusOpen})
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}

	jobs, scholarships := 0, 0
	for _, l := range open {
		if l.Kind == listing.KindJob {
			jobs++
		} else {
			scholarships++
		}
	}
	subject := "Your weekly campus digest"
	body := fmt.Sprintf("This week on CampusLink: %d open jobs and %d scholarships. Log in to browse them.", jobs, scholarships)

	users, err := d.users.ListUsers(ctx)
	if err != nil {
		return err
	}
	queued := 0
	for _, u := range users {
		if err := d.service.Enqueue(ctx, u.ID, notification.KindDigest, subject, body); err != nil {
			d.log.WithError(err).WithField("user_id", u.ID).Warn("digest not queued")
			continue
		}
		queued++
	}
	d.log.WithField("count", queued).Info("weekly digest queued")
	return nil
}
