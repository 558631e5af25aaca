// Package app wires the feature services, background jobs and lifecycle
// manager into one application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/campuslink/platform/internal/app/services/forums"
	"github.com/campuslink/platform/internal/app/services/listings"
	"github.com/campuslink/platform/internal/app/services/messaging"
	"github.com/campuslink/platform/internal/app/services/notifications"
	"github.com/campuslink/platform/internal/app/services/payments"
	pointssvc "github.com/campuslink/platform/internal/app/services/points"
	"github.com/campuslink/platform/internal/app/services/referrals"
	"github.com/campuslink/platform/internal/app/services/users"
	"github.com/campuslink/platform/internal/app/storage"
	"github.com/campuslink/platform/internal/app/storage/memory"
	"github.com/campuslink/platform/internal/app/system"
	"github.com/campuslink/platform/internal/cache"
	"github.com/campuslink/platform/internal/config"
	"github.com/campuslink/platform/internal/logging"
	"github.com/campuslink/platform/internal/mail"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users         storage.UserStore
	Listings      storage.ListingStore
	Messages      storage.MessageStore
	Forums        storage.ForumStore
	Points        storage.PointsStore
	Payments      storage.PaymentStore
	Referrals     storage.ReferralStore
	Notifications storage.NotificationStore
}

// Options carries the external dependencies the application wires in.
type Options struct {
	Stores  Stores
	Config  *config.Config
	Cache   *cache.Cache
	Mailer  mail.Mailer
	Gateway payments.Gateway
	Logger  *logging.Logger
}

// Application ties the feature services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logging.Logger

	Users         *users.Service
	Listings      *listings.Service
	Messaging     *messaging.Service
	Hub           *messaging.Hub
	Forums        *forums.Service
	Points        *pointssvc.Service
	Payments      *payments.Service
	Referrals     *referrals.Service
	Notifications *notifications.Service
}

// New builds a fully initialised application.
func New(opts Options) (*Application, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewDefault("app")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	stores := opts.Stores
	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Listings == nil {
		stores.Listings = mem
	}
	if stores.Messages == nil {
		stores.Messages = mem
	}
	if stores.Forums == nil {
		stores.Forums = mem
	}
	if stores.Points == nil {
		stores.Points = mem
	}
	if stores.Payments == nil {
		stores.Payments = mem
	}
	if stores.Referrals == nil {
		stores.Referrals = mem
	}
	if stores.Notifications == nil {
		stores.Notifications = mem
	}

	gateway := opts.Gateway
	if gateway == nil {
		gateway = payments.NewHTTPGateway(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, 30*time.Second)
	}

	manager := system.NewManager()

	notifService := notifications.New(stores.Notifications, stores.Users, opts.Mailer, log)
	pointsService := pointssvc.New(stores.Points, opts.Cache, log)
	referralService := referrals.New(stores.Referrals, stores.Users, pointsService, log)
	userService := users.New(stores.Users, referralService, opts.Cache, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, log)
	listingService := listings.New(stores.Listings, stores.Users, pointsService, notifService, opts.Cache, log)
	hub := messaging.NewHub(log)
	messagingService := messaging.New(stores.Messages, stores.Users, notifService, hub, log)
	forumService := forums.New(stores.Forums, pointsService, log)
	paymentService := payments.New(stores.Payments, gateway, notifService, []byte(cfg.Gateway.WebhookSecret), log)

	runners := []system.Service{
		listings.NewSweeper(listingService, cfg.Jobs.ExpirySweepSchedule, log),
		notifications.NewDispatcher(notifService, 15*time.Second, log),
		notifications.NewDigest(notifService, stores.Users, stores.Listings, cfg.Jobs.DigestSchedule, log),
		payments.NewSettlementPoller(paymentService, time.Minute, log),
	}
	for _, svc := range runners {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:       manager,
		log:           log,
		Users:         userService,
		Listings:      listingService,
		Messaging:     messagingService,
		Hub:           hub,
		Forums:        forumService,
		Points:        pointsService,
		Payments:      paymentService,
		Referrals:     referralService,
		Notifications: notifService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all background services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
