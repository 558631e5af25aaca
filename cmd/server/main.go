// Package main runs the CampusLink community platform server.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/campuslink/platform/internal/app"
	"github.com/campuslink/platform/internal/app/httpapi"
	"github.com/campuslink/platform/internal/app/metrics"
	"github.com/campuslink/platform/internal/app/storage/postgres"
	"github.com/campuslink/platform/internal/cache"
	"github.com/campuslink/platform/internal/config"
	"github.com/campuslink/platform/internal/logging"
	"github.com/campuslink/platform/internal/mail"
	"github.com/campuslink/platform/internal/middleware"
	"github.com/campuslink/platform/internal/platform/migrations"
	"github.com/campuslink/platform/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	log := logging.NewDefault("server")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("load config")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("invalid config")
		os.Exit(1)
	}

	db, err := postgres.Connect(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.WithError(err).Error("connect postgres")
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Apply(db.DB); err != nil {
		log.WithError(err).Error("apply migrations")
		os.Exit(1)
	}
	log.Info("database ready")
	store := postgres.New(db)

	var appCache *cache.Cache
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			log.WithError(err).Warn("redis unavailable; caching disabled")
		} else {
			appCache = cache.New(client)
			defer client.Close()
			log.Info("redis connected")
		}
	}

	var mailer mail.Mailer = mail.NewLogMailer(log)
	if cfg.Mail.Enabled {
		smtpMailer, err := mail.NewSMTPMailer(cfg.Mail.SMTPAddr, cfg.Mail.From)
		if err != nil {
			log.WithError(err).Warn("smtp misconfigured; using log mailer")
		} else {
			mailer = smtpMailer
		}
	}

	application, err := app.New(app.Options{
		Stores: app.Stores{
			Users:         store,
			Listings:      store,
			Messages:      store,
			Forums:        store,
			Points:        store,
			Payments:      store,
			Referrals:     store,
			Notifications: store,
		},
		Config: cfg,
		Cache:  appCache,
		Mailer: mailer,
		Logger: log,
	})
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(runCtx); err != nil {
		log.WithError(err).Error("start background services")
		os.Exit(1)
	}

	pages, err := web.NewHandler(application, log)
	if err != nil {
		log.WithError(err).Error("build web pages")
		os.Exit(1)
	}

	api := httpapi.NewHandler(application, log)
	mux := http.NewServeMux()
	mux.Handle("/api/", api)
	mux.Handle("/pages", pages)
	mux.Handle("/pages/", pages)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/healthz", api)

	rateLimiter := middleware.NewRateLimiter(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst, log)
	rateLimiter.StartCleanup(time.Minute, 10*time.Minute)
	defer rateLimiter.Stop()

	auth := middleware.NewAuthMiddleware([]byte(cfg.Auth.JWTSecret), appCache, log, httpapi.SkipAuthPaths())
	cors := middleware.NewCORS(cfg.CORS.AllowedOrigins)
	tracing := middleware.NewTracing(log)

	var handler http.Handler = mux
	handler = metrics.InstrumentHandler(handler)
	handler = rateLimiter.Handler(handler)
	handler = auth.Handler(handler)
	handler = cors.Handler(handler)
	handler = tracing.Handler(handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed")
		}
	case <-runCtx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("background services shutdown")
	}
	log.Info("goodbye")
}
