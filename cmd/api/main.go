package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/renoworks/booking-platform/cmd/mainconfig"
	"github.com/renoworks/booking-platform/internal/api/router"
	"github.com/renoworks/booking-platform/internal/availability"
	"github.com/renoworks/booking-platform/internal/bookings"
	"github.com/renoworks/booking-platform/internal/calendar"
	appconfig "github.com/renoworks/booking-platform/internal/config"
	"github.com/renoworks/booking-platform/internal/crm"
	"github.com/renoworks/booking-platform/internal/http/handlers"
	"github.com/renoworks/booking-platform/internal/leads"
	"github.com/renoworks/booking-platform/internal/notify"
	"github.com/renoworks/booking-platform/internal/observability/metrics"
	"github.com/renoworks/booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		logger.Error("invalid business timezone", "error", err, "tz", cfg.BusinessTimezone)
		os.Exit(1)
	}

	bookingMetrics := metrics.NewBookingMetrics(nil)

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		pool     *pgxpool.Pool
		leadRepo leads.Repository
		ledger   bookings.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		leadRepo = leads.NewPostgresRepository(pool)
		ledger = bookings.NewPostgresRepository(pool, cfg.ConflictWindow)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
		memLeads := leads.NewInMemoryRepository()
		leadRepo = memLeads
		ledger = bookings.NewInMemoryRepository(memLeads, cfg.ConflictWindow)
	}

	// CRM forwarder (optional).
	var crmClient *crm.Client
	if cfg.CRMAPIKey != "" {
		crmClient = crm.NewClient(cfg.CRMBaseURL, cfg.CRMAPIKey, loc, cfg.CRMTimeout, logger)
	} else {
		logger.Warn("CRM_API_KEY not set, CRM forwarding disabled")
	}

	// Google Calendar (optional).
	var calendarService calendar.Service
	if cfg.GoogleCalendarCredentialsFile != "" {
		gcal, err := calendar.NewGoogleService(context.Background(),
			cfg.GoogleCalendarCredentialsFile, cfg.GoogleCalendarID, cfg.BusinessTimezone)
		if err != nil {
			logger.Error("failed to init google calendar, continuing without it", "error", err)
		} else {
			calendarService = gcal
		}
	}

	// Email.
	notifier := notify.NewService(buildEmailSender(cfg, logger), cfg.OwnerEmail, cfg.OwnerName, loc, logger)

	// Webhook dedupe: Redis when configured, Postgres as fallback.
	var deduper crm.EventDeduper
	switch {
	case cfg.RedisAddr != "":
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		deduper = crm.NewRedisDeduper(redis.NewClient(opts), cfg.WebhookDedupeTTL)
	case pool != nil:
		deduper = crm.NewPostgresDeduper(pool)
	}

	serviceCfg := bookings.ServiceConfig{
		Repo:     ledger,
		Leads:    leadRepo,
		Calendar: calendarService,
		Notifier: notifier,
		Metrics:  bookingMetrics,
		Logger:   logger,
		Location: loc,
	}
	if crmClient != nil {
		serviceCfg.CRM = crmClient
	}
	bookingService := bookings.NewService(serviceCfg)

	guard := availability.NewLeadTimeGuard(time.Duration(cfg.MinNoticeHours) * time.Hour)
	resolver := availability.NewResolver(availability.DefaultTemplate(), guard, ledger, loc, logger)

	var leadForwarder leads.CRMForwarder
	if crmClient != nil {
		leadForwarder = crmClient
	}

	routerCfg := &router.Config{
		Logger:              logger,
		AvailabilityHandler: availability.NewHandler(resolver, bookingMetrics, logger),
		BookingsHandler:     bookings.NewHandler(bookingService, logger),
		LeadsHandler:        leads.NewHandler(leadRepo, leadForwarder, logger),
		CRMWebhook:          crm.NewWebhookHandler(leadRepo, ledger, deduper, logger),
		AdminHandler:        handlers.NewAdminHandler(leadRepo, ledger, bookingService, logger),
		MetricsHandler:      promhttp.Handler(),
		AdminJWTSecret:      cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerSecond:  cfg.RateLimitPerSecond,
		RateLimitBurst:      cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailSender picks the provider: explicit EMAIL_PROVIDER wins,
// "auto" prefers SendGrid, then SES, then the logging stub.
func buildEmailSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	trySendGrid := func() notify.EmailSender {
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	}
	trySES := func() notify.EmailSender {
		if cfg.SESFromEmail == "" {
			return nil
		}
		awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("failed to load AWS config for SES", "error", err)
			return nil
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		if s := trySendGrid(); s != nil {
			return s
		}
	case "ses":
		if s := trySES(); s != nil {
			return s
		}
	case "stub":
	default: // auto
		if s := trySendGrid(); s != nil {
			return s
		}
		if s := trySES(); s != nil {
			return s
		}
	}
	logger.Warn("no email provider configured, using stub sender")
	return notify.NewStubEmailSender(logger)
}
