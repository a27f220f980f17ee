package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sessionably/practice/internal/config"
	"github.com/sessionably/practice/internal/domain/account"
	"github.com/sessionably/practice/internal/domain/billing"
	"github.com/sessionably/practice/internal/domain/messaging"
	"github.com/sessionably/practice/internal/domain/notes"
	"github.com/sessionably/practice/internal/domain/notify"
	"github.com/sessionably/practice/internal/domain/portal"
	"github.com/sessionably/practice/internal/domain/subscription"
	"github.com/sessionably/practice/internal/platform/audit"
	"github.com/sessionably/practice/internal/platform/auth"
	"github.com/sessionably/practice/internal/platform/cache"
	"github.com/sessionably/practice/internal/platform/db"
	"github.com/sessionably/practice/internal/platform/llm"
	"github.com/sessionably/practice/internal/platform/metrics"
	"github.com/sessionably/practice/internal/platform/middleware"
	"github.com/sessionably/practice/internal/platform/notification"
	"github.com/sessionably/practice/internal/platform/payment"
)

const (
	defaultBodyLimit = "1M"
	notesBodyLimit   = "5M"
)

type senders struct {
	email notification.EmailSender
	sms   notification.SMSSender
}

// newSenders builds the SNS SMS sender and the configured email provider.
func newSenders(ctx context.Context, cfg *config.Config) (senders, error) {
	ses, sns, err := notification.NewAWSSenders(ctx, notification.AWSConfig{
		Region:   cfg.AWSRegion,
		From:     cfg.FromEmail,
		FromName: cfg.FromName,
		SenderID: cfg.SMSSenderID,
	})
	if err != nil {
		return senders{}, err
	}
	return senders{email: emailSender(cfg, ses), sms: sns}, nil
}

func emailSender(cfg *config.Config, ses notification.EmailSender) notification.EmailSender {
	if cfg.EmailProvider == "smtp" {
		return notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Pass:     cfg.SMTPPass,
			From:     cfg.FromEmail,
			FromName: cfg.FromName,
		})
	}
	return ses
}

func newNotifyService(repo notify.Repository, s senders, cfg *config.Config, logger zerolog.Logger) *notify.Service {
	dispatcher := notify.NewDispatcher(repo, repo, s.email, s.sms, logger)
	return notify.NewService(repo, notify.NewRenderer(cfg.PortalURL), dispatcher, logger)
}

// newEcho installs the global middleware chain and the unauthenticated
// operational endpoints.
func newEcho(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger, cfg.IsProduction())

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.CORS(middleware.CORSConfig{AllowOrigins: cfg.CORSOrigins()}))
	e.Use(metrics.Middleware())
	e.Use(middleware.BodyLimit(defaultBodyLimit, notesBodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/metrics", metrics.Handler())
	return e
}

// apiGroup is /api/v1 behind rate limiting and authentication. Public routes
// are let through by auth.AuthSkipper.
func apiGroup(e *echo.Echo, cfg *config.Config) *echo.Group {
	jwtCfg := auth.JWTConfig{
		SigningKey: []byte(cfg.JWTSecret),
		Skipper:    auth.AuthSkipper,
	}
	authMW := auth.JWTMiddleware(jwtCfg)
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtCfg)
	}
	return e.Group("/api/v1",
		middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}),
		authMW,
	)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")
	tx := db.NewTxRunner(pool)

	// Ephemeral state
	var (
		typing   cache.TypingCache
		subCache subscription.Cache
	)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		typing = cache.NewRedisTypingCache(rdb, cfg.TypingTTL)
		subCache = subscription.NewRedisCache(rdb, 0)
		logger.Info().Msg("connected to redis")
	} else {
		mem := cache.NewMemoryTypingCache(cfg.TypingTTL)
		defer mem.Close()
		typing = mem
		logger.Warn().Msg("REDIS_URL not set; typing indicators are per-process and subscriptions are not cached")
	}

	// Providers
	snd, err := newSenders(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise notification providers")
	}
	if cfg.StripeSecretKey == "" {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set; payment calls will fail")
	}
	payments := payment.NewStripeGateway(cfg.StripeSecretKey)
	llmClient := llm.NewClient(llm.Config{
		APIKey:  cfg.AnthropicAPIKey,
		BaseURL: cfg.AnthropicBaseURL,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	})
	if !llmClient.Configured() {
		logger.Warn().Msg("ANTHROPIC_API_KEY not set; note generation will return 503")
	}
	auditWriter := audit.NewPGWriter(pool)

	// Services
	notifyRepo := notify.NewRepoPG(pool)
	notifySvc := newNotifyService(notifyRepo, snd, cfg, logger)
	subSvc := subscription.NewService(subscription.NewRepoPG(pool), subCache, logger)
	accountSvc := account.NewService(account.NewRepoPG(pool), tx, payments, notifySvc.Renderer(), snd.email,
		account.Options{
			Prices: account.Prices{
				Essential:              cfg.StripePriceEssential,
				ProfessionalAI:         cfg.StripePriceProfessionalAI,
				ProfessionalTelehealth: cfg.StripePriceProfessionalTelehealth,
				Complete:               cfg.StripePriceComplete,
			},
			TrialDays: cfg.TrialDays,
			LoginURL:  strings.TrimRight(cfg.AppURL, "/") + "/login",
		}, logger)
	portalSvc := portal.NewService(portal.NewRepoPG(pool), tx, notifyRepo, auditWriter, notifySvc, cfg.PortalURL, logger)
	messagingSvc := messaging.NewService(messaging.NewRepoPG(pool), tx, typing, auditWriter, logger)
	billingSvc := billing.NewService(billing.NewRepoPG(pool), payments, notifySvc, cfg.AppURL, logger)
	notesSvc := notes.NewService(llmClient, logger)

	// Routes
	e := newEcho(cfg, logger)
	e.GET("/health/db", db.HealthHandler(pool))

	api := apiGroup(e, cfg)
	notify.NewHandler(notifySvc).RegisterRoutes(api)
	subscription.NewHandler(subSvc).RegisterRoutes(api)
	account.NewHandler(accountSvc).RegisterRoutes(api)
	portal.NewHandler(portalSvc).RegisterRoutes(api)
	messaging.NewHandler(messagingSvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	notes.NewHandler(notesSvc, subSvc).RegisterRoutes(api)

	// Reminder sweep
	scheduler := cron.New()
	job := notify.NewReminderJob(notifyRepo, notifySvc, cfg.ReminderLead, logger)
	if _, err := job.Schedule(scheduler, cfg.ReminderSchedule); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.ReminderSchedule).Msg("invalid reminder schedule")
	}
	scheduler.Start()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		logger.Warn().Msg("reminder sweep still running at shutdown")
	}
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
