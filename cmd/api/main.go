package main

// @title ZapVenda API
// @version 1.0
// @description WhatsApp sales funnels: templates, funnel editor, onboarding and connection status.

// @contact.name API Support
// @contact.email suporte@zapvenda.com.br

// @host localhost:8080
// @BasePath /api/v1

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vinizap/zapvenda/config"
	apierrors "github.com/vinizap/zapvenda/pkg/api/errors"
	"github.com/vinizap/zapvenda/pkg/api/handlers"
	"github.com/vinizap/zapvenda/pkg/database"
	"github.com/vinizap/zapvenda/pkg/funnel"
	"github.com/vinizap/zapvenda/pkg/logger"
	"github.com/vinizap/zapvenda/pkg/metrics"
	custommiddleware "github.com/vinizap/zapvenda/pkg/middleware"
	"github.com/vinizap/zapvenda/pkg/profile"
	"github.com/vinizap/zapvenda/pkg/storage"
	"github.com/vinizap/zapvenda/pkg/testdata"
	"github.com/vinizap/zapvenda/pkg/whatsapp"
)

func main() {
	// Load configuration
	cfg := config.Load()
	appLog := logger.New(cfg.LogLevel, cfg.LogFormat).With("service", "zapvenda-api")
	apierrors.SetLogger(appLog)
	appLog.Info("configuration loaded", "environment", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			appLog.Warn("failed to initialize sentry", "error", err)
		} else {
			appLog.Info("sentry initialized", "environment", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		appLog.Info("sentry disabled (no DSN configured)")
	}

	// Initialize database
	var sslCfg *database.SSLConfig
	if cfg.DBSSLMode != "" {
		sslCfg = &database.SSLConfig{
			Mode:         cfg.DBSSLMode,
			CertPath:     cfg.DBSSLCertPath,
			KeyPath:      cfg.DBSSLKeyPath,
			RootCertPath: cfg.DBSSLRootCertPath,
		}
	}
	db, err := database.NewClient(cfg.DatabaseDriver, cfg.DatabaseURL, database.DefaultPoolConfig(), sslCfg)
	if err != nil {
		appLog.Error("failed to connect to database", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Key-value store for drafts, profile and connection state
	var store storage.Store
	if cfg.RedisURL != "" {
		redisStore, err := storage.NewRedisStore(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			appLog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
	} else {
		appLog.Warn("REDIS_URL not set, keeping drafts and connection state in memory")
		store = storage.NewMemoryStore()
	}

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New(prometheus.DefaultRegisterer)

	// Services
	templateRepo := database.NewTemplateRepository(db)
	funnelService := funnel.NewService(database.NewFunnelRepository(db), templateRepo, appLog.With("component", "funnel"), prometheusMetrics)
	draftService := funnel.NewDraftService(store, funnelService, time.Duration(cfg.DraftTTLMinutes)*time.Minute)
	profileService := profile.NewService(store, cfg.DefaultPhoneRegion, appLog.With("component", "profile"))
	poller := whatsapp.NewPoller(
		whatsapp.NewMockChecker(cfg.WhatsAppMockConnectAfter),
		store,
		time.Duration(cfg.WhatsAppPollIntervalSeconds)*time.Second,
		appLog.With("component", "whatsapp"),
		prometheusMetrics,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.SeedDemoData {
		gen := testdata.NewGenerator(time.Now().UnixNano())
		if err := testdata.Seed(ctx, gen, templateRepo, funnelService, 6, 3); err != nil {
			appLog.Warn("failed to seed demo data", "error", err)
		} else {
			appLog.Info("demo data seeded")
		}
	}

	poller.Start(ctx)
	go reportDBConnections(ctx, db, prometheusMetrics)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	go globalRateLimiter.RunCleanup(ctx, time.Minute)

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				appLog.Warn("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.String(), "error", v.Error)
				return nil
			}
			appLog.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.String())
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.CORSAllowedOrigins)))
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.DefaultSecurityHeadersConfig()))
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Health and metrics (public)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"database": db,
		"store":    store,
	})
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "ZapVenda API",
			"version":     "0.1.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})
	e.GET("/health", healthHandler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1
	v1 := e.Group("/api/v1")

	templateHandler := handlers.NewTemplateHandler(templateRepo)
	v1.GET("/templates", templateHandler.List)
	v1.POST("/templates", templateHandler.Create)
	v1.GET("/templates/:id", templateHandler.Get)
	v1.DELETE("/templates/:id", templateHandler.Delete)

	funnelHandler := handlers.NewFunnelHandler(funnelService, prometheusMetrics)
	v1.GET("/funnels", funnelHandler.List)
	v1.POST("/funnels", funnelHandler.Create)
	v1.POST("/funnels/validate", funnelHandler.Validate)
	v1.GET("/funnels/export", funnelHandler.Export)
	v1.GET("/funnels/:id", funnelHandler.Get)
	v1.PUT("/funnels/:id", funnelHandler.Update)
	v1.DELETE("/funnels/:id", funnelHandler.Delete)
	v1.GET("/funnels/:id/preview", funnelHandler.Preview)

	draftHandler := handlers.NewDraftHandler(draftService)
	drafts := v1.Group("/funnel-drafts")
	drafts.POST("", draftHandler.Open)
	drafts.DELETE("", draftHandler.DiscardAll)
	drafts.GET("/:id", draftHandler.Get)
	drafts.DELETE("/:id", draftHandler.Discard)
	drafts.POST("/:id/steps", draftHandler.AddStep)
	drafts.DELETE("/:id/steps/:index", draftHandler.RemoveStep)
	drafts.PATCH("/:id/steps/:index", draftHandler.UpdateStep)
	drafts.POST("/:id/steps/:index/select", draftHandler.SelectStep)
	drafts.PUT("/:id/details", draftHandler.SetDetails)
	drafts.PUT("/:id/tab", draftHandler.SetTab)
	drafts.POST("/:id/:action", draftHandler.Transition)

	profileHandler := handlers.NewProfileHandler(profileService)
	v1.GET("/profile", profileHandler.Get)
	v1.PUT("/profile", profileHandler.Update)
	v1.GET("/onboarding", profileHandler.GetOnboarding)
	v1.PUT("/onboarding", profileHandler.CompleteOnboardingStep)
	v1.DELETE("/onboarding", profileHandler.ResetOnboarding)

	whatsAppHandler := handlers.NewWhatsAppHandler(poller, appLog.With("component", "whatsapp-stream"))
	v1.POST("/whatsapp/:instance/connect", whatsAppHandler.Connect)
	v1.GET("/whatsapp/:instance/status", whatsAppHandler.Status)
	v1.POST("/whatsapp/:instance/disconnect", whatsAppHandler.Disconnect)
	v1.GET("/whatsapp/:instance/stream", whatsAppHandler.Stream)

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	appLog.Info("api starting",
		"address", address,
		"database_driver", cfg.DatabaseDriver,
		"rate_limit_per_minute", cfg.RateLimitRequestsPerMinute,
		"whatsapp_poll_interval_seconds", cfg.WhatsAppPollIntervalSeconds,
	)

	// Graceful shutdown
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			appLog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLog.Info("shutting down server")

	stop()
	poller.Stop()
	appLog.Info("whatsapp poller stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		appLog.Error("server forced to shutdown", "error", err)
		return
	}

	appLog.Info("server gracefully stopped")
}

// reportDBConnections publishes the open connection count until ctx is done.
func reportDBConnections(ctx context.Context, db *database.Client, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		m.UpdateDBConnections(float64(db.Stats().OpenConnections))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
