package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/koalabang/MUFCR6K2025/internal/api/http"
	"github.com/koalabang/MUFCR6K2025/internal/api/ws"
	"github.com/koalabang/MUFCR6K2025/internal/config"
	"github.com/koalabang/MUFCR6K2025/internal/dx"
	"github.com/koalabang/MUFCR6K2025/internal/logging"
	"github.com/koalabang/MUFCR6K2025/internal/muf"
	"github.com/koalabang/MUFCR6K2025/internal/muf/kc2g"
	"github.com/koalabang/MUFCR6K2025/internal/scheduler"
	"github.com/koalabang/MUFCR6K2025/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(os.Getenv("DEBUG") != "")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Shared HTTP client for outbound calls; per-attempt timeouts are
	// enforced by the callers via contexts.
	httpClient := &http.Client{}

	seriesStore := store.NewSeriesStore(cfg.Retention, cfg.StaleAfter)

	feedClient := kc2g.NewClient(httpClient, kc2g.Config{
		URL:         cfg.FeedURL,
		MaxAttempts: cfg.FetchMaxAttempts,
		RetryDelays: cfg.RetryDelays,
		Timeout:     cfg.FetchTimeout,
	}, logger.Named("kc2g"))

	resolver := muf.NewResolver(logger.Named("resolver"))
	service := muf.NewService(feedClient, resolver, seriesStore, logger.Named("muf"))

	dxFetcher := dx.NewFetcher(httpClient, cfg.DXFeedURL, logger.Named("dx"))

	// Live feed: every appended point goes out to websocket clients.
	hub := ws.NewHub(logger.Named("ws"))
	service.OnPoint(func(p muf.Point) {
		hub.Broadcast(p)
	})

	sched := scheduler.New(service, dxFetcher, cfg.RefreshInterval, cfg.DXRefreshInterval, logger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "muf-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "muf-monitor",
			"points":  seriesStore.Size(),
		})
	})

	httpapi.RegisterRoutes(app, service, dxFetcher)

	app.Use("/ws/muf", ws.UpgradeRequired)
	app.Get("/ws/muf", hub.Handler())

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}
