package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/medios/pricewatch/internal/config"
	"github.com/medios/pricewatch/internal/handler"
	"github.com/medios/pricewatch/internal/imagecache"
	"github.com/medios/pricewatch/internal/logger"
	"github.com/medios/pricewatch/internal/normalize"
	"github.com/medios/pricewatch/internal/notifier"
	"github.com/medios/pricewatch/internal/pipeline"
	"github.com/medios/pricewatch/internal/proxy"
	"github.com/medios/pricewatch/internal/refprice"
	"github.com/medios/pricewatch/internal/repository"
	"github.com/medios/pricewatch/internal/scheduler"
	"github.com/medios/pricewatch/internal/scraper"
	"github.com/medios/pricewatch/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()
	rootLogger := logger.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Product store
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := repository.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Reference price store (read-only, populated by a separate crawler)
	refDB, err := sqlx.Connect("postgres", cfg.ReferenceDatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to reference database: %v", err)
	}
	defer func() { _ = refDB.Close() }()

	// Repositories
	productRepo := repository.NewProductRepository(db)
	notificationRepo := repository.NewNotificationLogRepository(db)

	// Proxy pool
	proxyPool := proxy.New(proxy.Config{
		ProbeTimeout:     cfg.ProxyProbeTimeout,
		ProbeConcurrency: cfg.ProxyProbeConcurrency,
	}, logger.Component("proxy"))
	proxyPool.Initialize(ctx, cfg.ProxyList)

	// Pipeline
	normalizer := normalize.New(cfg.BaseURL, logger.Component("normalize"))
	detector := pipeline.NewDetector(refprice.New(refDB), cfg.AlertThreshold, logger.Component("detector"))
	coordinator := pipeline.NewCoordinator(normalizer, detector, productRepo, logger.Component("coordinator"))

	batcher := pipeline.NewBatcher(productRepo, coordinator.Upserts(), pipeline.BatcherConfig{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger.Component("batcher"))

	// Alert transports
	bus, err := notifier.NewBus(cfg.BusURL, cfg.BusSubject, logger.Component("bus"))
	if err != nil {
		log.Fatalf("Failed to connect to message bus: %v", err)
	}
	defer bus.Close()

	telegram, err := notifier.NewTelegram(cfg.TelegramTokens, cfg.TelegramChatID, logger.Component("telegram"))
	if err != nil {
		log.Fatalf("Failed to initialize Telegram notifier: %v", err)
	}

	images, err := imagecache.New(cfg.ImageCacheDir, logger.Component("imagecache"))
	if err != nil {
		log.Fatalf("Failed to initialize image cache: %v", err)
	}

	// Warm the preview cache for products already in the store so the
	// first alerts after a restart can attach photos.
	go func() {
		links, err := productRepo.Links(ctx)
		if err != nil {
			rootLogger.Warn("Image cache warmup skipped", "error", err.Error())
			return
		}
		images.Preload(ctx, links)
	}()

	dispatcher := pipeline.NewDispatcher(
		coordinator.Alerts(),
		bus,
		telegram,
		images,
		notifier.NewLogRecorder(notificationRepo),
		pipeline.DefaultDispatcherConfig(),
		logger.Component("dispatcher"),
	)

	// Workers
	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		batcher.Run(ctx)
	}()
	go func() {
		defer workers.Done()
		dispatcher.Run(ctx)
	}()

	// Watch cycle
	pageScraper := scraper.New(scraper.Config{
		BasketURL:   cfg.BasketURL,
		PageTimeout: cfg.ScrapeTimeout,
		Headless:    true,
	}, logger.Component("scraper"))

	watchService := service.NewWatchService(
		pageScraper, proxyPool, coordinator, images, cfg.BaseURL,
		logger.Component("watch"),
	)

	sched := scheduler.New(scheduler.Config{
		Schedule: cfg.ScrapeSchedule,
		Timeout:  cfg.ScrapeTimeout,
		Enabled:  cfg.ScrapeEnabled,
	}, watchService, logger.Component("scheduler"))
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Ops HTTP surface
	watchHandler := handler.NewWatchHandler(productRepo, notificationRepo, sched, proxyPool)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/api", func(r chi.Router) {
		watchHandler.RegisterRoutes(r)
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		rootLogger.Info("Ops server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	rootLogger.Info("Shutting down...")

	// Stop the schedule first so no new cycle starts, then let the
	// pipeline drain what is already queued.
	<-sched.Stop().Done()
	coordinator.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		rootLogger.Error("Server shutdown failed", "error", err.Error())
	}

	workers.Wait()
	cancel()
	rootLogger.Info("Shutdown complete")
}
