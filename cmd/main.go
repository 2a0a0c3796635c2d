package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"argus/internal/adapters/clickhouse"
	"argus/internal/adapters/config"
	"argus/internal/adapters/errors/noop"
	"argus/internal/adapters/errors/sentry"
	"argus/internal/adapters/kafka"
	"argus/internal/adapters/polymarket"
	"argus/internal/adapters/postgres"
	"argus/internal/adapters/redis"
	"argus/internal/adapters/telegram"
	"argus/internal/consumers"
	"argus/internal/domain/trade"
	"argus/internal/domain/userstate"
	"argus/internal/domain/window"
	"argus/internal/metrics"
	clickhouserepo "argus/internal/repository/clickhouse"
	postgresrepo "argus/internal/repository/postgres"
	redisrepo "argus/internal/repository/redis"
	"argus/internal/services/ingest"
	"argus/internal/services/pipeline"
	"argus/internal/services/report"
	"argus/internal/workers"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Databases
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer chClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Repositories
	tradeRepo := postgresrepo.NewRawTradeRepository(pgClient.DB())
	windowRepo := postgresrepo.NewWindowRepository(pgClient.DB())
	stateRepo := postgresrepo.NewUserStateRepository(pgClient.DB())
	archiveRepo := clickhouserepo.NewTradeArchiveRepository(chClient.Conn())
	sampler := redisrepo.NewMedianSampler(redisClient.Client(), cfg.Rules.MedianSampleSize)

	archive := clickhouserepo.NewBatchedArchive(archiveRepo)
	archive.Start(ctx)
	defer archive.Stop()

	// Kafka
	producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
	defer producer.Close()

	// Services
	aggregator := window.NewAggregator(windowRepo, cfg.Rules)
	tracker := userstate.NewTracker(stateRepo, cfg.Rules)
	pipe := pipeline.NewService(tradeRepo, archive, sampler, aggregator, tracker, producer, cfg.Rules)

	apiClient := polymarket.NewClient(cfg.DataAPI)
	ingestSvc := ingest.NewService(apiClient, pipe)
	reportSvc := report.NewService(apiClient, os.TempDir(), 0)

	// Telegram
	bot, err := telegram.NewBot(telegram.Config{
		Token: cfg.Telegram.BotToken,
		Debug: cfg.App.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}

	handler := telegram.NewHandler(bot, tracker, reportSvc, ingestSvc, archiveRepo, cfg.Telegram.AdminIDs)
	bot.SetMessageHandler(handler.HandleUpdate)

	go func() {
		if err := bot.Start(ctx); err != nil {
			log.Errorf("Telegram bot error: %v", err)
		}
	}()

	// Alert delivery
	notifier := telegram.NewNotifier(bot, cfg.Telegram.AlertChatID)
	alertConsumer := consumers.NewAlertNotificationConsumer(
		kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   kafka.TopicTradeAlerts,
		}),
		notifier,
	)
	go func() {
		if err := alertConsumer.Start(ctx); err != nil {
			log.Errorf("Alert consumer error: %v", err)
		}
	}()

	// Workers
	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(workers.NewFeedPollWorker(
		ingestSvc,
		cfg.Workers.FeedPollInterval,
		cfg.Workers.FeedBatchLimit,
		cfg.Workers.FeedPollEnabled,
	))
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Live feed (optional, duplicates fall out in the pipeline)
	if cfg.Workers.LiveFeedEnabled {
		feed := polymarket.NewFeed(cfg.DataAPI)
		feed.Start(ctx)
		defer feed.Stop()
		go drainFeed(ctx, feed.Out(), pipe, log)
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	log.Info("System initialized successfully")

	waitForShutdown(cancel, scheduler, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// drainFeed runs live-feed trades through the pipeline one at a time.
func drainFeed(ctx context.Context, out <-chan trade.Raw, pipe *pipeline.Service, log *logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-out:
			if !ok {
				return
			}
			if _, err := pipe.Process(ctx, raw); err != nil {
				log.Errorw("live feed trade failed", "error", err)
			}
		}
	}
}

func serveMetrics(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	log.Infow("Metrics server listening", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Errorf("Metrics server error: %v", err)
	}
}

// waitForShutdown blocks until SIGINT/SIGTERM, then unwinds cleanly.
func waitForShutdown(cancel context.CancelFunc, scheduler *workers.Scheduler, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Scheduler stop: %v", err)
	}

	if errorTracker != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := errorTracker.Flush(flushCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
		flushCancel()
	}

	log.Info("Shutdown complete")
}
