package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"argus/internal/adapters/clickhouse"
	"argus/internal/adapters/config"
	"argus/internal/adapters/kafka"
	"argus/internal/adapters/polymarket"
	"argus/internal/adapters/postgres"
	"argus/internal/adapters/redis"
	"argus/internal/domain/userstate"
	"argus/internal/domain/window"
	"argus/internal/metrics"
	clickhouserepo "argus/internal/repository/clickhouse"
	postgresrepo "argus/internal/repository/postgres"
	redisrepo "argus/internal/repository/redis"
	"argus/internal/services/ingest"
	"argus/internal/services/pipeline"
	"argus/pkg/logger"
)

// Backfills one market's complete trade history through the processing
// pipeline. Re-runs are safe: trades already ingested come out as
// duplicates.
//
// Usage:
//
//	go run ./cmd/backfill --market 0x1234... [--max 100000] [--no-alerts]
func main() {
	conditionID := flag.String("market", "", "Condition ID of the market to backfill")
	maxTrades := flag.Int("max", 0, "Maximum trades to ingest (0 = all)")
	noAlerts := flag.Bool("no-alerts", false, "Skip alert publishing during backfill")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()

	if *conditionID == "" {
		log.Fatal("--market is required")
	}

	metrics.Init()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	tradeRepo := postgresrepo.NewRawTradeRepository(pgClient.DB())
	windowRepo := postgresrepo.NewWindowRepository(pgClient.DB())
	stateRepo := postgresrepo.NewUserStateRepository(pgClient.DB())
	sampler := redisrepo.NewMedianSampler(redisClient.Client(), cfg.Rules.MedianSampleSize)

	archive := clickhouserepo.NewBatchedArchive(clickhouserepo.NewTradeArchiveRepository(chClient.Conn()))
	archive.Start(ctx)
	defer archive.Stop()

	var publisher pipeline.Publisher
	if *noAlerts {
		publisher = discardPublisher{}
	} else {
		producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		defer producer.Close()
		publisher = producer
	}

	pipe := pipeline.NewService(
		tradeRepo,
		archive,
		sampler,
		window.NewAggregator(windowRepo, cfg.Rules),
		userstate.NewTracker(stateRepo, cfg.Rules),
		publisher,
		cfg.Rules,
	)

	ingestSvc := ingest.NewService(polymarket.NewClient(cfg.DataAPI), pipe)

	stats, err := ingestSvc.BackfillMarket(ctx, *conditionID, *maxTrades)
	if err != nil {
		log.Errorf("Backfill failed: %v", err)
		os.Exit(1)
	}

	log.Infow("Backfill finished",
		"market", *conditionID,
		"fetched", stats.Fetched,
		"processed", stats.Processed,
		"duplicates", stats.Duplicates,
		"rejected", stats.Rejected,
	)
}

// discardPublisher drops alert events, used for historical backfills where
// alerting on old trades would be noise.
type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, string, interface{}) error {
	return nil
}
