package ingest

import (
	"context"

	"argus/internal/domain/trade"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// Fetcher pulls raw trades from the Data API.
type Fetcher interface {
	FetchLatestTrades(ctx context.Context, limit int) ([]trade.Raw, error)
	FetchMarketTrades(ctx context.Context, conditionID string, maxTrades int) ([]trade.Raw, error)
}

// Pipeline processes fetched batches.
type Pipeline interface {
	ProcessBatch(ctx context.Context, raws []trade.Raw) (processed, duplicates, rejected int, err error)
}

// Stats counts one ingestion pass.
type Stats struct {
	Fetched    int
	Processed  int
	Duplicates int
	Rejected   int
}

// Service feeds Data API trades into the processing pipeline. Used by the
// polling worker for the global feed and by operator commands for per-market
// backfills.
type Service struct {
	fetcher  Fetcher
	pipeline Pipeline
	log      *logger.Logger
}

// NewService creates an ingest service
func NewService(fetcher Fetcher, pipeline Pipeline) *Service {
	return &Service{
		fetcher:  fetcher,
		pipeline: pipeline,
		log:      logger.Get().With("service", "ingest"),
	}
}

// PollOnce fetches the latest global trades and runs them through the
// pipeline. Overlap between polls is expected; dedup downstream makes the
// operation idempotent.
func (s *Service) PollOnce(ctx context.Context, limit int) (Stats, error) {
	raws, err := s.fetcher.FetchLatestTrades(ctx, limit)
	if err != nil {
		return Stats{}, errors.Wrap(err, "fetch latest trades")
	}

	processed, duplicates, rejected, err := s.pipeline.ProcessBatch(ctx, raws)
	stats := Stats{
		Fetched:    len(raws),
		Processed:  processed,
		Duplicates: duplicates,
		Rejected:   rejected,
	}
	if err != nil {
		return stats, errors.Wrap(err, "process fetched batch")
	}

	if stats.Processed > 0 {
		s.log.Infow("feed poll complete",
			"fetched", stats.Fetched,
			"processed", stats.Processed,
			"duplicates", stats.Duplicates,
			"rejected", stats.Rejected,
		)
	}
	return stats, nil
}

// BackfillMarket ingests one market's full trade history through the
// pipeline. Already-seen trades fall out as duplicates.
func (s *Service) BackfillMarket(ctx context.Context, conditionID string, maxTrades int) (Stats, error) {
	if conditionID == "" {
		return Stats{}, errors.Wrap(errors.ErrInvalidInput, "backfill: empty condition id")
	}

	raws, err := s.fetcher.FetchMarketTrades(ctx, conditionID, maxTrades)
	if err != nil {
		return Stats{}, errors.Wrap(err, "fetch market trades")
	}

	processed, duplicates, rejected, err := s.pipeline.ProcessBatch(ctx, raws)
	stats := Stats{
		Fetched:    len(raws),
		Processed:  processed,
		Duplicates: duplicates,
		Rejected:   rejected,
	}
	if err != nil {
		return stats, errors.Wrap(err, "process backfill batch")
	}

	s.log.Infow("market backfill complete",
		"condition_id", conditionID,
		"fetched", stats.Fetched,
		"processed", stats.Processed,
		"duplicates", stats.Duplicates,
	)
	return stats, nil
}
