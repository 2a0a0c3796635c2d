package workers

import (
	"context"
	"time"

	"argus/internal/services/ingest"
)

// FeedPollWorker polls the Data API global trade feed on an interval and
// pushes every batch through the processing pipeline. Poll overlap is
// harmless: the pipeline drops duplicates by dedup ID.
type FeedPollWorker struct {
	*BaseWorker
	ingest     *ingest.Service
	batchLimit int
}

// NewFeedPollWorker creates the feed polling worker
func NewFeedPollWorker(svc *ingest.Service, interval time.Duration, batchLimit int, enabled bool) *FeedPollWorker {
	return &FeedPollWorker{
		BaseWorker: NewBaseWorker("feed_poll", interval, enabled),
		ingest:     svc,
		batchLimit: batchLimit,
	}
}

// Run performs one poll iteration.
func (w *FeedPollWorker) Run(ctx context.Context) error {
	start := time.Now()

	stats, err := w.ingest.PollOnce(ctx, w.batchLimit)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return err
	}

	w.RecordRun(time.Since(start))
	w.Log().Debugw("feed poll iteration done",
		"fetched", stats.Fetched,
		"processed", stats.Processed,
		"duplicates", stats.Duplicates,
		"rejected", stats.Rejected,
	)
	return nil
}
