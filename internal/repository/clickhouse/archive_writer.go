package clickhouse

import (
	"context"

	"argus/internal/domain/trade"
	chpkg "argus/pkg/clickhouse"
)

// BatchedArchive satisfies trade.Archive on top of the batch writer, so the
// pipeline stays on the fast path while inserts reach ClickHouse in chunks.
type BatchedArchive struct {
	writer *chpkg.BatchWriter
}

// NewBatchedArchive wires the archive repository behind a batch writer
func NewBatchedArchive(repo *TradeArchiveRepository) *BatchedArchive {
	writer := chpkg.NewBatchWriter(chpkg.Config{
		TableName: "trades",
		FlushFunc: func(ctx context.Context, batch []interface{}) error {
			trades := make([]trade.Trade, 0, len(batch))
			for _, item := range batch {
				if t, ok := item.(trade.Trade); ok {
					trades = append(trades, t)
				}
			}
			return repo.InsertBatch(ctx, trades)
		},
	})
	return &BatchedArchive{writer: writer}
}

// Start launches the background flush loop.
func (a *BatchedArchive) Start(ctx context.Context) {
	a.writer.Start(ctx)
}

// Stop flushes the remaining buffer and stops the loop.
func (a *BatchedArchive) Stop() {
	a.writer.Stop()
}

// Append buffers one trade for the next batch insert.
func (a *BatchedArchive) Append(ctx context.Context, t *trade.Trade) error {
	return a.writer.Add(ctx, *t)
}
