package clickhouse

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureFlush struct {
	mu      sync.Mutex
	batches [][]interface{}
}

func (c *captureFlush) flush(_ context.Context, batch []interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
	return nil
}

func (c *captureFlush) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func TestBatchWriter_FlushesOnSize(t *testing.T) {
	capture := &captureFlush{}
	bw := NewBatchWriter(Config{
		FlushFunc:    capture.flush,
		TableName:    "trades",
		MaxBatchSize: 3,
		MaxAge:       time.Hour, // size is the only trigger here
	})

	ctx := context.Background()
	require.NoError(t, bw.Add(ctx, 1))
	require.NoError(t, bw.Add(ctx, 2))
	assert.Equal(t, 0, capture.count())

	require.NoError(t, bw.Add(ctx, 3))
	require.Equal(t, 1, capture.count())
	assert.Len(t, capture.batches[0], 3)
}

func TestBatchWriter_FlushEmptyIsNoop(t *testing.T) {
	capture := &captureFlush{}
	bw := NewBatchWriter(Config{FlushFunc: capture.flush, TableName: "trades"})

	require.NoError(t, bw.Flush(context.Background()))
	assert.Equal(t, 0, capture.count())
}

func TestBatchWriter_StopFlushesRemainder(t *testing.T) {
	capture := &captureFlush{}
	bw := NewBatchWriter(Config{
		FlushFunc:    capture.flush,
		TableName:    "trades",
		MaxBatchSize: 100,
		MaxAge:       time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bw.Start(ctx)

	require.NoError(t, bw.Add(ctx, "a"))
	require.NoError(t, bw.Add(ctx, "b"))

	bw.Stop()
	require.Equal(t, 1, capture.count())
	assert.Len(t, capture.batches[0], 2)
}
