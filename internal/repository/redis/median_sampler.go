package redis

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"argus/pkg/errors"
)

const (
	sampleKeyPrefix = "argus:notional:"
	sampleTTL       = 90 * 24 * time.Hour
)

// MedianSampler keeps a rolling sample of each wallet's recent trade
// notionals in Redis and computes a real median from it. This replaces the
// bootstrap first-trade median: the stored sample is the wallet's recent
// history, trimmed to a fixed size.
type MedianSampler struct {
	rdb        *redis.Client
	sampleSize int
}

// NewMedianSampler creates a sampler keeping the last sampleSize notionals
func NewMedianSampler(rdb *redis.Client, sampleSize int) *MedianSampler {
	return &MedianSampler{rdb: rdb, sampleSize: sampleSize}
}

// Observe pushes one notional into the wallet's sample and returns the
// median over the retained values, including this one.
func (s *MedianSampler) Observe(ctx context.Context, wallet string, notional float64) (float64, error) {
	key := sampleKeyPrefix + wallet

	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, strconv.FormatFloat(notional, 'g', -1, 64))
	pipe.LTrim(ctx, key, 0, int64(s.sampleSize-1))
	pipe.Expire(ctx, key, sampleTTL)
	rangeCmd := pipe.LRange(ctx, key, 0, -1)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, "observe notional sample")
	}

	raw, err := rangeCmd.Result()
	if err != nil {
		return 0, errors.Wrap(err, "read notional sample")
	}

	values := make([]float64, 0, len(raw))
	for _, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue // skip corrupt entries rather than poisoning the median
		}
		values = append(values, f)
	}

	return Median(values), nil
}

// Median returns the median of values; 0 for an empty slice.
// Even-length inputs average the two middle values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
