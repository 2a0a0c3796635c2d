package reconnect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/pkg/logger"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	require.NoError(t, logger.Init("error", "test"))
	return NewManager(cfg, logger.Get())
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	m := newTestManager(t, Config{
		MinBackoff:     1 * time.Second,
		MaxBackoff:     8 * time.Second,
		JitterFraction: -1, // disable jitter for deterministic delays
	})

	assert.Equal(t, 1*time.Second, m.RecordFailure())
	assert.Equal(t, 2*time.Second, m.RecordFailure())
	assert.Equal(t, 4*time.Second, m.RecordFailure())
	assert.Equal(t, 8*time.Second, m.RecordFailure())
	assert.Equal(t, 8*time.Second, m.RecordFailure())
	assert.Equal(t, 5, m.Failures())
}

func TestSuccessResetsBackoff(t *testing.T) {
	m := newTestManager(t, Config{
		MinBackoff:     1 * time.Second,
		MaxBackoff:     8 * time.Second,
		JitterFraction: -1,
	})

	m.RecordFailure()
	m.RecordFailure()
	m.RecordSuccess()

	assert.Equal(t, 0, m.Failures())
	assert.Equal(t, 1, m.Reconnects())
	assert.Equal(t, 1*time.Second, m.RecordFailure())
}

func TestJitterBounds(t *testing.T) {
	base := 10 * time.Second
	for i := 0; i < 100; i++ {
		d := withJitter(base, 0.2)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, 12*time.Second)
	}

	assert.Equal(t, base, withJitter(base, 0))
	assert.Equal(t, base, withJitter(base, 1.5))
}

func TestStale(t *testing.T) {
	m := newTestManager(t, Config{HeartbeatTimeout: 50 * time.Millisecond})

	// Never received a message: not stale.
	assert.False(t, m.Stale())

	m.RecordMessage()
	assert.False(t, m.Stale())
}

func TestDefaults(t *testing.T) {
	m := newTestManager(t, Config{})

	assert.Equal(t, 1*time.Second, m.Backoff())
	assert.Equal(t, 90*time.Second, m.HeartbeatTimeout())
}
