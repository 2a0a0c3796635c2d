package reconnect

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"argus/pkg/logger"
)

// Manager tracks the health of a long-lived stream connection and computes
// retry delays. It is transport-agnostic: the owner calls RecordFailure
// after a failed connect, RecordSuccess after a successful one, and
// RecordMessage on every inbound frame so staleness can be detected.
type Manager struct {
	minBackoff       time.Duration
	maxBackoff       time.Duration
	multiplier       float64
	jitterFraction   float64
	heartbeatTimeout time.Duration

	mu         sync.Mutex
	current    time.Duration
	failures   int
	reconnects int

	lastMessage atomic.Int64 // unix seconds

	log *logger.Logger
}

// Config configures a Manager. Zero fields fall back to defaults suitable
// for a public WebSocket endpoint.
type Config struct {
	MinBackoff       time.Duration // first retry delay, default 1s
	MaxBackoff       time.Duration // delay cap, default 60s
	Multiplier       float64       // growth factor per failure, default 2.0
	JitterFraction   float64       // 0..1 extra random delay, default 0.2
	HeartbeatTimeout time.Duration // max silence before Stale, default 90s
}

func NewManager(cfg Config, log *logger.Logger) *Manager {
	if cfg.MinBackoff == 0 {
		cfg.MinBackoff = 1 * time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 60 * time.Second
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction == 0 {
		cfg.JitterFraction = 0.2
	}
	if cfg.HeartbeatTimeout == 0 {
		cfg.HeartbeatTimeout = 90 * time.Second
	}

	return &Manager{
		minBackoff:       cfg.MinBackoff,
		maxBackoff:       cfg.MaxBackoff,
		multiplier:       cfg.Multiplier,
		jitterFraction:   cfg.JitterFraction,
		heartbeatTimeout: cfg.HeartbeatTimeout,
		current:          cfg.MinBackoff,
		log:              log,
	}
}

// RecordFailure advances the backoff schedule and returns the delay to wait
// before the next attempt, with jitter applied.
func (m *Manager) RecordFailure() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++
	delay := m.current

	next := time.Duration(float64(m.current) * m.multiplier)
	if next > m.maxBackoff {
		next = m.maxBackoff
	}
	m.current = next

	return withJitter(delay, m.jitterFraction)
}

// RecordSuccess resets the backoff schedule after a connection is
// established.
func (m *Manager) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.log.Infow("connection restored", "failures_before_success", m.failures)
	}

	m.current = m.minBackoff
	m.failures = 0
	m.reconnects++
	m.lastMessage.Store(time.Now().Unix())
}

// RecordMessage marks the connection as alive.
func (m *Manager) RecordMessage() {
	m.lastMessage.Store(time.Now().Unix())
}

// Stale reports whether the connection has been silent longer than the
// heartbeat timeout. A connection that never delivered a message is not
// stale: the read deadline covers that window.
func (m *Manager) Stale() bool {
	last := m.lastMessage.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(last, 0)) > m.heartbeatTimeout
}

// HeartbeatTimeout is the configured max silence window, exposed so owners
// can align read deadlines with staleness detection.
func (m *Manager) HeartbeatTimeout() time.Duration {
	return m.heartbeatTimeout
}

// Backoff returns the delay the next failure would incur, without jitter.
func (m *Manager) Backoff() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Failures returns the consecutive failure count since the last success.
func (m *Manager) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// Reconnects returns the number of successful (re)connections.
func (m *Manager) Reconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnects
}

// withJitter spreads retries out so parallel consumers do not reconnect in
// lockstep after an upstream outage.
func withJitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || fraction > 1 {
		return d
	}
	return d + time.Duration(rand.Float64()*fraction*float64(d))
}
