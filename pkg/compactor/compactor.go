// Package compactor flushes an audit store in the background once enough of
// its space is held by disposed records.
package compactor

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/flashaudit/internal/logger"
	"github.com/marmos91/flashaudit/pkg/audit"
)

// Store is the part of *audit.Store the compactor drives.
type Store interface {
	Analyze() (*audit.Usage, error)
	Flush() (audit.FlushResult, error)
	NeedsFlush() bool
}

// Config holds compactor settings.
type Config struct {
	// Interval between usage checks.
	// Default: 30s
	Interval time.Duration

	// Threshold is the reclaimable fraction of capacity that triggers a
	// flush. See audit.Usage.NeedsFlush.
	// Default: 0.25
	Threshold float64
}

// DefaultConfig returns the defaults used by the serve command.
func DefaultConfig() Config {
	return Config{
		Interval:  30 * time.Second,
		Threshold: 0.25,
	}
}

// Stats summarizes compactor activity.
type Stats struct {
	Checks         int       `json:"checks" yaml:"checks"`
	Flushes        int       `json:"flushes" yaml:"flushes"`
	Failures       int       `json:"failures" yaml:"failures"`
	PagesErased    int       `json:"pages_erased" yaml:"pages_erased"`
	BytesReclaimed uint64    `json:"bytes_reclaimed" yaml:"bytes_reclaimed"`
	LastFlushAt    time.Time `json:"last_flush_at,omitzero" yaml:"last_flush_at,omitempty"`
	LastError      string    `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	LastErrorAt    time.Time `json:"last_error_at,omitzero" yaml:"last_error_at,omitempty"`
}

// Compactor runs periodic checks on one store. Checks go through the store's
// public methods and so are serialized with foreground callers.
type Compactor struct {
	store Store
	cfg   Config

	trigger   chan struct{}
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	stats   Stats
}

// New creates a compactor. Zero config fields take their defaults.
func New(store Store, cfg Config) *Compactor {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}

	return &Compactor{
		store:     store,
		cfg:       cfg,
		trigger:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the check loop. It returns immediately; calling it twice
// has no effect.
func (c *Compactor) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	logger.Info("Starting audit compactor",
		logger.KeyInterval, c.cfg.Interval.String(),
		logger.KeyThreshold, c.cfg.Threshold)

	go c.loop(ctx)
}

// Stop ends the loop and waits up to timeout for a running check to finish.
// It reports whether the loop exited in time.
func (c *Compactor) Stop(timeout time.Duration) bool {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return true
	}
	c.stopped = true
	c.mu.Unlock()

	close(c.stopCh)

	select {
	case <-c.stoppedCh:
		logger.Info("Audit compactor stopped")
		return true
	case <-time.After(timeout):
		logger.Warn("Audit compactor stop timed out", logger.KeyInterval, timeout.String())
		return false
	}
}

// Trigger requests a check without waiting for the next tick. It never
// blocks; requests made while one is pending are coalesced.
func (c *Compactor) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Stats returns a snapshot of the counters.
func (c *Compactor) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Compactor) loop(ctx context.Context) {
	defer close(c.stoppedCh)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.trigger:
		}
		_, _ = c.RunOnce()
	}
}

// RunOnce performs one check: it flushes when an add is waiting on a flush
// or when reclaimable space reaches the threshold. Failures are recorded in
// Stats and returned.
func (c *Compactor) RunOnce() (flushed bool, err error) {
	c.mu.Lock()
	c.stats.Checks++
	c.mu.Unlock()

	if !c.store.NeedsFlush() {
		usage, err := c.store.Analyze()
		if err != nil {
			c.fail("Audit usage check failed", err)
			return false, err
		}
		if !usage.NeedsFlush(c.cfg.Threshold) {
			logger.Debug("Audit compaction not needed",
				logger.KeyReclaimable, usage.ReclaimableBytes,
				logger.KeyThreshold, c.cfg.Threshold)
			return false, nil
		}
	}

	res, err := c.store.Flush()
	if err != nil {
		c.fail("Audit compaction failed", err)
		return false, err
	}

	c.mu.Lock()
	c.stats.Flushes++
	c.stats.PagesErased += res.PagesErased
	c.stats.BytesReclaimed += res.BytesReclaimed
	c.stats.LastFlushAt = time.Now()
	c.mu.Unlock()
	return true, nil
}

func (c *Compactor) fail(msg string, err error) {
	c.mu.Lock()
	c.stats.Failures++
	c.stats.LastError = err.Error()
	c.stats.LastErrorAt = time.Now()
	c.mu.Unlock()

	logger.Error(msg, logger.KeyError, err)
}
