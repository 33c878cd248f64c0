// Package timeouts provides the operation budgets handlers and startup code
// wrap their storage calls in.
//
//   - Ping: health checks and connectivity verification
//   - Short: single-document reads and single-workgroup mutations
//   - Medium: listings and overviews
//   - Long: bulk membership changes, index reconciliation, startup work
//
// Values start at the defaults below and are replaced once at startup from
// the timeout_* configuration keys.
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

// Config holds timeout values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

var defaults = Config{
	Ping:   DefaultPing,
	Short:  DefaultShort,
	Medium: DefaultMedium,
	Long:   DefaultLong,
}

var (
	mu      sync.RWMutex
	current = defaults
)

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(current)
}

// Ping returns the health-check budget.
func Ping() time.Duration { return get(func(c Config) time.Duration { return c.Ping }) }

// Short returns the budget for single-document work.
func Short() time.Duration { return get(func(c Config) time.Duration { return c.Short }) }

// Medium returns the budget for listings.
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }

// Long returns the budget for multi-document work.
func Long() time.Duration { return get(func(c Config) time.Duration { return c.Long }) }

// Configure overrides the non-zero fields of cfg. Call it during startup
// before handlers are registered.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		current.Ping = cfg.Ping
	}
	if cfg.Short > 0 {
		current.Short = cfg.Short
	}
	if cfg.Medium > 0 {
		current.Medium = cfg.Medium
	}
	if cfg.Long > 0 {
		current.Long = cfg.Long
	}
}

// Reset restores the defaults. Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = defaults
}

// WithTimeout creates a context with timeout and returns a cancel function that
// logs a warning if the context was canceled due to deadline exceeded.
//
//	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "ensure registry admin")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
