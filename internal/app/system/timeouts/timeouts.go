// Package timeouts provides centralized timeout values for store and
// handler operations. Short bounds single-document lookups (identity
// resolution), Medium bounds statement writes, Long bounds analytics scans.
package timeouts

import (
	"os"
	"sync"
	"time"
)

// Default timeout values.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
)

func get(d *time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return *d
}

// Ping returns the timeout for health checks.
func Ping() time.Duration { return get(&ping) }

// Short returns the timeout for single-document reads.
func Short() time.Duration { return get(&short) }

// Medium returns the timeout for writes.
func Medium() time.Duration { return get(&medium) }

// Long returns the timeout for scans and aggregations.
func Long() time.Duration { return get(&long) }

// Config holds timeout overrides. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// Configure applies the positive fields of cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	set(&ping, cfg.Ping)
	set(&short, cfg.Short)
	set(&medium, cfg.Medium)
	set(&long, cfg.Long)
}

func set(dst *time.Duration, d time.Duration) bool {
	if d <= 0 {
		return false
	}
	*dst = d
	return true
}

// Current returns the values in effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Medium: medium, Long: long}
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping, short, medium, long = DefaultPing, DefaultShort, DefaultMedium, DefaultLong
}

// ConfigureFromEnv reads MYSRE_TIMEOUT_{PING,SHORT,MEDIUM,LONG} as Go
// durations. Unparseable or non-positive values are ignored. Returns how
// many values were applied.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()

	targets := []struct {
		env string
		dst *time.Duration
	}{
		{"MYSRE_TIMEOUT_PING", &ping},
		{"MYSRE_TIMEOUT_SHORT", &short},
		{"MYSRE_TIMEOUT_MEDIUM", &medium},
		{"MYSRE_TIMEOUT_LONG", &long},
	}
	n := 0
	for _, t := range targets {
		v := os.Getenv(t.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && set(t.dst, d) {
			n++
		}
	}
	return n
}
