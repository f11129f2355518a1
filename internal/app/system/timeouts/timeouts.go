// Package timeouts provides centralized timeout values for I/O.
//
// Every database call wraps its context with one of these:
//   - Ping: health checks
//   - Short: single-document reads and conditional writes
//   - Medium: list and aggregate queries
//   - Upload: object-store writes of captured photos
//
// Values can be overridden once at startup with Configure.
package timeouts

import (
	"sync/atomic"
	"time"
)

// Defaults used until Configure is called.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultUpload = 30 * time.Second
)

var (
	ping   atomic.Int64
	short  atomic.Int64
	medium atomic.Int64
	upload atomic.Int64
)

func init() { Reset() }

func Ping() time.Duration   { return time.Duration(ping.Load()) }
func Short() time.Duration  { return time.Duration(short.Load()) }
func Medium() time.Duration { return time.Duration(medium.Load()) }
func Upload() time.Duration { return time.Duration(upload.Load()) }

// Config holds override values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Upload time.Duration
}

// Configure applies non-zero overrides.
func Configure(cfg Config) {
	set := func(dst *atomic.Int64, d time.Duration) {
		if d > 0 {
			dst.Store(int64(d))
		}
	}
	set(&ping, cfg.Ping)
	set(&short, cfg.Short)
	set(&medium, cfg.Medium)
	set(&upload, cfg.Upload)
}

// Reset restores the defaults.
func Reset() {
	ping.Store(int64(DefaultPing))
	short.Store(int64(DefaultShort))
	medium.Store(int64(DefaultMedium))
	upload.Store(int64(DefaultUpload))
}
