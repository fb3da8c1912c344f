// Package engine owns the poller goroutine that drives every submitted
// HTTP and WebSocket request to completion: a pending-request queue, an
// active-transfer map, and a persisting-connection map, polled on a
// single internally managed goroutine so application code never needs
// its own I/O loop.
package engine

import (
	"log"
	"time"

	"golang.org/x/time/rate"
)

// Config controls one Engine instance. Grounded directly on
// facade/hioload.go's Config/DefaultConfig pair and its
// time.Duration-typed field convention.
type Config struct {
	// PollTimeout bounds how long the poll loop waits for a dispatched
	// transfer to complete before re-checking pending/persisting work.
	PollTimeout time.Duration

	// QueueCapacity caps the pending queue: Submit returns ErrQueueFull
	// once it holds this many unconsumed items. Zero means unbounded.
	QueueCapacity int

	// Logger receives "log, don't fail" diagnostics: unsolicited pongs,
	// unexpected control frames, and any other anomaly spec.md says to
	// log rather than propagate as an error. Defaults to log.Default().
	Logger *log.Logger

	// EnableMetrics registers Prometheus collectors at construction and
	// updates them as ResponseCodes are produced. Off by default.
	EnableMetrics bool

	// CPUAffinity pins the poller goroutine's OS thread to a single CPU
	// core via runtime.LockOSThread + the affinity package. Best-effort:
	// a failure to pin is logged, not fatal.
	CPUAffinity bool
	CPUCore     int

	// SubmitRateLimit, when non-nil, is consulted by Submit before
	// enqueueing: a submit the limiter does not allow right away returns
	// ErrQueueFull; Submit never waits for a token. Nil (the default)
	// means no rate limiting.
	SubmitRateLimit *rate.Limiter

	// ShutdownPollInterval is the granularity of Shutdown's spin-wait on
	// draining persisting connections. Defaults to PollTimeout.
	ShutdownPollInterval time.Duration
}

// DefaultConfig returns the baseline configuration used when New is
// called with nil.
func DefaultConfig() *Config {
	return &Config{
		PollTimeout:          50 * time.Millisecond,
		QueueCapacity:        0,
		Logger:               log.Default(),
		EnableMetrics:        false,
		CPUAffinity:          false,
		CPUCore:              0,
		SubmitRateLimit:      nil,
		ShutdownPollInterval: 50 * time.Millisecond,
	}
}
