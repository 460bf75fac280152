package stream

import (
	"fmt"
	"time"

	"github.com/ardnew/ft60x/pkg"
)

// Default engine parameters.
const (
	DefaultTargetDepth       = 8
	DefaultBufferSize        = 32 * 1024
	DefaultMaxRetries        = 3
	DefaultWaitTimeout       = 100 * time.Millisecond
	DefaultDrainTimeout      = 2 * time.Second
	DefaultBusyBackoff       = time.Millisecond
	DefaultTelemetryInterval = time.Second
	DefaultTelemetryBuckets  = 5

	// MaxBufferSize is the largest transfer buffer accepted by Validate.
	MaxBufferSize = 16 * 1024 * 1024
)

// TransientPolicy selects what the reactor does with a transfer that failed
// with a transient error.
type TransientPolicy int

// Transient error policies.
const (
	TransientDrop  TransientPolicy = iota // drop the chunk and count a loss
	TransientRetry                        // resubmit the same buffer and sequence number
)

// String returns the policy name.
func (p TransientPolicy) String() string {
	switch p {
	case TransientDrop:
		return "drop"
	case TransientRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Config holds engine parameters. Zero-valued fields take their defaults.
type Config struct {
	// TargetDepth is the number of transfers kept outstanding.
	TargetDepth int

	// BufferSize is the capacity of each transfer buffer in bytes.
	BufferSize int

	// PoolSize is the number of buffers. It bounds the reorder window and
	// must be at least TargetDepth. Defaults to twice TargetDepth.
	PoolSize int

	// Transient selects drop or retry for transient transfer errors.
	Transient TransientPolicy

	// MaxRetries bounds resubmissions of one chunk under TransientRetry.
	MaxRetries int

	// WaitTimeout bounds each reactor wait so stop requests and busy
	// retries are observed promptly.
	WaitTimeout time.Duration

	// DrainTimeout bounds how long Stop waits for outstanding transfers.
	DrainTimeout time.Duration

	// BusyBackoff is the reactor wait after the controller reported busy
	// with nothing outstanding.
	BusyBackoff time.Duration

	// TelemetryInterval is the width of one telemetry bucket.
	TelemetryInterval time.Duration

	// TelemetryBuckets is the number of buckets in the rolling window.
	TelemetryBuckets int

	// PinReactor locks the reactor goroutine to an OS thread bound to
	// ReactorCPU. Linux only.
	PinReactor bool
	ReactorCPU int

	// Ready is called once before any buffer is allocated. A non-nil error
	// aborts Start with a *ConfigError. Device configuration uses it to
	// confirm FIFO mode and channel layout.
	Ready func() error
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.TargetDepth == 0 {
		c.TargetDepth = DefaultTargetDepth
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.PoolSize == 0 {
		c.PoolSize = 2 * c.TargetDepth
	}
	if c.MaxRetries == 0 && c.Transient == TransientRetry {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.WaitTimeout == 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.BusyBackoff == 0 {
		c.BusyBackoff = DefaultBusyBackoff
	}
	if c.TelemetryInterval == 0 {
		c.TelemetryInterval = DefaultTelemetryInterval
	}
	if c.TelemetryBuckets == 0 {
		c.TelemetryBuckets = DefaultTelemetryBuckets
	}
	return c
}

// Validate checks the configuration after defaults have been applied.
func (c Config) Validate() error {
	switch {
	case c.TargetDepth < 1:
		return &ConfigError{Field: "TargetDepth", Err: fmt.Errorf("%w: %d < 1", pkg.ErrInvalidParameter, c.TargetDepth)}
	case c.BufferSize < 1 || c.BufferSize > MaxBufferSize:
		return &ConfigError{Field: "BufferSize", Err: fmt.Errorf("%w: %d outside [1, %d]", pkg.ErrInvalidParameter, c.BufferSize, MaxBufferSize)}
	case c.PoolSize < c.TargetDepth:
		return &ConfigError{Field: "PoolSize", Err: fmt.Errorf("%w: %d < target depth %d", pkg.ErrInvalidParameter, c.PoolSize, c.TargetDepth)}
	case c.Transient != TransientDrop && c.Transient != TransientRetry:
		return &ConfigError{Field: "Transient", Err: fmt.Errorf("%w: policy %d", pkg.ErrInvalidParameter, c.Transient)}
	case c.MaxRetries < 0:
		return &ConfigError{Field: "MaxRetries", Err: fmt.Errorf("%w: %d < 0", pkg.ErrInvalidParameter, c.MaxRetries)}
	case c.WaitTimeout < 0, c.DrainTimeout < 0, c.BusyBackoff < 0, c.TelemetryInterval < 0:
		return &ConfigError{Field: "timeouts", Err: fmt.Errorf("%w: negative duration", pkg.ErrInvalidParameter)}
	case c.TelemetryBuckets < 1:
		return &ConfigError{Field: "TelemetryBuckets", Err: fmt.Errorf("%w: %d < 1", pkg.ErrInvalidParameter, c.TelemetryBuckets)}
	case c.PinReactor && c.ReactorCPU < 0:
		return &ConfigError{Field: "ReactorCPU", Err: fmt.Errorf("%w: %d < 0", pkg.ErrInvalidParameter, c.ReactorCPU)}
	}
	return nil
}
