package recorder

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-sdi12/logger"
	"github.com/arloliu/go-sdi12/sdi12"
)

// Default values.
const (
	DefaultRetryLimit = 3 // retries after the first attempt

	DefaultRetryDelay       = sdi12.RetryWaitMin
	DefaultResponseMargin   = 50 * time.Millisecond // serial driver and USB adapter latency
	DefaultInterByteTimeout = 0                     // disabled
	DefaultBusQueueSize     = 16

	DefaultName = "sdi12"
)

// Range limits.
const (
	MaxRetryLimit = 20

	MaxRetryDelay = 10 * time.Second

	MaxResponseMargin = 5 * time.Second

	MinInterByteTimeout = sdi12.ByteDuration + sdi12.InterCharacterMarkingMax
	MaxInterByteTimeout = 5 * time.Second

	MaxBusQueueSize = 1024
)

// BreakPolicy decides when the first attempt of a transaction is preceded
// by a break. Retries follow Config.RetryBreak.
type BreakPolicy uint8

const (
	// BreakWhenIdle sends a break unless the previous transaction succeeded
	// with the same sensor and ended no more than PreCommandBreakThreshold ago.
	BreakWhenIdle BreakPolicy = iota
	// BreakAlways sends a break before every command.
	BreakAlways
)

func (p BreakPolicy) String() string {
	switch p {
	case BreakWhenIdle:
		return "WhenIdle"
	case BreakAlways:
		return "Always"
	default:
		return "Unknown"
	}
}

var errNilClock = errors.New("recorder: clock is nil")

// Config holds the configuration of a Recorder.
type Config struct {
	name string

	retryLimit        int
	retryDelay        time.Duration
	retryBreak        bool
	retryOnValidation bool
	breakPolicy       BreakPolicy

	responseMargin   time.Duration
	interByteTimeout time.Duration

	busQueueSize int

	clock  Clock
	logger logger.Logger
}

// NewConfig creates a Recorder configuration.
//
// opts are functional options applied in order; see With* functions.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		name:             DefaultName,
		retryLimit:       DefaultRetryLimit,
		retryDelay:       DefaultRetryDelay,
		retryBreak:       true,
		breakPolicy:      BreakWhenIdle,
		responseMargin:   DefaultResponseMargin,
		interByteTimeout: DefaultInterByteTimeout,
		busQueueSize:     DefaultBusQueueSize,
		clock:            SystemClock{},
		logger:           logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// Name returns the bus name used in logs and metrics.
func (cfg *Config) Name() string { return cfg.name }

// RetryLimit returns the number of retries after the first attempt.
func (cfg *Config) RetryLimit() int { return cfg.retryLimit }

// RetryDelay returns the wait between a failed attempt and its retry.
func (cfg *Config) RetryDelay() time.Duration { return cfg.retryDelay }

// RetryBreak reports whether every retry starts with a fresh break.
func (cfg *Config) RetryBreak() bool { return cfg.retryBreak }

// RetryOnValidationError reports whether address, CRC and framing errors are retried.
func (cfg *Config) RetryOnValidationError() bool { return cfg.retryOnValidation }

// BreakPolicy returns the break policy of first attempts.
func (cfg *Config) BreakPolicy() BreakPolicy { return cfg.breakPolicy }

// ResponseMargin returns the time added to every command's response deadline.
func (cfg *Config) ResponseMargin() time.Duration { return cfg.responseMargin }

// InterByteTimeout returns the longest silence tolerated once a response has
// started, or 0 when only the overall deadline applies.
func (cfg *Config) InterByteTimeout() time.Duration { return cfg.interByteTimeout }

// BusQueueSize returns the request queue capacity of a Bus.
func (cfg *Config) BusQueueSize() int { return cfg.busQueueSize }

// Clock returns the time base.
func (cfg *Config) Clock() Clock { return cfg.clock }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithName sets the bus name used in log fields and metric labels.
func WithName(name string) Option {
	return optFunc(func(cfg *Config) error {
		if name == "" {
			return errors.New("recorder: empty name")
		}
		cfg.name = name

		return nil
	})
}

// WithRetryLimit sets how many times a failed attempt is retried (0 to 20).
func WithRetryLimit(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 0 || n > MaxRetryLimit {
			return fmt.Errorf("recorder: retry limit %d out of range [0, %d]", n, MaxRetryLimit)
		}
		cfg.retryLimit = n

		return nil
	})
}

// WithRetryDelay sets the wait before each retry.
func WithRetryDelay(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxRetryDelay {
			return fmt.Errorf("recorder: retry delay %v out of range [0, %v]", d, MaxRetryDelay)
		}
		cfg.retryDelay = d

		return nil
	})
}

// WithRetryBreak sets whether every retry starts with a fresh break. The
// default is true. When false, a retry still breaks if more than
// RetryWaitMaxNoBreak passed since the line was last active.
func WithRetryBreak(enable bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.retryBreak = enable
		return nil
	})
}

// WithRetryOnValidationError sets whether address mismatches, CRC errors
// and framing errors are retried like timeouts.
func WithRetryOnValidationError(enable bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.retryOnValidation = enable
		return nil
	})
}

// WithBreakPolicy sets when first attempts are preceded by a break.
func WithBreakPolicy(p BreakPolicy) Option {
	return optFunc(func(cfg *Config) error {
		if p != BreakWhenIdle && p != BreakAlways {
			return fmt.Errorf("recorder: unknown break policy %d", p)
		}
		cfg.breakPolicy = p

		return nil
	})
}

// WithResponseMargin sets the slack added to every response deadline.
func WithResponseMargin(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxResponseMargin {
			return fmt.Errorf("recorder: response margin %v out of range [0, %v]", d, MaxResponseMargin)
		}
		cfg.responseMargin = d

		return nil
	})
}

// WithInterByteTimeout sets the longest silence allowed inside a response.
// 0 disables the check.
func WithInterByteTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d != 0 && (d < MinInterByteTimeout || d > MaxInterByteTimeout) {
			return fmt.Errorf("recorder: inter-byte timeout %v out of range [%v, %v]",
				d, MinInterByteTimeout, MaxInterByteTimeout)
		}
		cfg.interByteTimeout = d

		return nil
	})
}

// WithBusQueueSize sets the request queue capacity of a Bus.
func WithBusQueueSize(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 0 || n > MaxBusQueueSize {
			return fmt.Errorf("recorder: bus queue size %d out of range [0, %d]", n, MaxBusQueueSize)
		}
		cfg.busQueueSize = n

		return nil
	})
}

// WithClock replaces the time base, mainly for tests.
func WithClock(c Clock) Option {
	return optFunc(func(cfg *Config) error {
		if c == nil {
			return errNilClock
		}
		cfg.clock = c

		return nil
	})
}

// WithLogger sets the logger. A nil l keeps the package default logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l != nil {
			cfg.logger = l
		}

		return nil
	})
}

// --- TxOption ---

// TxOption adjusts a single transaction.
type TxOption func(*txOptions)

type txOptions struct {
	timeout      time.Duration
	expectCRC    bool
	expectCRCSet bool
	forceBreak   bool
}

// WithTimeout replaces the response deadline of the command.
func WithTimeout(d time.Duration) TxOption {
	return func(o *txOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithExpectCRC overrides whether the ASCII response carries a CRC.
// Binary packets always carry one.
func WithExpectCRC(expect bool) TxOption {
	return func(o *txOptions) {
		o.expectCRC = expect
		o.expectCRCSet = true
	}
}

// WithForceBreak sends a break before the first attempt regardless of the
// break policy.
func WithForceBreak() TxOption {
	return func(o *txOptions) { o.forceBreak = true }
}
