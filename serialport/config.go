package serialport

import (
	"fmt"
	"time"

	"github.com/arloliu/go-sdi12/logger"
	"github.com/arloliu/go-sdi12/sdi12"
)

// Default values.
const (
	DefaultBaudRate = sdi12.BaudRate
	// DefaultEchoMargin is added to the transmit time when waiting for the
	// looped-back copy of a command.
	DefaultEchoMargin = 50 * time.Millisecond

	MinBaudRate = 300
	MaxBaudRate = 115200
)

type config struct {
	baudRate     int
	discardInput bool
	echoCancel   bool
	dtr          bool
	rts          bool
	logger       logger.Logger
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		baudRate:     DefaultBaudRate,
		discardInput: true,
		dtr:          true,
		rts:          true,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for configuring a Port.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithBaudRate overrides the line rate. Sensors only speak 1200 baud; other
// rates are for bench rigs and simulators.
func WithBaudRate(rate int) Option {
	return optFunc(func(cfg *config) error {
		if rate < MinBaudRate || rate > MaxBaudRate {
			return fmt.Errorf("serialport: baud rate %d out of range [%d, %d]", rate, MinBaudRate, MaxBaudRate)
		}
		cfg.baudRate = rate

		return nil
	})
}

// WithDiscardInput sets whether bytes received before a command are
// dropped. The default is true.
func WithDiscardInput(enable bool) Option {
	return optFunc(func(cfg *config) error {
		cfg.discardInput = enable
		return nil
	})
}

// WithEchoCancel makes Write consume the copy of every transmitted byte
// that single-wire adapters loop back to the receiver.
func WithEchoCancel(enable bool) Option {
	return optFunc(func(cfg *config) error {
		cfg.echoCancel = enable
		return nil
	})
}

// WithModemBits sets the DTR and RTS outputs applied when the port is
// opened. Some interfaces power the bus or select the transmit direction
// with them. Both default to true.
func WithModemBits(dtr, rts bool) Option {
	return optFunc(func(cfg *config) error {
		cfg.dtr = dtr
		cfg.rts = rts

		return nil
	})
}

// WithLogger sets the logger. A nil l keeps the package default logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l != nil {
			cfg.logger = l
		}

		return nil
	})
}
