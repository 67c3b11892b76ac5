package recorder

import (
	"errors"
	"time"

	"github.com/arloliu/go-sdi12/logger"
	"github.com/arloliu/go-sdi12/sdi12"
)

// ErrNilPort is returned by New when no port is given.
var ErrNilPort = errors.New("recorder: port is nil")

// Recorder is the host side of one SDI-12 bus: it sends commands and
// collects validated responses over a Port.
//
// A Recorder is NOT goroutine-safe. SDI-12 is a shared single wire, so only
// one transaction may be in flight per bus; use a Bus to share a Recorder
// between goroutines. A Recorder owns no buffers beyond a single call.
type Recorder struct {
	port   Port
	cfg    *Config
	clock  Clock
	logger logger.Logger

	state   atomicState
	metrics *Metrics

	// Line activity, used to decide whether a break is needed. lastActivity
	// is the time of the last break, command or response byte.
	lastActivity time.Time
	lastAddr     sdi12.Address
	lastOK       bool

	// crcPending records, per address, whether the last measurement started
	// there asked for CRC-protected data, so that aDn! knows what to expect.
	crcPending [128]bool
}

// New creates a Recorder driving port.
func New(port Port, opts ...Option) (*Recorder, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	return NewWithConfig(port, cfg)
}

// NewWithConfig creates a Recorder from a prepared Config.
func NewWithConfig(port Port, cfg *Config) (*Recorder, error) {
	if port == nil {
		return nil, ErrNilPort
	}

	if cfg == nil {
		return nil, errors.New("recorder: config is nil")
	}

	r := &Recorder{
		port:    port,
		cfg:     cfg,
		clock:   cfg.clock,
		logger:  cfg.logger.With("bus", cfg.name),
		metrics: newMetrics(),
	}
	r.state.Set(StateIdle)

	return r, nil
}

// State returns the state of the current or last transaction.
// It is safe to call from any goroutine.
func (r *Recorder) State() State { return r.state.Get() }

// Metrics returns the counters of this bus. They are safe to read from any goroutine.
func (r *Recorder) Metrics() *Metrics { return r.metrics }

// Config returns the configuration.
func (r *Recorder) Config() *Config { return r.cfg }

// GetLogger returns the logger, annotated with the bus name.
func (r *Recorder) GetLogger() logger.Logger { return r.logger }

// Reset forgets line activity and per-sensor CRC expectations, so that the
// next transaction starts with a break. Use it after the bus was disturbed
// outside the Recorder, e.g. sensors were power-cycled.
func (r *Recorder) Reset() {
	r.lastActivity = time.Time{}
	r.lastAddr = 0
	r.lastOK = false
	r.crcPending = [128]bool{}
	r.state.Set(StateIdle)
}

func (r *Recorder) setState(s State) {
	prev := r.state.Get()
	r.state.Set(s)

	if prev != s {
		r.logger.Debug("sdi12: state changed", "from", prev.String(), "to", s.String())
	}
}

// needBreak decides whether the attempt must start with a break.
func (r *Recorder) needBreak(cmd sdi12.Command, retry bool, tx *txOptions) bool {
	if r.lastActivity.IsZero() {
		return true
	}

	idle := r.clock.Now().Sub(r.lastActivity)

	if retry {
		return r.cfg.retryBreak || idle > sdi12.RetryWaitMaxNoBreak
	}

	if tx.forceBreak || r.cfg.breakPolicy == BreakAlways {
		return true
	}

	return !r.lastOK || r.lastAddr != cmd.Address() || idle > sdi12.PreCommandBreakThreshold
}

// expectCRC decides whether the ASCII response to cmd carries a CRC.
func (r *Recorder) expectCRC(cmd sdi12.Command, tx *txOptions) bool {
	if tx.expectCRCSet {
		return tx.expectCRC
	}

	switch cmd.Kind() {
	case sdi12.KindSendData:
		return r.crcPending[cmd.Address()&0x7F]
	case sdi12.KindContinuousCRC, sdi12.KindIdentifyParameter:
		return cmd.CRCRequested()
	default:
		return false
	}
}

// noteSuccess updates line and sensor state after a validated response.
func (r *Recorder) noteSuccess(cmd sdi12.Command, p sdi12.Payload) {
	r.lastOK = true
	r.lastAddr = p.Address

	switch {
	case cmd.Kind().IsMeasurementStart():
		r.crcPending[cmd.Address()&0x7F] = cmd.CRCRequested()
	case cmd.Kind() == sdi12.KindChangeAddress:
		pending := r.crcPending[cmd.Address()&0x7F]
		r.crcPending[cmd.Address()&0x7F] = false
		r.crcPending[p.Address&0x7F] = pending
	}
}
