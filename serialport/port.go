package serialport

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/arloliu/go-sdi12/logger"
	"github.com/arloliu/go-sdi12/recorder"
	"github.com/arloliu/go-sdi12/sdi12"
)

// ErrEchoMismatch is returned by Write when the looped-back bytes differ
// from the transmitted ones, which usually means another device talked at
// the same time.
var ErrEchoMismatch = errors.New("serialport: echo mismatch")

// Device is the subset of serial.Port used by Port.
type Device interface {
	SetMode(mode *serial.Mode) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Drain() error
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
	Break(d time.Duration) error
	Close() error
}

var _ Device = (serial.Port)(nil)

var (
	_ recorder.Port           = (*Port)(nil)
	_ recorder.InputDiscarder = (*Port)(nil)
)

// Port adapts a serial device to recorder.Port.
//
// It is not safe for concurrent use; share it through a recorder.Bus.
type Port struct {
	dev    Device
	name   string
	cfg    *config
	logger logger.Logger

	format      sdi12.FrameFormat
	readTimeout time.Duration
	echo        []byte
}

// Ports lists the serial ports found on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Open opens the named serial device in 1200 baud 7E1 mode.
func Open(name string, opts ...Option) (*Port, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	mode := modeFor(sdi12.FrameASCII7E1, cfg.baudRate)
	mode.InitialStatusBits = &serial.ModemOutputBits{DTR: cfg.dtr, RTS: cfg.rts}

	dev, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", name, err)
	}

	p := newPort(dev, name, cfg)
	p.logger.Info("sdi12: serial port opened", "baud", cfg.baudRate)

	return p, nil
}

// New wraps an already opened device and puts it into 7E1 mode.
func New(dev Device, opts ...Option) (*Port, error) {
	if dev == nil {
		return nil, errors.New("serialport: device is nil")
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	if err := dev.SetMode(modeFor(sdi12.FrameASCII7E1, cfg.baudRate)); err != nil {
		return nil, fmt.Errorf("serialport: set mode: %w", err)
	}

	return newPort(dev, "", cfg), nil
}

func newPort(dev Device, name string, cfg *config) *Port {
	l := cfg.logger
	if name != "" {
		l = l.With("port", name)
	}

	return &Port{
		dev:         dev,
		name:        name,
		cfg:         cfg,
		logger:      l,
		format:      sdi12.FrameASCII7E1,
		readTimeout: -1,
	}
}

func modeFor(f sdi12.FrameFormat, baud int) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: f.DataBits(),
		Parity:   serial.EvenParity,
		StopBits: serial.OneStopBit,
	}
	if f.IsBinary() {
		mode.Parity = serial.NoParity
	}

	return mode
}

// Name returns the device name given to Open, or "" for ports built with New.
func (p *Port) Name() string { return p.name }

// FrameFormat returns the current framing.
func (p *Port) FrameFormat() sdi12.FrameFormat { return p.format }

// SetFrameFormat switches between 7E1 and 8N1. Switching to the current
// format is a no-op.
func (p *Port) SetFrameFormat(f sdi12.FrameFormat) error {
	if f == p.format {
		return nil
	}

	if err := p.dev.SetMode(modeFor(f, p.cfg.baudRate)); err != nil {
		return fmt.Errorf("serialport: set %s: %w", f, err)
	}

	p.logger.Debug("sdi12: frame format changed", "format", f.String())
	p.format = f

	return nil
}

// Break holds the line spacing for d.
func (p *Port) Break(d time.Duration) error {
	if err := p.dev.Break(d); err != nil {
		return fmt.Errorf("serialport: break: %w", err)
	}

	return nil
}

// Write transmits b and waits until it has left the transmit buffer. With
// echo cancellation enabled it also consumes the looped-back copy.
func (p *Port) Write(b []byte) (int, error) {
	n, err := p.dev.Write(b)
	if err != nil {
		return n, fmt.Errorf("serialport: write: %w", err)
	}

	if err := p.dev.Drain(); err != nil {
		return n, fmt.Errorf("serialport: drain: %w", err)
	}

	if p.cfg.echoCancel {
		if err := p.consumeEcho(b[:n]); err != nil {
			return n, err
		}
	}

	return n, nil
}

// consumeEcho reads back len(sent) bytes and compares them with sent.
func (p *Port) consumeEcho(sent []byte) error {
	if cap(p.echo) < len(sent) {
		p.echo = make([]byte, len(sent))
	}
	echo := p.echo[:len(sent)]

	wait := p.charTime()*time.Duration(len(sent)) + DefaultEchoMargin
	deadline := time.Now().Add(wait)

	got := 0
	for got < len(echo) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: got %d of %d bytes", ErrEchoMismatch, got, len(sent))
		}

		n, err := p.ReadTimeout(echo[got:], remaining)
		if err != nil {
			return err
		}
		got += n
	}

	if !bytes.Equal(echo, sent) {
		p.logger.Warn("sdi12: echo mismatch", "sent", string(sent), "echo", string(echo))
		return fmt.Errorf("%w: sent %q, read %q", ErrEchoMismatch, sent, echo)
	}

	return nil
}

// charTime is the duration of one 10-bit character at the configured rate.
func (p *Port) charTime() time.Duration {
	return time.Duration(10 * int64(time.Second) / int64(p.cfg.baudRate))
}

// ReadTimeout reads into b, returning 0, nil when nothing arrives within
// timeout. In 7E1 mode the parity bit is stripped from every byte.
func (p *Port) ReadTimeout(b []byte, timeout time.Duration) (int, error) {
	if timeout <= 0 || len(b) == 0 {
		return 0, nil
	}

	if timeout != p.readTimeout {
		if err := p.dev.SetReadTimeout(timeout); err != nil {
			return 0, fmt.Errorf("serialport: set read timeout: %w", err)
		}
		p.readTimeout = timeout
	}

	n, err := p.dev.Read(b)
	if err != nil {
		return n, fmt.Errorf("serialport: read: %w", err)
	}

	if !p.format.IsBinary() {
		for i := range b[:n] {
			b[i] &= 0x7F
		}
	}

	return n, nil
}

// DiscardInput drops unread input. It does nothing when disabled with
// WithDiscardInput(false).
func (p *Port) DiscardInput() error {
	if !p.cfg.discardInput {
		return nil
	}

	if err := p.dev.ResetInputBuffer(); err != nil {
		return fmt.Errorf("serialport: reset input: %w", err)
	}

	return nil
}

// Close closes the device.
func (p *Port) Close() error {
	if err := p.dev.Close(); err != nil {
		return fmt.Errorf("serialport: close: %w", err)
	}

	p.logger.Debug("sdi12: serial port closed")

	return nil
}
