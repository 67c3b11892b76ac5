package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-sdi12/sdi12"
)

// Smallest response buffers: "a<CR><LF>", and a binary header with its CRC.
const (
	minASCIIBuffer  = 3
	minBinaryBuffer = sdi12.BinaryHeaderLength + sdi12.CRCBinaryLength
)

// txResult classifies the outcome of a single attempt so the retry loop can
// decide whether to retry or abort.
type txResult int

const (
	txOK    txResult = iota // Response received and validated.
	txRetry                 // Retryable failure (timeout, transport error).
	txAbort                 // Non-retryable failure (validation error, cancelled context).
)

// txn carries what every attempt of one transaction shares.
type txn struct {
	cmd       sdi12.Command
	wire      []byte
	buf       []byte
	binary    bool
	timeout   time.Duration
	expectCRC bool
	opts      txOptions
}

// Transact performs one command/response exchange with a sensor.
//
// The response is read into buf, which must be large enough for the
// longest response of cmd (sdi12.MaxResponseLength for ASCII commands,
// sdi12.MaxBinaryPacketLength for aDBn!). On success the returned Payload
// marks the validated bytes of buf, without address, CRC and terminator.
//
// Timeouts and transport errors are retried up to Config.RetryLimit times.
// Address, CRC and framing errors are returned at once unless
// WithRetryOnValidationError is set. The error of the last attempt is
// returned, so errors.Is matches the concrete sdi12 sentinel. Commands that
// cannot be formatted fail before anything is sent.
//
// Each attempt waits up to cmd.ResponseTimeout() plus Config.ResponseMargin
// for the complete response, or the WithTimeout value when given.
//
// When ctx is done mid-transaction, Transact returns an error matching both
// sdi12.ErrTimeout and ctx.Err(). Bytes already written cannot be taken
// back, so the sensor state is unknown in that case.
func (r *Recorder) Transact(ctx context.Context, cmd sdi12.Command, buf []byte, opts ...TxOption) (sdi12.Payload, error) {
	var scratch [sdi12.MaxCommandLength]byte

	n, err := cmd.FormatInto(scratch[:])
	if err != nil {
		return sdi12.Payload{}, err
	}

	t := txn{
		cmd:    cmd,
		wire:   scratch[:n],
		buf:    buf,
		binary: cmd.FrameFormat().IsBinary(),
	}

	minBuf := minASCIIBuffer
	if t.binary {
		minBuf = minBinaryBuffer
	}

	if len(buf) < minBuf {
		return sdi12.Payload{}, fmt.Errorf("%w: response buffer of %d bytes, need at least %d",
			sdi12.ErrBufferTooSmall, len(buf), minBuf)
	}

	for _, opt := range opts {
		opt(&t.opts)
	}

	t.timeout = t.opts.timeout
	if t.timeout == 0 {
		t.timeout = cmd.ResponseTimeout() + r.cfg.responseMargin
	}

	t.expectCRC = r.expectCRC(cmd, &t.opts)

	r.metrics.incTransactionCount(cmd.Address())
	r.setState(StateIdle)

	var lastErr error

	attempts := 0

	for retry := 0; retry <= r.cfg.retryLimit; retry++ {
		if err := ctx.Err(); err != nil {
			lastErr = cancelled(err)
			break
		}

		if retry > 0 {
			r.setState(StateRetry)
			r.metrics.incRetryCount()
			r.logger.Debug("sdi12: retry",
				"address", cmd.Address().String(),
				"command", cmd.String(),
				"attempt", retry+1,
				"error", lastErr,
			)

			if err := r.clock.Sleep(ctx, r.cfg.retryDelay); err != nil {
				lastErr = cancelled(err)
				break
			}
		}

		attempts++
		r.metrics.incAttemptCount()

		p, result, err := r.attempt(ctx, &t, retry > 0)
		if result == txOK {
			r.setState(StateSuccess)
			r.noteSuccess(cmd, p)
			r.metrics.incSuccessCount(cmd.Address(), r.clock.Now())

			return p, nil
		}

		lastErr = err
		r.lastOK = false
		r.metrics.countAttemptErr(err)

		if result == txAbort {
			break
		}
	}

	return sdi12.Payload{}, r.fail(cmd, lastErr, attempts)
}

// attempt performs break, send, receive and validation once.
func (r *Recorder) attempt(ctx context.Context, t *txn, retry bool) (sdi12.Payload, txResult, error) {
	if r.needBreak(t.cmd, retry, &t.opts) {
		if err := r.sendBreak(ctx); err != nil {
			return sdi12.Payload{}, r.classify(err), err
		}
	}

	if err := r.send(t.wire); err != nil {
		return sdi12.Payload{}, r.classify(err), err
	}

	r.lastActivity = r.clock.Now()

	r.setState(StateCommandSent)

	if t.binary {
		if err := r.port.SetFrameFormat(sdi12.FrameBinary8N1); err != nil {
			err = fmt.Errorf("%w: set frame format: %w", sdi12.ErrTransport, err)
			return sdi12.Payload{}, r.classify(err), err
		}

		defer r.restoreFrameFormat()
	}

	r.setState(StateAwaitingResponse)

	n, err := r.receive(ctx, t.buf, t.cmd.ResponseAddress(), t.binary, t.timeout)
	if err != nil {
		return sdi12.Payload{}, r.classify(err), err
	}

	r.setState(StateValidating)

	var p sdi12.Payload
	if t.binary {
		p, err = validateBinary(t.buf[:n], t.cmd.ResponseAddress())
	} else {
		p, err = validateASCII(t.buf[:n], t.cmd.ResponseAddress(), t.expectCRC)
	}

	if err != nil {
		return sdi12.Payload{}, r.classify(err), err
	}

	return p, txOK, nil
}

// classify decides whether a failed attempt may be retried.
func (r *Recorder) classify(err error) txResult {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return txAbort
	case sdi12.IsRetryable(err):
		return txRetry
	case r.cfg.retryOnValidation && sdi12.IsValidationError(err):
		return txRetry
	default:
		return txAbort
	}
}

func (r *Recorder) restoreFrameFormat() {
	if err := r.port.SetFrameFormat(sdi12.FrameASCII7E1); err != nil {
		r.logger.Warn("sdi12: failed to restore ASCII framing", "error", err)
	}
}

// fail records a failed transaction and returns its final error.
func (r *Recorder) fail(cmd sdi12.Command, err error, attempts int) error {
	r.setState(StateFailed)
	r.metrics.incFailureCount(cmd.Address())

	if attempts > 1 {
		err = fmt.Errorf("%w (%d attempts)", err, attempts)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.logger.Debug("sdi12: transaction cancelled",
			"address", cmd.Address().String(),
			"command", cmd.String(),
			"error", err,
		)
	} else {
		r.logger.Warn("sdi12: transaction failed",
			"address", cmd.Address().String(),
			"command", cmd.String(),
			"attempts", attempts,
			"error", err,
		)
	}

	return err
}
