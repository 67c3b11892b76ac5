package recorder

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/arloliu/go-sdi12/sdi12"
)

// maxReadWait bounds a single ReadTimeout call so that a cancelled context
// is noticed while waiting for a slow sensor.
const maxReadWait = 100 * time.Millisecond

// cancelled turns a context error into a timing error that still matches
// the context sentinel.
func cancelled(err error) error {
	return fmt.Errorf("%w: %w", sdi12.ErrTimeout, err)
}

// --- Low-level I/O helpers ---

// sendBreak holds the line spacing for BreakDuration, then waits out the
// marking that must precede the first command character.
func (r *Recorder) sendBreak(ctx context.Context) error {
	if err := r.port.Break(sdi12.BreakDuration); err != nil {
		return fmt.Errorf("%w: break: %w", sdi12.ErrTransport, err)
	}

	r.metrics.incBreakCount()
	r.setState(StateBreakSent)

	r.setState(StateMarkingWait)
	if err := r.clock.Sleep(ctx, sdi12.PostBreakMarking); err != nil {
		return cancelled(err)
	}

	r.lastActivity = r.clock.Now()

	return nil
}

// send drops stale input, selects ASCII framing, and writes the whole command.
func (r *Recorder) send(wire []byte) error {
	if d, ok := r.port.(InputDiscarder); ok {
		if err := d.DiscardInput(); err != nil {
			return fmt.Errorf("%w: discard input: %w", sdi12.ErrTransport, err)
		}
	}

	if err := r.port.SetFrameFormat(sdi12.FrameASCII7E1); err != nil {
		return fmt.Errorf("%w: set frame format: %w", sdi12.ErrTransport, err)
	}

	for written := 0; written < len(wire); {
		n, err := r.port.Write(wire[written:])
		written += n

		if err != nil {
			return fmt.Errorf("%w: write: %w", sdi12.ErrTransport, err)
		}

		if n == 0 {
			return fmt.Errorf("%w: write made no progress after %d of %d bytes",
				sdi12.ErrTransport, written, len(wire))
		}
	}

	return nil
}

// receive reads one response into buf and returns its length.
//
// An ASCII response ends with the first <LF>, which must follow a <CR>. A
// binary packet ends after the size announced by its header plus the CRC.
// The first byte of a binary packet is checked against want before the
// header is trusted. The response must be complete within timeout; when an inter-byte timeout
// is configured, the line must also not fall silent for longer once the
// first byte arrived.
func (r *Recorder) receive(ctx context.Context, buf []byte, want sdi12.Address, binary bool, timeout time.Duration) (int, error) {
	deadline := r.clock.Now().Add(timeout)
	gap := r.cfg.interByteTimeout

	var lastByte time.Time

	n := 0
	packetLen := 0

	for {
		if err := ctx.Err(); err != nil {
			return n, cancelled(err)
		}

		now := r.clock.Now()

		wait := deadline.Sub(now)
		if wait <= 0 {
			return n, fmt.Errorf("%w: no complete response within %v, %d bytes received", sdi12.ErrTimeout, timeout, n)
		}

		if gap > 0 && n > 0 {
			left := lastByte.Add(gap).Sub(now)
			if left <= 0 {
				return n, fmt.Errorf("%w: line silent for %v after %d bytes", sdi12.ErrTimeout, gap, n)
			}

			wait = min(wait, left)
		}

		wait = min(wait, maxReadWait)

		limit := len(buf)
		if binary {
			limit = sdi12.BinaryHeaderLength
			if packetLen > 0 {
				limit = packetLen
			}
		}

		m, err := r.port.ReadTimeout(buf[n:limit], wait)
		if err != nil {
			return n, fmt.Errorf("%w: read: %w", sdi12.ErrTransport, err)
		}

		if m == 0 {
			continue
		}

		lastByte = r.clock.Now()
		r.lastActivity = lastByte

		if binary {
			n += m

			if packetLen == 0 {
				if err := checkAddress(sdi12.Address(buf[0]), want); err != nil {
					return n, err
				}

				if n >= sdi12.BinaryHeaderLength {
					h, err := sdi12.ParseBinaryHeader(buf[:sdi12.BinaryHeaderLength])
					if err != nil {
						return n, err
					}

					packetLen = h.PacketLength()
					if packetLen > len(buf) {
						return n, fmt.Errorf("%w: binary packet of %d bytes, buffer holds %d",
							sdi12.ErrBufferTooSmall, packetLen, len(buf))
					}
				}
			}

			if packetLen > 0 && n >= packetLen {
				return packetLen, nil
			}

			continue
		}

		// Marking glitches after a break may be read as NUL characters.
		if n == 0 {
			lead := 0
			for lead < m && buf[lead] == 0 {
				lead++
			}

			if lead > 0 {
				copy(buf, buf[lead:m])
				m -= lead
			}
		}

		start := n
		n += m

		if i := bytes.IndexByte(buf[start:n], '\n'); i >= 0 {
			end := start + i
			if end == 0 || buf[end-1] != '\r' {
				return end + 1, fmt.Errorf("%w: <LF> without <CR> at offset %d", sdi12.ErrMissingTerminator, end)
			}

			return end + 1, nil
		}

		if n == len(buf) {
			return n, fmt.Errorf("%w: %d bytes without <CR><LF>", sdi12.ErrMissingTerminator, n)
		}
	}
}
