package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-sdi12/sdi12"
)

// ackBufferSize holds "a<CR><LF>" with room for line noise.
const ackBufferSize = 8

// Acknowledge checks that the sensor at a is present (a!).
func (r *Recorder) Acknowledge(ctx context.Context, a sdi12.Address) error {
	_, err := r.transactEmpty(ctx, sdi12.Acknowledge(a))
	return err
}

// QueryAddress asks the only sensor on the bus for its address (?!).
func (r *Recorder) QueryAddress(ctx context.Context) (sdi12.Address, error) {
	return r.transactEmpty(ctx, sdi12.AddressQuery())
}

// ChangeAddress moves the sensor at a to address b (aAb!).
func (r *Recorder) ChangeAddress(ctx context.Context, a, b sdi12.Address) error {
	_, err := r.transactEmpty(ctx, sdi12.ChangeAddress(a, b))
	return err
}

func (r *Recorder) transactEmpty(ctx context.Context, cmd sdi12.Command) (sdi12.Address, error) {
	var buf [ackBufferSize]byte

	p, err := r.Transact(ctx, cmd, buf[:])
	if err != nil {
		return 0, err
	}

	if !p.IsEmpty() {
		return 0, fmt.Errorf("%w: unexpected %q after %s", sdi12.ErrInvalidResponse, p.Bytes(buf[:]), cmd)
	}

	return p.Address, nil
}

// Identify reads the identification of the sensor at a (aI!).
func (r *Recorder) Identify(ctx context.Context, a sdi12.Address) (sdi12.Identification, error) {
	var buf [sdi12.MaxResponseLength]byte

	p, err := r.Transact(ctx, sdi12.SendIdentification(a), buf[:])
	if err != nil {
		return sdi12.Identification{}, err
	}

	return sdi12.ParseIdentification(p.Bytes(buf[:]))
}

// StartMeasurement sends a measurement start command (M, MC, C, CC, V, HA,
// HB, or an identify-measurement command) and returns the announced timing.
func (r *Recorder) StartMeasurement(ctx context.Context, cmd sdi12.Command) (sdi12.MeasurementTiming, error) {
	if !cmd.Kind().IsMeasurementStart() && cmd.Kind() != sdi12.KindIdentifyMeasurement {
		return sdi12.MeasurementTiming{}, fmt.Errorf("%w: %s does not start a measurement", sdi12.ErrInvalidCommand, cmd)
	}

	var buf [sdi12.MaxResponseLength]byte

	p, err := r.Transact(ctx, cmd, buf[:])
	if err != nil {
		return sdi12.MeasurementTiming{}, err
	}

	return sdi12.ParseMeasurementTiming(p.Bytes(buf[:]))
}

// WaitServiceRequest listens for the "a<CR><LF>" a sensor sends when its
// measurement completes before the announced ready time. It returns false
// when ready passes without one, in which case the data is due anyway.
func (r *Recorder) WaitServiceRequest(ctx context.Context, a sdi12.Address, ready time.Duration) (bool, error) {
	if !a.IsValid() || a.IsQuery() {
		return false, fmt.Errorf("%w: %q cannot send a service request", sdi12.ErrInvalidAddress, a.Byte())
	}

	if ready <= 0 {
		return true, nil
	}

	var buf [ackBufferSize]byte

	r.setState(StateAwaitingResponse)

	n, err := r.receive(ctx, buf[:], a, false, ready+r.cfg.responseMargin)
	if err != nil {
		if errors.Is(err, sdi12.ErrTimeout) && ctx.Err() == nil {
			r.setState(StateIdle)
			return false, nil
		}

		r.setState(StateFailed)

		return false, err
	}

	r.setState(StateValidating)

	p, err := validateASCII(buf[:n], a, false)
	if err == nil && !p.IsEmpty() {
		err = fmt.Errorf("%w: service request carries %q", sdi12.ErrInvalidResponse, p.Bytes(buf[:]))
	}

	if err != nil {
		r.lastOK = false
		r.setState(StateFailed)

		return false, err
	}

	r.setState(StateSuccess)

	return true, nil
}

// SendData retrieves data set n from the sensor at a (aDn!) into buf.
func (r *Recorder) SendData(ctx context.Context, a sdi12.Address, n sdi12.DataIndex, buf []byte) (sdi12.Payload, error) {
	return r.Transact(ctx, sdi12.SendData(a, n), buf)
}

// Measure runs a complete ASCII measurement: it sends start, waits until
// the data is ready, and reads data sets from aD0! on until the announced
// number of values is collected. The raw value text is appended to dst.
//
// Concurrent measurements are waited out in full; the other kinds return
// early on a service request. aHB! is not supported, its data is binary.
func (r *Recorder) Measure(ctx context.Context, start sdi12.Command, dst []byte) ([]byte, error) {
	kind := start.Kind()
	if !kind.IsMeasurementStart() || kind == sdi12.KindHighVolumeBinary {
		return dst, fmt.Errorf("%w: %s is not an ASCII measurement", sdi12.ErrInvalidCommand, start)
	}

	timing, err := r.StartMeasurement(ctx, start)
	if err != nil {
		return dst, err
	}

	if timing.Values == 0 {
		return dst, nil
	}

	switch kind {
	case sdi12.KindConcurrent, sdi12.KindConcurrentCRC:
		if err := r.clock.Sleep(ctx, timing.Ready); err != nil {
			return dst, cancelled(err)
		}
	default:
		if _, err := r.WaitServiceRequest(ctx, start.Address(), timing.Ready); err != nil {
			return dst, err
		}
	}

	maxIndex := sdi12.MaxMeasurementIndex
	if kind == sdi12.KindHighVolumeASCII {
		maxIndex = sdi12.MaxDataIndex
	}

	var buf [sdi12.MaxResponseLength]byte

	got := 0
	for i := 0; got < timing.Values; i++ {
		if i > maxIndex {
			return dst, fmt.Errorf("%w: data sets exhausted with %d of %d values",
				sdi12.ErrInvalidResponse, got, timing.Values)
		}

		p, err := r.SendData(ctx, start.Address(), sdi12.MustDataIndex(i), buf[:])
		if err != nil {
			return dst, err
		}

		values := p.Bytes(buf[:])

		count := sdi12.CountValues(values)
		if count == 0 {
			return dst, fmt.Errorf("%w: D%d returned no values, %d of %d collected",
				sdi12.ErrInvalidResponse, i, got, timing.Values)
		}

		dst = append(dst, values...)
		got += count
	}

	return dst, nil
}
