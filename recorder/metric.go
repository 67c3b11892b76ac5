package recorder

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-sdi12/sdi12"
)

// Metrics contains atomic metrics for one bus.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc,
// or exported as a whole with NewCollector.
type Metrics struct {
	// TransactionCount indicates the number of transactions started.
	TransactionCount atomic.Uint64
	// SuccessCount indicates the number of transactions that returned a payload.
	SuccessCount atomic.Uint64
	// FailureCount indicates the number of transactions that returned an error.
	FailureCount atomic.Uint64
	// AttemptCount indicates the number of attempts, first tries and retries.
	AttemptCount atomic.Uint64
	// RetryCount indicates the number of retries.
	RetryCount atomic.Uint64
	// BreakCount indicates the number of breaks sent.
	BreakCount atomic.Uint64

	// TimeoutCount indicates the number of attempts that ran out of time.
	TimeoutCount atomic.Uint64
	// TransportErrCount indicates the number of attempts failed by the port.
	TransportErrCount atomic.Uint64
	// AddressMismatchCount indicates the number of responses from an unexpected address.
	AddressMismatchCount atomic.Uint64
	// CRCErrCount indicates the number of responses with a bad or malformed CRC.
	CRCErrCount atomic.Uint64
	// FramingErrCount indicates the number of responses with a bad terminator or layout.
	FramingErrCount atomic.Uint64

	// InflightGauge indicates the number of transactions queued on or running in a Bus.
	InflightGauge atomic.Int64

	addresses *xsync.MapOf[sdi12.Address, *AddressStats]
}

// AddressStats holds per-sensor counters.
type AddressStats struct {
	// Transactions indicates the number of transactions addressed to the sensor.
	Transactions atomic.Uint64
	// Failures indicates the number of those that failed.
	Failures atomic.Uint64
	// lastSuccess is the wall clock of the last success in Unix nanoseconds.
	lastSuccess atomic.Int64
}

// LastSuccess returns the time of the last successful transaction, or the
// zero time if there was none.
func (s *AddressStats) LastSuccess() time.Time {
	ns := s.lastSuccess.Load()
	if ns == 0 {
		return time.Time{}
	}

	return time.Unix(0, ns)
}

func newMetrics() *Metrics {
	return &Metrics{addresses: xsync.NewMapOf[sdi12.Address, *AddressStats]()}
}

// Address returns the counters of address a, if any transaction was sent to it.
func (m *Metrics) Address(a sdi12.Address) (*AddressStats, bool) {
	return m.addresses.Load(a)
}

// RangeAddresses calls f for every address seen, until f returns false.
func (m *Metrics) RangeAddresses(f func(a sdi12.Address, s *AddressStats) bool) {
	m.addresses.Range(f)
}

func (m *Metrics) addressStats(a sdi12.Address) *AddressStats {
	s, _ := m.addresses.LoadOrCompute(a, func() *AddressStats { return &AddressStats{} })
	return s
}

func (m *Metrics) incTransactionCount(a sdi12.Address) {
	m.TransactionCount.Add(1)
	m.addressStats(a).Transactions.Add(1)
}

func (m *Metrics) incSuccessCount(a sdi12.Address, at time.Time) {
	m.SuccessCount.Add(1)
	m.addressStats(a).lastSuccess.Store(at.UnixNano())
}

func (m *Metrics) incFailureCount(a sdi12.Address) {
	m.FailureCount.Add(1)
	m.addressStats(a).Failures.Add(1)
}

func (m *Metrics) incAttemptCount() {
	m.AttemptCount.Add(1)
}

func (m *Metrics) incRetryCount() {
	m.RetryCount.Add(1)
}

func (m *Metrics) incBreakCount() {
	m.BreakCount.Add(1)
}

func (m *Metrics) incInflightGauge() {
	m.InflightGauge.Add(1)
}

func (m *Metrics) decInflightGauge() {
	m.InflightGauge.Add(-1)
}

// countAttemptErr increments the counter matching the class of err.
func (m *Metrics) countAttemptErr(err error) {
	switch {
	case errors.Is(err, sdi12.ErrTimeout):
		m.TimeoutCount.Add(1)
	case errors.Is(err, sdi12.ErrTransport):
		m.TransportErrCount.Add(1)
	case errors.Is(err, sdi12.ErrAddressMismatch):
		m.AddressMismatchCount.Add(1)
	case errors.Is(err, sdi12.ErrCRCMismatch), errors.Is(err, sdi12.ErrCRCDecode):
		m.CRCErrCount.Add(1)
	case errors.Is(err, sdi12.ErrMissingTerminator), errors.Is(err, sdi12.ErrInvalidResponse):
		m.FramingErrCount.Add(1)
	}
}
