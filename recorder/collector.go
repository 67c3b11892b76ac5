package recorder

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/go-sdi12/sdi12"
)

const metricNamespace = "sdi12"

// Collector exports the Metrics of one bus to prometheus. Every series
// carries a "bus" label with the configured bus name; per-sensor series add
// an "address" label.
type Collector struct {
	metrics *Metrics

	transactions *prometheus.Desc
	successes    *prometheus.Desc
	failures     *prometheus.Desc
	attempts     *prometheus.Desc
	retries      *prometheus.Desc
	breaks       *prometheus.Desc
	attemptErrs  *prometheus.Desc
	inflight     *prometheus.Desc

	addrTransactions *prometheus.Desc
	addrFailures     *prometheus.Desc
	addrLastSuccess  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for the metrics of r.
func NewCollector(r *Recorder) *Collector {
	return newCollector(r.cfg.name, r.metrics)
}

// NewBusCollector creates a collector for the metrics of b.
func NewBusCollector(b *Bus) *Collector {
	return newCollector(b.rec.cfg.name, b.rec.metrics)
}

func newCollector(bus string, m *Metrics) *Collector {
	labels := prometheus.Labels{"bus": bus}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricNamespace, "", name), help, variable, labels)
	}

	return &Collector{
		metrics: m,

		transactions: desc("transactions_total", "Transactions started."),
		successes:    desc("transaction_successes_total", "Transactions that returned a validated response."),
		failures:     desc("transaction_failures_total", "Transactions that returned an error."),
		attempts:     desc("attempts_total", "Attempts, first tries and retries."),
		retries:      desc("retries_total", "Retried attempts."),
		breaks:       desc("breaks_total", "Breaks sent."),
		attemptErrs:  desc("attempt_errors_total", "Failed attempts by error kind.", "kind"),
		inflight:     desc("inflight_transactions", "Transactions queued on or running in a bus."),

		addrTransactions: desc("sensor_transactions_total", "Transactions per sensor address.", "address"),
		addrFailures:     desc("sensor_failures_total", "Failed transactions per sensor address.", "address"),
		addrLastSuccess: desc("sensor_last_success_timestamp_seconds",
			"Unix time of the last successful transaction per sensor address.", "address"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.transactions
	ch <- c.successes
	ch <- c.failures
	ch <- c.attempts
	ch <- c.retries
	ch <- c.breaks
	ch <- c.attemptErrs
	ch <- c.inflight
	ch <- c.addrTransactions
	ch <- c.addrFailures
	ch <- c.addrLastSuccess
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.metrics

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.transactions, m.TransactionCount.Load())
	counter(c.successes, m.SuccessCount.Load())
	counter(c.failures, m.FailureCount.Load())
	counter(c.attempts, m.AttemptCount.Load())
	counter(c.retries, m.RetryCount.Load())
	counter(c.breaks, m.BreakCount.Load())

	counter(c.attemptErrs, m.TimeoutCount.Load(), "timeout")
	counter(c.attemptErrs, m.TransportErrCount.Load(), "transport")
	counter(c.attemptErrs, m.AddressMismatchCount.Load(), "address_mismatch")
	counter(c.attemptErrs, m.CRCErrCount.Load(), "crc")
	counter(c.attemptErrs, m.FramingErrCount.Load(), "framing")

	ch <- prometheus.MustNewConstMetric(c.inflight, prometheus.GaugeValue, float64(m.InflightGauge.Load()))

	m.RangeAddresses(func(a sdi12.Address, s *AddressStats) bool {
		addr := a.String()

		counter(c.addrTransactions, s.Transactions.Load(), addr)
		counter(c.addrFailures, s.Failures.Load(), addr)

		if last := s.LastSuccess(); !last.IsZero() {
			ch <- prometheus.MustNewConstMetric(c.addrLastSuccess, prometheus.GaugeValue,
				float64(last.UnixNano())/1e9, addr)
		}

		return true
	})
}
