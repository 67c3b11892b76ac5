package recorder

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-sdi12/sdi12"
)

// gather collects c through a pedantic registry and indexes the families by name.
func gather(t *testing.T, c prometheus.Collector) map[string]*dto.MetricFamily {
	t.Helper()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}

	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}

	return ""
}

func TestCollector(t *testing.T) {
	rec, _, _ := newTestRecorder(t, respondMap(map[string]string{"0!": "0\r\n", "1!": "2\r\n"}),
		WithName("north"), WithRetryLimit(0))
	ctx := context.Background()

	require.NoError(t, rec.Acknowledge(ctx, addr0))
	require.Error(t, rec.Acknowledge(ctx, sdi12.MustAddress('1')))
	require.Error(t, rec.Acknowledge(ctx, sdi12.MustAddress('3')))

	mfs := gather(t, NewCollector(rec))

	counter := func(name string) float64 {
		mf, ok := mfs[name]
		require.True(t, ok, name)
		require.Len(t, mf.GetMetric(), 1, name)
		assert.Equal(t, "north", labelValue(mf.GetMetric()[0], "bus"))

		return mf.GetMetric()[0].GetCounter().GetValue()
	}

	assert.InDelta(t, 3, counter("sdi12_transactions_total"), 0)
	assert.InDelta(t, 1, counter("sdi12_transaction_successes_total"), 0)
	assert.InDelta(t, 2, counter("sdi12_transaction_failures_total"), 0)
	assert.InDelta(t, 3, counter("sdi12_attempts_total"), 0)
	assert.InDelta(t, 0, counter("sdi12_retries_total"), 0)
	assert.InDelta(t, 3, counter("sdi12_breaks_total"), 0)

	errsByKind := map[string]float64{}
	for _, m := range mfs["sdi12_attempt_errors_total"].GetMetric() {
		errsByKind[labelValue(m, "kind")] = m.GetCounter().GetValue()
	}

	assert.InDelta(t, 1, errsByKind["timeout"], 0)
	assert.InDelta(t, 1, errsByKind["address_mismatch"], 0)
	assert.InDelta(t, 0, errsByKind["crc"], 0)

	inflight := mfs["sdi12_inflight_transactions"]
	require.NotNil(t, inflight)
	assert.InDelta(t, 0, inflight.GetMetric()[0].GetGauge().GetValue(), 0)

	perAddr := map[string]float64{}
	for _, m := range mfs["sdi12_sensor_failures_total"].GetMetric() {
		perAddr[labelValue(m, "address")] = m.GetCounter().GetValue()
	}

	assert.Equal(t, map[string]float64{"0": 0, "1": 1, "3": 1}, perAddr)

	last := mfs["sdi12_sensor_last_success_timestamp_seconds"]
	require.NotNil(t, last)
	require.Len(t, last.GetMetric(), 1, "only sensor 0 ever succeeded")
	assert.Equal(t, "0", labelValue(last.GetMetric()[0], "address"))
	assert.Positive(t, last.GetMetric()[0].GetGauge().GetValue())
}

func TestBusCollector(t *testing.T) {
	bus, _ := newTestBus(t, echoSensors, WithName("south"))

	_, err := bus.Do(context.Background(), sdi12.Acknowledge(addr0), make([]byte, 8))
	require.NoError(t, err)

	mfs := gather(t, NewBusCollector(bus))

	mf := mfs["sdi12_transactions_total"]
	require.NotNil(t, mf)
	assert.Equal(t, "south", labelValue(mf.GetMetric()[0], "bus"))
	assert.InDelta(t, 1, mf.GetMetric()[0].GetCounter().GetValue(), 0)
}

func TestMetrics_Address(t *testing.T) {
	rec, _, clock := newTestRecorder(t, respondMap(map[string]string{"0!": "0\r\n"}))

	_, ok := rec.Metrics().Address(addr0)
	assert.False(t, ok)

	require.NoError(t, rec.Acknowledge(context.Background(), addr0))

	s, ok := rec.Metrics().Address(addr0)
	require.True(t, ok)
	assert.Equal(t, uint64(1), s.Transactions.Load())
	assert.Zero(t, s.Failures.Load())
	assert.True(t, clock.Now().Equal(s.LastSuccess()))

	seen := 0
	rec.Metrics().RangeAddresses(func(a sdi12.Address, _ *AddressStats) bool {
		assert.Equal(t, addr0, a)
		seen++

		return true
	})
	assert.Equal(t, 1, seen)

	var empty AddressStats
	assert.True(t, empty.LastSuccess().IsZero())
}
