// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/modbus-reader/internal/register"
	"github.com/tamzrod/modbus-reader/internal/session"
	"github.com/tamzrod/modbus-reader/internal/status"
)

// ------------------ Prometheus metrics ------------------

// Collector owns a private registry so tests and embedders never touch the
// global one. It implements session.Recorder.
type Collector struct {
	reg *prometheus.Registry

	reads        *prometheus.CounterVec
	readDuration prometheus.Histogram
	registers    prometheus.Counter
	state        *prometheus.GaugeVec

	batchAddresses *prometheus.GaugeVec
	batchDuration  prometheus.Gauge
	values         *prometheus.GaugeVec

	health         prometheus.Gauge
	lastErrorCode  prometheus.Gauge
	secondsInError prometheus.Gauge
}

var stateNames = []string{"Disconnected", "Connecting", "Connected", "Error"}

func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),

		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modbus_reads_total",
			Help: "Holding register range reads by result.",
		}, []string{"result"}),
		readDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "modbus_read_duration_seconds",
			Help:    "Round trip time of one range read.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		registers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modbus_registers_read_total",
			Help: "Registers returned by successful reads.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "modbus_connection_state",
			Help: "1 for the current connection state, 0 otherwise.",
		}, []string{"state"}),

		batchAddresses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "modbus_batch_addresses",
			Help: "Addresses in the last detailed batch by result.",
		}, []string{"result"}),
		batchDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modbus_batch_duration_seconds",
			Help: "Wall time of the last detailed batch.",
		}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "modbus_register_value",
			Help: "Last decoded value per address.",
		}, []string{"address"}),

		health: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modbus_device_health",
			Help: "0 unknown, 1 ok, 2 error, 3 stale.",
		}),
		lastErrorCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modbus_device_last_error_code",
			Help: "Last error code; Modbus exception codes are kept verbatim.",
		}),
		secondsInError: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modbus_device_seconds_in_error",
			Help: "Seconds the device has not been healthy.",
		}),
	}

	c.reg.MustRegister(
		c.reads, c.readDuration, c.registers, c.state,
		c.batchAddresses, c.batchDuration, c.values,
		c.health, c.lastErrorCode, c.secondsInError,
	)

	c.StateChanged(session.State{Kind: session.Disconnected})
	return c
}

// Registry exposes the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// ---- session.Recorder ----

func (c *Collector) ReadDone(count int, d time.Duration, err error) {
	c.readDuration.Observe(d.Seconds())
	if err != nil {
		c.reads.WithLabelValues("error").Inc()
		return
	}
	c.reads.WithLabelValues("ok").Inc()
	c.registers.Add(float64(count))
}

func (c *Collector) StateChanged(s session.State) {
	cur := s.Kind.String()
	for _, name := range stateNames {
		v := 0.0
		if name == cur {
			v = 1
		}
		c.state.WithLabelValues(name).Set(v)
	}
}

// ---- batch / status ----

// BatchDone records the counters of a detailed batch and the value of
// every successfully decoded address.
func (c *Collector) BatchDone(b register.BatchResult) {
	c.batchAddresses.WithLabelValues("ok").Set(float64(b.SuccessCount))
	c.batchAddresses.WithLabelValues("failed").Set(float64(b.FailedCount))
	c.batchDuration.Set(float64(b.DurationMs) / 1000)

	for _, r := range b.Results {
		v, ok := r.Numeric()
		if !ok {
			continue
		}
		var f float64
		switch n := v.(type) {
		case int64:
			f = float64(n)
		case float64:
			f = n
		}
		c.values.WithLabelValues(strconv.Itoa(int(r.Address))).Set(f)
	}
}

func (c *Collector) StatusChanged(s status.Snapshot) {
	c.health.Set(float64(s.Health))
	c.lastErrorCode.Set(float64(s.LastErrorCode))
	c.secondsInError.Set(float64(s.SecondsInError))
}
