package gateway

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the gateway collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	refresh  *prometheus.CounterVec
	replays  prometheus.Counter
	queued   prometheus.Gauge
}

// NewMetrics builds the gateway collectors and registers them on reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Outgoing backend requests by method and status class.",
		}, []string{"method", "class"}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_refresh_total",
			Help: "Credential refresh calls by outcome.",
		}, []string{"outcome"}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_replays_total",
			Help: "Requests replayed after credential recovery.",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_queued_requests",
			Help: "Requests waiting for an in-flight refresh.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.refresh, m.replays, m.queued)
	}
	return m
}

func (m *Metrics) observeRequest(method string, status int) {
	if m == nil {
		return
	}
	class := "error"
	if status > 0 {
		class = strconv.Itoa(status/100) + "xx"
	}
	m.requests.WithLabelValues(method, class).Inc()
}

func (m *Metrics) observeRefresh(ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.refresh.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeReplay() {
	if m != nil {
		m.replays.Inc()
	}
}

func (m *Metrics) queueDelta(n int) {
	if m != nil {
		m.queued.Add(float64(n))
	}
}
