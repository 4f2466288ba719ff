package core

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quka-ai/livetable/pkg/metrics"
)

type Metrics struct {
	apiResponseTime  *prometheus.HistogramVec
	apiErrorCounter  *prometheus.CounterVec
	mutationCounter  *prometheus.CounterVec
	connectionsGauge *prometheus.GaugeVec
	fanoutDelivered  *prometheus.CounterVec
	sessionsEvicted  *prometheus.CounterVec
}

func NewMetrics(ns, system string) *Metrics {
	// setup metric
	metrics.SetupMetricsManager(ns, system, prometheus.NewRegistry())

	m := &Metrics{
		apiResponseTime:  metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:  metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		mutationCounter:  metrics.NewCounterVec("mutation", []string{"op", "result"}),
		connectionsGauge: metrics.NewGaugeVec("websocket_connections", nil),
		fanoutDelivered:  metrics.NewCounterVec("fanout_delivered", []string{"op"}),
		sessionsEvicted:  metrics.NewCounterVec("sessions_evicted", nil),
	}

	return m
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

// MutationInc result is the error kind, or "ok".
func (m *Metrics) MutationInc(op, result string) {
	m.mutationCounter.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ConnectionsAdd(delta float64) {
	m.connectionsGauge.WithLabelValues().Add(delta)
}

func (m *Metrics) FanoutDeliveredAdd(op string, n int) {
	m.fanoutDelivered.WithLabelValues(op).Add(float64(n))
}

func (m *Metrics) SessionsEvictedAdd(n int) {
	m.sessionsEvicted.WithLabelValues().Add(float64(n))
}
