// Package monitoring holds the Prometheus metrics of the predictor.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricNamespace = "custom_op_predictor"

	metricNamePredictLatency = "predict_latency"
	metricNameInstances      = "predict_instances_total"
	metricLabelSignature     = "signature"
)

// MetricsMonitoring is an interface for monitoring metrics.
type MetricsMonitoring interface {
	ObservePredictLatency(signature string, latency time.Duration)
	AddInstances(signature string, n int)
}

// MetricsMonitor holds and updates Prometheus metrics.
type MetricsMonitor struct {
	predictLatencyHistVec *prometheus.HistogramVec
	instancesCounterVec   *prometheus.CounterVec
}

// latencyBuckets are the buckets for the latencies from 1ms to 1 minute.
var latencyBuckets []float64 = []float64{
	.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetricsMonitor returns a new MetricsMonitor.
func NewMetricsMonitor() *MetricsMonitor {
	predictLatencyHistVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      metricNamePredictLatency,
			Buckets:   latencyBuckets,
		},
		[]string{
			metricLabelSignature,
		},
	)

	instancesCounterVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      metricNameInstances,
		},
		[]string{
			metricLabelSignature,
		},
	)

	m := &MetricsMonitor{
		predictLatencyHistVec: predictLatencyHistVec,
		instancesCounterVec:   instancesCounterVec,
	}

	prometheus.MustRegister(
		predictLatencyHistVec,
		instancesCounterVec,
	)

	return m
}

// ObservePredictLatency observes a new latency data point for a predict
// request.
func (m *MetricsMonitor) ObservePredictLatency(signature string, latency time.Duration) {
	m.predictLatencyHistVec.WithLabelValues(signature).Observe(float64(latency) / float64(time.Second))
}

// AddInstances counts the instances of a predict request.
func (m *MetricsMonitor) AddInstances(signature string, n int) {
	m.instancesCounterVec.WithLabelValues(signature).Add(float64(n))
}

// UnregisterAllCollectors unregisters all collectors.
func (m *MetricsMonitor) UnregisterAllCollectors() {
	prometheus.Unregister(m.predictLatencyHistVec)
	prometheus.Unregister(m.instancesCounterVec)
}
