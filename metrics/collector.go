// Package metrics records Prometheus metrics about the calls made to the proxy and the tests
// that ran, so a CI job can export them with the node exporter's textfile collector.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lmproxy/proxy-contract-tests/client"
	"github.com/lmproxy/proxy-contract-tests/framework"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "proxytests"

// Buckets sized for model latencies, from fast health checks up to the request timeout.
var callDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Collector owns a private registry, so that several collectors can exist in one process.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	testsTotal      *prometheus.CounterVec
	testDuration    *prometheus.HistogramVec
}

// NewCollector creates a collector registered on registry. If registry is nil a new one is created.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	c := &Collector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP calls made to the proxy",
			},
			[]string{"method", "route", "outcome", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP calls made to the proxy",
				Buckets:   callDurationBuckets,
			},
			[]string{"method", "route"},
		),
		testsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tests_total",
				Help:      "Number of tests by result",
			},
			[]string{"result"},
		),
		testDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "test_duration_seconds",
				Help:      "Duration of individual tests",
				Buckets:   callDurationBuckets,
			},
			[]string{"result"},
		),
	}
	registry.MustRegister(c.requestsTotal, c.requestDuration, c.testsTotal, c.testDuration)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveCall implements client.Observer.
func (c *Collector) ObserveCall(method, route string, outcome client.Outcome, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, route, outcome.String(), strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordResults counts every non-group test in results.
func (c *Collector) RecordResults(results framework.Results) {
	for _, t := range results.Tests {
		result := framework.StatusPass
		switch {
		case t.Skipped:
			result = framework.StatusSkip
		case len(t.Errors) > 0:
			result = framework.StatusFail
		case t.Group:
			continue
		}
		c.testsTotal.WithLabelValues(result).Inc()
		if result != framework.StatusSkip {
			c.testDuration.WithLabelValues(result).Observe(t.Duration.Seconds())
		}
	}
}

// WriteTextfile writes all metrics in the text exposition format, replacing path atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %q: %w", path, err)
	}
	return nil
}
