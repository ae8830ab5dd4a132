// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains custom Prometheus metrics for TaskVault.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AuthFailuresTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers custom TaskVault metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskvault_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskvault_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskvault_auth_failures_total",
				Help: "Total number of rejected bearer credentials by failure stage",
			},
			[]string{"stage"},
		),
	}

	reg.MustRegister(m.HTTPRequestsTotal)
	reg.MustRegister(m.HTTPRequestDuration)
	reg.MustRegister(m.AuthFailuresTotal)

	return m
}

// RecordAuthFailure counts a rejected credential. stage is the resolver
// failure code.
func (m *Metrics) RecordAuthFailure(stage string) {
	m.AuthFailuresTotal.WithLabelValues(stage).Inc()
}
