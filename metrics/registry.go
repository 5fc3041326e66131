/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics collects the Prometheus instrumentation surface beyond
// the stripe-contention gauge package stripe registers itself: per-command
// request counters and the replication follower's apply lag.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every collector this package exposes, ready to pass to
// a prometheus.Registerer.
type Registry struct {
	Requests    *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	ReplLagSecs prometheus.Gauge
}

// New builds an unregistered Registry.
func New() *Registry {
	return &Registry{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvtyrant_requests_total",
			Help: "Total requests handled, by dialect and command.",
		}, []string{"dialect", "command"}),

		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvtyrant_failures_total",
			Help: "Total non-success responses, by dialect and command.",
		}, []string{"dialect", "command"}),

		ReplLagSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvtyrant_replication_lag_seconds",
			Help: "Age of the last-applied replication event, in seconds.",
		}),
	}
}

// Collectors returns every collector in the registry, for bulk
// registration.
func (r *Registry) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.Requests, r.Failures, r.ReplLagSecs}
}

// Observe records one request outcome.
func (r *Registry) Observe(dialect, command string, ok bool) {
	r.Requests.WithLabelValues(dialect, command).Inc()
	if !ok {
		r.Failures.WithLabelValues(dialect, command).Inc()
	}
}
