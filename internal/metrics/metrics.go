// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics defines the Prometheus collectors exported on /metrics and
// the HTTP middleware that feeds the request collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts served requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simpleblog_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPDuration records request latency by method and route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simpleblog_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// SlugProbes records how many existence checks one slug assignment took.
	SlugProbes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "simpleblog_slug_probes",
		Help:    "Number of slug existence checks per assignment",
		Buckets: []float64{1, 2, 3, 5, 10, 25, 50},
	})

	// SlugConflicts counts writes that lost a slug race to a concurrent writer.
	SlugConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simpleblog_slug_conflicts_total",
		Help: "Total number of slug unique-constraint conflicts on write",
	})

	// CacheLookups counts public response cache lookups by result (hit|miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simpleblog_response_cache_lookups_total",
		Help: "Total number of response cache lookups",
	}, []string{"result"})

	// RedisErrors counts Valkey errors by operation.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simpleblog_redis_errors_total",
		Help: "Total number of Valkey errors by operation",
	}, []string{"operation"})
)

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records HTTPRequests and HTTPDuration. It labels by chi route
// pattern so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
