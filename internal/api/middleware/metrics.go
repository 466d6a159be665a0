// metrics.go — Prometheus HTTP метрики Work Records.
// Регистрирует метрики: wr_http_requests_total, wr_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики Work Records
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wr_http_requests_total",
			Help: "Общее количество HTTP-запросов к Work Records",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wr_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Work Records в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			status := strconv.Itoa(wrapped.statusCode)
			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath заменяет идентификаторы в пути на плейсхолдеры.
// /api/records/65a1... → /api/records/{id}
// /media/photo_1705312800000-a1b2c3d4.jpg → /media/{key}
// Неизвестные пути сводятся к "other".
func normalizePath(path string) string {
	switch path {
	case "/", "/health", "/health/ready", "/metrics",
		"/api/records", "/api/records/stats", "/api/openapi.json":
		return path
	}

	const recordsPrefix = "/api/records/"
	if rest, ok := strings.CutPrefix(path, recordsPrefix); ok && rest != "" && !strings.Contains(rest, "/") {
		return recordsPrefix + "{id}"
	}
	if rest, ok := strings.CutPrefix(path, "/media/"); ok && rest != "" {
		return "/media/{key}"
	}

	return "other"
}
