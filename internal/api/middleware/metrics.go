// metrics.go: Prometheus HTTP метрики File Catalog:
// fc_http_requests_total, fc_http_request_duration_seconds.
// В лейбл path попадает шаблон маршрута chi, а не фактический путь.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fc_http_requests_total",
			Help: "Общее количество HTTP-запросов к File Catalog",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fc_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к File Catalog в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware собирает количество и длительность запросов по маршрутам.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			path := routePattern(r)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// routePattern возвращает шаблон маршрута chi. Для запросов мимо
// маршрутов (404) используется normalizePath.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath заменяет сегмент после /api/v1/files/ на {file_id}
// для ограничения кардинальности.
func normalizePath(path string) string {
	const filesPrefix = "/api/v1/files/"
	rest, ok := strings.CutPrefix(path, filesPrefix)
	if !ok || rest == "" {
		return path
	}
	id, suffix, _ := strings.Cut(rest, "/")
	switch id {
	case "search", "index-search":
		return path
	}
	if suffix == "" {
		return filesPrefix + "{file_id}"
	}
	return filesPrefix + "{file_id}/" + suffix
}
