package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// httpMetrics records per-route request metrics
//
//   - overland_http_request_duration_seconds{method,path,status}: histogram
//   - overland_http_requests_inflight: gauge
//   - overland_http_request_errors_total{method,path,status}: counter (4xx/5xx)
type httpMetrics struct {
	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	reqErrors   *prometheus.CounterVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "overland",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "path", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "overland",
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served.",
		}),
		reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overland",
			Name:      "http_request_errors_total",
			Help:      "HTTP requests that ended with a 4xx or 5xx status.",
		}, []string{"method", "path", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.reqDuration, m.reqInflight, m.reqErrors)
	}
	return m
}

// statusRecorder captures the response status. It passes Hijack through for websocket upgrades.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	// A hijacked connection answers 101 itself
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// routeTemplate returns the matched route pattern so labels stay low-cardinality
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// instrument logs and measures every routed request
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.reqInflight.Inc()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.metrics.reqInflight.Dec()
		elapsed := time.Since(start)
		path := routeTemplate(r)
		status := strconv.Itoa(rec.status)

		s.metrics.reqDuration.WithLabelValues(r.Method, path, status).Observe(elapsed.Seconds())
		if rec.status >= 400 {
			s.metrics.reqErrors.WithLabelValues(r.Method, path, status).Inc()
		}

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"route":    path,
			"status":   rec.status,
			"duration": elapsed.String(),
		}).Debug("request")
	})
}
