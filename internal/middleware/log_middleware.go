package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"lending-service/internal/metrics"
)

// LogMiddleware logs information about each request and records its latency
func LogMiddleware(logger *logrus.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := newStatusResponseWriter(w)

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			route := routeTemplate(r)

			if m != nil {
				m.ObserveRequest(r.Method, route, rw.status, duration)
			}

			logger.WithFields(logrus.Fields{
				"method":       r.Method,
				"path":         r.URL.Path,
				"route":        route,
				"status":       rw.status,
				"duration":     duration.String(),
				"user_agent":   r.UserAgent(),
				"ip":           r.RemoteAddr,
				"principal_id": PrincipalID(r.Context()),
			}).Info("HTTP request")
		})
	}
}

// routeTemplate keeps metric labels bounded by using the mux path template
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// statusResponseWriter is a custom response writer that captures the status code
type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{
		ResponseWriter: w,
		status:         http.StatusOK,
	}
}

// WriteHeader captures the status code and forwards it to the wrapped ResponseWriter
func (rw *statusResponseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}
