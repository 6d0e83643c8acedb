// Package httputils carries the small HTTP helpers shared by the server:
// error reporting, health checks and request logging.
package httputils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ReportError logs the detailed error and writes the short message to the
// response with the given status code. The detailed error never reaches
// the client.
func ReportError(w http.ResponseWriter, logger *zap.Logger, err error, message string, code int) {
	logger.Error(message, zap.Error(err), zap.Int("status", code))
	if message == "" {
		message = "Unknown error"
	}
	http.Error(w, message, code)
}

// ReportJSON encodes v to the response as JSON. Encoding failures are
// logged; at that point part of the body may already be written, so no
// error status is attempted.
func ReportJSON(w http.ResponseWriter, logger *zap.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("writing JSON response", zap.Error(err))
	}
}

// HealthzHandler returns 200 OK with an empty body, appropriate for a
// health check endpoint.
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
}

// LoggingMiddleware logs one line per request with method, path, status
// and latency.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			proxy := &responseProxy{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(proxy, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", proxy.status),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}

// responseProxy records the status code written to the response.
type responseProxy struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rp *responseProxy) WriteHeader(code int) {
	if !rp.wroteHeader {
		rp.status = code
		rp.wroteHeader = true
	}
	rp.ResponseWriter.WriteHeader(code)
}

// Hijack passes hijacking through to the wrapped ResponseWriter so
// websocket upgrades work on wrapped connections.
func (rp *responseProxy) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rp.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	conn, rw, err := hj.Hijack()
	if err == nil {
		// The handler owns the connection from here on.
		rp.status = http.StatusSwitchingProtocols
		rp.wroteHeader = true
	}
	return conn, rw, err
}

func (rp *responseProxy) Flush() {
	if f, ok := rp.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
