package middleware

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	apperrors "github.com/voltlog/telemetry-backend/internal/core/errors"
)

// recordingWriter captures what the handler wrote so the request log can
// report it. A websocket upgrade hijacks the connection instead of writing
// a status, which the logger has to distinguish from a normal response.
type recordingWriter struct {
	http.ResponseWriter
	status   int
	bytes    int64
	hijacked bool
}

func newRecordingWriter(w http.ResponseWriter) *recordingWriter {
	return &recordingWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

func (rw *recordingWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the raw connection to the websocket upgrader.
func (rw *recordingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response does not implement http.Hijacker")
	}
	rw.hijacked = true
	return hijacker.Hijack()
}

// RequestLogger logs one line per request with the relay's field
// conventions: request_id first, then routing, outcome and client identity.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newRecordingWriter(w)

			next.ServeHTTP(rec, r)

			attrs := []any{
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", rec.bytes,
				"client_ip", getClientIP(r),
			}

			// An upgraded connection reports its own lifecycle through the
			// hub; here only the handshake is worth a line.
			if rec.hijacked {
				logger.Info("connection upgraded", attrs...)
				return
			}

			switch {
			case rec.status >= 500:
				logger.Error("request", attrs...)
			case rec.status >= 400:
				logger.Warn("request", attrs...)
			default:
				logger.Info("request", attrs...)
			}
		})
	}
}

// RecoveryLogger converts a handler panic into a logged 500. A panic in
// the gateway must never take the relay workers down with it.
func RecoveryLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"request_id", GetRequestID(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
						"panic", rec,
					)
					writeAppError(w, apperrors.NewInternalError(fmt.Errorf("%v", rec)))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// writeAppError mirrors the adapter's error body. The body is built here
// because the adapter package imports this one.
func writeAppError(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}
