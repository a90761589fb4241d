// internal/middleware/logging.go
package middleware

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"devflow/internal/api"
	"devflow/internal/utils"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

type loggerKey struct{}

// statusWriter records the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Hijack lets websocket upgrades pass through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// RequestLogger returns the request-scoped logger, or fallback if none was set.
func RequestLogger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return fallback
}

// Logging tags each request with an id, logs its outcome and records route
// metrics. Routes are labelled by their mux template so ids in paths do not
// blow up label cardinality.
func Logging(logger *zap.Logger, metrics *utils.MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, requestID)

			reqLogger := logger.With(
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			ctx := context.WithValue(r.Context(), loggerKey{}, reqLogger)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(ctx))

			route := routeName(r)
			duration := time.Since(start)
			if sw.status == 0 {
				sw.status = http.StatusOK
			}

			if metrics != nil {
				metrics.IncrementRequests(route)
				metrics.ObserveRequest(route, duration)
				if sw.status >= http.StatusInternalServerError {
					metrics.IncrementErrors(route)
				}
			}

			fields := []zap.Field{
				zap.String("route", route),
				zap.Int("status", sw.status),
				zap.Int("bytes", sw.bytes),
				zap.Duration("duration", duration),
			}
			switch {
			case sw.status >= http.StatusInternalServerError:
				reqLogger.Error("Request failed", fields...)
			case sw.status >= http.StatusBadRequest:
				reqLogger.Warn("Request rejected", fields...)
			default:
				reqLogger.Info("Request completed", fields...)
			}
		})
	}
}

// Recover turns a handler panic into a 500 envelope.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					RequestLogger(r.Context(), logger).Error("Handler panicked",
						zap.Any("panic", rec),
						zap.ByteString("stack", debug.Stack()),
					)
					api.WriteError(w, utils.NewAppError(utils.ErrInternal, "internal server error", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return r.Method + " " + tpl
		}
	}
	return r.Method + " unmatched"
}
