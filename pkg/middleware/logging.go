package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/configuration"
	"github.com/veloxcrm/velox/pkg/constants"
	"github.com/veloxcrm/velox/pkg/httpapi"
)

const maxLoggedBodyLength = 4096

type LoggerOptions struct {
	LogRequestBody  bool
	LogResponseBody bool
	// Header names come from configuration; zero values fall back to the
	// configuration defaults.
	RequestIDHeader string
	RealIPHeader    string
}

func DefaultLoggerOptions() LoggerOptions {
	conf := configuration.Use()
	return LoggerOptions{
		LogRequestBody:  false,
		LogResponseBody: false,
		RequestIDHeader: conf.RequestIDHeader,
		RealIPHeader:    conf.RealIPHeader,
	}
}

type responseCaptureWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	capture    bool
}

func (w *responseCaptureWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseCaptureWriter) Write(b []byte) (int, error) {
	if w.capture && w.body.Len() < maxLoggedBodyLength {
		remaining := maxLoggedBodyLength - w.body.Len()
		if remaining > len(b) {
			remaining = len(b)
		}
		w.body.Write(b[:remaining])
	}
	return w.ResponseWriter.Write(b)
}

func getRealIP(r *http.Request, header string) string {
	if real := r.Header.Get(header); real != "" {
		return real
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}

func getRequestID(r *http.Request, header string) string {
	if id := r.Header.Get(header); id != "" {
		return id
	}
	return uuid.New().String()
}

func isLoggableContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "application/json") ||
		strings.Contains(ct, "text/") ||
		strings.Contains(ct, "application/x-www-form-urlencoded")
}

// WithLogger attaches a request-scoped logger to the context, recovers
// panics into a JSON 500 and emits a completion entry with duration and
// status for every request.
func WithLogger(logger *logrus.Logger, opts LoggerOptions) mux.MiddlewareFunc {
	if opts.RequestIDHeader == "" {
		opts.RequestIDHeader = "X-Request-ID"
	}
	if opts.RealIPHeader == "" {
		opts.RealIPHeader = "X-Real-IP"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := getRequestID(r, opts.RequestIDHeader)

			fieldsLogger := logger.WithFields(logrus.Fields{
				"request-id": requestID,
				"method":     r.Method,
				"path":       r.RequestURI,
				"host":       r.Host,
				"ip":         getRealIP(r, opts.RealIPHeader),
			})

			ctx := context.WithValue(r.Context(), constants.RequestIDKey, requestID)
			r = r.WithContext(composables.WithLogger(ctx, fieldsLogger))
			w.Header().Set(opts.RequestIDHeader, requestID)

			if opts.LogRequestBody && r.Body != nil && isLoggableContentType(r.Header.Get("Content-Type")) {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyLength))
				if err == nil {
					_ = r.Body.Close()
					r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), http.NoBody))
					fieldsLogger = fieldsLogger.WithField("request-body", string(body))
				}
			}

			wrapped := &responseCaptureWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
				capture:        opts.LogResponseBody,
			}

			defer func() {
				if rec := recover(); rec != nil {
					fieldsLogger.WithFields(logrus.Fields{
						"panic": rec,
						"stack": string(debug.Stack()),
					}).Error("panic recovered")
					httpapi.WriteProblem(wrapped, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
					return
				}

				entry := fieldsLogger.WithFields(logrus.Fields{
					"duration": time.Since(start).String(),
					"status":   wrapped.statusCode,
				})
				if opts.LogResponseBody && wrapped.body.Len() > 0 && isLoggableContentType(wrapped.Header().Get("Content-Type")) {
					entry = entry.WithField("response-body", wrapped.body.String())
				}
				if wrapped.statusCode >= http.StatusInternalServerError {
					entry.Error("request completed")
				} else {
					entry.Info("request completed")
				}
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}
