package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoggedRouter(opts LoggerOptions) (*mux.Router, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)
	r := mux.NewRouter()
	r.Use(WithLogger(logger, opts))
	r.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)
	return r, hook
}

func completionEntry(t *testing.T, hook *test.Hook) *logrus.Entry {
	t.Helper()
	for _, entry := range hook.AllEntries() {
		if entry.Message == "request completed" {
			return entry
		}
	}
	t.Fatal("no completion entry logged")
	return nil
}

func TestWithLogger_ConfiguredHeaders(t *testing.T) {
	opts := LoggerOptions{
		RequestIDHeader: "X-Trace-Id",
		RealIPHeader:    "CF-Connecting-IP",
	}

	t.Run("request id comes from the configured header", func(t *testing.T) {
		router, hook := newLoggedRouter(opts)
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Trace-Id", "trace-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, "trace-123", rec.Header().Get("X-Trace-Id"))
		assert.Equal(t, "trace-123", completionEntry(t, hook).Data["request-id"])
	})

	t.Run("missing request id generates one", func(t *testing.T) {
		router, _ := newLoggedRouter(opts)
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		id := rec.Header().Get("X-Trace-Id")
		_, err := uuid.Parse(id)
		require.NoError(t, err)
	})

	t.Run("ip comes only from the configured header", func(t *testing.T) {
		router, hook := newLoggedRouter(opts)
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", "6.6.6.6")
		req.Header.Set("CF-Connecting-IP", "203.0.113.7")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, "203.0.113.7", completionEntry(t, hook).Data["ip"])
	})

	t.Run("unconfigured forwarding headers are ignored", func(t *testing.T) {
		router, hook := newLoggedRouter(opts)
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", "6.6.6.6")
		req.RemoteAddr = "192.0.2.10:4321"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, "192.0.2.10", completionEntry(t, hook).Data["ip"])
	})

	t.Run("zero options fall back to the standard names", func(t *testing.T) {
		router, hook := newLoggedRouter(LoggerOptions{})
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", "req-7")
		req.Header.Set("X-Real-IP", "198.51.100.4")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, "req-7", rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "198.51.100.4", completionEntry(t, hook).Data["ip"])
	})
}
