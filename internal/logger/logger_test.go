package logger

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestSetupWriterJSON(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	var buf bytes.Buffer
	l := SetupWriter(&buf)
	l.Debug("probe", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"probe"`)
	assert.Same(t, l, L())
}

func TestAccessMiddleware(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "")
	var buf bytes.Buffer
	l := SetupWriter(&buf)

	var seen string
	h := AccessMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("x-request-id"))
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "bytes=2")

	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("x-request-id", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "abc", seen)
}
