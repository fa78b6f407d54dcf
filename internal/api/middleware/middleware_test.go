package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newEngine(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := gin.New()
	r.Use(CorrelationIDMiddleware(), SlogLoggerMiddleware(logger))
	r.GET("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, CorrelationID(c.Request.Context()))
	})
	r.GET("/fail", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	return r
}

func TestCorrelationID_KeepsValidHeader(t *testing.T) {
	r := newEngine(&bytes.Buffer{})

	for _, header := range []string{CorrelationIDHeader, requestIDHeader} {
		req := httptest.NewRequest(http.MethodGet, "/echo", nil)
		req.Header.Set(header, "req-42.a_b")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if got := w.Body.String(); got != "req-42.a_b" {
			t.Fatalf("%s: expected id propagated to request context, got %q", header, got)
		}
		if got := w.Header().Get(CorrelationIDHeader); got != "req-42.a_b" {
			t.Fatalf("%s: expected response header, got %q", header, got)
		}
	}
}

func TestCorrelationID_ReplacesInvalidHeader(t *testing.T) {
	r := newEngine(&bytes.Buffer{})

	for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("a", maxCorrelationIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/echo", nil)
		req.Header.Set(CorrelationIDHeader, bad)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get(CorrelationIDHeader)
		if got == bad || !validCorrelationID(got) {
			t.Fatalf("expected generated id for %q, got %q", bad, got)
		}
	}
}

func TestSlogLogger_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(&buf)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/echo", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	want := []string{"INFO", "ERROR"}
	for i, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if entry["level"] != want[i] {
			t.Fatalf("line %d: expected level %s, got %v", i, want[i], entry["level"])
		}
		if entry["correlation_id"] == "" || entry["correlation_id"] == nil {
			t.Fatalf("line %d: missing correlation_id", i)
		}
	}
}
