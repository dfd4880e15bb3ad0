package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/fairshare/internal/logging"
)

func TestRequestLoggerIncludesPartner(t *testing.T) {
	tokens, ps := setupAuthMiddleware(t)
	var buf bytes.Buffer
	logger := logging.New(&buf, "debug")

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	})
	h := RequestLogger(logger)(RequireAuth(tokens, ps)(ok))

	token, _ := tokens.Issue("minji")
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	for _, want := range []string{"level=INFO", "status=200", "bytes=5", "partner=minji"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/api/tasks", http.StatusInternalServerError, "level=ERROR"},
		{"/api/tasks", http.StatusConflict, "level=WARN"},
		{"/health", http.StatusOK, "level=DEBUG"},
		{"/health", http.StatusServiceUnavailable, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		h := RequestLogger(logging.New(&buf, "debug"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("%s %d logged %q, want %s", tt.path, tt.status, buf.String(), tt.want)
		}
	}
}

func TestRequestLoggerQuietAtInfo(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/metrics", nil))
	if buf.Len() != 0 {
		t.Errorf("scrape logged at info: %q", buf.String())
	}
}
