package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/api/records", "/api/records"},
		{"/api/records/stats", "/api/records/stats"},
		{"/api/records/65a1b2c3d4e5f6a7b8c9d0e1", "/api/records/{id}"},
		{"/api/records/a1b2c3d4-e5f6-7890-abcd-ef1234567890", "/api/records/{id}"},
		{"/api/records/x/y", "other"},
		{"/media/photo_1705312800000-a1b2c3d4.jpg", "/media/{key}"},
		{"/wp-admin", "other"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.path, got, tt.want)
		}
	}
}

// TestRequestLogger_LevelByStatus проверяет выбор уровня логирования по статусу.
func TestRequestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusBadGateway, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte("body"))
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/records", nil))

		out := buf.String()
		if !strings.Contains(out, tt.level) {
			t.Errorf("статус %d: лог %q не содержит %s", tt.status, out, tt.level)
		}
		if !strings.Contains(out, "bytes=4") {
			t.Errorf("статус %d: лог не содержит размер ответа: %q", tt.status, out)
		}
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/records", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("preflight без Access-Control-Allow-Origin")
	}
	if rec.Code == http.StatusTeapot {
		t.Error("preflight не должен доходить до обработчика")
	}
}
