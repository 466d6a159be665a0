package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// mockChecker — мок ReadinessChecker.
type mockChecker struct {
	name    string
	status  string
	message string
}

func (m *mockChecker) Name() string                 { return m.name }
func (m *mockChecker) CheckReady() (string, string) { return m.status, m.message }

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler()
	rec := httptest.NewRecorder()
	h.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}
	var body healthLiveResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Message != "Server is running" || body.Timestamp == "" {
		t.Errorf("ответ = %+v", body)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []ReadinessChecker
		wantStatus string
		wantCode   int
	}{
		{"без зависимостей", nil, statusOK, http.StatusOK},
		{"postgres ok", []ReadinessChecker{&mockChecker{name: "postgresql", status: "ok"}}, statusOK, http.StatusOK},
		{"mongo fail", []ReadinessChecker{&mockChecker{name: "mongodb", status: "fail", message: "timeout"}}, statusFail, http.StatusServiceUnavailable},
		{"degraded", []ReadinessChecker{
			&mockChecker{name: "a", status: "ok"},
			&mockChecker{name: "b", status: "degraded"},
		}, statusDegraded, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checkers...)
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("статус = %d, ожидался %d", rec.Code, tt.wantCode)
			}
			var body healthReadyResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, ожидался %q", body.Status, tt.wantStatus)
			}
			if len(body.Checks) != len(tt.checkers) {
				t.Errorf("checks = %v", body.Checks)
			}
		})
	}
}

func TestGetMetrics(t *testing.T) {
	h := NewHealthHandler()
	rec := httptest.NewRecorder()
	h.GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("ответ /metrics не содержит стандартных метрик")
	}
}

func TestSystemHandler(t *testing.T) {
	h := NewSystemHandler([]byte(`{"openapi":"3.0.3"}`), nil, testLogger())

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var index indexResponse
	if err := json.NewDecoder(rec.Body).Decode(&index); err != nil {
		t.Fatal(err)
	}
	if !index.Success || index.Endpoints["records"] != "/api/records" {
		t.Errorf("index = %+v", index)
	}

	rec = httptest.NewRecorder()
	h.OpenAPI(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	if rec.Body.String() != `{"openapi":"3.0.3"}` {
		t.Errorf("openapi = %s", rec.Body.String())
	}

	// Без локального хранилища /media отвечает 404.
	rec = httptest.NewRecorder()
	h.Media(rec, httptest.NewRequest(http.MethodGet, "/media/x.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("media статус = %d, ожидался 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Route not found") {
		t.Errorf("NotFound = %d %s", rec.Code, rec.Body.String())
	}
}

func TestMedia_UnknownKey(t *testing.T) {
	env := newTestEnv(t, defaultConstraints())

	for _, key := range []string{"photo_1-deadbeef.png", ".hidden", "x.tmp"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/media/"+key, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: статус = %d, ожидался 404", key, rec.Code)
		}
	}
}
