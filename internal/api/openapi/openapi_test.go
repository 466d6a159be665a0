package openapi

import (
	"encoding/json"
	"testing"
)

func TestLoad(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}

	for _, path := range []string{"/health", "/health/ready", "/api/records", "/api/records/stats", "/api/records/{id}"} {
		if doc.Paths.Find(path) == nil {
			t.Errorf("путь %s не описан в контракте", path)
		}
	}

	item := doc.Paths.Find("/api/records/{id}")
	if item.Get == nil || item.Put == nil || item.Delete == nil {
		t.Error("для /api/records/{id} должны быть описаны GET, PUT, DELETE")
	}
}

func TestJSON(t *testing.T) {
	data, err := JSON()
	if err != nil {
		t.Fatalf("JSON() ошибка: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("невалидный JSON: %v", err)
	}
	if parsed["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v, ожидалось 3.0.3", parsed["openapi"])
	}
}
