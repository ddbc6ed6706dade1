package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestLoad проверяет, что встроенный контракт разбирается и валиден.
func TestLoad(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("контракт невалиден: %v", err)
	}

	for _, path := range []string{
		"/collections/{collectionId}/items",
		"/collections/{collectionId}/items/{recordId}",
		"/health/live",
		"/health/ready",
		"/metrics",
	} {
		if doc.Paths.Find(path) == nil {
			t.Errorf("контракт не описывает %s", path)
		}
	}
}

// TestHandler проверяет отдачу контракта в JSON.
func TestHandler(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	handler, err := Handler(doc)
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидалось 200, получено %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: %s", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("ответ не JSON: %v", err)
	}
	if body["openapi"] != "3.0.3" {
		t.Errorf("версия контракта: %v", body["openapi"])
	}
}
