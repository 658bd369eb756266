package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bigkaa/filecatalog/internal/api/openapi"
)

func newTestValidator(t *testing.T) http.Handler {
	t.Helper()
	doc, err := openapi.Load()
	if err != nil {
		t.Fatalf("openapi.Load() ошибка: %v", err)
	}
	v, err := NewOpenAPIValidator(doc, testLogger())
	if err != nil {
		t.Fatalf("NewOpenAPIValidator() ошибка: %v", err)
	}
	return v.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestOpenAPIValidator_ValidSearch(t *testing.T) {
	h := newTestValidator(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/search?q=jam&page=2&page_size=500&mine=true", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("статус = %d, тело: %s", rec.Code, rec.Body.String())
	}
}

func TestOpenAPIValidator_InvalidPage(t *testing.T) {
	h := newTestValidator(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/search?page=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("статус = %d, ожидался 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "VALIDATION_ERROR") {
		t.Errorf("тело = %s", rec.Body.String())
	}
}

func TestOpenAPIValidator_CreateWithoutBlobPath(t *testing.T) {
	h := newTestValidator(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", strings.NewReader(`{"original_name":"a.xlsx"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("статус = %d, ожидался 400", rec.Code)
	}
}

func TestOpenAPIValidator_SkipsNonAPI(t *testing.T) {
	h := newTestValidator(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("статус = %d", rec.Code)
	}
}
