package openapi

import "testing"

func TestLoad(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}
	for _, p := range []string{"/api/v1/files/search", "/api/v1/files/index-search", "/api/v1/files/{file_id}", "/api/v1/admin/reindex"} {
		if doc.Paths.Find(p) == nil {
			t.Errorf("путь %s отсутствует в контракте", p)
		}
	}
}
