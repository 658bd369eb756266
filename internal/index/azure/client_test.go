package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/query"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{
		Endpoint: srv.URL + "/",
		APIKey:   "test-key",
		Index:    "files",
		Timeout:  5 * time.Second,
	}, slog.Default())
	if err != nil {
		t.Fatalf("New() ошибка: %v", err)
	}
	return c
}

func strPtr(s string) *string { return &s }

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(Config{Endpoint: "https://x.search.windows.net", Index: "files"}, slog.Default())
	if !errors.Is(err, index.ErrNotConfigured) {
		t.Errorf("New() = %v, ожидался ErrNotConfigured", err)
	}
}

func TestSearch_RequestAndMapping(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/indexes/files/docs/search" {
			t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("api-version") != "2024-07-01" {
			t.Errorf("api-version = %q", r.URL.Query().Get("api-version"))
		}
		if r.Header.Get("api-key") != "test-key" {
			t.Errorf("api-key = %q", r.Header.Get("api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("декодирование тела: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"@odata.count": 23,
			"value": [{
				"@search.score": 1.5,
				"key": "f1",
				"file_name": "f1.xlsx",
				"original_name": "",
				"ingredient": "Sugar, Pectin",
				"application": null,
				"status": "active",
				"updated_at": "2024-03-01T09:00:00Z"
			}]
		}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	page, err := c.Search(context.Background(), &query.Request{
		FreeText: "ペクチン",
		Filters:  map[query.Field]string{query.FieldIngredient: "Sugar"},
		Status:   strPtr("active"),
		Page:     3,
		PageSize: 10,
	})
	if err != nil {
		t.Fatalf("Search() ошибка: %v", err)
	}

	if got.Search != "(ペクチン | ペクチン*)" || got.SearchMode != "all" || got.QueryType != "simple" {
		t.Errorf("search/searchMode/queryType = %q/%q/%q", got.Search, got.SearchMode, got.QueryType)
	}
	if !strings.Contains(got.Filter, "search.ismatch('Sugar', 'ingredient')") ||
		!strings.HasSuffix(got.Filter, "status eq 'active'") {
		t.Errorf("filter = %q", got.Filter)
	}
	if got.Skip != 20 || got.Top != 10 || !got.Count {
		t.Errorf("skip/top/count = %d/%d/%v", got.Skip, got.Top, got.Count)
	}
	if !strings.HasPrefix(got.SearchFields, "content,original_name,") {
		t.Errorf("searchFields = %q", got.SearchFields)
	}

	if page.Total != 23 || len(page.Documents) != 1 {
		t.Fatalf("Total/len = %d/%d", page.Total, len(page.Documents))
	}
	d := page.Documents[0]
	if d.ID != "f1" || d.FileName != "f1.xlsx" || d.Application != nil || *d.Ingredient != "Sugar, Pectin" {
		t.Errorf("документ = %+v", d)
	}
	if !d.UpdatedAt.Equal(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", d.UpdatedAt)
	}
}

func TestSearch_HTTPErrorIsIndexError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid expression"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Search(context.Background(), &query.Request{PageSize: 10})
	var ie *index.Error
	if !errors.As(err, &ie) || ie.Op != index.OpSearch {
		t.Fatalf("Search() = %v, ожидалась *index.Error{Op: search}", err)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("ошибка не содержит статус: %v", err)
	}
}

func TestUpsert_MergeOrUploadWithNulls(t *testing.T) {
	var raw map[string][]map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/indexes/files/docs/index" {
			t.Errorf("путь = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = io.WriteString(w, `{"value":[{"key":"f1","status":true,"statusCode":200}]}`)
	}))
	defer srv.Close()

	doc := model.NewIndexDocument(&model.FileRecord{
		ID: "f1", OriginalName: "a.pdf", BlobPath: "b/a.pdf",
		Ingredient: strPtr("Sugar"), Status: model.StatusActive,
		UpdatedAt: time.Date(2024, 3, 1, 9, 0, 0, 123456789, time.UTC),
	})
	if err := newTestClient(t, srv).Upsert(context.Background(), doc); err != nil {
		t.Fatalf("Upsert() ошибка: %v", err)
	}

	v := raw["value"][0]
	if v["@search.action"] != "mergeOrUpload" || v["key"] != "f1" {
		t.Errorf("действие/ключ = %v/%v", v["@search.action"], v["key"])
	}
	if val, ok := v["application"]; !ok || val != nil {
		t.Errorf("application = %v (present=%v), ожидался явный null", val, ok)
	}
	if v["updated_at"] != "2024-03-01T09:00:00.123Z" {
		t.Errorf("updated_at = %v, ожидалась миллисекундная точность", v["updated_at"])
	}
}

func TestUpsert_RejectedDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = io.WriteString(w, `{"value":[{"key":"f1","status":false,"statusCode":422,"errorMessage":"bad field"}]}`)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).Upsert(context.Background(), &model.IndexDocument{ID: "f1"})
	var ie *index.Error
	if !errors.As(err, &ie) || ie.Op != index.OpUpsert {
		t.Fatalf("Upsert() = %v, ожидалась *index.Error{Op: upsert}", err)
	}
}

func TestDelete_MissingDocumentIsNotError(t *testing.T) {
	var raw map[string][]map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = io.WriteString(w, `{"value":[{"key":"f9","status":false,"statusCode":404}]}`)
	}))
	defer srv.Close()

	if err := newTestClient(t, srv).Delete(context.Background(), "f9"); err != nil {
		t.Fatalf("Delete() = %v, ожидалось nil", err)
	}
	v := raw["value"][0]
	if v["@search.action"] != "delete" || v["key"] != "f9" || len(v) != 2 {
		t.Errorf("тело удаления = %v", v)
	}
}

func TestListIDs_KeyCursor(t *testing.T) {
	var reqs []searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		reqs = append(reqs, req)
		resp := searchResponse{}
		n := listPageSize
		if req.Filter != "" {
			n = 2
		}
		for i := range n {
			resp.Value = append(resp.Value, document{Key: fmt.Sprintf("k%05d", i)})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	ids, err := newTestClient(t, srv).ListIDs(context.Background())
	if err != nil {
		t.Fatalf("ListIDs() ошибка: %v", err)
	}
	if len(ids) != listPageSize+2 || len(reqs) != 2 {
		t.Fatalf("len = %d, вызовов = %d", len(ids), len(reqs))
	}
	for _, req := range reqs {
		if req.OrderBy != "key asc" || req.Skip != 0 {
			t.Errorf("orderby/skip = %q/%d, ожидался курсор по key", req.OrderBy, req.Skip)
		}
	}
	if reqs[0].Filter != "" {
		t.Errorf("первая страница с фильтром %q", reqs[0].Filter)
	}
	want := fmt.Sprintf("key gt 'k%05d'", listPageSize-1)
	if reqs[1].Filter != want {
		t.Errorf("filter = %q, ожидался %q", reqs[1].Filter, want)
	}
}

func TestEnsureIndex_SchemaWithSynonyms(t *testing.T) {
	var got indexDefinition
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/indexes/files" {
			t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("api-version") == "" {
			t.Error("api-version не передан")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := New(Config{
		Endpoint:   srv.URL,
		APIKey:     "test-key",
		Index:      "files",
		Timeout:    5 * time.Second,
		SynonymMap: "ingredients",
	}, slog.Default())
	if err != nil {
		t.Fatalf("New() ошибка: %v", err)
	}
	if err := c.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex() ошибка: %v", err)
	}

	fields := make(map[string]field, len(got.Fields))
	for _, f := range got.Fields {
		fields[f.Name] = f
	}
	if got.Name != "files" || !fields["key"].Key || !fields["key"].Sortable {
		t.Errorf("ключевое поле = %+v", fields["key"])
	}
	// Все поля, которые пишет Upsert, должны существовать в схеме.
	for _, name := range []string{"file_name", "original_name", "owner_id", "blob_path", "application",
		"issue", "ingredient", "customer", "trial_ref", "author", "status", "content", "created_at", "updated_at"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("поле %s отсутствует в схеме", name)
		}
	}
	for _, name := range query.IndexSearchFields {
		f := fields[name]
		if !f.Searchable || len(f.SynonymMaps) != 1 || f.SynonymMaps[0] != "ingredients" {
			t.Errorf("поле %s: searchable=%v synonymMaps=%v", name, f.Searchable, f.SynonymMaps)
		}
	}
	if !fields["application"].Sortable || !fields["original_name"].Sortable || !fields["updated_at"].Sortable {
		t.Error("поля сортировки не помечены sortable")
	}
	if len(fields["status"].SynonymMaps) != 0 {
		t.Error("синонимы подключены к полю-фильтру status")
	}
}

func TestEnsureIndex_WithoutSynonymMap(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newTestClient(t, srv).EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex() ошибка: %v", err)
	}
	body, _ := json.Marshal(raw)
	if strings.Contains(string(body), "synonymMaps") {
		t.Errorf("synonymMaps передан без настроенного набора: %s", body)
	}
}

func TestEnsureIndex_HTTPErrorIsIndexError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"synonym map not found"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).EnsureIndex(context.Background())
	var ie *index.Error
	if !errors.As(err, &ie) || ie.Op != index.OpEnsure {
		t.Fatalf("EnsureIndex() = %v, ожидалась *index.Error{Op: ensure_index}", err)
	}
}

func TestUpsertSynonyms_SolrFormat(t *testing.T) {
	var got synonymMap
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/synonymmaps/ingredients" {
			t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).UpsertSynonyms(context.Background(), "ingredients",
		[]string{"ペクチン, pectin", "sugar, sucrose"})
	if err != nil {
		t.Fatalf("UpsertSynonyms() ошибка: %v", err)
	}
	if got.Format != "solr" || got.Synonyms != "ペクチン, pectin\nsugar, sucrose" {
		t.Errorf("synonym map = %+v", got)
	}
}
