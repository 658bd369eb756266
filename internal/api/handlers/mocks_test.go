package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/query"
	"github.com/bigkaa/filecatalog/internal/service"
)

type mockFileService struct {
	createFn   func(ctx context.Context, in service.CreateFileInput) (*model.FileRecord, error)
	getFn      func(ctx context.Context, id string) (*model.FileRecord, error)
	updateFn   func(ctx context.Context, id string, in service.UpdateFileInput) (*model.FileRecord, error)
	deleteFn   func(ctx context.Context, id string) error
	downloadFn func(ctx context.Context, id string, userID *string) (string, error)
}

func (m *mockFileService) Create(ctx context.Context, in service.CreateFileInput) (*model.FileRecord, error) {
	return m.createFn(ctx, in)
}

func (m *mockFileService) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	return m.getFn(ctx, id)
}

func (m *mockFileService) Update(ctx context.Context, id string, in service.UpdateFileInput) (*model.FileRecord, error) {
	return m.updateFn(ctx, id, in)
}

func (m *mockFileService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockFileService) RecordDownload(ctx context.Context, id string, userID *string) (string, error) {
	return m.downloadFn(ctx, id, userID)
}

type mockSearcher struct {
	searchFn func(ctx context.Context, req query.Request, requireIndex bool) (*service.SearchPage, error)
}

func (m *mockSearcher) Search(ctx context.Context, req query.Request, requireIndex bool) (*service.SearchPage, error) {
	return m.searchFn(ctx, req, requireIndex)
}

type mockReindexer struct {
	runFn func(ctx context.Context) (*model.ReindexResult, error)
}

func (m *mockReindexer) Run(ctx context.Context) (*model.ReindexResult, error) {
	return m.runFn(ctx)
}

type staticChecker struct {
	status, message string
}

func (c staticChecker) CheckReady() (string, string) { return c.status, c.message }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestRouter собирает роутер с обработчиками поверх моков.
// Незаданные моки заменяются пустыми.
func newTestRouter(files *mockFileService, search *mockSearcher, reindexer *mockReindexer, requireAdmin func(http.Handler) http.Handler) chi.Router {
	if files == nil {
		files = &mockFileService{}
	}
	if search == nil {
		search = &mockSearcher{}
	}
	if reindexer == nil {
		reindexer = &mockReindexer{}
	}
	h := NewAPIHandler(files, search, reindexer,
		NewHealthHandler(staticChecker{status: statusOK}, nil), requireAdmin, testLogger())
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func strPtr(s string) *string { return &s }
