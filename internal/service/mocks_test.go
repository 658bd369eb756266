package service

import (
	"context"
	"time"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/query"
	"github.com/bigkaa/filecatalog/internal/repository"
)

// --- Mock FileRepository ---

type mockFileRepo struct {
	createFn       func(ctx context.Context, f *model.FileRecord) (*model.FileRecord, error)
	getByIDFn      func(ctx context.Context, id string) (*model.FileRecord, error)
	updateFn       func(ctx context.Context, f *model.FileRecord) (*model.FileRecord, error)
	deleteFn       func(ctx context.Context, id string) error
	searchFn       func(ctx context.Context, q query.StoreQuery) ([]*model.FileRecord, int, error)
	listAllFn      func(ctx context.Context, afterID string, limit int) ([]*model.FileRecord, error)
	existingIDsFn  func(ctx context.Context, ids []string) (map[string]bool, error)
	previewFlagsFn func(ctx context.Context, ids []string) (map[string]bool, error)

	previewCalls int
}

func (m *mockFileRepo) Create(ctx context.Context, f *model.FileRecord) (*model.FileRecord, error) {
	if m.createFn != nil {
		return m.createFn(ctx, f)
	}
	cp := *f
	cp.CreatedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cp.UpdatedAt = cp.CreatedAt
	return &cp, nil
}

func (m *mockFileRepo) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockFileRepo) Update(ctx context.Context, f *model.FileRecord) (*model.FileRecord, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, f)
	}
	cp := *f
	cp.UpdatedAt = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	return &cp, nil
}

func (m *mockFileRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockFileRepo) Search(ctx context.Context, q query.StoreQuery) ([]*model.FileRecord, int, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return nil, 0, nil
}

func (m *mockFileRepo) ListAll(ctx context.Context, afterID string, limit int) ([]*model.FileRecord, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, afterID, limit)
	}
	return nil, nil
}

func (m *mockFileRepo) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if m.existingIDsFn != nil {
		return m.existingIDsFn(ctx, ids)
	}
	return map[string]bool{}, nil
}

func (m *mockFileRepo) PreviewFlags(ctx context.Context, ids []string) (map[string]bool, error) {
	m.previewCalls++
	if m.previewFlagsFn != nil {
		return m.previewFlagsFn(ctx, ids)
	}
	return map[string]bool{}, nil
}

// --- Mock DownloadRepository ---

type mockDownloadRepo struct {
	recordFn func(ctx context.Context, fileID string, userID *string) (*model.DownloadEvent, error)
	countFn  func(ctx context.Context, ids []string, since *time.Time) (map[string]int64, error)

	countCalls int
}

func (m *mockDownloadRepo) Record(ctx context.Context, fileID string, userID *string) (*model.DownloadEvent, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, fileID, userID)
	}
	return &model.DownloadEvent{ID: "event-1", FileID: fileID, UserID: userID}, nil
}

func (m *mockDownloadRepo) CountByFileIDs(ctx context.Context, ids []string, since *time.Time) (map[string]int64, error) {
	m.countCalls++
	if m.countFn != nil {
		return m.countFn(ctx, ids, since)
	}
	return map[string]int64{}, nil
}

// --- Mock index.Client ---

type mockIndex struct {
	enabled  bool
	searchFn func(ctx context.Context, req *query.Request) (*index.Page, error)
	upsertFn func(ctx context.Context, doc *model.IndexDocument) error
	deleteFn func(ctx context.Context, id string) error
	listFn   func(ctx context.Context) ([]string, error)
}

func (m *mockIndex) Enabled() bool { return m.enabled }

func (m *mockIndex) Search(ctx context.Context, req *query.Request) (*index.Page, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return &index.Page{}, nil
}

func (m *mockIndex) Upsert(ctx context.Context, doc *model.IndexDocument) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, doc)
	}
	return nil
}

func (m *mockIndex) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockIndex) ListIDs(ctx context.Context) ([]string, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockIndex) UpsertSynonyms(context.Context, string, []string) error { return nil }

// --- Mock links.Resolver ---

type mockResolver struct {
	linkFn func(ctx context.Context, blobPath string) (string, error)
}

func (m *mockResolver) Link(ctx context.Context, blobPath string) (string, error) {
	if m.linkFn != nil {
		return m.linkFn(ctx, blobPath)
	}
	return "https://files.example.com/" + blobPath, nil
}

func strPtr(s string) *string { return &s }
