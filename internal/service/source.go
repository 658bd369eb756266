// source.go: источники результатов поиска и явные таблицы маппинга
// в каноническую форму model.SearchResult.
package service

import (
	"context"
	"fmt"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/query"
	"github.com/bigkaa/filecatalog/internal/repository"
)

// Имена источников результатов.
const (
	SourceIndex = "index"
	SourceStore = "store"
)

// ResultSource: стратегия выполнения поискового запроса.
type ResultSource interface {
	// Name возвращает имя источника (index, store).
	Name() string
	// Fetch выполняет запрос и возвращает общее число совпадений
	// и страницу результатов в канонической форме.
	Fetch(ctx context.Context, req *query.Request) (int, []model.SearchResult, error)
}

// IndexSource выполняет запрос через поисковый индекс.
type IndexSource struct {
	client index.Client
}

// NewIndexSource создаёт источник поверх клиента индекса.
func NewIndexSource(client index.Client) *IndexSource {
	return &IndexSource{client: client}
}

// Name возвращает "index".
func (s *IndexSource) Name() string { return SourceIndex }

// Fetch выполняет запрос в индексе.
func (s *IndexSource) Fetch(ctx context.Context, req *query.Request) (int, []model.SearchResult, error) {
	page, err := s.client.Search(ctx, req)
	if err != nil {
		return 0, nil, err
	}
	results := make([]model.SearchResult, 0, len(page.Documents))
	for _, doc := range page.Documents {
		results = append(results, resultFromDocument(doc))
	}
	return page.Total, results, nil
}

// StoreSource выполняет запрос через PostgreSQL.
type StoreSource struct {
	repo repository.FileRepository
}

// NewStoreSource создаёт источник поверх репозитория.
func NewStoreSource(repo repository.FileRepository) *StoreSource {
	return &StoreSource{repo: repo}
}

// Name возвращает "store".
func (s *StoreSource) Name() string { return SourceStore }

// Fetch компилирует запрос в SQL и выполняет его.
func (s *StoreSource) Fetch(ctx context.Context, req *query.Request) (int, []model.SearchResult, error) {
	records, total, err := s.repo.Search(ctx, query.CompileStore(req))
	if err != nil {
		return 0, nil, fmt.Errorf("поиск в хранилище: %w", err)
	}
	results := make([]model.SearchResult, 0, len(records))
	for _, f := range records {
		results = append(results, resultFromRecord(f))
	}
	return total, results, nil
}

// resultFromDocument: маппинг документа индекса.
// Имя: original_name, при его отсутствии file_name, затем базовое имя blob_path.
func resultFromDocument(doc *model.IndexDocument) model.SearchResult {
	name := doc.OriginalName
	if name == "" {
		name = doc.FileName
	}
	return model.SearchResult{
		ID:          doc.ID,
		DisplayName: model.DisplayName(name, doc.BlobPath),
		Application: doc.Application,
		Issue:       doc.Issue,
		Ingredient:  doc.Ingredient,
		Customer:    doc.Customer,
		TrialRef:    doc.TrialRef,
		Author:      doc.Author,
		Status:      doc.Status,
		UpdatedAt:   doc.UpdatedAt.UTC(),
		BlobPath:    doc.BlobPath,
	}
}

// resultFromRecord: маппинг строки таблицы files.
func resultFromRecord(f *model.FileRecord) model.SearchResult {
	return model.SearchResult{
		ID:              f.ID,
		DisplayName:     f.DisplayName(),
		Application:     f.Application,
		Issue:           f.Issue,
		Ingredient:      f.Ingredient,
		Customer:        f.Customer,
		TrialRef:        f.TrialRef,
		Author:          f.Author,
		Status:          f.Status,
		UpdatedAt:       f.UpdatedAt.UTC(),
		IsPreviewHidden: f.IsPreviewHidden,
		BlobPath:        f.BlobPath,
	}
}
