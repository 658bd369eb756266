// enrich.go: пакетное обогащение результатов поиска.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/links"
	"github.com/bigkaa/filecatalog/internal/repository"
)

// Enricher дополняет результаты счётчиком скачиваний, флагом скрытия
// предпросмотра и ссылкой на скачивание. Для страницы выполняется
// не более двух запросов к хранилищу независимо от её размера.
type Enricher struct {
	files     repository.FileRepository
	downloads repository.DownloadRepository
	resolver  links.Resolver
	// window: окно подсчёта скачиваний, 0: за всё время
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewEnricher создаёт обогатитель.
func NewEnricher(
	files repository.FileRepository,
	downloads repository.DownloadRepository,
	resolver links.Resolver,
	window time.Duration,
	logger *slog.Logger,
) *Enricher {
	return &Enricher{
		files:     files,
		downloads: downloads,
		resolver:  resolver,
		window:    window,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "enricher")),
	}
}

// Enrich заполняет поля обогащения на месте. Отсутствующие в хранилище
// значения остаются по умолчанию (0 скачиваний, предпросмотр виден).
// Ключи индекса, не являющиеся UUID, в хранилище не запрашиваются.
func (e *Enricher) Enrich(ctx context.Context, results []model.SearchResult) error {
	if len(results) == 0 {
		return nil
	}

	ids := make([]string, len(results))
	for i := range results {
		ids[i] = results[i].ID
	}
	ids = validIDs(ids)

	var (
		counts map[string]int64
		hidden map[string]bool
	)
	if len(ids) > 0 {
		var since *time.Time
		if e.window > 0 {
			t := e.now().Add(-e.window).UTC()
			since = &t
		}

		var err error
		counts, err = e.downloads.CountByFileIDs(ctx, ids, since)
		if err != nil {
			return fmt.Errorf("подсчёт скачиваний: %w", err)
		}
		hidden, err = e.files.PreviewFlags(ctx, ids)
		if err != nil {
			return fmt.Errorf("флаги предпросмотра: %w", err)
		}
	}

	for i := range results {
		r := &results[i]
		r.DownloadCount = counts[r.ID]
		r.IsPreviewHidden = hidden[r.ID]
		r.DownloadLink = e.link(ctx, r.ID, r.BlobPath)
	}
	return nil
}

// link строит ссылку; ошибка резолвера не ломает выдачу.
func (e *Enricher) link(ctx context.Context, id, blobPath string) string {
	if blobPath == "" {
		return ""
	}
	u, err := e.resolver.Link(ctx, blobPath)
	if err != nil {
		e.logger.Warn("Не удалось построить ссылку на скачивание",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return u
}
