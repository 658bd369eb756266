// files.go: запись файлов: регистрация, изменение, удаление, журнал скачиваний.
// После каждого коммита вызывается IndexSyncHook.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/links"
	"github.com/bigkaa/filecatalog/internal/repository"
)

// Ограничения длины полей.
const (
	maxNameLength = 255
	maxPathLength = 1024
	maxTagLength  = 255
)

var downloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fc_downloads_total",
	Help: "Количество зарегистрированных скачиваний.",
})

// CreateFileInput: данные для регистрации файла.
type CreateFileInput struct {
	OwnerID      *string
	OriginalName string
	BlobPath     string

	Application *string
	Issue       *string
	Ingredient  *string
	Customer    *string
	TrialRef    *string
	Author      *string

	// Status: пусто означает active
	Status          string
	IsPreviewHidden bool
}

// UpdateFileInput: частичное изменение записи. nil: поле не меняется,
// пустая строка в теге очищает его.
type UpdateFileInput struct {
	OriginalName *string
	BlobPath     *string

	Application *string
	Issue       *string
	Ingredient  *string
	Customer    *string
	TrialRef    *string
	Author      *string

	Status          *string
	IsPreviewHidden *bool
}

// FileService: операции записи над файлами.
type FileService struct {
	files     repository.FileRepository
	downloads repository.DownloadRepository
	cache     *CacheService
	sync      *IndexSyncHook
	resolver  links.Resolver
	logger    *slog.Logger
}

// NewFileService создаёт сервис файлов.
func NewFileService(
	files repository.FileRepository,
	downloads repository.DownloadRepository,
	cache *CacheService,
	sync *IndexSyncHook,
	resolver links.Resolver,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		files:     files,
		downloads: downloads,
		cache:     cache,
		sync:      sync,
		resolver:  resolver,
		logger:    logger.With(slog.String("component", "file_service")),
	}
}

// Create регистрирует файл и проецирует его в индекс.
func (s *FileService) Create(ctx context.Context, in CreateFileInput) (*model.FileRecord, error) {
	f := &model.FileRecord{
		ID:              uuid.NewString(),
		OwnerID:         normalizeTag(in.OwnerID),
		OriginalName:    strings.TrimSpace(in.OriginalName),
		BlobPath:        strings.TrimSpace(in.BlobPath),
		Application:     normalizeTag(in.Application),
		Issue:           normalizeTag(in.Issue),
		Ingredient:      normalizeTag(in.Ingredient),
		Customer:        normalizeTag(in.Customer),
		TrialRef:        normalizeTag(in.TrialRef),
		Author:          normalizeTag(in.Author),
		Status:          strings.TrimSpace(in.Status),
		IsPreviewHidden: in.IsPreviewHidden,
	}
	if f.Status == "" {
		f.Status = model.StatusActive
	}
	if err := validateRecord(f); err != nil {
		return nil, err
	}

	created, err := s.files.Create(ctx, f)
	if err != nil {
		return nil, mapRepoError(err, "регистрация файла")
	}

	s.cache.Set(created)
	s.sync.OnUpsert(ctx, created)

	s.logger.Info("Файл зарегистрирован",
		slog.String("file_id", created.ID),
		slog.String("blob_path", created.BlobPath),
	)
	return created, nil
}

// Get возвращает запись файла. Сначала проверяется кэш.
func (s *FileService) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	if f, ok := s.cache.Get(id); ok {
		return f, nil
	}
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "получение файла")
	}
	s.cache.Set(f)
	return f, nil
}

// Update применяет частичное изменение и синхронизирует индекс.
func (s *FileService) Update(ctx context.Context, id string, in UpdateFileInput) (*model.FileRecord, error) {
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "получение файла")
	}

	if in.OriginalName != nil {
		f.OriginalName = strings.TrimSpace(*in.OriginalName)
	}
	if in.BlobPath != nil {
		f.BlobPath = strings.TrimSpace(*in.BlobPath)
	}
	patchTag(&f.Application, in.Application)
	patchTag(&f.Issue, in.Issue)
	patchTag(&f.Ingredient, in.Ingredient)
	patchTag(&f.Customer, in.Customer)
	patchTag(&f.TrialRef, in.TrialRef)
	patchTag(&f.Author, in.Author)
	if in.Status != nil {
		f.Status = strings.TrimSpace(*in.Status)
	}
	if in.IsPreviewHidden != nil {
		f.IsPreviewHidden = *in.IsPreviewHidden
	}
	if err := validateRecord(f); err != nil {
		return nil, err
	}

	updated, err := s.files.Update(ctx, f)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.cache.Delete(id)
		}
		return nil, mapRepoError(err, "обновление файла")
	}

	s.cache.Set(updated)
	s.sync.OnUpsert(ctx, updated)

	s.logger.Info("Файл обновлён", slog.String("file_id", id), slog.String("status", updated.Status))
	return updated, nil
}

// Delete удаляет запись и документ индекса.
func (s *FileService) Delete(ctx context.Context, id string) error {
	if err := s.files.Delete(ctx, id); err != nil {
		return mapRepoError(err, "удаление файла")
	}

	s.cache.Delete(id)
	s.sync.OnDelete(ctx, id)

	s.logger.Info("Файл удалён", slog.String("file_id", id))
	return nil
}

// RecordDownload сохраняет событие скачивания и возвращает ссылку.
func (s *FileService) RecordDownload(ctx context.Context, id string, userID *string) (string, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	link, err := s.resolver.Link(ctx, f.BlobPath)
	if err != nil {
		return "", fmt.Errorf("построение ссылки на скачивание: %w", err)
	}

	if _, err := s.downloads.Record(ctx, id, normalizeTag(userID)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.cache.Delete(id)
		}
		return "", mapRepoError(err, "регистрация скачивания")
	}
	downloadsTotal.Inc()

	s.logger.Debug("Скачивание зарегистрировано", slog.String("file_id", id))
	return link, nil
}

// mapRepoError переводит ошибки репозитория в ошибки сервиса.
func mapRepoError(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// normalizeTag обрезает пробелы; пустое значение становится nil.
func normalizeTag(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

// patchTag применяет изменение тега: nil: без изменений, "": очистка.
func patchTag(dst **string, v *string) {
	if v == nil {
		return
	}
	*dst = normalizeTag(v)
}

func validateRecord(f *model.FileRecord) error {
	if f.BlobPath == "" {
		return fmt.Errorf("%w: blob_path обязателен", ErrValidation)
	}
	if utf8.RuneCountInString(f.BlobPath) > maxPathLength {
		return fmt.Errorf("%w: blob_path длиннее %d символов", ErrValidation, maxPathLength)
	}
	if utf8.RuneCountInString(f.OriginalName) > maxNameLength {
		return fmt.Errorf("%w: original_name длиннее %d символов", ErrValidation, maxNameLength)
	}
	if f.Status == "" {
		return fmt.Errorf("%w: status не может быть пустым", ErrValidation)
	}
	for _, tag := range f.Tags() {
		if tag != nil && utf8.RuneCountInString(*tag) > maxTagLength {
			return fmt.Errorf("%w: значение тега длиннее %d символов", ErrValidation, maxTagLength)
		}
	}
	return nil
}
