// Пакет model: доменные модели File Catalog.
// FileRecord: маппинг таблицы files (источник истины),
// IndexDocument: проекция записи в поисковый индекс,
// SearchResult: каноническая форма результата поиска.
package model

import (
	"path"
	"time"
)

// Статусы файла. Набор расширяемый: хранилище принимает любую строку.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// FileRecord: запись файла в таблице files.
type FileRecord struct {
	// ID: UUID файла
	ID string
	// OwnerID: идентификатор владельца (sub из JWT), опционально
	OwnerID *string
	// OriginalName: оригинальное имя файла
	OriginalName string
	// BlobPath: ключ объекта в blob-хранилище
	BlobPath string

	// Структурированные теги
	Application *string
	Issue       *string
	Ingredient  *string
	Customer    *string
	TrialRef    *string
	Author      *string

	// Status: active, inactive
	Status string
	// IsPreviewHidden: скрыть предпросмотр в UI
	IsPreviewHidden bool
	CreatedAt       time.Time
	// UpdatedAt обновляется хранилищем при каждой мутации
	UpdatedAt time.Time
}

// DisplayName возвращает имя для отображения: оригинальное имя,
// а если оно пустое: базовое имя объекта в хранилище.
func (f *FileRecord) DisplayName() string {
	return DisplayName(f.OriginalName, f.BlobPath)
}

// DisplayName выбирает имя для отображения из оригинального имени и пути.
func DisplayName(originalName, blobPath string) string {
	if originalName != "" {
		return originalName
	}
	if blobPath == "" {
		return ""
	}
	return path.Base(blobPath)
}

// Tags возвращает значения тегов в фиксированном порядке
// (application, issue, ingredient, customer, trial_ref, author).
func (f *FileRecord) Tags() []*string {
	return []*string{f.Application, f.Issue, f.Ingredient, f.Customer, f.TrialRef, f.Author}
}
