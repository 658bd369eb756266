package model

import (
	"path"
	"strings"
	"time"
)

// IndexDocument: документ поискового индекса, проекция FileRecord.
// Ключ документа совпадает с ID записи.
type IndexDocument struct {
	ID string
	// FileName: базовое имя объекта, используется, если OriginalName пуст
	FileName     string
	OriginalName string
	OwnerID      *string
	BlobPath     string

	Application *string
	Issue       *string
	Ingredient  *string
	Customer    *string
	TrialRef    *string
	Author      *string

	Status string
	// Content: конкатенация имени и тегов для полнотекстового поиска
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewIndexDocument строит документ индекса из записи хранилища.
func NewIndexDocument(f *FileRecord) *IndexDocument {
	doc := &IndexDocument{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		OwnerID:      f.OwnerID,
		BlobPath:     f.BlobPath,
		Application:  f.Application,
		Issue:        f.Issue,
		Ingredient:   f.Ingredient,
		Customer:     f.Customer,
		TrialRef:     f.TrialRef,
		Author:       f.Author,
		Status:       f.Status,
		CreatedAt:    f.CreatedAt.UTC(),
		UpdatedAt:    f.UpdatedAt.UTC(),
	}
	if f.BlobPath != "" {
		doc.FileName = path.Base(f.BlobPath)
	}
	doc.Content = BuildContent(f.DisplayName(), f.Tags()...)
	return doc
}

// BuildContent склеивает имя и теги через пробел, пропуская пустые части.
func BuildContent(name string, tags ...*string) string {
	parts := make([]string, 0, len(tags)+1)
	if s := strings.TrimSpace(name); s != "" {
		parts = append(parts, s)
	}
	for _, t := range tags {
		if t == nil {
			continue
		}
		if s := strings.TrimSpace(*t); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
