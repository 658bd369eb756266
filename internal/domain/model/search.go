package model

import "time"

// SearchResult: каноническая форма результата поиска.
// Строится на каждый запрос, одинакова для индекса и хранилища.
type SearchResult struct {
	ID          string
	DisplayName string

	Application *string
	Issue       *string
	Ingredient  *string
	Customer    *string
	TrialRef    *string
	Author      *string

	Status    string
	UpdatedAt time.Time

	// Поля обогащения
	DownloadLink    string
	DownloadCount   int64
	IsPreviewHidden bool

	// BlobPath нужен для построения ссылки, наружу не отдаётся
	BlobPath string
}

// DownloadEvent: событие скачивания файла (таблица file_downloads).
type DownloadEvent struct {
	ID           string
	FileID       string
	UserID       *string
	DownloadedAt time.Time
}
