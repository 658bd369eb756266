package model

import "time"

// ReindexResult: итог полной сверки индекса с таблицей files.
type ReindexResult struct {
	// Upserted: активных записей записано в индекс
	Upserted int
	// UpsertErrors: записей, которые не удалось записать
	UpsertErrors int
	// IndexDocuments: документов в индексе на момент сверки
	IndexDocuments int
	// Deleted: удалено документов без активной записи
	Deleted int
	// DeleteErrors: документов, которые не удалось удалить
	DeleteErrors int
	StartedAt    time.Time
	CompletedAt  time.Time
}
