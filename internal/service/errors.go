// Пакет service: бизнес-логика File Catalog: запись файлов с синхронизацией
// индекса, поиск с деградацией на PostgreSQL, сверка индекса.
package service

import "errors"

var (
	// ErrNotFound: файл не найден.
	ErrNotFound = errors.New("файл не найден")
	// ErrConflict: запись с таким blob_path уже существует.
	ErrConflict = errors.New("конфликт: файл с таким путём уже зарегистрирован")
	// ErrValidation: ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrIndexUnavailable: поисковый индекс не настроен, а запрос требует индекс.
	ErrIndexUnavailable = errors.New("поисковый индекс недоступен")
	// ErrReindexInProgress: сверка индекса уже выполняется.
	ErrReindexInProgress = errors.New("сверка индекса уже выполняется")
)
