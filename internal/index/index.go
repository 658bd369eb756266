// Пакет index: клиент внешнего поискового индекса.
// Индекс: проекция таблицы files: поиск, upsert и удаление документа по ключу.
// Реализации: azure (Azure AI Search), redisearch (RediSearch),
// memory (in-process, для разработки и тестов).
package index

import (
	"context"
	"errors"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/query"
)

// ErrNotConfigured: индекс не настроен (нет endpoint, ключа или имени индекса).
var ErrNotConfigured = errors.New("поисковый индекс не настроен")

// Операции для контекста ошибок.
const (
	OpSearch   = "search"
	OpUpsert   = "upsert"
	OpDelete   = "delete"
	OpListIDs  = "list_ids"
	OpSynonyms = "synonyms"
	OpEnsure   = "ensure_index"
)

// Error: ошибка обращения к бэкенду индекса с именем операции.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "индекс " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Page: страница результатов поиска в индексе.
type Page struct {
	// Total: общее количество совпадений
	Total int
	// Documents: документы страницы в порядке сортировки
	Documents []*model.IndexDocument
}

// Client: клиент поискового индекса.
type Client interface {
	// Enabled сообщает, настроен ли индекс. Решается один раз при создании.
	Enabled() bool
	// Search выполняет запрос. Пагинация берётся из Request.
	Search(ctx context.Context, req *query.Request) (*Page, error)
	// Upsert идемпотентно записывает документ по ключу.
	Upsert(ctx context.Context, doc *model.IndexDocument) error
	// Delete удаляет документ. Отсутствие документа не является ошибкой.
	Delete(ctx context.Context, id string) error
	// ListIDs возвращает ключи всех документов индекса.
	ListIDs(ctx context.Context) ([]string, error)
	// UpsertSynonyms создаёт или заменяет набор синонимов.
	UpsertSynonyms(ctx context.Context, name string, rules []string) error
}

// Provisioner: бэкенд, который сам создаёт или обновляет схему индекса.
type Provisioner interface {
	EnsureIndex(ctx context.Context) error
}

// Disabled: клиент для ненастроенного индекса.
// Все операции возвращают ErrNotConfigured.
type Disabled struct{}

var _ Client = Disabled{}

// Enabled всегда false.
func (Disabled) Enabled() bool { return false }

// Search возвращает ErrNotConfigured.
func (Disabled) Search(context.Context, *query.Request) (*Page, error) {
	return nil, ErrNotConfigured
}

// Upsert возвращает ErrNotConfigured.
func (Disabled) Upsert(context.Context, *model.IndexDocument) error { return ErrNotConfigured }

// Delete возвращает ErrNotConfigured.
func (Disabled) Delete(context.Context, string) error { return ErrNotConfigured }

// ListIDs возвращает ErrNotConfigured.
func (Disabled) ListIDs(context.Context) ([]string, error) { return nil, ErrNotConfigured }

// UpsertSynonyms возвращает ErrNotConfigured.
func (Disabled) UpsertSynonyms(context.Context, string, []string) error { return ErrNotConfigured }
