// Пакет query: компиляция поискового запроса (свободный текст, фильтры,
// сортировка, пагинация) в предикат SQL и в запросы поисковых индексов
// (Azure AI Search, RediSearch). Пакет не выполняет ввод-вывод.
package query

import "strings"

// Field: поле-фильтр по структурированному тегу.
type Field string

// Поля-фильтры. Имена совпадают с колонками таблицы files и полями индекса.
const (
	FieldApplication Field = "application"
	FieldIssue       Field = "issue"
	FieldIngredient  Field = "ingredient"
	FieldCustomer    Field = "customer"
	FieldTrialRef    Field = "trial_ref"
	FieldAuthor      Field = "author"
)

// FilterFields: поля-фильтры в фиксированном порядке компиляции.
var FilterFields = []Field{
	FieldApplication, FieldIssue, FieldIngredient, FieldCustomer, FieldTrialRef, FieldAuthor,
}

// Размеры страницы по умолчанию.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ParseField возвращает поле-фильтр по имени.
func ParseField(name string) (Field, bool) {
	for _, f := range FilterFields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// Request: поисковый запрос в независимой от бэкенда форме.
type Request struct {
	// FreeText: свободный текст, каждый токен должен найтись хотя бы в одном поле
	FreeText string
	// OwnerID: ограничение по владельцу (nil: без ограничения)
	OwnerID *string
	// Filters: значения фильтров по полям; все токены значения должны найтись в поле
	Filters map[Field]string
	// Status: точное совпадение статуса (nil: без фильтра)
	Status *string
	// SortBy: ключ сортировки, например updated_at_desc
	SortBy string
	// Page: номер страницы, начиная с 1
	Page int
	// PageSize: размер страницы
	PageSize int
}

// Normalize приводит пагинацию к допустимым значениям:
// page < 1 → 1, pageSize <= 0 → defaultSize, pageSize > maxSize → maxSize.
// Нулевые defaultSize/maxSize заменяются значениями по умолчанию пакета.
func (r *Request) Normalize(defaultSize, maxSize int) {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize <= 0 {
		r.PageSize = defaultSize
	}
	if r.PageSize > maxSize {
		r.PageSize = maxSize
	}
}

// Offset возвращает смещение первой записи страницы.
func (r *Request) Offset() int {
	if r.Page < 1 {
		return 0
	}
	return (r.Page - 1) * r.PageSize
}

// FilterTokens возвращает токены значения фильтра по полю.
func (r *Request) FilterTokens(f Field) []string {
	if r.Filters == nil {
		return nil
	}
	return Tokenize(r.Filters[f])
}

// Tokenize разбивает строку на токены по любым пробельным символам Unicode,
// включая полноширинный пробел U+3000. Пустые токены отбрасываются.
func Tokenize(s string) []string {
	return strings.Fields(s)
}
