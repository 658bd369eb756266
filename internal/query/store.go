package query

import (
	"fmt"
	"strings"
)

// StoreTextFields: колонки, по которым ищется свободный текст в хранилище.
var StoreTextFields = []string{
	"original_name", "application", "issue", "ingredient", "customer", "trial_ref", "author",
}

// StoreQuery: скомпилированный предикат SQL для таблицы files.
// Все значения передаются через bind-параметры $1..$N.
type StoreQuery struct {
	// Where: условие без ключевого слова WHERE; пустое: без условий
	Where string
	// Args: значения параметров в порядке номеров
	Args []any
	// OrderBy: выражение ORDER BY без ключевого слова
	OrderBy string
	Limit   int
	Offset  int
}

// CompileStore компилирует запрос в предикат SQL.
//   - свободный текст: для каждого токена (f1 ILIKE $n OR f2 ILIKE $n ...),
//     токены объединяются через AND;
//   - фильтр: для каждого токена field ILIKE $n;
//   - статус и владелец: точное равенство.
func CompileStore(r *Request) StoreQuery {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) int {
		args = append(args, v)
		return len(args)
	}

	for _, tok := range Tokenize(r.FreeText) {
		n := arg(likeContains(tok))
		parts := make([]string, len(StoreTextFields))
		for i, col := range StoreTextFields {
			parts[i] = fmt.Sprintf("%s ILIKE $%d", col, n)
		}
		conditions = append(conditions, "("+strings.Join(parts, " OR ")+")")
	}

	for _, f := range FilterFields {
		for _, tok := range r.FilterTokens(f) {
			conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", f, arg(likeContains(tok))))
		}
	}

	if r.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", arg(*r.Status)))
	}
	if r.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", arg(*r.OwnerID)))
	}

	return StoreQuery{
		Where:   strings.Join(conditions, " AND "),
		Args:    args,
		OrderBy: storeOrderBy(ParseSort(r.SortBy)),
		Limit:   r.PageSize,
		Offset:  r.Offset(),
	}
}

// storeOrderBy формирует ORDER BY с дополнительной сортировкой по id
// для стабильной пагинации.
func storeOrderBy(s Sort) string {
	dir := s.direction("ASC", "DESC")
	return fmt.Sprintf("%s %s, id %s", s.Field, dir, dir)
}

func likeContains(tok string) string {
	return "%" + EscapeLike(tok) + "%"
}
