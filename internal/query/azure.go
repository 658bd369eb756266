package query

import (
	"fmt"
	"strings"
)

// IndexSearchFields: поля индекса, по которым ищется свободный текст.
var IndexSearchFields = []string{
	"content", "original_name", "application", "customer", "trial_ref", "ingredient", "author", "issue",
}

// AzureQuery: скомпилированный запрос к Azure AI Search (POST docs/search).
type AzureQuery struct {
	// Search: текст в простом синтаксисе; "*": все документы
	Search       string
	SearchFields []string
	// SearchMode всегда "all": все токены обязательны
	SearchMode string
	// Filter: выражение OData $filter
	Filter  string
	OrderBy string
	Skip    int
	Top     int
}

// CompileAzure компилирует запрос для Azure AI Search.
// Каждый токен t превращается в (t | t*), чтобы одновременно работали
// синонимы (точный терм) и префиксный поиск.
func CompileAzure(r *Request) AzureQuery {
	q := AzureQuery{
		Search:       azureSearchText(Tokenize(r.FreeText)),
		SearchFields: IndexSearchFields,
		SearchMode:   "all",
		OrderBy:      azureOrderBy(ParseSort(r.SortBy)),
		Skip:         r.Offset(),
		Top:          r.PageSize,
	}

	var clauses []string
	for _, f := range FilterFields {
		for _, tok := range r.FilterTokens(f) {
			clauses = append(clauses, azureFieldMatch(string(f), tok))
		}
	}
	if r.Status != nil {
		clauses = append(clauses, fmt.Sprintf("status eq '%s'", EscapeODataString(*r.Status)))
	}
	if r.OwnerID != nil {
		clauses = append(clauses, fmt.Sprintf("owner_id eq '%s'", EscapeODataString(*r.OwnerID)))
	}
	q.Filter = strings.Join(clauses, " and ")

	return q
}

func azureSearchText(tokens []string) string {
	if len(tokens) == 0 {
		return "*"
	}
	groups := make([]string, len(tokens))
	for i, tok := range tokens {
		t := EscapeSimpleQuery(tok)
		groups[i] = fmt.Sprintf("(%s | %s*)", t, t)
	}
	return strings.Join(groups, " ")
}

// azureFieldMatch строит полнотекстовое совпадение токена в одном поле.
func azureFieldMatch(field, tok string) string {
	t := EscapeODataString(EscapeSimpleQuery(tok))
	return fmt.Sprintf("(search.ismatch('%s', '%s') or search.ismatch('%s*', '%s'))", t, field, t, field)
}

// azureOrderBy добавляет ключ вторым полем в том же направлении, что и
// CompileStore: документы с одинаковым значением поля сортировки сохраняют
// порядок между страницами.
func azureOrderBy(s Sort) string {
	dir := s.direction("asc", "desc")
	return s.Field + " " + dir + ", key " + dir
}
