package query

import "strings"

// Sort: поле и направление сортировки.
type Sort struct {
	Field string
	Desc  bool
}

// DefaultSort: сортировка по умолчанию: сначала недавно изменённые.
var DefaultSort = Sort{Field: "updated_at", Desc: true}

// sortKeys: белый список ключей сортировки.
var sortKeys = map[string]Sort{
	"updated_at_desc":    {Field: "updated_at", Desc: true},
	"updated_at_asc":     {Field: "updated_at"},
	"created_at_desc":    {Field: "created_at", Desc: true},
	"created_at_asc":     {Field: "created_at"},
	"application_desc":   {Field: "application", Desc: true},
	"application_asc":    {Field: "application"},
	"original_name_desc": {Field: "original_name", Desc: true},
	"original_name_asc":  {Field: "original_name"},
}

// ParseSort возвращает сортировку по ключу. Неизвестный или пустой
// ключ даёт DefaultSort.
func ParseSort(key string) Sort {
	if s, ok := sortKeys[strings.ToLower(strings.TrimSpace(key))]; ok {
		return s
	}
	return DefaultSort
}

// ValidSortKey сообщает, известен ли ключ сортировки.
func ValidSortKey(key string) bool {
	_, ok := sortKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

func (s Sort) direction(asc, desc string) string {
	if s.Desc {
		return desc
	}
	return asc
}
