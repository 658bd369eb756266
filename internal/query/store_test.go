package query

import (
	"strings"
	"testing"
)

func TestCompileStore_Empty(t *testing.T) {
	r := &Request{}
	r.Normalize(10, 100)
	q := CompileStore(r)

	if q.Where != "" || len(q.Args) != 0 {
		t.Errorf("Where/Args = %q/%v, ожидался запрос без условий", q.Where, q.Args)
	}
	if q.OrderBy != "updated_at DESC, id DESC" {
		t.Errorf("OrderBy = %q", q.OrderBy)
	}
	if q.Limit != 10 || q.Offset != 0 {
		t.Errorf("Limit/Offset = %d/%d", q.Limit, q.Offset)
	}
}

func TestCompileStore_FilterTokensAreAnded(t *testing.T) {
	r := &Request{Filters: map[Field]string{FieldIngredient: "Sugar　Pectin"}, Page: 2, PageSize: 10}
	q := CompileStore(r)

	want := "ingredient ILIKE $1 AND ingredient ILIKE $2"
	if q.Where != want {
		t.Errorf("Where = %q, ожидалось %q", q.Where, want)
	}
	if len(q.Args) != 2 || q.Args[0] != "%Sugar%" || q.Args[1] != "%Pectin%" {
		t.Errorf("Args = %v", q.Args)
	}
	if q.Offset != 10 {
		t.Errorf("Offset = %d, ожидалось 10", q.Offset)
	}
}

func TestCompileStore_FreeTextOrAcrossFields(t *testing.T) {
	r := &Request{FreeText: "jam 50%"}
	q := CompileStore(r)

	first := "(original_name ILIKE $1 OR application ILIKE $1 OR issue ILIKE $1 OR ingredient ILIKE $1" +
		" OR customer ILIKE $1 OR trial_ref ILIKE $1 OR author ILIKE $1)"
	if !strings.HasPrefix(q.Where, first+" AND (") {
		t.Errorf("Where = %q", q.Where)
	}
	if !strings.Contains(q.Where, "author ILIKE $2)") {
		t.Errorf("второй токен не использует $2: %q", q.Where)
	}
	if q.Args[1] != `%50\%%` {
		t.Errorf("Args[1] = %v, ожидалось экранирование %%", q.Args[1])
	}
}

func TestCompileStore_StatusOwnerAndSort(t *testing.T) {
	r := &Request{
		FreeText: "x",
		Status:   strPtr("inactive"),
		OwnerID:  strPtr("u-1"),
		SortBy:   "application_asc",
	}
	q := CompileStore(r)

	if !strings.HasSuffix(q.Where, "status = $2 AND owner_id = $3") {
		t.Errorf("Where = %q", q.Where)
	}
	if q.Args[1] != "inactive" || q.Args[2] != "u-1" {
		t.Errorf("Args = %v", q.Args)
	}
	if q.OrderBy != "application ASC, id ASC" {
		t.Errorf("OrderBy = %q", q.OrderBy)
	}
}

func TestCompileStore_InjectionStaysInArgs(t *testing.T) {
	r := &Request{Filters: map[Field]string{FieldCustomer: "x'); DROP TABLE files;--"}}
	q := CompileStore(r)

	if strings.Contains(q.Where, "DROP") {
		t.Errorf("значение попало в текст SQL: %q", q.Where)
	}
}
