package query

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// redisMinPrefix: минимальная длина префикса в RediSearch (MINPREFIX).
const redisMinPrefix = 2

// RedisQuery: скомпилированный запрос FT.SEARCH.
type RedisQuery struct {
	// Query: строка запроса; "*": все документы
	Query  string
	SortBy string
	Desc   bool
	Offset int
	Limit  int
}

// CompileRedis компилирует запрос для RediSearch.
func CompileRedis(r *Request) RedisQuery {
	var clauses []string

	if tokens := Tokenize(r.FreeText); len(tokens) > 0 {
		scope := "@" + strings.Join(IndexSearchFields, "|")
		for _, tok := range tokens {
			clauses = append(clauses, scope+":"+redisTermGroup(tok))
		}
	}
	for _, f := range FilterFields {
		for _, tok := range r.FilterTokens(f) {
			clauses = append(clauses, fmt.Sprintf("@%s:%s", f, redisTermGroup(tok)))
		}
	}
	if r.Status != nil {
		clauses = append(clauses, fmt.Sprintf("@status:{%s}", EscapeRedisTag(*r.Status)))
	}
	if r.OwnerID != nil {
		clauses = append(clauses, fmt.Sprintf("@owner_id:{%s}", EscapeRedisTag(*r.OwnerID)))
	}

	q := "*"
	if len(clauses) > 0 {
		q = strings.Join(clauses, " ")
	}

	s := ParseSort(r.SortBy)
	return RedisQuery{
		Query:  q,
		SortBy: s.Field,
		Desc:   s.Desc,
		Offset: r.Offset(),
		Limit:  r.PageSize,
	}
}

// redisTermGroup строит (t|t*). Для однобуквенных токенов префиксная
// форма не добавляется: RediSearch отклоняет префиксы короче MINPREFIX.
func redisTermGroup(tok string) string {
	t := EscapeRedisToken(tok)
	if utf8.RuneCountInString(tok) < redisMinPrefix {
		return "(" + t + ")"
	}
	return fmt.Sprintf("(%s|%s*)", t, t)
}
