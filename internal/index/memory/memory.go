// Пакет memory: in-process реализация поискового индекса.
// Используется при FC_SEARCH_BACKEND=memory для локальной разработки
// и в тестах сервисного слоя. Семантика совпадений повторяет хранилище:
// регистронезависимое вхождение подстроки, синонимы расширяют токен.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/query"
)

var _ index.Client = (*Index)(nil)

// Index: индекс в памяти процесса. Безопасен для конкурентного использования.
type Index struct {
	mu       sync.RWMutex
	docs     map[string]*model.IndexDocument
	synonyms map[string][]string
}

// New создаёт пустой индекс.
func New() *Index {
	return &Index{
		docs:     make(map[string]*model.IndexDocument),
		synonyms: make(map[string][]string),
	}
}

// Enabled всегда true.
func (x *Index) Enabled() bool { return true }

// Len возвращает количество документов.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

// Get возвращает копию документа по ключу.
func (x *Index) Get(id string) (*model.IndexDocument, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	d, ok := x.docs[id]
	if !ok {
		return nil, false
	}
	cp := *d
	return &cp, true
}

// Upsert записывает копию документа.
func (x *Index) Upsert(ctx context.Context, doc *model.IndexDocument) error {
	if err := ctx.Err(); err != nil {
		return &index.Error{Op: index.OpUpsert, Err: err}
	}
	cp := *doc
	x.mu.Lock()
	x.docs[doc.ID] = &cp
	x.mu.Unlock()
	return nil
}

// Delete удаляет документ. Отсутствующий ключ не является ошибкой.
func (x *Index) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return &index.Error{Op: index.OpDelete, Err: err}
	}
	x.mu.Lock()
	delete(x.docs, id)
	x.mu.Unlock()
	return nil
}

// ListIDs возвращает ключи всех документов в порядке возрастания.
func (x *Index) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &index.Error{Op: index.OpListIDs, Err: err}
	}
	x.mu.RLock()
	ids := make([]string, 0, len(x.docs))
	for id := range x.docs {
		ids = append(ids, id)
	}
	x.mu.RUnlock()
	slices.Sort(ids)
	return ids, nil
}

// UpsertSynonyms заменяет набор синонимов. Имя набора не различается:
// хранится одна общая карта терм → эквиваленты.
func (x *Index) UpsertSynonyms(ctx context.Context, _ string, rules []string) error {
	if err := ctx.Err(); err != nil {
		return &index.Error{Op: index.OpSynonyms, Err: err}
	}
	m := make(map[string][]string)
	for _, rule := range rules {
		terms := index.SplitSynonymRule(rule)
		for _, t := range terms {
			key := strings.ToLower(t)
			for _, other := range terms {
				m[key] = append(m[key], strings.ToLower(other))
			}
		}
	}
	x.mu.Lock()
	x.synonyms = m
	x.mu.Unlock()
	return nil
}

// Search выполняет запрос над документами в памяти.
func (x *Index) Search(ctx context.Context, req *query.Request) (*index.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &index.Error{Op: index.OpSearch, Err: err}
	}

	x.mu.RLock()
	matched := make([]*model.IndexDocument, 0, len(x.docs))
	for _, d := range x.docs {
		if x.matches(req, d) {
			cp := *d
			matched = append(matched, &cp)
		}
	}
	x.mu.RUnlock()

	sortDocuments(matched, query.ParseSort(req.SortBy))

	page := &index.Page{Total: len(matched)}
	from := min(req.Offset(), len(matched))
	to := len(matched)
	if req.PageSize > 0 {
		to = min(from+req.PageSize, len(matched))
	}
	page.Documents = matched[from:to]
	return page, nil
}

// matches проверяет документ: каждый токен свободного текста: хотя бы
// в одном поле поиска, каждый токен фильтра: в своём поле.
// Вызывается под RLock.
func (x *Index) matches(req *query.Request, d *model.IndexDocument) bool {
	if req.Status != nil && d.Status != *req.Status {
		return false
	}
	if req.OwnerID != nil && (d.OwnerID == nil || *d.OwnerID != *req.OwnerID) {
		return false
	}

	for _, tok := range query.Tokenize(req.FreeText) {
		found := false
		for _, f := range query.IndexSearchFields {
			if x.contains(fieldValue(d, f), tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, f := range query.FilterFields {
		for _, tok := range req.FilterTokens(f) {
			if !x.contains(fieldValue(d, string(f)), tok) {
				return false
			}
		}
	}
	return true
}

func (x *Index) contains(value, tok string) bool {
	if value == "" {
		return false
	}
	v := strings.ToLower(value)
	t := strings.ToLower(tok)
	if strings.Contains(v, t) {
		return true
	}
	for _, syn := range x.synonyms[t] {
		if strings.Contains(v, syn) {
			return true
		}
	}
	return false
}

func fieldValue(d *model.IndexDocument, field string) string {
	switch field {
	case "content":
		return d.Content
	case "original_name":
		return d.OriginalName
	case string(query.FieldApplication):
		return deref(d.Application)
	case string(query.FieldIssue):
		return deref(d.Issue)
	case string(query.FieldIngredient):
		return deref(d.Ingredient)
	case string(query.FieldCustomer):
		return deref(d.Customer)
	case string(query.FieldTrialRef):
		return deref(d.TrialRef)
	case string(query.FieldAuthor):
		return deref(d.Author)
	}
	return ""
}

func sortDocuments(docs []*model.IndexDocument, s query.Sort) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		var c int
		switch s.Field {
		case "created_at":
			c = a.CreatedAt.Compare(b.CreatedAt)
		case "application":
			c = strings.Compare(deref(a.Application), deref(b.Application))
		case "original_name":
			c = strings.Compare(a.OriginalName, b.OriginalName)
		default:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
