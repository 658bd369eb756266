// search.go: обработчики GET /api/v1/files/search и /api/v1/files/index-search.
// Параметры запроса связываются через oapi-codegen runtime.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/filecatalog/internal/api/errors"
	"github.com/bigkaa/filecatalog/internal/api/middleware"
	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/query"
	"github.com/bigkaa/filecatalog/internal/service"
)

// searchParams: параметры поискового запроса.
type searchParams struct {
	Q           *string
	Application *string
	Issue       *string
	Ingredient  *string
	Customer    *string
	TrialRef    *string
	Author      *string
	Status      *string
	SortBy      *string
	Page        *int
	PageSize    *int
	Mine        *bool
}

type searchResultItem struct {
	ID              string    `json:"id"`
	DisplayName     string    `json:"display_name"`
	Application     *string   `json:"application"`
	Issue           *string   `json:"issue"`
	Ingredient      *string   `json:"ingredient"`
	Customer        *string   `json:"customer"`
	TrialRef        *string   `json:"trial_ref"`
	Author          *string   `json:"author"`
	Status          string    `json:"status"`
	UpdatedAt       time.Time `json:"updated_at"`
	DownloadLink    string    `json:"download_link"`
	DownloadCount   int64     `json:"download_count"`
	IsPreviewHidden bool      `json:"is_preview_hidden"`
}

type searchResponse struct {
	TotalCount int                `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	Files      []searchResultItem `json:"files"`
}

// SearchFiles: поиск через индекс с переходом на PostgreSQL.
func (h *APIHandler) SearchFiles(w http.ResponseWriter, r *http.Request) {
	h.handleSearch(w, r, false)
}

// IndexSearchFiles: поиск только через индекс (503, если индекс не настроен).
func (h *APIHandler) IndexSearchFiles(w http.ResponseWriter, r *http.Request) {
	h.handleSearch(w, r, true)
}

func (h *APIHandler) handleSearch(w http.ResponseWriter, r *http.Request, requireIndex bool) {
	params, err := bindSearchParams(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	req := buildSearchRequest(params)
	if params.Mine != nil && *params.Mine {
		sub := middleware.SubjectFromContext(r.Context())
		if sub == "" {
			apierrors.Unauthorized(w, "Параметр mine требует аутентификации")
			return
		}
		req.OwnerID = &sub
	}

	page, err := h.search.Search(r.Context(), req, requireIndex)
	if err != nil {
		h.writeServiceError(w, err, "Внутренняя ошибка при поиске файлов",
			slog.Bool("require_index", requireIndex))
		return
	}

	writeJSON(w, http.StatusOK, searchPageToResponse(page))
}

// bindSearchParams связывает query-параметры запроса.
func bindSearchParams(r *http.Request) (searchParams, error) {
	var p searchParams
	q := r.URL.Query()

	bindings := []struct {
		name string
		dest any
	}{
		{"q", &p.Q},
		{"application", &p.Application},
		{"issue", &p.Issue},
		{"ingredient", &p.Ingredient},
		{"customer", &p.Customer},
		{"trial_ref", &p.TrialRef},
		{"author", &p.Author},
		{"status", &p.Status},
		{"sort_by", &p.SortBy},
		{"page", &p.Page},
		{"page_size", &p.PageSize},
		{"mine", &p.Mine},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return p, fmt.Errorf("некорректный параметр %s: %w", b.name, err)
		}
	}
	return p, nil
}

// buildSearchRequest строит независимый от бэкенда запрос.
// Пустые значения фильтров и статуса означают отсутствие фильтра.
func buildSearchRequest(p searchParams) query.Request {
	req := query.Request{
		FreeText: deref(p.Q),
		Filters:  make(map[query.Field]string),
		SortBy:   deref(p.SortBy),
	}

	filters := map[query.Field]*string{
		query.FieldApplication: p.Application,
		query.FieldIssue:       p.Issue,
		query.FieldIngredient:  p.Ingredient,
		query.FieldCustomer:    p.Customer,
		query.FieldTrialRef:    p.TrialRef,
		query.FieldAuthor:      p.Author,
	}
	for field, v := range filters {
		if s := strings.TrimSpace(deref(v)); s != "" {
			req.Filters[field] = s
		}
	}

	if s := strings.TrimSpace(deref(p.Status)); s != "" {
		req.Status = &s
	}
	if p.Page != nil {
		req.Page = *p.Page
	}
	if p.PageSize != nil {
		req.PageSize = *p.PageSize
	}
	return req
}

func searchPageToResponse(page *service.SearchPage) searchResponse {
	resp := searchResponse{
		TotalCount: page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Files:      make([]searchResultItem, 0, len(page.Files)),
	}
	for i := range page.Files {
		resp.Files = append(resp.Files, searchResultToItem(&page.Files[i]))
	}
	return resp
}

func searchResultToItem(res *model.SearchResult) searchResultItem {
	return searchResultItem{
		ID:              res.ID,
		DisplayName:     res.DisplayName,
		Application:     res.Application,
		Issue:           res.Issue,
		Ingredient:      res.Ingredient,
		Customer:        res.Customer,
		TrialRef:        res.TrialRef,
		Author:          res.Author,
		Status:          res.Status,
		UpdatedAt:       res.UpdatedAt.UTC(),
		DownloadLink:    res.DownloadLink,
		DownloadCount:   res.DownloadCount,
		IsPreviewHidden: res.IsPreviewHidden,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
