// handler.go: основной обработчик API File Catalog.
// Регистрирует маршруты в chi и делегирует запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/filecatalog/internal/api/errors"
	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/query"
	"github.com/bigkaa/filecatalog/internal/service"
)

// FileService: операции над записями файлов.
type FileService interface {
	Create(ctx context.Context, in service.CreateFileInput) (*model.FileRecord, error)
	Get(ctx context.Context, id string) (*model.FileRecord, error)
	Update(ctx context.Context, id string, in service.UpdateFileInput) (*model.FileRecord, error)
	Delete(ctx context.Context, id string) error
	RecordDownload(ctx context.Context, id string, userID *string) (string, error)
}

// Searcher: поиск файлов.
type Searcher interface {
	Search(ctx context.Context, req query.Request, requireIndex bool) (*service.SearchPage, error)
}

// Reindexer: полная сверка индекса с реестром.
type Reindexer interface {
	Run(ctx context.Context) (*model.ReindexResult, error)
}

// APIHandler: основной обработчик API File Catalog.
type APIHandler struct {
	files     FileService
	search    Searcher
	reindexer Reindexer
	health    *HealthHandler
	// requireAdmin: middleware проверки роли admin (nil при отключённой аутентификации)
	requireAdmin func(http.Handler) http.Handler
	logger       *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	files FileService,
	search Searcher,
	reindexer Reindexer,
	health *HealthHandler,
	requireAdmin func(http.Handler) http.Handler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		files:        files,
		search:       search,
		reindexer:    reindexer,
		health:       health,
		requireAdmin: requireAdmin,
		logger:       logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует маршруты API в роутере.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/files/search", h.SearchFiles)
		r.Get("/files/index-search", h.IndexSearchFiles)
		r.Post("/files", h.CreateFile)
		r.Get("/files/{file_id}", h.GetFile)
		r.Patch("/files/{file_id}", h.UpdateFile)
		r.Delete("/files/{file_id}", h.DeleteFile)
		r.Post("/files/{file_id}/downloads", h.RecordDownload)

		r.Group(func(r chi.Router) {
			if h.requireAdmin != nil {
				r.Use(h.requireAdmin)
			}
			r.Post("/admin/reindex", h.Reindex)
		})
	})
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
// Непредвиденные ошибки логируются и отдаются как 500 с сообщением internalMsg.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, internalMsg string, attrs ...any) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Файл не найден")
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrIndexUnavailable):
		apierrors.IndexUnavailable(w, "Поисковый индекс не настроен")
	case errors.Is(err, service.ErrReindexInProgress):
		apierrors.Conflict(w, "Сверка индекса уже выполняется")
	default:
		h.logger.Error(internalMsg, append(attrs, slog.String("error", err.Error()))...)
		apierrors.InternalError(w, internalMsg)
	}
}
