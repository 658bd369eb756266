// files.go: обработчики записи файлов:
// POST /api/v1/files, GET|PATCH|DELETE /api/v1/files/{file_id},
// POST /api/v1/files/{file_id}/downloads.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/filecatalog/internal/api/errors"
	"github.com/bigkaa/filecatalog/internal/api/middleware"
	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/service"
)

type createFileRequest struct {
	OriginalName    string  `json:"original_name"`
	BlobPath        string  `json:"blob_path"`
	Application     *string `json:"application"`
	Issue           *string `json:"issue"`
	Ingredient      *string `json:"ingredient"`
	Customer        *string `json:"customer"`
	TrialRef        *string `json:"trial_ref"`
	Author          *string `json:"author"`
	Status          string  `json:"status"`
	IsPreviewHidden bool    `json:"is_preview_hidden"`
}

type updateFileRequest struct {
	OriginalName    *string `json:"original_name"`
	BlobPath        *string `json:"blob_path"`
	Application     *string `json:"application"`
	Issue           *string `json:"issue"`
	Ingredient      *string `json:"ingredient"`
	Customer        *string `json:"customer"`
	TrialRef        *string `json:"trial_ref"`
	Author          *string `json:"author"`
	Status          *string `json:"status"`
	IsPreviewHidden *bool   `json:"is_preview_hidden"`
}

type fileResponse struct {
	ID              string    `json:"id"`
	OwnerID         *string   `json:"owner_id"`
	OriginalName    string    `json:"original_name"`
	BlobPath        string    `json:"blob_path"`
	Application     *string   `json:"application"`
	Issue           *string   `json:"issue"`
	Ingredient      *string   `json:"ingredient"`
	Customer        *string   `json:"customer"`
	TrialRef        *string   `json:"trial_ref"`
	Author          *string   `json:"author"`
	Status          string    `json:"status"`
	IsPreviewHidden bool      `json:"is_preview_hidden"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type downloadResponse struct {
	DownloadLink string `json:"download_link"`
}

// CreateFile: регистрация метаданных загруженного файла.
// Владелец: sub из JWT (при отключённой аутентификации не задаётся).
func (h *APIHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	record, err := h.files.Create(r.Context(), service.CreateFileInput{
		OwnerID:         subjectPtr(r),
		OriginalName:    req.OriginalName,
		BlobPath:        req.BlobPath,
		Application:     req.Application,
		Issue:           req.Issue,
		Ingredient:      req.Ingredient,
		Customer:        req.Customer,
		TrialRef:        req.TrialRef,
		Author:          req.Author,
		Status:          req.Status,
		IsPreviewHidden: req.IsPreviewHidden,
	})
	if err != nil {
		h.writeServiceError(w, err, "Внутренняя ошибка при регистрации файла",
			slog.String("blob_path", req.BlobPath))
		return
	}

	writeJSON(w, http.StatusCreated, fileRecordToResponse(record))
}

// GetFile: запись файла по идентификатору.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := bindFileID(w, r)
	if !ok {
		return
	}

	record, err := h.files.Get(r.Context(), fileID)
	if err != nil {
		h.writeServiceError(w, err, "Внутренняя ошибка при получении файла",
			slog.String("file_id", fileID))
		return
	}

	writeJSON(w, http.StatusOK, fileRecordToResponse(record))
}

// UpdateFile: частичное изменение записи файла.
func (h *APIHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := bindFileID(w, r)
	if !ok {
		return
	}

	var req updateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	record, err := h.files.Update(r.Context(), fileID, service.UpdateFileInput{
		OriginalName:    req.OriginalName,
		BlobPath:        req.BlobPath,
		Application:     req.Application,
		Issue:           req.Issue,
		Ingredient:      req.Ingredient,
		Customer:        req.Customer,
		TrialRef:        req.TrialRef,
		Author:          req.Author,
		Status:          req.Status,
		IsPreviewHidden: req.IsPreviewHidden,
	})
	if err != nil {
		h.writeServiceError(w, err, "Внутренняя ошибка при изменении файла",
			slog.String("file_id", fileID))
		return
	}

	writeJSON(w, http.StatusOK, fileRecordToResponse(record))
}

// DeleteFile: удаление записи файла.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := bindFileID(w, r)
	if !ok {
		return
	}

	if err := h.files.Delete(r.Context(), fileID); err != nil {
		h.writeServiceError(w, err, "Внутренняя ошибка при удалении файла",
			slog.String("file_id", fileID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecordDownload: регистрация скачивания и выдача ссылки.
func (h *APIHandler) RecordDownload(w http.ResponseWriter, r *http.Request) {
	fileID, ok := bindFileID(w, r)
	if !ok {
		return
	}

	link, err := h.files.RecordDownload(r.Context(), fileID, subjectPtr(r))
	if err != nil {
		h.writeServiceError(w, err, "Внутренняя ошибка при регистрации скачивания",
			slog.String("file_id", fileID))
		return
	}

	writeJSON(w, http.StatusOK, downloadResponse{DownloadLink: link})
}

// bindFileID связывает path-параметр file_id как UUID.
// При ошибке записывает ответ 400 и возвращает false.
func bindFileID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var fileID openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "file_id", chi.URLParam(r, "file_id"), &fileID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный file_id: %s", err))
		return "", false
	}
	return fileID.String(), true
}

// subjectPtr возвращает sub из JWT или nil.
func subjectPtr(r *http.Request) *string {
	sub := middleware.SubjectFromContext(r.Context())
	if sub == "" {
		return nil
	}
	return &sub
}

func fileRecordToResponse(f *model.FileRecord) fileResponse {
	return fileResponse{
		ID:              f.ID,
		OwnerID:         f.OwnerID,
		OriginalName:    f.OriginalName,
		BlobPath:        f.BlobPath,
		Application:     f.Application,
		Issue:           f.Issue,
		Ingredient:      f.Ingredient,
		Customer:        f.Customer,
		TrialRef:        f.TrialRef,
		Author:          f.Author,
		Status:          f.Status,
		IsPreviewHidden: f.IsPreviewHidden,
		CreatedAt:       f.CreatedAt.UTC(),
		UpdatedAt:       f.UpdatedAt.UTC(),
	}
}
