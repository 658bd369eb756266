// admin.go: обработчик POST /api/v1/admin/reindex.
// Авторизация: роль admin (middleware RequireAdmin при включённой аутентификации).
package handlers

import (
	"net/http"
	"time"
)

type reindexResponse struct {
	Upserted       int       `json:"upserted"`
	UpsertErrors   int       `json:"upsert_errors"`
	IndexDocuments int       `json:"index_documents"`
	Deleted        int       `json:"deleted"`
	DeleteErrors   int       `json:"delete_errors"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Reindex: синхронная полная сверка индекса с реестром.
func (h *APIHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	result, err := h.reindexer.Run(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка сверки поискового индекса")
		return
	}

	writeJSON(w, http.StatusOK, reindexResponse{
		Upserted:       result.Upserted,
		UpsertErrors:   result.UpsertErrors,
		IndexDocuments: result.IndexDocuments,
		Deleted:        result.Deleted,
		DeleteErrors:   result.DeleteErrors,
		StartedAt:      result.StartedAt.UTC(),
		CompletedAt:    result.CompletedAt.UTC(),
	})
}
