// reindex.go: полная сверка поискового индекса с таблицей files.
//
// Reconciler устраняет расхождения, оставшиеся после неудачной синхронизации:
//  1. Постраничный обход всех записей (любой статус) → upsert в индекс
//  2. Список ключей индекса → удаление документов, для которых нет записи
//
// Запускается по cron-расписанию (FC_REINDEX_SCHEDULE) и через
// POST /api/v1/admin/reindex.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/repository"
)

var (
	reindexDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fc_reindex_duration_seconds",
		Help:    "Длительность полной сверки индекса.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	reindexDocumentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fc_reindex_documents_total",
		Help: "Документы, обработанные при сверке индекса (по операции).",
	}, []string{"operation"})
)

// Reconciler: сверка индекса с хранилищем.
type Reconciler struct {
	files    repository.FileRepository
	index    index.Client
	pageSize int
	schedule string
	logger   *slog.Logger

	// running не даёт запустить две сверки одновременно
	running sync.Mutex
	cron    *cron.Cron
}

// NewReconciler создаёт сервис сверки. Пустое schedule отключает
// периодический запуск.
func NewReconciler(
	files repository.FileRepository,
	idx index.Client,
	pageSize int,
	schedule string,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		files:    files,
		index:    idx,
		pageSize: pageSize,
		schedule: schedule,
		logger:   logger.With(slog.String("component", "reconciler")),
	}
}

// Start регистрирует задачу в cron. Ошибка: невалидное расписание.
func (r *Reconciler) Start(ctx context.Context) error {
	if r.schedule == "" || !r.index.Enabled() {
		r.logger.Info("Периодическая сверка индекса отключена")
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(r.schedule, func() { r.runScheduled(ctx) }); err != nil {
		return err
	}
	c.Start()
	r.cron = c

	r.logger.Info("Периодическая сверка индекса запущена", slog.String("schedule", r.schedule))
	return nil
}

// Stop останавливает cron и ждёт завершения выполняющейся сверки.
func (r *Reconciler) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.logger.Info("Периодическая сверка индекса остановлена")
}

func (r *Reconciler) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := r.Run(ctx); err != nil {
		r.logger.Error("Ошибка периодической сверки индекса", slog.String("error", err.Error()))
	}
}

// Run выполняет полную сверку. Ошибки отдельных документов считаются
// и не прерывают обход; ошибка чтения хранилища или списка ключей
// индекса прерывает сверку.
func (r *Reconciler) Run(ctx context.Context) (*model.ReindexResult, error) {
	if !r.index.Enabled() {
		return nil, ErrIndexUnavailable
	}
	if !r.running.TryLock() {
		return nil, ErrReindexInProgress
	}
	defer r.running.Unlock()

	result := &model.ReindexResult{StartedAt: time.Now().UTC()}
	r.logger.Info("Сверка индекса начата", slog.Int("page_size", r.pageSize))

	if err := r.upsertAll(ctx, result); err != nil {
		return nil, err
	}
	if err := r.deleteOrphans(ctx, result); err != nil {
		return nil, err
	}

	result.CompletedAt = time.Now().UTC()
	reindexDuration.Observe(result.CompletedAt.Sub(result.StartedAt).Seconds())

	r.logger.Info("Сверка индекса завершена",
		slog.Int("upserted", result.Upserted),
		slog.Int("upsert_errors", result.UpsertErrors),
		slog.Int("index_documents", result.IndexDocuments),
		slog.Int("deleted", result.Deleted),
		slog.Int("delete_errors", result.DeleteErrors),
	)
	return result, nil
}

// upsertAll обходит записи во всех статусах keyset-пагинацией: неактивные
// документы нужны индексу для поиска с фильтром по статусу.
func (r *Reconciler) upsertAll(ctx context.Context, result *model.ReindexResult) error {
	afterID := ""
	for {
		records, err := r.files.ListAll(ctx, afterID, r.pageSize)
		if err != nil {
			return err
		}
		for _, f := range records {
			if err := r.index.Upsert(ctx, model.NewIndexDocument(f)); err != nil {
				result.UpsertErrors++
				reindexDocumentsTotal.WithLabelValues("upsert_error").Inc()
				r.logger.Warn("Не удалось записать документ",
					slog.String("file_id", f.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			result.Upserted++
			reindexDocumentsTotal.WithLabelValues("upsert").Inc()
		}
		if len(records) < r.pageSize {
			return nil
		}
		afterID = records[len(records)-1].ID
	}
}

// deleteOrphans удаляет документы, для которых в хранилище нет записи.
func (r *Reconciler) deleteOrphans(ctx context.Context, result *model.ReindexResult) error {
	ids, err := r.index.ListIDs(ctx)
	if err != nil {
		return err
	}
	result.IndexDocuments = len(ids)

	for start := 0; start < len(ids); start += r.pageSize {
		end := min(start+r.pageSize, len(ids))
		batch := ids[start:end]

		existing, err := r.files.ExistingIDs(ctx, validIDs(batch))
		if err != nil {
			return err
		}
		for _, id := range batch {
			if existing[id] {
				continue
			}
			if err := r.index.Delete(ctx, id); err != nil {
				result.DeleteErrors++
				reindexDocumentsTotal.WithLabelValues("delete_error").Inc()
				r.logger.Warn("Не удалось удалить документ",
					slog.String("file_id", id),
					slog.String("error", err.Error()),
				)
				continue
			}
			result.Deleted++
			reindexDocumentsTotal.WithLabelValues("delete").Inc()
		}
	}
	return nil
}

// validIDs отбрасывает ключи, не являющиеся UUID: записи для них быть не может.
func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}
