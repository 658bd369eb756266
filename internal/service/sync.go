// sync.go: синхронизация записи файла с поисковым индексом после коммита.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/index"
)

// Результаты синхронизации для метрики.
const (
	syncResultOK    = "ok"
	syncResultError = "error"
)

var indexSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fc_index_sync_total",
	Help: "Количество операций синхронизации индекса (по операции и результату).",
}, []string{"op", "result"})

// IndexSyncHook проецирует запись в индекс после каждой мутации.
// Работает по принципу best-effort: ошибки логируются и считаются,
// но не возвращаются вызывающему. Расхождения устраняет Reconciler.
type IndexSyncHook struct {
	index   index.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewIndexSyncHook создаёт хук. timeout ограничивает каждый вызов индекса.
func NewIndexSyncHook(idx index.Client, timeout time.Duration, logger *slog.Logger) *IndexSyncHook {
	return &IndexSyncHook{
		index:   idx,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "index_sync")),
	}
}

// OnUpsert записывает документ записи в индекс.
func (h *IndexSyncHook) OnUpsert(ctx context.Context, f *model.FileRecord) {
	if !h.index.Enabled() {
		return
	}
	ctx, cancel := h.bound(ctx)
	defer cancel()

	err := h.index.Upsert(ctx, model.NewIndexDocument(f))
	h.observe(index.OpUpsert, f.ID, err)
}

// OnDelete удаляет документ из индекса.
func (h *IndexSyncHook) OnDelete(ctx context.Context, id string) {
	if !h.index.Enabled() {
		return
	}
	ctx, cancel := h.bound(ctx)
	defer cancel()

	err := h.index.Delete(ctx, id)
	h.observe(index.OpDelete, id, err)
}

// bound отвязывает контекст от отмены HTTP-запроса и ограничивает его таймаутом.
func (h *IndexSyncHook) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
}

func (h *IndexSyncHook) observe(op, id string, err error) {
	if err != nil {
		indexSyncTotal.WithLabelValues(op, syncResultError).Inc()
		h.logger.Warn("Ошибка синхронизации индекса",
			slog.String("op", op),
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	indexSyncTotal.WithLabelValues(op, syncResultOK).Inc()
	h.logger.Debug("Индекс синхронизирован", slog.String("op", op), slog.String("file_id", id))
}
