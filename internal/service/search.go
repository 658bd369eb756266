// search.go: координатор поиска: индекс как основной путь,
// PostgreSQL как запасной, единая форма результата.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/query"
)

// Причины перехода на хранилище.
const (
	fallbackReasonTimeout = "timeout"
	fallbackReasonError   = "error"
)

var (
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fc_search_total",
		Help: "Общее количество поисковых запросов (по источнику результата).",
	}, []string{"source"})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fc_search_duration_seconds",
		Help:    "Длительность поисковых запросов, включая обогащение.",
		Buckets: prometheus.DefBuckets,
	})
	searchFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fc_search_fallback_total",
		Help: "Количество переходов с индекса на PostgreSQL (по причине).",
	}, []string{"reason"})
)

// SearchPage: страница результатов поиска.
type SearchPage struct {
	Total    int
	Page     int
	PageSize int
	Files    []model.SearchResult
	// Source: источник, выполнивший запрос (index, store)
	Source string
}

// SearchCoordinator выбирает источник результатов и обогащает выдачу.
type SearchCoordinator struct {
	index        ResultSource
	store        ResultSource
	indexEnabled bool
	// indexTimeout ограничивает запрос к индексу, 0: без ограничения
	indexTimeout time.Duration
	enricher     *Enricher
	defaultSize  int
	maxSize      int
	logger       *slog.Logger
}

// SearchOptions: параметры координатора.
type SearchOptions struct {
	IndexTimeout    time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

// NewSearchCoordinator создаёт координатор. Доступность индекса
// определяется один раз по idx.Enabled().
func NewSearchCoordinator(
	idx index.Client,
	store ResultSource,
	enricher *Enricher,
	opts SearchOptions,
	logger *slog.Logger,
) *SearchCoordinator {
	return &SearchCoordinator{
		index:        NewIndexSource(idx),
		store:        store,
		indexEnabled: idx.Enabled(),
		indexTimeout: opts.IndexTimeout,
		enricher:     enricher,
		defaultSize:  opts.DefaultPageSize,
		maxSize:      opts.MaxPageSize,
		logger:       logger.With(slog.String("component", "search")),
	}
}

// Search выполняет запрос. При requireIndex=true и ненастроенном индексе
// возвращает ErrIndexUnavailable. Ошибка настроенного индекса никогда
// не возвращается: запрос повторяется в хранилище.
func (c *SearchCoordinator) Search(ctx context.Context, req query.Request, requireIndex bool) (*SearchPage, error) {
	start := time.Now()
	req.Normalize(c.defaultSize, c.maxSize)

	if !c.indexEnabled && requireIndex {
		return nil, ErrIndexUnavailable
	}

	source, total, results, err := c.fetch(ctx, &req)
	if err != nil {
		return nil, err
	}

	if err := c.enricher.Enrich(ctx, results); err != nil {
		return nil, fmt.Errorf("обогащение результатов: %w", err)
	}

	searchTotal.WithLabelValues(source).Inc()
	duration := time.Since(start)
	searchDuration.Observe(duration.Seconds())
	c.logger.Debug("Поиск выполнен",
		slog.String("source", source),
		slog.Int("total", total),
		slog.Int("returned", len(results)),
		slog.Duration("duration", duration),
	)

	if results == nil {
		results = []model.SearchResult{}
	}
	return &SearchPage{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Files:    results,
		Source:   source,
	}, nil
}

// fetch пробует индекс, затем хранилище.
func (c *SearchCoordinator) fetch(ctx context.Context, req *query.Request) (string, int, []model.SearchResult, error) {
	if c.indexEnabled {
		total, results, err := c.fetchIndex(ctx, req)
		if err == nil {
			return c.index.Name(), total, results, nil
		}
		reason := fallbackReason(ctx, err)
		searchFallbackTotal.WithLabelValues(reason).Inc()
		c.logger.Warn("Поиск в индексе не удался, используется PostgreSQL",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}

	total, results, err := c.store.Fetch(ctx, req)
	if err != nil {
		return "", 0, nil, err
	}
	return c.store.Name(), total, results, nil
}

func (c *SearchCoordinator) fetchIndex(ctx context.Context, req *query.Request) (int, []model.SearchResult, error) {
	if c.indexTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.indexTimeout)
		defer cancel()
	}
	return c.index.Fetch(ctx, req)
}

// fallbackReason классифицирует ошибку индекса для метрики.
// Отмена родительского контекста сюда не попадает как timeout.
func fallbackReason(parent context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return fallbackReasonTimeout
	}
	return fallbackReasonError
}
