package backend

import (
	"context"
	"time"

	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/query"
)

// ReadinessChecker проверяет доступность индекса для /health/ready.
// Недоступный индекс: состояние degraded, а не fail: поиск продолжает
// работать через PostgreSQL.
type ReadinessChecker struct {
	client  index.Client
	timeout time.Duration
}

// NewReadinessChecker создаёт проверку с таймаутом одного запроса.
func NewReadinessChecker(client index.Client, timeout time.Duration) *ReadinessChecker {
	return &ReadinessChecker{client: client, timeout: timeout}
}

// CheckReady выполняет пробный запрос на одну запись.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	if !c.client.Enabled() {
		return "ok", "индекс не настроен, поиск через PostgreSQL"
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if _, err := c.client.Search(ctx, &query.Request{Page: 1, PageSize: 1}); err != nil {
		return "degraded", "индекс недоступен: " + err.Error()
	}
	return "ok", ""
}
