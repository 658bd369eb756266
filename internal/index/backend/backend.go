// Пакет backend: выбор реализации поискового индекса по конфигурации.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/filecatalog/internal/config"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/index/azure"
	"github.com/bigkaa/filecatalog/internal/index/memory"
	"github.com/bigkaa/filecatalog/internal/index/redisearch"
)

// New создаёт клиент индекса. Если выбранный бэкенд не настроен,
// возвращается index.Disabled и поиск работает только через PostgreSQL.
// Возвращаемая функция освобождает ресурсы клиента.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (index.Client, func(), error) {
	noop := func() {}

	switch cfg.SearchBackend {
	case config.SearchBackendAzure:
		c, err := azure.New(azure.Config{
			Endpoint:   cfg.AzureSearchEndpoint,
			APIKey:     cfg.AzureSearchAPIKey,
			Index:      cfg.AzureSearchIndex,
			APIVersion: cfg.AzureSearchAPIVersion,
			CACertPath: cfg.SearchCACertPath,
			Timeout:    cfg.IndexTimeout,
			SynonymMap: cfg.AzureSynonymMap,
		}, logger)
		if errors.Is(err, index.ErrNotConfigured) {
			return disabled(logger, "Azure AI Search не настроен (endpoint, ключ или индекс пусты)"), noop, nil
		}
		if err != nil {
			return nil, noop, fmt.Errorf("ошибка создания клиента Azure AI Search: %w", err)
		}
		Provision(ctx, c, cfg.IndexTimeout, logger)
		logger.Info("Поисковый индекс: Azure AI Search",
			slog.String("endpoint", cfg.AzureSearchEndpoint),
			slog.String("index", cfg.AzureSearchIndex),
		)
		return c, noop, nil

	case config.SearchBackendRedis:
		c, err := redisearch.New(redisearch.Config{
			Addrs:    cfg.RedisAddrs,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Index:    cfg.RedisIndex,
			Prefix:   cfg.RedisPrefix,
		}, logger)
		if errors.Is(err, index.ErrNotConfigured) {
			return disabled(logger, "RediSearch не настроен (адреса или индекс пусты)"), noop, nil
		}
		if err != nil {
			return nil, noop, fmt.Errorf("ошибка создания клиента RediSearch: %w", err)
		}
		// Недоступный Redis при старте не фатален: клиент подключится позже,
		// а до этого поиск уходит в PostgreSQL.
		Provision(ctx, c, cfg.IndexTimeout, logger)
		logger.Info("Поисковый индекс: RediSearch",
			slog.Any("addrs", cfg.RedisAddrs),
			slog.String("index", cfg.RedisIndex),
		)
		return c, c.Close, nil

	case config.SearchBackendMemory:
		logger.Warn("Поисковый индекс в памяти процесса: только для разработки")
		return memory.New(), noop, nil

	default:
		return disabled(logger, "Поисковый индекс отключён"), noop, nil
	}
}

// Provision применяет схему индекса, если бэкенд это умеет.
// Ошибка не фатальна: логируется, поиск продолжает работать через PostgreSQL.
func Provision(ctx context.Context, c index.Client, timeout time.Duration, logger *slog.Logger) {
	p, ok := c.(index.Provisioner)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.EnsureIndex(ctx); err != nil {
		logger.Warn("Не удалось применить схему поискового индекса", slog.String("error", err.Error()))
	}
}

func disabled(logger *slog.Logger, reason string) index.Client {
	logger.Warn(reason + ", поиск через PostgreSQL")
	return index.Disabled{}
}
