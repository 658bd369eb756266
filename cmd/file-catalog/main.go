// main.go: точка входа File Catalog.
// Собирает зависимости: PostgreSQL, поисковый индекс, ссылки на скачивание,
// сервисы поиска и записи, сверку индекса, HTTP API.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/filecatalog/internal/api/handlers"
	"github.com/bigkaa/filecatalog/internal/api/middleware"
	"github.com/bigkaa/filecatalog/internal/api/openapi"
	"github.com/bigkaa/filecatalog/internal/config"
	"github.com/bigkaa/filecatalog/internal/database"
	"github.com/bigkaa/filecatalog/internal/index/backend"
	"github.com/bigkaa/filecatalog/internal/links"
	"github.com/bigkaa/filecatalog/internal/repository"
	"github.com/bigkaa/filecatalog/internal/server"
	"github.com/bigkaa/filecatalog/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("File Catalog запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("search_backend", cfg.SearchBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("File Catalog завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("File Catalog остановлен")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		return err
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Поисковый индекс
	idx, closeIndex, err := backend.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	// 6. Ссылки на скачивание
	resolver, closeLinks, err := links.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLinks()

	// 7. Репозитории и сервисы
	fileRepo := repository.NewFileRepository(pool)
	downloadRepo := repository.NewDownloadRepository(pool)

	cache := service.NewCacheService(cfg.CacheMaxSize, cfg.CacheTTL)
	syncHook := service.NewIndexSyncHook(idx, cfg.IndexSyncTimeout, logger)
	enricher := service.NewEnricher(fileRepo, downloadRepo, resolver, cfg.DownloadCountWindow, logger)
	searchSvc := service.NewSearchCoordinator(idx, service.NewStoreSource(fileRepo), enricher,
		service.SearchOptions{
			IndexTimeout:    cfg.IndexTimeout,
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
		}, logger)
	fileSvc := service.NewFileService(fileRepo, downloadRepo, cache, syncHook, resolver, logger)

	// 8. Периодическая сверка индекса
	reconciler := service.NewReconciler(fileRepo, idx, cfg.ReindexPageSize, cfg.ReindexSchedule, logger)
	if err := reconciler.Start(ctx); err != nil {
		return err
	}
	defer reconciler.Stop()

	// 9. Мониторинг зависимостей (topologymetrics)
	dephealthSvc, err := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "file-catalog",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PGConnURL:     cfg.DatabaseURL(),
		JWKSURL:       cfg.JWTJWKSURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
	} else {
		defer dephealthSvc.Stop()
	}

	// 10. Middleware: логирование, метрики, JWT, валидация по OpenAPI
	middlewares := []func(http.Handler) http.Handler{
		middleware.RequestLogger(logger),
		middleware.MetricsMiddleware(),
	}

	var requireAdmin func(http.Handler) http.Handler
	if cfg.AuthEnabled() {
		jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWTJWKSURL,
			CACertPath:      cfg.JWTCACertPath,
			Issuer:          cfg.JWTIssuer,
			AdminGroups:     cfg.RoleAdminGroups,
			ClientTimeout:   cfg.JWKSClientTimeout,
			RefreshInterval: cfg.JWKSRefreshInterval,
			Leeway:          cfg.JWTLeeway,
		}, logger)
		if err != nil {
			return err
		}
		middlewares = append(middlewares, server.AuthWithExclusions(jwtAuth.Middleware(), "/health/", "/metrics"))
		requireAdmin = middleware.RequireAdmin()
		logger.Info("JWT аутентификация включена", slog.String("jwks_url", cfg.JWTJWKSURL))
	} else {
		logger.Warn("FC_JWT_JWKS_URL не задан: аутентификация отключена, /api/v1/admin доступен без проверки роли")
	}

	doc, err := openapi.Load()
	if err != nil {
		return err
	}
	validator, err := middleware.NewOpenAPIValidator(doc, logger)
	if err != nil {
		return err
	}
	middlewares = append(middlewares, validator.Middleware())

	// 11. Обработчики и HTTP-сервер
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		backend.NewReadinessChecker(idx, cfg.IndexTimeout),
	)
	apiHandler := handlers.NewAPIHandler(fileSvc, searchSvc, reconciler, healthHandler, requireAdmin, logger)

	srv := server.New(cfg, logger, apiHandler, middlewares...)
	return srv.Run(ctx)
}
