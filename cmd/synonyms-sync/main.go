// main.go: загрузка набора синонимов в поисковый индекс.
// Набор читается из YAML-файла (name + rules в формате Solr) и
// создаётся или заменяется в бэкенде, выбранном FC_SEARCH_BACKEND.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/bigkaa/filecatalog/internal/config"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/index/backend"
)

func main() {
	file := flag.String("file", "synonyms.yaml", "YAML-файл набора синонимов")
	timeout := flag.Duration("timeout", 30*time.Second, "таймаут операции")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)

	if err := run(cfg, logger, *file, *timeout); err != nil {
		logger.Error("Синонимы не загружены", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, file string, timeout time.Duration) error {
	synonyms, err := index.LoadSynonyms(file)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	idx, closeIndex, err := backend.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	if !idx.Enabled() {
		return index.ErrNotConfigured
	}

	if err := idx.UpsertSynonyms(ctx, synonyms.Name, synonyms.Rules); err != nil {
		return err
	}
	// Azure подключает набор к полям только после его создания.
	backend.Provision(ctx, idx, timeout, logger)

	logger.Info("Набор синонимов загружен",
		slog.String("name", synonyms.Name),
		slog.Int("rules", len(synonyms.Rules)),
		slog.String("backend", cfg.SearchBackend),
	)
	return nil
}
