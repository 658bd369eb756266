package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/filecatalog/internal/config"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/index/azure"
	"github.com/bigkaa/filecatalog/internal/index/memory"
)

func TestNew_AzureNotConfiguredIsDisabled(t *testing.T) {
	cfg := &config.Config{SearchBackend: config.SearchBackendAzure, AzureSearchEndpoint: "https://x.search.windows.net"}

	c, closeFn, err := New(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() ошибка: %v", err)
	}
	defer closeFn()
	if c.Enabled() {
		t.Error("Enabled() = true для ненастроенного Azure")
	}
}

func TestNew_AzureConfigured(t *testing.T) {
	cfg := &config.Config{
		SearchBackend:       config.SearchBackendAzure,
		AzureSearchEndpoint: "https://x.search.windows.net",
		AzureSearchAPIKey:   "key",
		AzureSearchIndex:    "files",
	}

	c, _, err := New(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() ошибка: %v", err)
	}
	if _, ok := c.(*azure.Client); !ok || !c.Enabled() {
		t.Errorf("ожидался включённый *azure.Client, получен %T", c)
	}
}

func TestNew_RedisWithoutAddrsIsDisabled(t *testing.T) {
	cfg := &config.Config{SearchBackend: config.SearchBackendRedis, RedisIndex: "idx:files"}

	c, _, err := New(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() ошибка: %v", err)
	}
	if c.Enabled() {
		t.Error("Enabled() = true без FC_REDIS_ADDRS")
	}
}

// TestNew_RedisUnreachableStartsDegraded: недоступный Redis при старте не
// останавливает процесс, индекс отвечает ошибками и поиск уходит в PostgreSQL.
func TestNew_RedisUnreachableStartsDegraded(t *testing.T) {
	cfg := &config.Config{
		SearchBackend: config.SearchBackendRedis,
		RedisAddrs:    []string{"127.0.0.1:1"},
		RedisIndex:    "idx:files",
		RedisPrefix:   "file:",
		IndexTimeout:  time.Second,
	}

	c, closeFn, err := New(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() = %v, ожидался запуск без Redis", err)
	}
	defer closeFn()
	if c == nil {
		t.Fatal("New() вернул nil-клиент")
	}
	status, _ := NewReadinessChecker(c, time.Second).CheckReady()
	if status != "degraded" {
		t.Errorf("status = %q, ожидался degraded", status)
	}
}

// TestNew_AzureAppliesSchema: при создании клиента схема индекса
// отправляется в сервис вместе с набором синонимов.
func TestNew_AzureAppliesSchema(t *testing.T) {
	var (
		path string
		body []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			path = r.URL.Path
			body, _ = io.ReadAll(r.Body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	cfg := &config.Config{
		SearchBackend:       config.SearchBackendAzure,
		AzureSearchEndpoint: srv.URL,
		AzureSearchAPIKey:   "key",
		AzureSearchIndex:    "files",
		AzureSynonymMap:     "ingredients",
		IndexTimeout:        5 * time.Second,
	}
	if _, _, err := New(context.Background(), cfg, slog.Default()); err != nil {
		t.Fatalf("New() ошибка: %v", err)
	}
	if path != "/indexes/files" {
		t.Fatalf("PUT %q, ожидался /indexes/files", path)
	}
	if !strings.Contains(string(body), `"synonymMaps":["ingredients"]`) {
		t.Errorf("схема без набора синонимов: %s", body)
	}
}

// TestProvision_FailureIsNotFatal: ошибка применения схемы только логируется.
func TestProvision_FailureIsNotFatal(t *testing.T) {
	p := &failingProvisioner{}
	Provision(context.Background(), p, time.Second, slog.Default())
	if p.calls != 1 {
		t.Errorf("EnsureIndex вызван %d раз, ожидался 1", p.calls)
	}
	// Клиент без EnsureIndex пропускается.
	Provision(context.Background(), memory.New(), time.Second, slog.Default())
}

type failingProvisioner struct {
	index.Disabled
	calls int
}

func (p *failingProvisioner) EnsureIndex(context.Context) error {
	p.calls++
	return errors.New("HTTP 400")
}

func TestNew_Memory(t *testing.T) {
	c, _, err := New(context.Background(), &config.Config{SearchBackend: config.SearchBackendMemory}, slog.Default())
	if err != nil || !c.Enabled() {
		t.Errorf("New(memory) = %v, %v", c, err)
	}
}

func TestReadinessChecker_Disabled(t *testing.T) {
	status, _ := NewReadinessChecker(index.Disabled{}, time.Second).CheckReady()
	if status != "ok" {
		t.Errorf("status = %q, ожидался ok", status)
	}
}

func TestReadinessChecker_Memory(t *testing.T) {
	status, msg := NewReadinessChecker(memory.New(), time.Second).CheckReady()
	if status != "ok" {
		t.Errorf("status = %q (%s), ожидался ok", status, msg)
	}
}

func TestReadinessChecker_Unreachable(t *testing.T) {
	c, err := azure.New(azure.Config{
		Endpoint: "http://127.0.0.1:1",
		APIKey:   "key",
		Index:    "files",
		Timeout:  time.Second,
	}, slog.Default())
	if err != nil {
		t.Fatalf("azure.New() ошибка: %v", err)
	}
	status, _ := NewReadinessChecker(c, time.Second).CheckReady()
	if status != "degraded" {
		t.Errorf("status = %q, ожидался degraded", status)
	}
}
