package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/filecatalog/internal/config"
)

type testRoutes struct{}

func (testRoutes) Routes(r chi.Router) {
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/api/v1/files/search", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

func TestAuthWithExclusions(t *testing.T) {
	cfg := &config.Config{Port: 0, ShutdownTimeout: time.Second}
	srv := New(cfg, testLogger(), testRoutes{}, AuthWithExclusions(denyAll, "/health/", "/metrics"))

	cases := map[string]int{
		"/health/live":         http.StatusOK,
		"/api/v1/files/search": http.StatusUnauthorized,
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Errorf("%s: статус = %d, ожидался %d", path, rec.Code, want)
		}
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := &config.Config{Port: 0, ShutdownTimeout: time.Second}
	srv := New(cfg, testLogger(), testRoutes{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() ошибка: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() не завершился после отмены контекста")
	}
}
