package redisearch

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/query"
)

func newTestClient(c rueidis.Client) *Client {
	return NewWithClient(c, "idx:files", "file:", slog.Default())
}

func strPtr(s string) *string { return &s }

func TestNew_NotConfigured(t *testing.T) {
	if _, err := New(Config{Index: "idx"}, slog.Default()); !errors.Is(err, index.ErrNotConfigured) {
		t.Errorf("New() = %v, ожидался ErrNotConfigured", err)
	}
}

// TestNew_UnreachableDefersConnect: недоступный Redis не мешает созданию
// клиента, операции возвращают *index.Error.
func TestNew_UnreachableDefersConnect(t *testing.T) {
	c, err := New(Config{Addrs: []string{"127.0.0.1:1"}, Index: "idx:files", Prefix: "file:"}, slog.Default())
	if err != nil {
		t.Fatalf("New() = %v, ожидался клиент с отложенным подключением", err)
	}
	defer c.Close()

	_, err = c.Search(context.Background(), &query.Request{PageSize: 1})
	var ie *index.Error
	if !errors.As(err, &ie) || ie.Op != index.OpSearch {
		t.Errorf("Search() = %v, ожидалась *index.Error{Op: search}", err)
	}
}

// TestConn_DialRetriedAndIndexCreated: после неудачного подключения клиент
// подключается при следующей операции и создаёт индекс.
func TestConn_DialRetriedAndIndexCreated(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mock.NewClient(ctrl)

	dials := 0
	c := newDeferred(func() (rueidis.Client, error) {
		dials++
		if dials == 1 {
			return nil, errors.New("connection refused")
		}
		return m, nil
	}, "idx:files", "file:", slog.Default())

	if err := c.Delete(context.Background(), "f1"); err == nil {
		t.Fatal("Delete() = nil при недоступном Redis")
	}

	gomock.InOrder(
		m.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
			Return(mock.Result(mock.RedisString("OK"))),
		m.EXPECT().
			Do(gomock.Any(), mock.Match("DEL", "file:f1")).
			Return(mock.Result(mock.RedisInt64(1))),
	)
	if err := c.Delete(context.Background(), "f1"); err != nil {
		t.Fatalf("Delete() после восстановления = %v", err)
	}
	if dials != 2 {
		t.Errorf("подключений = %d, ожидалось 2", dials)
	}
}

func TestEnsureIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE" && cmd[1] == "idx:files" &&
				slices.Contains(cmd, "SCHEMA") && slices.Contains(cmd, "file:")
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	if err := newTestClient(c).EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex() = %v, ожидалось nil для существующего индекса", err)
	}
}

func TestEnsureIndex_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	err := newTestClient(c).EnsureIndex(context.Background())
	var ie *index.Error
	if !errors.As(err, &ie) || ie.Op != index.OpEnsure {
		t.Fatalf("EnsureIndex() = %v, ожидалась *index.Error{Op: ensure_index}", err)
	}
}

func TestSearch_CommandAndParsing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(23),
			mock.RedisString("file:f1"),
			mock.RedisArray(
				mock.RedisString("original_name"), mock.RedisString("f1.xlsx"),
				mock.RedisString("ingredient"), mock.RedisString("Sugar, Pectin"),
				mock.RedisString("application"), mock.RedisString(""),
				mock.RedisString("status"), mock.RedisString("active"),
				mock.RedisString("updated_at"), mock.RedisString("1709283600123"),
			),
		)))

	page, err := newTestClient(c).Search(context.Background(), &query.Request{
		Filters:  map[query.Field]string{query.FieldIngredient: "Sugar"},
		Page:     3,
		PageSize: 10,
	})
	if err != nil {
		t.Fatalf("Search() ошибка: %v", err)
	}

	want := []string{"FT.SEARCH", "idx:files", "@ingredient:(Sugar|Sugar*)",
		"SORTBY", "updated_at", "DESC", "LIMIT", "20", "10", "DIALECT", "2"}
	if !slices.Equal(got, want) {
		t.Errorf("команда = %q\nожидалась  %q", got, want)
	}

	if page.Total != 23 || len(page.Documents) != 1 {
		t.Fatalf("Total/len = %d/%d", page.Total, len(page.Documents))
	}
	d := page.Documents[0]
	if d.ID != "f1" || d.Application != nil || *d.Ingredient != "Sugar, Pectin" {
		t.Errorf("документ = %+v", d)
	}
	if !d.UpdatedAt.Equal(time.UnixMilli(1709283600123)) {
		t.Errorf("UpdatedAt = %v", d.UpdatedAt)
	}
}

func TestSearch_ErrorIsIndexError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	_, err := newTestClient(c).Search(context.Background(), &query.Request{PageSize: 10})
	var ie *index.Error
	if !errors.As(err, &ie) || ie.Op != index.OpSearch {
		t.Fatalf("Search() = %v, ожидалась *index.Error{Op: search}", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("причина потеряна: %v", err)
	}
}

func TestUpsert_HSetAllFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "HSET" || cmd[1] != "file:f1" {
				return false
			}
			fields := map[string]string{}
			for i := 2; i+1 < len(cmd); i += 2 {
				fields[cmd[i]] = cmd[i+1]
			}
			return fields["ingredient"] == "Sugar" && fields["application"] == "" &&
				fields["status"] == "active" && fields["updated_at"] == "1709283600123"
		})).
		Return(mock.Result(mock.RedisInt64(14)))

	doc := model.NewIndexDocument(&model.FileRecord{
		ID: "f1", OriginalName: "a.pdf", Ingredient: strPtr("Sugar"),
		Status: model.StatusActive, UpdatedAt: time.UnixMilli(1709283600123),
	})
	if err := newTestClient(c).Upsert(context.Background(), doc); err != nil {
		t.Fatalf("Upsert() ошибка: %v", err)
	}
}

func TestDelete_MissingKeyIsNotError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "file:f9")).
		Return(mock.Result(mock.RedisInt64(0)))

	if err := newTestClient(c).Delete(context.Background(), "f9"); err != nil {
		t.Fatalf("Delete() = %v, ожидалось nil", err)
	}
}

func TestListIDs_StripsPrefix(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	first := true
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SCAN" })).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if first {
				first = false
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(42),
					mock.RedisArray(mock.RedisString("file:a")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0),
				mock.RedisArray(mock.RedisString("file:b")),
			))
		}).Times(2)

	ids, err := newTestClient(c).ListIDs(context.Background())
	if err != nil {
		t.Fatalf("ListIDs() ошибка: %v", err)
	}
	if !slices.Equal(ids, []string{"a", "b"}) {
		t.Errorf("ListIDs() = %v", ids)
	}
}

func TestUpsertSynonyms_GroupPerRule(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(),
			mock.Match("FT.SYNUPDATE", "idx:files", "ing:0", "ペクチン", "pectin"),
			mock.Match("FT.SYNUPDATE", "idx:files", "ing:2", "sugar", "sucrose"),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("OK")),
		})

	err := newTestClient(c).UpsertSynonyms(context.Background(), "ing",
		[]string{"ペクチン, pectin", "single", "sugar, sucrose"})
	if err != nil {
		t.Fatalf("UpsertSynonyms() ошибка: %v", err)
	}
}
