// Пакет redisearch: бэкенд поискового индекса на RediSearch (Redis 8+).
// Документы хранятся в хэшах с ключом prefix+id, индекс FT.CREATE ON HASH.
package redisearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/rueidis"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/query"
)

var _ index.Client = (*Client)(nil)

// Config: параметры подключения к Redis.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// Index: имя индекса FT
	Index string
	// Prefix: префикс ключей документов
	Prefix string
}

// Configured сообщает, заданы ли адреса и имя индекса.
func (c Config) Configured() bool {
	return len(c.Addrs) > 0 && c.Index != ""
}

// Client: клиент RediSearch через rueidis.
// Если Redis недоступен при создании, подключение откладывается до первой
// операции: до этого момента все операции возвращают *index.Error.
type Client struct {
	mu     sync.Mutex
	client rueidis.Client
	dial   func() (rueidis.Client, error)
	index  string
	prefix string
	logger *slog.Logger
}

// New создаёт клиент. Неполная конфигурация: index.ErrNotConfigured.
// Ошибка подключения не возвращается: клиент повторит его при следующей операции.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if !cfg.Configured() {
		return nil, index.ErrNotConfigured
	}

	dial := func() (rueidis.Client, error) {
		return rueidis.NewClient(rueidis.ClientOption{
			InitAddress:  cfg.Addrs,
			Username:     cfg.Username,
			Password:     cfg.Password,
			SelectDB:     cfg.DB,
			DisableCache: true,
			AlwaysRESP2:  true, // разбор FT.SEARCH рассчитан на массив RESP2
		})
	}

	c := newDeferred(dial, cfg.Index, cfg.Prefix, logger)
	client, err := dial()
	if err != nil {
		c.logger.Warn("Redis недоступен, подключение отложено",
			slog.Any("addrs", cfg.Addrs),
			slog.String("error", err.Error()),
		)
		return c, nil
	}
	c.client = client
	return c, nil
}

// NewWithClient оборачивает готовый rueidis.Client (в том числе mock).
func NewWithClient(c rueidis.Client, indexName, prefix string, logger *slog.Logger) *Client {
	cl := newDeferred(nil, indexName, prefix, logger)
	cl.client = c
	return cl
}

func newDeferred(dial func() (rueidis.Client, error), indexName, prefix string, logger *slog.Logger) *Client {
	return &Client{
		dial:   dial,
		index:  indexName,
		prefix: prefix,
		logger: logger.With(slog.String("component", "redisearch")),
	}
}

// conn возвращает подключение, при необходимости устанавливая его.
// После отложенного подключения индекс создаётся заново: при старте
// EnsureIndex не мог выполниться.
func (c *Client) conn(ctx context.Context) (rueidis.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.dial == nil {
		return nil, errors.New("клиент Redis закрыт")
	}
	client, err := c.dial()
	if err != nil {
		return nil, fmt.Errorf("подключение к Redis: %w", err)
	}
	c.client = client
	c.logger.Info("Подключение к Redis установлено")

	if err := c.createIndex(ctx, client); err != nil {
		c.logger.Warn("Не удалось создать индекс RediSearch", slog.String("error", err.Error()))
	}
	return client, nil
}

// Close закрывает соединения.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	c.dial = nil
}

// Enabled всегда true: ненастроенный клиент не создаётся.
func (c *Client) Enabled() bool { return true }

// schema: поля индекса. TEXT-поля участвуют в полнотекстовом поиске,
// TAG: точные фильтры, NUMERIC: сортировка по времени (unix-миллисекунды).
var schema = []string{
	"content", "TEXT",
	"original_name", "TEXT", "SORTABLE",
	"file_name", "TEXT",
	"application", "TEXT", "SORTABLE",
	"issue", "TEXT",
	"ingredient", "TEXT",
	"customer", "TEXT",
	"trial_ref", "TEXT",
	"author", "TEXT",
	"status", "TAG",
	"owner_id", "TAG",
	"created_at", "NUMERIC", "SORTABLE",
	"updated_at", "NUMERIC", "SORTABLE",
}

// EnsureIndex создаёт индекс, если его ещё нет.
func (c *Client) EnsureIndex(ctx context.Context) error {
	client, err := c.conn(ctx)
	if err != nil {
		return &index.Error{Op: index.OpEnsure, Err: err}
	}
	if err := c.createIndex(ctx, client); err != nil {
		return &index.Error{Op: index.OpEnsure, Err: err}
	}
	return nil
}

func (c *Client) createIndex(ctx context.Context, client rueidis.Client) error {
	args := []string{c.index, "ON", "HASH", "PREFIX", "1", c.prefix, "SCHEMA"}
	args = append(args, schema...)

	cmd := client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return err
	}
	c.logger.Info("Индекс RediSearch создан", slog.String("index", c.index))
	return nil
}

// Search выполняет FT.SEARCH.
func (c *Client) Search(ctx context.Context, req *query.Request) (*index.Page, error) {
	q := query.CompileRedis(req)

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	args := []string{
		c.index, q.Query,
		"SORTBY", q.SortBy, dir,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	}

	client, err := c.conn(ctx)
	if err != nil {
		return nil, &index.Error{Op: index.OpSearch, Err: err}
	}
	cmd := client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &index.Error{Op: index.OpSearch, Err: err}
	}

	page, err := c.parseSearchResult(raw)
	if err != nil {
		return nil, &index.Error{Op: index.OpSearch, Err: err}
	}
	return page, nil
}

// parseSearchResult разбирает ответ RESP2: [total, key1, fields1, key2, fields2, ...].
func (c *Client) parseSearchResult(raw []rueidis.RedisMessage) (*index.Page, error) {
	if len(raw) == 0 {
		return &index.Page{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("разбор total: %w", err)
	}

	page := &index.Page{Total: int(total), Documents: make([]*model.IndexDocument, 0, (len(raw)-1)/2)}
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		page.Documents = append(page.Documents,
			hashToDocument(strings.TrimPrefix(key, c.prefix), parseFieldPairs(fields)))
	}
	return page, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// Upsert записывает документ одним HSET. Отсутствующие теги пишутся
// пустой строкой, чтобы перезаписать прежнее значение.
func (c *Client) Upsert(ctx context.Context, doc *model.IndexDocument) error {
	client, err := c.conn(ctx)
	if err != nil {
		return &index.Error{Op: index.OpUpsert, Err: err}
	}
	cmd := client.B().Hset().Key(c.prefix + doc.ID).FieldValue()
	for _, kv := range documentToHash(doc) {
		cmd = cmd.FieldValue(kv[0], kv[1])
	}
	if err := client.Do(ctx, cmd.Build()).Error(); err != nil {
		return &index.Error{Op: index.OpUpsert, Err: err}
	}
	return nil
}

// Delete удаляет хэш документа. DEL отсутствующего ключа возвращает 0 без ошибки.
func (c *Client) Delete(ctx context.Context, id string) error {
	client, err := c.conn(ctx)
	if err != nil {
		return &index.Error{Op: index.OpDelete, Err: err}
	}
	cmd := client.B().Del().Key(c.prefix + id).Build()
	if err := client.Do(ctx, cmd).Error(); err != nil {
		return &index.Error{Op: index.OpDelete, Err: err}
	}
	return nil
}

// ListIDs перебирает ключи с префиксом через SCAN.
func (c *Client) ListIDs(ctx context.Context) ([]string, error) {
	client, err := c.conn(ctx)
	if err != nil {
		return nil, &index.Error{Op: index.OpListIDs, Err: err}
	}

	var (
		ids    []string
		cursor uint64
	)
	for {
		cmd := client.B().Scan().Cursor(cursor).Match(c.prefix + "*").Count(500).Build()
		res, err := client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &index.Error{Op: index.OpListIDs, Err: err}
		}
		for _, key := range res.Elements {
			ids = append(ids, strings.TrimPrefix(key, c.prefix))
		}
		cursor = res.Cursor
		if cursor == 0 {
			return ids, nil
		}
	}
}

// UpsertSynonyms загружает правила через FT.SYNUPDATE: одна группа на правило,
// идентификатор группы: name:номер.
func (c *Client) UpsertSynonyms(ctx context.Context, name string, rules []string) error {
	client, err := c.conn(ctx)
	if err != nil {
		return &index.Error{Op: index.OpSynonyms, Err: err}
	}

	cmds := make([]rueidis.Completed, 0, len(rules))
	for i, rule := range rules {
		terms := index.SplitSynonymRule(rule)
		if len(terms) < 2 {
			continue
		}
		args := append([]string{c.index, fmt.Sprintf("%s:%d", name, i)}, terms...)
		cmds = append(cmds, client.B().Arbitrary("FT.SYNUPDATE").Args(args...).Build())
	}

	for _, res := range client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &index.Error{Op: index.OpSynonyms, Err: err}
		}
	}
	c.logger.Info("Синонимы загружены",
		slog.String("name", name),
		slog.Int("groups", len(cmds)),
	)
	return nil
}

// Ping проверяет доступность Redis.
func (c *Client) Ping(ctx context.Context) error {
	client, err := c.conn(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func documentToHash(d *model.IndexDocument) [][2]string {
	return [][2]string{
		{"file_name", d.FileName},
		{"original_name", d.OriginalName},
		{"owner_id", deref(d.OwnerID)},
		{"blob_path", d.BlobPath},
		{"application", deref(d.Application)},
		{"issue", deref(d.Issue)},
		{"ingredient", deref(d.Ingredient)},
		{"customer", deref(d.Customer)},
		{"trial_ref", deref(d.TrialRef)},
		{"author", deref(d.Author)},
		{"status", d.Status},
		{"content", d.Content},
		{"created_at", strconv.FormatInt(d.CreatedAt.UnixMilli(), 10)},
		{"updated_at", strconv.FormatInt(d.UpdatedAt.UnixMilli(), 10)},
	}
}

func hashToDocument(id string, h map[string]string) *model.IndexDocument {
	return &model.IndexDocument{
		ID:           id,
		FileName:     h["file_name"],
		OriginalName: h["original_name"],
		OwnerID:      ptr(h["owner_id"]),
		BlobPath:     h["blob_path"],
		Application:  ptr(h["application"]),
		Issue:        ptr(h["issue"]),
		Ingredient:   ptr(h["ingredient"]),
		Customer:     ptr(h["customer"]),
		TrialRef:     ptr(h["trial_ref"]),
		Author:       ptr(h["author"]),
		Status:       h["status"],
		Content:      h["content"],
		CreatedAt:    unixMilliTime(h["created_at"]),
		UpdatedAt:    unixMilliTime(h["updated_at"]),
	}
}

func unixMilliTime(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isRedisErr проверяет, что err: ошибка сервера Redis, содержащая substr.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), substr)
}
