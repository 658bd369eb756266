// Пакет azure: клиент Azure AI Search (REST API).
// Схема: PUT indexes/{name} (см. EnsureIndex),
// поиск: POST docs/search (простой синтаксис + OData $filter),
// запись: POST docs/index (mergeOrUpload / delete),
// синонимы: PUT synonymmaps/{name} в формате Solr.
package azure

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bigkaa/filecatalog/internal/domain/model"
	"github.com/bigkaa/filecatalog/internal/index"
	"github.com/bigkaa/filecatalog/internal/query"
)

// listPageSize: размер страницы при выгрузке ключей индекса.
const listPageSize = 1000

var _ index.Client = (*Client)(nil)

// Config: параметры подключения к Azure AI Search.
type Config struct {
	// Endpoint: https://<service>.search.windows.net
	Endpoint   string
	APIKey     string
	Index      string
	APIVersion string
	// CACertPath: путь к CA-сертификату (пустая строка: системный пул)
	CACertPath string
	Timeout    time.Duration
	// SynonymMap: набор синонимов полнотекстовых полей (пусто: без синонимов)
	SynonymMap string
}

// Configured сообщает, заданы ли endpoint, ключ и имя индекса.
func (c Config) Configured() bool {
	return c.Endpoint != "" && c.APIKey != "" && c.Index != ""
}

// Client: HTTP-клиент Azure AI Search.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string //nolint:gosec // G101: поле структуры, не содержит секрет напрямую
	indexName  string
	apiVersion string
	synonymMap string
	logger     *slog.Logger
}

// New создаёт клиент Azure AI Search. Конфигурация должна быть полной
// (см. Config.Configured), иначе возвращается index.ErrNotConfigured.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if !cfg.Configured() {
		return nil, index.ErrNotConfigured
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата поискового сервиса: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат поискового сервиса добавлен в пул доверия",
			slog.String("ca_cert", cfg.CACertPath),
		)
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2024-07-01"
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		indexName:  cfg.Index,
		apiVersion: apiVersion,
		synonymMap: cfg.SynonymMap,
		logger:     logger.With(slog.String("component", "azure_search")),
	}, nil
}

// Enabled всегда true: ненастроенный клиент не создаётся.
func (c *Client) Enabled() bool { return true }

// searchRequest: тело POST docs/search.
type searchRequest struct {
	Search       string `json:"search"`
	SearchFields string `json:"searchFields,omitempty"`
	SearchMode   string `json:"searchMode,omitempty"`
	QueryType    string `json:"queryType"`
	Filter       string `json:"filter,omitempty"`
	OrderBy      string `json:"orderby,omitempty"`
	Select       string `json:"select,omitempty"`
	Skip         int    `json:"skip"`
	Top          int    `json:"top"`
	Count        bool   `json:"count"`
}

type searchResponse struct {
	Count *int       `json:"@odata.count"`
	Value []document `json:"value"`
}

// Search выполняет запрос к индексу.
func (c *Client) Search(ctx context.Context, req *query.Request) (*index.Page, error) {
	q := query.CompileAzure(req)
	body := searchRequest{
		Search:       q.Search,
		SearchFields: strings.Join(q.SearchFields, ","),
		SearchMode:   q.SearchMode,
		QueryType:    "simple",
		Filter:       q.Filter,
		OrderBy:      q.OrderBy,
		Skip:         q.Skip,
		Top:          q.Top,
		Count:        true,
	}

	var resp searchResponse
	if err := c.doJSON(ctx, http.MethodPost, c.indexURL("docs/search"), body, &resp, http.StatusOK); err != nil {
		return nil, &index.Error{Op: index.OpSearch, Err: err}
	}

	page := &index.Page{Documents: make([]*model.IndexDocument, 0, len(resp.Value))}
	for i := range resp.Value {
		page.Documents = append(page.Documents, resp.Value[i].toModel())
	}
	if resp.Count != nil {
		page.Total = *resp.Count
	} else {
		page.Total = q.Skip + len(page.Documents)
	}
	return page, nil
}

// indexBatch: тело POST docs/index.
type indexBatch struct {
	Value []any `json:"value"`
}

type indexResult struct {
	Key          string `json:"key"`
	Status       bool   `json:"status"`
	ErrorMessage string `json:"errorMessage"`
	StatusCode   int    `json:"statusCode"`
}

type indexResponse struct {
	Value []indexResult `json:"value"`
}

// Upsert записывает документ действием mergeOrUpload.
// Поля со значением nil передаются как null и очищаются в индексе.
func (c *Client) Upsert(ctx context.Context, doc *model.IndexDocument) error {
	d := fromModel(doc)
	d.Action = "mergeOrUpload"
	if err := c.indexDocuments(ctx, d, false); err != nil {
		return &index.Error{Op: index.OpUpsert, Err: err}
	}
	return nil
}

// Delete удаляет документ по ключу. Отсутствующий документ не ошибка.
func (c *Client) Delete(ctx context.Context, id string) error {
	d := deleteAction{Action: "delete", Key: id}
	if err := c.indexDocuments(ctx, d, true); err != nil {
		return &index.Error{Op: index.OpDelete, Err: err}
	}
	return nil
}

func (c *Client) indexDocuments(ctx context.Context, action any, allowMissing bool) error {
	var resp indexResponse
	err := c.doJSON(ctx, http.MethodPost, c.indexURL("docs/index"),
		indexBatch{Value: []any{action}}, &resp, http.StatusOK, http.StatusMultiStatus)
	if err != nil {
		return err
	}
	for _, r := range resp.Value {
		if r.Status || (allowMissing && r.StatusCode == http.StatusNotFound) {
			continue
		}
		return fmt.Errorf("документ %s отклонён (статус %d): %s", r.Key, r.StatusCode, r.ErrorMessage)
	}
	return nil
}

// ListIDs выгружает ключи всех документов постранично. Страницы
// продолжаются курсором по ключу (key gt последний): $skip ограничен
// сервисом и не даёт стабильного порядка.
func (c *Client) ListIDs(ctx context.Context) ([]string, error) {
	var (
		ids  []string
		last string
	)
	for {
		body := searchRequest{
			Search:    "*",
			QueryType: "simple",
			Select:    "key",
			OrderBy:   "key asc",
			Top:       listPageSize,
		}
		if last != "" {
			body.Filter = fmt.Sprintf("key gt '%s'", query.EscapeODataString(last))
		}
		var resp searchResponse
		if err := c.doJSON(ctx, http.MethodPost, c.indexURL("docs/search"), body, &resp, http.StatusOK); err != nil {
			return nil, &index.Error{Op: index.OpListIDs, Err: err}
		}
		for _, d := range resp.Value {
			ids = append(ids, d.Key)
		}
		if len(resp.Value) < listPageSize {
			return ids, nil
		}
		last = resp.Value[len(resp.Value)-1].Key
	}
}

type synonymMap struct {
	Name     string `json:"name"`
	Format   string `json:"format"`
	Synonyms string `json:"synonyms"`
}

// UpsertSynonyms создаёт или заменяет synonym map (формат Solr).
func (c *Client) UpsertSynonyms(ctx context.Context, name string, rules []string) error {
	body := synonymMap{Name: name, Format: "solr", Synonyms: strings.Join(rules, "\n")}
	reqURL := fmt.Sprintf("%s/synonymmaps/%s?api-version=%s",
		c.endpoint, url.PathEscape(name), url.QueryEscape(c.apiVersion))

	err := c.doJSON(ctx, http.MethodPut, reqURL, body, nil,
		http.StatusOK, http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return &index.Error{Op: index.OpSynonyms, Err: err}
	}
	c.logger.Info("Набор синонимов загружен",
		slog.String("name", name),
		slog.Int("rules", len(rules)),
	)
	return nil
}

func (c *Client) indexURL(action string) string {
	return fmt.Sprintf("%s/indexes/%s/%s?api-version=%s",
		c.endpoint, url.PathEscape(c.indexName), action, url.QueryEscape(c.apiVersion))
}

// doJSON выполняет запрос с JSON-телом и декодирует ответ в out (если out != nil).
// Статус вне okStatuses превращается в ошибку с телом ответа.
func (c *Client) doJSON(ctx context.Context, method, reqURL string, in, out any, okStatuses ...int) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("кодирование запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return fmt.Errorf("запрос к %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	ok := false
	for _, s := range okStatuses {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("поисковый сервис вернул статус %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("декодирование ответа: %w", err)
	}
	return nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}
