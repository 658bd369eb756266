package azure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/bigkaa/filecatalog/internal/index"
)

// textAnalyzer: анализатор полнотекстовых полей (японский и латиница).
const textAnalyzer = "ja.microsoft"

// field: определение поля индекса в REST API.
type field struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Key         bool     `json:"key,omitempty"`
	Searchable  bool     `json:"searchable"`
	Filterable  bool     `json:"filterable"`
	Sortable    bool     `json:"sortable"`
	Facetable   bool     `json:"facetable"`
	Analyzer    string   `json:"analyzer,omitempty"`
	SynonymMaps []string `json:"synonymMaps,omitempty"`
}

type indexDefinition struct {
	Name   string  `json:"name"`
	Fields []field `json:"fields"`
}

// buildIndex описывает схему индекса files. Набор синонимов подключается
// ко всем полнотекстовым полям, если задан.
func buildIndex(name, synonymMap string) indexDefinition {
	var maps []string
	if synonymMap != "" {
		maps = []string{synonymMap}
	}
	text := func(n string, filterable, sortable bool) field {
		return field{
			Name: n, Type: "Edm.String",
			Searchable: true, Filterable: filterable, Sortable: sortable,
			Analyzer: textAnalyzer, SynonymMaps: maps,
		}
	}
	simple := func(n string) field {
		return field{Name: n, Type: "Edm.String", Filterable: true}
	}
	timestamp := func(n string) field {
		return field{Name: n, Type: "Edm.DateTimeOffset", Filterable: true, Sortable: true}
	}

	application := text("application", true, true)
	application.Facetable = true
	customer := text("customer", true, false)
	customer.Facetable = true

	return indexDefinition{
		Name: name,
		Fields: []field{
			{Name: "key", Type: "Edm.String", Key: true, Filterable: true, Sortable: true},
			text("file_name", false, false),
			text("original_name", true, true),
			simple("owner_id"),
			simple("blob_path"),
			application,
			text("issue", true, false),
			text("ingredient", true, false),
			customer,
			text("trial_ref", true, false),
			text("author", true, false),
			simple("status"),
			text("content", false, false),
			timestamp("created_at"),
			timestamp("updated_at"),
		},
	}
}

// EnsureIndex создаёт или обновляет индекс (PUT indexes/{name}).
// Набор синонимов должен существовать до подключения к полям.
func (c *Client) EnsureIndex(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/indexes/%s?api-version=%s",
		c.endpoint, url.PathEscape(c.indexName), url.QueryEscape(c.apiVersion))

	err := c.doJSON(ctx, http.MethodPut, reqURL, buildIndex(c.indexName, c.synonymMap), nil,
		http.StatusOK, http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return &index.Error{Op: index.OpEnsure, Err: err}
	}
	c.logger.Info("Схема индекса Azure AI Search применена",
		slog.String("index", c.indexName),
		slog.String("synonym_map", c.synonymMap),
	)
	return nil
}
