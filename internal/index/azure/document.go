package azure

import (
	"time"

	"github.com/bigkaa/filecatalog/internal/domain/model"
)

// document: документ индекса в формате Azure AI Search.
// Имена полей совпадают со схемой индекса files.
type document struct {
	Action       string    `json:"@search.action,omitempty"`
	Key          string    `json:"key"`
	FileName     string    `json:"file_name"`
	OriginalName string    `json:"original_name"`
	OwnerID      *string   `json:"owner_id"`
	BlobPath     string    `json:"blob_path"`
	Application  *string   `json:"application"`
	Issue        *string   `json:"issue"`
	Ingredient   *string   `json:"ingredient"`
	Customer     *string   `json:"customer"`
	TrialRef     *string   `json:"trial_ref"`
	Author       *string   `json:"author"`
	Status       string    `json:"status"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type deleteAction struct {
	Action string `json:"@search.action"`
	Key    string `json:"key"`
}

// fromModel строит документ Azure. Время усекается до миллисекунд:
// Edm.DateTimeOffset не принимает наносекундную точность.
func fromModel(d *model.IndexDocument) document {
	return document{
		Key:          d.ID,
		FileName:     d.FileName,
		OriginalName: d.OriginalName,
		OwnerID:      d.OwnerID,
		BlobPath:     d.BlobPath,
		Application:  d.Application,
		Issue:        d.Issue,
		Ingredient:   d.Ingredient,
		Customer:     d.Customer,
		TrialRef:     d.TrialRef,
		Author:       d.Author,
		Status:       d.Status,
		Content:      d.Content,
		CreatedAt:    d.CreatedAt.UTC().Truncate(time.Millisecond),
		UpdatedAt:    d.UpdatedAt.UTC().Truncate(time.Millisecond),
	}
}

func (d *document) toModel() *model.IndexDocument {
	return &model.IndexDocument{
		ID:           d.Key,
		FileName:     d.FileName,
		OriginalName: d.OriginalName,
		OwnerID:      d.OwnerID,
		BlobPath:     d.BlobPath,
		Application:  d.Application,
		Issue:        d.Issue,
		Ingredient:   d.Ingredient,
		Customer:     d.Customer,
		TrialRef:     d.TrialRef,
		Author:       d.Author,
		Status:       d.Status,
		Content:      d.Content,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}
