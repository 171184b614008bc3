package dataset

import (
	"encoding/json"
	"fmt"

	"github.com/starford/catdog/internal/apperr"
	"github.com/starford/catdog/internal/models"
	"github.com/starford/catdog/internal/storage"
)

// Document is the structured export of a ledger. Image and annotation ids
// follow ledger order.
type Document struct {
	Info        Info         `json:"info"`
	Categories  []Category   `json:"categories"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
}

type Info struct {
	Description string `json:"description"`
	Version     string `json:"version"`
	Contributor string `json:"contributor"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Image struct {
	ID        int    `json:"id"`
	FileName  string `json:"file_name"`
	Timestamp string `json:"timestamp"`
}

type Annotation struct {
	ID         int `json:"id"`
	ImageID    int `json:"image_id"`
	CategoryID int `json:"category_id"`
}

// Export builds the document for entries.
func Export(entries []models.LedgerEntry) Document {
	doc := Document{
		Info: Info{
			Description: "cat/dog image classification labels",
			Version:     "1.0",
			Contributor: "catdog",
		},
		Images:      make([]Image, 0, len(entries)),
		Annotations: make([]Annotation, 0, len(entries)),
	}
	for _, l := range models.Labels() {
		doc.Categories = append(doc.Categories, Category{ID: l.CategoryID(), Name: l.String()})
	}
	for i, e := range entries {
		doc.Images = append(doc.Images, Image{ID: i, FileName: e.Filename, Timestamp: e.FormatTimestamp()})
		doc.Annotations = append(doc.Annotations, Annotation{ID: i, ImageID: i, CategoryID: e.Label.CategoryID()})
	}
	return doc
}

// WriteJSON atomically writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("dataset: encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: dataset: write %s: %w", apperr.ErrDurability, path, err)
	}
	return nil
}
