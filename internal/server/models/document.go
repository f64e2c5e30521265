package models

import "time"

// Document is a converted file. The original bytes live in object storage
// under StorageKey; the markdown is kept inline.
type Document struct {
	ID               string    `json:"id"`
	AuthorID         *string   `json:"authorId"`
	Author           *UserRef  `json:"author,omitempty"`
	OriginalName     string    `json:"originalName"`
	FileName         string    `json:"fileName"`
	StorageKey       string    `json:"-"`
	FileSize         int64     `json:"fileSize"`
	ContentType      string    `json:"contentType"`
	MarkdownContent  string    `json:"markdownContent"`
	ConversionMethod string    `json:"conversionMethod"`
	ProcessingTime   float64   `json:"processingTime"`
	OriginalURL      *string   `json:"originalUrl"`
	CreatedAt        time.Time `json:"createdAt"`
}

// OwnedBy reports whether userID authored the document. Orphaned documents
// belong to nobody.
func (d *Document) OwnedBy(userID string) bool {
	return d.AuthorID != nil && *d.AuthorID == userID
}

// ConversionMethodOpenAIOCR marks documents produced by the vision model.
const ConversionMethodOpenAIOCR = "openai_ocr"
