package model

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document represents a source document
type Document struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDocumentFromFile creates a Document for a file on disk.
// The title defaults to the filename without extension, the source to the path.
// Content is not stored on the document; chunking happens upstream.
func NewDocumentFromFile(filePath string, metadata Metadata) (*Document, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, err
	}

	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	return &Document{
		Title:    title,
		Source:   filePath,
		Metadata: metadata,
	}, nil
}
