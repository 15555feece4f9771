package domain

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Document is a serialized element tree as persisted by the store
type Document struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	RootTag   string    `json:"root_tag"`
	Content   string    `json:"content"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentSummary is a document without its content, as returned by listings
type DocumentSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	RootTag   string    `json:"root_tag"`
	Digest    string    `json:"digest"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDocument creates a document for content and stamps its digest
func NewDocument(id uuid.UUID, name, rootTag, content string) *Document {
	return &Document{
		ID:      id,
		Name:    name,
		RootTag: rootTag,
		Content: content,
		Digest:  ContentDigest(content),
	}
}

// ContentDigest returns the hex BLAKE2b-256 digest of content
func ContentDigest(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the stored digest still matches the content
func (d *Document) Verify() bool {
	return d.Digest == ContentDigest(d.Content)
}

// Summary returns the listing form of d
func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:        d.ID,
		Name:      d.Name,
		RootTag:   d.RootTag,
		Digest:    d.Digest,
		Size:      len(d.Content),
		UpdatedAt: d.UpdatedAt,
	}
}
