package repository

import (
	"context"

	"github.com/google/uuid"

	"dase/internal/domain"
)

// Repository defines the interface for document data access
type Repository interface {
	// Read operations. Missing documents yield nil without an error.
	GetDocument(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	FindDocument(ctx context.Context, name string) (*domain.Document, error)
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)

	// Write operations
	SaveDocument(ctx context.Context, doc *domain.Document) error
	DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error)

	// Close releases resources
	Close() error
}
