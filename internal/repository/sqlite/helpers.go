package sqlite

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"dase/internal/domain"
)

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// Document Row Scanner
// ============================================================================
//
// To add a column to the documents table:
// 1. Add field to documentRow
// 2. APPEND it to scanArgs() and documentColumns
// 3. Map it in toDomain()
// 4. Add a migration in migrate() using addColumnIfNotExists()
//
// Column order must match between documentColumns and scanArgs().

// documentRow holds all columns from a document query for scanning
type documentRow struct {
	ID        string
	Name      sql.NullString
	RootTag   string
	Content   string
	Digest    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match documentColumns order exactly:
// id, name, root_tag, content, digest, created_at, updated_at
func (r *documentRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,        // 1
		&r.Name,      // 2
		&r.RootTag,   // 3
		&r.Content,   // 4
		&r.Digest,    // 5
		&r.CreatedAt, // 6
		&r.UpdatedAt, // 7
	}
}

// toDomain converts the scanned row to a domain.Document
func (r *documentRow) toDomain() (*domain.Document, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "document id %q", r.ID)
	}

	return &domain.Document{
		ID:        id,
		Name:      nullToString(r.Name),
		RootTag:   r.RootTag,
		Content:   r.Content,
		Digest:    r.Digest,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

// documentColumns returns the SELECT column list for document queries
const documentColumns = `id, name, root_tag, content, digest, created_at, updated_at`

// summaryRow holds the columns of a document listing
type summaryRow struct {
	ID        string
	Name      sql.NullString
	RootTag   string
	Digest    string
	Size      int
	UpdatedAt time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match summaryColumns order exactly
func (r *summaryRow) scanArgs() []interface{} {
	return []interface{}{&r.ID, &r.Name, &r.RootTag, &r.Digest, &r.Size, &r.UpdatedAt}
}

func (r *summaryRow) toDomain() (domain.DocumentSummary, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return domain.DocumentSummary{}, errors.Wrapf(err, "document id %q", r.ID)
	}
	return domain.DocumentSummary{
		ID:        id,
		Name:      nullToString(r.Name),
		RootTag:   r.RootTag,
		Digest:    r.Digest,
		Size:      r.Size,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

const summaryColumns = `id, name, root_tag, digest, length(CAST(content AS BLOB)), updated_at`
