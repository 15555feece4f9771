package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"dase/internal/domain"
)

// DefaultBusyTimeout is used when no timeout is configured
const DefaultBusyTimeout = 5 * time.Second

// Repository implements repository.Repository using SQLite
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Repository
type Option func(*options)

type options struct {
	busyTimeout time.Duration
}

// WithBusyTimeout sets how long a writer waits on a locked database
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// New creates a new SQLite repository
func New(dbPath string, opts ...Option) (*Repository, error) {
	o := options{busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", dbPath, o.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	logrus.Debugf("opened document store %s", dbPath)
	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT,
		root_tag TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_name ON documents(name);
	`

	if _, err := r.db.Exec(schema); err != nil {
		return err
	}

	// digest was added after the first schema
	return r.addColumnIfNotExists("documents", "digest", "TEXT NOT NULL DEFAULT ''")
}

func (r *Repository) addColumnIfNotExists(table, column, decl string) error {
	rows, err := r.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return errors.Wrapf(err, "failed to inspect %s", table)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return errors.Wrapf(err, "failed to scan %s columns", table)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = r.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return errors.Wrapf(err, "failed to add %s.%s", table, column)
}

// GetDocument retrieves a single document by ID
func (r *Repository) GetDocument(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	return r.queryDocument(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id.String())
}

// FindDocument retrieves the most recently updated document called name
func (r *Repository) FindDocument(ctx context.Context, name string) (*domain.Document, error) {
	return r.queryDocument(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE name = ?
		ORDER BY updated_at DESC
		LIMIT 1
	`, name)
}

func (r *Repository) queryDocument(ctx context.Context, query string, args ...interface{}) (*domain.Document, error) {
	var row documentRow
	err := r.db.QueryRowContext(ctx, query, args...).Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query document")
	}

	return row.toDomain()
}

// ListDocuments returns summaries of all stored documents ordered by name
func (r *Repository) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+summaryColumns+` FROM documents
		ORDER BY name, id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query documents")
	}
	defer rows.Close()

	var docs []domain.DocumentSummary
	for rows.Next() {
		var row summaryRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		s, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		docs = append(docs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating documents")
	}

	return docs, nil
}

// SaveDocument inserts or updates a document. The creation time of an
// existing row is kept; doc is updated with the stored timestamps.
func (r *Repository) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == uuid.Nil {
		return errors.New("document has no ID")
	}
	if doc.Digest == "" {
		doc.Digest = domain.ContentDigest(doc.Content)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	now := r.now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, name, root_tag, content, digest, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			root_tag = excluded.root_tag,
			content = excluded.content,
			digest = excluded.digest,
			updated_at = excluded.updated_at
	`, doc.ID.String(), stringToNull(doc.Name), doc.RootTag, doc.Content, doc.Digest, now, now)
	if err != nil {
		return errors.Wrap(err, "failed to upsert document")
	}

	var createdAt time.Time
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM documents WHERE id = ?`, doc.ID.String()).Scan(&createdAt)
	if err != nil {
		return errors.Wrap(err, "failed to read back document")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	doc.CreatedAt = createdAt
	doc.UpdatedAt = now
	return nil
}

// DeleteDocument removes a document and reports whether it existed
func (r *Repository) DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id.String())
	if err != nil {
		return false, errors.Wrap(err, "failed to delete document")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to delete document")
	}
	return n > 0, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
