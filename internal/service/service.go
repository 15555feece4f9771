package service

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"dase/internal/codec"
	"dase/internal/domain"
	"dase/internal/element"
	"dase/internal/metadata"
	"dase/internal/repository"
	"dase/internal/serialization"
)

var (
	// ErrDocumentNotFound is returned when no stored document matches
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDigestMismatch is returned when stored content was changed outside the store
	ErrDigestMismatch = errors.New("document content does not match its digest")
)

// Validator evaluates metadata rules over a tree
type Validator interface {
	ValidateTree(root *element.Element) map[uuid.UUID][]metadata.Message
}

// Issue is one validation message located in a tree
type Issue struct {
	ElementID   uuid.UUID
	ElementName string
	Tag         string
	Message     metadata.Message
}

// Report is the outcome of validating a tree
type Report struct {
	Issues   []Issue
	Errors   int
	Warnings int
}

// Valid reports whether the tree has no error-level issues
func (r Report) Valid() bool {
	return r.Errors == 0
}

// DocumentService provides the document workflows
type DocumentService struct {
	engine    *serialization.Engine
	repo      repository.Repository
	codecs    codec.Set
	validator Validator
	eventBus  *EventBus
}

// NewDocumentService creates a new document service. validator and eventBus
// may be nil.
func NewDocumentService(engine *serialization.Engine, repo repository.Repository, codecs codec.Set, validator Validator, eventBus *EventBus) *DocumentService {
	return &DocumentService{
		engine:    engine,
		repo:      repo,
		codecs:    codecs,
		validator: validator,
		eventBus:  eventBus,
	}
}

// Save serializes root and stores it under name; an empty name uses the
// root's name. The document ID is the root element ID, so saving the same
// tree again replaces the stored copy.
func (s *DocumentService) Save(ctx context.Context, root *element.Element, name string) (*domain.Document, error) {
	if root == nil {
		return nil, errors.New("nothing to save")
	}

	res := s.engine.Serialize(root)
	if !res.Success {
		return nil, errors.Wrap(res.Err(), "serialize")
	}

	if name == "" {
		name = root.Name
	}
	doc := domain.NewDocument(root.ID(), name, s.engine.Registry().GetTagName(root), res.Data)
	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	logrus.Debugf("saved document %s (%s, %d bytes)", doc.ID, doc.Name, len(doc.Content))
	s.eventBus.Publish(Event{
		Type:       EventDocumentSaved,
		DocumentID: doc.ID,
		Name:       doc.Name,
	})
	return doc, nil
}

// Load reads and deserializes the document with id. Data-level errors are
// returned together with the partial tree.
func (s *DocumentService) Load(ctx context.Context, id uuid.UUID) (*element.Element, *domain.Document, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, errors.Wrapf(ErrDocumentNotFound, "%s", id)
	}
	return s.open(doc)
}

// LoadByName is Load for the newest document called name
func (s *DocumentService) LoadByName(ctx context.Context, name string) (*element.Element, *domain.Document, error) {
	doc, err := s.repo.FindDocument(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, errors.Wrapf(ErrDocumentNotFound, "%q", name)
	}
	return s.open(doc)
}

// Resolve loads a document by ID when ref parses as one, by name otherwise
func (s *DocumentService) Resolve(ctx context.Context, ref string) (*element.Element, *domain.Document, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.Load(ctx, id)
	}
	return s.LoadByName(ctx, ref)
}

func (s *DocumentService) open(doc *domain.Document) (*element.Element, *domain.Document, error) {
	if !doc.Verify() {
		return nil, doc, errors.Wrapf(ErrDigestMismatch, "%s", doc.ID)
	}

	res := s.engine.Deserialize(doc.Content)
	if res.Data == nil {
		err := res.Err()
		if err == nil {
			err = errors.New("no root element")
		}
		return nil, doc, errors.Wrapf(err, "deserialize %s", doc.ID)
	}

	s.eventBus.Publish(Event{
		Type:       EventDocumentLoaded,
		DocumentID: doc.ID,
		Name:       doc.Name,
	})
	return res.Data, doc, res.Err()
}

// List returns summaries of all stored documents
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	return s.repo.ListDocuments(ctx)
}

// Delete removes a stored document
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	existed, err := s.repo.DeleteDocument(ctx, id)
	if err != nil {
		return err
	}
	if !existed {
		return errors.Wrapf(ErrDocumentNotFound, "%s", id)
	}

	s.eventBus.Publish(Event{
		Type:       EventDocumentDeleted,
		DocumentID: id,
	})
	return nil
}

// Import parses r in format and stores the tree under name
func (s *DocumentService) Import(ctx context.Context, format string, r io.Reader, name string) (*domain.Document, error) {
	c, err := s.codecs.Lookup(format)
	if err != nil {
		return nil, err
	}
	root, err := c.Parse(r)
	if err != nil {
		return nil, errors.Wrapf(err, "import %s", format)
	}
	return s.Save(ctx, root, name)
}

// Export writes the stored document ref to w in format
func (s *DocumentService) Export(ctx context.Context, ref, format string, w io.Writer) error {
	c, err := s.codecs.Lookup(format)
	if err != nil {
		return err
	}
	root, _, err := s.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	return c.Export(root, w)
}

// Validate evaluates the metadata rules over root. Issues are ordered as
// the tree is walked.
func (s *DocumentService) Validate(root *element.Element) Report {
	var report Report
	if s.validator == nil || root == nil {
		return report
	}

	byID := s.validator.ValidateTree(root)
	var walk func(e *element.Element)
	walk = func(e *element.Element) {
		for _, m := range byID[e.ID()] {
			report.Issues = append(report.Issues, Issue{ElementID: e.ID(), ElementName: e.Name, Tag: e.Tag, Message: m})
			switch m.Severity {
			case metadata.SeverityError:
				report.Errors++
			case metadata.SeverityWarning:
				report.Warnings++
			}
		}
		for _, c := range e.Children() {
			walk(c)
		}
	}
	walk(root)
	return report
}

// Check loads the stored document ref and validates it
func (s *DocumentService) Check(ctx context.Context, ref string) (Report, error) {
	root, _, err := s.Resolve(ctx, ref)
	if root == nil {
		return Report{}, err
	}
	return s.Validate(root), err
}
