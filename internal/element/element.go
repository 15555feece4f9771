// Package element defines the document object model shared by every designer.
//
// # Ownership
//
// Elements live in an arena keyed by their ID. A parent holds the ordered IDs
// of its children and a child holds the ID of its parent, so the
// parent/children relation is a pair of indexes kept in sync by AppendChild
// and RemoveChild. A freshly created element owns a private arena; attaching
// it somewhere moves its whole subtree into the new owner's arena, which
// guarantees single ownership.
//
// A Document is the root node kind: it owns an arena and the list of
// top-level elements. Walking parents upward ends at the document.
//
// # Properties
//
// Property values are stored by property ID. Unset properties read as the
// descriptor default. Linked properties hold a Link; the target element is
// looked up lazily through the arena, so a dangling link reads as nil.
package element

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"dase/internal/convert"
)

var (
	// ErrCycle is returned when an element would become its own ancestor
	ErrCycle = errors.New("element cannot own itself or an ancestor")
	// ErrDuplicateID is returned when an arena already holds an element with the same ID
	ErrDuplicateID = errors.New("element ID already present in tree")
	// ErrTypeMismatch is returned when a value does not fit a property
	ErrTypeMismatch = errors.New("value type does not match property")
)

// Predicate selects elements during traversal
type Predicate func(*Element) bool

// Element is a node of a designer document
type Element struct {
	Name      string
	Tag       string    // registry tag, stamped at creation
	Class     string    // class name of the constructing variant
	ClassID   uuid.UUID // class identity used for reverse tag lookup
	Transient bool      // skipped by the writer

	// OnLoaded runs after the reader has fully populated the element
	OnLoaded func(*Element)

	id       uuid.UUID
	arena    *arena
	parent   uuid.UUID
	children []uuid.UUID
	values   map[uuid.UUID]any
}

// New creates a detached element with a fresh ID
func New(class string) *Element {
	e := &Element{
		Class:  class,
		id:     uuid.New(),
		values: make(map[uuid.UUID]any),
	}
	newArena().insert(e)
	return e
}

// ID returns the element identity
func (e *Element) ID() uuid.UUID {
	return e.id
}

// SetID changes the element identity, re-keying every index that refers to it
func (e *Element) SetID(id uuid.UUID) error {
	if id == e.id {
		return nil
	}
	if _, taken := e.arena.nodes[id]; taken {
		return errors.Wrapf(ErrDuplicateID, "set id %s", id)
	}

	old := e.id
	delete(e.arena.nodes, old)
	e.id = id
	e.arena.nodes[id] = e

	if p := e.Parent(); p != nil {
		replaceID(p.children, old, id)
	} else if e.arena.doc != nil {
		replaceID(e.arena.doc.roots, old, id)
	}
	for _, childID := range e.children {
		e.arena.nodes[childID].parent = id
	}
	return nil
}

// Get returns the value of p, or its default when unset
func (e *Element) Get(p *Property) any {
	if v, ok := e.values[p.ID]; ok {
		return v
	}
	return p.Default
}

// Value returns the raw stored value for a property ID
func (e *Element) Value(id uuid.UUID) (any, bool) {
	v, ok := e.values[id]
	return v, ok
}

// IsSet reports whether p holds an explicit value
func (e *Element) IsSet(p *Property) bool {
	_, ok := e.values[p.ID]
	return ok
}

// Set stores v for p. Nil resets the property to its default.
func (e *Element) Set(p *Property, v any) error {
	if v == nil {
		e.Reset(p)
		return nil
	}

	switch {
	case p.Linked:
		if _, ok := LinkOf(v); !ok {
			return errors.Wrapf(ErrTypeMismatch, "property %s expects a link, got %T", p.Name, v)
		}
	case p.CultureSensitive:
		if _, ok := v.(Localized); !ok {
			return errors.Wrapf(ErrTypeMismatch, "property %s expects localized text, got %T", p.Name, v)
		}
	default:
		coerced, ok := convert.Coerce(v, p.Default)
		if !ok {
			return errors.Wrapf(ErrTypeMismatch, "property %s expects %T, got %T", p.Name, p.Default, v)
		}
		v = coerced
	}

	e.values[p.ID] = v
	return nil
}

// Reset clears the explicit value of p
func (e *Element) Reset(p *Property) {
	delete(e.values, p.ID)
}

// Text returns the text of a culture-sensitive property for culture
func (e *Element) Text(p *Property, culture string) string {
	switch v := e.Get(p).(type) {
	case Localized:
		return v.Text(culture)
	case string:
		return v
	}
	return ""
}

// SetText stores the text of a culture-sensitive property for one culture
func (e *Element) SetText(p *Property, culture, text string) error {
	l, _ := e.Get(p).(Localized)
	return e.Set(p, l.With(culture, text))
}

// SetLink points a linked property at target
func (e *Element) SetLink(p *Property, target *Element) error {
	if target == nil {
		e.Reset(p)
		return nil
	}
	return e.Set(p, LinkTo(target))
}

// LinkedElement resolves a linked property against the owning tree. A
// dangling or empty link yields nil.
func (e *Element) LinkedElement(p *Property) *Element {
	link, ok := LinkOf(e.Get(p))
	if !ok || link.ElementID == uuid.Nil {
		return nil
	}
	return e.arena.nodes[link.ElementID]
}

func replaceID(ids []uuid.UUID, old, id uuid.UUID) {
	for i := range ids {
		if ids[i] == old {
			ids[i] = id
			return
		}
	}
}
