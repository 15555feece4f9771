package element

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Document is the root node of an element tree. It owns the arena every
// attached element lives in, so ID lookups and link resolution span the
// whole document.
type Document struct {
	ID   uuid.UUID
	Name string

	arena *arena
	roots []uuid.UUID
}

// NewDocument creates an empty document
func NewDocument(name string) *Document {
	d := &Document{
		ID:    uuid.New(),
		Name:  name,
		arena: newArena(),
	}
	d.arena.doc = d
	return d
}

// AppendChild adds e as a top-level element, taking it from any previous owner
func (d *Document) AppendChild(e *Element) error {
	if e == nil {
		return errors.New("append nil element")
	}
	if e.arena == d.arena && e.parent == uuid.Nil && containsID(d.roots, e.id) {
		return nil
	}
	if err := adopt(d.arena, e); err != nil {
		return err
	}
	d.roots = append(d.roots, e.id)
	return nil
}

// RemoveChild detaches a top-level element
func (d *Document) RemoveChild(e *Element) bool {
	if e == nil || e.arena != d.arena || !containsID(d.roots, e.id) {
		return false
	}
	e.detach()
	e.release()
	return true
}

// Roots returns the top-level elements in order
func (d *Document) Roots() []*Element {
	out := make([]*Element, 0, len(d.roots))
	for _, id := range d.roots {
		out = append(out, d.arena.nodes[id])
	}
	return out
}

// Root returns the first top-level element, or nil
func (d *Document) Root() *Element {
	if len(d.roots) == 0 {
		return nil
	}
	return d.arena.nodes[d.roots[0]]
}

// ElementByID finds any attached element by ID
func (d *Document) ElementByID(id uuid.UUID) *Element {
	return d.arena.nodes[id]
}

// Len returns the number of attached elements
func (d *Document) Len() int {
	return len(d.arena.nodes)
}

// Walk visits every attached element in document order
func (d *Document) Walk(fn func(*Element) bool) {
	for _, root := range d.Roots() {
		for _, e := range root.subtree() {
			if !fn(e) {
				return
			}
		}
	}
}
