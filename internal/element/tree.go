package element

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// arena owns a set of elements keyed by ID
type arena struct {
	nodes map[uuid.UUID]*Element
	doc   *Document
}

func newArena() *arena {
	return &arena{nodes: make(map[uuid.UUID]*Element)}
}

func (a *arena) insert(e *Element) {
	a.nodes[e.id] = e
	e.arena = a
}

// subtree returns e and its descendants in pre-order
func (e *Element) subtree() []*Element {
	out := []*Element{e}
	for _, id := range e.children {
		out = append(out, e.arena.nodes[id].subtree()...)
	}
	return out
}

// adopt moves child (detaching it first) into target so that it can be
// linked under a new owner. Nothing changes when an error is returned.
func adopt(target *arena, child *Element) error {
	nodes := child.subtree()
	if child.arena != target {
		for _, n := range nodes {
			if _, taken := target.nodes[n.id]; taken {
				return errors.Wrapf(ErrDuplicateID, "adopt %s", n.id)
			}
		}
	}

	child.detach()

	if child.arena != target {
		old := child.arena
		for _, n := range nodes {
			delete(old.nodes, n.id)
			target.insert(n)
		}
	}
	return nil
}

// detach unlinks e from its parent or document without changing arenas
func (e *Element) detach() {
	if p := e.Parent(); p != nil {
		p.children = removeID(p.children, e.id)
	} else if e.arena.doc != nil {
		e.arena.doc.roots = removeID(e.arena.doc.roots, e.id)
	}
	e.parent = uuid.Nil
}

// release moves e's subtree into a fresh private arena
func (e *Element) release() {
	fresh := newArena()
	old := e.arena
	for _, n := range e.subtree() {
		delete(old.nodes, n.id)
		fresh.insert(n)
	}
}

// AppendChild makes child the last child of e, taking it from any previous owner
func (e *Element) AppendChild(child *Element) error {
	if child == nil {
		return errors.New("append nil child")
	}
	if child.parent == e.id && child.arena == e.arena {
		return nil
	}
	for cur := e; cur != nil; cur = cur.Parent() {
		if cur == child {
			return errors.Wrapf(ErrCycle, "append %s to %s", child.id, e.id)
		}
	}

	if err := adopt(e.arena, child); err != nil {
		return err
	}
	child.parent = e.id
	e.children = append(e.children, child.id)
	return nil
}

// RemoveChild detaches child from e. It reports false when child is not a child of e.
func (e *Element) RemoveChild(child *Element) bool {
	if child == nil || child.arena != e.arena || child.parent != e.id {
		return false
	}
	child.detach()
	child.release()
	return true
}

// Parent returns the owning element, or nil for top-level and detached elements
func (e *Element) Parent() *Element {
	if e.parent == uuid.Nil {
		return nil
	}
	return e.arena.nodes[e.parent]
}

// Children returns the owned children in order
func (e *Element) Children() []*Element {
	out := make([]*Element, 0, len(e.children))
	for _, id := range e.children {
		out = append(out, e.arena.nodes[id])
	}
	return out
}

// ChildCount returns the number of direct children
func (e *Element) ChildCount() int {
	return len(e.children)
}

// FindChild returns the first child matching pred; deep searches descendants in pre-order
func (e *Element) FindChild(pred Predicate, deep bool) *Element {
	for _, c := range e.Children() {
		if pred == nil || pred(c) {
			return c
		}
		if deep {
			if found := c.FindChild(pred, true); found != nil {
				return found
			}
		}
	}
	return nil
}

// FindChildren returns every child matching pred; deep searches descendants in pre-order
func (e *Element) FindChildren(pred Predicate, deep bool) []*Element {
	var out []*Element
	for _, c := range e.Children() {
		if pred == nil || pred(c) {
			out = append(out, c)
		}
		if deep {
			out = append(out, c.FindChildren(pred, true)...)
		}
	}
	return out
}

// HasChild reports whether any child matches pred
func (e *Element) HasChild(pred Predicate, deep bool) bool {
	return e.FindChild(pred, deep) != nil
}

// Tree walks up the parent chain and returns the document holding it, or nil
func (e *Element) Tree() *Document {
	top := e
	for p := e.Parent(); p != nil; p = p.Parent() {
		top = p
	}
	doc := top.arena.doc
	if doc == nil || !containsID(doc.roots, top.id) {
		return nil
	}
	return doc
}

// Owner returns the nearest ancestor matching pred
func (e *Element) Owner(pred Predicate) *Element {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if pred == nil || pred(p) {
			return p
		}
	}
	return nil
}

// HasOwner reports whether any ancestor matches pred
func (e *Element) HasOwner(pred Predicate) bool {
	return e.Owner(pred) != nil
}

// ByTag matches elements with the given tag
func ByTag(tag string) Predicate {
	return func(e *Element) bool { return e.Tag == tag }
}

// ByName matches elements with the given name
func ByName(name string) Predicate {
	return func(e *Element) bool { return e.Name == name }
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i := range ids {
		if ids[i] == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
