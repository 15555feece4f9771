package serialization

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"dase/internal/element"
)

// Phase is the stage of a serialization operation
type Phase int

const (
	PhaseNone Phase = iota
	PhaseBeforeSerialize
	PhaseBeforeDeserialize
	PhaseAfterSerialize
	PhaseAfterDeserialize
	PhaseResolvingReferences
	PhaseCompleted
)

var phaseNames = map[Phase]string{
	PhaseNone:                "None",
	PhaseBeforeSerialize:     "BeforeSerialize",
	PhaseBeforeDeserialize:   "BeforeDeserialize",
	PhaseAfterSerialize:      "AfterSerialize",
	PhaseAfterDeserialize:    "AfterDeserialize",
	PhaseResolvingReferences: "ResolvingReferences",
	PhaseCompleted:           "Completed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// allowed phase transitions; reference resolution only happens on deserialize
var transitions = map[Phase][]Phase{
	PhaseNone:                {PhaseBeforeSerialize, PhaseBeforeDeserialize},
	PhaseBeforeSerialize:     {PhaseAfterSerialize},
	PhaseBeforeDeserialize:   {PhaseAfterDeserialize},
	PhaseAfterSerialize:      {PhaseCompleted},
	PhaseAfterDeserialize:    {PhaseResolvingReferences},
	PhaseResolvingReferences: {PhaseCompleted},
}

// ErrInvalidPhase is returned for out-of-order phase changes
var ErrInvalidPhase = errors.New("invalid phase transition")

// PendingReference is a link recorded during a read or write, waiting for
// both endpoints to be indexed
type PendingReference struct {
	SourceID   uuid.UUID
	PropertyID uuid.UUID
	TargetID   uuid.UUID
	Resolved   bool
}

// Context carries the state of one serialize or deserialize operation
type Context struct {
	Options Options
	// Depth is the current nesting level of the writer
	Depth int

	phase    Phase
	elements map[uuid.UUID]*element.Element
	pending  []*PendingReference
	resolved []*PendingReference
	errors   []*Error
}

// NewContext creates a context in PhaseNone
func NewContext(opts Options) *Context {
	return &Context{
		Options:  opts,
		elements: make(map[uuid.UUID]*element.Element),
	}
}

// Phase returns the current phase
func (c *Context) Phase() Phase {
	return c.phase
}

// SetPhase advances the phase machine
func (c *Context) SetPhase(p Phase) error {
	for _, next := range transitions[c.phase] {
		if next == p {
			c.phase = p
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidPhase, "%s -> %s", c.phase, p)
}

// RegisterElement indexes e by ID. Later registrations with the same ID win.
func (c *Context) RegisterElement(e *element.Element) {
	if e == nil {
		return
	}
	c.elements[e.ID()] = e
}

// Element looks up an indexed element
func (c *Context) Element(id uuid.UUID) *element.Element {
	return c.elements[id]
}

// ElementCount returns the number of indexed elements
func (c *Context) ElementCount() int {
	return len(c.elements)
}

// AddReference records a pending link from source's property to target
func (c *Context) AddReference(sourceID, propertyID, targetID uuid.UUID) *PendingReference {
	if targetID == uuid.Nil {
		return nil
	}
	ref := &PendingReference{SourceID: sourceID, PropertyID: propertyID, TargetID: targetID}
	c.pending = append(c.pending, ref)
	return ref
}

// ResolveReferences marks every pending reference whose endpoints are both
// indexed as resolved and drops it from the pending list. Unresolved
// references stay pending. It returns the number resolved by this pass.
func (c *Context) ResolveReferences() int {
	remaining := c.pending[:0]
	count := 0
	for _, ref := range c.pending {
		if c.elements[ref.SourceID] != nil && c.elements[ref.TargetID] != nil {
			ref.Resolved = true
			c.resolved = append(c.resolved, ref)
			count++
			continue
		}
		remaining = append(remaining, ref)
	}
	for i := len(remaining); i < len(c.pending); i++ {
		c.pending[i] = nil
	}
	c.pending = remaining
	return count
}

// Pending returns the unresolved references
func (c *Context) Pending() []*PendingReference {
	return append([]*PendingReference(nil), c.pending...)
}

// Resolved returns the references resolved so far
func (c *Context) Resolved() []*PendingReference {
	return append([]*PendingReference(nil), c.resolved...)
}

// AddError records a non-fatal error in the current phase
func (c *Context) AddError(err *Error) {
	if err == nil {
		return
	}
	err.Phase = c.phase
	c.errors = append(c.errors, err)
}

// elementError records an error attributed to e
func (c *Context) elementError(kind ErrorKind, e *element.Element, property, message string, inner error) {
	err := &Error{Kind: kind, PropertyName: property, Message: message, Inner: inner}
	if e != nil {
		err.ElementID = e.ID()
		err.ElementName = e.Name
		if err.ElementName == "" {
			err.ElementName = e.Tag
		}
	}
	c.AddError(err)
}

// Errors returns the recorded errors
func (c *Context) Errors() []*Error {
	return append([]*Error(nil), c.errors...)
}

// HasErrors reports whether any error was recorded
func (c *Context) HasErrors() bool {
	return len(c.errors) > 0
}

// Err aggregates the recorded errors, or nil
func (c *Context) Err() error {
	return joinErrors(c.errors)
}

func joinErrors(errs []*Error) error {
	var result *multierror.Error
	for _, e := range errs {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}
