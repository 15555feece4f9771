// Package registry maps wire tags to element constructors and their declared
// properties.
//
// Domains register their element variants once at startup:
//
//	reg := registry.New()
//	reg.MustRegister("Table", newTable, registry.WithClassName("TableElement"))
//	reg.MustRegisterProperty("Table", tableCaption)
//	reg.RegisterChildTag("Model", "Table")
//
// The reader then builds elements from tags it has never seen statically.
// Lookups miss to nil or empty results; only misuse during registration
// produces errors.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"dase/internal/element"
)

var (
	// ErrInvalidRegistration is returned for malformed registration calls
	ErrInvalidRegistration = errors.New("invalid registration")
	// ErrAlreadyRegistered is returned when a tag or property is registered twice
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrUnknownTag is returned when registering against an unregistered tag
	ErrUnknownTag = errors.New("unknown tag")
)

// Constructor builds a new, detached element for a tag
type Constructor func() (*element.Element, error)

// Metadata is the registration record of one tag
type Metadata struct {
	Tag         string
	ClassName   string
	ClassID     uuid.UUID
	BaseClass   string
	Constructor Constructor
	Order       int

	properties []*element.Property
	byID       map[uuid.UUID]*element.Property
	childTags  []string
}

// Option customizes a registration
type Option func(*Metadata)

// WithClassID pins the class identity instead of generating one
func WithClassID(id uuid.UUID) Option {
	return func(m *Metadata) { m.ClassID = id }
}

// WithClassName sets the class name; defaults to the tag
func WithClassName(name string) Option {
	return func(m *Metadata) { m.ClassName = name }
}

// WithBaseClass declares the class whose properties this tag inherits
func WithBaseClass(name string) Option {
	return func(m *Metadata) { m.BaseClass = name }
}

// Registry is the tag table for one process or test fixture
type Registry struct {
	mu        sync.RWMutex
	byTag     map[string]*Metadata
	byClassID map[uuid.UUID]*Metadata
	byClass   map[string]*Metadata
	order     int
}

// New creates an empty registry
func New() *Registry {
	r := &Registry{}
	r.Clear()
	return r
}

// Clear drops every registration
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTag = make(map[string]*Metadata)
	r.byClassID = make(map[uuid.UUID]*Metadata)
	r.byClass = make(map[string]*Metadata)
	r.order = 0
}

// Register creates the metadata record for tag
func (r *Registry) Register(tag string, ctor Constructor, opts ...Option) (*Metadata, error) {
	if tag == "" {
		return nil, errors.Wrap(ErrInvalidRegistration, "empty tag")
	}
	if ctor == nil {
		return nil, errors.Wrapf(ErrInvalidRegistration, "tag %s has no constructor", tag)
	}

	m := &Metadata{
		Tag:         tag,
		ClassName:   tag,
		Constructor: ctor,
		byID:        make(map[uuid.UUID]*element.Property),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ClassID == uuid.Nil {
		m.ClassID = uuid.New()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byTag[tag]; exists {
		return nil, errors.Wrapf(ErrAlreadyRegistered, "tag %s", tag)
	}
	if _, exists := r.byClassID[m.ClassID]; exists {
		return nil, errors.Wrapf(ErrAlreadyRegistered, "class id %s", m.ClassID)
	}

	r.order++
	m.Order = r.order
	r.byTag[tag] = m
	r.byClassID[m.ClassID] = m
	r.byClass[m.ClassName] = m

	logrus.Debugf("registered element tag %s (class=%s, id=%s)", tag, m.ClassName, m.ClassID)
	return m, nil
}

// MustRegister is Register for startup code; it panics on misuse
func (r *Registry) MustRegister(tag string, ctor Constructor, opts ...Option) *Metadata {
	m, err := r.Register(tag, ctor, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// RegisterProperty declares prop on tag. Placement follows prop.AsAttribute.
func (r *Registry) RegisterProperty(tag string, prop *element.Property) error {
	if prop == nil {
		return errors.Wrapf(ErrInvalidRegistration, "nil property on %s", tag)
	}
	if prop.AsAttribute && (prop.Linked || prop.CultureSensitive) {
		return errors.Wrapf(ErrInvalidRegistration, "property %s cannot be an attribute", prop.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byTag[tag]
	if !ok {
		return errors.Wrapf(ErrUnknownTag, "register property %s", prop.Name)
	}
	if _, exists := m.byID[prop.ID]; exists {
		return errors.Wrapf(ErrAlreadyRegistered, "property %s on %s", prop.Name, tag)
	}
	m.byID[prop.ID] = prop
	m.properties = append(m.properties, prop)
	return nil
}

// MustRegisterProperty panics when RegisterProperty fails
func (r *Registry) MustRegisterProperty(tag string, props ...*element.Property) {
	for _, p := range props {
		if err := r.RegisterProperty(tag, p); err != nil {
			panic(err)
		}
	}
}

// RegisterChildTag records that child may nest under parent. It is advisory only.
func (r *Registry) RegisterChildTag(parent, child string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byTag[parent]
	if !ok {
		return errors.Wrapf(ErrUnknownTag, "register child %s", child)
	}
	for _, c := range m.childTags {
		if c == child {
			return nil
		}
	}
	m.childTags = append(m.childTags, child)
	return nil
}

// CreateElement builds a new element for tag. It returns nil when the tag is
// unknown or the constructor fails.
func (r *Registry) CreateElement(tag string) (e *element.Element) {
	m := r.Metadata(tag)
	if m == nil {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			logrus.Debugf("constructor for %s panicked: %v", tag, rec)
			e = nil
		}
	}()

	e, err := m.Constructor()
	if err != nil || e == nil {
		logrus.Debugf("constructor for %s failed: %v", tag, err)
		return nil
	}
	e.Tag = tag
	e.ClassID = m.ClassID
	if e.Class == "" {
		e.Class = m.ClassName
	}
	return e
}

// GetTagName resolves the tag of an element from its class identity, falling
// back to its class name
func (r *Registry) GetTagName(e *element.Element) string {
	if e == nil {
		return ""
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.byClassID[e.ClassID]; ok {
		return m.Tag
	}
	if m, ok := r.byClass[e.Class]; ok {
		return m.Tag
	}
	if e.Class != "" {
		return e.Class
	}
	return e.Tag
}

// Metadata returns the record for tag, or nil
func (r *Registry) Metadata(tag string) *Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byTag[tag]
}

// IsRegistered reports whether tag is known
func (r *Registry) IsRegistered(tag string) bool {
	return r.Metadata(tag) != nil
}

// Tags lists registered tags in registration order
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metas := make([]*Metadata, 0, len(r.byTag))
	for _, m := range r.byTag {
		metas = append(metas, m)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Order < metas[j].Order })

	out := make([]string, len(metas))
	for i, m := range metas {
		out[i] = m.Tag
	}
	return out
}

// Properties returns the properties of tag including those inherited from
// its base classes, base first
func (r *Registry) Properties(tag string) []*element.Property {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []*Metadata
	seen := make(map[string]bool)
	for m := r.byTag[tag]; m != nil && !seen[m.Tag]; m = r.byClass[m.BaseClass] {
		seen[m.Tag] = true
		chain = append(chain, m)
		if m.BaseClass == "" {
			break
		}
	}

	var out []*element.Property
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].properties...)
	}
	return out
}

// AttributeProperties returns the attribute-placed subset of Properties
func (r *Registry) AttributeProperties(tag string) []*element.Property {
	var out []*element.Property
	for _, p := range r.Properties(tag) {
		if p.AsAttribute {
			out = append(out, p)
		}
	}
	return out
}

// Property finds a property of tag by ID
func (r *Registry) Property(tag string, id uuid.UUID) *element.Property {
	for _, p := range r.Properties(tag) {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PropertyByName finds a property of tag by name
func (r *Registry) PropertyByName(tag, name string) *element.Property {
	for _, p := range r.Properties(tag) {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ChildTags returns the advisory child tags of tag
func (r *Registry) ChildTags(tag string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byTag[tag]
	if !ok {
		return nil
	}
	return append([]string(nil), m.childTags...)
}

func (m *Metadata) String() string {
	return fmt.Sprintf("%s(%s)", m.Tag, m.ClassName)
}
