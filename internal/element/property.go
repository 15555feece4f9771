package element

import (
	"github.com/google/uuid"

	"dase/internal/convert"
)

// GroupDesign marks designer-only properties that are never written to the
// Properties section
const GroupDesign = "Design"

// Property describes a typed, named slot on an element
type Property struct {
	ID       uuid.UUID
	Name     string
	Default  any
	TypeName string // explicit wire type; inferred from Default when empty
	Group    string

	AsAttribute      bool
	Persistable      bool
	Linked           bool
	CultureSensitive bool
}

// PropertyOption customizes a property descriptor
type PropertyOption func(*Property)

// NewProperty creates a persistable property descriptor with a fresh ID
func NewProperty(name string, def any, opts ...PropertyOption) *Property {
	p := &Property{
		ID:          uuid.New(),
		Name:        name,
		Default:     def,
		Persistable: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithID pins the property ID. Documents key values by this ID, so it must
// stay stable across releases.
func WithID(id uuid.UUID) PropertyOption {
	return func(p *Property) { p.ID = id }
}

// WithTypeName sets the wire type explicitly
func WithTypeName(typeName string) PropertyOption {
	return func(p *Property) { p.TypeName = typeName }
}

// AsAttribute places the value on the element tag instead of the Properties section
func AsAttribute() PropertyOption {
	return func(p *Property) { p.AsAttribute = true }
}

// Transient excludes the property from persistence
func Transient() PropertyOption {
	return func(p *Property) { p.Persistable = false }
}

// Linked marks the property as a reference to another element
func Linked() PropertyOption {
	return func(p *Property) { p.Linked = true }
}

// CultureSensitive stores one text per culture
func CultureSensitive() PropertyOption {
	return func(p *Property) { p.CultureSensitive = true }
}

// InGroup assigns the property to a display group
func InGroup(group string) PropertyOption {
	return func(p *Property) { p.Group = group }
}

// Type returns the wire type name of the property
func (p *Property) Type() string {
	switch {
	case p.TypeName != "":
		return p.TypeName
	case p.CultureSensitive:
		return convert.TypeString
	case p.Linked:
		return convert.TypeGuid
	}
	return convert.InferTypeName(p.Default)
}

// IsDefault reports whether v is the default value of the property
func (p *Property) IsDefault(v any) bool {
	switch {
	case p.Linked:
		link, ok := LinkOf(v)
		return !ok || link.ElementID == uuid.Nil
	case p.CultureSensitive:
		l, ok := v.(Localized)
		return !ok || l.IsEmpty()
	}
	return convert.IsDefaultValue(p.Type(), v, p.Default)
}
