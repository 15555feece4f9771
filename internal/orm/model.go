// Package orm is the relational model domain: models made of tables,
// fields and references between tables. It registers its tags with an
// element registry and supplies the metadata rules designers evaluate per
// property.
package orm

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"dase/internal/element"
	"dase/internal/registry"
)

// Tags of the relational model
const (
	ClassModelElement = "ModelElement"
	TagModel          = "Model"
	TagTable          = "Table"
	TagField          = "Field"
	TagReference      = "Reference"
)

// Referential actions accepted by OnDelete
const (
	ActionNoAction = "NoAction"
	ActionCascade  = "Cascade"
	ActionSetNull  = "SetNull"
	ActionRestrict = "Restrict"
)

// ErrAbstract is returned when the shared base class is instantiated
var ErrAbstract = errors.New("abstract element class")

// idSpace derives property and class IDs. Documents key values by these
// IDs, so names must not be changed once released.
var idSpace = uuid.MustParse("6f0c9a52-3f1e-4c1d-9a57-5d2b8c0e7a11")

func stableID(name string) uuid.UUID {
	return uuid.NewSHA1(idSpace, []byte(name))
}

func property(owner, name string, def any, opts ...element.PropertyOption) *element.Property {
	opts = append(opts, element.WithID(stableID(owner+"."+name)))
	return element.NewProperty(name, def, opts...)
}

// Shared by every model element
var (
	Caption     = property(ClassModelElement, "Caption", nil, element.CultureSensitive())
	Description = property(ClassModelElement, "Description", "")
	DesignNotes = property(ClassModelElement, "DesignNotes", "", element.InGroup(element.GroupDesign))
)

// Model
var (
	Namespace    = property(TagModel, "Namespace", "", element.AsAttribute())
	ModelVersion = property(TagModel, "Version", int32(1), element.AsAttribute())
)

// Table
var (
	Schema = property(TagTable, "Schema", "", element.AsAttribute())
)

// Field
var (
	DataType        = property(TagField, "DataType", "String", element.AsAttribute())
	Length          = property(TagField, "Length", int32(0), element.AsAttribute())
	Scale           = property(TagField, "Scale", int32(0), element.AsAttribute())
	IsPrimaryKey    = property(TagField, "IsPrimaryKey", false, element.AsAttribute())
	IsAutoIncrement = property(TagField, "IsAutoIncrement", false, element.AsAttribute())
	IsRequired      = property(TagField, "IsRequired", false, element.AsAttribute())
	DefaultValue    = property(TagField, "DefaultValue", "")
)

// Reference
var (
	Source   = property(TagReference, "Source", nil, element.Linked())
	Target   = property(TagReference, "Target", nil, element.Linked())
	Routing  = property(TagReference, "Routing", nil, element.Linked())
	OnDelete = property(TagReference, "OnDelete", ActionNoAction, element.AsAttribute())
)

type registration struct {
	tag        string
	properties []*element.Property
	children   []string
}

var registrations = []registration{
	{tag: TagModel, properties: []*element.Property{Namespace, ModelVersion}, children: []string{TagTable, TagReference}},
	{tag: TagTable, properties: []*element.Property{Schema}, children: []string{TagField}},
	{tag: TagField, properties: []*element.Property{DataType, Length, Scale, IsPrimaryKey, IsAutoIncrement, IsRequired, DefaultValue}},
	{tag: TagReference, properties: []*element.Property{Source, Target, Routing, OnDelete}},
}

// Register adds the relational model tags to reg
func Register(reg *registry.Registry) error {
	_, err := reg.Register(ClassModelElement, func() (*element.Element, error) {
		return nil, ErrAbstract
	}, registry.WithClassID(stableID("class."+ClassModelElement)))
	if err != nil {
		return errors.Wrap(err, "register base class")
	}
	for _, p := range []*element.Property{Caption, Description, DesignNotes} {
		if err := reg.RegisterProperty(ClassModelElement, p); err != nil {
			return errors.Wrapf(err, "register %s", p.Name)
		}
	}

	for _, r := range registrations {
		tag := r.tag
		_, err := reg.Register(tag, func() (*element.Element, error) {
			return element.New(tag), nil
		}, registry.WithClassID(stableID("class."+tag)), registry.WithBaseClass(ClassModelElement))
		if err != nil {
			return errors.Wrapf(err, "register %s", tag)
		}
		for _, p := range r.properties {
			if err := reg.RegisterProperty(tag, p); err != nil {
				return errors.Wrapf(err, "register %s.%s", tag, p.Name)
			}
		}
	}

	for _, r := range registrations {
		for _, child := range r.children {
			if err := reg.RegisterChildTag(r.tag, child); err != nil {
				return errors.Wrapf(err, "register %s in %s", child, r.tag)
			}
		}
	}
	return nil
}

// NewRegistry returns a registry holding only the relational model
func NewRegistry() (*registry.Registry, error) {
	reg := registry.New()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
