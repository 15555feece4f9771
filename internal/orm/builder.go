package orm

import (
	"github.com/pkg/errors"

	"dase/internal/element"
	"dase/internal/registry"
)

// Builder creates model elements against one registry
type Builder struct {
	reg *registry.Registry
}

// NewBuilder creates a builder over reg, which must hold the model tags
func NewBuilder(reg *registry.Registry) *Builder {
	return &Builder{reg: reg}
}

func (b *Builder) create(tag, name string, parent *element.Element) (*element.Element, error) {
	e := b.reg.CreateElement(tag)
	if e == nil {
		return nil, errors.Errorf("cannot create %s", tag)
	}
	e.Name = name
	if parent != nil {
		if err := parent.AppendChild(e); err != nil {
			return nil, errors.Wrapf(err, "add %s %s", tag, name)
		}
	}
	return e, nil
}

// Model creates a model inside a new document
func (b *Builder) Model(name string) (*element.Element, error) {
	m, err := b.create(TagModel, name, nil)
	if err != nil {
		return nil, err
	}
	if err := element.NewDocument(name).AppendChild(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Table adds a table to model
func (b *Builder) Table(model *element.Element, name string) (*element.Element, error) {
	return b.create(TagTable, name, model)
}

// Field adds a field of dataType to table
func (b *Builder) Field(table *element.Element, name, dataType string) (*element.Element, error) {
	f, err := b.create(TagField, name, table)
	if err != nil {
		return nil, err
	}
	return f, f.Set(DataType, dataType)
}

// Reference adds a reference from source to target to model
func (b *Builder) Reference(model *element.Element, name string, source, target *element.Element) (*element.Element, error) {
	r, err := b.create(TagReference, name, model)
	if err != nil {
		return nil, err
	}
	if err := r.SetLink(Source, source); err != nil {
		return nil, err
	}
	return r, r.SetLink(Target, target)
}

// Tables returns the tables of model in order
func Tables(model *element.Element) []*element.Element {
	return model.FindChildren(element.ByTag(TagTable), false)
}

// Fields returns the fields of table in order
func Fields(table *element.Element) []*element.Element {
	return table.FindChildren(element.ByTag(TagField), false)
}

// PrimaryKey returns the primary key fields of table
func PrimaryKey(table *element.Element) []*element.Element {
	var out []*element.Element
	for _, f := range Fields(table) {
		if pk, _ := f.Get(IsPrimaryKey).(bool); pk {
			out = append(out, f)
		}
	}
	return out
}
