package codec

import (
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"dase/internal/convert"
	"dase/internal/element"
	"dase/internal/registry"
)

// Document is the envelope of a JSON or YAML export
type Document struct {
	Version int    `json:"version" yaml:"version"`
	Root    Record `json:"root" yaml:"root"`
}

// Record is the format-neutral form of one element
type Record struct {
	Tag        string           `json:"tag" yaml:"tag"`
	ID         string           `json:"id" yaml:"id"`
	Name       string           `json:"name,omitempty" yaml:"name,omitempty"`
	Properties []PropertyRecord `json:"properties,omitempty" yaml:"properties,omitempty"`
	Children   []Record         `json:"children,omitempty" yaml:"children,omitempty"`
}

// PropertyRecord holds one non-default property value in wire form
type PropertyRecord struct {
	Name           string            `json:"name" yaml:"name"`
	ID             string            `json:"id" yaml:"id"`
	Type           string            `json:"type" yaml:"type"`
	Value          string            `json:"value,omitempty" yaml:"value,omitempty"`
	DefaultCulture string            `json:"default_culture,omitempty" yaml:"default_culture,omitempty"`
	Texts          map[string]string `json:"texts,omitempty" yaml:"texts,omitempty"`
	Link           *LinkRecord       `json:"link,omitempty" yaml:"link,omitempty"`
}

// LinkRecord is a linked property value. Shape is set for diagram edges.
type LinkRecord struct {
	ElementID    string       `json:"element_id" yaml:"element_id"`
	Text         string       `json:"text,omitempty" yaml:"text,omitempty"`
	DocumentID   string       `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	DocumentName string       `json:"document_name,omitempty" yaml:"document_name,omitempty"`
	ModuleID     string       `json:"module_id,omitempty" yaml:"module_id,omitempty"`
	ModuleName   string       `json:"module_name,omitempty" yaml:"module_name,omitempty"`
	DataEx       string       `json:"data_ex,omitempty" yaml:"data_ex,omitempty"`
	Shape        *ShapeRecord `json:"shape,omitempty" yaml:"shape,omitempty"`
}

// ShapeRecord is the routing geometry of a linked shape
type ShapeRecord struct {
	Side          int32   `json:"side" yaml:"side"`
	X             float64 `json:"x" yaml:"x"`
	Y             float64 `json:"y" yaml:"y"`
	DesiredDegree float64 `json:"desired_degree" yaml:"desired_degree"`
}

// Snapshot converts e and its persistable subtree into records. Unlike the
// XML writer it keeps linked values, so JSON and YAML round-trip links.
func Snapshot(reg *registry.Registry, e *element.Element) Record {
	tag := reg.GetTagName(e)
	rec := Record{Tag: tag, ID: e.ID().String(), Name: e.Name}

	for _, p := range reg.Properties(tag) {
		if !p.Persistable || p.Group == element.GroupDesign {
			continue
		}
		v := e.Get(p)
		if p.IsDefault(v) {
			continue
		}
		pr := PropertyRecord{Name: p.Name, ID: p.ID.String(), Type: p.Type()}
		switch x := v.(type) {
		case element.Localized:
			pr.DefaultCulture = x.DefaultCulture
			pr.Texts = x.Texts
		case element.LinkedShape:
			pr.Link = linkRecord(x.Link)
			pr.Link.Shape = &ShapeRecord{Side: x.Side, X: x.X, Y: x.Y, DesiredDegree: x.DesiredDegree}
		default:
			if link, ok := element.LinkOf(v); ok && p.Linked {
				pr.Link = linkRecord(link)
			} else {
				pr.Value = convert.ToString(p.Type(), v)
			}
		}
		rec.Properties = append(rec.Properties, pr)
	}

	for _, c := range e.Children() {
		if c.Transient {
			continue
		}
		rec.Children = append(rec.Children, Snapshot(reg, c))
	}
	return rec
}

// Restore rebuilds an element tree from records. Problems with individual
// values are collected; the most complete tree possible is returned with them.
func Restore(reg *registry.Registry, rec Record) (*element.Element, error) {
	var errs *multierror.Error
	e := restore(reg, rec, &errs)
	if e != nil {
		doc := element.NewDocument(e.Name)
		if err := doc.AppendChild(e); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return e, errs.ErrorOrNil()
}

func restore(reg *registry.Registry, rec Record, errs **multierror.Error) *element.Element {
	e := reg.CreateElement(rec.Tag)
	if e == nil {
		*errs = multierror.Append(*errs, errors.Errorf("cannot create element <%s>", rec.Tag))
		return nil
	}
	if rec.ID != "" {
		id, err := uuid.Parse(rec.ID)
		if err == nil {
			err = e.SetID(id)
		}
		if err != nil {
			*errs = multierror.Append(*errs, errors.Wrapf(err, "<%s> id %q", rec.Tag, rec.ID))
		}
	}
	e.Name = rec.Name

	for _, pr := range rec.Properties {
		p := lookupProperty(reg, rec.Tag, pr)
		if p == nil {
			*errs = multierror.Append(*errs, errors.Errorf("<%s> has no property %s", rec.Tag, pr.Name))
			continue
		}
		v, err := propertyValue(p, pr)
		if err == nil {
			err = e.Set(p, v)
		}
		if err != nil {
			*errs = multierror.Append(*errs, errors.Wrapf(err, "<%s> property %s", rec.Tag, pr.Name))
		}
	}

	for _, c := range rec.Children {
		child := restore(reg, c, errs)
		if child == nil {
			continue
		}
		if err := e.AppendChild(child); err != nil {
			*errs = multierror.Append(*errs, err)
		}
	}
	loaded(e, errs)
	return e
}

// loaded runs the post-construction hook; a panic becomes a collected error
func loaded(e *element.Element, errs **multierror.Error) {
	if e.OnLoaded == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			*errs = multierror.Append(*errs, errors.Errorf("<%s> %s: load hook panicked: %v", e.Tag, e.ID(), rec))
		}
	}()
	e.OnLoaded(e)
}

func lookupProperty(reg *registry.Registry, tag string, pr PropertyRecord) *element.Property {
	if id, err := uuid.Parse(pr.ID); err == nil {
		if p := reg.Property(tag, id); p != nil {
			return p
		}
	}
	return reg.PropertyByName(tag, pr.Name)
}

func propertyValue(p *element.Property, pr PropertyRecord) (any, error) {
	switch {
	case pr.Link != nil:
		link, err := pr.Link.link()
		if err != nil {
			return nil, err
		}
		if s := pr.Link.Shape; s != nil {
			return element.LinkedShape{Link: link, Side: s.Side, X: s.X, Y: s.Y, DesiredDegree: s.DesiredDegree}, nil
		}
		return link, nil
	case pr.Texts != nil:
		l := element.Localized{DefaultCulture: pr.DefaultCulture}
		for code, text := range pr.Texts {
			l = l.With(code, text)
		}
		return l, nil
	}
	typeName := pr.Type
	if typeName == "" {
		typeName = p.Type()
	}
	return convert.FromString(typeName, pr.Value), nil
}

func linkRecord(l element.Link) *LinkRecord {
	rec := &LinkRecord{
		ElementID:    l.ElementID.String(),
		Text:         l.Text,
		DocumentName: l.DocumentName,
		ModuleName:   l.ModuleName,
		DataEx:       l.DataEx,
	}
	if l.DocumentID != uuid.Nil {
		rec.DocumentID = l.DocumentID.String()
	}
	if l.ModuleID != uuid.Nil {
		rec.ModuleID = l.ModuleID.String()
	}
	return rec
}

func (r *LinkRecord) link() (element.Link, error) {
	l := element.Link{
		Text:         r.Text,
		DocumentName: r.DocumentName,
		ModuleName:   r.ModuleName,
		DataEx:       r.DataEx,
	}
	var err error
	if l.ElementID, err = parseOptionalID(r.ElementID); err != nil {
		return l, errors.Wrap(err, "element_id")
	}
	if l.DocumentID, err = parseOptionalID(r.DocumentID); err != nil {
		return l, errors.Wrap(err, "document_id")
	}
	if l.ModuleID, err = parseOptionalID(r.ModuleID); err != nil {
		return l, errors.Wrap(err, "module_id")
	}
	return l, nil
}

func parseOptionalID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}
