package orm

import (
	"dase/internal/convert"
	"dase/internal/element"
	"dase/internal/registry"
	"dase/internal/serialization"
)

// ReferenceSerializer writes references with their links inline, so a
// stored model keeps its relationships. Reading uses the generic decoding,
// which accepts XLinkData and XLinkedShape entries.
type ReferenceSerializer struct {
	reg *registry.Registry
}

// NewReferenceSerializer creates the serializer for TagReference
func NewReferenceSerializer(reg *registry.Registry) *ReferenceSerializer {
	return &ReferenceSerializer{reg: reg}
}

// Install registers the model serializers with engine
func Install(engine *serialization.Engine) {
	engine.RegisterSerializer(TagReference, NewReferenceSerializer(engine.Registry()))
}

// Serialize writes e as a Reference element
func (s *ReferenceSerializer) Serialize(e *element.Element, w *serialization.Writer) error {
	w.StartElement(TagReference)
	w.WriteIdentity(e)

	props := s.reg.Properties(TagReference)
	for _, p := range props {
		if !p.AsAttribute || !p.Persistable {
			continue
		}
		if v := e.Get(p); !p.IsDefault(v) {
			if err := w.WriteAttribute(p.Name, convert.ToString(p.Type(), v)); err != nil {
				return err
			}
		}
	}

	var section []*element.Property
	for _, p := range props {
		if p.AsAttribute || !p.Persistable || p.Group == element.GroupDesign || p.IsDefault(e.Get(p)) {
			continue
		}
		section = append(section, p)
	}

	if len(section) > 0 {
		w.StartElement(serialization.TagProperties)
		for _, p := range section {
			v := e.Get(p)
			if shape, ok := v.(element.LinkedShape); ok {
				w.WriteXLinkedShape(p, shape)
				w.Context().AddReference(e.ID(), p.ID, shape.ElementID)
			} else if link, ok := element.LinkOf(v); ok && p.Linked {
				w.WriteXLinkData(p, link)
				w.Context().AddReference(e.ID(), p.ID, link.ElementID)
			} else {
				w.WriteXData(e, p)
			}
		}
		w.EndElement()
	}

	w.EndElement()
	return nil
}

// Deserialize reads a Reference element
func (s *ReferenceSerializer) Deserialize(n *serialization.Node, r *serialization.Reader) (*element.Element, error) {
	return r.ReadDefault(n), nil
}
