package serialization

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"dase/internal/convert"
	"dase/internal/element"
	"dase/internal/registry"
)

// Reserved tags of the property section
const (
	TagProperties   = "Properties"
	TagXValues      = "XValues"
	TagXData        = "XData"
	TagXLinkData    = "XLinkData"
	TagXLinkedShape = "XLinkedShape"
	TagXLanguage    = "XLanguage"
)

// IsReservedTag reports whether tag belongs to the property section rather
// than naming an element
func IsReservedTag(tag string) bool {
	switch tag {
	case TagProperties, TagXValues, TagXData, TagXLinkData, TagXLinkedShape, TagXLanguage:
		return true
	}
	return false
}

// XLanguage is one culture variant of a value
type XLanguage struct {
	Code      string
	IsDefault bool
	Text      string
}

// XData is a decoded <XData> entry
type XData struct {
	Name      string
	ID        uuid.UUID
	Type      string
	Text      string
	Languages []XLanguage
}

// Value converts the entry text with its declared type
func (x XData) Value() any {
	return convert.FromString(x.Type, x.Text)
}

// Localized collects the culture variants; an entry without variants becomes
// a single text in defaultCulture
func (x XData) Localized(defaultCulture string) element.Localized {
	if len(x.Languages) == 0 {
		if x.Text == "" {
			return element.Localized{}
		}
		return element.NewLocalized(defaultCulture, x.Text)
	}
	var l element.Localized
	for _, lang := range x.Languages {
		if lang.IsDefault {
			l.DefaultCulture = lang.Code
		}
		l = l.With(lang.Code, lang.Text)
	}
	return l
}

// XLinkData is a decoded <XLinkData> entry
type XLinkData struct {
	Name string
	ID   uuid.UUID
	Type string
	Link element.Link
}

// XLinkedShape is a decoded <XLinkedShape> entry
type XLinkedShape struct {
	Name  string
	ID    uuid.UUID
	Type  string
	Shape element.LinkedShape
}

// Reader turns parsed nodes into elements
type Reader struct {
	registry    *registry.Registry
	ctx         *Context
	serializers map[string]CustomSerializer
}

// NewReader creates a reader over reg that records into ctx
func NewReader(reg *registry.Registry, ctx *Context, serializers map[string]CustomSerializer) *Reader {
	return &Reader{registry: reg, ctx: ctx, serializers: serializers}
}

// Context returns the operation context
func (r *Reader) Context() *Context {
	return r.ctx
}

// ReadElement builds the element for n and its subtree. It returns nil for
// reserved tags, unknown tags and failed constructions.
func (r *Reader) ReadElement(n *Node) *element.Element {
	if n == nil || IsReservedTag(n.Tag) {
		return nil
	}
	if s, ok := r.serializers[n.Tag]; ok {
		e, err := s.Deserialize(n, r)
		if err != nil {
			r.ctx.AddError(&Error{
				Kind:        KindConversion,
				ElementName: n.AttrOr("Name", n.Tag),
				Message:     fmt.Sprintf("custom deserializer for %s failed", n.Tag),
				Inner:       err,
			})
		}
		r.ctx.RegisterElement(e)
		return e
	}
	return r.ReadDefault(n)
}

// ReadDefault is ReadElement without the custom serializer lookup for n
// itself. Custom deserializers call it to reuse the generic decoding.
func (r *Reader) ReadDefault(n *Node) *element.Element {
	if !r.registry.IsRegistered(n.Tag) {
		if !r.ctx.Options.IgnoreUnknownElements {
			r.ctx.AddError(&Error{
				Kind:        KindUnknownElement,
				ElementName: n.AttrOr("Name", n.Tag),
				Message:     fmt.Sprintf("unknown element <%s>", n.Tag),
			})
		}
		return nil
	}

	e := r.registry.CreateElement(n.Tag)
	if e == nil {
		r.ctx.AddError(&Error{
			Kind:        KindUnknownElement,
			ElementName: n.AttrOr("Name", n.Tag),
			Message:     fmt.Sprintf("cannot construct <%s>", n.Tag),
		})
		return nil
	}

	if raw, ok := n.attrAny("ID", "Id"); ok {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			r.ctx.elementError(KindConversion, e, "ID", fmt.Sprintf("malformed ID %q", raw), err)
		} else if err := e.SetID(id); err != nil {
			r.ctx.elementError(KindConversion, e, "ID", "cannot assign ID", err)
		}
	}
	e.Name = n.AttrOr("Name", "")

	for _, p := range r.registry.AttributeProperties(n.Tag) {
		raw, ok := n.Attr(p.Name)
		if !ok {
			continue
		}
		r.setValue(e, p, convert.FromString(p.Type(), raw))
	}

	for _, c := range n.Children {
		switch c.Tag {
		case TagProperties, TagXValues:
			r.readSection(e, c)
		default:
			child := r.ReadElement(c)
			if child == nil {
				continue
			}
			if err := e.AppendChild(child); err != nil {
				r.ctx.elementError(KindConversion, child, "", "cannot attach child", err)
			}
		}
	}

	r.ctx.RegisterElement(e)
	r.loaded(e)
	return e
}

func (r *Reader) loaded(e *element.Element) {
	if e.OnLoaded == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.ctx.elementError(KindConversion, e, "", fmt.Sprintf("load hook panicked: %v", rec), nil)
		}
	}()
	e.OnLoaded(e)
}

func (r *Reader) readSection(e *element.Element, section *Node) {
	for _, item := range section.Children {
		switch item.Tag {
		case TagXData:
			r.readData(e, item)
		case TagXLinkData:
			x, err := r.ReadXLinkData(item)
			if err != nil {
				r.ctx.elementError(KindConversion, e, x.Name, "malformed link", err)
				continue
			}
			r.readLink(e, x.ID, x.Name, x.Link, x.Link.ElementID)
		case TagXLinkedShape:
			x, err := r.ReadXLinkedShape(item)
			if err != nil {
				r.ctx.elementError(KindConversion, e, x.Name, "malformed linked shape", err)
				continue
			}
			r.readLink(e, x.ID, x.Name, x.Shape, x.Shape.ElementID)
		default:
			r.ctx.elementError(KindParse, e, "", fmt.Sprintf("unexpected <%s> in property section", item.Tag), nil)
		}
	}
}

func (r *Reader) readData(e *element.Element, n *Node) {
	x := r.ReadXData(n)
	p := r.property(e, x.ID, x.Name)
	if p == nil {
		return
	}
	if p.Linked {
		r.ctx.elementError(KindConversion, e, p.Name, "linked property stored as inline data", nil)
		return
	}
	if p.CultureSensitive {
		r.setValue(e, p, x.Localized(r.ctx.Options.Culture))
		return
	}

	typeName := x.Type
	if typeName == "" {
		typeName = p.Type()
	}
	v := convert.FromString(typeName, x.Text)
	if _, ok := convert.Coerce(v, p.Default); !ok && typeName != p.Type() {
		// a number the property type cannot hold is an error, not a reparse
		if !convert.IsNumber(v) || !convert.IsNumber(p.Default) {
			v = convert.FromString(p.Type(), x.Text)
		}
	}
	r.setValue(e, p, v)
}

func (r *Reader) readLink(e *element.Element, id uuid.UUID, name string, value any, target uuid.UUID) {
	p := r.property(e, id, name)
	if p == nil {
		return
	}
	if !p.Linked {
		r.ctx.elementError(KindConversion, e, p.Name, "link data for a non-linked property", nil)
		return
	}
	if r.setValue(e, p, value) {
		r.ctx.AddReference(e.ID(), p.ID, target)
	}
}

// property resolves an entry by ID first, then by name
func (r *Reader) property(e *element.Element, id uuid.UUID, name string) *element.Property {
	if id != uuid.Nil {
		if p := r.registry.Property(e.Tag, id); p != nil {
			return p
		}
	}
	if p := r.registry.PropertyByName(e.Tag, name); p != nil {
		return p
	}
	if !r.ctx.Options.IgnoreUnknownProperties {
		r.ctx.elementError(KindUnknownProperty, e, name, fmt.Sprintf("<%s> has no property %s", e.Tag, name), nil)
	}
	return nil
}

func (r *Reader) setValue(e *element.Element, p *element.Property, v any) bool {
	if err := e.Set(p, v); err != nil {
		r.ctx.elementError(KindConversion, e, p.Name, "cannot set value", err)
		return false
	}
	return true
}

// ReadXData decodes an <XData> node. When the entry carries XLanguage
// variants, Text holds the variant for the active culture.
func (r *Reader) ReadXData(n *Node) XData {
	x := XData{
		Name: n.AttrOr("Name", ""),
		Type: n.AttrOr("Type", ""),
		Text: n.Text,
	}
	if raw, ok := n.attrAny("Id", "ID"); ok {
		x.ID, _ = uuid.Parse(strings.TrimSpace(raw))
	}

	var fallback string
	for _, c := range n.Children {
		if c.Tag != TagXLanguage {
			continue
		}
		isDefault, _ := strconv.ParseBool(c.AttrOr("IsDefault", "false"))
		lang := XLanguage{Code: c.AttrOr("IETFCode", ""), IsDefault: isDefault, Text: c.Text}
		x.Languages = append(x.Languages, lang)
		if isDefault || fallback == "" {
			fallback = lang.Text
		}
	}
	if len(x.Languages) > 0 {
		codes := make([]string, len(x.Languages))
		for i, lang := range x.Languages {
			codes[i] = lang.Code
		}
		x.Text = fallback
		if match := element.MatchCulture(r.ctx.Options.Culture, codes); match != "" {
			for _, lang := range x.Languages {
				if lang.Code == match {
					x.Text = lang.Text
					break
				}
			}
		}
	}
	return x
}

// ReadXLinkData decodes an <XLinkData> node
func (r *Reader) ReadXLinkData(n *Node) (XLinkData, error) {
	x := XLinkData{
		Name: n.AttrOr("Name", ""),
		Type: n.AttrOr("Type", convert.TypeGuid),
	}
	var err error
	if x.ID, err = optionalGUID(n, "ID", "Id"); err != nil {
		return x, err
	}
	x.Link, err = readLink(n)
	return x, err
}

// ReadXLinkedShape decodes an <XLinkedShape> node
func (r *Reader) ReadXLinkedShape(n *Node) (XLinkedShape, error) {
	x := XLinkedShape{
		Name: n.AttrOr("Name", ""),
		Type: n.AttrOr("Type", convert.TypeGuid),
	}
	var err error
	if x.ID, err = optionalGUID(n, "ID", "Id"); err != nil {
		return x, err
	}
	if x.Shape.Link, err = readLink(n); err != nil {
		return x, err
	}
	x.Shape.Side = convert.FromString(convert.TypeInt32, n.AttrOr("Side", "0")).(int32)
	x.Shape.X = convert.FromString(convert.TypeDouble, n.AttrOr("X", "0")).(float64)
	x.Shape.Y = convert.FromString(convert.TypeDouble, n.AttrOr("Y", "0")).(float64)
	x.Shape.DesiredDegree = convert.FromString(convert.TypeDouble, n.AttrOr("DesiredDegree", "0")).(float64)
	return x, nil
}

func readLink(n *Node) (element.Link, error) {
	var (
		link element.Link
		err  error
	)
	if link.ElementID, err = optionalGUID(n, "ElementID"); err != nil {
		return link, err
	}
	if link.DocumentID, err = optionalGUID(n, "DocumentID"); err != nil {
		return link, err
	}
	if link.ModuleID, err = optionalGUID(n, "ModuleID"); err != nil {
		return link, err
	}
	link.Text = n.AttrOr("Text", n.Text)
	link.DocumentName = n.AttrOr("DocumentName", "")
	link.ModuleName = n.AttrOr("ModuleName", "")
	link.DataEx = n.AttrOr("DataEx", "")
	return link, nil
}

// optionalGUID parses the first present attribute; absent or empty is Nil
func optionalGUID(n *Node, names ...string) (uuid.UUID, error) {
	raw, ok := n.attrAny(names...)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, "attribute %s", names[0])
	}
	return id, nil
}
