package serialization

import (
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"dase/internal/convert"
	"dase/internal/element"
	"dase/internal/registry"
)

// ErrNoOpenTag is returned when an attribute is written outside a start tag
var ErrNoOpenTag = errors.New("no open start tag")

type frame struct {
	tag         string
	hasChildren bool
}

// Writer streams elements as XML. Start tags stay open until content or an
// end tag arrives, so empty elements are written self-closing.
type Writer struct {
	buf         strings.Builder
	ctx         *Context
	registry    *registry.Registry
	serializers map[string]CustomSerializer
	stack       []frame
	open        bool
}

// NewWriter creates a writer over reg that records into ctx
func NewWriter(reg *registry.Registry, ctx *Context, serializers map[string]CustomSerializer) *Writer {
	return &Writer{registry: reg, ctx: ctx, serializers: serializers}
}

// Context returns the operation context
func (w *Writer) Context() *Context {
	return w.ctx
}

// WriteDeclaration writes the XML declaration
func (w *Writer) WriteDeclaration() {
	w.buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
}

// StartElement opens a new element
func (w *Writer) StartElement(tag string) {
	if len(w.stack) > 0 {
		w.closeStartTag()
		w.stack[len(w.stack)-1].hasChildren = true
		w.newline(len(w.stack))
	} else if w.buf.Len() > 0 {
		w.newline(0)
	}
	w.buf.WriteByte('<')
	w.buf.WriteString(tag)
	w.stack = append(w.stack, frame{tag: tag})
	w.open = true
	w.ctx.Depth = len(w.stack)
}

// WriteAttribute adds an attribute to the open start tag
func (w *Writer) WriteAttribute(name, value string) error {
	if !w.open {
		return errors.Wrapf(ErrNoOpenTag, "attribute %s", name)
	}
	w.buf.WriteByte(' ')
	w.buf.WriteString(name)
	w.buf.WriteString(`="`)
	w.buf.WriteString(escapeAttr(value))
	w.buf.WriteByte('"')
	return nil
}

// WriteText writes escaped character data into the current element
func (w *Writer) WriteText(text string) {
	w.closeStartTag()
	w.buf.WriteString(escapeText(text))
}

// EndElement closes the current element
func (w *Writer) EndElement() {
	if len(w.stack) == 0 {
		return
	}
	top := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.ctx.Depth = len(w.stack)

	if w.open {
		w.buf.WriteString("/>")
		w.open = false
		return
	}
	if top.hasChildren {
		w.newline(len(w.stack))
	}
	w.buf.WriteString("</")
	w.buf.WriteString(top.tag)
	w.buf.WriteByte('>')
}

func (w *Writer) closeStartTag() {
	if w.open {
		w.buf.WriteByte('>')
		w.open = false
	}
}

func (w *Writer) newline(depth int) {
	if w.ctx.Options.Indent == "" {
		return
	}
	w.buf.WriteByte('\n')
	w.buf.WriteString(strings.Repeat(w.ctx.Options.Indent, depth))
}

// String returns everything written so far
func (w *Writer) String() string {
	return w.buf.String()
}

// WriteTo copies the written document to out
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	n, err := io.WriteString(out, w.buf.String())
	return int64(n), err
}

// WriteElement writes e and its subtree. Transient elements are skipped.
func (w *Writer) WriteElement(e *element.Element) {
	if e == nil || e.Transient {
		return
	}
	tag := w.registry.GetTagName(e)
	if s, ok := w.serializers[tag]; ok {
		if err := s.Serialize(e, w); err != nil {
			w.ctx.elementError(KindConversion, e, "", "custom serializer for "+tag+" failed", err)
		}
		w.ctx.RegisterElement(e)
		return
	}
	w.WriteDefault(e)
}

// WriteDefault is WriteElement without the custom serializer lookup for e
// itself
func (w *Writer) WriteDefault(e *element.Element) {
	tag := w.registry.GetTagName(e)
	w.StartElement(tag)
	w.WriteIdentity(e)

	props := w.registry.Properties(tag)
	for _, p := range props {
		if !p.AsAttribute || !p.Persistable {
			continue
		}
		v := e.Get(p)
		if p.IsDefault(v) {
			continue
		}
		_ = w.WriteAttribute(p.Name, convert.ToString(p.Type(), v))
	}

	var section []*element.Property
	for _, p := range props {
		if p.AsAttribute || !p.Persistable || p.Group == element.GroupDesign {
			continue
		}
		v := e.Get(p)
		if p.Linked {
			// links are indexed for resolution but not written inline
			if link, ok := element.LinkOf(v); ok {
				w.ctx.AddReference(e.ID(), p.ID, link.ElementID)
			}
			continue
		}
		if p.IsDefault(v) {
			continue
		}
		section = append(section, p)
	}
	if len(section) > 0 {
		w.StartElement(TagProperties)
		for _, p := range section {
			w.WriteXData(e, p)
		}
		w.EndElement()
	}

	for _, child := range e.Children() {
		w.WriteElement(child)
	}
	w.EndElement()
	w.ctx.RegisterElement(e)
}

// WriteIdentity writes the ID and Name attributes of e
func (w *Writer) WriteIdentity(e *element.Element) {
	_ = w.WriteAttribute("ID", e.ID().String())
	if e.Name != "" {
		_ = w.WriteAttribute("Name", e.Name)
	}
}

// WriteXData writes the value of p on e as an <XData> entry
func (w *Writer) WriteXData(e *element.Element, p *element.Property) {
	v := e.Get(p)
	w.StartElement(TagXData)
	_ = w.WriteAttribute("Name", p.Name)
	_ = w.WriteAttribute("Id", p.ID.String())
	_ = w.WriteAttribute("Type", p.Type())

	if l, ok := v.(element.Localized); ok {
		for _, code := range l.Cultures() {
			w.StartElement(TagXLanguage)
			_ = w.WriteAttribute("IETFCode", code)
			if code == l.DefaultCulture {
				_ = w.WriteAttribute("IsDefault", "true")
			}
			w.WriteText(l.Texts[code])
			w.EndElement()
		}
	} else {
		w.WriteText(convert.ToString(p.Type(), v))
	}
	w.EndElement()
}

// WriteXLinkData writes link as an <XLinkData> entry for p
func (w *Writer) WriteXLinkData(p *element.Property, link element.Link) {
	w.StartElement(TagXLinkData)
	w.writeLinkAttrs(p, link)
	w.EndElement()
}

// WriteXLinkedShape writes shape as an <XLinkedShape> entry for p
func (w *Writer) WriteXLinkedShape(p *element.Property, shape element.LinkedShape) {
	w.StartElement(TagXLinkedShape)
	w.writeLinkAttrs(p, shape.Link)
	_ = w.WriteAttribute("Side", strconv.FormatInt(int64(shape.Side), 10))
	_ = w.WriteAttribute("X", convert.ToString(convert.TypeDouble, shape.X))
	_ = w.WriteAttribute("Y", convert.ToString(convert.TypeDouble, shape.Y))
	_ = w.WriteAttribute("DesiredDegree", convert.ToString(convert.TypeDouble, shape.DesiredDegree))
	w.EndElement()
}

func (w *Writer) writeLinkAttrs(p *element.Property, link element.Link) {
	_ = w.WriteAttribute("Name", p.Name)
	_ = w.WriteAttribute("ID", p.ID.String())
	_ = w.WriteAttribute("Type", p.Type())
	_ = w.WriteAttribute("ElementID", link.ElementID.String())
	if link.Text != "" {
		_ = w.WriteAttribute("Text", link.Text)
	}
	if link.DocumentID != uuid.Nil {
		_ = w.WriteAttribute("DocumentID", link.DocumentID.String())
	}
	if link.DocumentName != "" {
		_ = w.WriteAttribute("DocumentName", link.DocumentName)
	}
	if link.ModuleID != uuid.Nil {
		_ = w.WriteAttribute("ModuleID", link.ModuleID.String())
	}
	if link.ModuleName != "" {
		_ = w.WriteAttribute("ModuleName", link.ModuleName)
	}
	if link.DataEx != "" {
		_ = w.WriteAttribute("DataEx", link.DataEx)
	}
}
