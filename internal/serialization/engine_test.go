package serialization

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dase/internal/element"
	"dase/internal/registry"
)

type fixture struct {
	reg     *registry.Registry
	label   *element.Property
	width   *element.Property
	caption *element.Property
	target  *element.Property
	notes   *element.Property
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reg:     registry.New(),
		label:   element.NewProperty("Label", ""),
		width:   element.NewProperty("Width", 0.0, element.AsAttribute()),
		caption: element.NewProperty("Caption", nil, element.CultureSensitive()),
		target:  element.NewProperty("Target", nil, element.Linked()),
		notes:   element.NewProperty("Notes", "", element.InGroup(element.GroupDesign)),
	}
	f.reg.MustRegister("Node", func() (*element.Element, error) { return element.New("NodeElement"), nil },
		registry.WithClassName("NodeElement"))
	f.reg.MustRegisterProperty("Node", f.label, f.width, f.caption, f.target, f.notes)
	return f
}

func (f *fixture) node(t *testing.T, name string) *element.Element {
	t.Helper()
	e := f.reg.CreateElement("Node")
	require.NotNil(t, e)
	e.Name = name
	return e
}

func TestSerializeLabel(t *testing.T) {
	f := newFixture(t)
	e := f.node(t, "n1")
	require.NoError(t, e.Set(f.label, "Hello"))

	eng := New(f.reg)
	res := eng.Serialize(e)
	require.True(t, res.Success, "%v", res.Err())

	assert.True(t, strings.HasPrefix(res.Data, `<?xml version="1.0" encoding="utf-8"?>`))
	assert.Contains(t, res.Data, `<Node ID="`+e.ID().String()+`" Name="n1">`)
	assert.Contains(t, res.Data, `<XData Name="Label" Id="`+f.label.ID.String()+`" Type="String">Hello</XData>`)

	back := eng.Deserialize(res.Data)
	require.True(t, back.Success, "%v", back.Err())
	require.NotNil(t, back.Data)
	assert.Equal(t, e.ID(), back.Data.ID())
	assert.Equal(t, "n1", back.Data.Name)
	assert.Equal(t, "Hello", back.Data.Get(f.label))
	assert.NotNil(t, back.Data.Tree())
}

func TestDefaultsAreOmitted(t *testing.T) {
	f := newFixture(t)
	e := f.node(t, "")
	require.NoError(t, e.Set(f.notes, "design only"))

	res := New(f.reg, WithXMLDeclaration(false)).Serialize(e)
	require.True(t, res.Success)

	assert.Equal(t, `<Node ID="`+e.ID().String()+`"/>`, res.Data)
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t)
	root := f.node(t, "root")
	require.NoError(t, root.Set(f.width, 12.5))
	require.NoError(t, root.Set(f.caption, element.NewLocalized("en-US", "Root & <Co>").With("de-DE", "Wurzel")))

	child := f.node(t, "child")
	require.NoError(t, child.Set(f.label, `say "hi"`))
	require.NoError(t, root.AppendChild(child))

	ghost := f.node(t, "ghost")
	ghost.Transient = true
	require.NoError(t, root.AppendChild(ghost))

	eng := New(f.reg)
	out := eng.Serialize(root)
	require.True(t, out.Success, "%v", out.Err())
	assert.Contains(t, out.Data, `Width="12.5"`)
	assert.Contains(t, out.Data, `<XLanguage IETFCode="en-US" IsDefault="true">Root &amp; &lt;Co&gt;</XLanguage>`)
	assert.NotContains(t, out.Data, "ghost")

	in := eng.Deserialize(out.Data)
	require.True(t, in.Success, "%v", in.Err())
	got := in.Data
	assert.Equal(t, 12.5, got.Get(f.width))

	caption, ok := got.Get(f.caption).(element.Localized)
	require.True(t, ok)
	assert.Equal(t, "en-US", caption.DefaultCulture)
	assert.Equal(t, "Root & <Co>", caption.Text("en-US"))
	assert.Equal(t, "Wurzel", caption.Text("de-DE"))

	require.Equal(t, 1, got.ChildCount())
	assert.Equal(t, child.ID(), got.Children()[0].ID())
	assert.Equal(t, `say "hi"`, got.Children()[0].Get(f.label))
}

func TestUnknownElements(t *testing.T) {
	f := newFixture(t)
	src := `<Node Name="known"><Unknown/></Node>`

	lenient := New(f.reg).Deserialize(src)
	assert.True(t, lenient.Success)
	assert.Empty(t, lenient.Errors)
	assert.Equal(t, 0, lenient.Data.ChildCount())

	strict := New(f.reg, WithIgnoreUnknownElements(false)).Deserialize(src)
	assert.False(t, strict.Success)
	require.Len(t, strict.Errors, 1)
	assert.Equal(t, KindUnknownElement, strict.Errors[0].Kind)
	assert.Contains(t, strict.Errors[0].Message, "Unknown")
	require.NotNil(t, strict.Data)
}

func TestUnknownRoot(t *testing.T) {
	f := newFixture(t)
	res := New(f.reg).Deserialize(`<Mystery/>`)
	assert.False(t, res.Success)
	assert.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindUnknownElement, res.Errors[0].Kind)
}

func TestUnknownProperties(t *testing.T) {
	f := newFixture(t)
	src := `<Node><Properties><XData Name="Colour" Type="String">red</XData></Properties></Node>`

	res := New(f.reg).Deserialize(src)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindUnknownProperty, res.Errors[0].Kind)
	assert.Equal(t, "Colour", res.Errors[0].PropertyName)

	res = New(f.reg, WithIgnoreUnknownProperties(true)).Deserialize(src)
	assert.True(t, res.Success)
}

func TestPropertyLookupByIDFirst(t *testing.T) {
	f := newFixture(t)
	src := `<Node><Properties><XData Name="Renamed" Id="` + f.label.ID.String() + `" Type="String">kept</XData></Properties></Node>`

	res := New(f.reg).Deserialize(src)
	require.True(t, res.Success, "%v", res.Err())
	assert.Equal(t, "kept", res.Data.Get(f.label))
}

func TestReferenceResolution(t *testing.T) {
	f := newFixture(t)
	rootID, aID, bID := uuid.New(), uuid.New(), uuid.New()
	src := `<Node ID="` + rootID.String() + `">
  <Node ID="` + aID.String() + `" Name="a">
    <Properties>
      <XLinkData Name="Target" ID="` + f.target.ID.String() + `" Type="Guid" ElementID="` + bID.String() + `" Text="b"/>
    </Properties>
  </Node>
  <Node ID="` + bID.String() + `" Name="b"/>
</Node>`

	res := New(f.reg).Deserialize(src)
	require.True(t, res.Success, "%v", res.Err())
	assert.Equal(t, 1, res.ResolvedReferences)

	a := res.Data.FindChild(element.ByName("a"), false)
	require.NotNil(t, a)
	b := a.LinkedElement(f.target)
	require.NotNil(t, b)
	assert.Equal(t, bID, b.ID())

	link, ok := element.LinkOf(a.Get(f.target))
	require.True(t, ok)
	assert.Equal(t, "b", link.Text)
}

func TestDanglingReference(t *testing.T) {
	f := newFixture(t)
	src := `<Node><Properties><XLinkedShape Name="Target" ElementID="` + uuid.NewString() + `" Side="2" X="1.5" Y="3" DesiredDegree="90"/></Properties></Node>`

	res := New(f.reg).Deserialize(src)
	require.True(t, res.Success, "%v", res.Err())
	assert.Equal(t, 0, res.ResolvedReferences)
	assert.Nil(t, res.Data.LinkedElement(f.target))

	shape, ok := res.Data.Get(f.target).(element.LinkedShape)
	require.True(t, ok)
	assert.Equal(t, int32(2), shape.Side)
	assert.Equal(t, 1.5, shape.X)
	assert.Equal(t, 90.0, shape.DesiredDegree)
}

func TestSerializeRecordsLinksWithoutWritingThem(t *testing.T) {
	f := newFixture(t)
	root := f.node(t, "root")
	a, b := f.node(t, "a"), f.node(t, "b")
	require.NoError(t, root.AppendChild(a))
	require.NoError(t, root.AppendChild(b))
	require.NoError(t, a.SetLink(f.target, b))

	var pending []*PendingReference
	eng := New(f.reg)
	eng.AddHook(Hook{
		Name: "capture",
		AfterSerialize: func(_ *element.Element, ctx *Context) error {
			pending = ctx.Pending()
			return nil
		},
	})

	res := eng.Serialize(root)
	require.True(t, res.Success)
	assert.NotContains(t, res.Data, TagXLinkData)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID(), pending[0].SourceID)
	assert.Equal(t, f.target.ID, pending[0].PropertyID)
	assert.Equal(t, b.ID(), pending[0].TargetID)
}

func TestStrictMode(t *testing.T) {
	f := newFixture(t)
	src := `<Node><Node Name="inner"></Other></Node>`

	lenient := New(f.reg).Deserialize(src)
	assert.True(t, lenient.Success, "%v", lenient.Err())
	assert.Equal(t, 1, lenient.Data.ChildCount())

	strict := New(f.reg, WithStrictMode(true)).Deserialize(src)
	assert.False(t, strict.Success)
	require.Len(t, strict.Errors, 1)
	assert.Equal(t, KindStrictMismatch, strict.Errors[0].Kind)
	assert.Equal(t, 0, strict.Data.ChildCount())
}

func TestCultureSelection(t *testing.T) {
	f := newFixture(t)
	src := `<Node><Properties><XData Name="Label" Type="String">
  <XLanguage IETFCode="en-US" IsDefault="true">Hello</XLanguage>
  <XLanguage IETFCode="de-DE">Hallo</XLanguage>
</XData></Properties></Node>`

	res := New(f.reg, WithCulture("de-DE")).Deserialize(src)
	require.True(t, res.Success, "%v", res.Err())
	assert.Equal(t, "Hallo", res.Data.Get(f.label))

	res = New(f.reg, WithCulture("en-US")).Deserialize(src)
	assert.Equal(t, "Hello", res.Data.Get(f.label))
}

func TestHooks(t *testing.T) {
	f := newFixture(t)
	e := f.node(t, "n")

	var phases []Phase
	eng := New(f.reg)
	eng.AddHook(Hook{
		BeforeSerialize: func(_ *element.Element, ctx *Context) error {
			phases = append(phases, ctx.Phase())
			return nil
		},
		AfterSerialize: func(_ *element.Element, ctx *Context) error {
			phases = append(phases, ctx.Phase())
			return nil
		},
	})
	require.True(t, eng.Serialize(e).Success)
	assert.Equal(t, []Phase{PhaseBeforeSerialize, PhaseAfterSerialize}, phases)

	eng.AddHook(Hook{
		Name:              "reject",
		BeforeDeserialize: func(string, *Context) error { return errors.New("not today") },
	})
	res := eng.Deserialize(`<Node/>`)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindEngine, res.Errors[0].Kind)
	assert.Contains(t, res.Err().Error(), "not today")
}

func TestPanicsBecomeTerminalErrors(t *testing.T) {
	f := newFixture(t)
	eng := New(f.reg)
	eng.AddHook(Hook{
		AfterDeserialize: func(*element.Element, *Context) error { panic("boom") },
	})

	res := eng.Deserialize(`<Node/>`)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindEngine, res.Errors[0].Kind)
	assert.Equal(t, PhaseAfterDeserialize, res.Errors[0].Phase)
}

func TestOnLoaded(t *testing.T) {
	f := newFixture(t)
	reg := registry.New()
	var loaded []string
	reg.MustRegister("Node", func() (*element.Element, error) {
		e := element.New("NodeElement")
		e.OnLoaded = func(e *element.Element) { loaded = append(loaded, e.Name) }
		return e, nil
	})
	reg.MustRegisterProperty("Node", f.label)

	res := New(reg).Deserialize(`<Node Name="outer"><Node Name="inner"/></Node>`)
	require.True(t, res.Success)
	assert.Equal(t, []string{"inner", "outer"}, loaded)
}

type upperSerializer struct{}

func (upperSerializer) Serialize(e *element.Element, w *Writer) error {
	w.StartElement("Node")
	w.WriteIdentity(e)
	_ = w.WriteAttribute("Custom", "yes")
	w.EndElement()
	return nil
}

func (upperSerializer) Deserialize(n *Node, r *Reader) (*element.Element, error) {
	e := r.ReadDefault(n)
	if e == nil {
		return nil, errors.New("no element")
	}
	e.Name = strings.ToUpper(e.Name)
	return e, nil
}

func TestCustomSerializer(t *testing.T) {
	f := newFixture(t)
	e := f.node(t, "custom")
	require.NoError(t, e.Set(f.label, "skipped"))

	eng := New(f.reg, WithXMLDeclaration(false))
	eng.RegisterSerializer("Node", upperSerializer{})

	out := eng.Serialize(e)
	require.True(t, out.Success)
	assert.Equal(t, `<Node ID="`+e.ID().String()+`" Name="custom" Custom="yes"/>`, out.Data)

	in := eng.Deserialize(out.Data)
	require.True(t, in.Success)
	assert.Equal(t, "CUSTOM", in.Data.Name)
}

func TestSerializeToDocument(t *testing.T) {
	f := newFixture(t)
	e := f.node(t, "n")
	require.NoError(t, e.Set(f.label, "Hello"))

	res := New(f.reg).SerializeToDocument(e)
	require.True(t, res.Success)
	data := FindNode(res.Data, "Properties/XData")
	require.NotNil(t, data)
	assert.Equal(t, "Hello", data.Text)
}

func TestValidateXml(t *testing.T) {
	f := newFixture(t)
	eng := New(f.reg)

	ok := eng.ValidateXml(`<Node><Properties><XData Name="Label">x</XData></Properties><Node/></Node>`)
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Errors)

	bad := eng.ValidateXml(`<Node><Widget/><Gadget/></Node>`)
	assert.False(t, bad.Valid)
	assert.Len(t, bad.Errors, 2)

	broken := eng.ValidateXml(``)
	assert.False(t, broken.Valid)
}

func TestMalformedValues(t *testing.T) {
	f := newFixture(t)
	res := New(f.reg).Deserialize(`<Node ID="not-a-guid" Width="wide"/>`)

	require.NotNil(t, res.Data)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindConversion, res.Errors[0].Kind)
	assert.Equal(t, "ID", res.Errors[0].PropertyName)
	assert.Equal(t, 0.0, res.Data.Get(f.width))
}

func TestNumbersThatDoNotFitAreConversionErrors(t *testing.T) {
	reg := registry.New()
	count := element.NewProperty("Count", int32(0))
	reg.MustRegister("Node", func() (*element.Element, error) { return element.New("Node"), nil })
	reg.MustRegisterProperty("Node", count)
	eng := New(reg)

	res := eng.Deserialize(`<Node><Properties><XData Name="Count" Type="Int64">5000000000</XData></Properties></Node>`)
	require.NotNil(t, res.Data)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindConversion, res.Errors[0].Kind)
	assert.Equal(t, "Count", res.Errors[0].PropertyName)
	assert.Equal(t, int32(0), res.Data.Get(count))

	res = eng.Deserialize(`<Node><Properties><XData Name="Count" Type="Double">2.7</XData></Properties></Node>`)
	assert.False(t, res.Success)
	assert.Equal(t, int32(0), res.Data.Get(count))

	res = eng.Deserialize(`<Node><Properties><XData Name="Count" Type="Int64">42</XData></Properties></Node>`)
	require.True(t, res.Success, "%v", res.Err())
	assert.Equal(t, int32(42), res.Data.Get(count))
}
