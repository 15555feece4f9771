package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dase/internal/element"
	"dase/internal/registry"
)

type columnFixture struct {
	reg      *registry.Registry
	name     *element.Property
	dataType *element.Property
	length   *element.Property
	caption  *element.Property
}

func newColumnFixture(t *testing.T) (*columnFixture, *element.Element) {
	t.Helper()
	f := &columnFixture{
		reg:      registry.New(),
		name:     element.NewProperty("ColumnName", ""),
		dataType: element.NewProperty("DataType", "String"),
		length:   element.NewProperty("Length", int32(0)),
		caption:  element.NewProperty("Caption", nil, element.CultureSensitive()),
	}
	f.reg.MustRegister("Column", func() (*element.Element, error) { return element.New("Column"), nil })
	f.reg.MustRegisterProperty("Column", f.name, f.dataType, f.length, f.caption)

	e := f.reg.CreateElement("Column")
	require.NotNil(t, e)
	return f, e
}

func TestRequiredField(t *testing.T) {
	f, e := newColumnFixture(t)
	p := NewProvider(f.reg)

	p.AddRule(f.name, Rule{IsRequired: Always})
	md := p.Metadata(e, f.name)
	assert.True(t, md.Required)
	require.Len(t, md.Messages, 1)
	assert.Equal(t, SeverityError, md.Messages[0].Severity)
	assert.Contains(t, md.Messages[0].Text, "required")
	assert.Equal(t, f.name.ID, md.Messages[0].PropertyID)
	assert.Equal(t, "ColumnName", md.Messages[0].PropertyName)

	p.AddRule(f.name, Rule{IsRequired: Always, IsReadOnly: Always})
	assert.Empty(t, p.Metadata(e, f.name).Messages)

	p.AddRule(f.name, Rule{IsRequired: Always, IsVisible: Never})
	assert.Empty(t, p.Metadata(e, f.name).Messages)

	p.AddRule(f.name, Rule{IsRequired: Always})
	require.NoError(t, e.Set(f.name, "Id"))
	assert.Empty(t, p.Metadata(e, f.name).Messages)
}

func TestRequiredLocalized(t *testing.T) {
	f, e := newColumnFixture(t)
	p := NewProvider(f.reg)
	p.AddRule(f.caption, Rule{IsRequired: Always})

	assert.Len(t, p.Metadata(e, f.caption).Messages, 1)
	require.NoError(t, e.SetText(f.caption, "en-US", "Identifier"))
	assert.Empty(t, p.Metadata(e, f.caption).Messages)
}

func TestDefaults(t *testing.T) {
	f, e := newColumnFixture(t)
	md := NewProvider(f.reg).Metadata(e, f.length)

	assert.True(t, md.Visible)
	assert.False(t, md.ReadOnly)
	assert.False(t, md.Required)
	assert.Empty(t, md.Messages)
}

func TestConditions(t *testing.T) {
	f, e := newColumnFixture(t)
	ctx := RuleContext{Element: e, Property: f.length, registry: f.reg}

	assert.True(t, WhenPropertyEquals("DataType", "String")(ctx))
	assert.True(t, WhenPropertyEquals("Length", 0)(ctx))
	assert.False(t, WhenPropertyEquals("Missing", "x")(ctx))
	assert.True(t, WhenPropertyIn("DataType", "Binary", "String")(ctx))
	assert.False(t, WhenPropertyNotIn("DataType", "Binary", "String")(ctx))

	assert.True(t, AllOf(Always, WhenPropertyEquals("DataType", "String"))(ctx))
	assert.False(t, AllOf(Always, Never)(ctx))
	assert.True(t, AnyOf(Never, Always)(ctx))
	assert.False(t, AnyOf()(ctx))
	assert.True(t, Not(Never)(ctx))

	require.NoError(t, e.Set(f.dataType, "Int32"))
	assert.True(t, WhenPropertyNotIn("DataType", "Binary", "String")(ctx))
}

func TestConditionsCompareNumbersByValue(t *testing.T) {
	reg := registry.New()
	ratio := element.NewProperty("Ratio", 0.0)
	reg.MustRegister("Gauge", func() (*element.Element, error) { return element.New("Gauge"), nil })
	reg.MustRegisterProperty("Gauge", ratio)
	e := reg.CreateElement("Gauge")
	require.NotNil(t, e)
	require.NoError(t, e.Set(ratio, 1.9))
	ctx := RuleContext{Element: e, Property: ratio, registry: reg}

	assert.False(t, WhenPropertyEquals("Ratio", 1)(ctx))
	assert.False(t, WhenPropertyIn("Ratio", 1, 2)(ctx))
	assert.True(t, WhenPropertyNotIn("Ratio", 1, 2)(ctx))
	assert.True(t, WhenPropertyEquals("Ratio", 1.9)(ctx))

	p := NewProvider(reg)
	p.AddRule(ratio, Rule{IsVisible: WhenPropertyEquals("Ratio", 1)})
	assert.False(t, p.Metadata(e, ratio).Visible)

	require.NoError(t, e.Set(ratio, 1.0))
	assert.True(t, WhenPropertyEquals("Ratio", 1)(ctx))
	assert.True(t, p.Metadata(e, ratio).Visible)
}

func TestValidatorsAndHints(t *testing.T) {
	f, e := newColumnFixture(t)
	p := NewProvider(f.reg)

	maxLength := func(c RuleContext) []Message {
		n, _ := c.Value.(int32)
		if n <= 4000 {
			return nil
		}
		return []Message{Warningf("length %d exceeds 4000", n).WithFix(UserFix{
			Name: "Clamp",
			Apply: func(e *element.Element) bool {
				return e.Set(f.length, int32(4000)) == nil
			},
		})}
	}
	p.AddRule(f.length, Rule{
		IsVisible:   WhenPropertyIn("DataType", "String", "Binary"),
		Validators:  []Validator{maxLength},
		Hint:        func(c RuleContext) string { return "max " + c.PropertyValue("DataType").(string) + " length" },
		Placeholder: func(RuleContext) string { return "0" },
	})

	require.NoError(t, e.Set(f.length, int32(9000)))
	md := p.Metadata(e, f.length)
	assert.True(t, md.Visible)
	assert.Equal(t, "max String length", md.Hint)
	assert.Equal(t, "0", md.Placeholder)
	require.Len(t, md.Messages, 1)
	assert.Equal(t, SeverityWarning, md.Messages[0].Severity)
	assert.False(t, HasErrors(md.Messages))

	require.Len(t, md.Messages[0].Fixes, 1)
	assert.True(t, md.Messages[0].Fixes[0].Apply(e))
	assert.Equal(t, int32(4000), e.Get(f.length))
	assert.Empty(t, p.Metadata(e, f.length).Messages)

	require.NoError(t, e.Set(f.dataType, "Int32"))
	assert.False(t, p.Metadata(e, f.length).Visible)
}

func TestGlobalValidators(t *testing.T) {
	f, e := newColumnFixture(t)
	p := NewProvider(f.reg)

	p.AddGlobalValidator(func(prop *element.Property) bool { return prop.Type() == "String" }, func(c RuleContext) []Message {
		if s, _ := c.Value.(string); strings.Contains(s, " ") {
			return []Message{Errorf("%s must not contain spaces", c.Property.Name)}
		}
		return nil
	})
	p.AddGlobalValidator(nil, func(c RuleContext) []Message {
		if c.Property == f.dataType {
			return []Message{Infof("data type is informational")}
		}
		return nil
	})

	require.NoError(t, e.Set(f.name, "first name"))
	msgs := p.ValidateAll(e)
	require.Len(t, msgs, 2)
	assert.Equal(t, "ColumnName must not contain spaces", msgs[0].Text)
	assert.Equal(t, SeverityInfo, msgs[1].Severity)
	assert.True(t, HasErrors(msgs))

	all := p.AllMetadata(e)
	assert.Len(t, all, 4)
}

func TestValidateTree(t *testing.T) {
	f, root := newColumnFixture(t)
	child := f.reg.CreateElement("Column")
	require.NoError(t, root.AppendChild(child))

	p := NewProvider(f.reg)
	p.AddRule(f.name, Rule{IsRequired: Always})
	require.NoError(t, root.Set(f.name, "Id"))

	out := p.ValidateTree(root)
	assert.Len(t, out, 1)
	assert.Len(t, out[child.ID()], 1)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "Error", SeverityError.String())
	assert.Equal(t, "Info", SeverityInfo.String())
	assert.Equal(t, "Severity(9)", Severity(9).String())
}
