package registry

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dase/internal/element"
)

func ctorFor(class string) Constructor {
	return func() (*element.Element, error) {
		return element.New(class), nil
	}
}

func TestRegister(t *testing.T) {
	r := New()

	t.Run("generates a class id", func(t *testing.T) {
		m, err := r.Register("Node", ctorFor("NodeElement"))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, m.ClassID)
		assert.Equal(t, "Node", m.ClassName)
		assert.Equal(t, 1, m.Order)
	})

	t.Run("keeps an explicit class id", func(t *testing.T) {
		id := uuid.New()
		m, err := r.Register("Edge", ctorFor("EdgeElement"), WithClassID(id))
		require.NoError(t, err)
		assert.Equal(t, id, m.ClassID)
	})

	t.Run("rejects misuse", func(t *testing.T) {
		_, err := r.Register("", ctorFor("x"))
		assert.ErrorIs(t, err, ErrInvalidRegistration)

		_, err = r.Register("Other", nil)
		assert.ErrorIs(t, err, ErrInvalidRegistration)

		_, err = r.Register("Node", ctorFor("x"))
		assert.ErrorIs(t, err, ErrAlreadyRegistered)

		assert.Panics(t, func() { r.MustRegister("Node", ctorFor("x")) })
	})

	assert.Equal(t, []string{"Node", "Edge"}, r.Tags())
}

func TestRegisterProperty(t *testing.T) {
	r := New()
	r.MustRegister("Node", ctorFor("NodeElement"))

	label := element.NewProperty("Label", "")
	width := element.NewProperty("Width", 0.0, element.AsAttribute())
	require.NoError(t, r.RegisterProperty("Node", label))
	require.NoError(t, r.RegisterProperty("Node", width))

	assert.ErrorIs(t, r.RegisterProperty("Node", label), ErrAlreadyRegistered)
	assert.ErrorIs(t, r.RegisterProperty("Missing", label), ErrUnknownTag)
	assert.ErrorIs(t, r.RegisterProperty("Node", nil), ErrInvalidRegistration)

	bad := element.NewProperty("Ref", nil, element.Linked(), element.AsAttribute())
	assert.ErrorIs(t, r.RegisterProperty("Node", bad), ErrInvalidRegistration)

	assert.Equal(t, []*element.Property{label, width}, r.Properties("Node"))
	assert.Equal(t, []*element.Property{width}, r.AttributeProperties("Node"))
	assert.Same(t, label, r.Property("Node", label.ID))
	assert.Same(t, width, r.PropertyByName("Node", "Width"))
	assert.Nil(t, r.PropertyByName("Node", "Missing"))
	assert.Empty(t, r.Properties("Missing"))
}

func TestInheritedProperties(t *testing.T) {
	r := New()
	r.MustRegister("Shape", ctorFor("ShapeElement"), WithClassName("ShapeElement"))
	r.MustRegister("Box", ctorFor("BoxElement"), WithClassName("BoxElement"), WithBaseClass("ShapeElement"))

	pos := element.NewProperty("Position", nil)
	depth := element.NewProperty("Depth", 0.0)
	r.MustRegisterProperty("Shape", pos)
	r.MustRegisterProperty("Box", depth)

	assert.Equal(t, []*element.Property{pos, depth}, r.Properties("Box"))
	assert.Equal(t, []*element.Property{pos}, r.Properties("Shape"))
}

func TestChildTags(t *testing.T) {
	r := New()
	r.MustRegister("Model", ctorFor("Model"))

	require.NoError(t, r.RegisterChildTag("Model", "Table"))
	require.NoError(t, r.RegisterChildTag("Model", "Table"))
	assert.ErrorIs(t, r.RegisterChildTag("Missing", "Table"), ErrUnknownTag)

	assert.Equal(t, []string{"Table"}, r.ChildTags("Model"))
	assert.Nil(t, r.ChildTags("Missing"))
}

func TestCreateElement(t *testing.T) {
	r := New()
	m := r.MustRegister("Node", ctorFor("NodeElement"))
	r.MustRegister("Broken", func() (*element.Element, error) { return nil, errors.New("boom") })
	r.MustRegister("Panics", func() (*element.Element, error) { panic("boom") })

	e := r.CreateElement("Node")
	require.NotNil(t, e)
	assert.Equal(t, "Node", e.Tag)
	assert.Equal(t, m.ClassID, e.ClassID)
	assert.Equal(t, "NodeElement", e.Class)

	assert.Nil(t, r.CreateElement("Unknown"))
	assert.Nil(t, r.CreateElement("Broken"))
	assert.Nil(t, r.CreateElement("Panics"))
}

func TestGetTagName(t *testing.T) {
	r := New()
	r.MustRegister("Node", ctorFor("NodeElement"), WithClassName("NodeElement"))

	e := r.CreateElement("Node")
	assert.Equal(t, "Node", r.GetTagName(e))

	byClass := element.New("NodeElement")
	assert.Equal(t, "Node", r.GetTagName(byClass))

	stranger := element.New("Stranger")
	assert.Equal(t, "Stranger", r.GetTagName(stranger))
	assert.Equal(t, "", r.GetTagName(nil))
}

func TestClear(t *testing.T) {
	r := New()
	r.MustRegister("Node", ctorFor("NodeElement"))
	r.Clear()

	assert.False(t, r.IsRegistered("Node"))
	assert.Empty(t, r.Tags())
	_, err := r.Register("Node", ctorFor("NodeElement"))
	assert.NoError(t, err)
}
