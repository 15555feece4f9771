package element

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dase/internal/convert"
)

func TestAppendChild(t *testing.T) {
	t.Run("keeps parent and children in sync", func(t *testing.T) {
		parent := New("Table")
		child := New("Field")

		require.NoError(t, parent.AppendChild(child))

		assert.Same(t, parent, child.Parent())
		assert.Equal(t, []*Element{child}, parent.Children())
	})

	t.Run("re-appending to the same parent is a no-op", func(t *testing.T) {
		parent := New("Table")
		child := New("Field")
		require.NoError(t, parent.AppendChild(child))
		require.NoError(t, parent.AppendChild(child))

		assert.Equal(t, 1, parent.ChildCount())
	})

	t.Run("transfers ownership between parents", func(t *testing.T) {
		first := New("Table")
		second := New("Table")
		child := New("Field")
		grandchild := New("Index")
		require.NoError(t, child.AppendChild(grandchild))
		require.NoError(t, first.AppendChild(child))

		require.NoError(t, second.AppendChild(child))

		assert.Equal(t, 0, first.ChildCount())
		assert.Same(t, second, child.Parent())
		assert.Same(t, child, grandchild.Parent())
		assert.Same(t, grandchild, second.FindChild(ByTag(""), true).FindChild(nil, false))
	})

	t.Run("rejects cycles", func(t *testing.T) {
		root := New("Model")
		child := New("Table")
		require.NoError(t, root.AppendChild(child))

		assert.ErrorIs(t, child.AppendChild(root), ErrCycle)
		assert.ErrorIs(t, root.AppendChild(root), ErrCycle)
		assert.Same(t, root, child.Parent())
	})

	t.Run("rejects duplicate identities", func(t *testing.T) {
		root := New("Model")
		a := New("Table")
		b := New("Table")
		require.NoError(t, b.SetID(a.ID()))
		require.NoError(t, root.AppendChild(a))

		assert.ErrorIs(t, root.AppendChild(b), ErrDuplicateID)
		assert.Equal(t, 1, root.ChildCount())
		assert.Nil(t, b.Parent())
	})
}

func TestRemoveChild(t *testing.T) {
	parent := New("Table")
	child := New("Field")
	other := New("Field")
	require.NoError(t, parent.AppendChild(child))

	assert.False(t, parent.RemoveChild(other))
	assert.True(t, parent.RemoveChild(child))
	assert.Nil(t, child.Parent())
	assert.Equal(t, 0, parent.ChildCount())
	assert.False(t, parent.RemoveChild(child))
}

func TestTraversal(t *testing.T) {
	root := New("Model")
	table := New("Table")
	table.Tag = "Table"
	field := New("Field")
	field.Tag = "Field"
	field.Name = "id"
	require.NoError(t, root.AppendChild(table))
	require.NoError(t, table.AppendChild(field))

	t.Run("shallow search ignores grandchildren", func(t *testing.T) {
		assert.Nil(t, root.FindChild(ByTag("Field"), false))
		assert.False(t, root.HasChild(ByTag("Field"), false))
	})

	t.Run("deep search finds grandchildren", func(t *testing.T) {
		assert.Same(t, field, root.FindChild(ByName("id"), true))
		assert.Len(t, root.FindChildren(nil, true), 2)
		assert.True(t, root.HasChild(ByTag("Field"), true))
	})

	t.Run("owner walks ancestors", func(t *testing.T) {
		assert.Same(t, table, field.Owner(ByTag("Table")))
		assert.True(t, field.HasOwner(nil))
		assert.False(t, root.HasOwner(nil))
	})
}

func TestDocumentTree(t *testing.T) {
	doc := NewDocument("orm")
	root := New("Model")
	child := New("Table")
	require.NoError(t, root.AppendChild(child))

	assert.Nil(t, child.Tree())

	require.NoError(t, doc.AppendChild(root))
	assert.Same(t, doc, child.Tree())
	assert.Same(t, child, doc.ElementByID(child.ID()))
	assert.Equal(t, 2, doc.Len())
	assert.Nil(t, root.Parent())

	require.True(t, root.RemoveChild(child))
	assert.Nil(t, child.Tree())
	assert.Nil(t, doc.ElementByID(child.ID()))

	require.True(t, doc.RemoveChild(root))
	assert.Nil(t, doc.Root())
}

func TestSetID(t *testing.T) {
	doc := NewDocument("orm")
	root := New("Model")
	child := New("Table")
	require.NoError(t, root.AppendChild(child))
	require.NoError(t, doc.AppendChild(root))

	newID := uuid.New()
	require.NoError(t, root.SetID(newID))

	assert.Same(t, root, doc.Root())
	assert.Same(t, root, child.Parent())
	assert.Same(t, root, doc.ElementByID(newID))
}

func TestPropertyValues(t *testing.T) {
	label := NewProperty("Label", "")
	size := NewProperty("Length", int32(0))
	e := New("Node")

	t.Run("unset reads as default", func(t *testing.T) {
		assert.Equal(t, "", e.Get(label))
		assert.False(t, e.IsSet(label))
	})

	t.Run("set and reset", func(t *testing.T) {
		require.NoError(t, e.Set(label, "Hello"))
		assert.Equal(t, "Hello", e.Get(label))
		e.Reset(label)
		assert.Equal(t, "", e.Get(label))
	})

	t.Run("numeric values are coerced", func(t *testing.T) {
		require.NoError(t, e.Set(size, int64(12)))
		assert.Equal(t, int32(12), e.Get(size))
	})

	t.Run("mismatched values are rejected", func(t *testing.T) {
		assert.ErrorIs(t, e.Set(size, "twelve"), ErrTypeMismatch)
	})

	t.Run("lossy numbers are rejected", func(t *testing.T) {
		require.NoError(t, e.Set(size, int32(3)))
		assert.ErrorIs(t, e.Set(size, int64(5000000000)), ErrTypeMismatch)
		assert.ErrorIs(t, e.Set(size, 2.7), ErrTypeMismatch)
		assert.Equal(t, int32(3), e.Get(size))
	})
}

func TestLinkedElement(t *testing.T) {
	target := NewProperty("Target", nil, Linked())
	doc := NewDocument("orm")
	root := New("Model")
	a := New("Table")
	b := New("Table")
	require.NoError(t, root.AppendChild(a))
	require.NoError(t, root.AppendChild(b))
	require.NoError(t, doc.AppendChild(root))

	require.NoError(t, a.SetLink(target, b))
	assert.Same(t, b, a.LinkedElement(target))

	require.NoError(t, a.Set(target, Link{ElementID: uuid.New()}))
	assert.Nil(t, a.LinkedElement(target))

	assert.ErrorIs(t, a.Set(target, "not a link"), ErrTypeMismatch)
}

func TestLocalized(t *testing.T) {
	caption := NewProperty("Caption", nil, CultureSensitive())
	e := New("Table")

	require.NoError(t, e.SetText(caption, "en-US", "Customer"))
	require.NoError(t, e.SetText(caption, "pt-BR", "Cliente"))

	assert.Equal(t, "Customer", e.Text(caption, "en-US"))
	assert.Equal(t, "Cliente", e.Text(caption, "pt-BR"))
	assert.Equal(t, "Cliente", e.Text(caption, "pt"))
	assert.Equal(t, "Customer", e.Text(caption, "de-DE"))

	l := e.Get(caption).(Localized)
	assert.Equal(t, []string{"en-US", "pt-BR"}, l.Cultures())
	assert.False(t, caption.IsDefault(l))
	assert.True(t, caption.IsDefault(nil))
}

func TestPropertyType(t *testing.T) {
	assert.Equal(t, convert.TypeString, NewProperty("Label", "").Type())
	assert.Equal(t, convert.TypeInt32, NewProperty("Length", int32(0)).Type())
	assert.Equal(t, convert.TypeGuid, NewProperty("Ref", nil, Linked()).Type())
	assert.Equal(t, convert.TypeDecimal, NewProperty("Price", 0.0, WithTypeName(convert.TypeDecimal)).Type())
}
