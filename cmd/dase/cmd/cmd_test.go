package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dase/internal/orm"
)

// workspace chdirs into a fresh directory holding a settings file and an
// XML model with one misspelled data type
func workspace(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	cfg := filepath.Join(dir, "dase.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("database:\n  path: "+filepath.Join(dir, "store.db")+"\n"), 0644))
	rootOpt = rootOpts{cfgFile: cfg}
	t.Cleanup(func() { rootOpt = rootOpts{} })

	a, err := newApp()
	require.NoError(t, err)

	b := orm.NewBuilder(a.registry)
	model, err := b.Model("Shop")
	require.NoError(t, err)
	customer, err := b.Table(model, "Customer")
	require.NoError(t, err)
	id, err := b.Field(customer, "Id", "Int32")
	require.NoError(t, err)
	require.NoError(t, id.Set(orm.IsPrimaryKey, true))
	_, err = b.Field(customer, "Name", "string")
	require.NoError(t, err)

	require.NoError(t, a.writeTree(model, "shop.dase", ""))
	return a
}

func run(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path, override, want string
	}{
		{"a.dase", "", "xml"},
		{"a.XML", "", "xml"},
		{"a.json", "", "json"},
		{"a.yml", "", "yaml"},
		{"a.yaml", "", "yaml"},
		{"-", "json", "json"},
		{"a.json", "yaml", "yaml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatOf(tt.path, tt.override), tt.path)
	}
}

func TestShortDigest(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortDigest("0123456789abcdef"))
	assert.Equal(t, "abc", shortDigest("abc"))
}

func TestValidateCmd(t *testing.T) {
	workspace(t)
	require.NoError(t, os.WriteFile("bad.dase", []byte("<Model><Widget/></Model>"), 0644))

	out, err := run(t, NewValidateCmd(), "shop.dase")
	require.NoError(t, err)
	assert.Contains(t, out, "shop.dase: ok")

	out, err = run(t, NewValidateCmd(), "shop.dase", "bad.dase", "missing.dase")
	require.Error(t, err)
	assert.Contains(t, out, "Widget")
	assert.Contains(t, err.Error(), "missing.dase")
}

func TestConvertCmd(t *testing.T) {
	a := workspace(t)

	_, err := run(t, NewConvertCmd(), "shop.dase", "shop.json")
	require.NoError(t, err)
	_, err = run(t, NewConvertCmd(), "shop.json", "shop.out", "--to", "yaml")
	require.NoError(t, err)

	orig, err := a.readTree("shop.dase", "")
	require.NoError(t, err)
	got, err := a.readTree("shop.out", "yaml")
	require.NoError(t, err)
	assert.Equal(t, orig.ID(), got.ID())
	require.Len(t, orm.Tables(got), 1)
	assert.Len(t, orm.Fields(orm.Tables(got)[0]), 2)
}

func TestCheckCmd(t *testing.T) {
	a := workspace(t)

	out, err := run(t, NewCheckCmd(), "shop.dase")
	require.Error(t, err)
	assert.Contains(t, out, `unknown data type "string"`)
	assert.Contains(t, out, "fix: Use String")

	_, err = run(t, NewCheckCmd(), "shop.dase", "--fix")
	require.NoError(t, err)

	root, err := a.readTree("shop.dase", "")
	require.NoError(t, err)
	fields := orm.Fields(orm.Tables(root)[0])
	assert.Equal(t, "String", fields[1].Get(orm.DataType))

	_, err = os.Stat(filepath.Join(".DASE", "ORM.Types.json"))
	assert.NoError(t, err)
}

func TestStoreCmd(t *testing.T) {
	workspace(t)

	out, err := run(t, NewStoreCmd(), "save", "shop.dase")
	require.NoError(t, err)
	assert.Contains(t, out, "Shop")

	out, err = run(t, NewStoreCmd(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Shop")

	_, err = run(t, NewStoreCmd(), "load", "Shop", "copy.json")
	require.NoError(t, err)
	data, err := os.ReadFile("copy.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tag": "Model"`)

	out, err = run(t, NewStoreCmd(), "check", "Shop")
	require.Error(t, err)
	assert.Contains(t, out, "1 errors")

	_, err = run(t, NewStoreCmd(), "delete", "Shop", "Nowhere")
	require.NoError(t, err)

	_, err = run(t, NewStoreCmd(), "load", "Shop")
	assert.Error(t, err)
}
