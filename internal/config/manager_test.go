package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFS is an in-memory FileSystem that counts IO calls
type memFS struct {
	files map[string][]byte
	dirs  map[string]bool
	calls int
}

func newMemFS(dirs ...string) *memFS {
	fs := &memFS{files: make(map[string][]byte), dirs: map[string]bool{"/": true}}
	for _, d := range dirs {
		fs.mkdir(d)
	}
	return fs
}

func (m *memFS) mkdir(dir string) {
	for d := filepath.Clean(dir); !m.dirs[d]; d = filepath.Dir(d) {
		m.dirs[d] = true
	}
}

func (m *memFS) put(path, content string) {
	m.mkdir(filepath.Dir(path))
	m.files[filepath.Clean(path)] = []byte(content)
}

func (m *memFS) FileExists(_ context.Context, path string) (bool, error) {
	m.calls++
	_, ok := m.files[path]
	return ok, nil
}

func (m *memFS) DirectoryExists(_ context.Context, path string) (bool, error) {
	m.calls++
	return m.dirs[path], nil
}

func (m *memFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	m.calls++
	data, ok := m.files[path]
	if !ok {
		return nil, errors.Errorf("%s: not found", path)
	}
	return data, nil
}

func (m *memFS) WriteFile(_ context.Context, path string, data []byte) error {
	m.calls++
	if !m.dirs[filepath.Dir(path)] {
		return errors.Errorf("%s: no parent directory", path)
	}
	m.files[path] = data
	return nil
}

func (m *memFS) CreateDirectory(_ context.Context, path string) error {
	m.calls++
	m.mkdir(path)
	return nil
}

func (m *memFS) ParentDirectory(path string) string { return filepath.Dir(filepath.Clean(path)) }
func (m *memFS) JoinPath(elem ...string) string     { return filepath.Join(elem...) }
func (m *memFS) DirectoryName(path string) string   { return filepath.Dir(path) }
func (m *memFS) IsRootPath(path string) bool        { return filepath.Dir(path) == path }

func TestNoFileSystem(t *testing.T) {
	m := NewManager(nil)
	_, err := m.GetConfiguration(context.Background(), TargetORM, GroupTypes, "/repo")
	assert.ErrorIs(t, err, ErrNoFileSystem)

	fs := newMemFS("/repo")
	m.SetFileSystem(fs)
	_, err = m.GetConfiguration(context.Background(), TargetORM, GroupTypes, "/repo")
	assert.NoError(t, err)
}

func TestClosestFileWins(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS("/repo/.git", "/repo/a/b/c")
	fs.put("/repo/.DASE/ORM.Types.json", `{"version": 1, "types": []}`)
	fs.put("/repo/a/.DASE/ORM.Types.json", `{"version": 2, "types": [{"name": "Int32", "canBePrimaryKey": true}]}`)

	m := NewManager(fs)
	entry, err := m.GetConfiguration(ctx, TargetORM, GroupTypes, "/repo/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "/repo/a/.DASE/ORM.Types.json", entry.Path)

	types, ok := entry.Value.(*TypesConfiguration)
	require.True(t, ok)
	assert.Equal(t, 2, types.Version)

	calls := fs.calls
	again, err := m.GetConfiguration(ctx, TargetORM, GroupTypes, "/repo/a/b/c/")
	require.NoError(t, err)
	assert.Same(t, entry, again)
	assert.Equal(t, calls, fs.calls)
}

func TestDefaultIsWrittenAtRepoRoot(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS("/work/.git", "/work/repo/.git", "/work/repo/src/pkg")

	m := NewManager(fs)
	types, err := m.ORMTypes(ctx, "/work/repo/src/pkg")
	require.NoError(t, err)
	assert.Equal(t, DefaultTypesConfiguration(), types)

	// the highest repository wins
	data, ok := fs.files["/work/.DASE/ORM.Types.json"]
	require.True(t, ok)
	assert.Contains(t, string(data), `"name": "Int32"`)

	m.InvalidateAll()
	entry, err := m.GetConfiguration(ctx, TargetORM, GroupTypes, "/work/repo/src/pkg")
	require.NoError(t, err)
	assert.Equal(t, "/work/.DASE/ORM.Types.json", entry.Path)
	assert.Equal(t, DefaultTypesConfiguration(), entry.Value)
}

func TestDefaultWithoutRepository(t *testing.T) {
	fs := newMemFS("/data/docs")
	m := NewManager(fs)

	entry, err := m.GetConfiguration(context.Background(), TargetORM, GroupTypes, "/data/docs")
	require.NoError(t, err)
	assert.Equal(t, "/data/docs/.DASE/ORM.Types.json", entry.Path)
	assert.Contains(t, fs.files, "/data/docs/.DASE/ORM.Types.json")
}

func TestContextPathMayBeAFile(t *testing.T) {
	fs := newMemFS("/repo/models")
	fs.put("/repo/models/.DASE/ORM.Types.json", `{"version": 7}`)
	fs.put("/repo/models/shop.dase", "<Model/>")

	types, err := NewManager(fs).ORMTypes(context.Background(), "/repo/models/shop.dase")
	require.NoError(t, err)
	assert.Equal(t, 7, types.Version)
}

type uiTheme struct {
	Accent string `json:"accent"`
}

func TestUnregisteredConfiguration(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS("/repo")
	m := NewManager(fs)

	_, err := m.GetConfiguration(ctx, "UI", "Theme", "/repo")
	assert.ErrorIs(t, err, ErrConfigurationNotFound)

	fs.put("/repo/.DASE/UI.Theme.json", `{"accent": "teal"}`)
	entry, err := m.GetConfiguration(ctx, "UI", "Theme", "/repo")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"accent": "teal"}, entry.Value)

	theme, err := Get[uiTheme](ctx, m, "UI", "Theme", "/repo")
	require.NoError(t, err)
	assert.Equal(t, "teal", theme.Accent)
}

func TestRegisterDefault(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS("/repo")
	m := NewManager(fs)
	RegisterDefault(m, "UI", "Theme", func() uiTheme { return uiTheme{Accent: "blue"} })

	theme, err := Get[uiTheme](ctx, m, "UI", "Theme", "/repo")
	require.NoError(t, err)
	assert.Equal(t, "blue", theme.Accent)
	assert.Contains(t, fs.files, "/repo/.DASE/UI.Theme.json")
}

func TestInvalidation(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS("/repo/a", "/repo/b")
	fs.put("/repo/.DASE/ORM.Types.json", `{"version": 1}`)
	fs.put("/repo/.DASE/UI.Theme.json", `{"accent": "red"}`)
	m := NewManager(fs)

	load := func(target, group, path string) {
		_, err := m.GetConfiguration(ctx, target, group, path)
		require.NoError(t, err)
	}
	load(TargetORM, GroupTypes, "/repo/a")
	load(TargetORM, GroupTypes, "/repo/b")
	load("UI", "Theme", "/repo/a")

	calls := fs.calls
	m.Invalidate(TargetORM, GroupTypes, "/repo/a")
	load(TargetORM, GroupTypes, "/repo/b")
	assert.Equal(t, calls, fs.calls)
	load(TargetORM, GroupTypes, "/repo/a")
	assert.Greater(t, fs.calls, calls)

	calls = fs.calls
	m.InvalidateTarget(TargetORM)
	load("UI", "Theme", "/repo/a")
	assert.Equal(t, calls, fs.calls)
	load(TargetORM, GroupTypes, "/repo/b")
	assert.Greater(t, fs.calls, calls)
}

func TestInvalidateFile(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS("/repo/a", "/repo/b")
	fs.put("/repo/.DASE/ORM.Types.json", `{"version": 1}`)
	fs.put("/repo/b/.DASE/UI.Theme.json", `{"accent": "red"}`)
	m := NewManager(fs)

	for _, path := range []string{"/repo/a", "/repo/b"} {
		_, err := m.ORMTypes(ctx, path)
		require.NoError(t, err)
	}
	_, err := m.GetConfiguration(ctx, "UI", "Theme", "/repo/b")
	require.NoError(t, err)

	assert.Equal(t, []string{"/repo/.DASE/ORM.Types.json", "/repo/b/.DASE/UI.Theme.json"}, m.Files())

	fs.put("/repo/.DASE/ORM.Types.json", `{"version": 2}`)
	assert.Equal(t, 2, m.InvalidateFile("/repo/.DASE/ORM.Types.json"))
	assert.Equal(t, 0, m.InvalidateFile("/repo/.DASE/ORM.Types.json"))
	assert.Equal(t, []string{"/repo/b/.DASE/UI.Theme.json"}, m.Files())

	types, err := m.ORMTypes(ctx, "/repo/a")
	require.NoError(t, err)
	assert.Equal(t, 2, types.Version)
}

func TestTypesConfiguration(t *testing.T) {
	c := DefaultTypesConfiguration()

	names := func(defs []TypeDefinition) []string {
		out := make([]string, len(defs))
		for i, d := range defs {
			out[i] = d.Name
		}
		return out
	}
	assert.Equal(t, []string{"Int32", "Int64", "String", "Guid"}, names(c.PrimaryKeyTypes()))
	assert.Equal(t, []string{"Int32", "Int64"}, names(c.AutoIncrementTypes()))
	assert.Equal(t, []string{"Decimal", "String", "Binary"}, names(c.LengthTypes()))
	assert.Equal(t, []string{"Decimal"}, names(c.ScaleTypes()))

	dec, ok := c.TypeByName("Decimal")
	require.True(t, ok)
	assert.Equal(t, 2, dec.DefaultScale)
	_, ok = c.TypeByName("Money")
	assert.False(t, ok)
	assert.Len(t, c.Names(), 10)
}

func TestOSFileSystem(t *testing.T) {
	ctx := context.Background()
	fs := OSFileSystem{}
	dir := t.TempDir()

	m := NewManager(fs)
	types, err := m.ORMTypes(ctx, dir)
	require.NoError(t, err)
	assert.NotEmpty(t, types.Types)

	ok, err := fs.FileExists(ctx, filepath.Join(dir, DirName, FileName(TargetORM, GroupTypes)))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fs.DirectoryExists(ctx, filepath.Join(dir, DirName))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, fs.IsRootPath("/"))
	assert.False(t, fs.IsRootPath(dir))
	assert.Equal(t, "/a", fs.ParentDirectory("/a/b/"))
}

func TestOSFileSystemResolvesRelativePaths(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	sub := filepath.Join(root, "models", "shop")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, DirName), 0755))
	custom := filepath.Join(root, DirName, FileName(TargetORM, GroupTypes))
	require.NoError(t, os.WriteFile(custom, []byte(`{"version": 1, "types": [{"name": "Money"}]}`), 0644))
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(sub))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	m := NewManager(OSFileSystem{})
	entry, err := m.GetConfiguration(ctx, TargetORM, GroupTypes, ".")
	require.NoError(t, err)
	assert.Equal(t, custom, entry.Path)

	types, err := m.ORMTypes(ctx, "../shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"Money"}, types.Names())

	_, err = os.Stat(filepath.Join(sub, DirName))
	assert.True(t, os.IsNotExist(err))
}
