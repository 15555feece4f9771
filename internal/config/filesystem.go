package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileSystem is the storage the Manager searches. IO methods take a context;
// path helpers are pure.
type FileSystem interface {
	FileExists(ctx context.Context, path string) (bool, error)
	DirectoryExists(ctx context.Context, path string) (bool, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	CreateDirectory(ctx context.Context, path string) error

	ParentDirectory(path string) string
	JoinPath(elem ...string) string
	DirectoryName(path string) string
	IsRootPath(path string) bool
}

// OSFileSystem is the FileSystem of the host. Paths are cleaned with
// filepath.Clean; a path is a root when its parent is itself.
type OSFileSystem struct{}

var _ FileSystem = OSFileSystem{}

func (OSFileSystem) FileExists(ctx context.Context, path string) (bool, error) {
	return statKind(ctx, path, false)
}

func (OSFileSystem) DirectoryExists(ctx context.Context, path string) (bool, error) {
	return statKind(ctx, path, true)
}

func (OSFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (OSFileSystem) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (OSFileSystem) CreateDirectory(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(path, 0755)
}

func (OSFileSystem) ParentDirectory(path string) string {
	return filepath.Dir(filepath.Clean(path))
}

// JoinPath joins elem and resolves the result against the working directory
func (OSFileSystem) JoinPath(elem ...string) string {
	joined := filepath.Join(elem...)
	if abs, err := filepath.Abs(joined); err == nil {
		return abs
	}
	return joined
}

func (OSFileSystem) DirectoryName(path string) string {
	return filepath.Dir(path)
}

func (OSFileSystem) IsRootPath(path string) bool {
	clean := filepath.Clean(path)
	return filepath.Dir(clean) == clean
}

func statKind(ctx context.Context, path string, dir bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", path)
	}
	return info.IsDir() == dir, nil
}
