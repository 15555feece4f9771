package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DirName is the per-project configuration directory
const DirName = ".DASE"

var (
	// ErrNoFileSystem is returned when the manager has no filesystem adapter
	ErrNoFileSystem = errors.New("configuration missing: no filesystem adapter")
	// ErrConfigurationNotFound is returned when no file exists and no default is registered
	ErrConfigurationNotFound = errors.New("configuration not found")
)

// Entry is a resolved configuration
type Entry struct {
	Target   string
	Group    string
	Path     string
	LoadedAt time.Time
	Payload  json.RawMessage
	// Value is the payload decoded into the registered default's type, or
	// into map[string]any when no default is registered
	Value any
}

type defaultFactory struct {
	create func() any
	decode func([]byte) (any, error)
}

// Manager resolves and caches .DASE configuration files. Entries stay cached
// until invalidated.
type Manager struct {
	mu       sync.RWMutex
	fs       FileSystem
	cache    map[string]*Entry
	defaults map[string]defaultFactory
}

// NewManager creates a manager over fs with the ORM type table default
// registered
func NewManager(fs FileSystem) *Manager {
	m := &Manager{
		fs:       fs,
		cache:    make(map[string]*Entry),
		defaults: make(map[string]defaultFactory),
	}
	RegisterDefault(m, TargetORM, GroupTypes, DefaultTypesConfiguration)
	return m
}

// SetFileSystem replaces the filesystem adapter and drops the cache
func (m *Manager) SetFileSystem(fs FileSystem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fs = fs
	m.cache = make(map[string]*Entry)
}

// RegisterDefault installs the factory used when no file for target and
// group exists. Files found on disk are decoded into T.
func RegisterDefault[T any](m *Manager, target, group string, factory func() T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults[defaultKey(target, group)] = defaultFactory{
		create: func() any { return factory() },
		decode: func(data []byte) (any, error) {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Get resolves a configuration and returns its value as T
func Get[T any](ctx context.Context, m *Manager, target, group, contextPath string) (T, error) {
	var zero T
	entry, err := m.GetConfiguration(ctx, target, group, contextPath)
	if err != nil {
		return zero, err
	}
	if v, ok := entry.Value.(T); ok {
		return v, nil
	}
	var v T
	if err := json.Unmarshal(entry.Payload, &v); err != nil {
		return zero, errors.Wrapf(err, "decode %s", entry.Path)
	}
	return v, nil
}

// FileName returns the file name holding target and group
func FileName(target, group string) string {
	return fmt.Sprintf("%s.%s.json", target, group)
}

// GetConfiguration returns the configuration closest to contextPath. It
// walks upward looking for .DASE/{Target}.{Group}.json; the first match wins.
// On a miss the registered default is written under the highest enclosing
// git repository (or contextPath when there is none) and returned.
func (m *Manager) GetConfiguration(ctx context.Context, target, group, contextPath string) (*Entry, error) {
	m.mu.RLock()
	fs := m.fs
	m.mu.RUnlock()
	if fs == nil {
		return nil, ErrNoFileSystem
	}

	start := fs.JoinPath(contextPath)
	key := cacheKey(target, group, start)

	m.mu.RLock()
	cached, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return cached, nil
	}

	file := FileName(target, group)
	dir := start
	if isFile, err := fs.FileExists(ctx, start); err != nil {
		return nil, err
	} else if isFile {
		dir = fs.DirectoryName(start)
	}
	base := dir

	var repoRoot string
	for {
		candidate := fs.JoinPath(dir, DirName, file)
		found, err := fs.FileExists(ctx, candidate)
		if err != nil {
			return nil, errors.Wrapf(err, "probe %s", candidate)
		}
		if found {
			entry, err := m.load(ctx, fs, target, group, candidate)
			if err != nil {
				return nil, err
			}
			return m.store(key, entry), nil
		}

		isRepo, err := fs.DirectoryExists(ctx, fs.JoinPath(dir, ".git"))
		if err != nil {
			return nil, errors.Wrapf(err, "probe %s", dir)
		}
		if isRepo {
			repoRoot = dir
		}

		if fs.IsRootPath(dir) {
			break
		}
		parent := fs.ParentDirectory(dir)
		if parent == "" || parent == dir {
			break
		}
		dir = parent
	}

	if repoRoot != "" {
		base = repoRoot
	}
	entry, err := m.bootstrap(ctx, fs, target, group, fs.JoinPath(base, DirName))
	if err != nil {
		return nil, err
	}
	return m.store(key, entry), nil
}

func (m *Manager) load(ctx context.Context, fs FileSystem, target, group, path string) (*Entry, error) {
	data, err := fs.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	m.mu.RLock()
	def, hasDefault := m.defaults[defaultKey(target, group)]
	m.mu.RUnlock()

	var value any
	if hasDefault {
		value, err = def.decode(data)
	} else {
		var generic map[string]any
		err = json.Unmarshal(data, &generic)
		value = generic
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	logrus.Debugf("loaded configuration %s", path)
	return &Entry{Target: target, Group: group, Path: path, LoadedAt: time.Now(), Payload: data, Value: value}, nil
}

// bootstrap writes the registered default into dir. A failed write is
// logged and the default is still served.
func (m *Manager) bootstrap(ctx context.Context, fs FileSystem, target, group, dir string) (*Entry, error) {
	m.mu.RLock()
	def, ok := m.defaults[defaultKey(target, group)]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrConfigurationNotFound, "%s", FileName(target, group))
	}

	value := def.create()
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "marshal default %s", FileName(target, group))
	}

	path := fs.JoinPath(dir, FileName(target, group))
	if err := fs.CreateDirectory(ctx, dir); err != nil {
		logrus.Warnf("cannot create %s: %v", dir, err)
	} else if err := fs.WriteFile(ctx, path, data); err != nil {
		logrus.Warnf("cannot write default configuration %s: %v", path, err)
	} else {
		logrus.Infof("wrote default configuration %s", path)
	}

	return &Entry{Target: target, Group: group, Path: path, LoadedAt: time.Now(), Payload: data, Value: value}, nil
}

func (m *Manager) store(key string, entry *Entry) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = entry
	return entry
}

// Invalidate drops the cached entry for one lookup
func (m *Manager) Invalidate(target, group, contextPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fs == nil {
		return
	}
	delete(m.cache, cacheKey(target, group, m.fs.JoinPath(contextPath)))
}

// InvalidateTarget drops every cached entry of target
func (m *Manager) InvalidateTarget(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := target + ":"
	for key := range m.cache {
		if strings.HasPrefix(key, prefix) {
			delete(m.cache, key)
		}
	}
}

// InvalidateFile drops every cached entry that was resolved from path and
// reports how many were dropped
func (m *Manager) InvalidateFile(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key, entry := range m.cache {
		if entry.Path == path {
			delete(m.cache, key)
			n++
		}
	}
	return n
}

// Files returns the distinct files backing cached entries, sorted
func (m *Manager) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var files []string
	for _, entry := range m.cache {
		if entry.Path != "" && !seen[entry.Path] {
			seen[entry.Path] = true
			files = append(files, entry.Path)
		}
	}
	sort.Strings(files)
	return files
}

// InvalidateAll empties the cache
func (m *Manager) InvalidateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*Entry)
}

// ORMTypes returns the ORM type table for contextPath
func (m *Manager) ORMTypes(ctx context.Context, contextPath string) (*TypesConfiguration, error) {
	return Get[*TypesConfiguration](ctx, m, TargetORM, GroupTypes, contextPath)
}

func cacheKey(target, group, path string) string {
	return target + ":" + group + ":" + path
}

func defaultKey(target, group string) string {
	return target + ":" + group
}
