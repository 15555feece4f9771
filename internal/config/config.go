// Package config holds the two configuration layers of dase.
//
// Settings configure the tool itself and are read from a YAML file:
//  1. $DASE_CONFIG
//  2. ./dase.yaml
//  3. ~/.config/dase/config.yaml
//  4. /etc/dase/config.yaml
//
// The Manager resolves per-project configuration such as ORM type tables
// from .DASE/{Target}.{Group}.json files found by walking up from a
// document's directory.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"dase/internal/serialization"
)

// Load finds and loads the settings file, or returns defaults if none found
func Load() (*Settings, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultSettings(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads settings from a specific path
func LoadFromPath(path string) (*Settings, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, errors.Wrap(err, "read config")
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, path, errors.Wrap(err, "parse config")
	}

	s.applyDefaults()

	return &s, path, nil
}

// Save writes settings to the specified path
func (s *Settings) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultSettings returns the settings of a fresh installation
func DefaultSettings() *Settings {
	return &Settings{
		Version: 1,
		Culture: "en-US",
		Database: DatabaseConfig{
			Path:        "./dase.db",
			BusyTimeout: Duration(5 * time.Second),
		},
	}
}

func (s *Settings) applyDefaults() {
	def := DefaultSettings()
	if s.Version == 0 {
		s.Version = def.Version
	}
	if s.Culture == "" {
		s.Culture = def.Culture
	}
	if s.Database.Path == "" {
		s.Database.Path = def.Database.Path
	}
	if s.Database.BusyTimeout == 0 {
		s.Database.BusyTimeout = def.Database.BusyTimeout
	}
}

// EngineOptions translates the settings into serialization options
func (s *Settings) EngineOptions() []serialization.Option {
	ser := s.Serialization
	opts := []serialization.Option{
		serialization.WithStrictMode(ser.StrictMode),
		serialization.WithIgnoreUnknownProperties(ser.IgnoreUnknownProperties),
	}
	if s.Culture != "" {
		opts = append(opts, serialization.WithCulture(s.Culture))
	}
	if ser.IgnoreUnknownElements != nil {
		opts = append(opts, serialization.WithIgnoreUnknownElements(*ser.IgnoreUnknownElements))
	}
	if ser.Indent != nil {
		opts = append(opts, serialization.WithIndent(*ser.Indent))
	}
	if ser.XMLDeclaration != nil {
		opts = append(opts, serialization.WithXMLDeclaration(*ser.XMLDeclaration))
	}
	return opts
}
