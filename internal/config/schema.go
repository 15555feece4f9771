package config

import (
	"time"
)

// Settings is the root of the dase tool configuration file
type Settings struct {
	Version       int                 `yaml:"version"`
	Culture       string              `yaml:"culture"`
	Database      DatabaseConfig      `yaml:"database"`
	Serialization SerializationConfig `yaml:"serialization"`
}

// DatabaseConfig holds document store settings
type DatabaseConfig struct {
	Path        string   `yaml:"path"`
	BusyTimeout Duration `yaml:"busy_timeout,omitempty"`
}

// SerializationConfig overrides engine defaults. Nil pointers keep the
// engine default.
type SerializationConfig struct {
	StrictMode              bool    `yaml:"strict_mode"`
	IgnoreUnknownElements   *bool   `yaml:"ignore_unknown_elements,omitempty"`
	IgnoreUnknownProperties bool    `yaml:"ignore_unknown_properties"`
	Indent                  *string `yaml:"indent,omitempty"`
	XMLDeclaration          *bool   `yaml:"xml_declaration,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
