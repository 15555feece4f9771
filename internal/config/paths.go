package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit settings file
	EnvConfigPath = "DASE_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "dase.yaml"
	// ConfigDirName is the per-user and system directory name
	ConfigDirName = "dase"
)

// userConfigDir is $XDG_CONFIG_HOME, else ~/.config, else empty
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config")
	}
	return ""
}

// settingsCandidates lists settings locations, highest priority first
func settingsCandidates() []string {
	var out []string
	if env := os.Getenv(EnvConfigPath); env != "" {
		out = append(out, env)
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		out = append(out, abs)
	} else {
		out = append(out, ConfigFileName)
	}
	if dir := userConfigDir(); dir != "" {
		out = append(out, filepath.Join(dir, ConfigDirName, "config.yaml"))
	}
	return append(out, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing settings file, or "" when there
// is none. See the package documentation for the search order.
func FindConfigPath() string {
	for _, path := range settingsCandidates() {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// DefaultConfigPath is where `dase config init` writes a new settings file
func DefaultConfigPath() string {
	if dir := userConfigDir(); dir != "" {
		return filepath.Join(dir, ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the directory holding configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
