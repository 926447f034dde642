package config

import (
	"path/filepath"
)

var (
	// MinVersionSFGA determines the SFGA version which is still compatible
	// with gnnub. Versions higher than minimal are all supported.
	MinVersionSFGA = "v0.3.30"
	// AppName is used in generating file system paths.
	AppName = "gnnub"
)

// ConfigDir returns the directory path for configuration files.
// Returns ~/.config/gnnub by default.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", AppName)
}

// CacheDir returns the directory path for cache files.
// Returns ~/.cache/gnnub by default.
func CacheDir(homeDir string) string {
	return filepath.Join(homeDir, ".cache", AppName)
}

// LogDir returns the directory path for log files.
// Returns ~/.local/share/gnnub/logs by default.
func LogDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName, "logs")
}

// DataDir returns the directory for the persisted backbone.
// Returns ~/.local/share/gnnub by default.
func DataDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName)
}

// ConfigFilePath returns the full path to the config.yaml file.
// Returns ~/.config/gnnub/config.yaml by default.
func ConfigFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "config.yaml")
}

// SourcesFilePath returns the full path to the sources.yaml file.
func SourcesFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "sources.yaml")
}

// PolicyFilePath returns the full path to the policy.yaml file with
// the blacklist and homonym exclusions.
func PolicyFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "policy.yaml")
}

// GraphFilePath returns the path of the SQLite file with the backbone.
func GraphFilePath(homeDir string) string {
	return filepath.Join(DataDir(homeDir), "backbone.sqlite")
}

// SFGADir returns the directory where downloaded SFGA archives are kept.
func SFGADir(homeDir string) string {
	return filepath.Join(CacheDir(homeDir), "sfga")
}

// LookupDir returns the directory of the lookup store. Build.LookupDir
// wins when it is set.
func (c *Config) LookupDir() string {
	if c.Build.LookupDir != "" {
		return c.Build.LookupDir
	}
	return filepath.Join(CacheDir(c.HomeDir), "lookup")
}
