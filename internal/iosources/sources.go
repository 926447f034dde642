// Package iosources reads sources.yaml from disk.
package iosources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnames/gnnub/pkg/config"
	"github.com/gnames/gnnub/pkg/sources"
	"gopkg.in/yaml.v3"
)

type iosources struct {
	path string
}

// New creates a loader of sources.yaml from the configuration directory.
func New(cfg *config.Config) sources.Sources {
	return NewWithPath(config.SourcesFilePath(cfg.HomeDir))
}

// NewWithPath creates a loader of a sources file at a given path.
func NewWithPath(path string) sources.Sources {
	return &iosources{path: path}
}

// Load reads, validates and returns the sources configuration.
func (s *iosources) Load() (*sources.SourcesConfig, error) {
	res, err := loadSourcesConfig(s.path)
	if err != nil {
		return nil, SourcesConfigError(s.path, err)
	}
	return res, nil
}

// loadSourcesConfig reads and validates sources.yaml from disk.
// It performs both data structure validation (via sources.SourcesConfig.Validate)
// and file system validation (directory existence checks).
func loadSourcesConfig(path string) (*sources.SourcesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources config file: %w", err)
	}

	var res sources.SourcesConfig
	if err = yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse sources config: %w", err)
	}

	if err = res.Validate(); err != nil {
		return nil, err
	}

	for i := range res.DataSources {
		ds := &res.DataSources[i]
		if ds.Exclude || sources.IsValidURL(ds.Parent) {
			continue
		}
		if ds.Parent, err = checkDir(ds.Parent); err != nil {
			return nil, fmt.Errorf("data source %d: %w", ds.ID, err)
		}
	}

	for _, w := range res.Warnings {
		slog.Warn("Source configuration warning",
			"source_id", w.DataSourceID,
			"field", w.Field,
			"message", w.Message,
			"suggestion", w.Suggestion)
	}

	return &res, nil
}

// checkDir expands ~ and checks that a local parent directory exists.
func checkDir(dir string) (string, error) {
	if rest, ok := strings.CutPrefix(dir, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand ~: %w", err)
		}
		dir = filepath.Join(home, rest)
	}

	stat, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("parent directory does not exist: %s", dir)
	}
	if err != nil {
		return "", fmt.Errorf("failed to check parent directory: %w", err)
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("parent path is not a directory: %s", dir)
	}
	return dir, nil
}
