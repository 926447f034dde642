// Package config keeps settings of gnnub.
//
// A Config made by New is valid. It changes only through Option
// functions applied by Update, options with invalid values are ignored
// with a warning, so the Config stays valid.
//
// Values come from built-in defaults, config.yaml, GNNUB_* environment
// variables and command line flags, later sources win. ToOptions returns
// options for the fields that can be stored in config.yaml, environment
// variables exist for the same fields:
//
//	GNNUB_DATABASE_HOST=localhost
//	GNNUB_BUILD_MAX_SYNONYM_CHAIN=10
//	GNNUB_LOG_LEVEL=info
//	GNNUB_JOBS_NUMBER=8
//
// Build.DatasetIDs and HomeDir are runtime-only, they are set by CLI.
package config

import (
	"runtime"
)

// Config is the complete configuration of gnnub.
type Config struct {
	// Database is used only when Build.WithDatabase is true.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	Build BuildConfig `mapstructure:"build" yaml:"build"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of name-parsing workers of an import.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir is the root of config, cache and data directories.
	HomeDir string
}

// DatabaseConfig describes the PostgreSQL database for source usages and
// their backbone mappings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode is one of disable, require, verify-ca, verify-full.
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`

	// BatchSize is the number of rows sent in one COPY operation.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// BuildConfig contains settings of the backbone build.
type BuildConfig struct {
	// LookupDir overrides the location of the lookup store.
	LookupDir string `mapstructure:"lookup_dir" yaml:"lookup_dir"`

	// MaxSynonymChain is the number of synonyms that can be followed
	// to reach an accepted name. Longer chains are treated as cycles.
	MaxSynonymChain int `mapstructure:"max_synonym_chain" yaml:"max_synonym_chain"`

	// FirstKey is the first key of a new backbone. Keys of an existing
	// backbone continue after the largest key ever used.
	FirstKey int `mapstructure:"first_key" yaml:"first_key"`

	// WithDatabase enables saving of source usages and mappings to
	// PostgreSQL.
	WithDatabase bool `mapstructure:"with_database" yaml:"with_database"`

	// DatasetIDs selects sources to import. Empty means all sources of
	// sources.yaml that are not excluded.
	DatasetIDs []int `mapstructure:"dataset_ids" yaml:"dataset_ids"`
}

// LogConfig describes the application log.
type LogConfig struct {
	// Format is json, text or tint.
	Format string `mapstructure:"format" yaml:"format"`

	// Level is debug, info, warn or error.
	Level string `mapstructure:"level" yaml:"level"`

	// Destination is file, stdout or stderr. The file is created in
	// the log directory.
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New returns a Config with default values.
func New() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:      "localhost",
			Port:      5432,
			User:      "postgres",
			Password:  "postgres",
			Database:  "gnnub",
			SSLMode:   "disable",
			BatchSize: 50_000,
		},
		Build: BuildConfig{
			MaxSynonymChain: 10,
			FirstKey:        1,
		},
		Log: LogConfig{
			Format:      "json",
			Level:       "info",
			Destination: "file",
		},
		JobsNumber: runtime.NumCPU(),
	}
}
