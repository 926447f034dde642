// Package sources provides configuration and validation of the source
// checklists merged into the backbone.
//
// Sources are listed in sources.yaml. Every source is an SFGA (Standard
// Format for Global Archiving) archive found by its ID in a local
// directory or at a remote URL. The order of sources in the file is the
// order of import: names from earlier sources win when later sources
// match them.
package sources

// Sources loads the source configuration.
type Sources interface {
	Load() (*SourcesConfig, error)
}

// SourcesConfig represents the complete sources.yaml configuration file.
type SourcesConfig struct {
	// DataSources is the list of sources in import order.
	DataSources []DataSourceConfig `yaml:"data_sources"`

	// Warnings holds non-fatal validation warnings (not serialized)
	Warnings []ValidationWarning `yaml:"-"`
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	DataSourceID int    // ID of the data source
	Field        string // Field name that has the issue
	Message      string // Description of the issue
	Suggestion   string // How to fix it
}

// DataSourceConfig represents configuration for a single source checklist.
type DataSourceConfig struct {
	// ID identifies the data source. Convention: < 1000 = official, >= 1000 = custom
	ID int `yaml:"id"`

	// Parent is the directory or URL containing SFGA files for this source.
	// Auto-detected: starts with http:// or https:// = URL, otherwise = directory
	// SFGA files are matched by pattern: {4-digit-ID}*.zip or {ID}*.zip
	// Examples:
	//   - http://opendata.globalnames.org/sfga/latest/
	//   - /home/user/data/sfga/
	//   - ~/data/sfga/
	Parent string `yaml:"parent"`

	Title      string `yaml:"title,omitempty"`
	TitleShort string `yaml:"title_short,omitempty"`

	// Kingdom is used as the kingdom hint for usages of sources that do
	// not provide a kingdom, for example regional plant checklists.
	Kingdom string `yaml:"kingdom,omitempty"`

	// Exclude turns the source off without removing it from the file.
	Exclude bool `yaml:"exclude,omitempty"`
}

// FileMetadata contains metadata extracted from SFGA filename.
type FileMetadata struct {
	ID          int    // Extracted from filename
	Version     string // Extracted from filename (if present)
	ReleaseDate string // Extracted from filename in YYYY-MM-DD format (if present)
}

// Name returns the short title of a source, the title or a generic name.
func (d DataSourceConfig) Name() string {
	switch {
	case d.TitleShort != "":
		return d.TitleShort
	case d.Title != "":
		return d.Title
	}
	return "source"
}
