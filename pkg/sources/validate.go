package sources

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for errors and collects warnings.
func (c *SourcesConfig) Validate() error {
	if len(c.DataSources) == 0 {
		return fmt.Errorf("no data sources specified in configuration")
	}

	seen := make(map[int]struct{}, len(c.DataSources))
	for i := range c.DataSources {
		ds := &c.DataSources[i]
		warnings, err := ds.Validate()
		if err != nil {
			return fmt.Errorf("data source %d: %w", i+1, err)
		}
		if _, ok := seen[ds.ID]; ok {
			return fmt.Errorf("data source %d: duplicate id %d", i+1, ds.ID)
		}
		seen[ds.ID] = struct{}{}
		c.Warnings = append(c.Warnings, warnings...)
	}

	return nil
}

// Validate checks a single data source configuration for data structure validity.
// File system validation (directory existence) is deferred to runtime (I/O layer).
// Returns a slice of warnings (non-fatal issues) and an error (fatal issues).
func (d *DataSourceConfig) Validate() ([]ValidationWarning, error) {
	var warnings []ValidationWarning
	if d.ID <= 0 {
		return nil, fmt.Errorf("id is required and must be positive")
	}

	d.Parent = strings.TrimSpace(d.Parent)
	if d.Parent == "" {
		return nil, fmt.Errorf("parent directory or URL is required")
	}

	if d.Title == "" && d.TitleShort == "" {
		warnings = append(warnings, ValidationWarning{
			DataSourceID: d.ID,
			Field:        "title",
			Message:      "source has no title",
			Suggestion:   "Add 'title_short' to make build reports readable",
		})
	}

	d.Kingdom = strings.TrimSpace(d.Kingdom)
	return warnings, nil
}
