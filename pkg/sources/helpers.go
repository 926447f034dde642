package sources

import (
	"fmt"
	"maps"
	"net/url"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	idRe      = regexp.MustCompile(`^(\d{4})`)
	dateRe    = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
	versionRe = regexp.MustCompile(`^_(.+?)\.(?:sql|sqlite)$`)
)

// ParseFilename extracts metadata from SFGA filename.
// Expected format: {id}_{name}_{date}_{version}.(sql|sqlite)[.zip]
// Examples:
//   - 0001_col_2025-10-03_v2024.1.sqlite.zip  → ID=1, Date=2025-10-03, Version=v2024.1
//   - 0003_worms_2025-01-01.sqlite            → ID=3, Date=2025-01-01, Version=""
//   - 1001.sql                                 → ID=1001, Date="", Version=""
func ParseFilename(path string) FileMetadata {
	var res FileMetadata

	filename := strings.TrimSuffix(filepath.Base(path), ".zip")

	if m := idRe.FindStringSubmatch(filename); len(m) > 1 {
		if id, err := strconv.Atoi(m[1]); err == nil {
			res.ID = id
		}
	}

	if m := dateRe.FindStringSubmatch(filename); len(m) > 1 {
		res.ReleaseDate = m[1]
	}

	if res.ReleaseDate != "" {
		idx := strings.Index(filename, res.ReleaseDate)
		after := filename[idx+len(res.ReleaseDate):]
		if m := versionRe.FindStringSubmatch(after); len(m) > 1 {
			res.Version = m[1]
		}
	}

	return res
}

// IsValidURL checks if a string is a valid URL.
func IsValidURL(str string) bool {
	u, err := url.Parse(str)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// IDs returns IDs of sources that are not excluded, in import order.
func IDs(sources []DataSourceConfig) []int {
	var res []int
	for _, v := range sources {
		if !v.Exclude {
			res = append(res, v.ID)
		}
	}
	return res
}

// Filter filters data sources based on the filter string.
// Returns filtered sources, warnings (for user display), and error (for fatal issues).
// Supported filters:
//   - "main": Returns sources with ID < 1000 (official sources)
//   - "exclude main": Returns sources with ID >= 1000 (custom sources)
//   - "1,3,5": Returns sources with specified IDs (comma-separated)
//   - "180-208": Returns sources with IDs in range [180, 208] (inclusive)
//   - "-10": Returns sources with IDs from 1 to 10 (inclusive)
//   - "197-": Returns sources with IDs from 197 to end (inclusive)
//   - "1,5,10-20,50-": Mix of individual IDs and ranges
//   - "": Returns all sources (no filtering)
//
// Import order of sources is preserved.
func Filter(
	sources []DataSourceConfig,
	filter string,
) ([]DataSourceConfig, []string, error) {
	filter = strings.TrimSpace(filter)

	switch filter {
	case "":
		return sources, nil, nil
	case "main":
		return selectSources(sources, func(d DataSourceConfig) bool {
			return d.ID < 1000
		}), nil, nil
	case "exclude main":
		return selectSources(sources, func(d DataSourceConfig) bool {
			return d.ID >= 1000
		}), nil, nil
	}

	requested := make(map[int]bool)
	explicit := make(map[int]bool)
	var warnings []string

	for item := range strings.SplitSeq(filter, ",") {
		item = strings.TrimSpace(item)

		if strings.Contains(item, "-") {
			start, end, err := parseRange(item, sources)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to parse range '%s': %w", item, err)
			}

			var hasMatches bool
			for id := start; id <= end; id++ {
				requested[id] = true
				if sourceExists(sources, id) {
					hasMatches = true
				}
			}
			if !hasMatches {
				warnings = append(warnings, fmt.Sprintf("range '%s' matched no sources", item))
			}
			continue
		}

		id, err := strconv.Atoi(item)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid source ID '%s': must be a number or range", item)
		}
		requested[id] = true
		explicit[id] = true
	}

	res := selectSources(sources, func(d DataSourceConfig) bool {
		return requested[d.ID]
	})

	for _, id := range slices.Sorted(maps.Keys(explicit)) {
		if !sourceExists(res, id) {
			warnings = append(warnings, fmt.Sprintf("source ID %d not found in configuration", id))
		}
	}

	if len(res) == 0 {
		if len(warnings) > 0 {
			return nil, warnings, fmt.Errorf(
				"no sources matched filter '%s': %s",
				filter,
				strings.Join(warnings, "; "),
			)
		}
		return nil, nil, fmt.Errorf("no sources matched filter '%s'", filter)
	}

	return res, warnings, nil
}

func selectSources(
	sources []DataSourceConfig,
	fn func(DataSourceConfig) bool,
) []DataSourceConfig {
	var res []DataSourceConfig
	for _, v := range sources {
		if fn(v) {
			res = append(res, v)
		}
	}
	return res
}

// parseRange parses a range string like "180-208", "-10", or "197-"
// Returns (start, end, error)
func parseRange(rangeStr string, sources []DataSourceConfig) (int, int, error) {
	parts := strings.Split(rangeStr, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid format: expected 'X-Y', '-Y', or 'X-'")
	}

	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])

	var start, end int
	var err error

	switch {
	case startStr == "":
		start = 1
		if end, err = strconv.Atoi(endStr); err != nil {
			return 0, 0, fmt.Errorf("invalid end value: %w", err)
		}
	case endStr == "":
		if start, err = strconv.Atoi(startStr); err != nil {
			return 0, 0, fmt.Errorf("invalid start value: %w", err)
		}
		end = findMaxSourceID(sources)
		if end == 0 {
			return 0, 0, fmt.Errorf("no sources available to determine end of range")
		}
	default:
		if start, err = strconv.Atoi(startStr); err != nil {
			return 0, 0, fmt.Errorf("invalid start value: %w", err)
		}
		if end, err = strconv.Atoi(endStr); err != nil {
			return 0, 0, fmt.Errorf("invalid end value: %w", err)
		}
	}

	if start > end {
		return 0, 0, fmt.Errorf("start (%d) must be <= end (%d)", start, end)
	}

	return start, end, nil
}

func findMaxSourceID(sources []DataSourceConfig) int {
	var res int
	for _, src := range sources {
		res = max(res, src.ID)
	}
	return res
}

func sourceExists(sources []DataSourceConfig, id int) bool {
	return slices.ContainsFunc(sources, func(d DataSourceConfig) bool {
		return d.ID == id
	})
}
