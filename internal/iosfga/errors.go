package iosfga

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/pkg/config"
	"github.com/gnames/gnnub/pkg/errcode"
)

// FileNotFoundError is returned when no SFGA file of a source can be
// found in its parent location.
func FileNotFoundError(sourceID int, parent string, err error) error {
	msg := `SFGA file not found for data source

<em>Data Source ID:</em> %d
<em>Parent location:</em> %s

<em>Possible causes:</em>
  - SFGA file not downloaded
  - Incorrect parent directory/URL
  - File naming doesn't match ID pattern

<em>How to fix:</em>
  1. Check parent directory/URL exists
  2. Verify SFGA file naming: %04d*.{sql,sqlite}{,.zip}
  3. Download SFGA file if missing`

	return &gn.Error{
		Code: errcode.SFGAFileNotFoundError,
		Msg:  msg,
		Vars: []any{sourceID, parent, sourceID},
		Err:  fmt.Errorf("SFGA file not found: %w", err),
	}
}

// ReadError is returned when an SFGA file cannot be opened or queried.
func ReadError(path string, err error) error {
	msg := `Cannot read SFGA file

<em>File path:</em> %s

<em>How to fix:</em>
  1. Verify file integrity
  2. Check file permissions
  3. Re-download SFGA file if corrupted`

	return &gn.Error{
		Code: errcode.SFGAReadError,
		Msg:  msg,
		Vars: []any{path},
		Err:  fmt.Errorf("failed to read SFGA file: %w", err),
	}
}

// VersionError is returned when the SFGA version is missing or is not a
// semantic version.
func VersionError(sourceID int, version string, err error) error {
	msg := `Cannot get SFGA version <em>%s</em> for data source <em>%d</em>`

	return &gn.Error{
		Code: errcode.SFGAVersionError,
		Msg:  msg,
		Vars: []any{version, sourceID},
		Err:  fmt.Errorf("bad SFGA version '%s': %w", version, err),
	}
}

// VersionTooOldError is returned for SFGA files older than
// config.MinVersionSFGA.
func VersionTooOldError(sourceID int, version string) error {
	msg :=
		`The SFGA <em>%s</em> is not supported (data source <em>#%d</em>).
Supported SFGA versions are equal or greater than <em>%s</em>`

	return &gn.Error{
		Code: errcode.SFGAVersionTooOldError,
		Msg:  msg,
		Vars: []any{version, sourceID, config.MinVersionSFGA},
		Err:  fmt.Errorf("too old SFGA version '%s'", version),
	}
}
