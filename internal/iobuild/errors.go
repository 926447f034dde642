package iobuild

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/pkg/errcode"
)

// NoSourcesError is returned when no data source is selected for import.
func NoSourcesError(requestedIDs []int) error {
	msg := `No data sources to import

<em>Requested IDs:</em> %v

<em>How to fix:</em>
  1. Check IDs in sources.yaml
  2. Sources with <em>exclude: true</em> are imported only on request`

	return &gn.Error{
		Code: errcode.BuildNoSourcesError,
		Msg:  msg,
		Vars: []any{requestedIDs},
		Err:  fmt.Errorf("no sources selected from %v", requestedIDs),
	}
}

// AllSourcesFailedError is returned when no source could be imported.
// The saved backbone is not changed.
func AllSourcesFailedError(count int) error {
	msg := `Failed number of sources: <em>%d</em>`

	plural := "s"
	if count == 1 {
		plural = ""
	}

	return &gn.Error{
		Code: errcode.BuildAllSourcesFailedError,
		Msg:  msg,
		Vars: []any{count},
		Err:  fmt.Errorf("%d source%s failed to import", count, plural),
	}
}

// CanceledError is returned when the build is interrupted. The saved
// backbone is not changed.
func CanceledError(err error) error {
	return &gn.Error{
		Code: errcode.BuildCanceledError,
		Msg:  "Build was canceled, the saved backbone is not changed",
		Err:  fmt.Errorf("build canceled: %w", err),
	}
}

// IngestError is returned when a source fails after the backbone was
// modified by it. The build stops and the saved backbone is not changed.
func IngestError(sourceID int, err error) error {
	msg := `Import of data source <em>%d</em> failed while changing the backbone

The build is stopped, the saved backbone is not changed.

<em>Reason:</em> %s`

	return &gn.Error{
		Code: errcode.BuildIngestError,
		Msg:  msg,
		Vars: []any{sourceID, err.Error()},
		Err:  fmt.Errorf("ingest of source %d: %w", sourceID, err),
	}
}

// InvalidGraphError is returned when the finalized backbone breaks its
// invariants.
func InvalidGraphError(err error) error {
	msg := `The backbone is inconsistent and is not saved

<em>Reason:</em> %s`

	return &gn.Error{
		Code: errcode.GraphInvalidError,
		Msg:  msg,
		Vars: []any{err.Error()},
		Err:  fmt.Errorf("invalid backbone: %w", err),
	}
}
