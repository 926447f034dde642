package iopersist

import (
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/pkg/errcode"
)

var errNotConnected = errors.New("not connected to database")

// SourceError is returned when usages of a dataset cannot be saved. The
// previously saved usages of the dataset are not changed.
func SourceError(datasetID int, err error) error {
	msg := `Cannot save usages of data source <em>%d</em>`

	return &gn.Error{
		Code: errcode.PersistSourceError,
		Msg:  msg,
		Vars: []any{datasetID},
		Err:  fmt.Errorf("cannot save source %d: %w", datasetID, err),
	}
}

// MappingError is returned when the backbone mapping of a dataset cannot
// be saved.
func MappingError(datasetID int, err error) error {
	msg := `Cannot save backbone mapping of data source <em>%d</em>`

	return &gn.Error{
		Code: errcode.PersistMappingError,
		Msg:  msg,
		Vars: []any{datasetID},
		Err:  fmt.Errorf("cannot save mapping of %d: %w", datasetID, err),
	}
}

// OptimizeError is returned when the cleanup of the source database
// fails. Saved usages and mappings are not affected.
func OptimizeError(op string, err error) error {
	msg := `Cannot optimize source database: <em>%s</em>`

	return &gn.Error{
		Code: errcode.PersistOptimizeError,
		Msg:  msg,
		Vars: []any{op},
		Err:  fmt.Errorf("cannot optimize (%s): %w", op, err),
	}
}
