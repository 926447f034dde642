package iograph

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/pkg/errcode"
)

// OpenError is returned when the backbone file cannot be opened.
func OpenError(path string, err error) error {
	msg := `Cannot open backbone storage

<em>File:</em> %s`

	return &gn.Error{
		Code: errcode.GraphOpenError,
		Msg:  msg,
		Vars: []any{path},
		Err:  fmt.Errorf("cannot open backbone storage %s: %w", path, err),
	}
}

// LoadError is returned when persisted nodes cannot be read.
func LoadError(err error) error {
	return &gn.Error{
		Code: errcode.GraphLoadError,
		Msg:  "Cannot load the backbone",
		Err:  fmt.Errorf("cannot load backbone: %w", err),
	}
}

// SaveError is returned when the backbone cannot be saved. The previously
// saved backbone stays intact.
func SaveError(nodes int, err error) error {
	msg := `Cannot save the backbone of <em>%d</em> nodes

The previously saved backbone is not changed.`

	return &gn.Error{
		Code: errcode.GraphSaveError,
		Msg:  msg,
		Vars: []any{nodes},
		Err:  fmt.Errorf("cannot save backbone: %w", err),
	}
}
