package iosources

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/pkg/errcode"
)

// SourcesConfigError creates an error for when sources.yaml
// cannot be loaded.
func SourcesConfigError(path string, err error) error {
	msg := `Cannot load sources configuration

<em>Configuration file:</em> %s

<em>Possible causes:</em>
  - File does not exist
  - Invalid YAML format
  - Parent directory of a source does not exist

<em>How to fix:</em>
  1. Check if file exists: <em>ls -l %s</em>
  2. Validate YAML syntax
  3. Remove the file to get the default one on the next run`

	return &gn.Error{
		Code: errcode.SourcesConfigError,
		Msg:  msg,
		Vars: []any{path, path},
		Err:  fmt.Errorf("failed to load sources config: %w", err),
	}
}
