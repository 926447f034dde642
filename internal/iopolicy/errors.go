package iopolicy

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/pkg/errcode"
)

// PolicyConfigError is returned when policy.yaml cannot be read or parsed.
func PolicyConfigError(path string, err error) error {
	msg := `Cannot load build policy

<em>Policy file:</em> %s

<em>How to fix:</em>
  1. Validate YAML syntax
  2. Every homonym exclusion needs <em>name</em> and <em>taxon</em>
  3. Remove the file to get the default one on the next run`

	return &gn.Error{
		Code: errcode.PolicyConfigError,
		Msg:  msg,
		Vars: []any{path},
		Err:  fmt.Errorf("failed to load policy: %w", err),
	}
}
