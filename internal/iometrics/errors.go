package iometrics

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/pkg/errcode"
)

// WriteError is returned when the metrics file cannot be written.
func WriteError(path string, err error) error {
	return &gn.Error{
		Code: errcode.MetricsWriteError,
		Msg:  "Cannot write metrics to <em>%s</em>",
		Vars: []any{path},
		Err:  fmt.Errorf("cannot write metrics: %w", err),
	}
}
