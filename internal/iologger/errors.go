package iologger

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/pkg/errcode"
)

// CreateLogFileError is returned when the "file" log destination cannot
// be opened.
func CreateLogFileError(path string, err error) error {
	msg := `Cannot open log file <em>%s</em>

Set <em>log.destination</em> to <em>stderr</em> or <em>stdout</em>
in config.yaml (or GNNUB_LOG_DESTINATION) to log to the terminal.`

	return &gn.Error{
		Code: errcode.CreateLogFileError,
		Msg:  msg,
		Vars: []any{path},
		Err:  fmt.Errorf("cannot open log file %s: %w", path, err),
	}
}
