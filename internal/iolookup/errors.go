package iolookup

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/pkg/errcode"
)

// OpenError is returned when the lookup store cannot be opened.
func OpenError(dir string, err error) error {
	msg := `Cannot open lookup store

<em>Directory:</em> %s

<em>How to fix:</em>
  1. Make sure no other gnnub process uses the directory
  2. Remove the directory to rebuild the store from the backbone`

	return &gn.Error{
		Code: errcode.LookupOpenError,
		Msg:  msg,
		Vars: []any{dir},
		Err:  fmt.Errorf("cannot open lookup store at %s: %w", dir, err),
	}
}

// ReadError is returned when a lookup query fails.
func ReadError(op string, err error) error {
	msg := "Cannot read from lookup store during <em>%s</em>"

	return &gn.Error{
		Code: errcode.LookupReadError,
		Msg:  msg,
		Vars: []any{op},
		Err:  fmt.Errorf("lookup %s failed: %w", op, err),
	}
}

// WriteError is returned when a record cannot be stored.
func WriteError(key int, err error) error {
	msg := "Cannot write record <em>%d</em> to lookup store"

	return &gn.Error{
		Code: errcode.LookupWriteError,
		Msg:  msg,
		Vars: []any{key},
		Err:  fmt.Errorf("cannot write lookup record %d: %w", key, err),
	}
}

// RebuildError is returned when the new generation of the store cannot
// be created. The previous generation stays in use.
func RebuildError(gen string, err error) error {
	msg := `Cannot rebuild lookup store

<em>Generation:</em> %s

The previous lookup data is still in use.`

	return &gn.Error{
		Code: errcode.LookupRebuildError,
		Msg:  msg,
		Vars: []any{gen},
		Err:  fmt.Errorf("cannot rebuild lookup generation %s: %w", gen, err),
	}
}
