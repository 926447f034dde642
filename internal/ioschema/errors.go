package ioschema

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/pkg/errcode"
)

// NotConnectedError is returned when Migrate runs before the operator
// is connected.
func NotConnectedError() error {
	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  "Cannot prepare the source database: no connection",
		Err:  fmt.Errorf("schema: not connected to database"),
	}
}

// GORMConnectionError is returned when GORM cannot use the pgx pool.
func GORMConnectionError(err error) error {
	msg := `Cannot open the source database with GORM

<em>How to fix:</em>
  1. Check <em>database</em> section of config.yaml
  2. Run the build without <em>--with-database</em> if PostgreSQL
     is not needed`

	return &gn.Error{
		Code: errcode.SchemaGORMConnectionError,
		Msg:  msg,
		Err:  fmt.Errorf("schema: gorm open: %w", err),
	}
}

// MigrateSchemaError is returned when tables of source usages and
// backbone mappings cannot be created or updated.
func MigrateSchemaError(err error) error {
	msg := `Cannot create tables for source usages and backbone mappings

<em>How to fix:</em>
  1. The database user needs CREATE and ALTER permissions
  2. Tables made by other tools must not use the same names:
     <em>data_sources</em>, <em>source_usages</em>, <em>nub_mappings</em>`

	return &gn.Error{
		Code: errcode.SchemaMigrateError,
		Msg:  msg,
		Err:  fmt.Errorf("schema: auto migrate: %w", err),
	}
}

// CollationError is returned when the "C" collation cannot be set on a
// name column.
func CollationError(table, column string, err error) error {
	return &gn.Error{
		Code: errcode.SchemaCollationError,
		Msg:  `Cannot set "C" collation on <em>%s.%s</em>`,
		Vars: []any{table, column},
		Err:  fmt.Errorf("schema: collation of %s.%s: %w", table, column, err),
	}
}
