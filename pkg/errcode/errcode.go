// Package errcode enumerates codes of errors returned to users by gnnub.
package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError

	// Logging errors
	CreateLogFileError

	// Configuration errors
	SourcesConfigError
	PolicyConfigError

	// Database errors
	DBConnectionError
	DBNotConnectedError
	DBQueryError

	// Schema errors
	SchemaGORMConnectionError
	SchemaMigrateError
	SchemaCollationError

	// Lookup store errors
	LookupOpenError
	LookupReadError
	LookupWriteError
	LookupRebuildError

	// Graph store errors
	GraphOpenError
	GraphLoadError
	GraphSaveError
	GraphInvalidError

	// Persistence errors
	PersistSourceError
	PersistMappingError
	PersistOptimizeError

	// SFGA errors
	SFGAFileNotFoundError
	SFGAReadError
	SFGAVersionError
	SFGAVersionTooOldError

	// Build errors
	BuildNoSourcesError
	BuildAllSourcesFailedError
	BuildCanceledError
	BuildIngestError
	MetricsWriteError
)
