// Package db defines the contract for the PostgreSQL connection used to
// persist source usages and their backbone mapping.
package db

import (
	"context"

	"github.com/gnames/gnnub/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Operator manages the connection pool. Components that write to the
// database take the pool from Pool and run their own SQL, for example
// bulk inserts with CopyFrom.
type Operator interface {
	// Connect establishes a connection pool to the database.
	Connect(context.Context, *config.DatabaseConfig) error

	// Close closes the database connection pool.
	Close() error

	// Pool returns the underlying pool, nil before Connect.
	Pool() *pgxpool.Pool

	// TableExists checks if a table exists in the public schema.
	TableExists(ctx context.Context, tableName string) (bool, error)
}
