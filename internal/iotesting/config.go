// Package iotesting provides shared test utilities for integration tests.
// This is an internal package for test infrastructure only.
package iotesting

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gnames/gnnub/internal/iodb"
	"github.com/gnames/gnnub/pkg/config"
	"github.com/gnames/gnnub/pkg/db"
)

// TestDatabaseName is the database name used for all integration tests.
// Tests never run against production databases.
const TestDatabaseName = "gnnub_test"

// GetTestConfig returns a configuration for integration tests. Database
// settings come from GNNUB_DATABASE_* environment variables or defaults,
// the database name is always TestDatabaseName. HomeDir is a temporary
// directory of the test.
//
// Usage in integration tests:
//
//	func TestSomething(t *testing.T) {
//	    if testing.Short() {
//	        t.Skip("Skipping integration test")
//	    }
//	    cfg := iotesting.GetTestConfig(t)
//	    // ... use cfg for database operations
//	}
func GetTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()

	var opts []config.Option
	if s := os.Getenv("GNNUB_DATABASE_HOST"); s != "" {
		opts = append(opts, config.OptDatabaseHost(s))
	}
	if s := os.Getenv("GNNUB_DATABASE_PORT"); s != "" {
		if port, err := strconv.Atoi(s); err == nil {
			opts = append(opts, config.OptDatabasePort(port))
		}
	}
	if s := os.Getenv("GNNUB_DATABASE_USER"); s != "" {
		opts = append(opts, config.OptDatabaseUser(s))
	}
	if s := os.Getenv("GNNUB_DATABASE_PASSWORD"); s != "" {
		opts = append(opts, config.OptDatabasePassword(s))
	}
	opts = append(opts,
		config.OptDatabaseDatabase(TestDatabaseName),
		config.OptHomeDir(t.TempDir()),
	)
	cfg.Update(opts)
	return cfg
}

// Connect returns a connected operator for the test database. The test is
// skipped in short mode or when PostgreSQL is not reachable.
func Connect(t *testing.T) (db.Operator, *config.Config) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := GetTestConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		t.Skipf("PostgreSQL is not available: %v", err)
	}
	t.Cleanup(func() { op.Close() })
	return op, cfg
}
