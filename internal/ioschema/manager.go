// Package ioschema creates and migrates the relational schema of
// imported sources. This is an impure I/O package that wraps GORM
// AutoMigrate functionality.
package ioschema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gnames/gnnub/pkg/db"
	"github.com/gnames/gnnub/pkg/schema"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Manager migrates the schema.
type Manager struct {
	operator db.Operator
}

// NewManager creates a new schema Manager.
func NewManager(op db.Operator) *Manager {
	return &Manager{operator: op}
}

// Migrate creates missing tables and columns with GORM AutoMigrate and
// sets collation of name columns.
func (m *Manager) Migrate(ctx context.Context) error {
	pool := m.operator.Pool()
	if pool == nil {
		return NotConnectedError()
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{Conn: sqlDB}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return GORMConnectionError(err)
	}

	if err = schema.Migrate(gormDB.WithContext(ctx)); err != nil {
		return MigrateSchemaError(err)
	}

	if err = m.setCollation(ctx); err != nil {
		return err
	}

	slog.Info("Database schema is up to date")
	return nil
}

type columnDef struct {
	table, column string
	varchar       int
}

// collated columns need "C" collation for correct sorting and
// comparison of scientific names.
var collated = []columnDef{
	{"source_usages", "scientific_name", 500},
}

func (m *Manager) setCollation(ctx context.Context) error {
	pool := m.operator.Pool()
	for _, col := range collated {
		if _, err := pool.Exec(ctx, collationSQL(col)); err != nil {
			return CollationError(col.table, col.column, err)
		}
	}
	return nil
}

func collationSQL(col columnDef) string {
	return fmt.Sprintf(
		`ALTER TABLE %s ALTER COLUMN %s TYPE VARCHAR(%d) COLLATE "C"`,
		col.table, col.column, col.varchar,
	)
}
