// Package iodb connects gnnub to PostgreSQL with a pgx pool. The database
// keeps source usages and their backbone keys, the backbone itself lives
// in SQLite.
package iodb

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/gnames/gnnub/pkg/config"
	"github.com/gnames/gnnub/pkg/db"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Datasets are written one at a time inside a single transaction, a few
// connections are enough for COPY plus migrations.
const (
	maxConns    = 4
	minConns    = 1
	pingTimeout = 10 * time.Second
)

const tableExistsQuery = `
SELECT EXISTS (
	SELECT FROM information_schema.tables
	WHERE table_schema = current_schema() AND table_name = $1
)`

type pgxOperator struct {
	pool *pgxpool.Pool
}

// NewPgxOperator creates an operator. It does not connect.
func NewPgxOperator() db.Operator {
	return &pgxOperator{}
}

// DSN returns a connection URL of cfg. User and password are escaped.
func DSN(cfg *config.DatabaseConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// Connect implements db.Operator. A previous pool is closed.
func (p *pgxOperator) Connect(
	ctx context.Context,
	cfg *config.DatabaseConfig,
) error {
	connErr := func(err error) error {
		return ConnectionError(cfg.Host, cfg.Port, cfg.Database, cfg.User, err)
	}

	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return connErr(err)
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minConns
	poolCfg.ConnConfig.RuntimeParams["application_name"] = config.AppName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return connErr(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		return connErr(err)
	}

	p.Close()
	p.pool = pool
	return nil
}

func (p *pgxOperator) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

func (p *pgxOperator) Pool() *pgxpool.Pool {
	return p.pool
}

// TableExists checks a table in the current schema.
func (p *pgxOperator) TableExists(
	ctx context.Context,
	tableName string,
) (bool, error) {
	if p.pool == nil {
		return false, NotConnectedError()
	}

	var res bool
	if err := p.pool.QueryRow(ctx, tableExistsQuery, tableName).Scan(&res); err != nil {
		return false, QueryError("table check", err)
	}
	return res, nil
}
