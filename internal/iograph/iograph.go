// Package iograph stores the backbone in a SQLite file.
//
// Nodes are kept in the nub_usages table, one row per node. The meta table
// keeps the largest key ever handed out, so keys of removed nodes are not
// reused by later builds. Save replaces the whole backbone in one
// transaction.
package iograph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/gnames/gnnub/pkg/ent/issue"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/status"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/gnnub"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGo)
)

// Memory is the path of a store that lives only in memory.
const Memory = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS nub_usages (
	key INTEGER PRIMARY KEY,
	scientific_name TEXT NOT NULL,
	canonical_name TEXT NOT NULL,
	authorship TEXT NOT NULL DEFAULT '',
	year TEXT NOT NULL DEFAULT '',
	rank TEXT NOT NULL,
	kingdom TEXT NOT NULL DEFAULT '',
	taxonomic_status TEXT NOT NULL,
	parent_key INTEGER NOT NULL DEFAULT 0,
	accepted_key INTEGER NOT NULL DEFAULT 0,
	basionym_key INTEGER NOT NULL DEFAULT 0,
	nom_status TEXT NOT NULL DEFAULT '[]',
	issues TEXT NOT NULL DEFAULT '[]',
	sources TEXT NOT NULL DEFAULT '[]',
	deleted INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_nub_usages_parent ON nub_usages (parent_key);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const (
	metaMaxKey  = "max_key"
	metaSavedAt = "saved_at"
)

type graphStore struct {
	path string
	db   *sql.DB
	enc  gnfmt.Encoder
}

// Open opens or creates the backbone file at path.
func Open(path string) (gnnub.GraphStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, OpenError(path, err)
	}
	// a single connection keeps one database for the in-memory mode and
	// serializes writers
	db.SetMaxOpenConns(1)

	if path != Memory {
		if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, OpenError(path, err)
		}
	}
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, OpenError(path, err)
	}

	slog.Info("Backbone storage opened", "path", path)
	return &graphStore{path: path, db: db, enc: gnfmt.GNjson{}}, nil
}

// Save implements gnnub.GraphStore.
func (s *graphStore) Save(
	ctx context.Context,
	nodes []usage.NubUsage,
	maxKey int,
) error {
	err := s.save(ctx, nodes, maxKey)
	if err != nil {
		return SaveError(len(nodes), err)
	}
	slog.Info("Backbone saved", "nodes", len(nodes), "max_key", maxKey)
	return nil
}

func (s *graphStore) save(
	ctx context.Context,
	nodes []usage.NubUsage,
	maxKey int,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, "DELETE FROM nub_usages"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO nub_usages (
	key, scientific_name, canonical_name, authorship, year, rank, kingdom,
	taxonomic_status, parent_key, accepted_key, basionym_key,
	nom_status, issues, sources, deleted
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range nodes {
		n := &nodes[i]
		maxKey = max(maxKey, n.Key)
		nomStatus, issues, srcs, err := s.encodeLists(n)
		if err != nil {
			return fmt.Errorf("node %d: %w", n.Key, err)
		}
		_, err = stmt.ExecContext(ctx,
			n.Key, n.ScientificName, n.CanonicalName, n.Authorship, n.Year,
			n.Rank.String(), n.Kingdom, n.TaxonomicStatus.String(),
			n.ParentKey, n.AcceptedKey, n.BasionymKey,
			nomStatus, issues, srcs, n.Deleted,
		)
		if err != nil {
			return fmt.Errorf("node %d: %w", n.Key, err)
		}
	}

	meta := map[string]string{
		metaMaxKey:  strconv.Itoa(maxKey),
		metaSavedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			k, v,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *graphStore) encodeLists(n *usage.NubUsage) (string, string, string, error) {
	issues := make([]string, len(n.Issues))
	for i, v := range n.Issues {
		issues[i] = v.String()
	}
	var res [3]string
	for i, v := range [][]string{n.NomStatus, issues, n.Sources} {
		if v == nil {
			v = []string{}
		}
		bs, err := s.enc.Encode(v)
		if err != nil {
			return "", "", "", err
		}
		res[i] = string(bs)
	}
	return res[0], res[1], res[2], nil
}

// Load implements gnnub.GraphStore.
func (s *graphStore) Load(ctx context.Context) ([]usage.NubUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT
	key, scientific_name, canonical_name, authorship, year, rank, kingdom,
	taxonomic_status, parent_key, accepted_key, basionym_key,
	nom_status, issues, sources, deleted
FROM nub_usages
ORDER BY key`)
	if err != nil {
		return nil, LoadError(err)
	}
	defer rows.Close()

	var res []usage.NubUsage
	for rows.Next() {
		var n usage.NubUsage
		var rnk, st, nomStatus, issues, srcs string
		err = rows.Scan(
			&n.Key, &n.ScientificName, &n.CanonicalName, &n.Authorship,
			&n.Year, &rnk, &n.Kingdom, &st,
			&n.ParentKey, &n.AcceptedKey, &n.BasionymKey,
			&nomStatus, &issues, &srcs, &n.Deleted,
		)
		if err != nil {
			return nil, LoadError(err)
		}
		n.Rank = rank.New(rnk)
		n.TaxonomicStatus = status.New(st)
		if err = s.decodeLists(&n, nomStatus, issues, srcs); err != nil {
			return nil, LoadError(fmt.Errorf("node %d: %w", n.Key, err))
		}
		res = append(res, n)
	}
	if err = rows.Err(); err != nil {
		return nil, LoadError(err)
	}

	slog.Info("Backbone loaded", "nodes", len(res))
	return res, nil
}

func (s *graphStore) decodeLists(
	n *usage.NubUsage,
	nomStatus, issues, srcs string,
) error {
	var iss []string
	for _, v := range []struct {
		data string
		dst  *[]string
	}{
		{nomStatus, &n.NomStatus},
		{issues, &iss},
		{srcs, &n.Sources},
	} {
		if err := s.enc.Decode([]byte(v.data), v.dst); err != nil {
			return err
		}
		if len(*v.dst) == 0 {
			*v.dst = nil
		}
	}
	for _, v := range iss {
		if i := issue.New(v); i != issue.Unknown {
			n.AddIssue(i)
		}
	}
	return nil
}

// MaxKey implements gnnub.GraphStore.
func (s *graphStore) MaxKey(ctx context.Context) (int, error) {
	var val string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = ?", metaMaxKey,
	).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, LoadError(err)
	}
	res, err := strconv.Atoi(val)
	if err != nil {
		return 0, LoadError(fmt.Errorf("bad max key %q: %w", val, err))
	}
	return res, nil
}

// Close implements gnnub.GraphStore.
func (s *graphStore) Close() error {
	return s.db.Close()
}
