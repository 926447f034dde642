// Package iosfga reads source checklists in the Species File Group
// Archive (SFGA) format.
//
// Taxa and synonyms of an SFGA become source usages. Basionyms in SFGA
// point to names, they are translated to the usages of these names. An
// accepted taxon wins over a synonym of the same name.
package iosfga

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnlib"
	"github.com/gnames/gnnub/pkg/config"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/status"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/gnnub"
	"github.com/gnames/gnnub/pkg/sources"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGo)
)

const nameExpr = `COALESCE(NULLIF(n.gn__scientific_name_string, ''),
	TRIM(COALESCE(n.col__scientific_name, '') || ' ' ||
	COALESCE(n.col__authorship, '')))`

const taxaQuery = `
SELECT t.col__id, COALESCE(t.col__parent_id, ''),
	COALESCE(t.col__status_id, ''), COALESCE(t.col__kingdom, ''),
	n.col__id, COALESCE(n.col__basionym_id, ''),
	COALESCE(n.col__rank_id, ''), COALESCE(n.col__status_id, ''),
	` + nameExpr + `
FROM taxon t
JOIN name n ON n.col__id = t.col__name_id
ORDER BY t.rowid`

const synonymsQuery = `
SELECT COALESCE(NULLIF(s.col__id, ''), 'syn:' || n.col__id),
	s.col__taxon_id, COALESCE(s.col__status_id, ''),
	n.col__id, COALESCE(n.col__basionym_id, ''),
	COALESCE(n.col__rank_id, ''), COALESCE(n.col__status_id, ''),
	` + nameExpr + `
FROM synonym s
JOIN name n ON n.col__id = s.col__name_id
ORDER BY s.rowid`

type reader struct {
	cacheDir string
}

// New creates a SourceReader that extracts SFGA files to cacheDir.
func New(cacheDir string) gnnub.SourceReader {
	return &reader{cacheDir: cacheDir}
}

// Read implements gnnub.SourceReader.
func (r *reader) Read(
	ctx context.Context,
	ds sources.DataSourceConfig,
) ([]usage.SrcUsage, error) {
	start := time.Now()

	dbPath, warning, err := fetch(ctx, ds, r.cacheDir)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		slog.Warn("Multiple SFGA files", "source", ds.ID, "warning", warning)
	}

	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err = checkVersion(db, ds.ID); err != nil {
		return nil, err
	}

	res, err := readUsages(ctx, db, ds.Kingdom)
	if err != nil {
		return nil, ReadError(dbPath, err)
	}

	slog.Info("SFGA read",
		"source", ds.ID,
		"usages", humanize.Comma(int64(len(res))),
		"duration", gnfmt.TimeString(time.Since(start).Seconds()),
	)
	return res, nil
}

func open(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, ReadError(path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ReadError(path, err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, ReadError(path, err)
	}
	return db, nil
}

func checkVersion(db *sql.DB, sourceID int) error {
	var version string
	err := db.QueryRow("SELECT ID FROM VERSION LIMIT 1").Scan(&version)
	if err != nil {
		return VersionError(sourceID, version, err)
	}
	if !gnlib.IsVersion(version) {
		return VersionError(sourceID, version,
			fmt.Errorf("not a semantic version"))
	}
	if gnlib.CmpVersion(version, config.MinVersionSFGA) < 0 {
		return VersionTooOldError(sourceID, version)
	}
	return nil
}

// row is a usage with the name id it was read with.
type row struct {
	u          usage.SrcUsage
	nameID     string
	basionymID string
}

// readUsages reads taxa and synonyms. Kingdom is used for taxa the source
// gives no kingdom for.
func readUsages(
	ctx context.Context,
	db *sql.DB,
	kingdom string,
) ([]usage.SrcUsage, error) {
	taxa, err := query(ctx, db, taxaQuery, true)
	if err != nil {
		return nil, fmt.Errorf("taxa: %w", err)
	}
	synonyms, err := query(ctx, db, synonymsQuery, false)
	if err != nil {
		return nil, fmt.Errorf("synonyms: %w", err)
	}

	byName := make(map[string]string, len(taxa)+len(synonyms))
	kingdoms := make(map[string]string, len(taxa))
	for _, v := range taxa {
		if v.u.Kingdom == "" {
			v.u.Kingdom = kingdom
		}
		kingdoms[v.u.ID] = v.u.Kingdom
		if _, ok := byName[v.nameID]; !ok {
			byName[v.nameID] = v.u.ID
		}
	}
	for _, v := range synonyms {
		if _, ok := byName[v.nameID]; !ok {
			byName[v.nameID] = v.u.ID
		}
	}

	res := make([]usage.SrcUsage, 0, len(taxa)+len(synonyms))
	for _, group := range [][]*row{taxa, synonyms} {
		for _, v := range group {
			if v.u.AcceptedID != "" {
				v.u.Kingdom = kingdoms[v.u.AcceptedID]
				if v.u.Kingdom == "" {
					v.u.Kingdom = kingdom
				}
			}
			if v.basionymID != "" {
				// an unknown basionym name stays as is and is reported by
				// the import as an invalid reference
				v.u.BasionymID = v.basionymID
				if id, ok := byName[v.basionymID]; ok {
					v.u.BasionymID = id
				}
				if v.u.BasionymID == v.u.ID {
					v.u.BasionymID = ""
				}
			}
			res = append(res, v.u)
		}
	}
	return res, nil
}

func query(
	ctx context.Context,
	db *sql.DB,
	q string,
	isTaxon bool,
) ([]*row, error) {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*row
	for rows.Next() {
		var r row
		var st, rnk, nomStatus string
		if isTaxon {
			err = rows.Scan(
				&r.u.ID, &r.u.ParentID, &st, &r.u.Kingdom,
				&r.nameID, &r.basionymID, &rnk, &nomStatus,
				&r.u.ScientificName,
			)
		} else {
			err = rows.Scan(
				&r.u.ID, &r.u.AcceptedID, &st,
				&r.nameID, &r.basionymID, &rnk, &nomStatus,
				&r.u.ScientificName,
			)
		}
		if err != nil {
			return nil, err
		}

		r.u.Rank = rank.New(rnk)
		r.u.TaxonomicStatus = taxonStatus(st, !isTaxon)
		if nomStatus = strings.TrimSpace(nomStatus); nomStatus != "" {
			r.u.NomStatus = []string{strings.ToLower(nomStatus)}
		}
		res = append(res, &r)
	}
	return res, rows.Err()
}

// taxonStatus converts SFGA status. Empty or unknown statuses default to
// accepted for taxa and synonym for synonyms.
func taxonStatus(s string, isSynonym bool) status.Status {
	res := status.New(s)
	switch {
	case isSynonym && !res.IsSynonym():
		return status.Synonym
	case !isSynonym && res == status.Unknown:
		return status.Accepted
	}
	return res
}
