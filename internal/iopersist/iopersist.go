// Package iopersist saves source usages and their backbone keys to
// PostgreSQL. Every dataset is replaced as a whole inside one
// transaction, rows are sent with COPY in batches.
package iopersist

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gnnub/pkg/db"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/gnnub"
	"github.com/gnames/gnnub/pkg/sources"
	"github.com/gnames/gnuuid"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var usageColumns = []string{
	"data_source_id", "record_id", "name_string_id", "scientific_name",
	"rank", "taxonomic_status", "kingdom", "parent_id", "accepted_id",
	"basionym_id", "nom_status",
}

var mappingColumns = []string{"data_source_id", "record_id", "nub_key"}

type store struct {
	op        db.Operator
	batchSize int
	buildID   string
	sources   map[int]sources.DataSourceConfig
}

// New creates a SourceStore on a connected operator. The schema has to be
// migrated already. Titles of datasets are taken from dss.
func New(
	op db.Operator,
	batchSize int,
	dss []sources.DataSourceConfig,
) gnnub.SourceStore {
	res := &store{
		op:        op,
		batchSize: max(batchSize, 1),
		buildID:   uuid.New().String(),
		sources:   make(map[int]sources.DataSourceConfig, len(dss)),
	}
	for _, v := range dss {
		res.sources[v.ID] = v
	}
	return res
}

// LoadSource implements gnnub.SourceStore.
func (s *store) LoadSource(
	ctx context.Context,
	datasetID int,
	src []usage.SrcUsage,
) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"DELETE FROM source_usages WHERE data_source_id = $1", datasetID)
		if err != nil {
			return err
		}

		for batch := range slices.Chunk(src, s.batchSize) {
			rows := make([][]any, len(batch))
			for i, u := range batch {
				rows[i] = usageRow(datasetID, u)
			}
			_, err = tx.CopyFrom(ctx,
				pgx.Identifier{"source_usages"},
				usageColumns,
				pgx.CopyFromRows(rows),
			)
			if err != nil {
				return err
			}
		}
		return s.saveDataSource(ctx, tx, datasetID, len(src))
	})
	if err != nil {
		return SourceError(datasetID, err)
	}

	slog.Info("Source usages saved",
		"source", datasetID,
		"usages", humanize.Comma(int64(len(src))),
	)
	return nil
}

func usageRow(datasetID int, u usage.SrcUsage) []any {
	return []any{
		datasetID,
		u.ID,
		gnuuid.New(u.ScientificName).String(),
		u.ScientificName,
		u.Rank.String(),
		u.TaxonomicStatus.String(),
		u.Kingdom,
		u.ParentID,
		u.AcceptedID,
		u.BasionymID,
		strings.Join(u.NomStatus, "|"),
	}
}

func (s *store) saveDataSource(
	ctx context.Context,
	tx pgx.Tx,
	datasetID int,
	count int,
) error {
	ds := s.sources[datasetID]
	q := `
INSERT INTO data_sources (
	id, title, title_short, record_count, build_id, updated_at
) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	title_short = excluded.title_short,
	record_count = excluded.record_count,
	build_id = excluded.build_id,
	updated_at = excluded.updated_at`
	_, err := tx.Exec(ctx, q,
		datasetID, ds.Title, ds.TitleShort, count, s.buildID,
		time.Now().UTC(),
	)
	return err
}

// SaveMapping implements gnnub.SourceStore.
func (s *store) SaveMapping(
	ctx context.Context,
	datasetID int,
	mapping map[string]int,
) error {
	ids := slices.Sorted(maps.Keys(mapping))
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"DELETE FROM nub_mappings WHERE data_source_id = $1", datasetID)
		if err != nil {
			return err
		}

		for batch := range slices.Chunk(ids, s.batchSize) {
			rows := make([][]any, len(batch))
			for i, id := range batch {
				rows[i] = []any{datasetID, id, mapping[id]}
			}
			_, err = tx.CopyFrom(ctx,
				pgx.Identifier{"nub_mappings"},
				mappingColumns,
				pgx.CopyFromRows(rows),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return MappingError(datasetID, err)
	}

	slog.Info("Backbone mapping saved",
		"source", datasetID,
		"records", humanize.Comma(int64(len(ids))),
	)
	return nil
}

func (s *store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	pool := s.op.Pool()
	if pool == nil {
		return errNotConnected
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Close implements gnnub.SourceStore.
func (s *store) Close() {
	s.op.Close()
}
