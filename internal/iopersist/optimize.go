package iopersist

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gnfmt"
	"github.com/jackc/pgx/v5"
)

// orphanTables are cleaned in this order, data_sources goes last so a
// failed run still finds the datasets to clean.
var orphanTables = []string{"nub_mappings", "source_usages", "data_sources"}

// Optimize implements gnnub.SourceStore. Rows of datasets removed from
// sources.yaml are deleted, then VACUUM ANALYZE runs on all tables of
// the store.
func (s *store) Optimize(ctx context.Context, keep []int) error {
	timeStart := time.Now()

	var total int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		for _, tbl := range orphanTables {
			count, err := removeOrphans(ctx, tx, tbl, keep)
			if err != nil {
				return err
			}
			total += count
		}
		return nil
	})
	if err != nil {
		return OptimizeError("remove orphans", err)
	}
	if total > 0 {
		slog.Info("Removed rows of unknown data sources",
			"rows", humanize.Comma(total))
	}

	// VACUUM ANALYZE must be executed outside of a transaction
	for _, tbl := range orphanTables {
		q := "VACUUM ANALYZE " + pgx.Identifier{tbl}.Sanitize()
		if _, err = s.op.Pool().Exec(ctx, q); err != nil {
			return OptimizeError("vacuum "+tbl, err)
		}
	}

	slog.Info("Source database optimized",
		"duration", gnfmt.TimeString(time.Since(timeStart).Seconds()))
	return nil
}

func removeOrphans(
	ctx context.Context,
	tx pgx.Tx,
	tbl string,
	keep []int,
) (int64, error) {
	col := "data_source_id"
	if tbl == "data_sources" {
		col = "id"
	}
	q := "DELETE FROM " + pgx.Identifier{tbl}.Sanitize() +
		" WHERE NOT (" + col + " = ANY($1))"

	ids := make([]int32, len(keep))
	for i, v := range keep {
		ids[i] = int32(v)
	}
	res, err := tx.Exec(ctx, q, ids)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
