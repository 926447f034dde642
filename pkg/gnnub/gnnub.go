// Package gnnub defines contracts between the backbone build and its
// storage and source collaborators.
package gnnub

import (
	"context"

	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/sources"
)

// GraphStore persists the backbone between builds.
type GraphStore interface {
	// Save replaces the persisted backbone with nodes. maxKey is the
	// largest key ever handed out, it can be larger than the largest key
	// of nodes when nodes were removed.
	Save(ctx context.Context, nodes []usage.NubUsage, maxKey int) error

	// Load returns all persisted nodes sorted by key.
	Load(ctx context.Context) ([]usage.NubUsage, error)

	// MaxKey returns the largest key ever handed out, or 0 for a new store.
	MaxKey(ctx context.Context) (int, error)

	Close() error
}

// SourceStore saves source usages and their backbone keys to a relational
// database.
type SourceStore interface {
	// LoadSource replaces usages of a dataset.
	LoadSource(ctx context.Context, datasetID int, src []usage.SrcUsage) error

	// SaveMapping replaces the source-to-backbone mapping of a dataset.
	SaveMapping(ctx context.Context, datasetID int, mapping map[string]int) error

	// Optimize removes datasets which IDs are not in keep and refreshes
	// statistics of the query planner.
	Optimize(ctx context.Context, keep []int) error

	Close()
}

// SourceReader reads usages of a source checklist.
type SourceReader interface {
	Read(ctx context.Context, ds sources.DataSourceConfig) ([]usage.SrcUsage, error)
}

// Builder runs a complete backbone build: it imports sources, finalizes
// and saves the backbone and rebuilds the lookup store.
type Builder interface {
	Build(ctx context.Context) (Summary, error)
}

// Summary describes a finished build.
type Summary struct {
	// Datasets are IDs of datasets imported without errors.
	Datasets []int

	// Failed are IDs of datasets that could not be read or imported.
	Failed []int

	Usages    int
	Created   int
	Matched   int
	Ambiguous int
	Skipped   int

	// Nodes is the size of the backbone after the build.
	Nodes int

	// Issues counts issues of all imports.
	Issues map[string]int
}
