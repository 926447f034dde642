// Package iobuild runs the backbone build. It reads the configured
// sources in order, ingests them into the backbone, finalizes and saves
// the backbone and rebuilds the lookup store from it.
//
// A build either saves a complete backbone or leaves the saved one
// untouched. A source that cannot be read is skipped. Nothing is written
// when the build is canceled, every source is skipped, or a source fails
// after it started to change the backbone.
package iobuild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnnub/internal/iodb"
	"github.com/gnames/gnnub/internal/iograph"
	"github.com/gnames/gnnub/internal/iolookup"
	"github.com/gnames/gnnub/internal/iometrics"
	"github.com/gnames/gnnub/internal/iopersist"
	"github.com/gnames/gnnub/internal/iopolicy"
	"github.com/gnames/gnnub/internal/ioschema"
	"github.com/gnames/gnnub/internal/iosfga"
	"github.com/gnames/gnnub/internal/iosources"
	"github.com/gnames/gnnub/pkg/backbone"
	"github.com/gnames/gnnub/pkg/config"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/gnnub"
	"github.com/gnames/gnnub/pkg/ingest"
	"github.com/gnames/gnnub/pkg/lookup"
	"github.com/gnames/gnnub/pkg/match"
	"github.com/gnames/gnnub/pkg/parserpool"
	"github.com/gnames/gnnub/pkg/policy"
	"github.com/gnames/gnnub/pkg/sources"
)

type builder struct {
	cfg *config.Config

	sources []sources.DataSourceConfig
	policy  *policy.Policy
	reader  gnnub.SourceReader
	graph   gnnub.GraphStore
	lookup  lookup.Store
	persist gnnub.SourceStore
	parser  ingest.Parser
	metrics *iometrics.Metrics
	quiet   bool

	// touched is set once a source started to change the backbone.
	touched bool

	// closers release resources opened by the builder itself.
	closers []func()
}

// Option configures the builder. Collaborators given by options are not
// closed by the builder.
type Option func(*builder)

// OptSources sets data sources instead of reading sources.yaml.
func OptSources(dss []sources.DataSourceConfig) Option {
	return func(b *builder) { b.sources = dss }
}

// OptPolicy sets the policy instead of reading policy.yaml.
func OptPolicy(pol *policy.Policy) Option {
	return func(b *builder) { b.policy = pol }
}

// OptReader sets the reader of source checklists.
func OptReader(r gnnub.SourceReader) Option {
	return func(b *builder) { b.reader = r }
}

// OptGraphStore sets the storage of the backbone.
func OptGraphStore(s gnnub.GraphStore) Option {
	return func(b *builder) { b.graph = s }
}

// OptLookupStore sets the lookup store.
func OptLookupStore(s lookup.Store) Option {
	return func(b *builder) { b.lookup = s }
}

// OptSourceStore sets relational storage of source usages. Without it
// the storage is created only if build.with_database is set.
func OptSourceStore(s gnnub.SourceStore) Option {
	return func(b *builder) { b.persist = s }
}

// OptParser sets the name parser.
func OptParser(p ingest.Parser) Option {
	return func(b *builder) { b.parser = p }
}

// OptMetrics sets the collector of build metrics.
func OptMetrics(m *iometrics.Metrics) Option {
	return func(b *builder) { b.metrics = m }
}

// OptQuiet disables progress output to the terminal.
func OptQuiet(quiet bool) Option {
	return func(b *builder) { b.quiet = quiet }
}

// New creates a Builder. Collaborators not given by options are created
// from cfg when Build runs.
func New(cfg *config.Config, opts ...Option) gnnub.Builder {
	res := &builder{cfg: cfg}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Build implements gnnub.Builder.
func (b *builder) Build(ctx context.Context) (gnnub.Summary, error) {
	var res gnnub.Summary
	start := time.Now()
	defer b.close()

	dss, err := b.selectSources()
	if err != nil {
		return res, err
	}
	if err = ctx.Err(); err != nil {
		return res, CanceledError(err)
	}
	if err = b.prepare(ctx, dss); err != nil {
		return res, err
	}

	g, err := b.loadGraph(ctx)
	if err != nil {
		return res, err
	}

	// the lookup store is derived data, it has to mirror the saved
	// backbone before matching starts
	if err = b.rebuildLookup(ctx, g); err != nil {
		return res, err
	}

	m := match.New(b.lookup, g, b.policy)
	in := ingest.New(g, m, b.lookup, b.policy, b.parser, b.ingestOpts()...)

	res.Issues = make(map[string]int)
	for i, ds := range dss {
		if err = ctx.Err(); err != nil {
			return res, b.abort(ctx, CanceledError(err))
		}

		b.info("Data Source [%d/%d] <em>%d</em>: %s",
			i+1, len(dss), ds.ID, ds.Name())
		dsStart := time.Now()
		src, err := b.readSource(ctx, ds)
		if isCanceled(ctx, err) {
			return res, b.abort(ctx, CanceledError(err))
		}
		if err != nil {
			b.observeImport(dsStart, err)
			res.Failed = append(res.Failed, ds.ID)
			slog.Error("Failed to import source",
				"data_source_id", ds.ID,
				"title", ds.Name(),
				"error", err,
			)
			if !b.quiet {
				gn.PrintErrorMessage(err)
			}
			continue
		}

		// from here on the backbone carries changes of the source, a
		// failure cannot be skipped
		b.touched = true
		err = b.ingestSource(ctx, in, ds, src, &res)
		b.observeImport(dsStart, err)
		if isCanceled(ctx, err) {
			return res, b.abort(ctx, CanceledError(err))
		}
		if err != nil {
			return res, b.abort(ctx, IngestError(ds.ID, err))
		}
		res.Datasets = append(res.Datasets, ds.ID)
	}

	if len(res.Datasets) == 0 {
		return res, AllSourcesFailedError(len(res.Failed))
	}
	if err = ctx.Err(); err != nil {
		return res, b.abort(ctx, CanceledError(err))
	}

	if err = b.finish(ctx, g); err != nil {
		return res, b.abort(ctx, err)
	}
	res.Nodes = g.Len()

	b.report(res, time.Since(start))
	return res, nil
}

// selectSources returns sources to import in the order of sources.yaml.
// Excluded sources are imported only when their IDs are requested.
func (b *builder) selectSources() ([]sources.DataSourceConfig, error) {
	if b.sources == nil {
		sc, err := iosources.New(b.cfg).Load()
		if err != nil {
			return nil, err
		}
		b.sources = sc.DataSources
	}

	ids := b.cfg.Build.DatasetIDs
	var res []sources.DataSourceConfig
	if len(ids) == 0 {
		for _, v := range b.sources {
			if !v.Exclude {
				res = append(res, v)
			}
		}
	} else {
		for _, v := range b.sources {
			if slices.Contains(ids, v.ID) {
				res = append(res, v)
			}
		}
	}

	if len(res) == 0 {
		return nil, NoSourcesError(ids)
	}
	if len(ids) > len(res) {
		slog.Warn("Some requested sources are not in sources.yaml",
			"requested", ids, "found", sources.IDs(res))
	}

	slog.Info("Sources selected", "ids", sources.IDs(res))
	return res, nil
}

// prepare creates collaborators that were not given by options.
func (b *builder) prepare(
	ctx context.Context,
	dss []sources.DataSourceConfig,
) error {
	var err error
	home := b.cfg.HomeDir

	if b.policy == nil {
		b.policy, err = iopolicy.Load(config.PolicyFilePath(home))
		if err != nil {
			return err
		}
	}
	if b.reader == nil {
		b.reader = iosfga.New(config.SFGADir(home))
	}
	if b.parser == nil {
		pool := parserpool.NewPool(b.cfg.JobsNumber)
		b.parser = pool
		b.closers = append(b.closers, pool.Close)
	}
	if b.graph == nil {
		b.graph, err = iograph.Open(config.GraphFilePath(home))
		if err != nil {
			return err
		}
		store := b.graph
		b.closers = append(b.closers, func() { _ = store.Close() })
	}
	if b.lookup == nil {
		b.lookup, err = iolookup.Open(b.cfg.LookupDir())
		if err != nil {
			return err
		}
		store := b.lookup
		b.closers = append(b.closers, func() { _ = store.Close() })
	}
	if b.persist == nil && b.cfg.Build.WithDatabase {
		b.persist, err = b.connect(ctx, dss)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, b.persist.Close)
	}
	return nil
}

func (b *builder) connect(
	ctx context.Context,
	dss []sources.DataSourceConfig,
) (gnnub.SourceStore, error) {
	dbCfg := &b.cfg.Database
	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, dbCfg); err != nil {
		return nil, err
	}
	b.info("Connected to database: <em>%s@%s:%d/%s</em>",
		dbCfg.User, dbCfg.Host, dbCfg.Port, dbCfg.Database)

	if err := ioschema.NewManager(op).Migrate(ctx); err != nil {
		op.Close()
		return nil, err
	}
	return iopersist.New(op, dbCfg.BatchSize, dss), nil
}

// loadGraph restores the saved backbone. Keys of a new backbone start
// with build.first_key, keys of a restored one continue after the largest
// key ever used.
func (b *builder) loadGraph(ctx context.Context) (*backbone.Graph, error) {
	opt := backbone.OptMaxSynonymChain(b.cfg.Build.MaxSynonymChain)

	nodes, err := b.graph.Load(ctx)
	if err != nil {
		return nil, err
	}
	maxKey, err := b.graph.MaxKey(ctx)
	if err != nil {
		return nil, err
	}

	if len(nodes) == 0 && maxKey == 0 {
		slog.Info("Starting a new backbone", "first_key", b.cfg.Build.FirstKey)
		return backbone.New(b.cfg.Build.FirstKey, opt), nil
	}

	nextKey := max(maxKey+1, b.cfg.Build.FirstKey)
	g := backbone.Load(nodes, nextKey, opt)
	b.info("Loaded backbone with <em>%s</em> usages",
		humanize.Comma(int64(g.Len())))
	return g, nil
}

func (b *builder) ingestOpts() []ingest.Option {
	res := []ingest.Option{ingest.OptJobsNumber(b.cfg.JobsNumber)}
	if b.metrics != nil {
		res = append(res, ingest.OptObserver(b.metrics))
	}
	return res
}

// isCanceled also checks the context, readers may return gn.Error that
// does not unwrap.
func isCanceled(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (b *builder) observeImport(start time.Time, err error) {
	if b.metrics != nil {
		b.metrics.ObserveImport(time.Since(start), err)
	}
}

// readSource reads a source and saves its usages to the source database.
// Its failures leave the backbone untouched, so the source can be skipped.
func (b *builder) readSource(
	ctx context.Context,
	ds sources.DataSourceConfig,
) ([]usage.SrcUsage, error) {
	src, err := b.reader.Read(ctx, ds)
	if err != nil {
		return nil, err
	}
	b.message("<em>Read %s usages</em>", humanize.Comma(int64(len(src))))

	if b.persist != nil {
		if err = b.persist.LoadSource(ctx, ds.ID, src); err != nil {
			return nil, err
		}
	}
	return src, nil
}

// ingestSource merges source usages into the backbone and saves the
// mapping of source IDs to backbone keys.
func (b *builder) ingestSource(
	ctx context.Context,
	in *ingest.Ingester,
	ds sources.DataSourceConfig,
	src []usage.SrcUsage,
	res *gnnub.Summary,
) error {
	start := time.Now()
	r, err := in.Ingest(ctx, ds.ID, src)
	if err != nil {
		return err
	}

	if b.persist != nil {
		if err = b.persist.SaveMapping(ctx, ds.ID, r.Mapping); err != nil {
			return err
		}
	}

	res.Usages += len(src)
	res.Created += r.Created
	res.Matched += r.Matched
	res.Ambiguous += r.Ambiguous
	res.Skipped += r.Skipped
	for k, v := range r.Issues {
		res.Issues[k.String()] += v
	}

	d := time.Since(start)
	slog.Info("Source imported",
		"data_source_id", ds.ID,
		"title", ds.Name(),
		"created", r.Created,
		"matched", r.Matched,
		"ambiguous", r.Ambiguous,
		"skipped", r.Skipped,
		"duration", gnfmt.TimeString(d.Seconds()),
	)
	b.message("<em>Created %s, matched %s usages in %s</em>",
		humanize.Comma(int64(r.Created)),
		humanize.Comma(int64(r.Matched)),
		gnfmt.TimeString(d.Seconds()),
	)
	return nil
}

// abort stops a build without saving the backbone. Records of unsaved
// changes are removed from the lookup store by rebuilding it from the
// saved backbone.
func (b *builder) abort(ctx context.Context, err error) error {
	if !b.touched {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	g, lerr := b.loadGraph(ctx)
	if lerr == nil {
		lerr = b.rebuildLookup(ctx, g)
	}
	if lerr != nil {
		slog.Error("Cannot restore lookup store", "error", lerr)
	}
	return err
}

// finish finalizes, validates and saves the backbone, then rebuilds the
// lookup store from it.
func (b *builder) finish(ctx context.Context, g *backbone.Graph) error {
	root := g.Finalize()
	if err := g.Validate(); err != nil {
		return InvalidGraphError(err)
	}
	slog.Info("Backbone finalized", "root", root, "usages", g.Len())

	if err := b.graph.Save(ctx, g.Nodes(), g.MaxKey()); err != nil {
		return err
	}
	if err := b.rebuildLookup(ctx, g); err != nil {
		return err
	}
	if b.metrics != nil {
		b.metrics.SetNodes(g.Len())
	}

	// the backbone is saved already, a failed cleanup is not fatal
	if b.persist != nil {
		if err := b.persist.Optimize(ctx, b.sourceIDs()); err != nil {
			slog.Warn("Cannot optimize source database", "error", err)
			if !b.quiet {
				gn.PrintErrorMessage(err)
			}
		}
	}
	return nil
}

// sourceIDs returns IDs of all sources of sources.yaml, excluded ones
// included.
func (b *builder) sourceIDs() []int {
	res := make([]int, len(b.sources))
	for i, v := range b.sources {
		res[i] = v.ID
	}
	return res
}

func (b *builder) rebuildLookup(ctx context.Context, g *backbone.Graph) error {
	seq := g.All()
	if !b.quiet && g.Len() > 0 {
		bar := newProgressBar(g.Len(), "Rebuilding lookup: ")
		defer bar.Finish()
		seq = withProgress(seq, bar)
	}
	return b.lookup.Rebuild(ctx, seq)
}

func (b *builder) report(res gnnub.Summary, d time.Duration) {
	slog.Info("Build complete",
		"imported", len(res.Datasets),
		"failed", len(res.Failed),
		"usages", res.Usages,
		"nodes", res.Nodes,
		"duration", gnfmt.TimeString(d.Seconds()),
	)
	if len(res.Failed) > 0 {
		slog.Warn("Some sources failed to import",
			"failed", res.Failed,
			"succeeded", res.Datasets)
	}

	var issues []string
	for _, k := range slices.Sorted(maps.Keys(res.Issues)) {
		issues = append(issues,
			fmt.Sprintf("  %s: %s", k, humanize.Comma(int64(res.Issues[k]))))
	}
	if len(issues) == 0 {
		issues = append(issues, "  none")
	}

	b.info(`Build complete
Sources succeeded: %d, failed %d.
Backbone usages: <em>%s</em>
Issues:
%s
Elapsed time: <em>%s</em>`,
		len(res.Datasets),
		len(res.Failed),
		humanize.Comma(int64(res.Nodes)),
		strings.Join(issues, "\n"),
		gnfmt.TimeString(d.Seconds()),
	)
}

func (b *builder) info(msg string, vars ...any) {
	if !b.quiet {
		gn.Info(msg, vars...)
	}
}

func (b *builder) message(msg string, vars ...any) {
	if !b.quiet {
		gn.Message(msg, vars...)
	}
}

func (b *builder) close() {
	for _, fn := range slices.Backward(b.closers) {
		fn()
	}
	b.closers = nil
}
