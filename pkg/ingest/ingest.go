// Package ingest merges usages of one source checklist into the backbone.
//
// For every source usage the ingester asks the match engine whether the
// backbone already has it. Matched usages add provenance to existing
// nodes, others become new nodes. Source edges (parent, accepted,
// basionym) are translated into backbone edges through the mapping from
// source ids to backbone keys. Problems in the source data are recorded
// as issues on the backbone nodes and never stop the import.
//
// An Ingester is a single writer of the backbone graph. Only name parsing
// runs concurrently.
package ingest

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"slices"

	"github.com/gnames/gnlib/ent/nomcode"
	"github.com/gnames/gnnub/pkg/backbone"
	"github.com/gnames/gnnub/pkg/ent/issue"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/lookup"
	"github.com/gnames/gnnub/pkg/match"
	"github.com/gnames/gnnub/pkg/parserpool"
	"github.com/gnames/gnnub/pkg/policy"
	"golang.org/x/sync/errgroup"
)

// Parser turns a scientific name string into a parsed name.
// It must be safe for concurrent use.
type Parser interface {
	Parse(name string, code nomcode.Code) (usage.ParsedName, error)
}

// Observer receives events of an import, for example to collect metrics.
type Observer interface {
	ObserveMatch(kind match.Kind, weak bool)
	ObserveIssue(iss issue.Issue)
}

// Result summarizes the import of one dataset.
type Result struct {
	DatasetID int

	// Mapping connects source ids to backbone keys.
	Mapping map[string]int

	Created   int
	Matched   int
	Ambiguous int

	// Skipped usages are blacklisted, unparsable or have duplicate ids.
	Skipped int

	// Issues counts issues recorded during the import.
	Issues map[issue.Issue]int
}

// Ingester imports source checklists into a backbone.
type Ingester struct {
	g     *backbone.Graph
	m     *match.Engine
	store lookup.Store
	pol   *policy.Policy
	p     Parser
	jobs  int
	obs   Observer
}

// Option configures an Ingester.
type Option func(*Ingester)

// OptJobsNumber sets the number of concurrent parsing workers.
func OptJobsNumber(i int) Option {
	return func(in *Ingester) {
		if i > 0 {
			in.jobs = i
		}
	}
}

// OptObserver sets a receiver of import events.
func OptObserver(obs Observer) Option {
	return func(in *Ingester) {
		in.obs = obs
	}
}

// New creates an Ingester. The store has to be the one used by the match
// engine, so names created during an import can be matched by later
// usages of the same import.
func New(
	g *backbone.Graph,
	m *match.Engine,
	store lookup.Store,
	pol *policy.Policy,
	p Parser,
	opts ...Option,
) *Ingester {
	res := &Ingester{
		g:     g,
		m:     m,
		store: store,
		pol:   pol,
		p:     p,
		jobs:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Ingest merges usages of a dataset into the backbone. The context is
// checked during parsing only; once the graph is modified the import runs
// to the end. Returned errors come from the parser or the lookup store.
func (in *Ingester) Ingest(
	ctx context.Context,
	datasetID int,
	src []usage.SrcUsage,
) (Result, error) {
	res := Result{
		DatasetID: datasetID,
		Mapping:   make(map[string]int),
		Issues:    make(map[issue.Issue]int),
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	run := newRun(in, datasetID, src, &res)
	if err := run.parse(ctx); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	run.filter()

	steps := []func() error{
		run.importAccepted,
		run.importSynonyms,
		run.linkSynonyms,
		run.linkBasionyms,
		run.flush,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// run keeps the state of one dataset import.
type run struct {
	*Ingester
	datasetID int
	res       *Result

	// recs keeps usages with unique non-blank ids in source order.
	recs    []*usage.SrcUsage
	byID    map[string]*usage.SrcUsage
	skipped map[string]struct{}

	// created holds synonyms that got new nodes and still need their
	// accepted edge.
	created []*usage.SrcUsage
	touched map[int]struct{}
}

func newRun(in *Ingester, datasetID int, src []usage.SrcUsage, res *Result) *run {
	r := &run{
		Ingester:  in,
		datasetID: datasetID,
		res:       res,
		byID:      make(map[string]*usage.SrcUsage, len(src)),
		skipped:   make(map[string]struct{}),
		touched:   make(map[int]struct{}),
	}
	for i := range src {
		u := &src[i]
		if u.ID == "" {
			r.res.Skipped++
			continue
		}
		if _, ok := r.byID[u.ID]; ok {
			r.res.Skipped++
			continue
		}
		r.byID[u.ID] = u
		r.recs = append(r.recs, u)
	}
	return r
}

// parse fills parsed names of all usages concurrently.
func (r *run) parse(ctx context.Context) error {
	kingdoms := make([]string, len(r.recs))
	for i, u := range r.recs {
		kingdoms[i] = r.srcKingdom(u)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.jobs)
	for i, u := range r.recs {
		if u.Parsed != nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := r.p.Parse(u.ScientificName, parserpool.CodeFor(kingdoms[i]))
			if err != nil {
				return fmt.Errorf("cannot parse %q: %w", u.ScientificName, err)
			}
			u.Parsed = &p
			return nil
		})
	}
	return g.Wait()
}

// filter removes blacklisted and unparsable usages.
func (r *run) filter() {
	for _, u := range r.recs {
		var iss issue.Issue
		switch {
		case u.Parsed == nil || u.Parsed.CanonicalName == "":
			iss = issue.UnparsableName
		case r.pol.IsBlacklisted(u.ScientificName, u.Parsed.CanonicalName):
			iss = issue.BlacklistedName
		default:
			continue
		}
		r.skipped[u.ID] = struct{}{}
		r.res.Skipped++
		r.count(iss)
	}
}

func (r *run) isSkipped(id string) bool {
	_, ok := r.skipped[id]
	return ok
}

func (r *run) provenance(u *usage.SrcUsage) string {
	return fmt.Sprintf("%d:%s", r.datasetID, u.ID)
}

func (r *run) count(iss issue.Issue) {
	r.res.Issues[iss]++
	if r.obs != nil {
		r.obs.ObserveIssue(iss)
	}
}

func (r *run) observeMatch(res match.Result) {
	switch res.Kind {
	case match.Matched:
		r.res.Matched++
	case match.Ambiguous:
		r.res.Ambiguous++
	}
	if r.obs != nil {
		r.obs.ObserveMatch(res.Kind, res.Weak)
	}
}

// track runs a graph mutation and counts issues it added to the node.
func (r *run) track(key int, fn func()) {
	before, _ := r.g.Node(key)
	fn()
	after, _ := r.g.Node(key)
	for _, iss := range after.Issues {
		if !slices.Contains(before.Issues, iss) {
			r.count(iss)
		}
	}
}

func (r *run) mark(key int, iss issue.Issue) {
	r.track(key, func() { r.g.MarkIssue(key, iss) })
}

// put stores the lookup record of a node and remembers it for the final
// flush.
func (r *run) put(key int) error {
	n, ok := r.g.Node(key)
	if !ok {
		return nil
	}
	r.touched[key] = struct{}{}
	return r.store.Put(n.Lookup())
}

// flush refreshes lookup records of all nodes touched by the import.
func (r *run) flush() error {
	for _, k := range slices.Sorted(maps.Keys(r.touched)) {
		n, ok := r.g.Node(k)
		if !ok {
			continue
		}
		if err := r.store.Put(n.Lookup()); err != nil {
			return err
		}
	}
	return nil
}
