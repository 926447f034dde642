// Package match finds the backbone usage that corresponds to a source
// usage.
//
// Candidates come from a lookup.Store by canonical name and rank. Each
// candidate is compared with the query by authorship and year. Homonym
// exclusions of the policy remove candidates placed across a curated
// higher-taxon boundary. The engine never guesses: two equally good
// candidates produce an Ambiguous result.
package match

import (
	"slices"

	"github.com/gnames/gnnub/pkg/authorship"
	"github.com/gnames/gnnub/pkg/ent/equality"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/lookup"
	"github.com/gnames/gnnub/pkg/policy"
)

// Kind is the outcome of a match.
type Kind int

const (
	// NoMatch means no candidate survived the comparison.
	NoMatch Kind = iota
	// Matched means a single candidate was selected, its key is in
	// Result.Key.
	Matched
	// Ambiguous means more than one candidate was left. They are listed in
	// Result.Candidates.
	Ambiguous
)

var kindNames = []string{"no_match", "matched", "ambiguous"}

// String returns the name of the match kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[0]
	}
	return kindNames[k]
}

// Classifier gives names of a backbone node and its ancestors, root
// first.
type Classifier interface {
	Classification(key int) []string
}

// Context is the classification available for a query.
type Context struct {
	// Kingdom restricts candidates to one kingdom. Candidates without a
	// kingdom are always considered.
	Kingdom string

	// Ancestors are canonical names of the query's higher taxa, root
	// first.
	Ancestors []string
}

// Result of a match.
type Result struct {
	Kind Kind

	// Key of the matched backbone usage, zero unless Kind is Matched.
	Key int

	// Candidates are the keys of equally good candidates, sorted.
	Candidates []int

	// Weak is true when the match relies on the name only, because
	// authorship and year gave no signal.
	Weak bool

	// Excluded is the number of candidates removed by homonym
	// exclusions.
	Excluded int
}

// Engine matches source usages against the backbone.
// It is safe for concurrent use if its Store and Classifier are.
type Engine struct {
	store lookup.Store
	cls   Classifier
	pol   *policy.Policy
}

// New creates an Engine. Classifier and Policy can be nil, then the
// homonym exclusion is not applied.
func New(store lookup.Store, cls Classifier, pol *policy.Policy) *Engine {
	return &Engine{store: store, cls: cls, pol: pol}
}

// Match finds a backbone usage for the query. Store errors are returned,
// a query without a parsed canonical name is a NoMatch.
func (e *Engine) Match(q usage.SrcUsage, ctx Context) (Result, error) {
	var res Result
	if q.Parsed == nil || q.Parsed.CanonicalName == "" {
		return res, nil
	}
	qName := *q.Parsed
	rnk := q.Rank
	if rnk == rank.Unranked {
		rnk = qName.Rank
	}

	cands, err := e.store.Candidates(qName.CanonicalName, rnk, ctx.Kingdom)
	if err != nil {
		return res, err
	}

	var equal, unknown []int
	var qCls []string
	for _, c := range cands {
		if c.Deleted {
			continue
		}
		if e.excluded(qName.CanonicalName, ctx, &qCls, c.Key) {
			res.Excluded++
			continue
		}
		switch authorship.Compare(qName, c.ParsedName()) {
		case equality.Equal:
			equal = append(equal, c.Key)
		case equality.Unknown:
			unknown = append(unknown, c.Key)
		}
	}

	switch {
	case len(equal) == 1:
		res.Kind = Matched
		res.Key = equal[0]
		res.Candidates = equal
	case len(equal) > 1:
		res.Kind = Ambiguous
		res.Candidates = equal
	case len(unknown) == 1:
		res.Kind = Matched
		res.Key = unknown[0]
		res.Candidates = unknown
		res.Weak = true
	case len(unknown) > 1:
		res.Kind = Ambiguous
		res.Candidates = unknown
	}
	slices.Sort(res.Candidates)
	return res, nil
}

// excluded checks the homonym exclusion for a candidate. The query
// classification is built lazily, most names have no exclusion rules.
func (e *Engine) excluded(
	canonical string,
	ctx Context,
	qCls *[]string,
	key int,
) bool {
	if e.cls == nil || e.pol == nil || !e.pol.HasExclusion(canonical) {
		return false
	}
	if *qCls == nil {
		*qCls = append(slices.Clone(ctx.Ancestors), canonical)
	}
	return e.pol.Excludes(canonical, *qCls, e.cls.Classification(key))
}
