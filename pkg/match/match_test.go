package match_test

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/lookup"
	"github.com/gnames/gnnub/pkg/match"
	"github.com/gnames/gnnub/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store struct {
	recs []usage.LookupUsage
	err  error
}

func (s *store) Put(rec usage.LookupUsage) error {
	s.recs = append(s.recs, rec)
	return nil
}

func (s *store) Get(key int) (usage.LookupUsage, bool, error) {
	for _, v := range s.recs {
		if v.Key == key {
			return v, true, nil
		}
	}
	return usage.LookupUsage{}, false, nil
}

func (s *store) Candidates(
	canonical string,
	rnk rank.Rank,
	kingdom string,
) ([]usage.LookupUsage, error) {
	if s.err != nil {
		return nil, s.err
	}
	var res []usage.LookupUsage
	for _, v := range s.recs {
		if lookup.NormCanonical(v.CanonicalName) != lookup.NormCanonical(canonical) {
			continue
		}
		if v.Rank != rnk {
			continue
		}
		if kingdom != "" && v.Kingdom != "" && v.Kingdom != kingdom {
			continue
		}
		res = append(res, v)
	}
	return res, nil
}

func (s *store) ByPrefix(string, int) ([]usage.LookupUsage, error) {
	return nil, nil
}

func (s *store) Rebuild(context.Context, iter.Seq[usage.NubUsage]) error {
	return nil
}

func (s *store) Len() int     { return len(s.recs) }
func (s *store) Close() error { return nil }

type classifier map[int][]string

func (c classifier) Classification(key int) []string { return c[key] }

func species(key int, au, year string) usage.LookupUsage {
	return usage.LookupUsage{
		Key:           key,
		CanonicalName: "Abies alba",
		Authorship:    au,
		Year:          year,
		Rank:          rank.Species,
	}
}

func query(au, year string) usage.SrcUsage {
	sciName := "Abies alba"
	if au != "" {
		sciName += " " + au
	}
	return usage.SrcUsage{
		ID:             "1",
		Rank:           rank.Species,
		ScientificName: sciName,
		Parsed: &usage.ParsedName{
			ScientificName: sciName,
			CanonicalName:  "Abies alba",
			Authorship:     au,
			Year:           year,
			Rank:           rank.Species,
			AuthorsParsed:  true,
		},
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		msg   string
		recs  []usage.LookupUsage
		q     usage.SrcUsage
		kind  match.Kind
		key   int
		cands []int
		weak  bool
	}{
		{
			msg:  "no candidates",
			q:    query("Mill.", ""),
			kind: match.NoMatch,
		},
		{
			msg:   "abbreviated author",
			recs:  []usage.LookupUsage{species(1, "Miller", "")},
			q:     query("Mill.", ""),
			kind:  match.Matched,
			key:   1,
			cands: []int{1},
		},
		{
			msg: "two equal candidates",
			recs: []usage.LookupUsage{
				species(7, "Mill.", ""),
				species(3, "Miller", ""),
			},
			q:     query("Mill.", ""),
			kind:  match.Ambiguous,
			cands: []int{3, 7},
		},
		{
			msg: "different author and unknown",
			recs: []usage.LookupUsage{
				species(1, "DC.", ""),
				species(2, "", ""),
			},
			q:     query("Mill.", ""),
			kind:  match.Matched,
			key:   2,
			cands: []int{2},
			weak:  true,
		},
		{
			msg: "two unknown",
			recs: []usage.LookupUsage{
				species(1, "", ""),
				species(2, "", ""),
			},
			q:     query("Mill.", ""),
			kind:  match.Ambiguous,
			cands: []int{1, 2},
		},
		{
			msg: "equal wins over unknown",
			recs: []usage.LookupUsage{
				species(1, "", ""),
				species(2, "Mill.", ""),
			},
			q:     query("Mill.", ""),
			kind:  match.Matched,
			key:   2,
			cands: []int{2},
		},
		{
			msg:  "only different",
			recs: []usage.LookupUsage{species(1, "DC.", "")},
			q:    query("Mill.", ""),
			kind: match.NoMatch,
		},
		{
			msg:   "year overrides different authors",
			recs:  []usage.LookupUsage{species(1, "DC.", "1768")},
			q:     query("L.", "1768"),
			kind:  match.Matched,
			key:   1,
			cands: []int{1},
		},
		{
			msg:  "year overrides similar authors",
			recs: []usage.LookupUsage{species(1, "Miller", "1768")},
			q:    query("Mill.", "1759"),
			kind: match.NoMatch,
		},
		{
			msg: "deleted candidate",
			recs: []usage.LookupUsage{
				{Key: 1, CanonicalName: "Abies alba", Authorship: "Mill.",
					Rank: rank.Species, Deleted: true},
			},
			q:    query("Mill.", ""),
			kind: match.NoMatch,
		},
		{
			msg: "other rank",
			recs: []usage.LookupUsage{
				{Key: 1, CanonicalName: "Abies alba", Authorship: "Mill.",
					Rank: rank.Variety},
			},
			q:    query("Mill.", ""),
			kind: match.NoMatch,
		},
		{
			msg:  "unparsed query",
			recs: []usage.LookupUsage{species(1, "Mill.", "")},
			q:    usage.SrcUsage{ID: "1", ScientificName: "Abies alba Mill."},
			kind: match.NoMatch,
		},
	}

	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			assert := assert.New(t)
			m := match.New(&store{recs: v.recs}, nil, nil)
			res, err := m.Match(v.q, match.Context{})
			require.Nil(t, err)
			assert.Equal(v.kind, res.Kind)
			assert.Equal(v.key, res.Key)
			assert.Equal(v.cands, res.Candidates)
			assert.Equal(v.weak, res.Weak)
		})
	}
}

func TestMatchRankFromParsed(t *testing.T) {
	q := query("Mill.", "")
	q.Rank = rank.Unranked
	m := match.New(&store{recs: []usage.LookupUsage{species(1, "Mill.", "")}},
		nil, nil)
	res, err := m.Match(q, match.Context{})
	assert.Nil(t, err)
	assert.Equal(t, match.Matched, res.Kind)
}

func TestMatchKingdom(t *testing.T) {
	assert := assert.New(t)
	plant := species(1, "Mill.", "")
	plant.Kingdom = "Plantae"
	animal := species(2, "Mill.", "")
	animal.Kingdom = "Animalia"
	m := match.New(&store{recs: []usage.LookupUsage{plant, animal}}, nil, nil)

	res, err := m.Match(query("Mill.", ""), match.Context{Kingdom: "Plantae"})
	assert.Nil(err)
	assert.Equal(match.Matched, res.Kind)
	assert.Equal(1, res.Key)

	res, err = m.Match(query("Mill.", ""), match.Context{})
	assert.Nil(err)
	assert.Equal(match.Ambiguous, res.Kind)
}

func TestMatchHomonymExclusion(t *testing.T) {
	assert := assert.New(t)
	recs := []usage.LookupUsage{
		{Key: 10, CanonicalName: "Oenanthe", Rank: rank.Genus},
		{Key: 20, CanonicalName: "Oenanthe", Rank: rank.Genus},
	}
	cls := classifier{
		10: {"Plantae", "Apiaceae", "Oenanthe"},
		20: {"Animalia", "Aves", "Muscicapidae", "Oenanthe"},
	}
	pol := policy.New(nil, []policy.Exclusion{{Name: "Oenanthe", Taxon: "Aves"}})
	m := match.New(&store{recs: recs}, cls, pol)

	q := usage.SrcUsage{
		ID:   "1",
		Rank: rank.Genus,
		Parsed: &usage.ParsedName{
			ScientificName: "Oenanthe",
			CanonicalName:  "Oenanthe",
			Rank:           rank.Genus,
		},
	}

	res, err := m.Match(q, match.Context{Ancestors: []string{"Animalia", "Aves"}})
	assert.Nil(err)
	assert.Equal(match.Matched, res.Kind)
	assert.Equal(20, res.Key)
	assert.True(res.Weak)
	assert.Equal(1, res.Excluded)

	res, err = m.Match(q, match.Context{Ancestors: []string{"Plantae"}})
	assert.Nil(err)
	assert.Equal(match.Matched, res.Kind)
	assert.Equal(10, res.Key)

	// without policy both genera are candidates
	m = match.New(&store{recs: recs}, cls, nil)
	res, err = m.Match(q, match.Context{Ancestors: []string{"Plantae"}})
	assert.Nil(err)
	assert.Equal(match.Ambiguous, res.Kind)
	assert.Equal(0, res.Excluded)
}

func TestMatchStoreError(t *testing.T) {
	m := match.New(&store{err: errors.New("boom")}, nil, nil)
	_, err := m.Match(query("Mill.", ""), match.Context{})
	assert.NotNil(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "matched", match.Matched.String())
	assert.Equal(t, "ambiguous", match.Ambiguous.String())
	assert.Equal(t, "no_match", match.Kind(42).String())
}
