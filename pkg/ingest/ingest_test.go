package ingest_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"unicode"

	"github.com/gnames/gnlib/ent/nomcode"
	"github.com/gnames/gnnub/internal/iolookup"
	"github.com/gnames/gnnub/pkg/backbone"
	"github.com/gnames/gnnub/pkg/ent/issue"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/status"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/ingest"
	"github.com/gnames/gnnub/pkg/lookup"
	"github.com/gnames/gnnub/pkg/match"
	"github.com/gnames/gnnub/pkg/parserpool"
	"github.com/gnames/gnnub/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var yearRe = regexp.MustCompile(`,?\s*(\d{4})$`)

// parser is a primitive name parser: a capitalized genus, up to two
// lower-case epithets, the rest is authorship with an optional year.
type parser struct {
	err error
}

func (p parser) Parse(name string, _ nomcode.Code) (usage.ParsedName, error) {
	res := usage.ParsedName{ScientificName: name}
	if p.err != nil {
		return res, p.err
	}
	ws := strings.Fields(name)
	if len(ws) == 0 || !unicode.IsUpper([]rune(ws[0])[0]) {
		return res, nil
	}
	can := []string{ws[0]}
	i := 1
	for ; i < len(ws) && i < 3 && unicode.IsLower([]rune(ws[i])[0]); i++ {
		can = append(can, ws[i])
	}
	res.CanonicalName = strings.Join(can, " ")
	res.Genus = ws[0]
	switch len(can) {
	case 2:
		res.SpecificEpithet = can[1]
		res.Rank = rank.Species
	case 3:
		res.SpecificEpithet, res.InfraspecificEpithet = can[1], can[2]
		res.Rank = rank.Subspecies
	}
	au := strings.Join(ws[i:], " ")
	if m := yearRe.FindStringSubmatch(au); m != nil {
		res.Year = m[1]
		au = strings.TrimSpace(yearRe.ReplaceAllString(au, ""))
	}
	res.Authorship = au
	res.AuthorsParsed = true
	return res, nil
}

type env struct {
	g     *backbone.Graph
	store lookup.Store
	in    *ingest.Ingester
}

func newEnv(t *testing.T, pol *policy.Policy, p ingest.Parser, opts ...ingest.Option) env {
	g := backbone.New(1)
	store, err := iolookup.OpenInMemory()
	require.Nil(t, err)
	t.Cleanup(func() { store.Close() })
	m := match.New(store, g, pol)
	opts = append([]ingest.Option{ingest.OptJobsNumber(2)}, opts...)
	return env{
		g:     g,
		store: store,
		in:    ingest.New(g, m, store, pol, p, opts...),
	}
}

func (e env) node(t *testing.T, res ingest.Result, id string) usage.NubUsage {
	key, ok := res.Mapping[id]
	require.True(t, ok, "no mapping for %s", id)
	n, ok := e.g.Node(key)
	require.True(t, ok)
	return n
}

func (e env) seed(t *testing.T, nubs ...usage.NubUsage) []int {
	var res []int
	for _, n := range nubs {
		key := e.g.CreateNode(n)
		rec, _ := e.g.Node(key)
		require.Nil(t, e.store.Put(rec.Lookup()))
		res = append(res, key)
	}
	return res
}

func accepted(id, parentID, name string, rnk rank.Rank) usage.SrcUsage {
	return usage.SrcUsage{
		ID:              id,
		ParentID:        parentID,
		ScientificName:  name,
		Rank:            rnk,
		TaxonomicStatus: status.Accepted,
	}
}

func synonym(id, acceptedID, name string, rnk rank.Rank) usage.SrcUsage {
	return usage.SrcUsage{
		ID:              id,
		AcceptedID:      acceptedID,
		ScientificName:  name,
		Rank:            rnk,
		TaxonomicStatus: status.Synonym,
	}
}

func TestIngestAbies(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	e := newEnv(t, nil, parser{})

	src1 := []usage.SrcUsage{
		accepted("1", "2", "Abies alba Mill.", rank.Species),
		accepted("2", "", "Abies Mill.", rank.Genus),
	}
	res, err := e.in.Ingest(ctx, 1, src1)
	require.Nil(t, err)
	assert.Equal(2, res.Created)
	assert.Equal(0, res.Matched)
	assert.Equal(2, e.g.Len())

	genus := e.node(t, res, "2")
	species := e.node(t, res, "1")
	assert.Equal(genus.Key, species.ParentKey)
	assert.Equal("Abies alba", species.CanonicalName)
	assert.Equal("Mill.", species.Authorship)
	assert.Equal([]string{"1:1"}, species.Sources)

	assert.Equal(genus.Key, e.g.Finalize())
	root, ok := e.g.Root()
	assert.True(ok)
	assert.Equal(genus.Key, root)
	assert.Nil(e.g.Validate())

	src2 := []usage.SrcUsage{
		accepted("a", "b", "Abies alba Miller", rank.Species),
		accepted("b", "", "Abies Miller", rank.Genus),
	}
	res, err = e.in.Ingest(ctx, 2, src2)
	require.Nil(t, err)
	assert.Equal(0, res.Created)
	assert.Equal(2, res.Matched)
	assert.Equal(2, e.g.Len())
	assert.Equal(genus.Key, res.Mapping["b"])
	assert.Equal(species.Key, res.Mapping["a"])

	species = e.node(t, res, "a")
	assert.Equal([]string{"1:1", "2:a"}, species.Sources)
	assert.Equal("Mill.", species.Authorship)
	assert.Empty(species.Issues)
	genus = e.node(t, res, "b")
	assert.Equal([]string{"1:2", "2:b"}, genus.Sources)

	assert.Equal(genus.Key, e.g.Finalize())
	assert.Nil(e.g.Validate())
	assert.Equal(2, e.store.Len())
}

func TestIngestWithParserPool(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	pool := parserpool.NewPool(2)
	defer pool.Close()
	e := newEnv(t, nil, pool)

	_, err := e.in.Ingest(ctx, 1, []usage.SrcUsage{
		accepted("1", "2", "Abies alba Mill.", rank.Species),
		accepted("2", "", "Abies Mill.", rank.Genus),
	})
	require.Nil(t, err)
	res, err := e.in.Ingest(ctx, 2, []usage.SrcUsage{
		accepted("a", "b", "Abies alba Miller", rank.Species),
		accepted("b", "", "Abies Miller", rank.Genus),
	})
	require.Nil(t, err)
	assert.Equal(2, res.Matched)
	assert.Equal(0, res.Issues[issue.WeakMatch])
	assert.Equal(2, e.g.Len())
	species := e.node(t, res, "a")
	assert.Equal("Mill.", species.Authorship)
	assert.False(species.HasIssue(issue.WeakMatch))

	res, err = e.in.Ingest(ctx, 3, []usage.SrcUsage{
		accepted("x", "y", "Abies alba DC.", rank.Species),
		accepted("y", "", "Abies Mill.", rank.Genus),
	})
	require.Nil(t, err)
	assert.Equal(1, res.Created)
	assert.Equal(1, res.Matched)
	assert.Equal(3, e.g.Len())
	dc := e.node(t, res, "x")
	assert.NotEqual(species.Key, dc.Key)
	assert.Equal("DC.", dc.Authorship)
}

func TestIngestAmbiguous(t *testing.T) {
	assert := assert.New(t)
	e := newEnv(t, nil, parser{})
	sp := usage.NubUsage{CanonicalName: "Abies alba", Authorship: "Mill.",
		Rank: rank.Species, TaxonomicStatus: status.Accepted}
	e.seed(t, sp, sp)

	res, err := e.in.Ingest(context.Background(), 1, []usage.SrcUsage{
		accepted("1", "", "Abies alba Miller", rank.Species),
	})
	require.Nil(t, err)
	assert.Equal(1, res.Ambiguous)
	assert.Equal(1, res.Created)
	assert.Equal(1, res.Issues[issue.AmbiguousMatch])
	n := e.node(t, res, "1")
	assert.Equal(3, n.Key)
	assert.True(n.HasIssue(issue.AmbiguousMatch))
}

func TestIngestWeakMatch(t *testing.T) {
	assert := assert.New(t)
	e := newEnv(t, nil, parser{})
	keys := e.seed(t, usage.NubUsage{CanonicalName: "Abies alba",
		Rank: rank.Species, TaxonomicStatus: status.Accepted})

	src := accepted("1", "", "Abies alba Mill., 1768", rank.Species)
	src.NomStatus = []string{"conserved"}
	res, err := e.in.Ingest(context.Background(), 1, []usage.SrcUsage{src})
	require.Nil(t, err)
	assert.Equal(1, res.Matched)
	assert.Equal(keys[0], res.Mapping["1"])
	assert.Equal(1, res.Issues[issue.WeakMatch])

	n := e.node(t, res, "1")
	assert.True(n.HasIssue(issue.WeakMatch))
	assert.Equal("Mill.", n.Authorship)
	assert.Equal("1768", n.Year)
	assert.Equal([]string{"conserved"}, n.NomStatus)

	rec, ok, err := e.store.Get(keys[0])
	assert.Nil(err)
	assert.True(ok)
	assert.Equal("Mill.", rec.Authorship)
}

func TestIngestSkipped(t *testing.T) {
	assert := assert.New(t)
	pol := policy.New([]string{"Unidentified plant"}, nil)
	e := newEnv(t, pol, parser{})

	src := []usage.SrcUsage{
		accepted("1", "", "Pinaceae", rank.Family),
		accepted("2", "1", "Unidentified plant", rank.Genus),
		accepted("3", "2", "Abies alba Mill.", rank.Species),
		accepted("4", "1", "", rank.Genus),
		accepted("3", "1", "Picea abies L.", rank.Species),
		accepted("", "1", "Pinus alba L.", rank.Species),
	}
	res, err := e.in.Ingest(context.Background(), 1, src)
	require.Nil(t, err)
	assert.Equal(4, res.Skipped)
	assert.Equal(2, res.Created)
	assert.Equal(1, res.Issues[issue.BlacklistedName])
	assert.Equal(1, res.Issues[issue.UnparsableName])

	fam := e.node(t, res, "1")
	sp := e.node(t, res, "3")
	assert.Equal(fam.Key, sp.ParentKey)
	assert.Equal("Abies alba", sp.CanonicalName)
	_, ok := res.Mapping["2"]
	assert.False(ok)
}

func TestIngestInvalidReferences(t *testing.T) {
	assert := assert.New(t)
	e := newEnv(t, nil, parser{})

	sp := accepted("1", "missing", "Abies alba Mill.", rank.Species)
	sp.BasionymID = "missing"
	src := []usage.SrcUsage{
		sp,
		synonym("2", "missing", "Abies pectinata DC.", rank.Species),
	}
	res, err := e.in.Ingest(context.Background(), 1, src)
	require.Nil(t, err)

	n := e.node(t, res, "1")
	assert.Equal(0, n.ParentKey)
	assert.True(n.HasIssue(issue.ParentIDInvalid))
	assert.True(n.HasIssue(issue.BasionymIDInvalid))

	n = e.node(t, res, "2")
	assert.Equal(status.Doubtful, n.TaxonomicStatus)
	assert.Equal(0, n.AcceptedKey)
	assert.True(n.HasIssue(issue.AcceptedIDInvalid))

	assert.Equal(1, res.Issues[issue.ParentIDInvalid])
	assert.Equal(1, res.Issues[issue.AcceptedIDInvalid])
	assert.Equal(1, res.Issues[issue.BasionymIDInvalid])

	e.g.Finalize()
	assert.Nil(e.g.Validate())
}

func TestIngestParentCycle(t *testing.T) {
	assert := assert.New(t)
	e := newEnv(t, nil, parser{})

	src := []usage.SrcUsage{
		accepted("1", "2", "Alpha", rank.Unranked),
		accepted("2", "1", "Beta", rank.Unranked),
	}
	res, err := e.in.Ingest(context.Background(), 1, src)
	require.Nil(t, err)

	alpha := e.node(t, res, "1")
	beta := e.node(t, res, "2")
	assert.Equal(beta.Key, alpha.ParentKey)
	assert.Equal(0, beta.ParentKey)
	assert.True(beta.HasIssue(issue.ParentCycle))
	assert.Equal(1, res.Issues[issue.ParentCycle])

	assert.Equal(beta.Key, e.g.Finalize())
	assert.Nil(e.g.Validate())
}

func TestIngestRankOrder(t *testing.T) {
	assert := assert.New(t)
	e := newEnv(t, nil, parser{})

	src := []usage.SrcUsage{
		accepted("1", "", "Abies Mill.", rank.Genus),
		accepted("2", "1", "Pinaceae", rank.Family),
	}
	res, err := e.in.Ingest(context.Background(), 1, src)
	require.Nil(t, err)
	n := e.node(t, res, "2")
	assert.Equal(0, n.ParentKey)
	assert.True(n.HasIssue(issue.RankOrderViolation))

	// finalize places both tops under a synthetic root
	root := e.g.Finalize()
	r, _ := e.g.Node(root)
	assert.Equal(backbone.SyntheticRootName, r.CanonicalName)
	assert.Nil(e.g.Validate())
}

func TestIngestSynonyms(t *testing.T) {
	assert := assert.New(t)
	e := newEnv(t, nil, parser{})

	sp := accepted("1", "2", "Abies alba Mill.", rank.Species)
	sp.BasionymID = "3"
	src := []usage.SrcUsage{
		synonym("4", "3", "Pinus picea L.", rank.Species),
		sp,
		accepted("2", "", "Abies Mill.", rank.Genus),
		synonym("3", "1", "Abies pectinata DC.", rank.Species),
	}
	res, err := e.in.Ingest(context.Background(), 1, src)
	require.Nil(t, err)
	assert.Equal(4, res.Created)

	acc := e.node(t, res, "1")
	syn := e.node(t, res, "3")
	chained := e.node(t, res, "4")
	assert.Equal(acc.Key, syn.AcceptedKey)
	assert.Equal(acc.Key, syn.ParentKey)
	assert.False(syn.HasIssue(issue.ChainedSynonym))
	assert.Equal(acc.Key, chained.AcceptedKey)
	assert.True(chained.HasIssue(issue.ChainedSynonym))
	assert.Equal(1, res.Issues[issue.ChainedSynonym])
	assert.Equal(syn.Key, acc.BasionymKey)

	e.g.Finalize()
	assert.Nil(e.g.Validate())

	// a synonym matching an accepted name only adds provenance
	res, err = e.in.Ingest(context.Background(), 2, []usage.SrcUsage{
		accepted("x", "", "Picea excelsa Link", rank.Species),
		synonym("y", "x", "Abies alba Miller", rank.Species),
	})
	require.Nil(t, err)
	assert.Equal(acc.Key, res.Mapping["y"])
	acc = e.node(t, res, "y")
	assert.Equal(status.Accepted, acc.TaxonomicStatus)
	assert.Equal([]string{"1:1", "2:y"}, acc.Sources)
}

func TestIngestSynonymLoop(t *testing.T) {
	assert := assert.New(t)
	e := newEnv(t, nil, parser{})

	src := []usage.SrcUsage{
		synonym("1", "2", "Abies alba Mill.", rank.Species),
		synonym("2", "1", "Abies pectinata DC.", rank.Species),
	}
	res, err := e.in.Ingest(context.Background(), 1, src)
	require.Nil(t, err)

	first := e.node(t, res, "1")
	second := e.node(t, res, "2")
	assert.Equal(status.Doubtful, first.TaxonomicStatus)
	assert.True(first.HasIssue(issue.SynonymCycle))
	assert.Equal(first.Key, second.AcceptedKey)
	assert.Equal(1, res.Issues[issue.SynonymCycle])

	assert.Equal(first.Key, e.g.Finalize())
	assert.Nil(e.g.Validate())
}

func TestIngestKingdom(t *testing.T) {
	assert := assert.New(t)
	e := newEnv(t, nil, parser{})
	e.seed(t, usage.NubUsage{CanonicalName: "Oenanthe", Rank: rank.Genus,
		Kingdom: "Plantae", TaxonomicStatus: status.Accepted})

	src := []usage.SrcUsage{
		accepted("1", "", "Animalia", rank.Kingdom),
		accepted("2", "1", "Oenanthe", rank.Genus),
	}
	res, err := e.in.Ingest(context.Background(), 1, src)
	require.Nil(t, err)
	assert.Equal(2, res.Created)
	king := e.node(t, res, "1")
	gen := e.node(t, res, "2")
	assert.Equal("Animalia", king.Kingdom)
	assert.Equal(king.Key, gen.ParentKey)
	assert.Equal("Animalia", e.g.Kingdom(gen.Key))
}

func TestIngestHomonymExcluded(t *testing.T) {
	assert := assert.New(t)
	pol := policy.New(nil, []policy.Exclusion{{Name: "Oenanthe", Taxon: "Aves"}})
	e := newEnv(t, pol, parser{})
	keys := e.seed(t, usage.NubUsage{CanonicalName: "Oenanthe", Rank: rank.Genus,
		TaxonomicStatus: status.Accepted})

	src := []usage.SrcUsage{
		accepted("1", "", "Aves", rank.Class),
		accepted("2", "1", "Oenanthe", rank.Genus),
	}
	res, err := e.in.Ingest(context.Background(), 1, src)
	require.Nil(t, err)
	assert.Equal(2, res.Created)
	assert.Equal(1, res.Issues[issue.HomonymExcluded])
	gen := e.node(t, res, "2")
	assert.NotEqual(keys[0], gen.Key)
	assert.True(gen.HasIssue(issue.HomonymExcluded))
	class := e.node(t, res, "1")
	assert.False(class.HasIssue(issue.HomonymExcluded))
}

func TestIngestConflictingAuthorship(t *testing.T) {
	tests := []struct {
		msg, name string
		conflict  bool
	}{
		{"year only", "Abies alba DC. 1867", true},
		{"same author", "Abies alba L. 1867", false},
		{"no author", "Abies alba 1867", false},
	}
	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			assert := assert.New(t)
			e := newEnv(t, nil, parser{})
			keys := e.seed(t, usage.NubUsage{CanonicalName: "Abies alba",
				Authorship: "L.", Year: "1867", Rank: rank.Species,
				TaxonomicStatus: status.Accepted})

			res, err := e.in.Ingest(context.Background(), 1, []usage.SrcUsage{
				accepted("1", "", v.name, rank.Species),
			})
			require.Nil(t, err)
			assert.Equal(1, res.Matched)
			assert.Equal(keys[0], res.Mapping["1"])
			n := e.node(t, res, "1")
			assert.Equal(v.conflict, n.HasIssue(issue.ConflictingAuthorship))
			if v.conflict {
				assert.Equal(1, res.Issues[issue.ConflictingAuthorship])
			}
		})
	}
}

type observer struct {
	matches map[match.Kind]int
	weak    int
	issues  map[issue.Issue]int
}

func (o *observer) ObserveMatch(kind match.Kind, weak bool) {
	o.matches[kind]++
	if weak {
		o.weak++
	}
}

func (o *observer) ObserveIssue(iss issue.Issue) {
	o.issues[iss]++
}

func TestIngestObserver(t *testing.T) {
	assert := assert.New(t)
	obs := &observer{
		matches: make(map[match.Kind]int),
		issues:  make(map[issue.Issue]int),
	}
	e := newEnv(t, nil, parser{}, ingest.OptObserver(obs))

	src := []usage.SrcUsage{
		accepted("1", "", "Abies Mill.", rank.Genus),
		accepted("2", "1", "Abies alba", rank.Species),
		accepted("3", "1", "Abies alba Mill.", rank.Species),
	}
	res, err := e.in.Ingest(context.Background(), 1, src)
	require.Nil(t, err)
	assert.Equal(2, obs.matches[match.NoMatch])
	assert.Equal(1, obs.matches[match.Matched])
	assert.Equal(1, obs.weak)
	assert.Equal(res.Issues, obs.issues)
}

func TestIngestErrors(t *testing.T) {
	assert := assert.New(t)
	src := []usage.SrcUsage{accepted("1", "", "Abies Mill.", rank.Genus)}

	e := newEnv(t, nil, parser{err: errors.New("boom")})
	_, err := e.in.Ingest(context.Background(), 1, src)
	assert.NotNil(err)
	assert.Equal(0, e.g.Len())

	e = newEnv(t, nil, parser{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.in.Ingest(ctx, 1, src)
	assert.ErrorIs(err, context.Canceled)
	assert.Equal(0, e.g.Len())
}
