// Package parserpool provides a pool of gnparser instances for concurrent
// name parsing and converts parsing results into usage.ParsedName.
// This is a pure package - parsing is computation, not I/O.
package parserpool

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/gnames/gnlib/ent/nomcode"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnparser"
	"github.com/gnames/gnparser/ent/parsed"
)

// Pool provides a pool of gnparser instances for concurrent parsing.
// It maintains separate pools for botanical and zoological nomenclatural codes.
type Pool interface {
	// Parse parses a scientific name string using the specified nomenclatural
	// code. It is safe for concurrent use.
	Parse(nameString string, code nomcode.Code) (usage.ParsedName, error)

	// Close shuts down the parser pools and releases resources.
	// After calling Close, the pool should not be used.
	Close()
}

// PoolImpl implements the Pool interface using gnparser.NewPool.
type PoolImpl struct {
	botanicalCh  chan gnparser.GNparser
	zoologicalCh chan gnparser.GNparser
	poolSize     int
}

// NewPool creates a new parser pool with the specified number of workers.
// If jobsNum is 0, it defaults to runtime.NumCPU().
// Total parsers created = 2 * poolSize (one pool per nomenclatural code).
func NewPool(jobsNum int) Pool {
	poolSize := jobsNum
	if poolSize == 0 {
		poolSize = runtime.NumCPU()
	}

	// authors and years of AuthGroups are filled only with details
	botanicalCfg := gnparser.NewConfig(
		gnparser.OptCode(nomcode.Botanical),
		gnparser.OptWithDetails(true),
	)
	zoologicalCfg := gnparser.NewConfig(
		gnparser.OptCode(nomcode.Zoological),
		gnparser.OptWithDetails(true),
	)

	return &PoolImpl{
		botanicalCh:  gnparser.NewPool(botanicalCfg, poolSize),
		zoologicalCh: gnparser.NewPool(zoologicalCfg, poolSize),
		poolSize:     poolSize,
	}
}

// Parse parses a scientific name with a parser of the given code.
func (p *PoolImpl) Parse(
	nameString string,
	code nomcode.Code,
) (usage.ParsedName, error) {
	var ch chan gnparser.GNparser
	switch code {
	case nomcode.Botanical:
		ch = p.botanicalCh
	case nomcode.Zoological:
		ch = p.zoologicalCh
	default:
		return usage.ParsedName{},
			fmt.Errorf("unsupported nomenclatural code: %v", code)
	}

	parser := <-ch
	res := parser.ParseName(nameString)
	ch <- parser

	return ToParsedName(res), nil
}

// Close shuts down both parser pools and releases resources.
func (p *PoolImpl) Close() {
	for _, ch := range []chan gnparser.GNparser{p.botanicalCh, p.zoologicalCh} {
		if ch == nil {
			continue
		}
		close(ch)
		for range ch {
		}
	}
}

// CodeFor picks the nomenclatural code for names of a kingdom.
// Animals and protozoa use the zoological code, everything else is
// parsed as botanical.
func CodeFor(kingdom string) nomcode.Code {
	switch strings.ToLower(strings.TrimSpace(kingdom)) {
	case "animalia", "metazoa", "protozoa":
		return nomcode.Zoological
	default:
		return nomcode.Botanical
	}
}

// ToParsedName converts a gnparser result. Names that could not be parsed
// keep only their verbatim string.
func ToParsedName(p parsed.Parsed) usage.ParsedName {
	res := usage.ParsedName{ScientificName: p.Verbatim}
	if !p.Parsed || p.Canonical == nil {
		return res
	}

	res.CanonicalName = p.Canonical.Simple
	words := strings.Fields(p.Canonical.Simple)
	switch {
	case len(words) == 1:
		res.Genus = words[0]
	case len(words) >= 2:
		res.Genus = words[0]
		res.SpecificEpithet = words[1]
		res.Rank = rank.Species
	}
	if len(words) > 2 {
		res.InfraspecificEpithet = words[len(words)-1]
		res.Rank = infraRank(p.Canonical.Full)
	}

	if p.Authorship != nil {
		res.AuthorsParsed = true
		orig, comb := p.Authorship.Original, p.Authorship.Combination
		switch {
		case comb != nil:
			res.Authorship, res.Year = authGroup(comb)
			res.BracketAuthorship, res.BracketYear = authGroup(orig)
		case orig != nil:
			res.Authorship, res.Year = authGroup(orig)
		default:
			res.Authorship = strings.Join(p.Authorship.Authors, " & ")
		}
		if res.Year == "" && res.BracketYear == "" {
			res.Year = p.Authorship.Year
		}
	}
	return res
}

func authGroup(ag *parsed.AuthGroup) (string, string) {
	if ag == nil {
		return "", ""
	}
	var year string
	if ag.Year != nil {
		year = ag.Year.Value
	}
	return strings.Join(ag.Authors, " & "), year
}

// infraRank finds the rank marker in a full canonical form such as
// "Rosa acicularis var. acicularis".
func infraRank(full string) rank.Rank {
	for _, w := range strings.Fields(full) {
		if !strings.HasSuffix(w, ".") {
			continue
		}
		if r := rank.New(w); r.IsInfraspecific() {
			return r
		}
	}
	return rank.Subspecies
}
