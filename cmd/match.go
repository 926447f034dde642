/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnnub/internal/iograph"
	"github.com/gnames/gnnub/internal/iolookup"
	"github.com/gnames/gnnub/internal/iopolicy"
	"github.com/gnames/gnnub/pkg/backbone"
	"github.com/gnames/gnnub/pkg/config"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/match"
	"github.com/gnames/gnnub/pkg/parserpool"
	"github.com/spf13/cobra"
)

// matchOutput is the JSON output of the match command.
type matchOutput struct {
	Name       string      `json:"name"`
	Canonical  string      `json:"canonical,omitempty"`
	Kind       string      `json:"kind"`
	Key        int         `json:"key,omitempty"`
	Weak       bool        `json:"weak,omitempty"`
	Excluded   int         `json:"excluded,omitempty"`
	Candidates []candidate `json:"candidates,omitempty"`
}

type candidate struct {
	Key            int      `json:"key"`
	ScientificName string   `json:"scientificName"`
	Rank           string   `json:"rank"`
	Status         string   `json:"status"`
	Kingdom        string   `json:"kingdom,omitempty"`
	Classification []string `json:"classification,omitempty"`
}

// getMatchCmd returns the match command.
func getMatchCmd() *cobra.Command {
	var kingdom, rnk string

	matchCmd := &cobra.Command{
		Use:   "match <name>",
		Short: "Find the backbone usage of a scientific name",
		Long: `Match a scientific name against the saved backbone.

The name is parsed, candidates with the same canonical name and rank are
taken from the lookup store and compared by authorship and year. The
result is printed as JSON. Its kind is one of 'matched', 'ambiguous' or
'no_match'. A weak match relies on the name only, because authorship
gave no signal.

Examples:
  gnnub match "Abies alba Mill."
  gnnub match "Oenanthe L." --kingdom Plantae --rank genus`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runMatch(cmd, args[0], kingdom, rnk)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	matchCmd.Flags().StringVarP(
		&kingdom, "kingdom", "k", "",
		"kingdom of the name, it also selects the nomenclatural code",
	)
	matchCmd.Flags().StringVarP(
		&rnk, "rank", "r", "",
		"rank of the name (default: rank given by the parser, any rank above\n"+
			"species for uninomials)",
	)

	return matchCmd
}

func runMatch(cmd *cobra.Command, name, kingdom, rnk string) error {
	ctx := context.Background()

	store, err := iolookup.Open(cfg.LookupDir())
	if err != nil {
		return err
	}
	defer store.Close()

	g, err := loadBackbone(ctx, config.GraphFilePath(cfg.HomeDir))
	if err != nil {
		return err
	}

	pol, err := iopolicy.Load(config.PolicyFilePath(cfg.HomeDir))
	if err != nil {
		return err
	}

	pool := parserpool.NewPool(1)
	defer pool.Close()

	res, err := matchName(pool, match.New(store, g, pol), g, name, kingdom, rank.New(rnk))
	if err != nil {
		return err
	}

	enc := gnfmt.GNjson{Pretty: true}
	out, err := enc.Encode(res)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// loadBackbone reads the saved backbone for classification of candidates.
func loadBackbone(ctx context.Context, path string) (*backbone.Graph, error) {
	gs, err := iograph.Open(path)
	if err != nil {
		return nil, err
	}
	defer gs.Close()

	nodes, err := gs.Load(ctx)
	if err != nil {
		return nil, err
	}
	maxKey, err := gs.MaxKey(ctx)
	if err != nil {
		return nil, err
	}
	return backbone.Load(nodes, maxKey+1), nil
}

// queryRanks returns ranks to search for a name. The parser gives no rank
// to uninomials, so without an explicit rank they are searched at every
// rank above species.
func queryRanks(p usage.ParsedName, rnk rank.Rank) []rank.Rank {
	if rnk != rank.Unranked {
		return []rank.Rank{rnk}
	}
	if p.Rank != rank.Unranked || p.SpecificEpithet != "" || p.Genus == "" {
		return []rank.Rank{p.Rank}
	}
	res := make([]rank.Rank, 0, int(rank.Species))
	for r := rank.Unranked; r < rank.Species; r++ {
		res = append(res, r)
	}
	return res
}

func matchName(
	p parserpool.Pool,
	e *match.Engine,
	g *backbone.Graph,
	name, kingdom string,
	rnk rank.Rank,
) (matchOutput, error) {
	var res matchOutput
	parsed, err := p.Parse(name, parserpool.CodeFor(kingdom))
	if err != nil {
		return res, err
	}

	q := usage.SrcUsage{
		ScientificName: name,
		Kingdom:        kingdom,
		Parsed:         &parsed,
	}
	mctx := match.Context{Kingdom: kingdom}

	var m match.Result
	var hits int
	for _, r := range queryRanks(parsed, rnk) {
		q.Rank = r
		mr, err := e.Match(q, mctx)
		if err != nil {
			return res, err
		}
		m.Excluded += mr.Excluded
		if mr.Kind == match.NoMatch {
			continue
		}
		hits++
		if hits == 1 {
			m.Kind, m.Key, m.Weak = mr.Kind, mr.Key, mr.Weak
			m.Candidates = mr.Candidates
			continue
		}
		// the same uninomial at several ranks
		m.Kind, m.Key, m.Weak = match.Ambiguous, 0, false
		m.Candidates = append(m.Candidates, mr.Candidates...)
	}
	slices.Sort(m.Candidates)

	res = matchOutput{
		Name:      name,
		Canonical: parsed.CanonicalName,
		Kind:      m.Kind.String(),
		Key:       m.Key,
		Weak:      m.Weak,
		Excluded:  m.Excluded,
	}
	for _, k := range m.Candidates {
		n, ok := g.Node(k)
		if !ok {
			continue
		}
		res.Candidates = append(res.Candidates, candidate{
			Key:            n.Key,
			ScientificName: n.ScientificName,
			Rank:           n.Rank.String(),
			Status:         n.TaxonomicStatus.String(),
			Kingdom:        g.Kingdom(k),
			Classification: g.Classification(k),
		})
	}
	return res, nil
}
