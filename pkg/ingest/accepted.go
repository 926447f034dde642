package ingest

import (
	"strings"

	"github.com/gnames/gnnub/pkg/authorship"
	"github.com/gnames/gnnub/pkg/ent/equality"
	"github.com/gnames/gnnub/pkg/ent/issue"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/status"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/match"
)

// srcKingdom returns the kingdom hint of a usage or of its closest source
// ancestor that has one.
func (r *run) srcKingdom(u *usage.SrcUsage) string {
	curr := u
	for range len(r.recs) + 1 {
		if curr == nil {
			return ""
		}
		if curr.Kingdom != "" {
			return curr.Kingdom
		}
		if curr.Rank == rank.Kingdom {
			if curr.Parsed != nil && curr.Parsed.CanonicalName != "" {
				return curr.Parsed.CanonicalName
			}
			if ws := strings.Fields(curr.ScientificName); len(ws) > 0 {
				return ws[0]
			}
		}
		curr = r.byID[curr.ParentID]
	}
	return ""
}

// parentOf finds the source parent of a usage. Skipped parents are
// replaced by their own parents, synonyms by their accepted usages.
// The second value is false when the parent reference cannot be resolved.
func (r *run) parentOf(u *usage.SrcUsage) (*usage.SrcUsage, bool) {
	id := u.ParentID
	for range len(r.recs) + 1 {
		if id == "" {
			return nil, true
		}
		p, ok := r.byID[id]
		if !ok {
			return nil, false
		}
		if r.isSkipped(id) {
			id = p.ParentID
			continue
		}
		if !p.IsSynonym() {
			return p, true
		}
		acc, ok := r.byID[p.AcceptedID]
		if !ok || acc.IsSynonym() || r.isSkipped(acc.ID) {
			return nil, false
		}
		return acc, true
	}
	return nil, false
}

// acceptedOrder sorts accepted usages so parents come before children.
// A usage whose parent closes a source cycle is returned in cut.
func (r *run) acceptedOrder() (order []*usage.SrcUsage, cut map[string]struct{}) {
	cut = make(map[string]struct{})
	done := make(map[string]struct{})
	for _, u := range r.recs {
		if u.IsSynonym() || r.isSkipped(u.ID) {
			continue
		}
		var path []*usage.SrcUsage
		inPath := make(map[string]struct{})
		curr := u
		for curr != nil {
			if _, ok := done[curr.ID]; ok {
				break
			}
			if _, ok := inPath[curr.ID]; ok {
				cut[path[len(path)-1].ID] = struct{}{}
				break
			}
			inPath[curr.ID] = struct{}{}
			path = append(path, curr)
			curr, _ = r.parentOf(curr)
		}
		for i := len(path) - 1; i >= 0; i-- {
			done[path[i].ID] = struct{}{}
			order = append(order, path[i])
		}
	}
	return order, cut
}

// importAccepted matches or creates nodes for accepted usages and
// attaches them to their parents.
func (r *run) importAccepted() error {
	order, cut := r.acceptedOrder()
	for _, u := range order {
		parent, issues := r.nubParent(u, cut)
		ctx := r.context(parent, r.srcKingdom(u))

		mr, err := r.m.Match(*u, ctx)
		if err != nil {
			return err
		}
		r.observeMatch(mr)

		var key int
		if mr.Kind == match.Matched {
			key = mr.Key
			r.merge(key, u, mr.Weak)
			n, _ := r.g.Node(key)
			if n.ParentKey == 0 && parent != 0 && parent != key {
				r.attach(key, parent)
			}
		} else {
			key = r.create(u, status.Accepted)
			if mr.Kind == match.Ambiguous {
				r.mark(key, issue.AmbiguousMatch)
			}
			if parent != 0 {
				r.attach(key, parent)
			}
		}
		if mr.Excluded > 0 {
			r.mark(key, issue.HomonymExcluded)
		}
		for _, iss := range issues {
			r.mark(key, iss)
		}
		r.res.Mapping[u.ID] = key
		if err = r.put(key); err != nil {
			return err
		}
	}
	return nil
}

// nubParent returns the backbone key of the parent of u together with
// issues found while resolving it. Zero key means no parent.
func (r *run) nubParent(
	u *usage.SrcUsage,
	cut map[string]struct{},
) (int, []issue.Issue) {
	if _, ok := cut[u.ID]; ok {
		return 0, []issue.Issue{issue.ParentCycle}
	}
	p, ok := r.parentOf(u)
	if !ok {
		return 0, []issue.Issue{issue.ParentIDInvalid}
	}
	if p == nil {
		return 0, nil
	}
	key, ok := r.res.Mapping[p.ID]
	if !ok {
		return 0, []issue.Issue{issue.ParentIDInvalid}
	}
	return key, nil
}

// context builds the classification of a query placed under parent.
func (r *run) context(parent int, kingdom string) match.Context {
	if parent == 0 {
		return match.Context{Kingdom: kingdom}
	}
	if kingdom == "" {
		kingdom = r.g.Kingdom(parent)
	}
	return match.Context{
		Kingdom:   kingdom,
		Ancestors: r.g.Classification(parent),
	}
}

// attach places a node under parent unless the ranks contradict each
// other.
func (r *run) attach(key, parent int) {
	p, _ := r.g.Node(parent)
	n, _ := r.g.Node(key)
	if p.Rank.IsRanked() && n.Rank.IsRanked() && !p.Rank.Higher(n.Rank) {
		r.mark(key, issue.RankOrderViolation)
		return
	}
	r.track(key, func() { _, _ = r.g.Attach(key, parent) })
}

// create adds a new node for a source usage. The source status is used
// when it agrees with st about being a synonym.
func (r *run) create(u *usage.SrcUsage, st status.Status) int {
	p := u.Parsed
	rnk := u.Rank
	if rnk == rank.Unranked {
		rnk = p.Rank
	}
	if u.TaxonomicStatus != status.Unknown &&
		u.TaxonomicStatus.IsSynonym() == st.IsSynonym() {
		st = u.TaxonomicStatus
	}

	au := p.Authorship
	if au == "" {
		au = p.BracketAuthorship
	}
	year := p.Year
	if year == "" {
		year = p.BracketYear
	}

	kingdom := u.Kingdom
	if kingdom == "" && rnk == rank.Kingdom {
		kingdom = p.CanonicalName
	}

	key := r.g.CreateNode(usage.NubUsage{
		ScientificName:  u.ScientificName,
		CanonicalName:   p.CanonicalName,
		Authorship:      au,
		Year:            year,
		Rank:            rnk,
		Kingdom:         kingdom,
		TaxonomicStatus: st,
		NomStatus:       u.NomStatus,
		Sources:         []string{r.provenance(u)},
	})
	r.res.Created++
	return key
}

// merge adds information from a matched source usage to a node.
func (r *run) merge(key int, u *usage.SrcUsage, weak bool) {
	p := u.Parsed
	if weak {
		r.mark(key, issue.WeakMatch)
	}
	if n, ok := r.g.Node(key); ok && conflicting(n.Authorship, p) {
		r.mark(key, issue.ConflictingAuthorship)
	}
	_ = r.g.Update(key, func(n *usage.NubUsage) {
		n.AddSource(r.provenance(u))
		n.AddNomStatus(u.NomStatus...)
		if n.Authorship == "" {
			n.Authorship = p.Authorship
			if n.Authorship == "" {
				n.Authorship = p.BracketAuthorship
			}
		}
		if n.Year == "" {
			n.Year = p.Year
			if n.Year == "" {
				n.Year = p.BracketYear
			}
		}
		if n.Kingdom == "" {
			n.Kingdom = u.Kingdom
		}
	})
}

// conflicting is true when both authorships are known and differ. Such
// names are matched by year only.
func conflicting(nubAuthor string, p *usage.ParsedName) bool {
	srcAuthor := p.Authorship
	if srcAuthor == "" {
		srcAuthor = p.BracketAuthorship
	}
	if nubAuthor == "" || srcAuthor == "" {
		return false
	}
	a := usage.ParsedName{Authorship: nubAuthor, AuthorsParsed: true}
	b := usage.ParsedName{Authorship: srcAuthor, AuthorsParsed: true}
	return authorship.Compare(a, b) == equality.Different
}
