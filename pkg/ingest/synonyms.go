package ingest

import (
	"math"
	"slices"

	"github.com/gnames/gnnub/pkg/ent/issue"
	"github.com/gnames/gnnub/pkg/ent/status"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/match"
)

// ultimate follows source accepted references of a synonym to the first
// accepted usage. It returns nil for dangling references or loops.
func (r *run) ultimate(u *usage.SrcUsage) *usage.SrcUsage {
	curr := u
	seen := map[string]struct{}{u.ID: {}}
	for range len(r.recs) + 1 {
		acc, ok := r.byID[curr.AcceptedID]
		if !ok || r.isSkipped(acc.ID) {
			return nil
		}
		if !acc.IsSynonym() {
			return acc
		}
		if _, ok := seen[acc.ID]; ok {
			return nil
		}
		seen[acc.ID] = struct{}{}
		curr = acc
	}
	return nil
}

// chainDepth is the number of synonyms between u and its accepted usage.
// Loops get the largest depth.
func (r *run) chainDepth(u *usage.SrcUsage) int {
	curr := u
	seen := map[string]struct{}{u.ID: {}}
	var res int
	for range len(r.recs) + 1 {
		acc, ok := r.byID[curr.AcceptedID]
		if !ok || !acc.IsSynonym() {
			return res
		}
		if _, ok := seen[acc.ID]; ok {
			return math.MaxInt
		}
		seen[acc.ID] = struct{}{}
		res++
		curr = acc
	}
	return math.MaxInt
}

// importSynonyms matches or creates nodes for synonyms. Names are matched
// in the classification of their ultimate accepted usage. Accepted edges
// of new nodes are set later by linkSynonyms, when all synonyms of
// the dataset have their keys.
func (r *run) importSynonyms() error {
	for _, u := range r.recs {
		if !u.IsSynonym() || r.isSkipped(u.ID) {
			continue
		}

		var parent int
		if acc := r.ultimate(u); acc != nil {
			parent = r.res.Mapping[acc.ID]
		}
		mr, err := r.m.Match(*u, r.context(parent, r.srcKingdom(u)))
		if err != nil {
			return err
		}
		r.observeMatch(mr)

		var key int
		if mr.Kind == match.Matched {
			key = mr.Key
			r.merge(key, u, mr.Weak)
		} else {
			key = r.create(u, status.Synonym)
			if mr.Kind == match.Ambiguous {
				r.mark(key, issue.AmbiguousMatch)
			}
			r.created = append(r.created, u)
		}
		if mr.Excluded > 0 {
			r.mark(key, issue.HomonymExcluded)
		}
		r.res.Mapping[u.ID] = key
		if err = r.put(key); err != nil {
			return err
		}
	}
	return nil
}

// linkSynonyms sets accepted edges of new synonym nodes. Synonyms of
// accepted usages go first, so chains of synonyms are resolved in the
// graph. Synonyms with unusable accepted references stay in the backbone
// as doubtful names.
func (r *run) linkSynonyms() error {
	depth := make(map[string]int, len(r.created))
	for _, u := range r.created {
		depth[u.ID] = r.chainDepth(u)
	}
	slices.SortStableFunc(r.created, func(a, b *usage.SrcUsage) int {
		da, db := depth[a.ID], depth[b.ID]
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})

	for _, u := range r.created {
		key := r.res.Mapping[u.ID]
		acc, ok := r.byID[u.AcceptedID]
		var accKey int
		if ok && !r.isSkipped(acc.ID) {
			accKey = r.res.Mapping[acc.ID]
		}

		switch {
		case accKey == 0:
			r.doubtful(u, key, issue.AcceptedIDInvalid)
		case depth[u.ID] == math.MaxInt && r.g.IsSynonym(accKey) &&
			r.g.Accepted(accKey) == 0:
			// the first synonym of a source loop closes it
			r.doubtful(u, key, issue.SynonymCycle)
		default:
			r.track(key, func() { _, _ = r.g.SetAccepted(key, accKey) })
		}
	}
	return nil
}

// doubtful turns a synonym node into a doubtful accepted name placed
// under the source parent, if there is one.
func (r *run) doubtful(u *usage.SrcUsage, key int, iss issue.Issue) {
	r.track(key, func() { r.g.MarkDoubtful(key, iss) })
	parent, issues := r.nubParent(u, nil)
	for _, iss := range issues {
		r.mark(key, iss)
	}
	if parent != 0 && parent != key {
		r.attach(key, parent)
	}
}

// linkBasionyms sets basionym edges.
func (r *run) linkBasionyms() error {
	for _, u := range r.recs {
		if u.BasionymID == "" || r.isSkipped(u.ID) {
			continue
		}
		key, ok := r.res.Mapping[u.ID]
		if !ok {
			continue
		}
		if n, _ := r.g.Node(key); n.BasionymKey != 0 {
			continue
		}
		bas, ok := r.res.Mapping[u.BasionymID]
		if !ok || !r.g.SetBasionym(key, bas) {
			r.mark(key, issue.BasionymIDInvalid)
		}
	}
	return nil
}
