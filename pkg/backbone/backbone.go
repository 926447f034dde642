// Package backbone keeps the backbone under construction in memory.
//
// Nodes live in a single table and reference each other by integer keys,
// so cycle checks and cuts are plain key walks. Every edge mutation is
// checked by the cycle package. A Graph is not safe for concurrent
// writers: one import cycle has exactly one writer.
package backbone

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/gnames/gnnub/pkg/cycle"
	"github.com/gnames/gnnub/pkg/ent/issue"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/status"
	"github.com/gnames/gnnub/pkg/ent/usage"
)

// SyntheticRootName is the name of the root created when the backbone
// has more than one top node.
const SyntheticRootName = "incertae sedis"

// ErrNoNode is returned by edge operations for unknown keys.
var ErrNoNode = errors.New("backbone node does not exist")

// Graph is the in-memory backbone.
type Graph struct {
	nodes    map[int]*usage.NubUsage
	children map[int]map[int]struct{}
	nextKey  int
	maxChain int
}

// Option configures a Graph.
type Option func(*Graph)

// OptMaxSynonymChain sets how many synonyms can be followed before a
// chain is treated as a cycle.
func OptMaxSynonymChain(i int) Option {
	return func(g *Graph) {
		if i > 0 {
			g.maxChain = i
		}
	}
}

// New creates an empty Graph with keys starting from firstKey.
func New(firstKey int, opts ...Option) *Graph {
	if firstKey < 1 {
		firstKey = 1
	}
	res := &Graph{
		nodes:    make(map[int]*usage.NubUsage),
		children: make(map[int]map[int]struct{}),
		nextKey:  firstKey,
		maxChain: 10,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Load creates a Graph from persisted nodes. Keys are preserved, new keys
// start above both nextKey and the largest loaded key, so retired keys
// are never reused.
func Load(nodes []usage.NubUsage, nextKey int, opts ...Option) *Graph {
	res := New(nextKey, opts...)
	for i := range nodes {
		n := nodes[i]
		if n.Key < 1 {
			continue
		}
		res.nodes[n.Key] = &n
		res.nextKey = max(res.nextKey, n.Key+1)
	}
	for _, n := range res.nodes {
		if n.ParentKey != 0 {
			res.link(n.Key, n.ParentKey)
		}
	}
	return res
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NextKey returns the key that the next created node receives.
func (g *Graph) NextKey() int {
	return g.nextKey
}

// MaxKey returns the largest key ever handed out by the graph.
func (g *Graph) MaxKey() int {
	return g.nextKey - 1
}

// CreateNode adds a node and returns its new key. Edges of u are ignored,
// they have to be set with Attach, SetAccepted and SetBasionym.
func (g *Graph) CreateNode(u usage.NubUsage) int {
	u.Key = g.nextKey
	g.nextKey++
	u.ParentKey, u.AcceptedKey, u.BasionymKey = 0, 0, 0
	u.Issues = slices.Clone(u.Issues)
	u.Sources = slices.Clone(u.Sources)
	u.NomStatus = slices.Clone(u.NomStatus)
	g.nodes[u.Key] = &u
	return u.Key
}

// Node returns a copy of a node.
func (g *Graph) Node(key int) (usage.NubUsage, bool) {
	n, ok := g.nodes[key]
	if !ok {
		return usage.NubUsage{}, false
	}
	return *n, true
}

// Has checks if a node exists.
func (g *Graph) Has(key int) bool {
	_, ok := g.nodes[key]
	return ok
}

// Update changes attributes of a node. Key and edges cannot be changed
// this way, modifications to them are discarded.
func (g *Graph) Update(key int, fn func(*usage.NubUsage)) error {
	n, ok := g.nodes[key]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoNode, key)
	}
	k, p, a, b := n.Key, n.ParentKey, n.AcceptedKey, n.BasionymKey
	fn(n)
	n.Key, n.ParentKey, n.AcceptedKey, n.BasionymKey = k, p, a, b
	return nil
}

// MarkIssue records a data-quality issue on a node.
func (g *Graph) MarkIssue(key int, iss issue.Issue) {
	if n, ok := g.nodes[key]; ok {
		n.AddIssue(iss)
	}
}

// Parent implements cycle.Graph.
func (g *Graph) Parent(key int) int {
	if n, ok := g.nodes[key]; ok {
		return n.ParentKey
	}
	return 0
}

// Accepted implements cycle.Graph.
func (g *Graph) Accepted(key int) int {
	if n, ok := g.nodes[key]; ok {
		return n.AcceptedKey
	}
	return 0
}

// IsSynonym implements cycle.Graph.
func (g *Graph) IsSynonym(key int) bool {
	if n, ok := g.nodes[key]; ok {
		return n.IsSynonym()
	}
	return false
}

// Attach sets the parent of a child node. When the new edge would make
// the child its own ancestor the edge is rejected, the child gets a
// ParentCycle issue and keeps its previous parent, if any. A synonym
// used as a parent is replaced by its accepted node.
func (g *Graph) Attach(child, parent int) (cycle.Outcome, error) {
	c, ok := g.nodes[child]
	if !ok {
		return cycle.Outcome{}, fmt.Errorf("%w: %d", ErrNoNode, child)
	}
	if _, ok = g.nodes[parent]; !ok {
		return cycle.Outcome{}, fmt.Errorf("%w: %d", ErrNoNode, parent)
	}

	if g.IsSynonym(parent) {
		acc, out := cycle.ResolveAccepted(g, child, parent, g.maxChain)
		if acc == 0 {
			c.AddIssue(issue.ParentIDInvalid)
			return out, nil
		}
		parent = acc
	}

	out := cycle.ResolveParentCycle(g, child, parent)
	if out.Cycle {
		c.AddIssue(issue.ParentCycle)
		return out, nil
	}
	g.setParent(c, parent)
	return out, nil
}

// Detach removes the parent of a node.
func (g *Graph) Detach(key int) {
	if n, ok := g.nodes[key]; ok {
		g.setParent(n, 0)
	}
}

func (g *Graph) setParent(n *usage.NubUsage, parent int) {
	if n.ParentKey == parent {
		return
	}
	if n.ParentKey != 0 {
		if cs, ok := g.children[n.ParentKey]; ok {
			delete(cs, n.Key)
			if len(cs) == 0 {
				delete(g.children, n.ParentKey)
			}
		}
	}
	n.ParentKey = parent
	if parent != 0 {
		g.link(n.Key, parent)
	}
}

func (g *Graph) link(child, parent int) {
	cs, ok := g.children[parent]
	if !ok {
		cs = make(map[int]struct{})
		g.children[parent] = cs
	}
	cs[child] = struct{}{}
}

// Children returns keys of direct children and synonyms of a node.
func (g *Graph) Children(key int) []int {
	return slices.Sorted(maps.Keys(g.children[key]))
}

// SetAccepted makes syn a synonym of acc. Chains of synonyms are walked to
// the ultimate accepted node and a ChainedSynonym issue is recorded. When
// the chain loops, is too long, or never reaches an accepted node, the
// edge is rejected and syn becomes a doubtful accepted name without
// parent. Children and synonyms of syn move to the accepted node.
func (g *Graph) SetAccepted(syn, acc int) (cycle.Outcome, error) {
	s, ok := g.nodes[syn]
	if !ok {
		return cycle.Outcome{}, fmt.Errorf("%w: %d", ErrNoNode, syn)
	}
	if _, ok = g.nodes[acc]; !ok {
		return cycle.Outcome{}, fmt.Errorf("%w: %d", ErrNoNode, acc)
	}

	target, out := cycle.ResolveAccepted(g, syn, acc, g.maxChain)
	if target == 0 {
		g.demote(s, out)
		return out, nil
	}

	pOut := cycle.ResolveParentCycle(g, syn, target)
	if pOut.Cycle {
		// target is a descendant of syn, move the descendants first
		g.moveDependants(syn, g.Parent(syn), false)
		pOut = cycle.ResolveParentCycle(g, syn, target)
		if pOut.Cycle {
			s.AddIssue(issue.ParentCycle)
			g.demote(s, pOut)
			return pOut, nil
		}
	}

	if out.Chained {
		s.AddIssue(issue.ChainedSynonym)
	}
	if !s.IsSynonym() {
		s.TaxonomicStatus = status.Synonym
	}
	g.moveDependants(syn, target, true)
	s.AcceptedKey = target
	g.setParent(s, target)
	return out, nil
}

// MarkDoubtful records an issue on a node and turns it into a doubtful
// accepted name without parent if it was a synonym.
func (g *Graph) MarkDoubtful(key int, iss issue.Issue) {
	n, ok := g.nodes[key]
	if !ok {
		return
	}
	n.AddIssue(iss)
	if n.IsSynonym() || n.AcceptedKey != 0 {
		n.TaxonomicStatus = status.Doubtful
		n.AcceptedKey = 0
		g.setParent(n, 0)
	}
}

// demote turns a synonym with an unusable accepted reference into a
// doubtful accepted name.
func (g *Graph) demote(s *usage.NubUsage, out cycle.Outcome) {
	iss := issue.SynonymCycle
	if out.Unresolved {
		iss = issue.AcceptedIDInvalid
	}
	g.MarkDoubtful(s.Key, iss)
}

// moveDependants repoints children of key to target. With synonyms true
// the synonyms of key are repointed as well, otherwise they stay. Zero
// target detaches children.
func (g *Graph) moveDependants(key, target int, synonyms bool) {
	for _, k := range g.Children(key) {
		n := g.nodes[k]
		if k == target {
			continue
		}
		if n.AcceptedKey == key {
			if synonyms && target != 0 {
				n.AddIssue(issue.ChainedSynonym)
				n.AcceptedKey = target
				g.setParent(n, target)
			}
			continue
		}
		g.setParent(n, target)
	}
}

// SetBasionym links a node to its basionym. It returns false when either
// node does not exist or they are the same.
func (g *Graph) SetBasionym(key, bas int) bool {
	n, ok := g.nodes[key]
	if !ok || key == bas || !g.Has(bas) {
		return false
	}
	n.BasionymKey = bas
	return true
}

// Root returns the only parentless node, if there is exactly one.
func (g *Graph) Root() (int, bool) {
	tops := g.tops()
	if len(tops) == 1 {
		return tops[0], true
	}
	return 0, false
}

func (g *Graph) tops() []int {
	var res []int
	for k, n := range g.nodes {
		if n.ParentKey == 0 {
			res = append(res, k)
		}
	}
	slices.Sort(res)
	return res
}

// Finalize makes sure the backbone has exactly one root. A single
// parentless node becomes the root. Several parentless nodes are placed
// under the existing synthetic root or under a newly created one.
// It returns the root key, or 0 for an empty graph.
func (g *Graph) Finalize() int {
	tops := g.tops()
	switch len(tops) {
	case 0:
		return 0
	case 1:
		return tops[0]
	}

	root := 0
	for _, k := range tops {
		if g.nodes[k].HasIssue(issue.SyntheticRoot) {
			root = k
			break
		}
	}
	if root == 0 {
		root = g.CreateNode(usage.NubUsage{
			ScientificName:  SyntheticRootName,
			CanonicalName:   SyntheticRootName,
			Rank:            rank.Unranked,
			TaxonomicStatus: status.Accepted,
			Issues:          []issue.Issue{issue.SyntheticRoot},
		})
	}
	for _, k := range tops {
		if k == root {
			continue
		}
		_, _ = g.Attach(k, root)
	}
	return root
}

// Ancestors returns keys of all ancestors of a node, root first.
func (g *Graph) Ancestors(key int) []int {
	var res []int
	curr := g.Parent(key)
	for i := 0; curr != 0 && i <= g.Len(); i++ {
		res = append(res, curr)
		curr = g.Parent(curr)
	}
	slices.Reverse(res)
	return res
}

// Classification returns canonical names of a node and its ancestors,
// root first.
func (g *Graph) Classification(key int) []string {
	n, ok := g.nodes[key]
	if !ok {
		return nil
	}
	anc := g.Ancestors(key)
	res := make([]string, 0, len(anc)+1)
	for _, k := range anc {
		res = append(res, g.nodes[k].CanonicalName)
	}
	return append(res, n.CanonicalName)
}

// Kingdom returns the kingdom of a node: its own field, or the name of
// the closest ancestor ranked as kingdom or having a kingdom.
func (g *Graph) Kingdom(key int) string {
	curr := key
	for i := 0; curr != 0 && i <= g.Len(); i++ {
		n, ok := g.nodes[curr]
		if !ok {
			return ""
		}
		if n.Kingdom != "" {
			return n.Kingdom
		}
		if n.Rank == rank.Kingdom {
			return n.CanonicalName
		}
		curr = n.ParentKey
	}
	return ""
}

// All iterates over copies of nodes sorted by key.
func (g *Graph) All() iter.Seq[usage.NubUsage] {
	return func(yield func(usage.NubUsage) bool) {
		for _, k := range slices.Sorted(maps.Keys(g.nodes)) {
			if !yield(*g.nodes[k]) {
				return
			}
		}
	}
}

// Nodes returns copies of all nodes sorted by key.
func (g *Graph) Nodes() []usage.NubUsage {
	return slices.Collect(g.All())
}

// Validate checks the backbone invariants: one root, every node reaches
// it through parents, synonyms point to existing accepted nodes.
func (g *Graph) Validate() error {
	if g.Len() == 0 {
		return nil
	}
	root, ok := g.Root()
	if !ok {
		return fmt.Errorf("backbone must have exactly one root, found %d",
			len(g.tops()))
	}

	for k, n := range g.nodes {
		curr := k
		steps := 0
		for curr != root {
			curr = g.Parent(curr)
			steps++
			if curr == 0 || !g.Has(curr) {
				return fmt.Errorf("node %d does not reach the root", k)
			}
			if steps > g.Len() {
				return fmt.Errorf("node %d is in a parent cycle", k)
			}
		}
		if !n.IsSynonym() {
			continue
		}
		acc, ok := g.nodes[n.AcceptedKey]
		if !ok || n.AcceptedKey == k {
			return fmt.Errorf("synonym %d has invalid accepted key %d",
				k, n.AcceptedKey)
		}
		if acc.IsSynonym() {
			return fmt.Errorf("synonym %d points to synonym %d", k, acc.Key)
		}
	}
	return nil
}
