// Package cycle detects cycles introduced by new parent and accepted
// edges of the backbone.
//
// The policy is to cut the edge being introduced and never touch the
// already validated part of the tree. Walks are bounded by the number of
// nodes, so they terminate even on a corrupted graph.
package cycle

// Graph is the read-only view of the backbone needed for cycle checks.
// Zero keys mean null.
type Graph interface {
	// Parent returns the parent key of a node.
	Parent(key int) int

	// Accepted returns the accepted key of a synonym.
	Accepted(key int) int

	// IsSynonym is true when the node is a synonym.
	IsSynonym(key int) bool

	// Len is the number of nodes in the graph.
	Len() int
}

// Outcome describes the result of a cycle check.
type Outcome struct {
	// Cycle is true when the checked edge would create a cycle, or when
	// a synonym chain loops or is too long.
	Cycle bool

	// Chained is true when an accepted reference pointed to a synonym and
	// had to be followed to the ultimate accepted node.
	Chained bool

	// Unresolved is true when a synonym chain ended in a synonym without
	// an accepted node.
	Unresolved bool

	// Chain contains walked keys, starting from the proposed target.
	Chain []int
}

// ResolveParentCycle checks if attaching child to parent would make the
// child its own ancestor.
func ResolveParentCycle(g Graph, child, parent int) Outcome {
	if parent == 0 {
		return Outcome{}
	}
	if child == parent {
		return Outcome{Cycle: true, Chain: []int{parent}}
	}

	limit := g.Len() + 1
	var chain []int
	curr := parent
	for range limit {
		if curr == 0 {
			return Outcome{Chain: chain}
		}
		chain = append(chain, curr)
		if curr == child {
			return Outcome{Cycle: true, Chain: chain}
		}
		curr = g.Parent(curr)
	}

	// the walk did not reach the root, the existing ancestry loops
	return Outcome{Cycle: true, Chain: chain}
}

// ResolveAccepted follows accepted links starting from the proposed
// accepted node of syn until it finds a node that is not a synonym.
// It returns that node, or 0 when the chain loops, runs into syn, is
// longer than maxLen synonyms, or ends without an accepted node.
func ResolveAccepted(g Graph, syn, start, maxLen int) (int, Outcome) {
	if start == 0 {
		return 0, Outcome{Unresolved: true}
	}
	if start == syn {
		return 0, Outcome{Cycle: true, Chain: []int{start}}
	}

	visited := map[int]struct{}{syn: {}}
	var chain []int
	curr := start
	for {
		if curr == syn {
			chain = append(chain, curr)
			return 0, Outcome{Cycle: true, Chain: chain}
		}
		if !g.IsSynonym(curr) {
			chain = append(chain, curr)
			return curr, Outcome{Chained: len(chain) > 1, Chain: chain}
		}
		if _, ok := visited[curr]; ok {
			chain = append(chain, curr)
			return 0, Outcome{Cycle: true, Chain: chain}
		}
		visited[curr] = struct{}{}
		chain = append(chain, curr)
		if len(chain) > maxLen || len(chain) > g.Len() {
			return 0, Outcome{Cycle: true, Chained: true, Chain: chain}
		}

		next := g.Accepted(curr)
		if next == 0 {
			return 0, Outcome{Unresolved: true, Chained: true, Chain: chain}
		}
		curr = next
	}
}
