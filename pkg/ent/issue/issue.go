// Package issue lists data-quality problems recorded on backbone usages.
// Issues never stop an import, they are attached to the affected node.
package issue

// Issue is a data-quality problem.
type Issue int

const (
	Unknown Issue = iota
	ParentIDInvalid
	AcceptedIDInvalid
	BasionymIDInvalid
	ChainedSynonym
	SynonymCycle
	ParentCycle
	AmbiguousMatch
	WeakMatch
	RankOrderViolation
	HomonymExcluded
	BlacklistedName
	UnparsableName
	SyntheticRoot
	ConflictingAuthorship
)

var issueStr = []string{
	"unknown",
	"parent_id_invalid",
	"accepted_id_invalid",
	"basionym_id_invalid",
	"chained_synonym",
	"synonym_cycle",
	"parent_cycle",
	"ambiguous_match",
	"weak_match",
	"rank_order_violation",
	"homonym_excluded",
	"blacklisted_name",
	"unparsable_name",
	"synthetic_root",
	"conflicting_authorship",
}

// String implements fmt.Stringer.
func (i Issue) String() string {
	if i < 0 || int(i) >= len(issueStr) {
		return issueStr[Unknown]
	}
	return issueStr[i]
}

// New converts an issue name back to Issue.
func New(s string) Issue {
	for i, v := range issueStr {
		if v == s {
			return Issue(i)
		}
	}
	return Unknown
}

// All returns every known issue except Unknown.
func All() []Issue {
	res := make([]Issue, 0, len(issueStr)-1)
	for i := 1; i < len(issueStr); i++ {
		res = append(res, Issue(i))
	}
	return res
}
