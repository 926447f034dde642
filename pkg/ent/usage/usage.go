// Package usage contains the name usage entities of the backbone: parsed
// names, source usages, backbone (nub) usages and their compact lookup
// projection.
package usage

import (
	"slices"

	"github.com/gnames/gnnub/pkg/ent/issue"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/status"
)

// ParsedName is a structured view of a scientific name produced by the
// name parser.
type ParsedName struct {
	// ScientificName is the verbatim name with authorship.
	ScientificName string

	// CanonicalName is the name without authorship and rank markers.
	CanonicalName string

	Genus                string
	SpecificEpithet      string
	InfraspecificEpithet string

	// Authorship is the combination (or only) authorship.
	Authorship string

	// BracketAuthorship is the basionym authorship from parentheses.
	BracketAuthorship string

	Year        string
	BracketYear string

	Rank rank.Rank

	// AuthorsParsed is true when the parser split authorship into fields.
	AuthorsParsed bool
}

// SrcUsage is one record of a source checklist. Empty IDs mean null.
type SrcUsage struct {
	ID         string
	ParentID   string
	AcceptedID string
	BasionymID string

	Rank            rank.Rank
	TaxonomicStatus status.Status
	NomStatus       []string

	ScientificName string

	// Kingdom is the flat classification hint given by the source.
	Kingdom string

	// Parsed is nil until the name parser processed ScientificName.
	Parsed *ParsedName
}

// IsSynonym is true if the usage points to an accepted usage.
func (u SrcUsage) IsSynonym() bool {
	return u.TaxonomicStatus.IsSynonym() || u.AcceptedID != ""
}

// NubUsage is a node of the backbone. Zero keys mean null.
type NubUsage struct {
	Key int

	ScientificName string
	CanonicalName  string
	Authorship     string
	Year           string

	Rank            rank.Rank
	Kingdom         string
	TaxonomicStatus status.Status

	ParentKey   int
	AcceptedKey int
	BasionymKey int

	NomStatus []string
	Issues    []issue.Issue

	// Sources holds provenance as "<dataset id>:<source id>".
	Sources []string

	Deleted bool
}

// IsSynonym is true for synonymous usages.
func (n *NubUsage) IsSynonym() bool {
	return n.TaxonomicStatus.IsSynonym()
}

// AddIssue adds an issue to the set of issues.
func (n *NubUsage) AddIssue(iss issue.Issue) {
	if !slices.Contains(n.Issues, iss) {
		n.Issues = append(n.Issues, iss)
		slices.Sort(n.Issues)
	}
}

// HasIssue checks if the issue is recorded.
func (n *NubUsage) HasIssue(iss issue.Issue) bool {
	return slices.Contains(n.Issues, iss)
}

// AddSource adds provenance information.
func (n *NubUsage) AddSource(src string) {
	n.Sources = addString(n.Sources, src)
}

// AddNomStatus merges nomenclatural status values.
func (n *NubUsage) AddNomStatus(ss ...string) {
	for _, s := range ss {
		n.NomStatus = addString(n.NomStatus, s)
	}
}

// Lookup returns the compact projection used for matching.
func (n *NubUsage) Lookup() LookupUsage {
	return LookupUsage{
		Key:           n.Key,
		CanonicalName: n.CanonicalName,
		Authorship:    n.Authorship,
		Year:          n.Year,
		Kingdom:       n.Kingdom,
		Rank:          n.Rank,
		Deleted:       n.Deleted,
	}
}

// LookupUsage is a denormalized projection of NubUsage kept for fast
// matching. It is never the point of truth.
type LookupUsage struct {
	Key           int
	CanonicalName string
	Authorship    string
	Year          string
	Kingdom       string
	Rank          rank.Rank
	Deleted       bool
}

// ParsedName reconstructs a parsed name from the lookup record, so it can
// be compared with a query name.
func (l LookupUsage) ParsedName() ParsedName {
	sciName := l.CanonicalName
	if l.Authorship != "" {
		sciName += " " + l.Authorship
	}
	return ParsedName{
		ScientificName: sciName,
		CanonicalName:  l.CanonicalName,
		Authorship:     l.Authorship,
		Year:           l.Year,
		Rank:           l.Rank,
		AuthorsParsed:  true,
	}
}

func addString(ss []string, s string) []string {
	if s == "" || slices.Contains(ss, s) {
		return ss
	}
	ss = append(ss, s)
	slices.Sort(ss)
	return ss
}
