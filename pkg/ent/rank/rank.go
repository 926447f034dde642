// Package rank provides an ordered enumeration of taxonomic ranks.
package rank

import (
	"strings"
)

// Rank is a taxonomic rank. Higher ranks have smaller values, Unranked
// is outside of the order.
type Rank int

const (
	Unranked Rank = iota
	Domain
	Kingdom
	Subkingdom
	Superphylum
	Phylum
	Subphylum
	Superclass
	Class
	Subclass
	Superorder
	Order
	Suborder
	Superfamily
	Family
	Subfamily
	Tribe
	Subtribe
	Genus
	Subgenus
	Section
	Series
	Species
	Subspecies
	Variety
	Subvariety
	Form
	Subform
)

var rankStr = []string{
	"unranked", "domain", "kingdom", "subkingdom", "superphylum", "phylum",
	"subphylum", "superclass", "class", "subclass", "superorder", "order",
	"suborder", "superfamily", "family", "subfamily", "tribe", "subtribe",
	"genus", "subgenus", "section", "series", "species", "subspecies",
	"variety", "subvariety", "form", "subform",
}

var aliases = map[string]Rank{
	"no rank":   Unranked,
	"norank":    Unranked,
	"regnum":    Kingdom,
	"division":  Phylum,
	"divisio":   Phylum,
	"classis":   Class,
	"ordo":      Order,
	"fam":       Family,
	"familia":   Family,
	"subfam":    Subfamily,
	"trib":      Tribe,
	"gen":       Genus,
	"subgen":    Subgenus,
	"sect":      Section,
	"ser":       Series,
	"sp":        Species,
	"spec":      Species,
	"subsp":     Subspecies,
	"ssp":       Subspecies,
	"var":       Variety,
	"varietas":  Variety,
	"subvar":    Subvariety,
	"f":         Form,
	"fm":        Form,
	"forma":     Form,
	"subf":      Subform,
	"subforma":  Subform,
	"infraspec": Subspecies,
}

var strRank = func() map[string]Rank {
	res := make(map[string]Rank, len(rankStr)+len(aliases))
	for i, v := range rankStr {
		res[v] = Rank(i)
	}
	for k, v := range aliases {
		res[k] = v
	}
	return res
}()

// New converts a rank string from a source into Rank. Unknown strings
// become Unranked.
func New(s string) Rank {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".")
	if r, ok := strRank[s]; ok {
		return r
	}
	return Unranked
}

// String implements fmt.Stringer.
func (r Rank) String() string {
	if r < 0 || int(r) >= len(rankStr) {
		return rankStr[Unranked]
	}
	return rankStr[r]
}

// IsRanked is true for ranks that take part in the rank order.
func (r Rank) IsRanked() bool {
	return r > Unranked && int(r) < len(rankStr)
}

// Higher is true if r is strictly above other. Unranked ranks are never
// higher or lower than anything.
func (r Rank) Higher(other Rank) bool {
	if !r.IsRanked() || !other.IsRanked() {
		return false
	}
	return r < other
}

// IsSuprageneric is true for ranks above genus.
func (r Rank) IsSuprageneric() bool {
	return r.IsRanked() && r < Genus
}

// IsInfraspecific is true for ranks below species.
func (r Rank) IsInfraspecific() bool {
	return r.IsRanked() && r > Species
}
