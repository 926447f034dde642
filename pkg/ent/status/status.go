// Package status provides taxonomic status of name usages.
package status

import "strings"

// Status is a taxonomic status of a usage.
type Status int

const (
	Unknown Status = iota
	Accepted
	ProvisionallyAccepted
	Doubtful
	Synonym
	AmbiguousSynonym
	Misapplied
)

var statusStr = []string{
	"unknown", "accepted", "provisionally accepted", "doubtful",
	"synonym", "ambiguous synonym", "misapplied",
}

// New converts a status string from a source into Status. It understands
// SFGA/CoLDP identifiers (ACCEPTED, PROVISIONALLY_ACCEPTED, ...) as well as
// plain words.
func New(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	switch s {
	case "accepted", "valid":
		return Accepted
	case "provisionally accepted", "provisional":
		return ProvisionallyAccepted
	case "doubtful", "bare name":
		return Doubtful
	case "synonym", "heterotypic synonym", "homotypic synonym",
		"homotypic", "heterotypic", "invalid":
		return Synonym
	case "ambiguous synonym", "pro parte synonym":
		return AmbiguousSynonym
	case "misapplied", "misapplied name":
		return Misapplied
	}
	return Unknown
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusStr) {
		return statusStr[Unknown]
	}
	return statusStr[s]
}

// IsSynonym is true for all statuses that point to another accepted taxon.
func (s Status) IsSynonym() bool {
	return s == Synonym || s == AmbiguousSynonym || s == Misapplied
}
