// Package policy holds the name blacklist and homonym exclusions used
// while building the backbone. A Policy is passed explicitly to the
// ingester and the matcher, there is no global state.
package policy

import (
	"slices"
	"strings"
)

// Policy contains curated rules for building the backbone.
type Policy struct {
	// Blacklist contains names that are always ignored.
	Blacklist []string `yaml:"blacklist"`

	// Exclusions contains homonyms that must never be matched with each
	// other across a higher taxon boundary.
	Exclusions []Exclusion `yaml:"homonym_exclusions"`

	blacklist  map[string]struct{}
	exclusions map[string][]string
}

// Exclusion means that Name placed under Taxon is a different name than
// Name placed anywhere else.
type Exclusion struct {
	Name  string `yaml:"name"`
	Taxon string `yaml:"taxon"`
}

// New creates a Policy and builds its indices.
func New(blacklist []string, exclusions []Exclusion) *Policy {
	res := &Policy{Blacklist: blacklist, Exclusions: exclusions}
	res.Index()
	return res
}

// Index (re)builds internal lookup tables. It has to be called after
// the exported fields change, for example after YAML decoding.
func (p *Policy) Index() {
	p.blacklist = make(map[string]struct{}, len(p.Blacklist))
	for _, v := range p.Blacklist {
		if k := key(v); k != "" {
			p.blacklist[k] = struct{}{}
		}
	}
	p.exclusions = make(map[string][]string)
	for _, v := range p.Exclusions {
		name, taxon := key(v.Name), key(v.Taxon)
		if name == "" || taxon == "" {
			continue
		}
		p.exclusions[name] = append(p.exclusions[name], taxon)
	}
}

// IsBlacklisted checks a scientific or canonical name against the
// blacklist.
func (p *Policy) IsBlacklisted(names ...string) bool {
	if p == nil || len(p.blacklist) == 0 {
		return false
	}
	for _, v := range names {
		if _, ok := p.blacklist[key(v)]; ok {
			return true
		}
	}
	return false
}

// HasExclusion checks if there are homonym exclusions for a name.
func (p *Policy) HasExclusion(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.exclusions[key(name)]
	return ok
}

// Excludes is true when a query name with classification queryCls must
// not be matched to a candidate with classification candCls.
func (p *Policy) Excludes(name string, queryCls, candCls []string) bool {
	if p == nil {
		return false
	}
	taxa, ok := p.exclusions[key(name)]
	if !ok {
		return false
	}
	for _, taxon := range taxa {
		if contains(queryCls, taxon) != contains(candCls, taxon) {
			return true
		}
	}
	return false
}

func contains(cls []string, taxon string) bool {
	return slices.ContainsFunc(cls, func(s string) bool {
		return key(s) == taxon
	})
}

func key(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
