// Package authorship compares authors and years of two parsed names.
//
// Author strings from checklists are noisy: team lists, transliterations,
// abbreviations. Compare prefers exact matches of normalized authors,
// falls back to a common-substring heuristic, and lets publication years
// decide whenever both names have them.
package authorship

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gnames/gnnub/pkg/ent/equality"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"golang.org/x/text/unicode/norm"
)

// minCommonLen is the length a common substring has to exceed for authors
// to be considered the same.
const minCommonLen = 3

var (
	ampRe       = regexp.MustCompile(`(?i)&amp;|&`)
	connectorRe = regexp.MustCompile(`(?i)\b(et|and)\b`)
	spaceRe     = regexp.MustCompile(`\s+`)
	digitsRe    = regexp.MustCompile(`\d+`)
	yearRe      = regexp.MustCompile(`(?:^|\D)(\d{4})(?:\D|$)`)
)

// Compare returns Equal when authors or years of two names agree,
// Different when they disagree and Unknown when there is nothing to
// compare. Years take precedence over authors, except when normalized
// authors are identical.
func Compare(a, b usage.ParsedName) equality.Equality {
	res := equality.Unknown

	au1, ok1 := Author(a)
	au2, ok2 := Author(b)
	if ok1 && ok2 {
		if au1 == au2 {
			return equality.Equal
		}
		res = compareAuthors(au1, au2)
	}

	y1, ok1 := Year(a)
	y2, ok2 := Year(b)
	if ok1 && ok2 {
		if y1 == y2 {
			return equality.Equal
		}
		return equality.Different
	}

	return res
}

func compareAuthors(au1, au2 string) equality.Equality {
	common := LongestCommonSubstring(au1, au2)
	if len(common) > minCommonLen || common == au1 || common == au2 {
		return equality.Equal
	}
	return equality.Different
}

// Author returns the normalized author of a name. The second value is
// false when the name has no author.
func Author(n usage.ParsedName) (string, bool) {
	if n.AuthorsParsed {
		au := n.Authorship
		if strings.TrimSpace(au) == "" {
			au = n.BracketAuthorship
		}
		return Normalize(au)
	}
	au := authorFromName(n)
	au = digitsRe.ReplaceAllString(au, " ")
	return Normalize(au)
}

// authorFromName takes everything after the last canonical word of the
// scientific name.
func authorFromName(n usage.ParsedName) string {
	words := strings.Fields(n.CanonicalName)
	if len(words) == 0 {
		words = strings.Fields(strings.Join(
			[]string{n.Genus, n.SpecificEpithet, n.InfraspecificEpithet}, " ",
		))
	}
	if len(words) == 0 {
		return ""
	}
	last := words[len(words)-1]
	idx := strings.LastIndex(n.ScientificName, last)
	if idx == -1 {
		return ""
	}
	return n.ScientificName[idx+len(last):]
}

// Year returns a normalized year of a name. The second value is false
// when there is no year.
func Year(n usage.ParsedName) (string, bool) {
	if n.AuthorsParsed {
		y := normYear(n.Year)
		if y == "" {
			y = normYear(n.BracketYear)
		}
		return y, y != ""
	}
	m := yearRe.FindStringSubmatch(n.ScientificName)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

func normYear(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "()[]?")
	return strings.TrimSpace(s)
}

// Normalize prepares an author string for comparison: connectors
// removed, folded to ASCII, punctuation and whitespace collapsed,
// lower-cased. Blank results return false.
func Normalize(s string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	s = ampRe.ReplaceAllString(s, " ")
	s = connectorRe.ReplaceAllString(s, " ")
	s = foldASCII(s)
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.ToLower(strings.TrimSpace(s))
	return s, s != ""
}

// foldASCII decomposes the string, drops combining marks and non-ASCII
// leftovers and turns punctuation into spaces.
func foldASCII(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r > unicode.MaxASCII:
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		default:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// LongestCommonSubstring returns the longest contiguous substring shared
// by a and b. For ties the one that occurs first in a wins.
func LongestCommonSubstring(a, b string) string {
	if a == "" || b == "" {
		return ""
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	var maxLen, end int
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > maxLen {
					maxLen = curr[j]
					end = i
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return a[end-maxLen : end]
}
