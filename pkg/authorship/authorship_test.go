package authorship_test

import (
	"testing"

	"github.com/gnames/gnnub/pkg/authorship"
	"github.com/gnames/gnnub/pkg/ent/equality"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/stretchr/testify/assert"
)

func parsed(au, year string) usage.ParsedName {
	return usage.ParsedName{
		ScientificName: "Aus bus " + au,
		CanonicalName:  "Aus bus",
		Authorship:     au,
		Year:           year,
		AuthorsParsed:  true,
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		msg, inp, res string
		ok            bool
	}{
		{"simple", "Mill.", "mill", true},
		{"ampersand", "Torr. & A.Gray", "torr a gray", true},
		{"html ampersand", "Torr. &amp; Gray", "torr gray", true},
		{"et", "Torr. et Gray", "torr gray", true},
		{"and upper", "Smith AND Jones", "smith jones", true},
		{"et inside word", "Betts", "betts", true},
		{"diacritics", "Müll.Arg.", "mull arg", true},
		{"non ascii", "Ælfric ß", "lfric", true},
		{"spaces", "  L.   f. ", "l f", true},
		{"empty", "", "", false},
		{"blank", "   ", "", false},
		{"only connectors", "&", "", false},
		{"only punctuation", "(.,)", "", false},
	}

	for _, v := range tests {
		res, ok := authorship.Normalize(v.inp)
		assert.Equal(t, v.ok, ok, v.msg)
		assert.Equal(t, v.res, res, v.msg)
	}
}

func TestLongestCommonSubstring(t *testing.T) {
	tests := []struct {
		a, b, res string
	}{
		{"mill", "miller", "mill"},
		{"torr a gray", "torr gray", "torr "},
		{"l", "dc", ""},
		{"", "abc", ""},
		{"abcxyz", "xyzabc", "abc"},
	}
	for _, v := range tests {
		assert.Equal(t, v.res, authorship.LongestCommonSubstring(v.a, v.b),
			v.a+"|"+v.b)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		msg  string
		a, b usage.ParsedName
		res  equality.Equality
	}{
		{
			msg: "abbreviation",
			a:   parsed("Mill.", ""),
			b:   parsed("Miller", ""),
			res: equality.Equal,
		},
		{
			msg: "no reliable author signal",
			a:   parsed("L.", ""),
			b:   parsed("DC.", ""),
			res: equality.Different,
		},
		{
			msg: "same year overrides different authors",
			a:   parsed("L.", "1867"),
			b:   parsed("DC.", "1867"),
			res: equality.Equal,
		},
		{
			msg: "connectors",
			a:   parsed("Torr. & A.Gray", "1838"),
			b:   parsed("Torr. et Gray", ""),
			res: equality.Equal,
		},
		{
			msg: "identical authors short-circuit years",
			a:   parsed("Mill.", "1768"),
			b:   parsed("Mill.", "1759"),
			res: equality.Equal,
		},
		{
			// Deliberate policy: a substring author match is overridden
			// by a disagreeing year.
			msg: "year overrides substring author match",
			a:   parsed("Mill.", "1768"),
			b:   parsed("Miller", "1759"),
			res: equality.Different,
		},
		{
			msg: "nothing to compare",
			a:   parsed("", ""),
			b:   parsed("Mill.", ""),
			res: equality.Unknown,
		},
		{
			msg: "years only",
			a:   parsed("", "1758"),
			b:   parsed("L.", "1758"),
			res: equality.Equal,
		},
		{
			msg: "bracket authorship used when primary is empty",
			a: usage.ParsedName{
				BracketAuthorship: "L.", AuthorsParsed: true,
			},
			b:   parsed("L.", ""),
			res: equality.Equal,
		},
		{
			msg: "unparsed names fall back to scientific name",
			a: usage.ParsedName{
				ScientificName: "Abies alba Mill. 1768",
				CanonicalName:  "Abies alba",
			},
			b: usage.ParsedName{
				ScientificName: "Abies alba Miller",
				CanonicalName:  "Abies alba",
			},
			res: equality.Equal,
		},
		{
			msg: "unparsed years from scientific name",
			a: usage.ParsedName{
				ScientificName: "Abies alba L. 1753",
				CanonicalName:  "Abies alba",
			},
			b: usage.ParsedName{
				ScientificName: "Abies alba DC. 1805",
				CanonicalName:  "Abies alba",
			},
			res: equality.Different,
		},
	}

	for _, v := range tests {
		assert.Equal(t, v.res, authorship.Compare(v.a, v.b), v.msg)
		assert.Equal(t, v.res, authorship.Compare(v.b, v.a), v.msg+" (swapped)")
	}
}

func TestCompareSelf(t *testing.T) {
	names := []usage.ParsedName{
		parsed("Mill.", ""),
		parsed("", "1900"),
		parsed("(L.) H.Karst.", "1881"),
		{ScientificName: "Picea abies (L.) H.Karst.", CanonicalName: "Picea abies"},
	}
	for _, v := range names {
		assert.Equal(t, equality.Equal, authorship.Compare(v, v), v.ScientificName)
	}
}

func TestYear(t *testing.T) {
	tests := []struct {
		msg string
		n   usage.ParsedName
		res string
		ok  bool
	}{
		{"parsed", parsed("L.", "1758"), "1758", true},
		{"approximate", parsed("L.", "(1758)"), "1758", true},
		{"bracket", usage.ParsedName{BracketYear: "1801", AuthorsParsed: true}, "1801", true},
		{"from name", usage.ParsedName{ScientificName: "Aus bus Smith, 1901"}, "1901", true},
		{"no flanking", usage.ParsedName{ScientificName: "Aus bus 19011"}, "", false},
		{"none", usage.ParsedName{ScientificName: "Aus bus"}, "", false},
	}
	for _, v := range tests {
		res, ok := authorship.Year(v.n)
		assert.Equal(t, v.ok, ok, v.msg)
		assert.Equal(t, v.res, res, v.msg)
	}
}
