package parserpool_test

import (
	"sync"
	"testing"

	"github.com/gnames/gnlib/ent/nomcode"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/parserpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewPool verifies pool creation with default and custom sizes.
func TestNewPool(t *testing.T) {
	for _, jobs := range []int{0, 1, 4} {
		pool := parserpool.NewPool(jobs)
		require.NotNil(t, pool)

		res, err := pool.Parse("Homo sapiens", nomcode.Botanical)
		assert.Nil(t, err)
		assert.Equal(t, "Homo sapiens", res.CanonicalName)
		pool.Close()
	}
}

func TestParse(t *testing.T) {
	pool := parserpool.NewPool(2)
	defer pool.Close()

	tests := []struct {
		msg       string
		name      string
		code      nomcode.Code
		canonical string
		genus     string
		sp, infra string
		au, bau   string
		year      string
		rank      rank.Rank
		parsedAu  bool
	}{
		{
			msg:       "uninomial",
			name:      "Abies Mill.",
			code:      nomcode.Botanical,
			canonical: "Abies",
			genus:     "Abies",
			au:        "Mill.",
			rank:      rank.Unranked,
			parsedAu:  true,
		},
		{
			msg:       "binomial",
			name:      "Abies alba Mill.",
			code:      nomcode.Botanical,
			canonical: "Abies alba",
			genus:     "Abies",
			sp:        "alba",
			au:        "Mill.",
			rank:      rank.Species,
			parsedAu:  true,
		},
		{
			msg:       "combination",
			name:      "Picea abies (L.) Karst.",
			code:      nomcode.Botanical,
			canonical: "Picea abies",
			genus:     "Picea",
			sp:        "abies",
			au:        "Karst.",
			bau:       "L.",
			rank:      rank.Species,
			parsedAu:  true,
		},
		{
			msg:       "zoological year",
			name:      "Apis mellifera Linnaeus, 1758",
			code:      nomcode.Zoological,
			canonical: "Apis mellifera",
			genus:     "Apis",
			sp:        "mellifera",
			au:        "Linnaeus",
			year:      "1758",
			rank:      rank.Species,
			parsedAu:  true,
		},
		{
			msg:       "variety",
			name:      "Rosa acicularis var. acicularis",
			code:      nomcode.Botanical,
			canonical: "Rosa acicularis acicularis",
			genus:     "Rosa",
			sp:        "acicularis",
			infra:     "acicularis",
			rank:      rank.Variety,
		},
		{
			msg:       "trinomial",
			name:      "Passer domesticus domesticus",
			code:      nomcode.Zoological,
			canonical: "Passer domesticus domesticus",
			genus:     "Passer",
			sp:        "domesticus",
			infra:     "domesticus",
			rank:      rank.Subspecies,
		},
		{
			msg:  "empty",
			name: "",
			code: nomcode.Botanical,
		},
	}

	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			assert := assert.New(t)
			res, err := pool.Parse(v.name, v.code)
			assert.Nil(err)
			assert.Equal(v.name, res.ScientificName)
			assert.Equal(v.canonical, res.CanonicalName)
			assert.Equal(v.genus, res.Genus)
			assert.Equal(v.sp, res.SpecificEpithet)
			assert.Equal(v.infra, res.InfraspecificEpithet)
			assert.Equal(v.au, res.Authorship)
			assert.Equal(v.bau, res.BracketAuthorship)
			assert.Equal(v.year, res.Year)
			assert.Equal(v.rank, res.Rank)
			assert.Equal(v.parsedAu, res.AuthorsParsed)
		})
	}
}

// TestParseUnsupportedCode verifies error handling for unsupported codes.
func TestParseUnsupportedCode(t *testing.T) {
	pool := parserpool.NewPool(2)
	defer pool.Close()

	_, err := pool.Parse("Plantago major", nomcode.Bacterial)
	assert.NotNil(t, err)
}

// TestParseCodeDifference verifies that "Aus (Bus)" is a subgenus under the
// zoological code and a genus with a parenthesized author under the
// botanical one.
func TestParseCodeDifference(t *testing.T) {
	pool := parserpool.NewPool(2)
	defer pool.Close()

	zoo, err := pool.Parse("Aus (Bus)", nomcode.Zoological)
	assert.Nil(t, err)
	bot, err := pool.Parse("Aus (Bus)", nomcode.Botanical)
	assert.Nil(t, err)

	assert.Equal(t, "Bus", zoo.CanonicalName)
	assert.Equal(t, "Aus", bot.CanonicalName)
}

// TestParseConcurrent verifies thread-safety with multiple goroutines.
func TestParseConcurrent(t *testing.T) {
	pool := parserpool.NewPool(4)
	defer pool.Close()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			code, name := nomcode.Botanical, "Plantago major"
			if id%2 == 0 {
				code, name = nomcode.Zoological, "Homo sapiens"
			}
			for range 10 {
				res, err := pool.Parse(name, code)
				assert.Nil(t, err)
				assert.Equal(t, name, res.CanonicalName)
			}
		}(i)
	}
	wg.Wait()
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		kingdom string
		code    nomcode.Code
	}{
		{"Animalia", nomcode.Zoological},
		{" protozoa ", nomcode.Zoological},
		{"Plantae", nomcode.Botanical},
		{"Fungi", nomcode.Botanical},
		{"", nomcode.Botanical},
	}

	for _, v := range tests {
		assert.Equal(t, v.code, parserpool.CodeFor(v.kingdom), v.kingdom)
	}
}
