// Package lookup defines the contract of the persistent store that keeps
// compact usage records for fast matching.
package lookup

import (
	"context"
	"iter"
	"strings"
	"unicode"

	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"golang.org/x/text/unicode/norm"
)

// Store maps backbone keys to LookupUsage records and indexes them by
// normalized canonical name.
//
// Reads are safe for concurrent use. Put is meant for a single writer.
// Rebuild replaces the whole content atomically: readers either see the
// old or the new records, never a mix.
type Store interface {
	// Put inserts or replaces a record.
	Put(rec usage.LookupUsage) error

	// Get returns a record by its backbone key.
	Get(key int) (usage.LookupUsage, bool, error)

	// Candidates returns records with the same normalized canonical name
	// and rank. When kingdom is not empty, records from other kingdoms are
	// skipped, records without kingdom are kept. The result is unordered.
	Candidates(
		canonical string,
		rnk rank.Rank,
		kingdom string,
	) ([]usage.LookupUsage, error)

	// ByPrefix returns up to limit records which normalized canonical
	// names start with prefix.
	ByPrefix(prefix string, limit int) ([]usage.LookupUsage, error)

	// Rebuild replaces all records with projections of the given usages.
	Rebuild(ctx context.Context, nubs iter.Seq[usage.NubUsage]) error

	// Len returns the number of records.
	Len() int

	// Close releases resources.
	Close() error
}

// NormCanonical normalizes a canonical name for indexing: diacritics
// removed, lower case, single spaces.
func NormCanonical(s string) string {
	var sb strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
