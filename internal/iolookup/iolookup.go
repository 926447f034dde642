// Package iolookup implements lookup.Store on top of Badger.
//
// Records are kept under `k/<key>` with the key as big-endian uint32 and
// values in the layout of encodeRecord, the name index under
// `n/<canonical>\x00<rank>\x00<key>` with empty values.
// Rebuild writes a new generation of the database into its own directory
// and swaps it with the live one. The name of the live generation is kept
// in the CURRENT file.
package iolookup

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/lookup"
	"github.com/gnames/gnsys"
)

const (
	currentFile = "CURRENT"
	genPrefix   = "gen-"
)

var (
	recPrefix  = []byte("k/")
	namePrefix = []byte("n/")
	sep        = byte(0)
)

type store struct {
	// dir is empty for in-memory stores.
	dir string

	mu    sync.RWMutex
	db    *badger.DB
	gen   int
	count int
}

// Open opens the lookup store located in dir, creating it if needed.
func Open(dir string) (lookup.Store, error) {
	err := gnsys.MakeDir(dir)
	if err != nil {
		return nil, OpenError(dir, err)
	}

	res := &store{dir: dir}
	res.gen, err = readCurrent(dir)
	if err != nil {
		return nil, OpenError(dir, err)
	}
	if res.gen == 0 {
		res.gen = 1
		if err = writeCurrent(dir, res.gen); err != nil {
			return nil, OpenError(dir, err)
		}
	}

	res.db, err = res.openGen(res.gen)
	if err != nil {
		return nil, OpenError(res.genDir(res.gen), err)
	}
	res.count, err = countRecords(res.db)
	if err != nil {
		_ = res.db.Close()
		return nil, OpenError(dir, err)
	}

	slog.Info("Lookup store opened",
		"dir", dir, "generation", res.gen, "records", res.count)
	return res, nil
}

// OpenInMemory creates a lookup store without disk persistence.
func OpenInMemory() (lookup.Store, error) {
	res := &store{gen: 1}
	db, err := res.openGen(res.gen)
	if err != nil {
		return nil, OpenError("in-memory", err)
	}
	res.db = db
	return res, nil
}

func (s *store) openGen(gen int) (*badger.DB, error) {
	var opts badger.Options
	if s.dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(s.genDir(gen))
	}
	opts = opts.WithLogger(nil)
	return badger.Open(opts)
}

func (s *store) genDir(gen int) string {
	return filepath.Join(s.dir, genName(gen))
}

func genName(gen int) string {
	return fmt.Sprintf("%s%06d", genPrefix, gen)
}

// Put inserts or replaces a record and its name index entry.
func (s *store) Put(rec usage.LookupUsage) error {
	val := encodeRecord(rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	var isNew bool
	err := s.db.Update(func(txn *badger.Txn) error {
		old, ok, err := s.get(txn, rec.Key)
		if err != nil {
			return err
		}
		isNew = !ok
		if ok {
			if err = txn.Delete(nameKey(old)); err != nil {
				return err
			}
		}
		if err = txn.Set(recKey(rec.Key), val); err != nil {
			return err
		}
		return txn.Set(nameKey(rec), nil)
	})
	if err != nil {
		return WriteError(rec.Key, err)
	}
	if isNew {
		s.count++
	}
	return nil
}

// Get returns a record by key.
func (s *store) Get(key int) (usage.LookupUsage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res usage.LookupUsage
	var ok bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		res, ok, err = s.get(txn, key)
		return err
	})
	if err != nil {
		return res, false, ReadError("get", err)
	}
	return res, ok, nil
}

func (s *store) get(txn *badger.Txn, key int) (usage.LookupUsage, bool, error) {
	var res usage.LookupUsage
	item, err := txn.Get(recKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return res, false, nil
	}
	if err != nil {
		return res, false, err
	}
	err = item.Value(func(val []byte) error {
		var err error
		res, err = decodeRecord(val)
		return err
	})
	if err != nil {
		return res, false, err
	}
	return res, true, nil
}

// Candidates returns records with the same normalized canonical name and
// rank, skipping records of other kingdoms.
func (s *store) Candidates(
	canonical string,
	rnk rank.Rank,
	kingdom string,
) ([]usage.LookupUsage, error) {
	prefix := namePrefixFor(lookup.NormCanonical(canonical), rnk)
	var res []usage.LookupUsage
	err := s.scan(prefix, 0, func(rec usage.LookupUsage) {
		if kingdom != "" && rec.Kingdom != "" &&
			!strings.EqualFold(kingdom, rec.Kingdom) {
			return
		}
		res = append(res, rec)
	})
	if err != nil {
		return nil, ReadError("candidates", err)
	}
	return res, nil
}

// ByPrefix returns up to limit records which normalized canonical names
// start with prefix, ordered by name. Zero limit means no limit.
func (s *store) ByPrefix(prefix string, limit int) ([]usage.LookupUsage, error) {
	p := lookup.NormCanonical(prefix)
	if p == "" {
		return nil, nil
	}
	key := append(bytes.Clone(namePrefix), p...)
	var res []usage.LookupUsage
	err := s.scan(key, limit, func(rec usage.LookupUsage) {
		res = append(res, rec)
	})
	if err != nil {
		return nil, ReadError("prefix", err)
	}
	return res, nil
}

// scan walks the name index with the given prefix and returns the
// referenced records.
func (s *store) scan(
	prefix []byte,
	limit int,
	fn func(usage.LookupUsage),
) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var count int
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().Key()
			if len(k) < 4 {
				continue
			}
			key := int(binary.BigEndian.Uint32(k[len(k)-4:]))
			rec, ok, err := s.get(txn, key)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			fn(rec)
			count++
			if limit > 0 && count >= limit {
				break
			}
		}
		return nil
	})
}

// Rebuild fills a new generation of the store and makes it live. Readers
// keep using the previous generation until the swap.
func (s *store) Rebuild(
	ctx context.Context,
	nubs iter.Seq[usage.NubUsage],
) error {
	s.mu.RLock()
	gen := s.gen + 1
	s.mu.RUnlock()
	name := genName(gen)

	if s.dir != "" {
		dir := s.genDir(gen)
		if err := gnsys.MakeDir(dir); err != nil {
			return RebuildError(name, err)
		}
		if err := gnsys.CleanDir(dir); err != nil {
			return RebuildError(name, err)
		}
	}

	db, err := s.openGen(gen)
	if err != nil {
		return RebuildError(name, err)
	}

	count, err := s.fill(ctx, db, nubs)
	if err != nil {
		_ = db.Close()
		if s.dir != "" {
			_ = os.RemoveAll(s.genDir(gen))
		}
		return RebuildError(name, err)
	}

	if s.dir != "" {
		if err = writeCurrent(s.dir, gen); err != nil {
			_ = db.Close()
			_ = os.RemoveAll(s.genDir(gen))
			return RebuildError(name, err)
		}
	}

	s.mu.Lock()
	old, oldGen := s.db, s.gen
	s.db, s.gen, s.count = db, gen, count
	s.mu.Unlock()

	if err = old.Close(); err != nil {
		slog.Warn("Cannot close previous lookup generation", "error", err)
	}
	if s.dir != "" {
		if err = os.RemoveAll(s.genDir(oldGen)); err != nil {
			slog.Warn("Cannot remove previous lookup generation",
				"error", err, "generation", genName(oldGen))
		}
	}

	slog.Info("Lookup store rebuilt", "generation", gen, "records", count)
	return nil
}

func (s *store) fill(
	ctx context.Context,
	db *badger.DB,
	nubs iter.Seq[usage.NubUsage],
) (int, error) {
	wb := db.NewWriteBatch()
	defer wb.Cancel()

	seen := make(map[int]struct{})
	for n := range nubs {
		if len(seen)%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if _, ok := seen[n.Key]; ok {
			return 0, fmt.Errorf("duplicate backbone key %d", n.Key)
		}
		seen[n.Key] = struct{}{}

		rec := n.Lookup()
		if err := wb.Set(recKey(rec.Key), encodeRecord(rec)); err != nil {
			return 0, err
		}
		if err := wb.Set(nameKey(rec), nil); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(seen), nil
}

// Len returns the number of records.
func (s *store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close closes the live generation.
func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func recKey(key int) []byte {
	return binary.BigEndian.AppendUint32(bytes.Clone(recPrefix), uint32(key))
}

func namePrefixFor(canonical string, rnk rank.Rank) []byte {
	res := append(bytes.Clone(namePrefix), canonical...)
	res = append(res, sep)
	res = append(res, strconv.Itoa(int(rnk))...)
	return append(res, sep)
}

func nameKey(rec usage.LookupUsage) []byte {
	res := namePrefixFor(lookup.NormCanonical(rec.CanonicalName), rec.Rank)
	return binary.BigEndian.AppendUint32(res, uint32(rec.Key))
}

func countRecords(db *badger.DB) (int, error) {
	var res int
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = recPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(recPrefix); it.ValidForPrefix(recPrefix); it.Next() {
			res++
		}
		return nil
	})
	return res, err
}

func readCurrent(dir string) (int, error) {
	bs, err := os.ReadFile(filepath.Join(dir, currentFile))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	name := strings.TrimSpace(string(bs))
	gen, err := strconv.Atoi(strings.TrimPrefix(name, genPrefix))
	if err != nil || gen < 1 {
		return 0, fmt.Errorf("malformed %s file: %q", currentFile, name)
	}
	return gen, nil
}

func writeCurrent(dir string, gen int) error {
	path := filepath.Join(dir, currentFile)
	tmp := path + ".tmp"
	err := os.WriteFile(tmp, []byte(genName(gen)+"\n"), 0644)
	if err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
