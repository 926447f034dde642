package iolookup

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/usage"
)

// recVersion is the first byte of every encoded record.
const recVersion byte = 1

const flagDeleted byte = 1

var errShortRecord = errors.New("truncated lookup record")

// encodeRecord writes a record as
// version | key uint32 | rank uvarint | flags | 4 x (uvarint len | bytes)
// with strings in the order canonical, authorship, year, kingdom.
func encodeRecord(rec usage.LookupUsage) []byte {
	strs := [...]string{
		rec.CanonicalName, rec.Authorship, rec.Year, rec.Kingdom,
	}
	size := 1 + 4 + binary.MaxVarintLen64 + 1
	for _, s := range strs {
		size += binary.MaxVarintLen64 + len(s)
	}

	res := make([]byte, 0, size)
	res = append(res, recVersion)
	res = binary.BigEndian.AppendUint32(res, uint32(rec.Key))
	res = binary.AppendUvarint(res, uint64(rec.Rank))
	var flags byte
	if rec.Deleted {
		flags |= flagDeleted
	}
	res = append(res, flags)
	for _, s := range strs {
		res = binary.AppendUvarint(res, uint64(len(s)))
		res = append(res, s...)
	}
	return res
}

func decodeRecord(val []byte) (usage.LookupUsage, error) {
	var res usage.LookupUsage
	if len(val) < 6 {
		return res, errShortRecord
	}
	if val[0] != recVersion {
		return res, fmt.Errorf("unknown lookup record version %d", val[0])
	}
	res.Key = int(binary.BigEndian.Uint32(val[1:5]))
	val = val[5:]

	rnk, n := binary.Uvarint(val)
	if n <= 0 {
		return res, errShortRecord
	}
	res.Rank = rank.Rank(rnk)
	val = val[n:]

	if len(val) == 0 {
		return res, errShortRecord
	}
	res.Deleted = val[0]&flagDeleted != 0
	val = val[1:]

	for _, s := range []*string{
		&res.CanonicalName, &res.Authorship, &res.Year, &res.Kingdom,
	} {
		l, n := binary.Uvarint(val)
		if n <= 0 || uint64(len(val)-n) < l {
			return res, errShortRecord
		}
		*s = string(val[n : n+int(l)])
		val = val[n+int(l):]
	}
	return res, nil
}
