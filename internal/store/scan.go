/*
file: lucidkv/internal/store/scan.go

Cursor-based SCAN/HSCAN/SSCAN/ZSCAN support (spec.md §4.2 "Scan
semantics"). Keys are ordered by a stable 64-bit hash rather than by
map iteration order (which Go deliberately randomizes), so a cursor
value is meaningful across calls: the guarantee is that every key
present for the whole scan appears at least once, duplicates are
possible only across a concurrent mutation, and cursor 0 both starts
and ends a scan.
*/
package store

import (
	"hash/fnv"
	"path"
	"sort"
	"time"
)

func keyHash(k string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k))
	return h.Sum64()
}

type hashedKey struct {
	hash uint64
	key  string
}

// scanSlice walks a caller-supplied, already-deduplicated key set in
// hash order starting strictly after cursor, returns up to count
// matches (after applying an optional glob match; callers apply any
// type filter before building keys) and the cursor to resume from, or
// 0 when the scan is complete.
func scanSlice(keys []hashedKey, cursor uint64, match string, count int) (next uint64, result []string) {
	if count <= 0 {
		count = 10
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].hash != keys[j].hash {
			return keys[i].hash < keys[j].hash
		}
		return keys[i].key < keys[j].key
	})
	start := sort.Search(len(keys), func(i int) bool { return keys[i].hash > cursor })

	taken := 0
	i := start
	for ; i < len(keys) && taken < count; i++ {
		k := keys[i].key
		if match != "" && match != "*" {
			if ok, _ := path.Match(match, k); !ok {
				continue
			}
		}
		result = append(result, k)
		taken++
	}
	if i >= len(keys) {
		return 0, result
	}
	return keys[i-1].hash, result
}

func scanGuardedDB(d *guardedDB, cursor uint64, match string, count int, typ string) (uint64, [][]byte, error) {
	now := time.Now()
	keys := make([]hashedKey, 0, len(d.items))
	for k, it := range d.items {
		if it.ExpiredAt(now) {
			continue
		}
		if typ != "" && it.Kind.String() != typ {
			continue
		}
		keys = append(keys, hashedKey{hash: keyHash(k), key: k})
	}
	next, matched := scanSlice(keys, cursor, match, count)
	out := make([][]byte, len(matched))
	for i, k := range matched {
		out[i] = []byte(k)
	}
	return next, out, nil
}
