/*
file: lucidkv/internal/store/zset.go

SortedSet keeps members ordered by (score ascending, member bytes
ascending) per spec.md §3/§4.3. A slice kept sorted by insertion is
sufficient at the scale this store targets; ZADD/ZINCRBY/ZREM
re-sort only the affected neighborhood via sort.Search + slice splice
rather than a full resort.
*/
package store

import (
	"encoding/json"
	"sort"
)

type SortedSet struct {
	members map[string]float64
	order   []ZMember // kept sorted by (Score, Member)
}

func NewSortedSet() *SortedSet {
	return &SortedSet{members: make(map[string]float64)}
}

func less(a, b ZMember) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Member < b.Member
}

func (z *SortedSet) Len() int { return len(z.members) }

func (z *SortedSet) Score(member string) (float64, bool) {
	s, ok := z.members[member]
	return s, ok
}

// Add inserts or updates member's score, returning true if the member
// was newly created.
func (z *SortedSet) Add(member string, score float64) (created bool) {
	if old, ok := z.members[member]; ok {
		z.removeFromOrder(ZMember{Member: member, Score: old})
		z.members[member] = score
		z.insertOrder(ZMember{Member: member, Score: score})
		return false
	}
	z.members[member] = score
	z.insertOrder(ZMember{Member: member, Score: score})
	return true
}

func (z *SortedSet) Remove(member string) bool {
	score, ok := z.members[member]
	if !ok {
		return false
	}
	delete(z.members, member)
	z.removeFromOrder(ZMember{Member: member, Score: score})
	return true
}

func (z *SortedSet) insertOrder(m ZMember) {
	i := sort.Search(len(z.order), func(i int) bool { return !less(z.order[i], m) })
	z.order = append(z.order, ZMember{})
	copy(z.order[i+1:], z.order[i:])
	z.order[i] = m
}

func (z *SortedSet) removeFromOrder(m ZMember) {
	i := sort.Search(len(z.order), func(i int) bool { return !less(z.order[i], m) })
	if i < len(z.order) && z.order[i] == m {
		z.order = append(z.order[:i], z.order[i+1:]...)
	}
}

// Range returns a [start,stop] inclusive slice of the ascending order,
// supporting Redis-style negative indices.
func (z *SortedSet) Range(start, stop int) []ZMember {
	n := len(z.order)
	start = normalizeIndex(start, n)
	stop = normalizeIndex(stop, n)
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil
	}
	out := make([]ZMember, stop-start+1)
	copy(out, z.order[start:stop+1])
	return out
}

// RangeByScore returns members with min <= score <= max (or exclusive
// bounds), in ascending order.
func (z *SortedSet) RangeByScore(min, max float64, minExcl, maxExcl bool) []ZMember {
	var out []ZMember
	for _, m := range z.order {
		if m.Score < min || (minExcl && m.Score == min) {
			continue
		}
		if m.Score > max || (maxExcl && m.Score == max) {
			break
		}
		out = append(out, m)
	}
	return out
}

func (z *SortedSet) All() []ZMember {
	out := make([]ZMember, len(z.order))
	copy(out, z.order)
	return out
}

// MarshalJSON/UnmarshalJSON serialize only the ordered member slice;
// members is rebuilt from it on decode. Needed because SortedSet's
// fields are unexported and the raft snapshot codec (encoding/json)
// would otherwise see an empty struct.
func (z *SortedSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(z.order)
}

func (z *SortedSet) UnmarshalJSON(data []byte) error {
	var order []ZMember
	if err := json.Unmarshal(data, &order); err != nil {
		return err
	}
	z.order = order
	z.members = make(map[string]float64, len(order))
	for _, m := range order {
		z.members[m.Member] = m.Score
	}
	return nil
}

func (z *SortedSet) clone() *SortedSet {
	c := &SortedSet{
		members: make(map[string]float64, len(z.members)),
		order:   append([]ZMember(nil), z.order...),
	}
	for k, v := range z.members {
		c.members[k] = v
	}
	return c
}

func normalizeIndex(i, n int) int {
	if i < 0 {
		i = n + i
	}
	return i
}
