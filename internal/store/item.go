/*
file: lucidkv/internal/store/item.go

The stored-value tagged variant (spec.md §3) and its per-key metadata.
Item generalizes the teacher's common.Item (which only ever grew a
handful of ad-hoc fields per type) into one tag plus exactly the
payload that tag needs, the same shape the RESP Value union uses.
*/
package store

import (
	"encoding/json"
	"time"
)

// Kind identifies which payload variant an Item holds.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindHash
	KindSet
	KindZSet
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindHash:
		return "hash"
	case KindSet:
		return "set"
	case KindZSet:
		return "zset"
	case KindJSON:
		return "ReJSON-RL"
	default:
		return "unknown"
	}
}

// ZMember is one (member, score) pair of a sorted set.
type ZMember struct {
	Member string
	Score  float64
}

// Item is the tagged stored-value variant. Only the field matching Kind
// is meaningful.
type Item struct {
	Kind Kind

	Str  []byte
	List [][]byte
	Hash *OrderedHash
	Set  map[string]struct{}
	ZSet *SortedSet
	JSON interface{} // tree of nil/bool/float64/string/[]interface{}/map[string]interface{}

	// Expire is the absolute expiration instant; the zero Time means no
	// TTL. Resolution is milliseconds, matching spec.md §3.
	Expire time.Time
}

// HasTTL reports whether the item carries an expiration.
func (it *Item) HasTTL() bool { return !it.Expire.IsZero() }

// ExpiredAt reports whether the item's TTL has elapsed as of now.
func (it *Item) ExpiredAt(now time.Time) bool {
	return it.HasTTL() && !it.Expire.After(now)
}

// Clone returns a deep-enough copy for COPY/snapshot semantics: string
// payloads and hash values are copied, while list elements are shared
// with the original (only the list's backing array is duplicated), which
// is safe because every mutator replaces rather than edits byte slices
// in place.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	clone := &Item{Kind: it.Kind, Expire: it.Expire}
	switch it.Kind {
	case KindString:
		clone.Str = append([]byte(nil), it.Str...)
	case KindList:
		clone.List = append([][]byte(nil), it.List...)
	case KindHash:
		clone.Hash = it.Hash.clone()
	case KindSet:
		s := make(map[string]struct{}, len(it.Set))
		for k := range it.Set {
			s[k] = struct{}{}
		}
		clone.Set = s
	case KindZSet:
		clone.ZSet = it.ZSet.clone()
	case KindJSON:
		clone.JSON = deepCopyJSON(it.JSON)
	}
	return clone
}

func deepCopyJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = deepCopyJSON(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = deepCopyJSON(val)
		}
		return s
	default:
		return t
	}
}

// NewStringItem builds a KindString item with no TTL.
func NewStringItem(b []byte) *Item { return &Item{Kind: KindString, Str: b} }

// OrderedHash is a field->value map that preserves field insertion
// order, required so HSCAN yields a stable-ish iteration order the way
// spec.md §3 calls for.
type OrderedHash struct {
	order  []string
	fields map[string][]byte
}

func NewOrderedHash() *OrderedHash {
	return &OrderedHash{fields: make(map[string][]byte)}
}

func (h *OrderedHash) Get(field string) ([]byte, bool) {
	v, ok := h.fields[field]
	return v, ok
}

func (h *OrderedHash) Set(field string, value []byte) (created bool) {
	if _, exists := h.fields[field]; !exists {
		h.order = append(h.order, field)
		created = true
	}
	h.fields[field] = value
	return created
}

func (h *OrderedHash) Delete(field string) bool {
	if _, exists := h.fields[field]; !exists {
		return false
	}
	delete(h.fields, field)
	for i, f := range h.order {
		if f == field {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return true
}

func (h *OrderedHash) Len() int { return len(h.fields) }

// Fields iterates fields in insertion order.
func (h *OrderedHash) Fields() []string { return h.order }

// orderedHashField is the wire shape one field takes in MarshalJSON's
// output; OrderedHash's own fields are unexported so the raft snapshot
// codec (encoding/json) would otherwise see an empty struct.
type orderedHashField struct {
	Name  string `json:"name"`
	Value []byte `json:"value"`
}

func (h *OrderedHash) MarshalJSON() ([]byte, error) {
	out := make([]orderedHashField, len(h.order))
	for i, name := range h.order {
		out[i] = orderedHashField{Name: name, Value: h.fields[name]}
	}
	return json.Marshal(out)
}

func (h *OrderedHash) UnmarshalJSON(data []byte) error {
	var in []orderedHashField
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	h.fields = make(map[string][]byte, len(in))
	h.order = make([]string, 0, len(in))
	for _, f := range in {
		h.fields[f.Name] = f.Value
		h.order = append(h.order, f.Name)
	}
	return nil
}

func (h *OrderedHash) clone() *OrderedHash {
	c := &OrderedHash{
		order:  append([]string(nil), h.order...),
		fields: make(map[string][]byte, len(h.fields)),
	}
	for k, v := range h.fields {
		c.fields[k] = append([]byte(nil), v...)
	}
	return c
}
