/*
file: lucidkv/internal/store/backend.go

Backend is the single storage abstraction the command dispatcher
depends on; Memory and Persistent are its two implementors (spec.md
§4.2, §9 design note "pluggable storage is an interface abstraction").
*/
package store

import (
	"errors"
	"time"
)

var (
	// ErrDBOutOfRange is returned by any op given a db index outside
	// [0, NumDatabases()).
	ErrDBOutOfRange = errors.New("store: database index out of range")

	// ErrWrongType marks a type-specialized command applied to the
	// wrong stored-value variant (spec.md §3: "they do not coerce").
	ErrWrongType = errors.New("store: operation against a key holding the wrong kind of value")
)

// SetOptions carries the NX/XX/EX/KEEPTTL flags the `set` operation
// accepts (spec.md §4.2 operation table).
type SetOptions struct {
	NX      bool
	XX      bool
	HasExp  bool
	ExpireAt time.Time
	KeepTTL bool
}

// ExpireMode selects how `expire` interprets its target TTL relative
// to any existing one.
type ExpireMode int

const (
	ExpireAlways ExpireMode = iota
	ExpireNX               // only if the key has no TTL
	ExpireXX               // only if the key has a TTL
	ExpireGT               // only if the new expiry is later
	ExpireLT               // only if the new expiry is sooner
)

// BatchOp is one element of an atomic write_batch (spec.md §4.2).
type BatchOp struct {
	Key    []byte
	Item   *Item // nil + Delete=false is invalid
	Delete bool
}

// MutateFunc is given the current item (nil if absent) and returns the
// item that should replace it (nil to delete it) or an error to abort
// the mutation leaving the key untouched.
type MutateFunc func(existing *Item, exists bool) (next *Item, err error)

// Backend is the storage interface the dispatcher programs against.
// All key/field arguments are opaque byte strings; callers are
// responsible for type checking before casting an Item's payload.
type Backend interface {
	NumDatabases() int

	Get(db int, key []byte) (*Item, bool, error)
	Set(db int, key []byte, item *Item, opts SetOptions) (prev *Item, applied bool, err error)
	Delete(db int, keys ...[]byte) (int, error)
	Exists(db int, keys ...[]byte) (int, error)
	Expire(db int, key []byte, at time.Time, mode ExpireMode) (bool, error)
	Persist(db int, key []byte) (bool, error)
	TTL(db int, key []byte) (time.Duration, bool, error)

	// Mutate performs a read-modify-write of a single key under the
	// backend's exclusive per-key/per-database granularity, used by
	// every type-specific command (LPUSH, HSET, SADD, ZADD, ...).
	Mutate(db int, key []byte, fn MutateFunc) (result *Item, err error)

	Scan(db int, cursor uint64, match string, count int, typ string) (next uint64, keys [][]byte, err error)
	Keys(db int, match string) ([][]byte, error)

	WriteBatch(db int, ops []BatchOp) error

	IterateExpired(db int, now time.Time, limit int) ([][]byte, error)

	FlushDB(db int) error
	FlushAll() error
	DBSize(db int) (int, error)
	RandomKey(db int) ([]byte, bool, error)

	// KeyEpoch returns a monotonically increasing per-key modification
	// counter, used by WATCH to detect concurrent writes (spec.md §4.4).
	KeyEpoch(db int, key []byte) (uint64, error)

	Close() error
}
