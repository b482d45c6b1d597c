/*
file: lucidkv/internal/txn/staging.go

StagingView layers a script's uncommitted writes over the live
database, implementing command.Store so redis.call() inside EVAL
dispatches through the very same handlers ordinary commands use,
unmodified -- the callback seam spec.md §9 calls for. Grounded on the
teacher's internal/database.Database, generalized from "the database"
into "the database plus an overlay that Commit or Discard resolves".
*/
package txn

import (
	"context"
	"path"
	"time"

	"github.com/lucidkv/lucidkv/internal/store"
)

// Base is the narrow slice of store.Database a StagingView reads
// through when a key has no overlay entry.
type Base interface {
	NumDatabases() int
	Get(db int, key []byte) (*store.Item, bool, error)
	Keys(db int, match string) ([][]byte, error)
	DBSize(db int) (int, error)
	RandomKey(db int) ([]byte, bool, error)
	KeyEpoch(db int, key []byte) (uint64, error)
	WriteBatch(db int, ops []store.BatchOp) error
	FlushDB(db int) error
	Notify(db int, key []byte)
}

type overlayEntry struct {
	item    *store.Item
	deleted bool
}

// StagingView accumulates writes in memory without touching Base until
// Commit is called; Discard drops everything. A StagingView is used by
// exactly one script execution and is never shared across goroutines.
type StagingView struct {
	base    Base
	overlay map[int]map[string]*overlayEntry
	flushed map[int]bool
	touched map[int]map[string]struct{}
}

func New(base Base) *StagingView {
	return &StagingView{
		base:    base,
		overlay: make(map[int]map[string]*overlayEntry),
		flushed: make(map[int]bool),
		touched: make(map[int]map[string]struct{}),
	}
}

func (v *StagingView) NumDatabases() int { return v.base.NumDatabases() }

func (v *StagingView) dbOverlay(db int) map[string]*overlayEntry {
	m, ok := v.overlay[db]
	if !ok {
		m = make(map[string]*overlayEntry)
		v.overlay[db] = m
	}
	return m
}

func (v *StagingView) markTouched(db int, key []byte) {
	m, ok := v.touched[db]
	if !ok {
		m = make(map[string]struct{})
		v.touched[db] = m
	}
	m[string(key)] = struct{}{}
}

func (v *StagingView) Get(db int, key []byte) (*store.Item, bool, error) {
	if e, ok := v.dbOverlay(db)[string(key)]; ok {
		if e.deleted {
			return nil, false, nil
		}
		return e.item, true, nil
	}
	if v.flushed[db] {
		return nil, false, nil
	}
	return v.base.Get(db, key)
}

func (v *StagingView) Set(db int, key []byte, item *store.Item, opts store.SetOptions) (*store.Item, bool, error) {
	cur, exists, err := v.Get(db, key)
	if err != nil {
		return nil, false, err
	}
	if opts.NX && exists {
		return cur, false, nil
	}
	if opts.XX && !exists {
		return nil, false, nil
	}
	next := item.Clone()
	if opts.KeepTTL && exists {
		next.Expire = cur.Expire
	} else if opts.HasExp {
		next.Expire = opts.ExpireAt
	}
	v.dbOverlay(db)[string(key)] = &overlayEntry{item: next}
	v.markTouched(db, key)
	return cur, true, nil
}

func (v *StagingView) Delete(db int, keys ...[]byte) (int, error) {
	n := 0
	for _, k := range keys {
		if _, exists, _ := v.Get(db, k); exists {
			n++
		}
		v.dbOverlay(db)[string(k)] = &overlayEntry{deleted: true}
		v.markTouched(db, k)
	}
	return n, nil
}

func (v *StagingView) Exists(db int, keys ...[]byte) (int, error) {
	n := 0
	for _, k := range keys {
		if _, exists, _ := v.Get(db, k); exists {
			n++
		}
	}
	return n, nil
}

func (v *StagingView) Expire(db int, key []byte, at time.Time, mode store.ExpireMode) (bool, error) {
	cur, exists, err := v.Get(db, key)
	if err != nil || !exists {
		return false, err
	}
	switch mode {
	case store.ExpireNX:
		if cur.HasTTL() {
			return false, nil
		}
	case store.ExpireXX:
		if !cur.HasTTL() {
			return false, nil
		}
	case store.ExpireGT:
		if cur.HasTTL() && !at.After(cur.Expire) {
			return false, nil
		}
	case store.ExpireLT:
		if cur.HasTTL() && !at.Before(cur.Expire) {
			return false, nil
		}
	}
	next := cur.Clone()
	next.Expire = at
	v.dbOverlay(db)[string(key)] = &overlayEntry{item: next}
	v.markTouched(db, key)
	return true, nil
}

func (v *StagingView) Persist(db int, key []byte) (bool, error) {
	cur, exists, err := v.Get(db, key)
	if err != nil || !exists || !cur.HasTTL() {
		return false, err
	}
	next := cur.Clone()
	next.Expire = time.Time{}
	v.dbOverlay(db)[string(key)] = &overlayEntry{item: next}
	v.markTouched(db, key)
	return true, nil
}

func (v *StagingView) TTL(db int, key []byte) (time.Duration, bool, error) {
	cur, exists, err := v.Get(db, key)
	if err != nil || !exists {
		return 0, false, err
	}
	if !cur.HasTTL() {
		return 0, true, nil
	}
	return time.Until(cur.Expire), true, nil
}

func (v *StagingView) Mutate(db int, key []byte, fn store.MutateFunc) (*store.Item, error) {
	cur, exists, err := v.Get(db, key)
	if err != nil {
		return nil, err
	}
	next, err := fn(cur, exists)
	if err != nil {
		return nil, err
	}
	if next == nil {
		v.dbOverlay(db)[string(key)] = &overlayEntry{deleted: true}
	} else {
		v.dbOverlay(db)[string(key)] = &overlayEntry{item: next}
	}
	v.markTouched(db, key)
	return next, nil
}

func (v *StagingView) Scan(db int, cursor uint64, match string, count int, typ string) (uint64, [][]byte, error) {
	keys, err := v.Keys(db, match)
	if err != nil {
		return 0, nil, err
	}
	return 0, keys, nil
}

func (v *StagingView) Keys(db int, match string) ([][]byte, error) {
	seen := make(map[string]struct{})
	var out [][]byte
	if !v.flushed[db] {
		base, err := v.base.Keys(db, "*")
		if err != nil {
			return nil, err
		}
		for _, k := range base {
			seen[string(k)] = struct{}{}
		}
	}
	for k, e := range v.dbOverlay(db) {
		if e.deleted {
			delete(seen, k)
			continue
		}
		seen[k] = struct{}{}
	}
	for k := range seen {
		out = append(out, []byte(k))
	}
	return matchKeys(out, match), nil
}

func (v *StagingView) WriteBatch(db int, ops []store.BatchOp) error {
	for _, op := range ops {
		if op.Delete {
			v.dbOverlay(db)[string(op.Key)] = &overlayEntry{deleted: true}
		} else {
			v.dbOverlay(db)[string(op.Key)] = &overlayEntry{item: op.Item}
		}
		v.markTouched(db, op.Key)
	}
	return nil
}

func (v *StagingView) FlushDB(db int) error {
	v.flushed[db] = true
	v.overlay[db] = make(map[string]*overlayEntry)
	return nil
}

func (v *StagingView) FlushAll() error {
	for db := 0; db < v.base.NumDatabases(); db++ {
		_ = v.FlushDB(db)
	}
	return nil
}

func (v *StagingView) DBSize(db int) (int, error) {
	keys, err := v.Keys(db, "*")
	return len(keys), err
}

func (v *StagingView) RandomKey(db int) ([]byte, bool, error) {
	keys, err := v.Keys(db, "*")
	if err != nil || len(keys) == 0 {
		return nil, false, err
	}
	return keys[0], true, nil
}

func (v *StagingView) KeyEpoch(db int, key []byte) (uint64, error) {
	return v.base.KeyEpoch(db, key)
}

// Notify and Wait are no-ops: blocking commands are excluded from
// scripts (command.FlagNoScript), and staged writes only become
// visible to other connections at Commit.
func (v *StagingView) Notify(db int, key []byte) {}

func (v *StagingView) Wait(ctx context.Context, db int, key []byte, timeout time.Duration) bool {
	return false
}

// Lock/Unlock/RLock/RUnlock are no-ops: a StagingView is private to one
// script execution that already runs under the base database's Lock
// for its whole duration (Dispatcher.Dispatch), so redis.call's nested
// dispatch through this view has no further section to take.
func (v *StagingView) Lock(db int)    {}
func (v *StagingView) Unlock(db int)  {}
func (v *StagingView) RLock(db int)   {}
func (v *StagingView) RUnlock(db int) {}

// Commit applies every staged write to the base database as one batch
// per touched database, then wakes blocking waiters. Flushed databases
// are cleared on the base first.
func (v *StagingView) Commit() error {
	for db, flushed := range v.flushed {
		if flushed {
			if err := v.base.FlushDB(db); err != nil {
				return err
			}
		}
	}
	for db, entries := range v.overlay {
		ops := make([]store.BatchOp, 0, len(entries))
		for key, e := range entries {
			if e.deleted {
				ops = append(ops, store.BatchOp{Key: []byte(key), Delete: true})
			} else {
				ops = append(ops, store.BatchOp{Key: []byte(key), Item: e.item})
			}
		}
		if len(ops) == 0 {
			continue
		}
		if err := v.base.WriteBatch(db, ops); err != nil {
			return err
		}
	}
	for db, keys := range v.touched {
		for key := range keys {
			v.base.Notify(db, []byte(key))
		}
	}
	return nil
}

// Discard drops every staged write without touching the base database.
func (v *StagingView) Discard() {
	v.overlay = make(map[int]map[string]*overlayEntry)
	v.flushed = make(map[int]bool)
	v.touched = make(map[int]map[string]struct{})
}

func matchKeys(keys [][]byte, pattern string) [][]byte {
	if pattern == "" || pattern == "*" {
		return keys
	}
	out := keys[:0:0]
	for _, k := range keys {
		if ok, _ := path.Match(pattern, string(k)); ok {
			out = append(out, k)
		}
	}
	return out
}
