/*
file: lucidkv/internal/store/memory.go

In-memory Backend: one concurrent map per logical database, guarded by
a per-database RWMutex (spec.md §4.2's "implementor's choice" on write
granularity -- per-database here, matching the teacher's single
Database.Mu and keeping batch/transaction atomicity trivial to reason
about).
*/
package store

import (
	"math/rand"
	"path"
	"sync"
	"time"
)

// Memory is the in-memory Backend implementation.
type Memory struct {
	dbs []*guardedDB
}

// NewMemory allocates n independent logical databases.
func NewMemory(n int) *Memory {
	m := &Memory{dbs: make([]*guardedDB, n)}
	for i := range m.dbs {
		m.dbs[i] = newGuardedDB()
	}
	return m
}

func (m *Memory) NumDatabases() int { return len(m.dbs) }

func (m *Memory) db(i int) (*guardedDB, error) {
	if i < 0 || i >= len(m.dbs) {
		return nil, ErrDBOutOfRange
	}
	return m.dbs[i], nil
}

func (m *Memory) Get(dbIdx int, key []byte) (*Item, bool, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return nil, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getLocked(string(key), time.Now())
}

func (m *Memory) Set(dbIdx int, key []byte, item *Item, opts SetOptions) (*Item, bool, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return nil, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	k := string(key)
	prev, exists := d.getLocked(k, time.Now())

	if opts.NX && exists {
		return prev, false, nil
	}
	if opts.XX && !exists {
		return nil, false, nil
	}

	if opts.KeepTTL && exists {
		item.Expire = prev.Expire
	} else if opts.HasExp {
		item.Expire = opts.ExpireAt
	}

	d.items[k] = item
	d.bumpEpoch(k)
	return prev, true, nil
}

func (m *Memory) Delete(dbIdx int, keys ...[]byte) (int, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	count := 0
	for _, key := range keys {
		k := string(key)
		if it, ok := d.items[k]; ok && !it.ExpiredAt(now) {
			delete(d.items, k)
			d.bumpEpoch(k)
			count++
		} else if ok {
			delete(d.items, k)
		}
	}
	return count, nil
}

func (m *Memory) Exists(dbIdx int, keys ...[]byte) (int, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	count := 0
	for _, key := range keys {
		if _, ok := d.getLocked(string(key), now); ok {
			count++
		}
	}
	return count, nil
}

func (m *Memory) Expire(dbIdx int, key []byte, at time.Time, mode ExpireMode) (bool, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	k := string(key)
	it, ok := d.getLocked(k, time.Now())
	if !ok {
		return false, nil
	}
	switch mode {
	case ExpireNX:
		if it.HasTTL() {
			return false, nil
		}
	case ExpireXX:
		if !it.HasTTL() {
			return false, nil
		}
	case ExpireGT:
		if it.HasTTL() && !at.After(it.Expire) {
			return false, nil
		}
	case ExpireLT:
		if it.HasTTL() && !at.Before(it.Expire) {
			return false, nil
		}
	}
	it.Expire = at
	d.bumpEpoch(k)
	return true, nil
}

func (m *Memory) Persist(dbIdx int, key []byte) (bool, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	k := string(key)
	it, ok := d.getLocked(k, time.Now())
	if !ok || !it.HasTTL() {
		return false, nil
	}
	it.Expire = time.Time{}
	d.bumpEpoch(k)
	return true, nil
}

func (m *Memory) TTL(dbIdx int, key []byte) (time.Duration, bool, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return 0, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	it, ok := d.getLocked(string(key), time.Now())
	if !ok {
		return 0, false, nil
	}
	if !it.HasTTL() {
		return -1, true, nil
	}
	return time.Until(it.Expire), true, nil
}

func (m *Memory) Mutate(dbIdx int, key []byte, fn MutateFunc) (*Item, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	k := string(key)
	existing, ok := d.getLocked(k, time.Now())
	next, err := fn(existing, ok)
	if err != nil {
		return nil, err
	}
	if next == nil {
		if ok {
			delete(d.items, k)
			d.bumpEpoch(k)
		}
		return nil, nil
	}
	d.items[k] = next
	d.bumpEpoch(k)
	return next, nil
}

func (m *Memory) WriteBatch(dbIdx int, ops []BatchOp) error {
	d, err := m.db(dbIdx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, op := range ops {
		k := string(op.Key)
		if op.Delete {
			if _, ok := d.items[k]; ok {
				delete(d.items, k)
				d.bumpEpoch(k)
			}
			continue
		}
		d.items[k] = op.Item
		d.bumpEpoch(k)
	}
	return nil
}

func (m *Memory) IterateExpired(dbIdx int, now time.Time, limit int) ([][]byte, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out [][]byte
	sampled := 0
	for k, it := range d.items {
		if sampled >= limit {
			break
		}
		sampled++
		if it.ExpiredAt(now) {
			out = append(out, []byte(k))
		}
	}
	return out, nil
}

func (m *Memory) FlushDB(dbIdx int) error {
	d, err := m.db(dbIdx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = make(map[string]*Item)
	d.epoch = make(map[string]uint64)
	return nil
}

func (m *Memory) FlushAll() error {
	for i := range m.dbs {
		if err := m.FlushDB(i); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) DBSize(dbIdx int) (int, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return 0, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items), nil
}

func (m *Memory) RandomKey(dbIdx int) ([]byte, bool, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return nil, false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.items) == 0 {
		return nil, false, nil
	}
	n := rand.Intn(len(d.items))
	i := 0
	for k := range d.items {
		if i == n {
			return []byte(k), true, nil
		}
		i++
	}
	return nil, false, nil
}

func (m *Memory) Keys(dbIdx int, match string) ([][]byte, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	now := time.Now()
	var out [][]byte
	for k, it := range d.items {
		if it.ExpiredAt(now) {
			continue
		}
		if match == "" || match == "*" {
			out = append(out, []byte(k))
			continue
		}
		if ok, _ := path.Match(match, k); ok {
			out = append(out, []byte(k))
		}
	}
	return out, nil
}

func (m *Memory) Scan(dbIdx int, cursor uint64, match string, count int, typ string) (uint64, [][]byte, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return 0, nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return scanGuardedDB(d, cursor, match, count, typ)
}

func (m *Memory) Close() error { return nil }

// KeyEpoch returns the key's modification counter, used to implement
// WATCH. Persistent.KeyEpoch keeps the same kind of in-memory counter,
// bumped on each write through that backend.
func (m *Memory) KeyEpoch(dbIdx int, key []byte) (uint64, error) {
	d, err := m.db(dbIdx)
	if err != nil {
		return 0, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.epoch[string(key)], nil
}

// guardedDB is one logical database's in-memory state.
type guardedDB struct {
	mu    sync.RWMutex
	items map[string]*Item
	epoch map[string]uint64 // modification epoch, used by WATCH (see internal/txn)
}

func newGuardedDB() *guardedDB {
	return &guardedDB{items: make(map[string]*Item), epoch: make(map[string]uint64)}
}

func (d *guardedDB) getLocked(key string, now time.Time) (*Item, bool) {
	it, ok := d.items[key]
	if !ok {
		return nil, false
	}
	if it.ExpiredAt(now) {
		delete(d.items, key)
		d.bumpEpoch(key)
		return nil, false
	}
	return it, true
}

func (d *guardedDB) bumpEpoch(key string) { d.epoch[key]++ }

// Epoch returns the current modification counter for key, used by
// WATCH to detect concurrent writes (internal/txn).
func (d *guardedDB) Epoch(key string) uint64 { return d.epoch[key] }
