/*
file: lucidkv/internal/store/persistent.go

Persistent is the log-structured-backed Backend: it wraps
go.etcd.io/bbolt, the embedded engine spec.md §4.2 calls "an external
log-structured key-value library" consumed only through this adapter.
Each logical database gets its own top-level bucket; every write goes
through a single bolt.Tx, which is what gives write_batch its
all-or-nothing guarantee (spec.md §4.2 "Atomic batch": "on the
persistent backend the batch corresponds to a single log record").
*/
package store

import (
	"fmt"
	"math/rand"
	"path"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// SyncPolicy controls how aggressively the underlying bolt file is
// fsynced, mirroring spec.md §4.2's always/everysec/never knob.
type SyncPolicy int

const (
	SyncAlways SyncPolicy = iota
	SyncEverySecond
	SyncNever
)

type Persistent struct {
	db       *bolt.DB
	numDBs   int
	policy   SyncPolicy
	stopSync chan struct{}

	epochMu sync.Mutex
	epochs  []map[string]uint64
}

// OpenPersistent opens (creating if necessary) a bbolt file at path and
// prepares numDBs buckets.
func OpenPersistent(filePath string, numDBs int, policy SyncPolicy) (*Persistent, error) {
	opts := &bolt.Options{Timeout: 5 * time.Second}
	db, err := bolt.Open(filePath, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt file %s: %w", filePath, err)
	}
	db.NoSync = policy != SyncAlways

	p := &Persistent{db: db, numDBs: numDBs, policy: policy, epochs: make([]map[string]uint64, numDBs)}
	for i := range p.epochs {
		p.epochs[i] = make(map[string]uint64)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for i := 0; i < numDBs; i++ {
			if _, err := tx.CreateBucketIfNotExists(bucketName(i)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	if policy == SyncEverySecond {
		p.stopSync = make(chan struct{})
		go p.syncLoop()
	}
	return p, nil
}

func (p *Persistent) syncLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = p.db.Sync()
		case <-p.stopSync:
			return
		}
	}
}

func bucketName(db int) []byte { return []byte(fmt.Sprintf("db-%d", db)) }

func (p *Persistent) checkDB(dbIdx int) error {
	if dbIdx < 0 || dbIdx >= p.numDBs {
		return ErrDBOutOfRange
	}
	return nil
}

func (p *Persistent) NumDatabases() int { return p.numDBs }

func (p *Persistent) bumpEpoch(dbIdx int, key string) {
	p.epochMu.Lock()
	p.epochs[dbIdx][key]++
	p.epochMu.Unlock()
}

// KeyEpoch mirrors Memory.KeyEpoch for WATCH support.
func (p *Persistent) KeyEpoch(dbIdx int, key []byte) (uint64, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return 0, err
	}
	p.epochMu.Lock()
	defer p.epochMu.Unlock()
	return p.epochs[dbIdx][string(key)], nil
}

func (p *Persistent) getTx(tx *bolt.Tx, dbIdx int, key []byte, now time.Time) (*Item, bool, error) {
	b := tx.Bucket(bucketName(dbIdx))
	raw := b.Get(key)
	if raw == nil {
		return nil, false, nil
	}
	it, err := decodeItem(raw)
	if err != nil {
		return nil, false, fmt.Errorf("store: corrupt record for key %q: %w", key, err)
	}
	if it.ExpiredAt(now) {
		return nil, false, nil
	}
	return it, true, nil
}

func (p *Persistent) Get(dbIdx int, key []byte) (*Item, bool, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return nil, false, err
	}
	var item *Item
	var ok bool
	err := p.db.View(func(tx *bolt.Tx) error {
		var err error
		item, ok, err = p.getTx(tx, dbIdx, key, time.Now())
		return err
	})
	return item, ok, err
}

func (p *Persistent) Set(dbIdx int, key []byte, item *Item, opts SetOptions) (*Item, bool, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return nil, false, err
	}
	var prev *Item
	var applied bool
	err := p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(dbIdx))
		now := time.Now()
		existing, exists, err := p.getTx(tx, dbIdx, key, now)
		if err != nil {
			return err
		}
		prev = existing

		if opts.NX && exists {
			return nil
		}
		if opts.XX && !exists {
			return nil
		}
		if opts.KeepTTL && exists {
			item.Expire = existing.Expire
		} else if opts.HasExp {
			item.Expire = opts.ExpireAt
		}
		encoded, err := encodeItem(item)
		if err != nil {
			return err
		}
		if err := b.Put(key, encoded); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		p.bumpEpoch(dbIdx, string(key))
	}
	return prev, applied, nil
}

func (p *Persistent) Delete(dbIdx int, keys ...[]byte) (int, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return 0, err
	}
	count := 0
	err := p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(dbIdx))
		now := time.Now()
		for _, key := range keys {
			_, exists, err := p.getTx(tx, dbIdx, key, now)
			if err != nil {
				return err
			}
			if b.Get(key) != nil {
				if err := b.Delete(key); err != nil {
					return err
				}
				p.bumpEpoch(dbIdx, string(key))
			}
			if exists {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (p *Persistent) Exists(dbIdx int, keys ...[]byte) (int, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return 0, err
	}
	count := 0
	err := p.db.View(func(tx *bolt.Tx) error {
		now := time.Now()
		for _, key := range keys {
			_, ok, err := p.getTx(tx, dbIdx, key, now)
			if err != nil {
				return err
			}
			if ok {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (p *Persistent) Expire(dbIdx int, key []byte, at time.Time, mode ExpireMode) (bool, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return false, err
	}
	applied := false
	err := p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(dbIdx))
		it, ok, err := p.getTx(tx, dbIdx, key, time.Now())
		if err != nil || !ok {
			return err
		}
		switch mode {
		case ExpireNX:
			if it.HasTTL() {
				return nil
			}
		case ExpireXX:
			if !it.HasTTL() {
				return nil
			}
		case ExpireGT:
			if it.HasTTL() && !at.After(it.Expire) {
				return nil
			}
		case ExpireLT:
			if it.HasTTL() && !at.Before(it.Expire) {
				return nil
			}
		}
		it.Expire = at
		encoded, err := encodeItem(it)
		if err != nil {
			return err
		}
		applied = true
		return b.Put(key, encoded)
	})
	if applied {
		p.bumpEpoch(dbIdx, string(key))
	}
	return applied, err
}

func (p *Persistent) Persist(dbIdx int, key []byte) (bool, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return false, err
	}
	applied := false
	err := p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(dbIdx))
		it, ok, err := p.getTx(tx, dbIdx, key, time.Now())
		if err != nil || !ok || !it.HasTTL() {
			return err
		}
		it.Expire = time.Time{}
		encoded, err := encodeItem(it)
		if err != nil {
			return err
		}
		applied = true
		return b.Put(key, encoded)
	})
	if applied {
		p.bumpEpoch(dbIdx, string(key))
	}
	return applied, err
}

func (p *Persistent) TTL(dbIdx int, key []byte) (time.Duration, bool, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return 0, false, err
	}
	var d time.Duration
	var ok bool
	err := p.db.View(func(tx *bolt.Tx) error {
		it, exists, err := p.getTx(tx, dbIdx, key, time.Now())
		if err != nil || !exists {
			return err
		}
		ok = true
		if !it.HasTTL() {
			d = -1
			return nil
		}
		d = time.Until(it.Expire)
		return nil
	})
	return d, ok, err
}

func (p *Persistent) Mutate(dbIdx int, key []byte, fn MutateFunc) (*Item, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return nil, err
	}
	var result *Item
	err := p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(dbIdx))
		existing, exists, err := p.getTx(tx, dbIdx, key, time.Now())
		if err != nil {
			return err
		}
		next, err := fn(existing, exists)
		if err != nil {
			return err
		}
		if next == nil {
			if exists {
				if err := b.Delete(key); err != nil {
					return err
				}
			}
			return nil
		}
		encoded, err := encodeItem(next)
		if err != nil {
			return err
		}
		result = next
		return b.Put(key, encoded)
	})
	if err != nil {
		return nil, err
	}
	p.bumpEpoch(dbIdx, string(key))
	return result, nil
}

func (p *Persistent) WriteBatch(dbIdx int, ops []BatchOp) error {
	if err := p.checkDB(dbIdx); err != nil {
		return err
	}
	err := p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(dbIdx))
		for _, op := range ops {
			if op.Delete {
				if err := b.Delete(op.Key); err != nil {
					return err
				}
				continue
			}
			encoded, err := encodeItem(op.Item)
			if err != nil {
				return err
			}
			if err := b.Put(op.Key, encoded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, op := range ops {
		p.bumpEpoch(dbIdx, string(op.Key))
	}
	return nil
}

func (p *Persistent) IterateExpired(dbIdx int, now time.Time, limit int) ([][]byte, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return nil, err
	}
	var out [][]byte
	err := p.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName(dbIdx)).Cursor()
		sampled := 0
		for k, v := c.First(); k != nil && sampled < limit; k, v = c.Next() {
			sampled++
			it, err := decodeItem(v)
			if err != nil {
				continue
			}
			if it.ExpiredAt(now) {
				out = append(out, append([]byte(nil), k...))
			}
		}
		return nil
	})
	return out, err
}

func (p *Persistent) FlushDB(dbIdx int) error {
	if err := p.checkDB(dbIdx); err != nil {
		return err
	}
	return p.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketName(dbIdx)); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketName(dbIdx))
		return err
	})
}

func (p *Persistent) FlushAll() error {
	for i := 0; i < p.numDBs; i++ {
		if err := p.FlushDB(i); err != nil {
			return err
		}
	}
	return nil
}

func (p *Persistent) DBSize(dbIdx int) (int, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return 0, err
	}
	count := 0
	err := p.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName(dbIdx)).ForEach(func(k, v []byte) error {
			count++
			return nil
		})
	})
	return count, err
}

func (p *Persistent) RandomKey(dbIdx int) ([]byte, bool, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return nil, false, err
	}
	var keys [][]byte
	err := p.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName(dbIdx)).ForEach(func(k, v []byte) error {
			keys = append(keys, append([]byte(nil), k...))
			return nil
		})
	})
	if err != nil || len(keys) == 0 {
		return nil, false, err
	}
	return keys[rand.Intn(len(keys))], true, nil
}

func (p *Persistent) Keys(dbIdx int, match string) ([][]byte, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return nil, err
	}
	var out [][]byte
	now := time.Now()
	err := p.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName(dbIdx)).ForEach(func(k, v []byte) error {
			it, err := decodeItem(v)
			if err != nil || it.ExpiredAt(now) {
				return nil
			}
			if match == "" || match == "*" {
				out = append(out, append([]byte(nil), k...))
				return nil
			}
			if ok, _ := path.Match(match, string(k)); ok {
				out = append(out, append([]byte(nil), k...))
			}
			return nil
		})
	})
	return out, err
}

func (p *Persistent) Scan(dbIdx int, cursor uint64, match string, count int, typ string) (uint64, [][]byte, error) {
	if err := p.checkDB(dbIdx); err != nil {
		return 0, nil, err
	}
	var keys []hashedKey
	now := time.Now()
	err := p.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName(dbIdx)).ForEach(func(k, v []byte) error {
			it, err := decodeItem(v)
			if err != nil || it.ExpiredAt(now) {
				return nil
			}
			if typ != "" && it.Kind.String() != typ {
				return nil
			}
			keys = append(keys, hashedKey{hash: keyHash(string(k)), key: string(k)})
			return nil
		})
	})
	if err != nil {
		return 0, nil, err
	}
	next, matched := scanSlice(keys, cursor, match, count)
	out := make([][]byte, len(matched))
	for i, k := range matched {
		out[i] = []byte(k)
	}
	return next, out, nil
}

func (p *Persistent) Close() error {
	if p.stopSync != nil {
		close(p.stopSync)
	}
	return p.db.Close()
}
