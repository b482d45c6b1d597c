/*
file: lucidkv/internal/store/database.go

Database composes a Backend with the behaviour spec.md §4.2 attributes
to the engine as a whole rather than to any one backend: an active
expiration sweep that reclaims TTL'd keys nobody has touched lazily,
and a key-notification registry that lets BLPOP/BRPOP
park a goroutine until a key they care about is written instead of
polling it.
*/
package store

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucidkv/lucidkv/internal/metrics"
)

const (
	sweepInterval   = 100 * time.Millisecond
	sweepSampleSize = 20
)

// Database is the engine-level façade the command dispatcher is built
// against: a Backend plus the cross-cutting behaviour (active
// expiration, blocking-command wakeups) that does not belong to any
// one backend implementation.
type Database struct {
	Backend

	log zerolog.Logger

	// dbLocks is the per-database exclusive section EXEC and scripts
	// hold for their whole queued batch or run, one *sync.RWMutex per
	// logical database so an in-flight transaction or script on db 3
	// never blocks ordinary traffic on db 0. Backend implementations
	// keep their own finer-grained locking underneath (e.g. Memory's
	// per-database guardedDB.mu) for single-call atomicity; this is the
	// layer above that, serializing whole command batches.
	dbLocks []sync.RWMutex

	waitersMu sync.Mutex
	waiters   map[int]map[string][]chan struct{}

	stop chan struct{}
	done chan struct{}
}

// NewDatabase wraps backend with active expiration and blocking-key
// notification. Call Close to stop the sweep goroutine before closing
// the backend itself.
func NewDatabase(backend Backend, log zerolog.Logger) *Database {
	d := &Database{
		Backend: backend,
		log:     log.With().Str("component", "store").Logger(),
		dbLocks: make([]sync.RWMutex, backend.NumDatabases()),
		waiters: make(map[int]map[string][]chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.sweepLoop()
	return d
}

// Lock takes db's exclusive section: no other command may read or
// write db while held. The dispatcher takes this once per write
// command, and holds it for the whole queued batch of an EXEC or the
// whole run of a script, so neither can be interleaved by a command
// arriving on another connection.
func (d *Database) Lock(db int) {
	if db < 0 || db >= len(d.dbLocks) {
		return
	}
	d.dbLocks[db].Lock()
}

func (d *Database) Unlock(db int) {
	if db < 0 || db >= len(d.dbLocks) {
		return
	}
	d.dbLocks[db].Unlock()
}

// RLock/RUnlock let read-only commands run concurrently with each
// other while still being excluded by a write command, an EXEC batch,
// or a script run holding the same database's Lock.
func (d *Database) RLock(db int) {
	if db < 0 || db >= len(d.dbLocks) {
		return
	}
	d.dbLocks[db].RLock()
}

func (d *Database) RUnlock(db int) {
	if db < 0 || db >= len(d.dbLocks) {
		return
	}
	d.dbLocks[db].RUnlock()
}

// sweepLoop implements the "probabilistic active expiration" cycle
// described in spec.md §4.2: each tick, sample a handful of keys per
// database and delete whichever have expired, same shape as Redis's
// own activeExpireCycle but without the adaptive sleep-budget.
func (d *Database) sweepLoop() {
	defer close(d.done)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.sweepOnce()
		}
	}
}

func (d *Database) sweepOnce() {
	for i := 0; i < d.Backend.NumDatabases(); i++ {
		expired, err := d.Backend.IterateExpired(i, time.Now(), sweepSampleSize)
		if err != nil {
			d.log.Warn().Err(err).Int("db", i).Msg("active expiration sample failed")
			continue
		}
		if len(expired) == 0 {
			continue
		}
		if _, err := d.Backend.Delete(i, expired...); err != nil {
			d.log.Warn().Err(err).Int("db", i).Msg("active expiration delete failed")
			continue
		}
		metrics.ExpiredKeys.Add(float64(len(expired)))
		for _, key := range expired {
			d.Notify(i, key)
		}
	}
}

// Get shadows Backend.Get to track keyspace hit/miss metrics at the one
// choke point every read-style command passes through.
func (d *Database) Get(db int, key []byte) (*Item, bool, error) {
	item, ok, err := d.Backend.Get(db, key)
	if err == nil {
		if ok {
			metrics.KeyspaceHits.Inc()
		} else {
			metrics.KeyspaceMisses.Inc()
		}
	}
	return item, ok, err
}

// Close stops the sweep goroutine. It does not close the underlying
// Backend; callers own that lifecycle separately.
func (d *Database) Close() error {
	close(d.stop)
	<-d.done
	return nil
}

// Notify wakes every goroutine currently parked in Wait for (db, key).
// Call it after any write that could satisfy a blocking pop.
func (d *Database) Notify(db int, key []byte) {
	k := string(key)
	d.waitersMu.Lock()
	chans := d.waiters[db][k]
	delete(d.waiters[db], k)
	d.waitersMu.Unlock()
	for _, ch := range chans {
		close(ch)
	}
}

// Wait blocks until key is notified, ctx is cancelled, or timeout
// elapses (timeout<=0 means wait forever). It returns true if woken by
// a notification, false on timeout/cancellation -- the caller is
// expected to re-check the key itself, since a notification is only a
// hint that something changed, not a guarantee the blocking command's
// precondition now holds.
func (d *Database) Wait(ctx context.Context, db int, key []byte, timeout time.Duration) bool {
	k := string(key)
	ch := make(chan struct{})

	d.waitersMu.Lock()
	if d.waiters[db] == nil {
		d.waiters[db] = make(map[string][]chan struct{})
	}
	d.waiters[db][k] = append(d.waiters[db][k], ch)
	d.waitersMu.Unlock()

	var timer *time.Timer
	var timerC <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		timerC = timer.C
		defer timer.Stop()
	}

	select {
	case <-ch:
		return true
	case <-ctx.Done():
		d.removeWaiter(db, k, ch)
		return false
	case <-timerC:
		d.removeWaiter(db, k, ch)
		return false
	}
}

func (d *Database) removeWaiter(db int, key string, target chan struct{}) {
	d.waitersMu.Lock()
	defer d.waitersMu.Unlock()
	list := d.waiters[db][key]
	for i, ch := range list {
		if ch == target {
			d.waiters[db][key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(d.waiters[db][key]) == 0 {
		delete(d.waiters[db], key)
	}
}

// RandomKeyAmong returns a bounded, shuffled sample of keys (all of
// them, shuffled, when n >= len(keys)). No command calls it.
func RandomKeyAmong(keys [][]byte, n int) [][]byte {
	if n >= len(keys) {
		shuffled := append([][]byte(nil), keys...)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		return shuffled
	}
	idx := rand.Perm(len(keys))[:n]
	out := make([][]byte, n)
	for i, j := range idx {
		out[i] = keys[j]
	}
	return out
}
