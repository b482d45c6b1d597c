/*
file: lucidkv/internal/command/executor.go

Store, PubSub and Server are the three seams handlers are written
against instead of concrete types, per spec.md §9's "handlers are
written against the storage interface, not the backend". *store.Database
and the script staging view (internal/txn) both satisfy Store, which is
what lets redis.call() inside a script reuse these handlers unchanged.
*/
package command

import (
	"context"
	"time"

	"github.com/lucidkv/lucidkv/internal/session"
	"github.com/lucidkv/lucidkv/internal/store"
)

// Store is the storage surface every handler executes against.
type Store interface {
	NumDatabases() int

	Get(db int, key []byte) (*store.Item, bool, error)
	Set(db int, key []byte, item *store.Item, opts store.SetOptions) (prev *store.Item, applied bool, err error)
	Delete(db int, keys ...[]byte) (int, error)
	Exists(db int, keys ...[]byte) (int, error)
	Expire(db int, key []byte, at time.Time, mode store.ExpireMode) (bool, error)
	Persist(db int, key []byte) (bool, error)
	TTL(db int, key []byte) (time.Duration, bool, error)
	Mutate(db int, key []byte, fn store.MutateFunc) (*store.Item, error)
	Scan(db int, cursor uint64, match string, count int, typ string) (uint64, [][]byte, error)
	Keys(db int, match string) ([][]byte, error)
	WriteBatch(db int, ops []store.BatchOp) error
	FlushDB(db int) error
	FlushAll() error
	DBSize(db int) (int, error)
	RandomKey(db int) ([]byte, bool, error)
	KeyEpoch(db int, key []byte) (uint64, error)

	// Notify wakes blocking-command waiters parked on (db, key).
	Notify(db int, key []byte)
	// Wait parks the caller until (db, key) is notified, ctx is
	// cancelled, or timeout elapses.
	Wait(ctx context.Context, db int, key []byte, timeout time.Duration) bool

	// Lock/Unlock and RLock/RUnlock give the dispatcher a real
	// per-database exclusive section: Dispatch takes Lock for write
	// commands (including EXEC and EVAL/EVALSHA, which hold it for
	// their whole queued batch or script run) and RLock for read-only
	// ones, rather than relying solely on a backend's own per-call
	// locking.
	Lock(db int)
	Unlock(db int)
	RLock(db int)
	RUnlock(db int)
}

// PubSub is the publish/subscribe surface (spec.md §4.5).
type PubSub interface {
	Subscribe(s *session.Session, channel string)
	Unsubscribe(s *session.Session, channel string)
	PSubscribe(s *session.Session, pattern string)
	PUnsubscribe(s *session.Session, pattern string)
	UnsubscribeAll(s *session.Session)
	Publish(channel string, message []byte) int
}

// Server is the narrow slice of process-wide state a handler
// occasionally needs (INFO, CONFIG, CLUSTER, AUTH) without depending on
// the whole internal/server package.
type Server interface {
	RequirePass() string
	StartTime() time.Time
	ClusterEnabled() bool
}
