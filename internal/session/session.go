/*
file: lucidkv/internal/session/session.go

Session is the per-connection state machine (spec.md §4.5), generalizing
the teacher's common.Client: one Client per connection, its state
touched only by the connection's own goroutine; the one mutex guards
the output writer (see WriteValue).
*/
package session

import (
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/lucidkv/lucidkv/internal/resp"
)

// State is the connection's place in the Fresh -> Authenticated ->
// Normal <-> Subscription lifecycle from spec.md §4.5.
type State int

const (
	StateFresh State = iota
	StateAuthenticated
	StateNormal
	StateSubscription
)

// TxState tracks MULTI queueing per spec.md §4.4.
type TxState int

const (
	TxOff TxState = iota
	TxQueueing
	TxDirty // a queueing-time syntax error poisoned this transaction
)

// QueuedCommand is one command parked during MULTI queueing.
type QueuedCommand struct {
	Args [][]byte
}

// Session holds everything the dispatcher and server need to know about
// one connection. Its state is owned by exactly one goroutine (the
// connection's read loop) -- the same single-owner discipline as the
// teacher's Client; mu serializes only writes to the outbox.
type Session struct {
	ID   string
	Conn net.Conn

	RespVersion int // 2 or 3, toggled by HELLO
	DB          int
	Authenticated bool
	Username      string

	State State

	Tx        TxState
	TxQueue   []QueuedCommand
	Watched   map[watchKey]uint64 // key -> epoch snapshotted at WATCH time

	Subscriptions  map[string]struct{} // channel name -> member
	PSubscriptions map[string]struct{} // pattern -> member

	Monitor bool

	// ClusterAsking is armed by a single ASKING command and consumed by
	// the very next command, per spec.md §4.6's IMPORTING state rules.
	ClusterAsking bool

	mu      sync.Mutex
	outbox  *resp.Writer
}

type watchKey struct {
	DB  int
	Key string
}

// New creates a fresh connection-scoped session defaulting to RESP2,
// database 0, unauthenticated, Normal state (callers that require auth
// should downgrade State to StateFresh themselves before serving).
func New(conn net.Conn, writer *resp.Writer) *Session {
	return &Session{
		ID:             uuid.NewString(),
		Conn:           conn,
		RespVersion:    2,
		DB:             0,
		State:          StateNormal,
		Watched:        make(map[watchKey]uint64),
		Subscriptions:  make(map[string]struct{}),
		PSubscriptions: make(map[string]struct{}),
		outbox:         writer,
	}
}

// WriteValue serializes v to the connection. It is safe to call from a
// background goroutine (pub/sub delivery, MONITOR fan-out) concurrently
// with the owning read loop's own replies, which is the one piece of
// shared state a Session exposes across goroutines.
func (s *Session) WriteValue(v resp.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.outbox.WriteValue(v); err != nil {
		return err
	}
	return s.outbox.Flush()
}

// Watch records key's current epoch for later comparison at EXEC.
func (s *Session) Watch(db int, key string, epoch uint64) {
	s.Watched[watchKey{DB: db, Key: key}] = epoch
}

// WatchEntry is one exported view of a watched (database, key, epoch) triple.
type WatchEntry struct {
	DB    int
	Key   string
	Epoch uint64
}

// Watches returns a snapshot of the current WATCH set.
func (s *Session) Watches() []WatchEntry {
	out := make([]WatchEntry, 0, len(s.Watched))
	for k, epoch := range s.Watched {
		out = append(out, WatchEntry{DB: k.DB, Key: k.Key, Epoch: epoch})
	}
	return out
}

// ClearWatch drops the WATCH set, called by UNWATCH, EXEC, DISCARD, and
// RESET.
func (s *Session) ClearWatch() {
	s.Watched = make(map[watchKey]uint64)
}

// QueueCommand appends a command to the pending MULTI queue.
func (s *Session) QueueCommand(args [][]byte) {
	cp := make([][]byte, len(args))
	copy(cp, args)
	s.TxQueue = append(s.TxQueue, QueuedCommand{Args: cp})
}

// ResetTx clears MULTI/WATCH state, called by EXEC, DISCARD, and RESET.
func (s *Session) ResetTx() {
	s.Tx = TxOff
	s.TxQueue = nil
	s.ClearWatch()
}

// Reset implements the RESET command: back to Normal, db 0, MULTI/WATCH
// cleared, subscriptions dropped, MONITOR disarmed. Authentication is
// intentionally left untouched -- RESET does not require re-AUTH.
func (s *Session) Reset() {
	s.State = StateNormal
	s.DB = 0
	s.ResetTx()
	s.Subscriptions = make(map[string]struct{})
	s.PSubscriptions = make(map[string]struct{})
	s.Monitor = false
	s.ClusterAsking = false
}

// InSubscriptionMode reports whether only pub/sub + control commands are
// permitted, per spec.md §4.5.
func (s *Session) InSubscriptionMode() bool {
	return s.State == StateSubscription
}

// HasSubscriptions reports whether the session has any active channel or
// pattern subscription, used to decide whether to leave Subscription
// state after an UNSUBSCRIBE.
func (s *Session) HasSubscriptions() bool {
	return len(s.Subscriptions) > 0 || len(s.PSubscriptions) > 0
}
