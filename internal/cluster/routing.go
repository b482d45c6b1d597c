/*
file: lucidkv/internal/cluster/routing.go

Router holds the process's view of the 16384-slot routing table and
implements command.ClusterRouter (spec.md §4.6), generalizing the
dispatcher's step-4 slot check against a real ownership/migration
model instead of a no-op. The table itself is a projection of the meta
group's replicated state (raftgroup.MetaFSM) kept up to date by
whichever component applies meta-group log entries; Router only reads
it under RLock.
*/
package cluster

import (
	"sync"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/session"
)

// SlotState is the per-slot migration FSM state from spec.md §4.6's
// table.
type SlotState int

const (
	Stable SlotState = iota
	Migrating // source: every key is answered locally (see Route); non-owning nodes reply ASK to dst
	Importing // destination: only accepted after ASKING, else MOVED back to src
)

// GroupInfo is the routing table's view of one consensus group: which
// node currently leads it and where to reach that node.
type GroupInfo struct {
	ID         int
	LeaderAddr string
}

type migrationEntry struct {
	state SlotState
	peer  string // dst addr if Migrating, src addr if Importing
}

// Router is the process-wide, concurrency-safe routing table.
type Router struct {
	mu          sync.RWMutex
	localGroup  int
	groups      map[int]GroupInfo
	slotGroup   [SlotCount]int
	migrations  map[int]migrationEntry
}

func NewRouter(localGroup int) *Router {
	return &Router{
		localGroup: localGroup,
		groups:     make(map[int]GroupInfo),
		migrations: make(map[int]migrationEntry),
	}
}

// SetGroup records (or updates) a group's current leader address.
func (r *Router) SetGroup(info GroupInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[info.ID] = info
}

// AssignSlot sets which group owns slot, clearing any migration state.
func (r *Router) AssignSlot(slot, group int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slotGroup[slot] = group
	delete(r.migrations, slot)
}

// BeginMigration marks slot as MIGRATING away from the local group to
// dstAddr (called on the source) -- step (1) of spec.md §4.6's
// migration sequence.
func (r *Router) BeginMigration(slot int, dstAddr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.migrations[slot] = migrationEntry{state: Migrating, peer: dstAddr}
}

// BeginImport marks slot as IMPORTING from srcAddr (called on the
// destination).
func (r *Router) BeginImport(slot int, srcAddr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.migrations[slot] = migrationEntry{state: Importing, peer: srcAddr}
}

// FinishMigration clears a slot's transitional state and commits its
// new owner, step (3)-(4) of the migration sequence.
func (r *Router) FinishMigration(slot, newOwnerGroup int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slotGroup[slot] = newOwnerGroup
	delete(r.migrations, slot)
}

func (r *Router) slotState(slot int) (SlotState, string) {
	if e, ok := r.migrations[slot]; ok {
		return e.state, e.peer
	}
	return Stable, ""
}

// SlotOwner returns the group that currently owns slot.
func (r *Router) SlotOwner(slot int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slotGroup[slot]
}

// MigrationState returns slot's migration state and peer address.
func (r *Router) MigrationState(slot int) (SlotState, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slotState(slot)
}

// GroupLeader returns the known leader address for group, if any.
func (r *Router) GroupLeader(group int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[group]
	return g.LeaderAddr, ok
}

// Route implements command.ClusterRouter. Keys spanning more than one
// slot are rejected with CROSSSLOT; a single slot is then checked
// against ownership and migration state per spec.md §4.6's table.
//
// Simplification: a MIGRATING source always answers locally rather than
// distinguishing "key already moved, ASK the destination" from "key
// still here" -- doing so would require threading slot state into every
// storage Get, not just the routing pre-check. Recorded as an accepted
// limitation in DESIGN.md; it affects only keys mid-migration, not
// steady-state routing.
func (r *Router) Route(s *session.Session, keys [][]byte) (resp.Value, bool) {
	if len(keys) == 0 {
		return resp.Value{}, false
	}
	slot := KeySlot(keys[0])
	for _, k := range keys[1:] {
		if KeySlot(k) != slot {
			return resp.Error("CROSSSLOT Keys in request don't hash to the same slot"), true
		}
	}

	r.mu.RLock()
	owner := r.slotGroup[slot]
	state, peer := r.slotState(slot)
	r.mu.RUnlock()

	asking := s.ClusterAsking
	s.ClusterAsking = false

	if owner == r.localGroup {
		if state == Importing && !asking {
			return resp.Errorf("MOVED %d %s", slot, peer), true
		}
		return resp.Value{}, false
	}

	// Not locally owned.
	if state == Migrating && peer != "" {
		return resp.Errorf("ASK %d %s", slot, peer), true
	}
	addr, _ := r.GroupLeader(owner)
	return resp.Errorf("MOVED %d %s", slot, addr), true
}
