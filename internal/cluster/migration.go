/*
file: lucidkv/internal/cluster/migration.go

Migration coordinates one slot's move from a source group to a
destination group, per spec.md §4.6's four-step sequence: mark
MIGRATING/IMPORTING, stream keys with an atomic per-key move, commit
the new owner to the meta group, then clear the transitional flags.
KeyMover is the seam that does the actual data transfer -- in
production this rides the cluster bus (internal/cluster/bus) to the
destination group's leader; tests substitute an in-process fake.
*/
package cluster

import (
	"fmt"

	"github.com/lucidkv/lucidkv/internal/store"
)

// KeyMover transfers one slot's keys from the local store to a remote
// group and reports how many were moved.
type KeyMover interface {
	MoveSlot(db int, slot int, dstAddr string) (moved int, err error)
}

// MetaCommitter applies routing-table changes to the meta group's
// replicated log; in production this is raftgroup.Manager.Apply for
// group 0. Every step of a migration that must be visible to peer
// nodes -- entering MIGRATING/IMPORTING as well as the final ownership
// handoff -- goes through here rather than mutating a local *Router
// directly, so a node answering a client mid-migration has actually
// applied the same log entry the coordinator did.
type MetaCommitter interface {
	CommitBeginMigrate(slot int, dstAddr string) error
	CommitBeginImport(slot int, srcAddr string) error
	CommitSlotOwner(slot int, group int) error
}

type Migration struct {
	router   *Router
	mover    KeyMover
	meta     MetaCommitter
	numDBs   int
}

func NewMigration(router *Router, mover KeyMover, meta MetaCommitter, numDBs int) *Migration {
	return &Migration{router: router, mover: mover, meta: meta, numDBs: numDBs}
}

// Run drives one slot's migration to completion from the source side.
// dstGroup/dstAddr identify the destination group and its current
// leader.
func (m *Migration) Run(slot, dstGroup int, dstAddr string) error {
	// 1. Mark MIGRATING, replicated through the meta group so every
	// non-owning node's Router -- not just this coordinator's in-process
	// copy -- replies ASK for slot while its keys are still in flight.
	// This node still owns the slot and keeps answering it locally.
	if err := m.BeginMigrating(slot, dstAddr); err != nil {
		return fmt.Errorf("cluster: marking slot %d migrating: %w", slot, err)
	}

	// 2. Stream key batches, one store database at a time.
	for db := 0; db < m.numDBs; db++ {
		if _, err := m.mover.MoveSlot(db, slot, dstAddr); err != nil {
			return fmt.Errorf("cluster: migrating slot %d db %d: %w", slot, db, err)
		}
	}

	// 3. Commit ownership change to the meta group.
	if err := m.meta.CommitSlotOwner(slot, dstGroup); err != nil {
		return fmt.Errorf("cluster: committing slot %d owner: %w", slot, err)
	}

	// 4. Clear the transitional flag locally; remote nodes learn the
	// new owner via the meta group's replicated log reaching them.
	m.router.FinishMigration(slot, dstGroup)
	return nil
}

// BeginMigrating replicates the source-side half of entering the
// transitional state (spec.md §4.6 step 1) through the meta group,
// exposed separately from Run so an operator-facing admin command
// (CLUSTER SETSLOT ... MIGRATING) can drive it without streaming keys.
func (m *Migration) BeginMigrating(slot int, dstAddr string) error {
	return m.meta.CommitBeginMigrate(slot, dstAddr)
}

// BeginImporting replicates the destination-side half of entering the
// transitional state: a node accepting CLUSTER SETSLOT ... IMPORTING
// calls this so every node's Router learns to accept ASKING requests
// for slot from srcAddr ahead of the ownership handoff landing.
func (m *Migration) BeginImporting(slot int, srcAddr string) error {
	return m.meta.CommitBeginImport(slot, srcAddr)
}

// slotKeys filters the full key list for db down to those hashing to
// slot, the selection MoveSlot implementations use before handing keys
// to the bus transport.
func slotKeys(db store.Backend, dbIndex, slot int) ([][]byte, error) {
	all, err := db.Keys(dbIndex, "*")
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for _, k := range all {
		if KeySlot(k) == slot {
			out = append(out, k)
		}
	}
	return out, nil
}

// LocalKeyMover moves a slot's keys between two store.Backends living
// in the same process, used by single-process cluster tests and as a
// reference for the bus-backed transport (internal/cluster/bus), which
// does the same insert-then-delete sequence (copy to the destination,
// then delete from the source) over gRPC instead of a Go function call.
type LocalKeyMover struct {
	Source store.Backend
	Dest   store.Backend
}

func (m *LocalKeyMover) MoveSlot(db int, slot int, dstAddr string) (int, error) {
	keys, err := slotKeys(m.Source, db, slot)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, key := range keys {
		item, ok, err := m.Source.Get(db, key)
		if err != nil {
			return moved, err
		}
		if !ok {
			continue
		}
		if _, _, err := m.Dest.Set(db, key, item.Clone(), store.SetOptions{}); err != nil {
			return moved, err
		}
		if _, err := m.Source.Delete(db, key); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
