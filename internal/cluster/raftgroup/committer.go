/*
file: lucidkv/internal/cluster/raftgroup/committer.go

MetaCommitter adapts a Manager running the meta group (group 0) to
cluster.MetaCommitter, the seam cluster.Migration uses to make every
step of a slot's move -- entering MIGRATING/IMPORTING as well as the
final ownership handoff -- durable and visible to every node, not just
the coordinator's own in-process Router.
*/
package raftgroup

import "time"

const metaApplyTimeout = 5 * time.Second

// MetaCommitter submits routing-table changes to the meta group's
// replicated log.
type MetaCommitter struct {
	Meta *Manager
}

// CommitBeginMigrate replicates step (1) of the migration sequence:
// marking slot MIGRATING away to dstAddr, so a node other than the
// coordinator itself can answer ASK for keys already moved.
func (c *MetaCommitter) CommitBeginMigrate(slot int, dstAddr string) error {
	return c.Meta.Apply(OpBeginMigrate, migratePayload{Slot: slot, Addr: dstAddr}, metaApplyTimeout)
}

// CommitBeginImport replicates the destination-side half of the same
// sequence: marking slot IMPORTING from srcAddr, so an ASKING client
// reaching this node before the ownership handoff commits is accepted
// rather than bounced with MOVED.
func (c *MetaCommitter) CommitBeginImport(slot int, srcAddr string) error {
	return c.Meta.Apply(OpBeginImport, migratePayload{Slot: slot, Addr: srcAddr}, metaApplyTimeout)
}

func (c *MetaCommitter) CommitSlotOwner(slot int, group int) error {
	return c.Meta.Apply(OpFinishMove, finishMovePayload{Slot: slot, NewOwner: group}, metaApplyTimeout)
}

// AssignSlotRange seeds initial slot ownership for [start, end]
// inclusive, submitted once by the bootstrapping node of a fresh
// cluster so every node's Router starts from a real ownership table
// instead of Go's zero-valued "every slot belongs to group 0" default.
func (c *MetaCommitter) AssignSlotRange(start, end, group int) error {
	return c.Meta.Apply(OpAssignSlotRange, assignSlotRangePayload{Start: start, End: end, Group: group}, metaApplyTimeout)
}

// CommitSetGroup replicates a group's current leader address, so
// CLUSTER NODES/SLOTS can report real addresses instead of only the
// meta group's.
func (c *MetaCommitter) CommitSetGroup(group int, leaderAddr string) error {
	return c.Meta.Apply(OpSetGroup, setGroupPayload{Group: group, LeaderAddr: leaderAddr}, metaApplyTimeout)
}
