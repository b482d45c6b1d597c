package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkv/lucidkv/internal/store"
)

// fakeMetaCommitter stands in for a raftgroup.MetaCommitter wrapping a
// real raft.Manager: in production, committing an op to the meta
// group's log eventually applies it to every node's MetaFSM, including
// the coordinator's own Router, so this fake mutates the same router
// the coordinator reads, just as that round trip would.
type fakeMetaCommitter struct {
	router   *Router
	slot     int
	newOwner int
	called   bool
	beganMigrate bool
	beganImport  bool
}

func (f *fakeMetaCommitter) CommitBeginMigrate(slot int, dstAddr string) error {
	f.beganMigrate = true
	f.router.BeginMigration(slot, dstAddr)
	return nil
}

func (f *fakeMetaCommitter) CommitBeginImport(slot int, srcAddr string) error {
	f.beganImport = true
	f.router.BeginImport(slot, srcAddr)
	return nil
}

func (f *fakeMetaCommitter) CommitSlotOwner(slot, group int) error {
	f.slot, f.newOwner, f.called = slot, group, true
	return nil
}

func seedKey(t *testing.T, backend store.Backend, db int, key string) {
	t.Helper()
	_, _, err := backend.Set(db, []byte(key), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)
}

func TestMigrationRunMovesKeysAndCommitsOwner(t *testing.T) {
	src := store.NewMemory(1)
	dst := store.NewMemory(1)

	key := []byte("{tag}alpha")
	slot := KeySlot(key)
	seedKey(t, src, 0, string(key))

	router := NewRouter(0)
	router.AssignSlot(slot, 0)
	mover := &LocalKeyMover{Source: src, Dest: dst}
	meta := &fakeMetaCommitter{router: router}

	mig := NewMigration(router, mover, meta, 1)
	err := mig.Run(slot, 1, "10.0.0.2:6379")
	require.NoError(t, err)

	assert.True(t, meta.beganMigrate, "Run must replicate MIGRATING through the meta committer, not just mutate the local Router")
	assert.True(t, meta.called)
	assert.Equal(t, slot, meta.slot)
	assert.Equal(t, 1, meta.newOwner)

	_, ok, err := dst.Get(0, key)
	require.NoError(t, err)
	assert.True(t, ok, "key should have been copied to the destination")

	_, ok, err = src.Get(0, key)
	require.NoError(t, err)
	assert.False(t, ok, "key should have been removed from the source")

	state, _ := router.slotState(slot)
	assert.Equal(t, Stable, state)
	assert.Equal(t, 1, router.slotGroup[slot])
}

func TestMigrationBeginImportingRepliesThroughMetaCommitter(t *testing.T) {
	router := NewRouter(1)
	meta := &fakeMetaCommitter{router: router}
	mig := NewMigration(router, nil, meta, 1)

	err := mig.BeginImporting(42, "10.0.0.1:6379")
	require.NoError(t, err)

	assert.True(t, meta.beganImport)
	state, peer := router.slotState(42)
	assert.Equal(t, Importing, state)
	assert.Equal(t, "10.0.0.1:6379", peer)
}

func TestLocalKeyMoverOnlyMovesKeysInTargetSlot(t *testing.T) {
	src := store.NewMemory(1)
	dst := store.NewMemory(1)

	inSlot := []byte("{tag}alpha")
	slot := KeySlot(inSlot)
	var outSlot []byte
	for _, candidate := range [][]byte{[]byte("other"), []byte("another"), []byte("zzz")} {
		if KeySlot(candidate) != slot {
			outSlot = candidate
			break
		}
	}
	require.NotNil(t, outSlot)

	seedKey(t, src, 0, string(inSlot))
	seedKey(t, src, 0, string(outSlot))

	mover := &LocalKeyMover{Source: src, Dest: dst}
	moved, err := mover.MoveSlot(0, slot, "unused")
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	_, ok, _ := dst.Get(0, inSlot)
	assert.True(t, ok)
	_, ok, _ = dst.Get(0, outSlot)
	assert.False(t, ok, "key outside the target slot must stay on the source")
}
