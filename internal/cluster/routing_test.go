package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/session"
)

func TestRouteLocalSlotPassesThrough(t *testing.T) {
	r := NewRouter(0)
	key := []byte("foo")
	r.AssignSlot(KeySlot(key), 0)

	s := &session.Session{}
	reply, blocked := r.Route(s, [][]byte{key})
	assert.False(t, blocked)
	assert.Equal(t, resp.Value{}, reply)
}

func TestRouteRemoteSlotReturnsMoved(t *testing.T) {
	r := NewRouter(0)
	key := []byte("foo")
	slot := KeySlot(key)
	r.AssignSlot(slot, 1)
	r.SetGroup(GroupInfo{ID: 1, LeaderAddr: "10.0.0.2:6379"})

	s := &session.Session{}
	reply, blocked := r.Route(s, [][]byte{key})
	require.True(t, blocked)
	assert.Contains(t, reply.Str, "MOVED")
	assert.Contains(t, reply.Str, "10.0.0.2:6379")
}

func TestRouteCrossSlotRejected(t *testing.T) {
	r := NewRouter(0)
	keyA := []byte("foo")
	keyB := []byte("bar")
	// Deliberately pick two keys that land on different slots.
	require.NotEqual(t, KeySlot(keyA), KeySlot(keyB))
	r.AssignSlot(KeySlot(keyA), 0)
	r.AssignSlot(KeySlot(keyB), 0)

	s := &session.Session{}
	reply, blocked := r.Route(s, [][]byte{keyA, keyB})
	require.True(t, blocked)
	assert.Contains(t, reply.Str, "CROSSSLOT")
}

func TestRouteMigratingSourceAnswersLocally(t *testing.T) {
	r := NewRouter(0)
	key := []byte("foo")
	slot := KeySlot(key)
	r.AssignSlot(slot, 0)
	r.BeginMigration(slot, "10.0.0.2:6379")

	s := &session.Session{}
	reply, blocked := r.Route(s, [][]byte{key})
	assert.False(t, blocked, "MIGRATING source still answers locally per the documented simplification")
	assert.Equal(t, resp.Value{}, reply)
}

func TestRouteImportingWithoutAskingRedirectsBack(t *testing.T) {
	r := NewRouter(0)
	key := []byte("foo")
	slot := KeySlot(key)
	r.AssignSlot(slot, 0)
	r.BeginImport(slot, "10.0.0.2:6379")

	s := &session.Session{}
	reply, blocked := r.Route(s, [][]byte{key})
	require.True(t, blocked)
	assert.Contains(t, reply.Str, "MOVED")
}

func TestRouteImportingWithAskingServesLocally(t *testing.T) {
	r := NewRouter(0)
	key := []byte("foo")
	slot := KeySlot(key)
	r.AssignSlot(slot, 0)
	r.BeginImport(slot, "10.0.0.2:6379")

	s := &session.Session{ClusterAsking: true}
	reply, blocked := r.Route(s, [][]byte{key})
	assert.False(t, blocked)
	assert.Equal(t, resp.Value{}, reply)
	assert.False(t, s.ClusterAsking, "ASKING is consumed by the very next command")
}

func TestRouteAskingTargetsDestination(t *testing.T) {
	r := NewRouter(0)
	key := []byte("foo")
	slot := KeySlot(key)
	r.AssignSlot(slot, 1)
	r.BeginMigration(slot, "10.0.0.3:6379")

	s := &session.Session{}
	reply, blocked := r.Route(s, [][]byte{key})
	require.True(t, blocked)
	assert.Contains(t, reply.Str, "ASK")
	assert.Contains(t, reply.Str, "10.0.0.3:6379")
}

func TestFinishMigrationClearsTransitionalState(t *testing.T) {
	r := NewRouter(0)
	key := []byte("foo")
	slot := KeySlot(key)
	r.AssignSlot(slot, 0)
	r.BeginMigration(slot, "10.0.0.2:6379")
	r.FinishMigration(slot, 1)

	state, _ := r.slotState(slot)
	assert.Equal(t, Stable, state)
	assert.Equal(t, 1, r.slotGroup[slot])
}

func TestGroupLeaderUnknown(t *testing.T) {
	r := NewRouter(0)
	_, ok := r.GroupLeader(42)
	assert.False(t, ok)
}
