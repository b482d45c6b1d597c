package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucidkv/lucidkv/internal/store"
)

func TestMemorySetGetRoundTrip(t *testing.T) {
	m := store.NewMemory(2)
	defer m.Close()

	_, applied, err := m.Set(0, []byte("greeting"), store.NewStringItem([]byte("hello")), store.SetOptions{})
	require.NoError(t, err)
	require.True(t, applied)

	it, ok, err := m.Get(0, []byte("greeting"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), it.Str)

	_, ok, err = m.Get(1, []byte("greeting"))
	require.NoError(t, err)
	require.False(t, ok, "keys must not leak across logical databases")
}

func TestMemorySetNXXX(t *testing.T) {
	m := store.NewMemory(1)
	defer m.Close()

	_, applied, err := m.Set(0, []byte("k"), store.NewStringItem([]byte("v1")), store.SetOptions{XX: true})
	require.NoError(t, err)
	require.False(t, applied, "XX must fail when the key is absent")

	_, applied, err = m.Set(0, []byte("k"), store.NewStringItem([]byte("v1")), store.SetOptions{NX: true})
	require.NoError(t, err)
	require.True(t, applied)

	_, applied, err = m.Set(0, []byte("k"), store.NewStringItem([]byte("v2")), store.SetOptions{NX: true})
	require.NoError(t, err)
	require.False(t, applied, "NX must fail when the key already exists")

	it, _, err := m.Get(0, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), it.Str)
}

func TestMemoryTTLExpiresLazily(t *testing.T) {
	m := store.NewMemory(1)
	defer m.Close()

	past := time.Now().Add(-time.Second)
	_, _, err := m.Set(0, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{HasExp: true, ExpireAt: past})
	require.NoError(t, err)

	_, ok, err := m.Get(0, []byte("k"))
	require.NoError(t, err)
	require.False(t, ok, "a key past its expiry must read as absent")

	n, err := m.Exists(0, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestMemoryExpireModes(t *testing.T) {
	m := store.NewMemory(1)
	defer m.Close()

	_, _, err := m.Set(0, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)

	ok, err := m.Expire(0, []byte("k"), time.Now().Add(time.Hour), store.ExpireXX)
	require.NoError(t, err)
	require.False(t, ok, "XX must fail on a key without a TTL")

	ok, err = m.Expire(0, []byte("k"), time.Now().Add(time.Hour), store.ExpireNX)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.Expire(0, []byte("k"), time.Now().Add(2*time.Hour), store.ExpireNX)
	require.NoError(t, err)
	require.False(t, ok, "NX must fail once a TTL is already set")

	ok, err = m.Expire(0, []byte("k"), time.Now().Add(30*time.Minute), store.ExpireGT)
	require.NoError(t, err)
	require.False(t, ok, "GT must reject a sooner expiry")
}

func TestMemoryWriteBatchAtomicity(t *testing.T) {
	m := store.NewMemory(1)
	defer m.Close()

	ops := []store.BatchOp{
		{Key: []byte("a"), Item: store.NewStringItem([]byte("1"))},
		{Key: []byte("b"), Item: store.NewStringItem([]byte("2"))},
	}
	require.NoError(t, m.WriteBatch(0, ops))

	a, ok, err := m.Get(0, []byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), a.Str)

	b, ok, err := m.Get(0, []byte("b"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("2"), b.Str)
}

func TestMemoryMutateWrongTypeGuard(t *testing.T) {
	m := store.NewMemory(1)
	defer m.Close()

	_, _, err := m.Set(0, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)

	_, err = m.Mutate(0, []byte("k"), func(existing *store.Item, exists bool) (*store.Item, error) {
		if exists && existing.Kind != store.KindList {
			return nil, store.ErrWrongType
		}
		return existing, nil
	})
	require.ErrorIs(t, err, store.ErrWrongType)
}

func TestMemoryKeyEpochBumpsOnWrite(t *testing.T) {
	m := store.NewMemory(1)
	defer m.Close()

	e0, err := m.KeyEpoch(0, []byte("k"))
	require.NoError(t, err)

	_, _, err = m.Set(0, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)

	e1, err := m.KeyEpoch(0, []byte("k"))
	require.NoError(t, err)
	require.Greater(t, e1, e0, "a write must advance the key's watch epoch")
}

func TestMemoryScanCoversAllKeys(t *testing.T) {
	m := store.NewMemory(1)
	defer m.Close()

	want := map[string]bool{}
	for i := 0; i < 50; i++ {
		k := []byte{byte('a' + i%26), byte(i)}
		want[string(k)] = true
		_, _, err := m.Set(0, k, store.NewStringItem([]byte("v")), store.SetOptions{})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	var cursor uint64
	for {
		next, keys, err := m.Scan(0, cursor, "*", 7, "")
		require.NoError(t, err)
		for _, k := range keys {
			seen[string(k)] = true
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	require.Equal(t, want, seen)
}

func TestMemoryDBOutOfRange(t *testing.T) {
	m := store.NewMemory(1)
	defer m.Close()

	_, _, err := m.Get(5, []byte("k"))
	require.ErrorIs(t, err, store.ErrDBOutOfRange)
}
