package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucidkv/lucidkv/internal/store"
)

func openTestPersistent(t *testing.T) *store.Persistent {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lucidkv.db")
	p, err := store.OpenPersistent(path, 2, store.SyncNever)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPersistentSetGetRoundTrip(t *testing.T) {
	p := openTestPersistent(t)

	_, applied, err := p.Set(0, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)
	require.True(t, applied)

	it, ok, err := p.Get(0, []byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), it.Str)
}

func TestPersistentSurvivesEnvelopeRoundTripForEachKind(t *testing.T) {
	p := openTestPersistent(t)

	hash := store.NewOrderedHash()
	hash.Set("f1", []byte("v1"))
	zset := store.NewSortedSet()
	zset.Add("m1", 1.5)

	items := map[string]*store.Item{
		"str":  store.NewStringItem([]byte("hello")),
		"list": {Kind: store.KindList, List: [][]byte{[]byte("a"), []byte("b")}},
		"hash": {Kind: store.KindHash, Hash: hash},
		"set":  {Kind: store.KindSet, Set: map[string]struct{}{"m": {}}},
		"zset": {Kind: store.KindZSet, ZSet: zset},
		"json": {Kind: store.KindJSON, JSON: map[string]interface{}{"a": float64(1)}},
	}
	for k, v := range items {
		_, _, err := p.Set(0, []byte(k), v, store.SetOptions{})
		require.NoError(t, err)
	}

	for k, v := range items {
		got, ok, err := p.Get(0, []byte(k))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, v.Kind, got.Kind)
	}
}

func TestPersistentTTLExpiresLazily(t *testing.T) {
	p := openTestPersistent(t)

	past := time.Now().Add(-time.Second)
	_, _, err := p.Set(0, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{HasExp: true, ExpireAt: past})
	require.NoError(t, err)

	_, ok, err := p.Get(0, []byte("k"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPersistentWriteBatchAtomicity(t *testing.T) {
	p := openTestPersistent(t)

	ops := []store.BatchOp{
		{Key: []byte("a"), Item: store.NewStringItem([]byte("1"))},
		{Key: []byte("b"), Item: store.NewStringItem([]byte("2"))},
	}
	require.NoError(t, p.WriteBatch(0, ops))

	n, err := p.DBSize(0)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestPersistentFlushDBIsolatesDatabases(t *testing.T) {
	p := openTestPersistent(t)

	_, _, err := p.Set(0, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)
	_, _, err = p.Set(1, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)

	require.NoError(t, p.FlushDB(0))

	_, ok, err := p.Get(0, []byte("k"))
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = p.Get(1, []byte("k"))
	require.NoError(t, err)
	require.True(t, ok, "FlushDB must not touch other logical databases")
}

func TestPersistentKeyEpochBumpsOnWrite(t *testing.T) {
	p := openTestPersistent(t)

	e0, err := p.KeyEpoch(0, []byte("k"))
	require.NoError(t, err)

	_, _, err = p.Set(0, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)

	e1, err := p.KeyEpoch(0, []byte("k"))
	require.NoError(t, err)
	require.Greater(t, e1, e0)
}
