package txn

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkv/lucidkv/internal/store"
)

func newTestBase(t *testing.T) *store.Database {
	t.Helper()
	db := store.NewDatabase(store.NewMemory(4), zerolog.Nop())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestStagingViewSetIsInvisibleUntilCommit(t *testing.T) {
	base := newTestBase(t)
	view := New(base)

	_, applied, err := view.Set(0, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)
	assert.True(t, applied)

	_, ok, err := view.Get(0, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok, "the overlay should see its own uncommitted write")

	_, ok, err = base.Get(0, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok, "the base must not observe the write before Commit")

	require.NoError(t, view.Commit())

	_, ok, err = base.Get(0, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok, "Commit must apply staged writes to the base")
}

func TestStagingViewDiscardDropsWrites(t *testing.T) {
	base := newTestBase(t)
	view := New(base)

	_, _, err := view.Set(0, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)

	view.Discard()

	_, ok, err := view.Get(0, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = base.Get(0, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStagingViewDeleteOverridesBaseValue(t *testing.T) {
	base := newTestBase(t)
	_, _, err := base.Set(0, []byte("k"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)

	view := New(base)
	_, err = view.Delete(0, []byte("k"))
	require.NoError(t, err)

	_, ok, err := view.Get(0, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok, "overlay delete must shadow the base value")

	_, ok, err = base.Get(0, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok, "base must be untouched before Commit")

	require.NoError(t, view.Commit())
	_, ok, err = base.Get(0, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStagingViewFlushDBHidesBaseKeysUntilCommit(t *testing.T) {
	base := newTestBase(t)
	_, _, err := base.Set(0, []byte("k1"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)

	view := New(base)
	require.NoError(t, view.FlushDB(0))

	keys, err := view.Keys(0, "*")
	require.NoError(t, err)
	assert.Empty(t, keys)

	baseKeys, err := base.Keys(0, "*")
	require.NoError(t, err)
	assert.Len(t, baseKeys, 1, "base must be untouched before Commit")

	require.NoError(t, view.Commit())
	baseKeys, err = base.Keys(0, "*")
	require.NoError(t, err)
	assert.Empty(t, baseKeys)
}

func TestStagingViewMutateStagesResult(t *testing.T) {
	base := newTestBase(t)
	view := New(base)

	_, err := view.Mutate(0, []byte("counter"), func(existing *store.Item, exists bool) (*store.Item, error) {
		return store.NewStringItem([]byte("1")), nil
	})
	require.NoError(t, err)

	item, ok, err := view.Get(0, []byte("counter"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), item.Str)

	_, ok, err = base.Get(0, []byte("counter"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStagingViewSetNXRespectsExistingOverlayEntry(t *testing.T) {
	base := newTestBase(t)
	view := New(base)

	_, applied, err := view.Set(0, []byte("k"), store.NewStringItem([]byte("first")), store.SetOptions{})
	require.NoError(t, err)
	require.True(t, applied)

	_, applied, err = view.Set(0, []byte("k"), store.NewStringItem([]byte("second")), store.SetOptions{NX: true})
	require.NoError(t, err)
	assert.False(t, applied, "NX must fail against an overlay-only key that already exists")

	item, ok, err := view.Get(0, []byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("first"), item.Str)
}

func TestStagingViewKeysMergesBaseAndOverlay(t *testing.T) {
	base := newTestBase(t)
	_, _, err := base.Set(0, []byte("base-key"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)

	view := New(base)
	_, _, err = view.Set(0, []byte("staged-key"), store.NewStringItem([]byte("v")), store.SetOptions{})
	require.NoError(t, err)

	keys, err := view.Keys(0, "*")
	require.NoError(t, err)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	assert.ElementsMatch(t, []string{"base-key", "staged-key"}, names)
}
