package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySlotRange(t *testing.T) {
	keys := [][]byte{[]byte("foo"), []byte("bar"), []byte("user:1000"), []byte("")}
	for _, k := range keys {
		slot := KeySlot(k)
		assert.GreaterOrEqual(t, slot, 0)
		assert.Less(t, slot, SlotCount)
	}
}

func TestKeySlotDeterministic(t *testing.T) {
	a := KeySlot([]byte("mykey"))
	b := KeySlot([]byte("mykey"))
	require.Equal(t, a, b)
}

func TestKeySlotHashTag(t *testing.T) {
	a := KeySlot([]byte("{user1000}.following"))
	b := KeySlot([]byte("{user1000}.followers"))
	assert.Equal(t, a, b, "keys sharing a hash tag must land on the same slot")
}

func TestKeySlotHashTagEmptyFallsBackToWholeKey(t *testing.T) {
	// "{}" has no content between the braces, so the whole key hashes.
	withEmptyTag := KeySlot([]byte("foo{}bar"))
	whole := int(crc16([]byte("foo{}bar"))) % SlotCount
	assert.Equal(t, whole, withEmptyTag)
}

func TestKeySlotUnbalancedBraceFallsBackToWholeKey(t *testing.T) {
	a := KeySlot([]byte("foo{bar"))
	b := int(crc16([]byte("foo{bar"))) % SlotCount
	assert.Equal(t, a, b)
}

func TestHashTagOrWhole(t *testing.T) {
	assert.Equal(t, []byte("bar"), hashTagOrWhole([]byte("foo{bar}baz")))
	assert.Equal(t, []byte("foo"), hashTagOrWhole([]byte("foo")))
	assert.Equal(t, []byte("foo{}bar"), hashTagOrWhole([]byte("foo{}bar")))
}
