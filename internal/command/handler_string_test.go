package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkv/lucidkv/internal/resp"
)

func TestCmdSetAndGet(t *testing.T) {
	ctx := newTestContext(t)
	reply := cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	require.Equal(t, resp.KindSimpleString, reply.Kind)
	assert.Equal(t, "OK", reply.Str)

	reply = cmdGet(ctx, [][]byte{[]byte("GET"), []byte("k")})
	require.Equal(t, resp.KindBulkString, reply.Kind)
	assert.Equal(t, []byte("v"), reply.Bulk)
}

func TestCmdGetMissingKeyReturnsNullBulk(t *testing.T) {
	ctx := newTestContext(t)
	reply := cmdGet(ctx, [][]byte{[]byte("GET"), []byte("missing")})
	assert.True(t, reply.IsNil())
}

func TestCmdSetNXOnlyAppliesWhenAbsent(t *testing.T) {
	ctx := newTestContext(t)
	reply := cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("v1"), []byte("NX")})
	assert.Equal(t, "OK", reply.Str)

	reply = cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("v2"), []byte("NX")})
	assert.True(t, reply.IsNil())

	reply = cmdGet(ctx, [][]byte{[]byte("GET"), []byte("k")})
	assert.Equal(t, []byte("v1"), reply.Bulk)
}

func TestCmdSetXXFailsWhenAbsent(t *testing.T) {
	ctx := newTestContext(t)
	reply := cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("v"), []byte("XX")})
	assert.True(t, reply.IsNil())
}

func TestCmdIncrByAndDecrBy(t *testing.T) {
	ctx := newTestContext(t)
	incr := cmdIncrBy(0)
	reply := incr(ctx, [][]byte{[]byte("INCRBY"), []byte("counter"), []byte("5")})
	require.Equal(t, resp.KindInteger, reply.Kind)
	assert.EqualValues(t, 5, reply.Int)

	decr := cmdIncrBy(0)
	reply = decr(ctx, [][]byte{[]byte("DECRBY"), []byte("counter"), []byte("2")})
	assert.EqualValues(t, 3, reply.Int)
}

func TestCmdIncrByRejectsNonInteger(t *testing.T) {
	ctx := newTestContext(t)
	cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("notanumber")})
	incr := cmdIncrBy(1)
	reply := incr(ctx, [][]byte{[]byte("INCR"), []byte("k")})
	assert.Equal(t, resp.KindError, reply.Kind)
}

func TestCmdIncrByFloat(t *testing.T) {
	ctx := newTestContext(t)
	cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("10.5")})
	reply := cmdIncrByFloat(ctx, [][]byte{[]byte("INCRBYFLOAT"), []byte("k"), []byte("0.1")})
	require.Equal(t, resp.KindBulkString, reply.Kind)
	assert.Equal(t, "10.6", string(reply.Bulk))
}

func TestCmdMSetAndMGet(t *testing.T) {
	ctx := newTestContext(t)
	reply := cmdMSet(ctx, [][]byte{[]byte("MSET"), []byte("a"), []byte("1"), []byte("b"), []byte("2")})
	require.Equal(t, resp.KindSimpleString, reply.Kind)

	reply = cmdMGet(ctx, [][]byte{[]byte("MGET"), []byte("a"), []byte("b"), []byte("missing")})
	require.Equal(t, resp.KindArray, reply.Kind)
	require.Len(t, reply.Array, 3)
	assert.Equal(t, []byte("1"), reply.Array[0].Bulk)
	assert.Equal(t, []byte("2"), reply.Array[1].Bulk)
	assert.True(t, reply.Array[2].IsNil())
}

func TestCmdMSetRejectsOddArgCount(t *testing.T) {
	ctx := newTestContext(t)
	reply := cmdMSet(ctx, [][]byte{[]byte("MSET"), []byte("a"), []byte("1"), []byte("b")})
	assert.Equal(t, resp.KindError, reply.Kind)
}

func TestCmdAppendAndStrlen(t *testing.T) {
	ctx := newTestContext(t)
	reply := cmdAppend(ctx, [][]byte{[]byte("APPEND"), []byte("k"), []byte("hello")})
	assert.EqualValues(t, 5, reply.Int)

	reply = cmdAppend(ctx, [][]byte{[]byte("APPEND"), []byte("k"), []byte(" world")})
	assert.EqualValues(t, 11, reply.Int)

	reply = cmdStrlen(ctx, [][]byte{[]byte("STRLEN"), []byte("k")})
	assert.EqualValues(t, 11, reply.Int)
}

func TestCmdGetSetReturnsPreviousValue(t *testing.T) {
	ctx := newTestContext(t)
	cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("old")})
	reply := cmdGetSet(ctx, [][]byte{[]byte("GETSET"), []byte("k"), []byte("new")})
	assert.Equal(t, []byte("old"), reply.Bulk)

	reply = cmdGet(ctx, [][]byte{[]byte("GET"), []byte("k")})
	assert.Equal(t, []byte("new"), reply.Bulk)
}

func TestCmdGetAgainstWrongTypeErrors(t *testing.T) {
	ctx := newTestContext(t)
	cmdHSet(ctx, [][]byte{[]byte("HSET"), []byte("k"), []byte("f"), []byte("v")})
	reply := cmdGet(ctx, [][]byte{[]byte("GET"), []byte("k")})
	assert.Equal(t, resp.KindError, reply.Kind)
}
