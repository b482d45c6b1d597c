package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkv/lucidkv/internal/resp"
)

func TestCmdHSetAndHGet(t *testing.T) {
	ctx := newTestContext(t)
	reply := cmdHSet(ctx, [][]byte{[]byte("HSET"), []byte("h"), []byte("f1"), []byte("v1"), []byte("f2"), []byte("v2")})
	require.Equal(t, resp.KindInteger, reply.Kind)
	assert.EqualValues(t, 2, reply.Int)

	reply = cmdHGet(ctx, [][]byte{[]byte("HGET"), []byte("h"), []byte("f1")})
	assert.Equal(t, []byte("v1"), reply.Bulk)

	reply = cmdHGet(ctx, [][]byte{[]byte("HGET"), []byte("h"), []byte("missing")})
	assert.True(t, reply.IsNil())
}

func TestCmdHSetOverwriteDoesNotCountAsCreated(t *testing.T) {
	ctx := newTestContext(t)
	cmdHSet(ctx, [][]byte{[]byte("HSET"), []byte("h"), []byte("f"), []byte("v1")})
	reply := cmdHSet(ctx, [][]byte{[]byte("HSET"), []byte("h"), []byte("f"), []byte("v2")})
	assert.EqualValues(t, 0, reply.Int)

	reply = cmdHGet(ctx, [][]byte{[]byte("HGET"), []byte("h"), []byte("f")})
	assert.Equal(t, []byte("v2"), reply.Bulk)
}

func TestCmdHGetAllPreservesInsertionOrder(t *testing.T) {
	ctx := newTestContext(t)
	cmdHSet(ctx, [][]byte{[]byte("HSET"), []byte("h"), []byte("z"), []byte("1"), []byte("a"), []byte("2")})
	reply := cmdHGetAll(ctx, [][]byte{[]byte("HGETALL"), []byte("h")})
	require.Len(t, reply.Array, 4)
	assert.Equal(t, "z", string(reply.Array[0].Bulk))
	assert.Equal(t, "a", string(reply.Array[2].Bulk))
}

func TestCmdHDelRemovesFieldsAndEmptyKeyDisappears(t *testing.T) {
	ctx := newTestContext(t)
	cmdHSet(ctx, [][]byte{[]byte("HSET"), []byte("h"), []byte("f"), []byte("v")})
	reply := cmdHDel(ctx, [][]byte{[]byte("HDEL"), []byte("h"), []byte("f")})
	assert.EqualValues(t, 1, reply.Int)

	existsReply := cmdHLen(ctx, [][]byte{[]byte("HLEN"), []byte("h")})
	assert.EqualValues(t, 0, existsReply.Int)
}

func TestCmdHExistsAndHLen(t *testing.T) {
	ctx := newTestContext(t)
	cmdHSet(ctx, [][]byte{[]byte("HSET"), []byte("h"), []byte("f"), []byte("v")})
	reply := cmdHExists(ctx, [][]byte{[]byte("HEXISTS"), []byte("h"), []byte("f")})
	assert.EqualValues(t, 1, reply.Int)

	reply = cmdHExists(ctx, [][]byte{[]byte("HEXISTS"), []byte("h"), []byte("missing")})
	assert.EqualValues(t, 0, reply.Int)

	reply = cmdHLen(ctx, [][]byte{[]byte("HLEN"), []byte("h")})
	assert.EqualValues(t, 1, reply.Int)
}

func TestCmdHIncrBy(t *testing.T) {
	ctx := newTestContext(t)
	reply := cmdHIncrBy(ctx, [][]byte{[]byte("HINCRBY"), []byte("h"), []byte("counter"), []byte("5")})
	assert.EqualValues(t, 5, reply.Int)

	reply = cmdHIncrBy(ctx, [][]byte{[]byte("HINCRBY"), []byte("h"), []byte("counter"), []byte("-2")})
	assert.EqualValues(t, 3, reply.Int)
}

func TestCmdHMGetMixesFoundAndMissing(t *testing.T) {
	ctx := newTestContext(t)
	cmdHSet(ctx, [][]byte{[]byte("HSET"), []byte("h"), []byte("a"), []byte("1")})
	reply := cmdHMGet(ctx, [][]byte{[]byte("HMGET"), []byte("h"), []byte("a"), []byte("missing")})
	require.Len(t, reply.Array, 2)
	assert.Equal(t, []byte("1"), reply.Array[0].Bulk)
	assert.True(t, reply.Array[1].IsNil())
}

func TestCmdHSetAgainstWrongTypeErrors(t *testing.T) {
	ctx := newTestContext(t)
	cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	reply := cmdHSet(ctx, [][]byte{[]byte("HSET"), []byte("k"), []byte("f"), []byte("v")})
	assert.Equal(t, resp.KindError, reply.Kind)
}
