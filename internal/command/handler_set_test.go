package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkv/lucidkv/internal/resp"
)

func members(v resp.Value) []string {
	out := make([]string, len(v.Array))
	for i, e := range v.Array {
		out[i] = string(e.Bulk)
	}
	return out
}

func TestCmdSAddAndSMembers(t *testing.T) {
	ctx := newTestContext(t)
	reply := cmdSAdd(ctx, [][]byte{[]byte("SADD"), []byte("s"), []byte("a"), []byte("b"), []byte("a")})
	require.Equal(t, resp.KindInteger, reply.Kind)
	assert.EqualValues(t, 2, reply.Int)

	reply = cmdSMembers(ctx, [][]byte{[]byte("SMEMBERS"), []byte("s")})
	require.Equal(t, resp.KindSet, reply.Kind)
	assert.ElementsMatch(t, []string{"a", "b"}, members(reply))
}

func TestCmdSRemRemovesAndEmptyKeyDisappears(t *testing.T) {
	ctx := newTestContext(t)
	cmdSAdd(ctx, [][]byte{[]byte("SADD"), []byte("s"), []byte("a")})
	reply := cmdSRem(ctx, [][]byte{[]byte("SREM"), []byte("s"), []byte("a")})
	assert.EqualValues(t, 1, reply.Int)

	reply = cmdSCard(ctx, [][]byte{[]byte("SCARD"), []byte("s")})
	assert.EqualValues(t, 0, reply.Int)
}

func TestCmdSIsMemberAndSCard(t *testing.T) {
	ctx := newTestContext(t)
	cmdSAdd(ctx, [][]byte{[]byte("SADD"), []byte("s"), []byte("a"), []byte("b")})
	reply := cmdSIsMember(ctx, [][]byte{[]byte("SISMEMBER"), []byte("s"), []byte("a")})
	assert.EqualValues(t, 1, reply.Int)

	reply = cmdSIsMember(ctx, [][]byte{[]byte("SISMEMBER"), []byte("s"), []byte("z")})
	assert.EqualValues(t, 0, reply.Int)

	reply = cmdSCard(ctx, [][]byte{[]byte("SCARD"), []byte("s")})
	assert.EqualValues(t, 2, reply.Int)
}

func TestSetCombineUnionInterDiff(t *testing.T) {
	ctx := newTestContext(t)
	cmdSAdd(ctx, [][]byte{[]byte("SADD"), []byte("s1"), []byte("a"), []byte("b")})
	cmdSAdd(ctx, [][]byte{[]byte("SADD"), []byte("s2"), []byte("b"), []byte("c")})

	union := setCombine(setUnion)
	reply := union(ctx, [][]byte{[]byte("SUNION"), []byte("s1"), []byte("s2")})
	assert.ElementsMatch(t, []string{"a", "b", "c"}, members(reply))

	inter := setCombine(setInter)
	reply = inter(ctx, [][]byte{[]byte("SINTER"), []byte("s1"), []byte("s2")})
	assert.ElementsMatch(t, []string{"b"}, members(reply))

	diff := setCombine(setDiff)
	reply = diff(ctx, [][]byte{[]byte("SDIFF"), []byte("s1"), []byte("s2")})
	assert.ElementsMatch(t, []string{"a"}, members(reply))
}

func TestCmdSAddAgainstWrongTypeErrors(t *testing.T) {
	ctx := newTestContext(t)
	cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	reply := cmdSAdd(ctx, [][]byte{[]byte("SADD"), []byte("k"), []byte("a")})
	assert.Equal(t, resp.KindError, reply.Kind)
}
