package command

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/session"
	"github.com/lucidkv/lucidkv/internal/store"
)

// newTxTestContext builds a Context whose Session is fully initialized
// via session.New (so Watched/TxQueue are non-nil) and whose Dispatch
// is a real Dispatcher wired to the same database, so EXEC can replay
// queued commands through the ordinary handler table.
func newTxTestContext(t *testing.T) *Context {
	t.Helper()
	db := store.NewDatabase(store.NewMemory(4), zerolog.Nop())
	t.Cleanup(func() { _ = db.Close() })
	s := session.New(nil, resp.NewWriter(io.Discard))

	reg := NewRegistry()
	dispatcher := NewDispatcher(reg, db, nil, &fakeServer{}, nil, nil, nil, zerolog.Nop())
	return &Context{Session: s, Store: db, Server: &fakeServer{}, Dispatch: dispatcher}
}

func TestCmdMultiQueueingAndExec(t *testing.T) {
	ctx := newTxTestContext(t)
	reply := cmdMulti(ctx, [][]byte{[]byte("MULTI")})
	assert.Equal(t, "OK", reply.Str)
	assert.Equal(t, session.TxQueueing, ctx.Session.Tx)

	ctx.Session.QueueCommand([][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	ctx.Session.QueueCommand([][]byte{[]byte("GET"), []byte("k")})

	reply = cmdExec(ctx, [][]byte{[]byte("EXEC")})
	require.Equal(t, resp.KindArray, reply.Kind)
	require.Len(t, reply.Array, 2)
	assert.Equal(t, "OK", reply.Array[0].Str)
	assert.Equal(t, []byte("v"), reply.Array[1].Bulk)
	assert.Equal(t, session.TxOff, ctx.Session.Tx)
}

func TestCmdMultiNestedRejected(t *testing.T) {
	ctx := newTxTestContext(t)
	cmdMulti(ctx, [][]byte{[]byte("MULTI")})
	reply := cmdMulti(ctx, [][]byte{[]byte("MULTI")})
	assert.Equal(t, resp.KindError, reply.Kind)
}

func TestCmdExecWithoutMultiErrors(t *testing.T) {
	ctx := newTxTestContext(t)
	reply := cmdExec(ctx, [][]byte{[]byte("EXEC")})
	assert.Equal(t, resp.KindError, reply.Kind)
}

func TestCmdDiscardClearsQueue(t *testing.T) {
	ctx := newTxTestContext(t)
	cmdMulti(ctx, [][]byte{[]byte("MULTI")})
	ctx.Session.QueueCommand([][]byte{[]byte("SET"), []byte("k"), []byte("v")})

	reply := cmdDiscard(ctx, [][]byte{[]byte("DISCARD")})
	assert.Equal(t, "OK", reply.Str)
	assert.Equal(t, session.TxOff, ctx.Session.Tx)
	assert.Empty(t, ctx.Session.TxQueue)
}

func TestCmdWatchAbortsExecOnConcurrentChange(t *testing.T) {
	ctx := newTxTestContext(t)
	cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("v1")})

	reply := cmdWatch(ctx, [][]byte{[]byte("WATCH"), []byte("k")})
	assert.Equal(t, "OK", reply.Str)

	// Mutate k directly (bypassing the transaction) to bump its epoch.
	cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("v2")})

	cmdMulti(ctx, [][]byte{[]byte("MULTI")})
	ctx.Session.QueueCommand([][]byte{[]byte("GET"), []byte("k")})

	reply = cmdExec(ctx, [][]byte{[]byte("EXEC")})
	assert.True(t, reply.IsNil(), "EXEC must abort with a null array when a watched key changed")
}

func TestCmdUnwatchClearsWatchSet(t *testing.T) {
	ctx := newTxTestContext(t)
	cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("v1")})
	cmdWatch(ctx, [][]byte{[]byte("WATCH"), []byte("k")})
	cmdUnwatch(ctx, [][]byte{[]byte("UNWATCH")})

	cmdSet(ctx, [][]byte{[]byte("SET"), []byte("k"), []byte("v2")})

	cmdMulti(ctx, [][]byte{[]byte("MULTI")})
	ctx.Session.QueueCommand([][]byte{[]byte("GET"), []byte("k")})
	reply := cmdExec(ctx, [][]byte{[]byte("EXEC")})
	require.Len(t, reply.Array, 1)
	assert.Equal(t, []byte("v2"), reply.Array[0].Bulk)
}
