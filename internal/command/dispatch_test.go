/*
file: lucidkv/internal/command/dispatch_test.go

Proves the database's exclusive section Dispatch takes around step 6
(internal/command/dispatch.go) actually serializes whole command
batches rather than individual store calls: a concurrent read must wait
out an in-flight EXEC, not interleave with one of its queued commands.
*/
package command

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/session"
	"github.com/lucidkv/lucidkv/internal/store"
)

func newDispatchTestSession() *session.Session {
	return session.New(nil, resp.NewWriter(io.Discard))
}

func TestExecHoldsDatabaseLockForWholeQueuedBatch(t *testing.T) {
	db := store.NewDatabase(store.NewMemory(1), zerolog.Nop())
	t.Cleanup(func() { _ = db.Close() })

	reg := NewRegistry()
	started := make(chan struct{})
	proceed := make(chan struct{})
	reg.register(&CommandSpec{
		Name: "TESTHOLD", MinArgs: 1, MaxArgs: 1, Flags: FlagWrite, Keys: noKeys,
		Handler: func(ctx *Context, args [][]byte) resp.Value {
			close(started)
			<-proceed
			return okSimple()
		},
	})

	dispatcher := NewDispatcher(reg, db, nil, &fakeServer{}, nil, nil, nil, zerolog.Nop())

	execSession := newDispatchTestSession()
	require.Equal(t, "OK", dispatcher.Dispatch(execSession, [][]byte{[]byte("MULTI")}).Str)
	require.Equal(t, "QUEUED", dispatcher.Dispatch(execSession, [][]byte{[]byte("TESTHOLD")}).Str)

	var mu sync.Mutex
	var order []string
	record := func(event string) {
		mu.Lock()
		order = append(order, event)
		mu.Unlock()
	}

	execDone := make(chan struct{})
	go func() {
		dispatcher.Dispatch(execSession, [][]byte{[]byte("EXEC")})
		record("exec-done")
		close(execDone)
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("EXEC never reached its queued TESTHOLD command")
	}

	getDone := make(chan struct{})
	readSession := newDispatchTestSession()
	go func() {
		dispatcher.Dispatch(readSession, [][]byte{[]byte("GET"), []byte("k")})
		record("get-done")
		close(getDone)
	}()

	// GET must still be blocked on the database's RLock: EXEC's Lock
	// (taken once for the whole queued batch) is still held.
	select {
	case <-getDone:
		t.Fatal("GET completed while EXEC still held the database's exclusive section")
	case <-time.After(50 * time.Millisecond):
	}

	close(proceed)

	select {
	case <-execDone:
	case <-time.After(time.Second):
		t.Fatal("EXEC never finished after TESTHOLD was released")
	}
	select {
	case <-getDone:
	case <-time.After(time.Second):
		t.Fatal("GET never ran after EXEC released the database's exclusive section")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"exec-done", "get-done"}, order)
}

func TestScriptRunnerHoldsDatabaseLockAcrossRedisCall(t *testing.T) {
	db := store.NewDatabase(store.NewMemory(1), zerolog.Nop())
	t.Cleanup(func() { _ = db.Close() })

	reg := NewRegistry()
	started := make(chan struct{})
	proceed := make(chan struct{})
	reg.register(&CommandSpec{
		Name: "TESTHOLD2", MinArgs: 1, MaxArgs: 1, Flags: FlagWrite, Keys: noKeys,
		Handler: func(ctx *Context, args [][]byte) resp.Value {
			close(started)
			<-proceed
			return okSimple()
		},
	})
	reg.register(&CommandSpec{
		Name: "TESTSCRIPT", MinArgs: 1, MaxArgs: 1, Flags: FlagWrite, Keys: noKeys,
		Handler: func(ctx *Context, args [][]byte) resp.Value {
			return ctx.Dispatch.ExecuteAgainst(ctx.Store, ctx.Session, [][]byte{[]byte("TESTHOLD2")})
		},
	})

	dispatcher := NewDispatcher(reg, db, nil, &fakeServer{}, nil, nil, nil, zerolog.Nop())

	scriptDone := make(chan struct{})
	go func() {
		dispatcher.Dispatch(newDispatchTestSession(), [][]byte{[]byte("TESTSCRIPT")})
		close(scriptDone)
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("script-shaped command never reached its nested ExecuteAgainst call")
	}

	getDone := make(chan struct{})
	go func() {
		dispatcher.Dispatch(newDispatchTestSession(), [][]byte{[]byte("GET"), []byte("k")})
		close(getDone)
	}()

	select {
	case <-getDone:
		t.Fatal("GET completed while the outer command still held the database's exclusive section")
	case <-time.After(50 * time.Millisecond):
	}

	close(proceed)
	<-scriptDone
	assert.Eventually(t, func() bool {
		select {
		case <-getDone:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
