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

func newConnTestContext(t *testing.T, pass string) *Context {
	t.Helper()
	db := store.NewDatabase(store.NewMemory(4), zerolog.Nop())
	t.Cleanup(func() { _ = db.Close() })
	s := session.New(nil, resp.NewWriter(io.Discard))
	return &Context{
		Session:  s,
		Store:    db,
		Hub:      session.NewHub(),
		Server:   &fakeServer{pass: pass},
		Dispatch: &Dispatcher{},
	}
}

func TestCmdPing(t *testing.T) {
	ctx := newConnTestContext(t, "")
	reply := cmdPing(ctx, [][]byte{[]byte("PING")})
	assert.Equal(t, "PONG", reply.Str)

	reply = cmdPing(ctx, [][]byte{[]byte("PING"), []byte("hello")})
	assert.Equal(t, []byte("hello"), reply.Bulk)
}

func TestCmdEcho(t *testing.T) {
	ctx := newConnTestContext(t, "")
	reply := cmdEcho(ctx, [][]byte{[]byte("ECHO"), []byte("hi")})
	assert.Equal(t, []byte("hi"), reply.Bulk)
}

func TestCmdSelectValidAndOutOfRange(t *testing.T) {
	ctx := newConnTestContext(t, "")
	reply := cmdSelect(ctx, [][]byte{[]byte("SELECT"), []byte("1")})
	assert.Equal(t, "OK", reply.Str)
	assert.Equal(t, 1, ctx.Session.DB)

	reply = cmdSelect(ctx, [][]byte{[]byte("SELECT"), []byte("99")})
	assert.Equal(t, resp.KindError, reply.Kind)
}

func TestCmdAuthWithoutRequirePassErrors(t *testing.T) {
	ctx := newConnTestContext(t, "")
	reply := cmdAuth(ctx, [][]byte{[]byte("AUTH"), []byte("secret")})
	assert.Equal(t, resp.KindError, reply.Kind)
}

func TestCmdAuthWrongAndRightPassword(t *testing.T) {
	ctx := newConnTestContext(t, "secret")
	reply := cmdAuth(ctx, [][]byte{[]byte("AUTH"), []byte("wrong")})
	assert.Equal(t, resp.KindError, reply.Kind)
	assert.False(t, ctx.Session.Authenticated)

	reply = cmdAuth(ctx, [][]byte{[]byte("AUTH"), []byte("secret")})
	assert.Equal(t, "OK", reply.Str)
	assert.True(t, ctx.Session.Authenticated)
}

func TestCmdHelloNegotiatesProtocolVersion(t *testing.T) {
	ctx := newConnTestContext(t, "")
	reply := cmdHello(ctx, [][]byte{[]byte("HELLO"), []byte("3")})
	require.Equal(t, resp.KindMap, reply.Kind)
	assert.Equal(t, 3, ctx.Session.RespVersion)
}

func TestCmdHelloRejectsUnsupportedVersion(t *testing.T) {
	ctx := newConnTestContext(t, "")
	reply := cmdHello(ctx, [][]byte{[]byte("HELLO"), []byte("4")})
	assert.Equal(t, resp.KindError, reply.Kind)
}

func TestCmdResetClearsStateAndUnsubscribes(t *testing.T) {
	ctx := newConnTestContext(t, "")
	cmdSubscribe(ctx, [][]byte{[]byte("SUBSCRIBE"), []byte("ch")})
	require.Equal(t, session.StateSubscription, ctx.Session.State)

	reply := cmdReset(ctx, [][]byte{[]byte("RESET")})
	assert.Equal(t, "RESET", reply.Str)
	assert.Equal(t, session.StateNormal, ctx.Session.State)
	assert.False(t, ctx.Session.HasSubscriptions())
}

func TestCmdClientSubcommands(t *testing.T) {
	ctx := newConnTestContext(t, "")
	reply := cmdClient(ctx, [][]byte{[]byte("CLIENT"), []byte("ID")})
	assert.Equal(t, ctx.Session.ID, string(reply.Bulk))

	reply = cmdClient(ctx, [][]byte{[]byte("CLIENT"), []byte("BOGUS")})
	assert.Equal(t, resp.KindError, reply.Kind)
}

func TestCmdAsking(t *testing.T) {
	ctx := newConnTestContext(t, "")
	reply := cmdAsking(ctx, [][]byte{[]byte("ASKING")})
	assert.Equal(t, "OK", reply.Str)
	assert.True(t, ctx.Session.ClusterAsking)
}
