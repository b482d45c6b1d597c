package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkv/lucidkv/internal/resp"
)

func noopCaller(args [][]byte) resp.Value { return resp.SimpleString("OK") }

func TestRunReturnsLiteral(t *testing.T) {
	prog, err := Parse(`return 1`)
	require.NoError(t, err)
	v, err := Run(prog, nil, nil, noopCaller)
	require.NoError(t, err)
	assert.Equal(t, float64(1), v)
}

func TestRunReturnsKeysAndArgv(t *testing.T) {
	prog, err := Parse(`return KEYS[1]`)
	require.NoError(t, err)
	v, err := Run(prog, []string{"mykey"}, nil, noopCaller)
	require.NoError(t, err)
	assert.Equal(t, "mykey", v)
}

func TestRunLocalAssignment(t *testing.T) {
	prog, err := Parse(`local x = ARGV[1]
return x`)
	require.NoError(t, err)
	v, err := Run(prog, nil, []string{"hello"}, noopCaller)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestRunRedisCallInvokesCaller(t *testing.T) {
	var captured [][]byte
	caller := func(args [][]byte) resp.Value {
		captured = args
		return resp.SimpleString("OK")
	}
	prog, err := Parse(`return redis.call('set', KEYS[1], ARGV[1])`)
	require.NoError(t, err)
	v, err := Run(prog, []string{"k"}, []string{"v"}, caller)
	require.NoError(t, err)
	assert.Equal(t, "OK", v)
	require.Len(t, captured, 3)
	assert.Equal(t, "set", string(captured[0]))
	assert.Equal(t, "k", string(captured[1]))
	assert.Equal(t, "v", string(captured[2]))
}

func TestRunRedisCallErrorPropagates(t *testing.T) {
	caller := func(args [][]byte) resp.Value { return resp.Error("ERR boom") }
	prog, err := Parse(`return redis.call('get', KEYS[1])`)
	require.NoError(t, err)
	_, err = Run(prog, []string{"k"}, nil, caller)
	require.Error(t, err)
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "ERR boom", callErr.Message)
}

func TestRunErrorBuiltin(t *testing.T) {
	prog, err := Parse(`return error('bad things happened')`)
	require.NoError(t, err)
	_, err = Run(prog, nil, nil, noopCaller)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad things happened")
}

func TestRunStatusAndErrorReplyHelpers(t *testing.T) {
	prog, err := Parse(`return redis.status_reply('FOOBAR')`)
	require.NoError(t, err)
	v, err := Run(prog, nil, nil, noopCaller)
	require.NoError(t, err)
	reply := ValueToResp(v)
	assert.Equal(t, resp.KindSimpleString, reply.Kind)
	assert.Equal(t, "FOOBAR", reply.Str)

	prog, err = Parse(`return redis.error_reply('my error')`)
	require.NoError(t, err)
	v, err = Run(prog, nil, nil, noopCaller)
	require.NoError(t, err)
	reply = ValueToResp(v)
	assert.Equal(t, resp.KindError, reply.Kind)
}

func TestRunUndefinedVariableErrors(t *testing.T) {
	prog, err := Parse(`return nosuch`)
	require.NoError(t, err)
	_, err = Run(prog, nil, nil, noopCaller)
	require.Error(t, err)
}

func TestRunTableLiteralIndexing(t *testing.T) {
	prog, err := Parse(`local t = {'a', 'b', 'c'}
return t[2]`)
	require.NoError(t, err)
	v, err := Run(prog, nil, nil, noopCaller)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(`@@@ not a script`)
	require.Error(t, err)
}

func TestRespToValueRoundTrip(t *testing.T) {
	v, err := RespToValue(resp.Integer(42))
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)

	v, err = RespToValue(resp.BulkString("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi", v)

	v, err = RespToValue(resp.Array(resp.Integer(1), resp.Integer(2)))
	require.NoError(t, err)
	assert.Equal(t, []Value{float64(1), float64(2)}, v)
}

func TestCacheLoadGetExists(t *testing.T) {
	c := NewCache()
	sha, err := c.Load(`return 1`)
	require.NoError(t, err)
	assert.Equal(t, Sum1(`return 1`), sha)

	prog, ok := c.Get(sha)
	require.True(t, ok)
	require.NotNil(t, prog)

	exists := c.Exists([]string{sha, "deadbeef"})
	require.Len(t, exists, 2)
	assert.True(t, exists[0])
	assert.False(t, exists[1])
}

func TestCacheFlush(t *testing.T) {
	c := NewCache()
	sha, err := c.Load(`return 1`)
	require.NoError(t, err)
	c.Flush()
	_, ok := c.Get(sha)
	assert.False(t, ok)
}

func TestCacheLoadRejectsInvalidScript(t *testing.T) {
	c := NewCache()
	_, err := c.Load(`@@@`)
	require.Error(t, err)
}
