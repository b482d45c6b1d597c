package resp

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	encoded := Encode(v)
	r := NewReader(bytes.NewReader(encoded))
	got, err := r.ReadValue()
	require.NoError(t, err)
	return got
}

func TestRoundTripBasicKinds(t *testing.T) {
	cases := []Value{
		SimpleString("OK"),
		Error("ERR wrong type"),
		Integer(-42),
		BulkString("hello"),
		NullBulk(),
		Array(BulkString("GET"), BulkString("foo")),
		NullArray(),
		Null(),
		Bool(true),
		Bool(false),
		Double(3.5),
		Double(posInf),
		Double(negInf),
		BigNumber("123456789012345678901234567890"),
		BulkError("WRONGTYPE oops"),
		Verbatim("txt", "some text"),
		MapOf(MapEntry{Key: BulkString("maxmemory"), Val: BulkString("0")}),
		Set(BulkString("a"), BulkString("b")),
		Push(BulkString("message"), BulkString("ch"), BulkString("payload")),
	}
	for _, c := range cases {
		got := roundTrip(t, c)
		require.Equal(t, c.Kind, got.Kind)
	}
}

func TestParserStreamability(t *testing.T) {
	v := Array(BulkString("SET"), BulkString("foo"), BulkString("bar"))
	encoded := Encode(v)

	// Feed the encoded bytes back one byte at a time through a pipe so
	// the reader must suspend on short reads exactly like a live socket.
	pr, pw := io.Pipe()
	go func() {
		for _, b := range encoded {
			_, _ = pw.Write([]byte{b})
		}
		pw.Close()
	}()

	r := NewReader(pr)
	got, err := r.ReadValue()
	require.NoError(t, err)
	require.Equal(t, KindArray, got.Kind)
	require.Len(t, got.Array, 3)
	require.Equal(t, []byte("SET"), got.Array[0].Bulk)
	require.Equal(t, []byte("bar"), got.Array[2].Bulk)
}

func TestParserRejectsBadFrame(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("*2\r\n$3\r\nfoo")))
	_, err := r.ReadValue()
	require.Error(t, err)
}

func TestParserDepthLimit(t *testing.T) {
	var buf bytes.Buffer
	depth := 200
	for i := 0; i < depth; i++ {
		buf.WriteString("*1\r\n")
	}
	buf.WriteString("$3\r\nfoo\r\n")

	r := NewReader(&buf)
	_, err := r.ReadValue()
	require.ErrorIs(t, err, ErrProtocol)
}

func TestNegativeBulkIsNull(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("$-1\r\n")))
	v, err := r.ReadValue()
	require.NoError(t, err)
	require.True(t, v.IsNil())
}

func TestSimpleStringWire(t *testing.T) {
	require.Equal(t, []byte("+OK\r\n"), Encode(SimpleString("OK")))
	require.Equal(t, []byte(":7\r\n"), Encode(Integer(7)))
	require.Equal(t, []byte("$3\r\nbar\r\n"), Encode(BulkString("bar")))
	require.Equal(t, []byte("$-1\r\n"), Encode(NullBulk()))
	require.Equal(t, []byte("*-1\r\n"), Encode(NullArray()))
}

func TestVerbatimWireFormat(t *testing.T) {
	got := Encode(Verbatim("txt", "ciao"))
	require.Equal(t, []byte("=8\r\ntxt:ciao\r\n"), got)
}
