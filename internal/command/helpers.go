/*
file: lucidkv/internal/command/helpers.go

Small conversions shared by every handler file: argument parsing,
type-guarded Item access, and the "wrong type" / "missing key" reply
shapes spec.md §3 calls for.
*/
package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/store"
)

func decodeJSONArg(b []byte) (interface{}, error) {
	var v interface{}
	err := json.Unmarshal(b, &v)
	return v, err
}

func encodeJSONValue(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

var (
	errNotInteger = errors.New("value is not an integer or out of range")
	errOverflow   = errors.New("increment or decrement would overflow")
	errNotFloat   = errors.New("value is not a valid float")
	errNoSuchKey  = errors.New("no such key")
	errOutOfRange = errors.New("index out of range")
)

func upperStr(b []byte) string { return string(bytes.ToUpper(b)) }

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func parseInt(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

func parseFloat(b []byte) (float64, bool) {
	f, err := strconv.ParseFloat(string(b), 64)
	return f, err == nil
}

// getTyped fetches key, verifying it either doesn't exist or holds
// kind; returns (item, exists, wrongType).
func getTyped(s Store, db int, key []byte, kind store.Kind) (*store.Item, bool, bool) {
	it, ok, err := s.Get(db, key)
	if err != nil || !ok {
		return nil, false, false
	}
	if it.Kind != kind {
		return nil, true, true
	}
	return it, true, false
}

func wrongTypeErr() resp.Value {
	return resp.Error("WRONGTYPE Operation against a key holding the wrong kind of value")
}

func okSimple() resp.Value { return resp.SimpleString("OK") }

func intReply(n int64) resp.Value { return resp.Integer(n) }

func formatFloatReply(f float64) resp.Value {
	return resp.BulkString(strconv.FormatFloat(f, 'g', -1, 64))
}

// keyRange extracts keys at args[lo:hi] (exclusive hi, hi<0 means
// to the end), a common KeyExtractor shape for commands that accept a
// single key followed by non-key options.
func keyRange(lo, hi int) KeyExtractor {
	return func(args [][]byte) [][]byte {
		end := hi
		if end < 0 || end > len(args) {
			end = len(args)
		}
		if lo >= end {
			return nil
		}
		return args[lo:end]
	}
}
