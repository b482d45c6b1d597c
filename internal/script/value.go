/*
file: lucidkv/internal/script/value.go

Lua-ish value representation and its conversion to/from RESP, per
spec.md §4.4's table: numbers -> integer; strings -> bulk string;
contiguous-integer-keyed tables -> array; {err=...} -> error;
{ok=...} -> simple string; false/nil -> null.
*/
package script

import (
	"math"
	"strconv"

	"github.com/lucidkv/lucidkv/internal/resp"
)

// Value is the dynamic type every expression in a script evaluates to:
// nil, bool, float64, string, []Value (array table), or errTable/okTable
// for the two reply-shaping conventions real Redis scripts use.
type Value interface{}

type errTable struct{ msg string }
type okTable struct{ msg string }

// RespToValue converts one RESP reply (what redis.call returns) into a
// script Value so it can be assigned to a local.
func RespToValue(v resp.Value) (Value, error) {
	switch v.Kind {
	case resp.KindError:
		return nil, &CallError{Message: v.Str}
	case resp.KindBulkError:
		return nil, &CallError{Message: string(v.Bulk)}
	case resp.KindSimpleString:
		return v.Str, nil
	case resp.KindInteger:
		return float64(v.Int), nil
	case resp.KindBulkString:
		if v.IsNil() {
			return nil, nil
		}
		return string(v.Bulk), nil
	case resp.KindVerbatimString:
		return v.Str, nil
	case resp.KindNull:
		return nil, nil
	case resp.KindBoolean:
		return v.Bool, nil
	case resp.KindDouble:
		return v.Dbl, nil
	case resp.KindArray, resp.KindSet, resp.KindPush:
		if v.Array == nil {
			return nil, nil
		}
		out := make([]Value, len(v.Array))
		for i, item := range v.Array {
			conv, err := RespToValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = conv
		}
		return out, nil
	default:
		return nil, nil
	}
}

// ValueToResp converts a script's final return Value into the RESP
// reply EVAL/EVALSHA sends back.
func ValueToResp(v Value) resp.Value {
	switch t := v.(type) {
	case nil:
		return resp.NullBulk()
	case bool:
		if !t {
			return resp.NullBulk()
		}
		return resp.Integer(1)
	case float64:
		return resp.Integer(int64(math.Floor(t)))
	case string:
		return resp.BulkString(t)
	case errTable:
		return resp.Error(t.msg)
	case okTable:
		return resp.SimpleString(t.msg)
	case []Value:
		items := make([]resp.Value, len(t))
		for i, e := range t {
			items[i] = ValueToResp(e)
		}
		return resp.Array(items...)
	default:
		return resp.NullBulk()
	}
}

// ArgBytes renders a Value as a command argument, the way redis.call's
// own arguments are coerced onto the wire.
func ArgBytes(v Value) ([]byte, error) {
	switch t := v.(type) {
	case string:
		return []byte(t), nil
	case float64:
		return []byte(formatNumber(t)), nil
	default:
		return nil, &EvalError{Message: "bad argument: expected string or number"}
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
