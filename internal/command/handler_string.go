/*
file: lucidkv/internal/command/handler_string.go

String commands, generalized from the teacher's handler_string.go onto
the Item tagged-variant model and the Store interface instead of the
teacher's single global database.DB.
*/
package command

import (
	"math"
	"time"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/store"
)

func cmdGet(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindString)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return resp.NullBulk()
	}
	return resp.Bulk(it.Str)
}

func cmdSet(ctx *Context, args [][]byte) resp.Value {
	key, val := args[1], args[2]
	opts := store.SetOptions{}
	for i := 3; i < len(args); i++ {
		switch upperStr(args[i]) {
		case "NX":
			opts.NX = true
		case "XX":
			opts.XX = true
		case "KEEPTTL":
			opts.KeepTTL = true
		case "EX":
			i++
			if i >= len(args) {
				return resp.Error("ERR syntax error")
			}
			n, ok := parseInt(args[i])
			if !ok {
				return resp.Error("ERR value is not an integer or out of range")
			}
			opts.HasExp = true
			opts.ExpireAt = time.Now().Add(time.Duration(n) * time.Second)
		case "PX":
			i++
			if i >= len(args) {
				return resp.Error("ERR syntax error")
			}
			n, ok := parseInt(args[i])
			if !ok {
				return resp.Error("ERR value is not an integer or out of range")
			}
			opts.HasExp = true
			opts.ExpireAt = time.Now().Add(time.Duration(n) * time.Millisecond)
		default:
			return resp.Error("ERR syntax error")
		}
	}

	_, applied, err := ctx.Store.Set(ctx.DBIndex(), key, store.NewStringItem(append([]byte(nil), val...)), opts)
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	ctx.Store.Notify(ctx.DBIndex(), key)
	if !applied {
		return resp.NullBulk()
	}
	return okSimple()
}

func cmdIncrBy(delta int64) Handler {
	return func(ctx *Context, args [][]byte) resp.Value {
		amount := delta
		if delta == 0 { // INCRBY/DECRBY carry their amount as an explicit argument
			n, ok := parseInt(args[2])
			if !ok {
				return resp.Error("ERR value is not an integer or out of range")
			}
			amount = n
			if upperStr(args[0]) == "DECRBY" {
				if n == math.MinInt64 {
					return resp.Error("ERR increment or decrement would overflow")
				}
				amount = -n
			}
		}
		result, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
			var cur int64
			if exists {
				if existing.Kind != store.KindString {
					return nil, store.ErrWrongType
				}
				n, ok := parseInt(existing.Str)
				if !ok {
					return nil, errNotInteger
				}
				cur = n
			}
			next := cur + amount
			if (amount > 0 && next < cur) || (amount < 0 && next > cur) {
				return nil, errOverflow
			}
			return store.NewStringItem([]byte(itoa(next))), nil
		})
		if err == store.ErrWrongType {
			return wrongTypeErr()
		}
		if err == errNotInteger {
			return resp.Error("ERR value is not an integer or out of range")
		}
		if err == errOverflow {
			return resp.Error("ERR increment or decrement would overflow")
		}
		if err != nil {
			return resp.Errorf("ERR %s", err)
		}
		ctx.Store.Notify(ctx.DBIndex(), args[1])
		n, _ := parseInt(result.Str)
		return intReply(n)
	}
}

func cmdIncrByFloat(ctx *Context, args [][]byte) resp.Value {
	delta, ok := parseFloat(args[2])
	if !ok {
		return resp.Error("ERR value is not a valid float")
	}
	result, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		var cur float64
		if exists {
			if existing.Kind != store.KindString {
				return nil, store.ErrWrongType
			}
			f, ok := parseFloat(existing.Str)
			if !ok {
				return nil, errNotFloat
			}
			cur = f
		}
		next := cur + delta
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return nil, errNotFloat
		}
		return store.NewStringItem([]byte(ftoa(next))), nil
	})
	if err == store.ErrWrongType {
		return wrongTypeErr()
	}
	if err == errNotFloat {
		return resp.Error("ERR value is not a valid float")
	}
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	ctx.Store.Notify(ctx.DBIndex(), args[1])
	return resp.Bulk(result.Str)
}

func cmdMGet(ctx *Context, args [][]byte) resp.Value {
	out := make([]resp.Value, 0, len(args)-1)
	for _, key := range args[1:] {
		it, ok, err := ctx.Store.Get(ctx.DBIndex(), key)
		if err != nil || !ok || it.Kind != store.KindString {
			out = append(out, resp.NullBulk())
			continue
		}
		out = append(out, resp.Bulk(it.Str))
	}
	return resp.Array(out...)
}

func cmdMSet(ctx *Context, args [][]byte) resp.Value {
	pairs := args[1:]
	if len(pairs)%2 != 0 {
		return resp.Error("ERR wrong number of arguments for 'mset' command")
	}
	ops := make([]store.BatchOp, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		ops = append(ops, store.BatchOp{Key: pairs[i], Item: store.NewStringItem(append([]byte(nil), pairs[i+1]...))})
	}
	if err := ctx.Store.WriteBatch(ctx.DBIndex(), ops); err != nil {
		return resp.Errorf("ERR %s", err)
	}
	for _, op := range ops {
		ctx.Store.Notify(ctx.DBIndex(), op.Key)
	}
	return okSimple()
}

func cmdAppend(ctx *Context, args [][]byte) resp.Value {
	result, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		if !exists {
			return store.NewStringItem(append([]byte(nil), args[2]...)), nil
		}
		if existing.Kind != store.KindString {
			return nil, store.ErrWrongType
		}
		return store.NewStringItem(append(append([]byte(nil), existing.Str...), args[2]...)), nil
	})
	if err == store.ErrWrongType {
		return wrongTypeErr()
	}
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	ctx.Store.Notify(ctx.DBIndex(), args[1])
	return intReply(int64(len(result.Str)))
}

func cmdStrlen(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindString)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return intReply(0)
	}
	return intReply(int64(len(it.Str)))
}

func cmdGetSet(ctx *Context, args [][]byte) resp.Value {
	var prev *store.Item
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		if exists {
			if existing.Kind != store.KindString {
				return nil, store.ErrWrongType
			}
			prev = existing
		}
		return store.NewStringItem(append([]byte(nil), args[2]...)), nil
	})
	if err == store.ErrWrongType {
		return wrongTypeErr()
	}
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	ctx.Store.Notify(ctx.DBIndex(), args[1])
	if prev == nil {
		return resp.NullBulk()
	}
	return resp.Bulk(prev.Str)
}
