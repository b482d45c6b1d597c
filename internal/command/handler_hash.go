/*
file: lucidkv/internal/command/handler_hash.go

Hash commands, generalized from the teacher's handler_hash.go onto
store.OrderedHash, which preserves field insertion order so HSCAN/
HKEYS/HVALS iterate deterministically across calls.
*/
package command

import (
	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/store"
)

func cmdHSet(ctx *Context, args [][]byte) resp.Value {
	pairs := args[2:]
	if len(pairs)%2 != 0 {
		return resp.Error("ERR wrong number of arguments for 'hset' command")
	}
	var created int64
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		var it *store.Item
		if exists {
			if existing.Kind != store.KindHash {
				return nil, store.ErrWrongType
			}
			it = existing
		} else {
			it = &store.Item{Kind: store.KindHash, Hash: store.NewOrderedHash()}
		}
		for i := 0; i < len(pairs); i += 2 {
			if it.Hash.Set(string(pairs[i]), append([]byte(nil), pairs[i+1]...)) {
				created++
			}
		}
		return it, nil
	})
	if err == store.ErrWrongType {
		return wrongTypeErr()
	}
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	ctx.Store.Notify(ctx.DBIndex(), args[1])
	return intReply(created)
}

func cmdHGet(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindHash)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return resp.NullBulk()
	}
	v, ok := it.Hash.Get(string(args[2]))
	if !ok {
		return resp.NullBulk()
	}
	return resp.Bulk(v)
}

func cmdHDel(ctx *Context, args [][]byte) resp.Value {
	var removed int64
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		if !exists {
			return nil, nil
		}
		if existing.Kind != store.KindHash {
			return nil, store.ErrWrongType
		}
		for _, field := range args[2:] {
			if existing.Hash.Delete(string(field)) {
				removed++
			}
		}
		if existing.Hash.Len() == 0 {
			return nil, nil
		}
		return existing, nil
	})
	if err == store.ErrWrongType {
		return wrongTypeErr()
	}
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if removed > 0 {
		ctx.Store.Notify(ctx.DBIndex(), args[1])
	}
	return intReply(removed)
}

func cmdHGetAll(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindHash)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return resp.Array()
	}
	fields := it.Hash.Fields()
	out := make([]resp.Value, 0, len(fields)*2)
	for _, f := range fields {
		v, _ := it.Hash.Get(f)
		out = append(out, resp.BulkString(f), resp.Bulk(v))
	}
	return resp.Array(out...)
}

func cmdHExists(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindHash)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return intReply(0)
	}
	if _, ok := it.Hash.Get(string(args[2])); ok {
		return intReply(1)
	}
	return intReply(0)
}

func cmdHLen(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindHash)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return intReply(0)
	}
	return intReply(int64(it.Hash.Len()))
}

func cmdHKeys(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindHash)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return resp.Array()
	}
	fields := it.Hash.Fields()
	out := make([]resp.Value, len(fields))
	for i, f := range fields {
		out[i] = resp.BulkString(f)
	}
	return resp.Array(out...)
}

func cmdHVals(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindHash)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return resp.Array()
	}
	fields := it.Hash.Fields()
	out := make([]resp.Value, len(fields))
	for i, f := range fields {
		v, _ := it.Hash.Get(f)
		out[i] = resp.Bulk(v)
	}
	return resp.Array(out...)
}

func cmdHIncrBy(ctx *Context, args [][]byte) resp.Value {
	delta, ok := parseInt(args[3])
	if !ok {
		return resp.Error("ERR value is not an integer or out of range")
	}
	var result int64
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		var it *store.Item
		if exists {
			if existing.Kind != store.KindHash {
				return nil, store.ErrWrongType
			}
			it = existing
		} else {
			it = &store.Item{Kind: store.KindHash, Hash: store.NewOrderedHash()}
		}
		var cur int64
		if v, ok := it.Hash.Get(string(args[2])); ok {
			n, ok := parseInt(v)
			if !ok {
				return nil, errNotInteger
			}
			cur = n
		}
		result = cur + delta
		it.Hash.Set(string(args[2]), []byte(itoa(result)))
		return it, nil
	})
	if err == store.ErrWrongType {
		return wrongTypeErr()
	}
	if err == errNotInteger {
		return resp.Error("ERR hash value is not an integer")
	}
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	ctx.Store.Notify(ctx.DBIndex(), args[1])
	return intReply(result)
}

func cmdHMGet(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindHash)
	if wrongType {
		return wrongTypeErr()
	}
	out := make([]resp.Value, len(args)-2)
	for i, field := range args[2:] {
		if !exists {
			out[i] = resp.NullBulk()
			continue
		}
		if v, ok := it.Hash.Get(string(field)); ok {
			out[i] = resp.Bulk(v)
		} else {
			out[i] = resp.NullBulk()
		}
	}
	return resp.Array(out...)
}
