/*
file: lucidkv/internal/command/handler_set.go

Set commands, generalized from the teacher's handler_set.go onto the
Item tagged-variant model's plain map[string]struct{} representation.
*/
package command

import (
	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/store"
)

func cmdSAdd(ctx *Context, args [][]byte) resp.Value {
	var added int64
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		var it *store.Item
		if exists {
			if existing.Kind != store.KindSet {
				return nil, store.ErrWrongType
			}
			it = existing
		} else {
			it = &store.Item{Kind: store.KindSet, Set: make(map[string]struct{})}
		}
		for _, m := range args[2:] {
			if _, ok := it.Set[string(m)]; !ok {
				it.Set[string(m)] = struct{}{}
				added++
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
	return intReply(added)
}

func cmdSRem(ctx *Context, args [][]byte) resp.Value {
	var removed int64
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		if !exists {
			return nil, nil
		}
		if existing.Kind != store.KindSet {
			return nil, store.ErrWrongType
		}
		for _, m := range args[2:] {
			if _, ok := existing.Set[string(m)]; ok {
				delete(existing.Set, string(m))
				removed++
			}
		}
		if len(existing.Set) == 0 {
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

func cmdSMembers(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindSet)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return resp.Set()
	}
	out := make([]resp.Value, 0, len(it.Set))
	for m := range it.Set {
		out = append(out, resp.BulkString(m))
	}
	return resp.Set(out...)
}

func cmdSIsMember(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindSet)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return intReply(0)
	}
	if _, ok := it.Set[string(args[2])]; ok {
		return intReply(1)
	}
	return intReply(0)
}

func cmdSCard(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindSet)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return intReply(0)
	}
	return intReply(int64(len(it.Set)))
}

func setCombine(op func(a, b map[string]struct{}) map[string]struct{}) Handler {
	return func(ctx *Context, args [][]byte) resp.Value {
		var acc map[string]struct{}
		for i, key := range args[1:] {
			it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), key, store.KindSet)
			if wrongType {
				return wrongTypeErr()
			}
			var cur map[string]struct{}
			if exists {
				cur = it.Set
			} else {
				cur = map[string]struct{}{}
			}
			if i == 0 {
				acc = cloneSet(cur)
				continue
			}
			acc = op(acc, cur)
		}
		out := make([]resp.Value, 0, len(acc))
		for m := range acc {
			out = append(out, resp.BulkString(m))
		}
		return resp.Set(out...)
	}
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	c := make(map[string]struct{}, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

func setUnion(a, b map[string]struct{}) map[string]struct{} {
	for k := range b {
		a[k] = struct{}{}
	}
	return a
}

func setInter(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func setDiff(a, b map[string]struct{}) map[string]struct{} {
	for k := range b {
		delete(a, k)
	}
	return a
}
