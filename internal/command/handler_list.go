/*
file: lucidkv/internal/command/handler_list.go

List commands, generalized from the teacher's handler_list.go onto the
Item tagged-variant model. BLPOP/BRPOP are additions wiring
spec.md §5's blocking-command design note onto store.Database's
Notify/Wait condition-variable pair; the teacher never implemented a
blocking variant of any list command.
*/
package command

import (
	"context"
	"time"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/store"
)

func listPush(left bool) Handler {
	return func(ctx *Context, args [][]byte) resp.Value {
		values := args[2:]
		var length int
		result, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
			var it *store.Item
			if exists {
				if existing.Kind != store.KindList {
					return nil, store.ErrWrongType
				}
				it = existing
			} else {
				it = &store.Item{Kind: store.KindList}
			}
			for _, v := range values {
				cp := append([]byte(nil), v...)
				if left {
					it.List = append([][]byte{cp}, it.List...)
				} else {
					it.List = append(it.List, cp)
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
		length = len(result.List)
		ctx.Store.Notify(ctx.DBIndex(), args[1])
		return intReply(int64(length))
	}
}

func listPop(left bool) Handler {
	return func(ctx *Context, args [][]byte) resp.Value {
		count := 1
		hasCount := len(args) > 2
		if hasCount {
			n, ok := parseInt(args[2])
			if !ok || n < 0 {
				return resp.Error("ERR value is out of range, must be positive")
			}
			count = int(n)
		}
		var popped [][]byte
		_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
			if !exists {
				return nil, nil
			}
			if existing.Kind != store.KindList {
				return nil, store.ErrWrongType
			}
			n := count
			if n > len(existing.List) {
				n = len(existing.List)
			}
			if left {
				popped = existing.List[:n]
				existing.List = existing.List[n:]
			} else {
				popped = existing.List[len(existing.List)-n:]
				existing.List = existing.List[:len(existing.List)-n]
			}
			if len(existing.List) == 0 {
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
		if len(popped) > 0 {
			ctx.Store.Notify(ctx.DBIndex(), args[1])
		}
		if !hasCount {
			if len(popped) == 0 {
				return resp.NullBulk()
			}
			return resp.Bulk(popped[0])
		}
		if popped == nil {
			return resp.NullArray()
		}
		out := make([]resp.Value, len(popped))
		for i, v := range popped {
			out[i] = resp.Bulk(v)
		}
		return resp.Array(out...)
	}
}

func cmdLRange(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindList)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return resp.Array()
	}
	start, ok1 := parseInt(args[2])
	stop, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		return resp.Error("ERR value is not an integer or out of range")
	}
	n := len(it.List)
	lo := normalizeListIndex(int(start), n)
	hi := normalizeListIndex(int(stop), n)
	if hi >= n {
		hi = n - 1
	}
	if lo < 0 {
		lo = 0
	}
	if lo > hi || n == 0 {
		return resp.Array()
	}
	out := make([]resp.Value, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, resp.Bulk(it.List[i]))
	}
	return resp.Array(out...)
}

func cmdLLen(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindList)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return intReply(0)
	}
	return intReply(int64(len(it.List)))
}

func cmdLIndex(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindList)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return resp.NullBulk()
	}
	idx, ok := parseInt(args[2])
	if !ok {
		return resp.Error("ERR value is not an integer or out of range")
	}
	i := normalizeListIndex(int(idx), len(it.List))
	if i < 0 || i >= len(it.List) {
		return resp.NullBulk()
	}
	return resp.Bulk(it.List[i])
}

func cmdLSet(ctx *Context, args [][]byte) resp.Value {
	idx, ok := parseInt(args[2])
	if !ok {
		return resp.Error("ERR value is not an integer or out of range")
	}
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		if !exists {
			return nil, errNoSuchKey
		}
		if existing.Kind != store.KindList {
			return nil, store.ErrWrongType
		}
		i := normalizeListIndex(int(idx), len(existing.List))
		if i < 0 || i >= len(existing.List) {
			return nil, errOutOfRange
		}
		existing.List[i] = append([]byte(nil), args[3]...)
		return existing, nil
	})
	switch err {
	case nil:
		ctx.Store.Notify(ctx.DBIndex(), args[1])
		return okSimple()
	case store.ErrWrongType:
		return wrongTypeErr()
	case errNoSuchKey:
		return resp.Error("ERR no such key")
	case errOutOfRange:
		return resp.Error("ERR index out of range")
	default:
		return resp.Errorf("ERR %s", err)
	}
}

func cmdLTrim(ctx *Context, args [][]byte) resp.Value {
	start, ok1 := parseInt(args[2])
	stop, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		return resp.Error("ERR value is not an integer or out of range")
	}
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		if !exists {
			return nil, nil
		}
		if existing.Kind != store.KindList {
			return nil, store.ErrWrongType
		}
		n := len(existing.List)
		lo := normalizeListIndex(int(start), n)
		hi := normalizeListIndex(int(stop), n)
		if hi >= n {
			hi = n - 1
		}
		if lo < 0 {
			lo = 0
		}
		if lo > hi {
			return nil, nil
		}
		existing.List = existing.List[lo : hi+1]
		if len(existing.List) == 0 {
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
	ctx.Store.Notify(ctx.DBIndex(), args[1])
	return okSimple()
}

func blockingListPop(left bool) Handler {
	return func(ctx *Context, args [][]byte) resp.Value {
		keys := args[1 : len(args)-1]
		timeoutSec, ok := parseFloat(args[len(args)-1])
		if !ok || timeoutSec < 0 {
			return resp.Error("ERR timeout is not a float or out of range")
		}
		deadline := time.Duration(timeoutSec * float64(time.Second))
		start := time.Now()
		for {
			for _, key := range keys {
				popReply := listPop(left)(ctx, [][]byte{args[0], key})
				if !popReply.IsNil() {
					return resp.Array(resp.Bulk(key), popReply)
				}
			}
			var remaining time.Duration
			if deadline > 0 {
				remaining = deadline - time.Since(start)
				if remaining <= 0 {
					return resp.NullArray()
				}
			}
			woke := false
			for _, key := range keys {
				if ctx.Store.Wait(context.Background(), ctx.DBIndex(), key, remaining) {
					woke = true
					break
				}
			}
			if !woke && deadline > 0 && time.Since(start) >= deadline {
				return resp.NullArray()
			}
		}
	}
}

func normalizeListIndex(i, n int) int {
	if i < 0 {
		return n + i
	}
	return i
}
