/*
file: lucidkv/internal/command/handler_zset.go

Sorted-set commands, generalized from the teacher's handler_zset.go
onto store.SortedSet, which maintains (score, member) order internally
so range queries need no per-call sort.
*/
package command

import (
	"math"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/store"
)

func cmdZAdd(ctx *Context, args [][]byte) resp.Value {
	pairs := args[2:]
	if len(pairs)%2 != 0 {
		return resp.Error("ERR wrong number of arguments for 'zadd' command")
	}
	var added int64
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		var it *store.Item
		if exists {
			if existing.Kind != store.KindZSet {
				return nil, store.ErrWrongType
			}
			it = existing
		} else {
			it = &store.Item{Kind: store.KindZSet, ZSet: store.NewSortedSet()}
		}
		for i := 0; i < len(pairs); i += 2 {
			score, ok := parseFloat(pairs[i])
			if !ok {
				return nil, errNotFloat
			}
			if it.ZSet.Add(string(pairs[i+1]), score) {
				added++
			}
		}
		return it, nil
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
	return intReply(added)
}

func cmdZRem(ctx *Context, args [][]byte) resp.Value {
	var removed int64
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		if !exists {
			return nil, nil
		}
		if existing.Kind != store.KindZSet {
			return nil, store.ErrWrongType
		}
		for _, m := range args[2:] {
			if existing.ZSet.Remove(string(m)) {
				removed++
			}
		}
		if existing.ZSet.Len() == 0 {
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

func cmdZScore(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindZSet)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return resp.NullBulk()
	}
	score, ok := it.ZSet.Score(string(args[2]))
	if !ok {
		return resp.NullBulk()
	}
	return formatFloatReply(score)
}

func cmdZCard(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindZSet)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return intReply(0)
	}
	return intReply(int64(it.ZSet.Len()))
}

func cmdZIncrBy(ctx *Context, args [][]byte) resp.Value {
	delta, ok := parseFloat(args[2])
	if !ok {
		return resp.Error("ERR value is not a valid float")
	}
	var result float64
	_, err := ctx.Store.Mutate(ctx.DBIndex(), args[1], func(existing *store.Item, exists bool) (*store.Item, error) {
		var it *store.Item
		if exists {
			if existing.Kind != store.KindZSet {
				return nil, store.ErrWrongType
			}
			it = existing
		} else {
			it = &store.Item{Kind: store.KindZSet, ZSet: store.NewSortedSet()}
		}
		cur, _ := it.ZSet.Score(string(args[3]))
		result = cur + delta
		if math.IsNaN(result) {
			return nil, errNotFloat
		}
		it.ZSet.Add(string(args[3]), result)
		return it, nil
	})
	if err == store.ErrWrongType {
		return wrongTypeErr()
	}
	if err == errNotFloat {
		return resp.Error("ERR resulting score is not a number (NaN)")
	}
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	ctx.Store.Notify(ctx.DBIndex(), args[1])
	return formatFloatReply(result)
}

func zRange(reverse bool) Handler {
	return func(ctx *Context, args [][]byte) resp.Value {
		it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindZSet)
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
		withScores := len(args) > 4 && upperStr(args[4]) == "WITHSCORES"

		members := it.ZSet.Range(int(start), int(stop))
		if reverse {
			for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
				members[i], members[j] = members[j], members[i]
			}
		}
		out := make([]resp.Value, 0, len(members))
		for _, m := range members {
			out = append(out, resp.BulkString(m.Member))
			if withScores {
				out = append(out, formatFloatReply(m.Score))
			}
		}
		return resp.Array(out...)
	}
}

func cmdZRangeByScore(ctx *Context, args [][]byte) resp.Value {
	it, exists, wrongType := getTyped(ctx.Store, ctx.DBIndex(), args[1], store.KindZSet)
	if wrongType {
		return wrongTypeErr()
	}
	if !exists {
		return resp.Array()
	}
	min, minExcl, ok1 := parseScoreBound(args[2])
	max, maxExcl, ok2 := parseScoreBound(args[3])
	if !ok1 || !ok2 {
		return resp.Error("ERR min or max is not a float")
	}
	withScores := len(args) > 4 && upperStr(args[4]) == "WITHSCORES"
	members := it.ZSet.RangeByScore(min, max, minExcl, maxExcl)
	out := make([]resp.Value, 0, len(members))
	for _, m := range members {
		out = append(out, resp.BulkString(m.Member))
		if withScores {
			out = append(out, formatFloatReply(m.Score))
		}
	}
	return resp.Array(out...)
}

func parseScoreBound(b []byte) (value float64, exclusive bool, ok bool) {
	s := string(b)
	if len(s) > 0 && s[0] == '(' {
		exclusive = true
		s = s[1:]
	}
	switch s {
	case "-inf":
		return math.Inf(-1), exclusive, true
	case "+inf", "inf":
		return math.Inf(1), exclusive, true
	}
	f, ok := parseFloat([]byte(s))
	return f, exclusive, ok
}
