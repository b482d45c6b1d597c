/*
file: lucidkv/internal/command/handler_generic.go

Generic key-space commands: DEL/EXISTS/EXPIRE/TTL/PERSIST/TYPE/SCAN/
KEYS/RENAME/COPY/MOVE/DBSIZE/RANDOMKEY/TIME, generalized from the
teacher's handler_key.go onto the Item tagged-variant model. COPY and
DBSIZE/RANDOMKEY/TIME are additions supplementing the distillation
(SPEC_FULL.md §4.3).
*/
package command

import (
	"time"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/store"
)

func cmdDel(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Store.Delete(ctx.DBIndex(), args[1:]...)
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	for _, k := range args[1:] {
		ctx.Store.Notify(ctx.DBIndex(), k)
	}
	return intReply(int64(n))
}

func cmdExists(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Store.Exists(ctx.DBIndex(), args[1:]...)
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	return intReply(int64(n))
}

func cmdExpire(ctx *Context, args [][]byte) resp.Value {
	seconds, ok := parseInt(args[2])
	if !ok {
		return resp.Error("ERR value is not an integer or out of range")
	}
	mode := store.ExpireAlways
	if len(args) > 3 {
		switch upperStr(args[3]) {
		case "NX":
			mode = store.ExpireNX
		case "XX":
			mode = store.ExpireXX
		case "GT":
			mode = store.ExpireGT
		case "LT":
			mode = store.ExpireLT
		default:
			return resp.Error("ERR Unsupported option")
		}
	}
	ok2, err := ctx.Store.Expire(ctx.DBIndex(), args[1], time.Now().Add(time.Duration(seconds)*time.Second), mode)
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if ok2 {
		ctx.Store.Notify(ctx.DBIndex(), args[1])
		return intReply(1)
	}
	return intReply(0)
}

func cmdPExpireAt(ctx *Context, args [][]byte) resp.Value {
	ms, ok := parseInt(args[2])
	if !ok {
		return resp.Error("ERR value is not an integer or out of range")
	}
	applied, err := ctx.Store.Expire(ctx.DBIndex(), args[1], time.UnixMilli(ms), store.ExpireAlways)
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if applied {
		ctx.Store.Notify(ctx.DBIndex(), args[1])
		return intReply(1)
	}
	return intReply(0)
}

func cmdTTL(ctx *Context, args [][]byte) resp.Value {
	d, ok, err := ctx.Store.TTL(ctx.DBIndex(), args[1])
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if !ok {
		return intReply(-2)
	}
	if d < 0 {
		return intReply(-1)
	}
	return intReply(int64(d.Round(time.Second) / time.Second))
}

func cmdPTTL(ctx *Context, args [][]byte) resp.Value {
	d, ok, err := ctx.Store.TTL(ctx.DBIndex(), args[1])
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if !ok {
		return intReply(-2)
	}
	if d < 0 {
		return intReply(-1)
	}
	return intReply(int64(d / time.Millisecond))
}

func cmdPersist(ctx *Context, args [][]byte) resp.Value {
	ok, err := ctx.Store.Persist(ctx.DBIndex(), args[1])
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if ok {
		return intReply(1)
	}
	return intReply(0)
}

func cmdType(ctx *Context, args [][]byte) resp.Value {
	it, ok, err := ctx.Store.Get(ctx.DBIndex(), args[1])
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if !ok {
		return resp.SimpleString("none")
	}
	return resp.SimpleString(it.Kind.String())
}

func cmdKeys(ctx *Context, args [][]byte) resp.Value {
	keys, err := ctx.Store.Keys(ctx.DBIndex(), string(args[1]))
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	out := make([]resp.Value, len(keys))
	for i, k := range keys {
		out[i] = resp.Bulk(k)
	}
	return resp.Array(out...)
}

func cmdScan(ctx *Context, args [][]byte) resp.Value {
	cursor, ok := parseUint(args[1])
	if !ok {
		return resp.Error("ERR invalid cursor")
	}
	match := "*"
	count := 10
	typ := ""
	for i := 2; i < len(args); i++ {
		switch upperStr(args[i]) {
		case "MATCH":
			i++
			if i >= len(args) {
				return resp.Error("ERR syntax error")
			}
			match = string(args[i])
		case "COUNT":
			i++
			if i >= len(args) {
				return resp.Error("ERR syntax error")
			}
			n, ok := parseInt(args[i])
			if !ok || n <= 0 {
				return resp.Error("ERR value is not an integer or out of range")
			}
			count = int(n)
		case "TYPE":
			i++
			if i >= len(args) {
				return resp.Error("ERR syntax error")
			}
			typ = string(args[i])
		default:
			return resp.Error("ERR syntax error")
		}
	}
	next, keys, err := ctx.Store.Scan(ctx.DBIndex(), cursor, match, count, typ)
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	items := make([]resp.Value, len(keys))
	for i, k := range keys {
		items[i] = resp.Bulk(k)
	}
	return resp.Array(resp.BulkString(itoa(int64(next))), resp.Array(items...))
}

func cmdRename(ctx *Context, args [][]byte) resp.Value {
	db := ctx.DBIndex()
	it, ok, err := ctx.Store.Get(db, args[1])
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if !ok {
		return resp.Error("ERR no such key")
	}
	ops := []store.BatchOp{
		{Key: args[2], Item: it.Clone()},
		{Key: args[1], Delete: true},
	}
	if err := ctx.Store.WriteBatch(db, ops); err != nil {
		return resp.Errorf("ERR %s", err)
	}
	ctx.Store.Notify(db, args[1])
	ctx.Store.Notify(db, args[2])
	return okSimple()
}

func cmdCopy(ctx *Context, args [][]byte) resp.Value {
	srcDB := ctx.DBIndex()
	dstDB := srcDB
	replace := false
	for i := 3; i < len(args); i++ {
		switch upperStr(args[i]) {
		case "DB":
			i++
			if i >= len(args) {
				return resp.Error("ERR syntax error")
			}
			n, ok := parseInt(args[i])
			if !ok {
				return resp.Error("ERR value is not an integer or out of range")
			}
			dstDB = int(n)
		case "REPLACE":
			replace = true
		default:
			return resp.Error("ERR syntax error")
		}
	}
	if dstDB != srcDB && ctx.Server != nil && ctx.Server.ClusterEnabled() {
		return resp.Error("CROSSSLOT cross-database COPY is not allowed in cluster mode")
	}
	it, ok, err := ctx.Store.Get(srcDB, args[1])
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if !ok {
		return intReply(0)
	}
	if !replace {
		if _, exists, _ := ctx.Store.Get(dstDB, args[2]); exists {
			return intReply(0)
		}
	}
	_, applied, err := ctx.Store.Set(dstDB, args[2], it.Clone(), store.SetOptions{})
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if !applied {
		return intReply(0)
	}
	ctx.Store.Notify(dstDB, args[2])
	return intReply(1)
}

func cmdMove(ctx *Context, args [][]byte) resp.Value {
	srcDB := ctx.DBIndex()
	dstDB, ok := parseInt(args[2])
	if !ok {
		return resp.Error("ERR value is not an integer or out of range")
	}
	if int(dstDB) != srcDB && ctx.Server != nil && ctx.Server.ClusterEnabled() {
		return resp.Error("CROSSSLOT cross-database MOVE is not allowed in cluster mode")
	}
	it, exists, err := ctx.Store.Get(srcDB, args[1])
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if !exists {
		return intReply(0)
	}
	if _, alreadyThere, _ := ctx.Store.Get(int(dstDB), args[1]); alreadyThere {
		return intReply(0)
	}
	_, applied, err := ctx.Store.Set(int(dstDB), args[1], it.Clone(), store.SetOptions{})
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if !applied {
		return intReply(0)
	}
	_, _ = ctx.Store.Delete(srcDB, args[1])
	ctx.Store.Notify(srcDB, args[1])
	ctx.Store.Notify(int(dstDB), args[1])
	return intReply(1)
}

func cmdDBSize(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Store.DBSize(ctx.DBIndex())
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	return intReply(int64(n))
}

func cmdRandomKey(ctx *Context, args [][]byte) resp.Value {
	k, ok, err := ctx.Store.RandomKey(ctx.DBIndex())
	if err != nil {
		return resp.Errorf("ERR %s", err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.Bulk(k)
}

func cmdTime(ctx *Context, args [][]byte) resp.Value {
	now := time.Now()
	return resp.Array(
		resp.BulkString(itoa(now.Unix())),
		resp.BulkString(itoa(int64(now.Nanosecond()/1000))),
	)
}

func cmdFlushDB(ctx *Context, args [][]byte) resp.Value {
	if err := ctx.Store.FlushDB(ctx.DBIndex()); err != nil {
		return resp.Errorf("ERR %s", err)
	}
	return okSimple()
}

func cmdFlushAll(ctx *Context, args [][]byte) resp.Value {
	if err := ctx.Store.FlushAll(); err != nil {
		return resp.Errorf("ERR %s", err)
	}
	return okSimple()
}

func parseUint(b []byte) (uint64, bool) {
	n, ok := parseInt(b)
	if !ok || n < 0 {
		return 0, false
	}
	return uint64(n), true
}
