/*
file: lucidkv/internal/command/handler_transaction.go

MULTI/EXEC/DISCARD/WATCH/UNWATCH, generalized from the teacher's
handler_transaction.go onto the Session state machine's TxQueue/Watched
fields and the epoch-based optimistic-concurrency scheme spec.md §4.4
calls for (store.Backend.KeyEpoch).
*/
package command

import (
	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/session"
)

func cmdMulti(ctx *Context, args [][]byte) resp.Value {
	if ctx.Session.Tx != session.TxOff {
		return resp.Error("ERR MULTI calls can not be nested")
	}
	ctx.Session.Tx = session.TxQueueing
	return okSimple()
}

func cmdDiscard(ctx *Context, args [][]byte) resp.Value {
	if ctx.Session.Tx == session.TxOff {
		return resp.Error("ERR DISCARD without MULTI")
	}
	ctx.Session.ResetTx()
	return okSimple()
}

func cmdWatch(ctx *Context, args [][]byte) resp.Value {
	if ctx.Session.Tx != session.TxOff {
		return resp.Error("ERR WATCH inside MULTI is not allowed")
	}
	db := ctx.DBIndex()
	for _, key := range args[1:] {
		epoch, err := ctx.Store.KeyEpoch(db, key)
		if err != nil {
			return resp.Errorf("ERR %s", err)
		}
		ctx.Session.Watch(db, string(key), epoch)
	}
	return okSimple()
}

func cmdUnwatch(ctx *Context, args [][]byte) resp.Value {
	ctx.Session.ClearWatch()
	return okSimple()
}

func cmdExec(ctx *Context, args [][]byte) resp.Value {
	if ctx.Session.Tx == session.TxOff {
		return resp.Error("ERR EXEC without MULTI")
	}
	if ctx.Session.Tx == session.TxDirty {
		ctx.Session.ResetTx()
		return resp.Error("EXECABORT Transaction discarded because of previous errors.")
	}

	db := ctx.DBIndex()
	for key, wantEpoch := range watchedForDB(ctx.Session, db) {
		curEpoch, err := ctx.Store.KeyEpoch(db, []byte(key))
		if err != nil || curEpoch != wantEpoch {
			ctx.Session.ResetTx()
			return resp.NullArray()
		}
	}

	queue := ctx.Session.TxQueue
	ctx.Session.ResetTx()

	replies := make([]resp.Value, len(queue))
	for i, cmd := range queue {
		replies[i] = ctx.Dispatch.ExecuteQueued(ctx.Session, cmd.Args)
	}
	return resp.Array(replies...)
}

// watchedForDB is a small adapter exposed here because Session keeps
// its watch set keyed by (db, key) but EXEC only ever validates the
// currently selected database's watches.
func watchedForDB(s *session.Session, db int) map[string]uint64 {
	out := make(map[string]uint64)
	for _, w := range s.Watches() {
		if w.DB == db {
			out[w.Key] = w.Epoch
		}
	}
	return out
}
