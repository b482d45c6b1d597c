/*
file: lucidkv/internal/command/handler_connection.go

Connection-scoped commands, generalized from the teacher's
handler_connection.go onto the richer Session state machine (RESP3
HELLO negotiation, CLIENT, RESET) spec.md §4.5 describes.
*/
package command

import (
	"github.com/lucidkv/lucidkv/internal/resp"
)

func cmdPing(ctx *Context, args [][]byte) resp.Value {
	if len(args) > 1 {
		return resp.Bulk(args[1])
	}
	return resp.SimpleString("PONG")
}

func cmdEcho(ctx *Context, args [][]byte) resp.Value {
	return resp.Bulk(args[1])
}

func cmdSelect(ctx *Context, args [][]byte) resp.Value {
	n, ok := parseInt(args[1])
	if !ok || n < 0 || int(n) >= ctx.Store.NumDatabases() {
		return resp.Error("ERR DB index is out of range")
	}
	ctx.Session.DB = int(n)
	return okSimple()
}

func cmdAuth(ctx *Context, args [][]byte) resp.Value {
	password := args[1]
	if len(args) == 3 {
		password = args[2] // AUTH <username> <password>
	}
	if ctx.Server.RequirePass() == "" {
		return resp.Error("ERR Client sent AUTH, but no password is set")
	}
	if string(password) != ctx.Server.RequirePass() {
		return resp.Error("WRONGPASS invalid username-password pair or user is disabled")
	}
	ctx.Session.Authenticated = true
	return okSimple()
}

func cmdHello(ctx *Context, args [][]byte) resp.Value {
	version := ctx.Session.RespVersion
	if len(args) > 1 {
		n, ok := parseInt(args[1])
		if !ok || (n != 2 && n != 3) {
			return resp.Error("NOPROTO unsupported protocol version")
		}
		version = int(n)
	}
	for i := 2; i < len(args); i++ {
		switch upperStr(args[i]) {
		case "AUTH":
			if i+2 >= len(args) {
				return resp.Error("ERR syntax error")
			}
			reply := cmdAuth(ctx, [][]byte{args[0], args[i+1], args[i+2]})
			if reply.Kind == resp.KindError {
				return reply
			}
			i += 2
		case "SETNAME":
			i++
		}
	}
	ctx.Session.RespVersion = version
	return resp.MapOf(
		resp.MapEntry{Key: resp.BulkString("server"), Val: resp.BulkString("lucidkv")},
		resp.MapEntry{Key: resp.BulkString("version"), Val: resp.BulkString("1.0.0")},
		resp.MapEntry{Key: resp.BulkString("proto"), Val: resp.Integer(int64(version))},
		resp.MapEntry{Key: resp.BulkString("id"), Val: resp.BulkString(ctx.Session.ID)},
		resp.MapEntry{Key: resp.BulkString("mode"), Val: resp.BulkString("standalone")},
		resp.MapEntry{Key: resp.BulkString("role"), Val: resp.BulkString("master")},
	)
}

func cmdReset(ctx *Context, args [][]byte) resp.Value {
	ctx.Hub.UnsubscribeAll(ctx.Session)
	ctx.Session.Reset()
	return resp.SimpleString("RESET")
}

func cmdClient(ctx *Context, args [][]byte) resp.Value {
	switch upperStr(args[1]) {
	case "ID":
		return resp.BulkString(ctx.Session.ID)
	case "GETNAME":
		return resp.NullBulk()
	case "SETNAME":
		return okSimple()
	case "LIST", "INFO":
		return resp.BulkString("id=" + ctx.Session.ID)
	default:
		return resp.Errorf("ERR unknown CLIENT subcommand '%s'", args[1])
	}
}

func cmdMonitorCmd(ctx *Context, args [][]byte) resp.Value {
	ctx.Session.Monitor = true
	if ctx.Dispatch != nil && ctx.Dispatch.Monitors != nil {
		ctx.Dispatch.Monitors.Attach(ctx.Session)
	}
	return okSimple()
}

func cmdReadOnly(ctx *Context, args [][]byte) resp.Value {
	return okSimple()
}

func cmdReadWrite(ctx *Context, args [][]byte) resp.Value {
	return okSimple()
}

func cmdAsking(ctx *Context, args [][]byte) resp.Value {
	ctx.Session.ClusterAsking = true
	return okSimple()
}
