/*
file: lucidkv/internal/command/handler_pubsub.go

PUBLISH/SUBSCRIBE family, generalized from the teacher's
handler_pubsub.go onto session.Hub's channel/pattern maps and the
Session.State Subscription transition spec.md §4.5 requires.
*/
package command

import (
	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/session"
)

func cmdPublish(ctx *Context, args [][]byte) resp.Value {
	n := ctx.Hub.Publish(string(args[1]), args[2])
	return intReply(int64(n))
}

func cmdSubscribe(ctx *Context, args [][]byte) resp.Value {
	for _, channel := range args[1:] {
		ctx.Hub.Subscribe(ctx.Session, string(channel))
		ctx.Session.State = session.StateSubscription
		_ = ctx.Session.WriteValue(resp.Push(
			resp.BulkString("subscribe"),
			resp.BulkString(string(channel)),
			resp.Integer(int64(len(ctx.Session.Subscriptions)+len(ctx.Session.PSubscriptions))),
		))
	}
	return resp.NoReply()
}

func cmdUnsubscribe(ctx *Context, args [][]byte) resp.Value {
	channels := args[1:]
	if len(channels) == 0 {
		for ch := range ctx.Session.Subscriptions {
			channels = append(channels, []byte(ch))
		}
	}
	for _, channel := range channels {
		ctx.Hub.Unsubscribe(ctx.Session, string(channel))
		_ = ctx.Session.WriteValue(resp.Push(
			resp.BulkString("unsubscribe"),
			resp.BulkString(string(channel)),
			resp.Integer(int64(len(ctx.Session.Subscriptions)+len(ctx.Session.PSubscriptions))),
		))
	}
	if !ctx.Session.HasSubscriptions() {
		ctx.Session.State = session.StateNormal
	}
	return resp.NoReply()
}

func cmdPSubscribe(ctx *Context, args [][]byte) resp.Value {
	for _, pattern := range args[1:] {
		ctx.Hub.PSubscribe(ctx.Session, string(pattern))
		ctx.Session.State = session.StateSubscription
		_ = ctx.Session.WriteValue(resp.Push(
			resp.BulkString("psubscribe"),
			resp.BulkString(string(pattern)),
			resp.Integer(int64(len(ctx.Session.Subscriptions)+len(ctx.Session.PSubscriptions))),
		))
	}
	return resp.NoReply()
}

func cmdPUnsubscribe(ctx *Context, args [][]byte) resp.Value {
	patterns := args[1:]
	if len(patterns) == 0 {
		for p := range ctx.Session.PSubscriptions {
			patterns = append(patterns, []byte(p))
		}
	}
	for _, pattern := range patterns {
		ctx.Hub.PUnsubscribe(ctx.Session, string(pattern))
		_ = ctx.Session.WriteValue(resp.Push(
			resp.BulkString("punsubscribe"),
			resp.BulkString(string(pattern)),
			resp.Integer(int64(len(ctx.Session.Subscriptions)+len(ctx.Session.PSubscriptions))),
		))
	}
	if !ctx.Session.HasSubscriptions() {
		ctx.Session.State = session.StateNormal
	}
	return resp.NoReply()
}
