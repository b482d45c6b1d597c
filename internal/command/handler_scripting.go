/*
file: lucidkv/internal/command/handler_scripting.go

EVAL, EVALSHA and SCRIPT, per spec.md §4.4/§4.9. Scripts run synchronously
to completion on the dispatching goroutine under ordinary command
handlers, reused unmodified through a txn.StagingView (spec.md §9's
callback seam) -- so redis.call never needs to know it is inside a
script rather than the live database.
*/
package command

import (
	"strconv"
	"strings"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/script"
	"github.com/lucidkv/lucidkv/internal/txn"
)

// ScriptCache is the narrow surface handler_scripting.go needs from
// script.Cache, kept as an interface so tests can substitute a fake.
type ScriptCache interface {
	Load(source string) (string, error)
	Get(sha string) (*script.Program, bool)
	Exists(shas []string) []bool
	Flush()
}

// scriptRunner is shared by cmdEval and cmdEvalSHA once the program and
// key/arg vectors have been resolved.
func scriptRunner(ctx *Context, prog *script.Program, args [][]byte) resp.Value {
	numKeys, err := strconv.Atoi(string(args[2]))
	if err != nil || numKeys < 0 {
		return resp.Error("ERR value is not an integer or out of range")
	}
	rest := args[3:]
	if numKeys > len(rest) {
		return resp.Error("ERR Number of keys can't be greater than number of args")
	}
	keyArgs, argv := rest[:numKeys], rest[numKeys:]

	keys := make([]string, len(keyArgs))
	for i, k := range keyArgs {
		keys[i] = string(k)
	}
	argvStrs := make([]string, len(argv))
	for i, a := range argv {
		argvStrs[i] = string(a)
	}

	view := txn.New(ctx.Store.(txn.Base))
	caller := func(callArgs [][]byte) resp.Value {
		return ctx.Dispatch.ExecuteAgainst(view, ctx.Session, callArgs)
	}

	result, err := script.Run(prog, keys, argvStrs, caller)
	if err != nil {
		view.Discard()
		switch e := err.(type) {
		case *script.CallError:
			return resp.Error(e.Message)
		case *script.EvalError:
			return resp.Errorf("ERR %s", e.Message)
		default:
			return resp.Errorf("ERR %s", err.Error())
		}
	}
	if err := view.Commit(); err != nil {
		return resp.Errorf("ERR %s", err.Error())
	}
	return script.ValueToResp(result)
}

func cmdEval(cache ScriptCache) Handler {
	return func(ctx *Context, args [][]byte) resp.Value {
		source := string(args[1])
		sha := script.Sum1(source)
		prog, ok := cache.Get(sha)
		if !ok {
			var err error
			if _, err = cache.Load(source); err != nil {
				return resp.Errorf("ERR Error compiling script: %s", err.Error())
			}
			prog, _ = cache.Get(sha)
		}
		return scriptRunner(ctx, prog, args)
	}
}

func cmdEvalSHA(cache ScriptCache) Handler {
	return func(ctx *Context, args [][]byte) resp.Value {
		sha := string(args[1])
		prog, ok := cache.Get(sha)
		if !ok {
			return resp.Error("NOSCRIPT No matching script. Please use EVAL.")
		}
		return scriptRunner(ctx, prog, args)
	}
}

func cmdScript(cache ScriptCache) Handler {
	return func(ctx *Context, args [][]byte) resp.Value {
		sub := string(args[1])
		switch strings.ToUpper(sub) {
		case "LOAD":
			if len(args) != 3 {
				return resp.Error("ERR wrong number of arguments for 'script|load' command")
			}
			sha, err := cache.Load(string(args[2]))
			if err != nil {
				return resp.Errorf("ERR Error compiling script: %s", err.Error())
			}
			return resp.BulkString(sha)

		case "EXISTS":
			shas := make([]string, len(args)-2)
			for i, a := range args[2:] {
				shas[i] = string(a)
			}
			found := cache.Exists(shas)
			out := make([]resp.Value, len(found))
			for i, ok := range found {
				if ok {
					out[i] = resp.Integer(1)
				} else {
					out[i] = resp.Integer(0)
				}
			}
			return resp.Array(out...)

		case "FLUSH":
			cache.Flush()
			return resp.SimpleString("OK")

		case "KILL":
			// Scripts run to completion on the calling goroutine with no
			// preemption point, so there is never a busy script to kill.
			return resp.Error("NOTBUSY No scripts in execution right now.")

		default:
			return resp.Errorf("ERR Unknown SCRIPT subcommand or wrong number of arguments for '%s'", sub)
		}
	}
}
