/*
file: lucidkv/internal/script/interpreter.go

Tree-walking evaluator for the Program AST. redis.call is the one
callback seam (spec.md §9): the interpreter itself never touches
storage, it only invokes Caller with already-coerced argument bytes.
*/
package script

import "github.com/lucidkv/lucidkv/internal/resp"

// Caller dispatches one command's argument vector (args[0] is the
// command name) and returns its RESP reply, exactly as the ordinary
// dispatcher would -- against whatever storage view the script runs
// against (internal/txn.StagingView in production).
type Caller func(args [][]byte) resp.Value

// Run evaluates prog, calling caller for every redis.call, and returns
// the script's return value (nil if it fell off the end without a
// "return") or the error that aborted it.
func Run(prog *Program, keys, argv []string, caller Caller) (Value, error) {
	env := &environment{
		locals: make(map[string]Value),
		caller: caller,
	}
	env.locals["KEYS"] = stringsToValues(keys)
	env.locals["ARGV"] = stringsToValues(argv)

	for _, stmt := range prog.Stmts {
		switch s := stmt.(type) {
		case LocalStmt:
			v, err := env.eval(s.Value)
			if err != nil {
				return nil, err
			}
			env.locals[s.Name] = v

		case ExprStmt:
			if _, err := env.eval(s.Value); err != nil {
				return nil, err
			}

		case ReturnStmt:
			if s.Value == nil {
				return nil, nil
			}
			return env.eval(s.Value)
		}
	}
	return nil, nil
}

type environment struct {
	locals map[string]Value
	caller Caller
}

func (env *environment) eval(expr Expr) (Value, error) {
	switch e := expr.(type) {
	case StringLit:
		return e.Value, nil

	case NumberLit:
		return e.Value, nil

	case Ident:
		v, ok := env.locals[e.Name]
		if !ok {
			return nil, &EvalError{Message: "script: undefined variable " + e.Name}
		}
		return v, nil

	case IndexExpr:
		target, err := env.eval(e.Target)
		if err != nil {
			return nil, err
		}
		idx, err := env.eval(e.Index)
		if err != nil {
			return nil, err
		}
		arr, ok := target.([]Value)
		if !ok {
			return nil, &EvalError{Message: "script: indexing a non-table value"}
		}
		n, ok := idx.(float64)
		if !ok {
			return nil, &EvalError{Message: "script: table index must be a number"}
		}
		i := int(n) - 1 // Lua arrays are 1-based
		if i < 0 || i >= len(arr) {
			return nil, nil
		}
		return arr[i], nil

	case TableLit:
		items := make([]Value, len(e.Items))
		for i, item := range e.Items {
			v, err := env.eval(item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return items, nil

	case CallExpr:
		return env.evalCall(e)

	default:
		return nil, &EvalError{Message: "script: unsupported expression"}
	}
}

func (env *environment) evalCall(c CallExpr) (Value, error) {
	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		v, err := env.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch {
	case c.Receiver == "redis" && c.Method == "call":
		return env.callRedis(args)

	case c.Receiver == "redis" && c.Method == "error_reply":
		msg, ok := args[0].(string)
		if !ok {
			return nil, &EvalError{Message: "script: redis.error_reply expects a string"}
		}
		return errTable{msg: msg}, nil

	case c.Receiver == "redis" && c.Method == "status_reply":
		msg, ok := args[0].(string)
		if !ok {
			return nil, &EvalError{Message: "script: redis.status_reply expects a string"}
		}
		return okTable{msg: msg}, nil

	case c.Receiver == "" && c.Method == "error":
		msg := "script error"
		if len(args) > 0 {
			if s, ok := args[0].(string); ok {
				msg = s
			}
		}
		return nil, &EvalError{Message: msg}

	default:
		name := c.Method
		if c.Receiver != "" {
			name = c.Receiver + "." + c.Method
		}
		return nil, &EvalError{Message: "script: unsupported function " + name}
	}
}

func (env *environment) callRedis(args []Value) (Value, error) {
	if len(args) == 0 {
		return nil, &EvalError{Message: "script: redis.call requires a command name"}
	}
	argBytes := make([][]byte, len(args))
	for i, a := range args {
		b, err := ArgBytes(a)
		if err != nil {
			return nil, err
		}
		argBytes[i] = b
	}
	reply := env.caller(argBytes)
	return RespToValue(reply)
}

func stringsToValues(ss []string) []Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
