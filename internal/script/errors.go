package script

// CallError wraps a RESP error returned by redis.call, propagated as a
// Go error so it aborts the script the same way error("msg") does.
type CallError struct{ Message string }

func (e *CallError) Error() string { return e.Message }

// EvalError is a script-side failure at run time: an undefined local,
// a call to error(...), or a call to an unsupported builtin. Syntax
// errors are reported by Parse as plain errors, not as EvalError.
type EvalError struct{ Message string }

func (e *EvalError) Error() string { return e.Message }
