/*
file: lucidkv/internal/command/registry.go

Registry holds the command table the dispatcher consults (spec.md
§4.3): per command, arity, category/policy flags, a key-extractor, and
a handler. It generalizes the teacher's flat Handlers map (handlers.go)
into a structured CommandSpec so the dispatcher can answer "is this
queueable", "which args are keys", and "is this read or write" without
the handler itself being consulted.
*/
package command

import (
	"strings"

	"github.com/lucidkv/lucidkv/internal/resp"
	"github.com/lucidkv/lucidkv/internal/script"
	"github.com/lucidkv/lucidkv/internal/session"
)

// Flag is a bitset of policy attributes attached to a CommandSpec.
type Flag uint32

const (
	// FlagWrite marks a command that mutates the keyspace.
	FlagWrite Flag = 1 << iota
	// FlagAdmin marks a server-administration command (FLUSHALL, KEYS, MONITOR, ...).
	FlagAdmin
	// FlagNoScript forbids use from within EVAL.
	FlagNoScript
	// FlagBlocking marks a command that may suspend the connection
	// (BLPOP, BRPOP).
	FlagBlocking
	// FlagPubSub marks a command permitted while a connection is in
	// Subscription state.
	FlagPubSub
	// FlagNotQueueable marks a command that executes immediately even
	// inside MULTI (MULTI/EXEC/DISCARD/WATCH/UNWATCH/RESET, ...).
	FlagNotQueueable
	// FlagNoAuth marks a command permitted before authentication.
	FlagNoAuth
)

// KeyExtractor returns the arguments that name keys (the key byte
// strings themselves, picked from the full argument vector including
// the command name), used by the cluster layer to compute slots.
type KeyExtractor func(args [][]byte) [][]byte

// Handler executes one command against the given execution context and
// produces the RESP reply. Handlers never write to the connection
// directly; the dispatcher serializes whatever they return.
type Handler func(ctx *Context, args [][]byte) resp.Value

// CommandSpec describes one command's shape.
type CommandSpec struct {
	Name    string
	MinArgs int // total argument count including the command name itself
	MaxArgs int // -1 means unbounded
	Flags   Flag
	Keys    KeyExtractor
	Handler Handler
}

func (c *CommandSpec) checkArity(n int) bool {
	if n < c.MinArgs {
		return false
	}
	if c.MaxArgs >= 0 && n > c.MaxArgs {
		return false
	}
	return true
}

// firstKey is the common case: argument 1 (the first after the command
// name) is the only key.
func firstKey(args [][]byte) [][]byte {
	if len(args) < 2 {
		return nil
	}
	return [][]byte{args[1]}
}

// allArgsAreKeys covers variadic key commands (DEL, EXISTS, UNLINK, ...).
func allArgsAreKeys(args [][]byte) [][]byte {
	if len(args) < 2 {
		return nil
	}
	return args[1:]
}

// noKeys covers commands with no key argument (PING, CLUSTER, ...).
func noKeys(args [][]byte) [][]byte { return nil }

// Registry is the full command table, keyed by uppercased command name.
// It also owns the process-wide script cache EVAL/EVALSHA/SCRIPT share,
// since a loaded script's SHA must outlive any single connection.
type Registry struct {
	commands map[string]*CommandSpec
	scripts  *script.Cache
}

func NewRegistry() *Registry {
	r := &Registry{commands: make(map[string]*CommandSpec), scripts: script.NewCache()}
	registerAll(r)
	return r
}

// Scripts exposes the registry's script cache, e.g. for an INFO section
// reporting the cache's size or a CONFIG command resetting it.
func (r *Registry) Scripts() *script.Cache { return r.scripts }

func (r *Registry) register(spec *CommandSpec) {
	r.commands[spec.Name] = spec
}

// Lookup returns the spec for name (case-insensitive), or nil.
func (r *Registry) Lookup(name string) *CommandSpec {
	return r.commands[strings.ToUpper(name)]
}

// Context is the per-dispatch state a handler needs: the session that
// issued the command and the storage surface it executes against --
// normally the live Database, but during EVAL a staging view that
// layers uncommitted writes over it (spec.md §4.4).
type Context struct {
	Session  *session.Session
	Store    Store
	Hub      PubSub
	Server   Server
	Dispatch *Dispatcher
}

// DBIndex is the database the command should operate against: always
// the session's selected database.
func (c *Context) DBIndex() int { return c.Session.DB }
