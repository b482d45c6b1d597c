/*
file: lucidkv/internal/command/register.go

registerAll wires every CommandSpec into the Registry's command table,
generalizing the teacher's handlers.go init-time map literal into the
richer CommandSpec shape (arity, flags, key extractor) spec.md §4.3
requires for MULTI queueing and cluster slot routing decisions.
*/
package command

import "strconv"

func registerAll(r *Registry) {
	// Connection / server.
	r.register(&CommandSpec{Name: "PING", MinArgs: 1, MaxArgs: 2, Flags: FlagPubSub | FlagNoAuth, Keys: noKeys, Handler: cmdPing})
	r.register(&CommandSpec{Name: "ECHO", MinArgs: 2, MaxArgs: 2, Keys: noKeys, Handler: cmdEcho})
	r.register(&CommandSpec{Name: "SELECT", MinArgs: 2, MaxArgs: 2, Keys: noKeys, Handler: cmdSelect})
	r.register(&CommandSpec{Name: "AUTH", MinArgs: 2, MaxArgs: 3, Flags: FlagNoAuth, Keys: noKeys, Handler: cmdAuth})
	r.register(&CommandSpec{Name: "HELLO", MinArgs: 1, MaxArgs: -1, Flags: FlagNoAuth, Keys: noKeys, Handler: cmdHello})
	r.register(&CommandSpec{Name: "RESET", MinArgs: 1, MaxArgs: 1, Flags: FlagNoAuth | FlagNotQueueable | FlagPubSub, Keys: noKeys, Handler: cmdReset})
	r.register(&CommandSpec{Name: "CLIENT", MinArgs: 2, MaxArgs: -1, Keys: noKeys, Handler: cmdClient})
	r.register(&CommandSpec{Name: "MONITOR", MinArgs: 1, MaxArgs: 1, Flags: FlagAdmin, Keys: noKeys, Handler: cmdMonitorCmd})
	r.register(&CommandSpec{Name: "READONLY", MinArgs: 1, MaxArgs: 1, Keys: noKeys, Handler: cmdReadOnly})
	r.register(&CommandSpec{Name: "READWRITE", MinArgs: 1, MaxArgs: 1, Keys: noKeys, Handler: cmdReadWrite})
	r.register(&CommandSpec{Name: "ASKING", MinArgs: 1, MaxArgs: 1, Keys: noKeys, Handler: cmdAsking})
	r.register(&CommandSpec{Name: "CLUSTER", MinArgs: 2, MaxArgs: -1, Flags: FlagNoScript, Keys: noKeys, Handler: cmdCluster})

	// Strings.
	r.register(&CommandSpec{Name: "GET", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdGet})
	r.register(&CommandSpec{Name: "SET", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Keys: firstKey, Handler: cmdSet})
	r.register(&CommandSpec{Name: "GETSET", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Keys: firstKey, Handler: cmdGetSet})
	r.register(&CommandSpec{Name: "INCR", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Keys: firstKey, Handler: cmdIncrBy(1)})
	r.register(&CommandSpec{Name: "DECR", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Keys: firstKey, Handler: cmdIncrBy(-1)})
	r.register(&CommandSpec{Name: "INCRBY", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Keys: firstKey, Handler: cmdIncrBy(0)})
	r.register(&CommandSpec{Name: "DECRBY", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Keys: firstKey, Handler: cmdIncrBy(0)})
	r.register(&CommandSpec{Name: "INCRBYFLOAT", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Keys: firstKey, Handler: cmdIncrByFloat})
	r.register(&CommandSpec{Name: "MGET", MinArgs: 2, MaxArgs: -1, Keys: allArgsAreKeys, Handler: cmdMGet})
	r.register(&CommandSpec{Name: "MSET", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Keys: mSetKeys, Handler: cmdMSet})
	r.register(&CommandSpec{Name: "APPEND", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Keys: firstKey, Handler: cmdAppend})
	r.register(&CommandSpec{Name: "STRLEN", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdStrlen})

	// Generic / keyspace.
	r.register(&CommandSpec{Name: "DEL", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Keys: allArgsAreKeys, Handler: cmdDel})
	r.register(&CommandSpec{Name: "UNLINK", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Keys: allArgsAreKeys, Handler: cmdDel})
	r.register(&CommandSpec{Name: "EXISTS", MinArgs: 2, MaxArgs: -1, Keys: allArgsAreKeys, Handler: cmdExists})
	r.register(&CommandSpec{Name: "EXPIRE", MinArgs: 3, MaxArgs: 4, Flags: FlagWrite, Keys: firstKey, Handler: cmdExpire})
	r.register(&CommandSpec{Name: "PEXPIREAT", MinArgs: 3, MaxArgs: 4, Flags: FlagWrite, Keys: firstKey, Handler: cmdPExpireAt})
	r.register(&CommandSpec{Name: "TTL", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdTTL})
	r.register(&CommandSpec{Name: "PTTL", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdPTTL})
	r.register(&CommandSpec{Name: "PERSIST", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Keys: firstKey, Handler: cmdPersist})
	r.register(&CommandSpec{Name: "TYPE", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdType})
	r.register(&CommandSpec{Name: "KEYS", MinArgs: 2, MaxArgs: 2, Flags: FlagAdmin, Keys: noKeys, Handler: cmdKeys})
	r.register(&CommandSpec{Name: "SCAN", MinArgs: 2, MaxArgs: -1, Keys: noKeys, Handler: cmdScan})
	r.register(&CommandSpec{Name: "RENAME", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Keys: allArgsAreKeys, Handler: cmdRename})
	r.register(&CommandSpec{Name: "COPY", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Keys: keyRange(1, 3), Handler: cmdCopy})
	r.register(&CommandSpec{Name: "MOVE", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Keys: firstKey, Handler: cmdMove})
	r.register(&CommandSpec{Name: "DBSIZE", MinArgs: 1, MaxArgs: 1, Keys: noKeys, Handler: cmdDBSize})
	r.register(&CommandSpec{Name: "RANDOMKEY", MinArgs: 1, MaxArgs: 1, Keys: noKeys, Handler: cmdRandomKey})
	r.register(&CommandSpec{Name: "TIME", MinArgs: 1, MaxArgs: 1, Flags: FlagNoAuth | FlagPubSub, Keys: noKeys, Handler: cmdTime})
	r.register(&CommandSpec{Name: "FLUSHDB", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite | FlagAdmin, Keys: noKeys, Handler: cmdFlushDB})
	r.register(&CommandSpec{Name: "FLUSHALL", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite | FlagAdmin, Keys: noKeys, Handler: cmdFlushAll})

	// Lists.
	r.register(&CommandSpec{Name: "LPUSH", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Keys: firstKey, Handler: listPush(true)})
	r.register(&CommandSpec{Name: "RPUSH", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Keys: firstKey, Handler: listPush(false)})
	r.register(&CommandSpec{Name: "LPOP", MinArgs: 2, MaxArgs: 3, Flags: FlagWrite, Keys: firstKey, Handler: listPop(true)})
	r.register(&CommandSpec{Name: "RPOP", MinArgs: 2, MaxArgs: 3, Flags: FlagWrite, Keys: firstKey, Handler: listPop(false)})
	r.register(&CommandSpec{Name: "LRANGE", MinArgs: 4, MaxArgs: 4, Keys: firstKey, Handler: cmdLRange})
	r.register(&CommandSpec{Name: "LLEN", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdLLen})
	r.register(&CommandSpec{Name: "LINDEX", MinArgs: 3, MaxArgs: 3, Keys: firstKey, Handler: cmdLIndex})
	r.register(&CommandSpec{Name: "LSET", MinArgs: 4, MaxArgs: 4, Flags: FlagWrite, Keys: firstKey, Handler: cmdLSet})
	r.register(&CommandSpec{Name: "LTRIM", MinArgs: 4, MaxArgs: 4, Flags: FlagWrite, Keys: firstKey, Handler: cmdLTrim})
	r.register(&CommandSpec{Name: "BLPOP", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite | FlagBlocking | FlagNoScript | FlagNotQueueable, Keys: allButLastArg, Handler: blockingListPop(true)})
	r.register(&CommandSpec{Name: "BRPOP", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite | FlagBlocking | FlagNoScript | FlagNotQueueable, Keys: allButLastArg, Handler: blockingListPop(false)})

	// Hashes.
	r.register(&CommandSpec{Name: "HSET", MinArgs: 4, MaxArgs: -1, Flags: FlagWrite, Keys: firstKey, Handler: cmdHSet})
	r.register(&CommandSpec{Name: "HGET", MinArgs: 3, MaxArgs: 3, Keys: firstKey, Handler: cmdHGet})
	r.register(&CommandSpec{Name: "HDEL", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Keys: firstKey, Handler: cmdHDel})
	r.register(&CommandSpec{Name: "HGETALL", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdHGetAll})
	r.register(&CommandSpec{Name: "HEXISTS", MinArgs: 3, MaxArgs: 3, Keys: firstKey, Handler: cmdHExists})
	r.register(&CommandSpec{Name: "HLEN", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdHLen})
	r.register(&CommandSpec{Name: "HKEYS", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdHKeys})
	r.register(&CommandSpec{Name: "HVALS", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdHVals})
	r.register(&CommandSpec{Name: "HINCRBY", MinArgs: 4, MaxArgs: 4, Flags: FlagWrite, Keys: firstKey, Handler: cmdHIncrBy})
	r.register(&CommandSpec{Name: "HMGET", MinArgs: 3, MaxArgs: -1, Keys: firstKey, Handler: cmdHMGet})

	// Sets.
	r.register(&CommandSpec{Name: "SADD", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Keys: firstKey, Handler: cmdSAdd})
	r.register(&CommandSpec{Name: "SREM", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Keys: firstKey, Handler: cmdSRem})
	r.register(&CommandSpec{Name: "SMEMBERS", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdSMembers})
	r.register(&CommandSpec{Name: "SISMEMBER", MinArgs: 3, MaxArgs: 3, Keys: firstKey, Handler: cmdSIsMember})
	r.register(&CommandSpec{Name: "SCARD", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdSCard})
	r.register(&CommandSpec{Name: "SINTER", MinArgs: 2, MaxArgs: -1, Keys: allArgsAreKeys, Handler: setCombine(setInter)})
	r.register(&CommandSpec{Name: "SUNION", MinArgs: 2, MaxArgs: -1, Keys: allArgsAreKeys, Handler: setCombine(setUnion)})
	r.register(&CommandSpec{Name: "SDIFF", MinArgs: 2, MaxArgs: -1, Keys: allArgsAreKeys, Handler: setCombine(setDiff)})

	// Sorted sets.
	r.register(&CommandSpec{Name: "ZADD", MinArgs: 4, MaxArgs: -1, Flags: FlagWrite, Keys: firstKey, Handler: cmdZAdd})
	r.register(&CommandSpec{Name: "ZREM", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Keys: firstKey, Handler: cmdZRem})
	r.register(&CommandSpec{Name: "ZSCORE", MinArgs: 3, MaxArgs: 3, Keys: firstKey, Handler: cmdZScore})
	r.register(&CommandSpec{Name: "ZCARD", MinArgs: 2, MaxArgs: 2, Keys: firstKey, Handler: cmdZCard})
	r.register(&CommandSpec{Name: "ZINCRBY", MinArgs: 4, MaxArgs: 4, Flags: FlagWrite, Keys: firstKey, Handler: cmdZIncrBy})
	r.register(&CommandSpec{Name: "ZRANGE", MinArgs: 4, MaxArgs: 5, Keys: firstKey, Handler: zRange(false)})
	r.register(&CommandSpec{Name: "ZREVRANGE", MinArgs: 4, MaxArgs: 5, Keys: firstKey, Handler: zRange(true)})
	r.register(&CommandSpec{Name: "ZRANGEBYSCORE", MinArgs: 4, MaxArgs: -1, Keys: firstKey, Handler: cmdZRangeByScore})

	// JSON.
	r.register(&CommandSpec{Name: "JSON.SET", MinArgs: 4, MaxArgs: 4, Flags: FlagWrite, Keys: firstKey, Handler: cmdJSONSet})
	r.register(&CommandSpec{Name: "JSON.GET", MinArgs: 2, MaxArgs: 3, Keys: firstKey, Handler: cmdJSONGet})
	r.register(&CommandSpec{Name: "JSON.DEL", MinArgs: 2, MaxArgs: 3, Flags: FlagWrite, Keys: firstKey, Handler: cmdJSONDel})

	// Transactions.
	r.register(&CommandSpec{Name: "MULTI", MinArgs: 1, MaxArgs: 1, Flags: FlagNotQueueable, Keys: noKeys, Handler: cmdMulti})
	r.register(&CommandSpec{Name: "DISCARD", MinArgs: 1, MaxArgs: 1, Flags: FlagNotQueueable, Keys: noKeys, Handler: cmdDiscard})
	r.register(&CommandSpec{Name: "WATCH", MinArgs: 2, MaxArgs: -1, Flags: FlagNotQueueable, Keys: allArgsAreKeys, Handler: cmdWatch})
	r.register(&CommandSpec{Name: "UNWATCH", MinArgs: 1, MaxArgs: 1, Flags: FlagNotQueueable, Keys: noKeys, Handler: cmdUnwatch})
	// EXEC is flagged FlagWrite even though some queued batches are
	// read-only: Dispatch takes the database's write lock once for the
	// whole EXEC call, and that one lock must cover every command the
	// queue replays through ExecuteQueued, not just the ones that write.
	r.register(&CommandSpec{Name: "EXEC", MinArgs: 1, MaxArgs: 1, Flags: FlagNotQueueable | FlagWrite, Keys: noKeys, Handler: cmdExec})

	// Pub/sub.
	r.register(&CommandSpec{Name: "PUBLISH", MinArgs: 3, MaxArgs: 3, Flags: FlagPubSub, Keys: noKeys, Handler: cmdPublish})
	r.register(&CommandSpec{Name: "SUBSCRIBE", MinArgs: 2, MaxArgs: -1, Flags: FlagPubSub | FlagNotQueueable | FlagNoScript, Keys: noKeys, Handler: cmdSubscribe})
	r.register(&CommandSpec{Name: "UNSUBSCRIBE", MinArgs: 1, MaxArgs: -1, Flags: FlagPubSub | FlagNotQueueable | FlagNoScript, Keys: noKeys, Handler: cmdUnsubscribe})
	r.register(&CommandSpec{Name: "PSUBSCRIBE", MinArgs: 2, MaxArgs: -1, Flags: FlagPubSub | FlagNotQueueable | FlagNoScript, Keys: noKeys, Handler: cmdPSubscribe})
	r.register(&CommandSpec{Name: "PUNSUBSCRIBE", MinArgs: 1, MaxArgs: -1, Flags: FlagPubSub | FlagNotQueueable | FlagNoScript, Keys: noKeys, Handler: cmdPUnsubscribe})

	// Scripting. EVAL/EVALSHA carry FlagNoScript themselves: real Redis
	// forbids a script from issuing EVAL, since scripts already run to
	// completion with no reentrancy point.
	r.register(&CommandSpec{Name: "EVAL", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite | FlagNoScript, Keys: evalKeys, Handler: cmdEval(r.scripts)})
	r.register(&CommandSpec{Name: "EVALSHA", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite | FlagNoScript, Keys: evalKeys, Handler: cmdEvalSHA(r.scripts)})
	r.register(&CommandSpec{Name: "SCRIPT", MinArgs: 2, MaxArgs: -1, Flags: FlagNoScript, Keys: noKeys, Handler: cmdScript(r.scripts)})
}

// evalKeys extracts EVAL/EVALSHA's positional key arguments: args[3:3+n]
// where n is the numkeys argument at args[2]. An unparsable or
// out-of-range numkeys yields no keys; the handler itself reports the
// arity error authoritatively.
func evalKeys(args [][]byte) [][]byte {
	if len(args) < 3 {
		return nil
	}
	n, err := strconv.Atoi(string(args[2]))
	if err != nil || n <= 0 {
		return nil
	}
	rest := args[3:]
	if n > len(rest) {
		return nil
	}
	return rest[:n]
}

// mSetKeys extracts the key half of MSET's alternating key/value pairs.
func mSetKeys(args [][]byte) [][]byte {
	rest := args[1:]
	keys := make([][]byte, 0, len(rest)/2+1)
	for i := 0; i < len(rest); i += 2 {
		keys = append(keys, rest[i])
	}
	return keys
}

// allButLastArg covers BLPOP/BRPOP: every argument but the trailing
// timeout names a key.
func allButLastArg(args [][]byte) [][]byte {
	if len(args) < 3 {
		return nil
	}
	return args[1 : len(args)-1]
}
